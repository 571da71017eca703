package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/advwell/pkg/metrics"
	"github.com/Ramsey-B/advwell/pkg/redis"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

// Allower is the sliding-window primitive the manager throttles on.
type Allower interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redis.RateLimitResult, error)
	BlockFor(ctx context.Context, key string, d time.Duration) error
}

// Limit is a request budget of Requests per Window.
type Limit struct {
	Requests int64
	Window   time.Duration
}

// Manager throttles outbound calls per key, shared across replicas through Redis.
type Manager struct {
	allower Allower
	limit   Limit
	maxWait time.Duration
	logger  ectologger.Logger
}

func NewManager(allower Allower, limit Limit, maxWait time.Duration, logger ectologger.Logger) *Manager {
	return &Manager{
		allower: allower,
		limit:   limit,
		maxWait: maxWait,
		logger:  logger,
	}
}

// Wait blocks until key has budget, the context ends, or maxWait would be exceeded.
// A Redis failure fails open.
func (m *Manager) Wait(ctx context.Context, key string) error {
	ctx, span := tracing.StartSpan(ctx, "RateLimitManager.Wait")
	defer span.End()

	if m == nil || m.allower == nil || m.limit.Requests <= 0 {
		return nil
	}

	start := time.Now()
	deadline := start.Add(m.maxWait)
	defer func() {
		metrics.RateLimitWaitTime.WithLabelValues(key).Observe(time.Since(start).Seconds())
	}()

	for {
		result, err := m.allower.Allow(ctx, key, m.limit.Requests, m.limit.Window)
		if err != nil {
			m.logger.WithContext(ctx).WithError(err).Warnf("Rate limit check failed for %s, allowing request", key)
			return nil
		}
		if result.Allowed {
			return nil
		}

		retryIn := result.RetryIn
		if retryIn <= 0 {
			retryIn = 100 * time.Millisecond
		}
		if m.maxWait > 0 && time.Now().Add(retryIn).After(deadline) {
			return fmt.Errorf("rate limit %s would exceed max wait time of %v", key, m.maxWait)
		}

		m.logger.WithContext(ctx).Debugf("Rate limited on %s, waiting %v", key, retryIn)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryIn):
		}
	}
}

// Block rejects every call on key for d, across replicas.
func (m *Manager) Block(ctx context.Context, key string, d time.Duration) error {
	if m == nil || m.allower == nil {
		return nil
	}
	return m.allower.BlockFor(ctx, key, d)
}

// ParseRetryAfter parses a Retry-After header given as seconds or an HTTP date.
func ParseRetryAfter(value string) (time.Duration, error) {
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	if t, err := time.Parse(time.RFC1123, value); err == nil {
		return time.Until(t), nil
	}
	return 0, fmt.Errorf("invalid Retry-After value: %s", value)
}
