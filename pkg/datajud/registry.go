package datajud

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/advwell/pkg/metrics"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

// Limiter throttles calls to one tribunal
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Blocker is a Limiter that can pause a tribunal when it asks us to back off
type Blocker interface {
	Block(ctx context.Context, key string, d time.Duration) error
}

// RegistryConfig controls how the tribunals are walked
type RegistryConfig struct {
	// Parallel queries every tribunal at once; the lowest ranked match wins
	Parallel bool
	// Timeout bounds each tribunal call
	Timeout time.Duration
}

// Registry searches an ordered list of providers. List order is precedence.
type Registry struct {
	providers []Provider
	cfg       RegistryConfig
	limiter   Limiter
	logger    ectologger.Logger
}

func NewRegistry(providers []Provider, cfg RegistryConfig, limiter Limiter, logger ectologger.Logger) *Registry {
	return &Registry{
		providers: providers,
		cfg:       cfg,
		limiter:   limiter,
		logger:    logger,
	}
}

// Search looks the process up across the tribunals. It returns ErrNotFound
// when none matched; the SearchResult is returned either way so callers can
// inspect the attempts.
func (r *Registry) Search(ctx context.Context, processNumber string) (*SearchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Registry.Search")
	defer span.End()

	digits := Digits(processNumber)
	result := &SearchResult{ProcessNumber: digits}
	if digits == "" {
		return result, ErrInvalidProcessNumber
	}

	if r.cfg.Parallel {
		result.Attempts = r.searchParallel(ctx, digits)
	} else {
		result.Attempts = r.searchSequential(ctx, digits)
	}

	for _, attempt := range result.Attempts {
		if attempt.Outcome == OutcomeMatched {
			result.Record = attempt.Record
			result.Tribunal = attempt.Tribunal
			break
		}
	}

	span.SetAttributes(
		attribute.String("datajud.process_number", digits),
		attribute.String("datajud.tribunal", result.Tribunal),
		attribute.Int("datajud.transport_errors", result.Count(OutcomeTransportError)),
	)

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"process_number":   digits,
		"tribunal":         result.Tribunal,
		"attempts":         len(result.Attempts),
		"transport_errors": result.Count(OutcomeTransportError),
	})
	if !result.Found() {
		log.Info("Process not found in DataJud")
		if err := ctx.Err(); err != nil {
			return result, err
		}
		return result, ErrNotFound
	}

	log.Debug("Process found in DataJud")
	return result, nil
}

// searchSequential walks the providers in order and stops at the first match
func (r *Registry) searchSequential(ctx context.Context, digits string) []Attempt {
	attempts := make([]Attempt, 0, len(r.providers))
	for rank, provider := range r.providers {
		if ctx.Err() != nil {
			break
		}
		attempt := r.attempt(ctx, rank, provider, digits)
		attempts = append(attempts, attempt)
		if attempt.Outcome == OutcomeMatched {
			for skipped := rank + 1; skipped < len(r.providers); skipped++ {
				attempts = append(attempts, Attempt{
					Tribunal: r.providers[skipped].Tribunal(),
					Rank:     skipped,
					Outcome:  OutcomeSkipped,
				})
			}
			break
		}
	}
	return attempts
}

// searchParallel queries every provider concurrently. Attempts come back in
// rank order so the first match is the highest precedence one.
func (r *Registry) searchParallel(ctx context.Context, digits string) []Attempt {
	attempts := make([]Attempt, len(r.providers))

	var wg sync.WaitGroup
	for rank, provider := range r.providers {
		wg.Add(1)
		go func(rank int, provider Provider) {
			defer wg.Done()
			attempts[rank] = r.attempt(ctx, rank, provider, digits)
		}(rank, provider)
	}
	wg.Wait()

	return attempts
}

func (r *Registry) attempt(ctx context.Context, rank int, provider Provider, digits string) Attempt {
	tribunal := provider.Tribunal()
	attempt := Attempt{Tribunal: tribunal, Rank: rank}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, tribunal); err != nil {
			attempt.Outcome = OutcomeTransportError
			attempt.Err = err
			r.record(ctx, attempt)
			return attempt
		}
	}

	callCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	record, err := provider.Query(callCtx, digits)
	attempt.Duration = time.Since(start)

	switch {
	case err != nil:
		attempt.Outcome = OutcomeTransportError
		attempt.Err = err
		r.backOff(ctx, tribunal, err)
	case record == nil:
		attempt.Outcome = OutcomeNotFound
	default:
		attempt.Outcome = OutcomeMatched
		attempt.Record = record
	}

	r.record(ctx, attempt)
	return attempt
}

// backOff honors a Retry-After by blocking the tribunal on every replica
func (r *Registry) backOff(ctx context.Context, tribunal string, err error) {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.RetryAfter <= 0 {
		return
	}
	blocker, ok := r.limiter.(Blocker)
	if !ok {
		return
	}
	if err := blocker.Block(ctx, tribunal, statusErr.RetryAfter); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tribunal", tribunal).Warn("failed to block tribunal after Retry-After")
		return
	}
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tribunal":    tribunal,
		"retry_after": statusErr.RetryAfter.String(),
	}).Info("DataJud asked to back off, tribunal blocked")
}

func (r *Registry) record(ctx context.Context, attempt Attempt) {
	metrics.TribunalAttemptsTotal.WithLabelValues(attempt.Tribunal, string(attempt.Outcome)).Inc()
	metrics.TribunalAttemptDuration.WithLabelValues(attempt.Tribunal).Observe(attempt.Duration.Seconds())

	if attempt.Outcome != OutcomeTransportError {
		return
	}

	var statusErr *StatusError
	fields := map[string]any{
		"tribunal": attempt.Tribunal,
		"rank":     attempt.Rank,
	}
	if errors.As(attempt.Err, &statusErr) {
		fields["status_code"] = statusErr.StatusCode
		fields["retryable"] = statusErr.Retryable()
	}
	r.logger.WithContext(ctx).WithError(attempt.Err).WithFields(fields).Warn("DataJud tribunal query failed")
}
