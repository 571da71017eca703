// Package sweep re-synchronizes every active case once a day.
package sweep

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/advwell/pkg/casesync"
	appctx "github.com/Ramsey-B/advwell/pkg/context"
	"github.com/Ramsey-B/advwell/pkg/metrics"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/redis"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

var (
	// ErrSweepAlreadyRunning is returned when Start is called twice
	ErrSweepAlreadyRunning = errors.New("sweep already running")
)

const (
	DefaultHour         = 2
	DefaultWorkers      = 4
	DefaultPollInterval = time.Minute
	DefaultLockTTL      = time.Hour
)

// CaseLister returns the ACTIVE cases of every company
type CaseLister interface {
	ListActive(ctx context.Context) ([]models.Case, error)
}

type CaseSyncer interface {
	Sync(ctx context.Context, caseID uuid.UUID, trigger casesync.Trigger) (*casesync.SyncResult, error)
}

// LeaderClaimer lets exactly one replica claim a key until it expires
type LeaderClaimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) error
}

type Config struct {
	// Hour is the local hour the sweep runs at
	Hour     int
	Workers  int
	Location *time.Location
	// PollInterval is how often the clock is checked
	PollInterval time.Duration
	// LockTTL is how long the daily leader claim lives
	LockTTL time.Duration
}

// Report summarizes one sweep
type Report struct {
	Total    int           `json:"total"`
	Synced   int           `json:"synced"`
	Changed  int           `json:"changed"`
	NotFound int           `json:"notFound"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type Sweeper struct {
	cases  CaseLister
	syncer CaseSyncer
	leader LeaderClaimer
	config Config
	logger ectologger.Logger
	now    func() time.Time

	lastRun  string
	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.RWMutex
}

// NewSweeper creates a sweeper. leader may be nil for a single replica.
func NewSweeper(cases CaseLister, syncer CaseSyncer, leader LeaderClaimer, config Config, logger ectologger.Logger) *Sweeper {
	if config.Hour < 0 || config.Hour > 23 {
		config.Hour = DefaultHour
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	return &Sweeper{
		cases:    cases,
		syncer:   syncer,
		leader:   leader,
		config:   config,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		stoppedC: make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSweepAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"hour":          s.config.Hour,
		"timezone":      s.config.Location.String(),
		"workers":       s.config.Workers,
		"poll_interval": s.config.PollInterval,
	}).Info("Starting daily sweep")

	go s.pollLoop(ctx)
	return nil
}

// Stop waits for the poll loop, including a sweep in progress, to finish
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Sweep stopped gracefully")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Sweep shutdown timed out")
		return ctx.Err()
	}
	return nil
}

func (s *Sweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Sweeper) pollLoop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	// cancels a sweep in progress when Stop is called
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-loopCtx.Done():
		}
	}()

	s.tick(loopCtx)
	for {
		select {
		case <-s.stopCh:
			return
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			s.tick(loopCtx)
		}
	}
}

// tick starts the sweep when the local clock is in the configured hour and
// this replica wins the day's claim.
func (s *Sweeper) tick(ctx context.Context) {
	now := s.now().In(s.config.Location)
	if now.Hour() != s.config.Hour {
		return
	}
	day := now.Format("2006-01-02")
	if s.lastRun == day {
		return
	}

	if s.leader != nil {
		err := s.leader.Claim(ctx, "daily:"+day, s.config.LockTTL)
		if errors.Is(err, redis.ErrLockNotAcquired) {
			s.lastRun = day
			metrics.SweepRunsTotal.WithLabelValues("not_leader").Inc()
			s.logger.WithContext(ctx).WithField("day", day).Info("Another replica owns today's sweep")
			return
		}
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Error("Failed to claim sweep leadership")
			return
		}
	}
	s.lastRun = day

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Daily sweep failed")
	}
}

type sweepOutcome string

const (
	outcomeSynced   sweepOutcome = "synced"
	outcomeChanged  sweepOutcome = "changed"
	outcomeNotFound sweepOutcome = "not_found"
	outcomeSkipped  sweepOutcome = "skipped"
	outcomeFailed   sweepOutcome = "failed"
)

// RunOnce synchronizes every active case on a bounded worker pool. A failing
// case is logged and counted without stopping the others.
func (s *Sweeper) RunOnce(ctx context.Context) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "Sweeper.RunOnce")
	defer span.End()

	start := time.Now()
	cases, err := s.cases.ListActive(ctx)
	if err != nil {
		metrics.SweepRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	report := &Report{Total: len(cases)}
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"cases":   len(cases),
		"workers": s.config.Workers,
	}).Info("Sweep started")

	workers := min(s.config.Workers, len(cases))
	caseCh := make(chan models.Case)
	outcomeCh := make(chan sweepOutcome, len(cases))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, caseCh, outcomeCh)
	}

	go func() {
		defer close(caseCh)
		for _, c := range cases {
			select {
			case <-ctx.Done():
				return
			case caseCh <- c:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomeCh)
	}()

	for outcome := range outcomeCh {
		metrics.SweepCasesTotal.WithLabelValues(string(outcome)).Inc()
		switch outcome {
		case outcomeChanged:
			report.Changed++
			report.Synced++
		case outcomeSynced:
			report.Synced++
		case outcomeNotFound:
			report.NotFound++
		case outcomeSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}

	report.Duration = time.Since(start)
	metrics.SweepDuration.Observe(report.Duration.Seconds())

	span.SetAttributes(
		attribute.Int("sweep.total", report.Total),
		attribute.Int("sweep.synced", report.Synced),
		attribute.Int("sweep.failed", report.Failed),
	)

	status := "completed"
	if ctx.Err() != nil {
		status = "cancelled"
	}
	metrics.SweepRunsTotal.WithLabelValues(status).Inc()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"total":     report.Total,
		"synced":    report.Synced,
		"changed":   report.Changed,
		"not_found": report.NotFound,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
		"duration":  report.Duration,
	}).Info("Sweep finished")

	return report, ctx.Err()
}

func (s *Sweeper) worker(ctx context.Context, wg *sync.WaitGroup, cases <-chan models.Case, outcomes chan<- sweepOutcome) {
	defer wg.Done()

	for c := range cases {
		if ctx.Err() != nil {
			return
		}
		outcomes <- s.syncOne(ctx, c)
	}
}

func (s *Sweeper) syncOne(ctx context.Context, c models.Case) sweepOutcome {
	// the case repository is tenant scoped
	ctx = appctx.SetTenantID(ctx, c.CompanyID.String())
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"case_id":        c.ID,
		"process_number": c.ProcessNumber,
	})

	result, err := s.syncer.Sync(ctx, c.ID, casesync.TriggerSweep)
	if err == nil {
		if result.Changed {
			return outcomeChanged
		}
		return outcomeSynced
	}

	switch status := statusOf(err); status {
	case http.StatusConflict:
		log.Debug("case sync already in progress, skipping")
		return outcomeSkipped
	case http.StatusNotFound:
		log.Info("case not found in DataJud")
		return outcomeNotFound
	default:
		log.WithError(err).Error("failed to sync case")
		return outcomeFailed
	}
}

func statusOf(err error) int {
	var httperr *httperror.HTTPError
	if errors.As(err, &httperr) {
		return httperr.Code
	}
	return http.StatusInternalServerError
}
