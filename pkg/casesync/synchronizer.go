// Package casesync reconciles stored cases with their DataJud records.
package casesync

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/advwell/pkg/datajud"
	"github.com/Ramsey-B/advwell/pkg/fingerprint"
	"github.com/Ramsey-B/advwell/pkg/kafka"
	"github.com/Ramsey-B/advwell/pkg/metrics"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/redis"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

// Trigger names what started a synchronization
type Trigger string

const (
	TriggerCreate Trigger = "create"
	TriggerManual Trigger = "manual"
	TriggerSweep  Trigger = "sweep"
	TriggerCLI    Trigger = "cli"
)

const DefaultLockTTL = 7 * time.Minute

// lockTTLMargin covers the reconcile write after the search returns
const lockTTLMargin = 30 * time.Second

// LockTTLFor is the shortest lock TTL that outlives a worst case search:
// every tribunal waiting out the limiter and then timing out, one after
// another, followed by the reconcile.
func LockTTLFor(tribunals int, tribunalTimeout, limiterWait time.Duration) time.Duration {
	return time.Duration(tribunals)*(tribunalTimeout+limiterWait) + lockTTLMargin
}

// Searcher finds a process across tribunals
type Searcher interface {
	Search(ctx context.Context, processNumber string) (*datajud.SearchResult, error)
}

type CaseStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
}

type MovementStore interface {
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]models.Movement, error)
	ReplaceForCase(ctx context.Context, caseID uuid.UUID, movements []models.Movement, stamp models.CaseSyncStamp) error
}

// Locker serializes work on a key across replicas
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

type EventPublisher interface {
	PublishCaseSynced(ctx context.Context, evt *kafka.CaseSyncedEvent) error
}

type Config struct {
	LockTTL time.Duration
}

// SyncResult describes one completed reconcile
type SyncResult struct {
	Case          *models.Case
	Search        *datajud.SearchResult
	MovementCount int
	Skipped       int
	Changed       bool
}

type Synchronizer struct {
	searcher  Searcher
	cases     CaseStore
	movements MovementStore
	locker    Locker
	publisher EventPublisher
	cfg       Config
	logger    ectologger.Logger
	now       func() time.Time
}

// NewSynchronizer wires a synchronizer. locker and publisher may be nil.
func NewSynchronizer(searcher Searcher, cases CaseStore, movements MovementStore, locker Locker, publisher EventPublisher, cfg Config, logger ectologger.Logger) *Synchronizer {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	return &Synchronizer{
		searcher:  searcher,
		cases:     cases,
		movements: movements,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Lookup is the best-effort search used while creating a case. It returns nil
// when nothing matched or the search failed.
func (s *Synchronizer) Lookup(ctx context.Context, processNumber string) *datajud.SearchResult {
	ctx, span := tracing.StartSpan(ctx, "Synchronizer.Lookup")
	defer span.End()

	result, err := s.searcher.Search(ctx, processNumber)
	if err != nil {
		if !errors.Is(err, datajud.ErrNotFound) {
			s.logger.WithContext(ctx).WithError(err).WithField("process_number", processNumber).Warn("DataJud lookup failed")
		}
		return nil
	}
	if !result.Found() {
		return nil
	}
	return result
}

// ApplyRecord fills the case's court and subject from the record when the
// caller left them empty.
func ApplyRecord(c *models.Case, result *datajud.SearchResult) {
	if c == nil || !result.Found() {
		return
	}
	if strings.TrimSpace(c.Court) == "" {
		c.Court = result.Record.Tribunal
		if c.Court == "" {
			c.Court = strings.ToUpper(result.Tribunal)
		}
	}
	if strings.TrimSpace(c.Subject) == "" && len(result.Record.Subjects) > 0 {
		c.Subject = result.Record.Subjects[0].Name
	}
}

// Reconcile replaces the case's movements with the record's and stamps the
// case. c is updated in place on success.
func (s *Synchronizer) Reconcile(ctx context.Context, c *models.Case, result *datajud.SearchResult, trigger Trigger) (*SyncResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Synchronizer.Reconcile")
	defer span.End()

	if !result.Found() {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Processo não encontrado no DataJud")
	}

	movements, skipped := NormalizeMovements(result.Record.Movements)
	for _, m := range skipped {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"case_id":   c.ID,
			"code":      m.Code,
			"date_time": m.DateTime,
		}).Warn("skipping movement with unparseable timestamp")
	}

	newFingerprint := MovementsFingerprint(movements)
	oldFingerprint := ""
	if c.MovementsFingerprint != nil {
		oldFingerprint = *c.MovementsFingerprint
	}
	changed := fingerprint.HasChanged(oldFingerprint, newFingerprint)

	// the first sync establishes the baseline
	markPending := c.LastSyncedAt != nil && changed
	pending := c.PendingUpdate || markPending

	stamp := models.CaseSyncStamp{
		SyncedAt:        s.now().UTC(),
		UltimoAndamento: LatestMovementSummary(movements),
		Fingerprint:     newFingerprint,
		MarkPending:     markPending,
	}

	if err := s.movements.ReplaceForCase(ctx, c.ID, movements, stamp); err != nil {
		metrics.CaseSyncsTotal.WithLabelValues(string(trigger), "error").Inc()
		return nil, err
	}
	metrics.MovementsReplaced.Add(float64(len(movements)))

	syncedAt := stamp.SyncedAt
	c.LastSyncedAt = &syncedAt
	c.UltimoAndamento = stamp.UltimoAndamento
	c.MovementsFingerprint = &newFingerprint
	c.PendingUpdate = pending

	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].Date.After(movements[j].Date)
	})
	c.Movements = movements

	span.SetAttributes(
		attribute.String("case_id", c.ID.String()),
		attribute.String("trigger", string(trigger)),
		attribute.Int("movement_count", len(movements)),
		attribute.Bool("changed", changed),
	)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"case_id":        c.ID,
		"company_id":     c.CompanyID,
		"tribunal":       result.Tribunal,
		"trigger":        trigger,
		"movement_count": len(movements),
		"changed":        changed,
		"pending_update": pending,
	}).Info("Case synchronized")

	s.publish(ctx, c, result, trigger, changed)
	metrics.CaseSyncsTotal.WithLabelValues(string(trigger), "synced").Inc()

	return &SyncResult{
		Case:          c,
		Search:        result,
		MovementCount: len(movements),
		Skipped:       len(skipped),
		Changed:       changed,
	}, nil
}

func (s *Synchronizer) publish(ctx context.Context, c *models.Case, result *datajud.SearchResult, trigger Trigger, changed bool) {
	if s.publisher == nil {
		return
	}

	evt := &kafka.CaseSyncedEvent{
		CompanyID:       c.CompanyID.String(),
		CaseID:          c.ID.String(),
		ProcessNumber:   c.ProcessNumber,
		Tribunal:        result.Tribunal,
		Trigger:         string(trigger),
		MovementCount:   len(c.Movements),
		UltimoAndamento: c.UltimoAndamento,
		Changed:         changed,
	}
	if c.LastSyncedAt != nil {
		evt.SyncedAt = *c.LastSyncedAt
	}
	if latest := LatestMovement(c.Movements); latest != nil {
		date := latest.Date
		evt.LatestMovement = &date
	}

	// the sync is already committed, so a failed publish is only logged
	if err := s.publisher.PublishCaseSynced(ctx, evt); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("case_id", c.ID).Error("failed to publish case synced event")
	}
}

// Sync fetches the case's process from DataJud and reconciles it while
// holding the case lock. The case is read with the tenant on ctx.
func (s *Synchronizer) Sync(ctx context.Context, caseID uuid.UUID, trigger Trigger) (*SyncResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Synchronizer.Sync")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.CaseSyncDuration.WithLabelValues(string(trigger)).Observe(time.Since(start).Seconds())
	}()

	var result *SyncResult
	run := func(ctx context.Context) error {
		var err error
		result, err = s.sync(ctx, caseID, trigger)
		return err
	}

	var err error
	if s.locker != nil {
		err = s.locker.WithLock(ctx, caseID.String(), s.cfg.LockTTL, run)
	} else {
		err = run(ctx)
	}

	if errors.Is(err, redis.ErrLockNotAcquired) {
		metrics.CaseSyncsTotal.WithLabelValues(string(trigger), "locked").Inc()
		s.logger.WithContext(ctx).WithField("case_id", caseID).Info("case sync already in progress")
		return nil, httperror.NewHTTPError(http.StatusConflict, "Sincronização já em andamento para este processo")
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

func (s *Synchronizer) sync(ctx context.Context, caseID uuid.UUID, trigger Trigger) (*SyncResult, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	search, err := s.searcher.Search(ctx, c.ProcessNumber)
	switch {
	case errors.Is(err, datajud.ErrInvalidProcessNumber):
		metrics.CaseSyncsTotal.WithLabelValues(string(trigger), "invalid").Inc()
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "Número de processo inválido")
	case errors.Is(err, datajud.ErrNotFound):
		metrics.CaseSyncsTotal.WithLabelValues(string(trigger), "not_found").Inc()
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Processo não encontrado no DataJud")
	case err != nil:
		metrics.CaseSyncsTotal.WithLabelValues(string(trigger), "error").Inc()
		return nil, err
	}

	return s.Reconcile(ctx, c, search, trigger)
}
