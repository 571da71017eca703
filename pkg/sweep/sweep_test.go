package sweep

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/advwell/pkg/casesync"
	appctx "github.com/Ramsey-B/advwell/pkg/context"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/redis"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeLister struct {
	cases []models.Case
	err   error
}

func (f *fakeLister) ListActive(_ context.Context) ([]models.Case, error) {
	return f.cases, f.err
}

// fakeSyncer records calls and tracks the peak number of concurrent syncs
type fakeSyncer struct {
	mu       sync.Mutex
	tenants  map[uuid.UUID]string
	errs     map[uuid.UUID]error
	changed  map[uuid.UUID]bool
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{
		tenants: map[uuid.UUID]string{},
		errs:    map[uuid.UUID]error{},
		changed: map[uuid.UUID]bool{},
	}
}

func (f *fakeSyncer) Sync(ctx context.Context, caseID uuid.UUID, trigger casesync.Trigger) (*casesync.SyncResult, error) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenants[caseID] = appctx.GetTenantID(ctx)
	if err := f.errs[caseID]; err != nil {
		return nil, err
	}
	return &casesync.SyncResult{Changed: f.changed[caseID]}, nil
}

type fakeClaimer struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
	calls   int
}

func (f *fakeClaimer) Claim(_ context.Context, key string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.claimed[key] {
		return redis.ErrLockNotAcquired
	}
	f.claimed[key] = true
	return nil
}

func activeCases(n int) []models.Case {
	cases := make([]models.Case, n)
	for i := range cases {
		cases[i] = models.Case{ID: uuid.New(), CompanyID: uuid.New(), Status: models.CaseStatusActive}
	}
	return cases
}

func TestRunOnce_IsolatesErrors(t *testing.T) {
	cases := activeCases(5)
	syncer := newFakeSyncer()
	syncer.errs[cases[0].ID] = errors.New("database exploded")
	syncer.errs[cases[1].ID] = httperror.NewHTTPError(http.StatusNotFound, "Processo não encontrado no DataJud")
	syncer.errs[cases[2].ID] = httperror.NewHTTPError(http.StatusConflict, "Sincronização já em andamento para este processo")
	syncer.changed[cases[3].ID] = true

	s := NewSweeper(&fakeLister{cases: cases}, syncer, nil, Config{Workers: 2}, testLogger())
	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 2, report.Synced)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, 1, report.NotFound)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, syncer.tenants, 5)
}

func TestRunOnce_SetsTenantPerCase(t *testing.T) {
	cases := activeCases(3)
	syncer := newFakeSyncer()

	s := NewSweeper(&fakeLister{cases: cases}, syncer, nil, Config{Workers: 3}, testLogger())
	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	for _, c := range cases {
		assert.Equal(t, c.CompanyID.String(), syncer.tenants[c.ID])
	}
}

func TestRunOnce_BoundsConcurrency(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.delay = 20 * time.Millisecond

	s := NewSweeper(&fakeLister{cases: activeCases(12)}, syncer, nil, Config{Workers: 3}, testLogger())
	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, report.Synced)
	assert.LessOrEqual(t, syncer.peak.Load(), int32(3))
	assert.Greater(t, syncer.peak.Load(), int32(1))
}

func TestRunOnce_ListFailure(t *testing.T) {
	s := NewSweeper(&fakeLister{err: errors.New("db down")}, newFakeSyncer(), nil, Config{}, testLogger())
	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunOnce_NoCases(t *testing.T) {
	s := NewSweeper(&fakeLister{}, newFakeSyncer(), nil, Config{}, testLogger())
	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Total)
}

func newClockedSweeper(cases []models.Case, syncer *fakeSyncer, claimer LeaderClaimer, now time.Time) *Sweeper {
	s := NewSweeper(&fakeLister{cases: cases}, syncer, claimer, Config{Hour: 2, Location: time.UTC}, testLogger())
	s.now = func() time.Time { return now }
	return s
}

func TestTick_RunsOnlyInConfiguredHour(t *testing.T) {
	cases := activeCases(1)
	syncer := newFakeSyncer()

	s := newClockedSweeper(cases, syncer, nil, time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC))
	s.tick(context.Background())
	assert.Empty(t, syncer.tenants)

	s.now = func() time.Time { return time.Date(2024, 6, 1, 2, 5, 0, 0, time.UTC) }
	s.tick(context.Background())
	assert.Len(t, syncer.tenants, 1)
}

func TestTick_RunsOncePerDay(t *testing.T) {
	claimer := &fakeClaimer{claimed: map[string]bool{}}
	syncer := newFakeSyncer()
	s := newClockedSweeper(activeCases(1), syncer, claimer, time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC))

	s.tick(context.Background())
	s.tick(context.Background())

	assert.Equal(t, 1, claimer.calls)
	assert.True(t, claimer.claimed["daily:2024-06-01"])
}

func TestTick_OnlyLeaderSweeps(t *testing.T) {
	claimer := &fakeClaimer{claimed: map[string]bool{}}
	now := time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)

	leaderSyncer := newFakeSyncer()
	followerSyncer := newFakeSyncer()
	cases := activeCases(2)

	newClockedSweeper(cases, leaderSyncer, claimer, now).tick(context.Background())
	newClockedSweeper(cases, followerSyncer, claimer, now).tick(context.Background())

	assert.Len(t, leaderSyncer.tenants, 2)
	assert.Empty(t, followerSyncer.tenants)
}

func TestTick_RetriesWhenClaimFails(t *testing.T) {
	claimer := &fakeClaimer{claimed: map[string]bool{}, err: errors.New("redis down")}
	syncer := newFakeSyncer()
	s := newClockedSweeper(activeCases(1), syncer, claimer, time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC))

	s.tick(context.Background())
	assert.Empty(t, syncer.tenants)

	claimer.err = nil
	s.tick(context.Background())
	assert.Len(t, syncer.tenants, 1)
}

func TestStartStop(t *testing.T) {
	s := NewSweeper(&fakeLister{}, newFakeSyncer(), nil, Config{PollInterval: 10 * time.Millisecond}, testLogger())
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSweepAlreadyRunning)
	assert.True(t, s.IsRunning())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
}
