package casesync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/advwell/pkg/datajud"
	"github.com/Ramsey-B/advwell/pkg/expressions"
	"github.com/Ramsey-B/advwell/pkg/httpclient"
	"github.com/Ramsey-B/advwell/pkg/kafka"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/redis"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeSearcher struct {
	result *datajud.SearchResult
	err    error
	calls  int
}

func (f *fakeSearcher) Search(_ context.Context, processNumber string) (*datajud.SearchResult, error) {
	f.calls++
	if f.err != nil {
		return &datajud.SearchResult{ProcessNumber: datajud.Digits(processNumber)}, f.err
	}
	return f.result, nil
}

type fakeCases struct {
	cases map[uuid.UUID]*models.Case
}

func (f *fakeCases) GetByID(_ context.Context, id uuid.UUID) (*models.Case, error) {
	c, ok := f.cases[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Processo não encontrado")
	}
	clone := *c
	return &clone, nil
}

// fakeMovements mimics the transactional replace: on failure nothing changes
type fakeMovements struct {
	mu        sync.Mutex
	stored    map[uuid.UUID][]models.Movement
	stamps    map[uuid.UUID]models.CaseSyncStamp
	replaceFn func() error
	replaces  int
}

func newFakeMovements() *fakeMovements {
	return &fakeMovements{
		stored: map[uuid.UUID][]models.Movement{},
		stamps: map[uuid.UUID]models.CaseSyncStamp{},
	}
}

func (f *fakeMovements) ListByCase(_ context.Context, caseID uuid.UUID) ([]models.Movement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Movement(nil), f.stored[caseID]...), nil
}

func (f *fakeMovements) ReplaceForCase(_ context.Context, caseID uuid.UUID, movements []models.Movement, stamp models.CaseSyncStamp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces++
	if f.replaceFn != nil {
		if err := f.replaceFn(); err != nil {
			return err
		}
	}
	f.stored[caseID] = append([]models.Movement(nil), movements...)
	f.stamps[caseID] = stamp
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	keys []string
	ttls []time.Duration
}

func (f *fakeLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.ttls = append(f.ttls, ttl)
	if f.held[key] {
		f.mu.Unlock()
		return redis.ErrLockNotAcquired
	}
	f.mu.Unlock()
	return fn(ctx)
}

type fakePublisher struct {
	events []*kafka.CaseSyncedEvent
	err    error
}

func (f *fakePublisher) PublishCaseSynced(_ context.Context, evt *kafka.CaseSyncedEvent) error {
	f.events = append(f.events, evt)
	return f.err
}

func twoMovementRecord() *datajud.SearchResult {
	return &datajud.SearchResult{
		ProcessNumber: "00008323520184013202",
		Tribunal:      "tjmg",
		Record: &datajud.CaseRecord{
			ProcessNumber: "00008323520184013202",
			Tribunal:      "TJMG",
			Subjects:      []datajud.Named{{Code: 10433, Name: "Indenização por Dano Moral"}},
			Movements: []datajud.Movement{
				{Code: 26, Name: "Distribuição", DateTime: "2018-03-01T10:00:00.000Z"},
				{Code: 970, Name: "Audiência", DateTime: "2018-06-12T14:30:00.000Z", Complements: []datajud.Complement{
					{Code: 1, Value: 2, Name: "Motivo", Description: "Audiência"},
					{Code: 2, Value: 3, Name: "Tipo", Description: "Ordinária"},
				}},
			},
		},
	}
}

type fixture struct {
	caseID    uuid.UUID
	searcher  *fakeSearcher
	cases     *fakeCases
	movements *fakeMovements
	locker    *fakeLocker
	publisher *fakePublisher
	sync      *Synchronizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	caseID := uuid.New()
	f := &fixture{
		caseID:   caseID,
		searcher: &fakeSearcher{result: twoMovementRecord()},
		cases: &fakeCases{cases: map[uuid.UUID]*models.Case{
			caseID: {ID: caseID, CompanyID: uuid.New(), ProcessNumber: "0000832-35.2018.4.01.3202", Status: models.CaseStatusActive},
		}},
		movements: newFakeMovements(),
		locker:    &fakeLocker{held: map[string]bool{}},
		publisher: &fakePublisher{},
	}
	f.sync = NewSynchronizer(f.searcher, f.cases, f.movements, f.locker, f.publisher, Config{}, testLogger())
	f.sync.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

// persist copies the result of a sync back to the fake case store
func (f *fixture) persist(c *models.Case) {
	clone := *c
	clone.Movements = nil
	f.cases.cases[c.ID] = &clone
}

func TestSync_ReplacesMovementsAndStampsCase(t *testing.T) {
	f := newFixture(t)

	result, err := f.sync.Sync(context.Background(), f.caseID, TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 2, result.MovementCount)
	assert.True(t, result.Changed)
	assert.Equal(t, []string{f.caseID.String()}, f.locker.keys)

	stored := f.movements.stored[f.caseID]
	require.Len(t, stored, 2)
	require.NotNil(t, stored[1].Description)
	assert.Equal(t, "Motivo: Audiência; Tipo: Ordinária", *stored[1].Description)

	stamp := f.movements.stamps[f.caseID]
	require.NotNil(t, stamp.UltimoAndamento)
	assert.Equal(t, "Audiência - 12/06/2018", *stamp.UltimoAndamento)
	assert.False(t, stamp.MarkPending, "first sync only sets the baseline")
	assert.Equal(t, MovementsFingerprint(stored), stamp.Fingerprint)

	require.NotNil(t, result.Case.LastSyncedAt)
	assert.Equal(t, "Audiência", result.Case.Movements[0].Name, "movements are newest first")

	require.Len(t, f.publisher.events, 1)
	evt := f.publisher.events[0]
	assert.Equal(t, f.caseID.String(), evt.CaseID)
	assert.Equal(t, "tjmg", evt.Tribunal)
	assert.Equal(t, 2, evt.MovementCount)
	assert.Equal(t, string(TriggerManual), evt.Trigger)
}

func TestSync_IsIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.sync.Sync(context.Background(), f.caseID, TriggerManual)
	require.NoError(t, err)
	f.persist(first.Case)
	firstStored := f.movements.stored[f.caseID]
	firstStamp := f.movements.stamps[f.caseID]

	second, err := f.sync.Sync(context.Background(), f.caseID, TriggerManual)
	require.NoError(t, err)

	assert.False(t, second.Changed)
	assert.False(t, second.Case.PendingUpdate)
	assert.Equal(t, firstStamp.Fingerprint, f.movements.stamps[f.caseID].Fingerprint)
	assert.Equal(t, *firstStamp.UltimoAndamento, *f.movements.stamps[f.caseID].UltimoAndamento)
	assert.Equal(t, MovementsFingerprint(firstStored), MovementsFingerprint(f.movements.stored[f.caseID]))
}

func TestSync_ChangedSetMarksPendingUpdate(t *testing.T) {
	f := newFixture(t)

	first, err := f.sync.Sync(context.Background(), f.caseID, TriggerSweep)
	require.NoError(t, err)
	f.persist(first.Case)

	f.searcher.result.Record.Movements = append(f.searcher.result.Record.Movements,
		datajud.Movement{Code: 22, Name: "Sentença", DateTime: "2019-01-15T16:00:00.000Z"})

	second, err := f.sync.Sync(context.Background(), f.caseID, TriggerSweep)
	require.NoError(t, err)

	assert.True(t, second.Changed)
	assert.True(t, f.movements.stamps[f.caseID].MarkPending)
	assert.Equal(t, "Sentença - 15/01/2019", *f.movements.stamps[f.caseID].UltimoAndamento)
}

func TestSync_UnchangedSyncNeverClearsPending(t *testing.T) {
	f := newFixture(t)

	first, err := f.sync.Sync(context.Background(), f.caseID, TriggerSweep)
	require.NoError(t, err)
	first.Case.PendingUpdate = true
	f.persist(first.Case)

	second, err := f.sync.Sync(context.Background(), f.caseID, TriggerSweep)
	require.NoError(t, err)

	assert.False(t, f.movements.stamps[f.caseID].MarkPending)
	assert.True(t, second.Case.PendingUpdate)
}

func TestSync_NoMatchLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.searcher.err = datajud.ErrNotFound

	_, err := f.sync.Sync(context.Background(), f.caseID, TriggerManual)
	require.Error(t, err)
	require.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	assert.Contains(t, err.Error(), "Processo não encontrado no DataJud")

	assert.Zero(t, f.movements.replaces)
	assert.Empty(t, f.publisher.events)
	assert.Nil(t, f.cases.cases[f.caseID].LastSyncedAt)
}

func TestSync_InvalidProcessNumber(t *testing.T) {
	f := newFixture(t)
	f.searcher.err = datajud.ErrInvalidProcessNumber

	_, err := f.sync.Sync(context.Background(), f.caseID, TriggerManual)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestSync_LockContentionIsConflict(t *testing.T) {
	f := newFixture(t)
	f.locker.held[f.caseID.String()] = true

	_, err := f.sync.Sync(context.Background(), f.caseID, TriggerManual)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	assert.Zero(t, f.searcher.calls)
	assert.Zero(t, f.movements.replaces)
}

func TestLockTTLFor_OutlivesSequentialSearch(t *testing.T) {
	tribunals, timeout, maxWait := 8, 15*time.Second, 30*time.Second

	ttl := LockTTLFor(tribunals, timeout, maxWait)

	assert.Greater(t, ttl, time.Duration(tribunals)*(timeout+maxWait))
	assert.LessOrEqual(t, ttl, DefaultLockTTL)
}

func TestSync_HoldsLockForConfiguredTTL(t *testing.T) {
	f := newFixture(t)

	_, err := f.sync.Sync(context.Background(), f.caseID, TriggerManual)
	require.NoError(t, err)
	require.Len(t, f.locker.ttls, 1)
	assert.Equal(t, DefaultLockTTL, f.locker.ttls[0])
}

func TestSync_PersistenceFailureKeepsPreviousState(t *testing.T) {
	f := newFixture(t)
	f.movements.stored[f.caseID] = []models.Movement{{Code: 1, Name: "Antigo"}}
	f.movements.replaceFn = func() error {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to synchronize case")
	}

	_, err := f.sync.Sync(context.Background(), f.caseID, TriggerManual)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, httperror.GetStatusCode(err))

	require.Len(t, f.movements.stored[f.caseID], 1)
	assert.Equal(t, "Antigo", f.movements.stored[f.caseID][0].Name)
	assert.Empty(t, f.publisher.events)
}

func TestSync_PublishFailureDoesNotFailSync(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	result, err := f.sync.Sync(context.Background(), f.caseID, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 2, result.MovementCount)
}

func TestSync_UnknownCase(t *testing.T) {
	f := newFixture(t)

	_, err := f.sync.Sync(context.Background(), uuid.New(), TriggerManual)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	assert.Zero(t, f.searcher.calls)
}

func TestLookup_BestEffort(t *testing.T) {
	f := newFixture(t)
	assert.NotNil(t, f.sync.Lookup(context.Background(), "0000832-35.2018.4.01.3202"))

	f.searcher.err = errors.New("boom")
	assert.Nil(t, f.sync.Lookup(context.Background(), "0000832-35.2018.4.01.3202"))

	f.searcher.err = datajud.ErrNotFound
	assert.Nil(t, f.sync.Lookup(context.Background(), "0000832-35.2018.4.01.3202"))
}

func TestApplyRecord(t *testing.T) {
	c := &models.Case{}
	ApplyRecord(c, twoMovementRecord())
	assert.Equal(t, "TJMG", c.Court)
	assert.Equal(t, "Indenização por Dano Moral", c.Subject)

	kept := &models.Case{Court: "2ª Vara", Subject: "Cobrança"}
	ApplyRecord(kept, twoMovementRecord())
	assert.Equal(t, "2ª Vara", kept.Court)
	assert.Equal(t, "Cobrança", kept.Subject)

	untouched := &models.Case{}
	ApplyRecord(untouched, nil)
	assert.Empty(t, untouched.Court)
}

const thirdTribunalHit = `{"hits":{"total":{"value":1},"hits":[{"_source":{
	"numeroProcesso":"00008323520184013202",
	"tribunal":"TJMG",
	"assuntos":[{"codigo":10433,"nome":"Indenização por Dano Moral"}],
	"movimentos":[
		{"codigo":26,"nome":"Distribuição","dataHora":"2018-03-01T10:00:00.000Z"},
		{"codigo":970,"nome":"Audiência","dataHora":"2018-06-12T14:30:00.000Z",
		 "complementosTabelados":[{"codigo":1,"valor":2,"nome":"Motivo","descricao":"Audiência"},{"codigo":2,"valor":3,"nome":"Tipo","descricao":"Ordinária"}]}
	]}}]}}`

func TestSync_EndToEnd_ThirdTribunalMatches(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tribunal := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api_publica_"), "/_search")
		mu.Lock()
		calls = append(calls, tribunal)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if tribunal == "tjmg" {
			_, _ = w.Write([]byte(thirdTribunalHit))
			return
		}
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":0},"hits":[]}}`))
	}))
	defer server.Close()

	logger := testLogger()
	client := httpclient.NewClient(httpclient.DefaultConfig(), logger)
	evaluator := expressions.NewEvaluator()
	providers := make([]datajud.Provider, 0, len(datajud.DefaultTribunals))
	for _, tribunal := range datajud.DefaultTribunals {
		providers = append(providers, datajud.NewTribunalProvider(tribunal, server.URL, "secret", client, evaluator, logger))
	}
	registry := datajud.NewRegistry(providers, datajud.RegistryConfig{Timeout: 5 * time.Second}, nil, logger)

	f := newFixture(t)
	s := NewSynchronizer(registry, f.cases, f.movements, f.locker, f.publisher, Config{}, logger)

	result, err := s.Sync(context.Background(), f.caseID, TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, []string{"tjrj", "tjsp", "tjmg"}, calls)
	assert.Equal(t, 2, result.MovementCount)
	assert.Equal(t, "tjmg", result.Search.Tribunal)
	assert.Equal(t, "Audiência - 12/06/2018", *result.Case.UltimoAndamento)
	assert.Len(t, f.movements.stored[f.caseID], 2)
}
