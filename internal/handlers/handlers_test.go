package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/advwell/pkg/casesync"
	appctx "github.com/Ramsey-B/advwell/pkg/context"
	"github.com/Ramsey-B/advwell/pkg/datajud"
	"github.com/Ramsey-B/advwell/pkg/middleware"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/repositories"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeClientRepo struct {
	clients map[uuid.UUID]*models.Client
}

func (f *fakeClientRepo) Create(_ context.Context, client *models.Client) error {
	client.ID = uuid.New()
	client.Active = true
	f.clients[client.ID] = client
	return nil
}

func (f *fakeClientRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Client, error) {
	client, ok := f.clients[id]
	if !ok || !client.Active {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Cliente não encontrado")
	}
	clone := *client
	return &clone, nil
}

func (f *fakeClientRepo) ListByIDs(_ context.Context, _ []uuid.UUID) ([]models.Client, error) {
	return nil, nil
}

func (f *fakeClientRepo) List(_ context.Context, params models.ListParams) (*models.Page[models.Client], error) {
	return &models.Page[models.Client]{Data: []models.Client{}, Pagination: models.NewPagination(params, 0)}, nil
}

func (f *fakeClientRepo) Update(_ context.Context, client *models.Client) error {
	f.clients[client.ID] = client
	return nil
}

func (f *fakeClientRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	client, ok := f.clients[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "Cliente não encontrado")
	}
	client.Active = false
	return nil
}

type fakeCaseRepo struct {
	cases      map[uuid.UUID]*models.Case
	lastFilter repositories.CaseFilter
	acked      []uuid.UUID
}

func (f *fakeCaseRepo) Create(_ context.Context, c *models.Case) error {
	for _, existing := range f.cases {
		if existing.ProcessNumber == c.ProcessNumber {
			return httperror.NewHTTPError(http.StatusBadRequest, "Número de processo já cadastrado")
		}
	}
	c.ID = uuid.New()
	clone := *c
	f.cases[c.ID] = &clone
	return nil
}

func (f *fakeCaseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Case, error) {
	c, ok := f.cases[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Processo não encontrado")
	}
	clone := *c
	return &clone, nil
}

func (f *fakeCaseRepo) List(_ context.Context, filter repositories.CaseFilter) (*models.Page[models.Case], error) {
	f.lastFilter = filter
	data := []models.Case{}
	for _, c := range f.cases {
		if filter.ClientID == nil || c.ClientID == *filter.ClientID {
			data = append(data, *c)
		}
	}
	return &models.Page[models.Case]{Data: data, Pagination: models.NewPagination(filter.ListParams, len(data))}, nil
}

func (f *fakeCaseRepo) ListPendingUpdates(_ context.Context) ([]models.Case, error) {
	var pending []models.Case
	for _, c := range f.cases {
		if c.PendingUpdate {
			pending = append(pending, *c)
		}
	}
	return pending, nil
}

func (f *fakeCaseRepo) ListActive(_ context.Context) ([]models.Case, error) {
	return nil, nil
}

func (f *fakeCaseRepo) Update(_ context.Context, c *models.Case) error {
	clone := *c
	f.cases[c.ID] = &clone
	return nil
}

func (f *fakeCaseRepo) Acknowledge(_ context.Context, id uuid.UUID) error {
	c, ok := f.cases[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "Processo não encontrado")
	}
	c.PendingUpdate = false
	f.acked = append(f.acked, id)
	return nil
}

type fakeMovementRepo struct {
	movements map[uuid.UUID][]models.Movement
}

func (f *fakeMovementRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]models.Movement, error) {
	return f.movements[caseID], nil
}

func (f *fakeMovementRepo) ReplaceForCase(_ context.Context, caseID uuid.UUID, movements []models.Movement, _ models.CaseSyncStamp) error {
	f.movements[caseID] = movements
	return nil
}

type fakeSynchronizer struct {
	lookup     *datajud.SearchResult
	movements  *fakeMovementRepo
	syncErr    error
	reconciled []uuid.UUID
	synced     []uuid.UUID
}

func (f *fakeSynchronizer) Lookup(_ context.Context, _ string) *datajud.SearchResult {
	return f.lookup
}

func (f *fakeSynchronizer) Reconcile(_ context.Context, c *models.Case, result *datajud.SearchResult, _ casesync.Trigger) (*casesync.SyncResult, error) {
	f.reconciled = append(f.reconciled, c.ID)
	movements, _ := casesync.NormalizeMovements(result.Record.Movements)
	f.movements.movements[c.ID] = movements
	return &casesync.SyncResult{Case: c, MovementCount: len(movements)}, nil
}

func (f *fakeSynchronizer) Sync(_ context.Context, caseID uuid.UUID, _ casesync.Trigger) (*casesync.SyncResult, error) {
	f.synced = append(f.synced, caseID)
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	f.movements.movements[caseID] = []models.Movement{{ID: uuid.New(), CaseID: caseID, Code: 26, Name: "Distribuição", Date: time.Now()}}
	return &casesync.SyncResult{MovementCount: 1}, nil
}

type testEnv struct {
	echo      *echo.Echo
	tenantID  uuid.UUID
	clients   *fakeClientRepo
	cases     *fakeCaseRepo
	movements *fakeMovementRepo
	syncer    *fakeSynchronizer
	financial *fakeFinancialRepo
	companies *fakeCompanyRepo
	users     *fakeUserRepo
	documents *fakeDocumentRepo
	role      models.Role
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()

	env := &testEnv{
		echo:      echo.New(),
		tenantID:  uuid.New(),
		clients:   &fakeClientRepo{clients: map[uuid.UUID]*models.Client{}},
		cases:     &fakeCaseRepo{cases: map[uuid.UUID]*models.Case{}},
		movements: &fakeMovementRepo{movements: map[uuid.UUID][]models.Movement{}},
		financial: &fakeFinancialRepo{},
		companies: &fakeCompanyRepo{companies: map[uuid.UUID]*models.Company{}},
		users:     &fakeUserRepo{users: map[uuid.UUID]*models.User{}},
		documents: &fakeDocumentRepo{documents: map[uuid.UUID]*models.Document{}},
		role:      models.RoleAdmin,
	}
	env.syncer = &fakeSynchronizer{movements: env.movements}
	env.echo.HTTPErrorHandler = middleware.Error(logger)

	api := env.echo.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := appctx.SetTenantID(c.Request().Context(), env.tenantID.String())
			ctx = appctx.SetRole(ctx, string(env.role))
			ctx = appctx.SetUserID(ctx, "user-1")
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewCaseHandler(env.cases, env.clients, env.movements, env.syncer, logger).RegisterRoutes(api)
	NewClientHandler(env.clients, env.cases).RegisterRoutes(api)
	NewCasePartHandler(&fakeCasePartRepo{}, env.cases).RegisterRoutes(api)
	NewFinancialHandler(env.financial, env.clients, env.cases).RegisterRoutes(api)
	NewDocumentHandler(env.documents, env.clients, env.cases).RegisterRoutes(api)
	NewUserHandler(env.users).RegisterRoutes(api, middleware.RequireRole(models.RoleAdmin))
	NewCompanyHandler(env.companies).RegisterRoutes(api,
		middleware.RequireRole(models.RoleSuperAdmin),
		middleware.RequireRole(models.RoleAdmin),
	)
	return env
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) addClient() *models.Client {
	client := &models.Client{ID: uuid.New(), CompanyID: env.tenantID, Name: "Maria", Active: true}
	env.clients.clients[client.ID] = client
	return client
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func matchedLookup() *datajud.SearchResult {
	return &datajud.SearchResult{
		Tribunal: "tjmg",
		Record: &datajud.CaseRecord{
			Tribunal: "TJMG",
			Subjects: []datajud.Named{{Code: 10433, Name: "Indenização por Dano Moral"}},
			Movements: []datajud.Movement{
				{Code: 26, Name: "Distribuição", DateTime: "2018-03-01T10:00:00.000Z"},
				{Code: 970, Name: "Audiência", DateTime: "2018-06-12T14:30:00.000Z"},
			},
		},
	}
}

func TestCaseCreate_EnrichesFromDataJud(t *testing.T) {
	env := newTestEnv(t)
	client := env.addClient()
	env.syncer.lookup = matchedLookup()

	rec := env.do(http.MethodPost, "/api/cases", `{"clientId":"`+client.ID.String()+`","processNumber":"0000832-35.2018.4.01.3202"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[models.Case](t, rec)
	assert.Equal(t, "TJMG", created.Court)
	assert.Equal(t, "Indenização por Dano Moral", created.Subject)
	assert.Equal(t, models.CaseStatusActive, created.Status)
	assert.Len(t, created.Movements, 2)
	require.NotNil(t, created.Client)
	assert.Equal(t, client.ID, created.Client.ID)
	assert.Equal(t, []uuid.UUID{created.ID}, env.syncer.reconciled)
}

func TestCaseCreate_KeepsSubmittedFields(t *testing.T) {
	env := newTestEnv(t)
	client := env.addClient()
	env.syncer.lookup = matchedLookup()

	rec := env.do(http.MethodPost, "/api/cases", `{"clientId":"`+client.ID.String()+`","processNumber":"123","court":"2ª Vara","subject":"Cobrança"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode[models.Case](t, rec)
	assert.Equal(t, "2ª Vara", created.Court)
	assert.Equal(t, "Cobrança", created.Subject)
}

func TestCaseCreate_NoMatchStillCreates(t *testing.T) {
	env := newTestEnv(t)
	client := env.addClient()

	rec := env.do(http.MethodPost, "/api/cases", `{"clientId":"`+client.ID.String()+`","processNumber":"123","court":"TJRJ","subject":"Cobrança"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode[models.Case](t, rec)
	assert.Equal(t, "TJRJ", created.Court)
	assert.Nil(t, created.LastSyncedAt)
	assert.Empty(t, env.syncer.reconciled)
}

func TestCaseCreate_UnknownClient(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/cases", `{"clientId":"`+uuid.NewString()+`","processNumber":"123"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := decode[middleware.ErrorResponse](t, rec)
	assert.Equal(t, "Cliente não encontrado", body.Message)
}

func TestCaseCreate_DuplicateProcessNumber(t *testing.T) {
	env := newTestEnv(t)
	client := env.addClient()

	payload := `{"clientId":"` + client.ID.String() + `","processNumber":"123"}`
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/cases", payload).Code)

	rec := env.do(http.MethodPost, "/api/cases", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCaseCreate_ValidatesBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/cases", `{"processNumber":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCaseList_PassesFilters(t *testing.T) {
	env := newTestEnv(t)
	clientID := uuid.New()

	rec := env.do(http.MethodGet, "/api/cases?page=2&limit=500&search=maria&status=ACTIVE&clientId="+clientID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	filter := env.cases.lastFilter
	assert.Equal(t, 2, filter.Page)
	assert.Equal(t, models.MaxLimit, filter.Limit)
	assert.Equal(t, "maria", filter.Search)
	assert.Equal(t, models.CaseStatusActive, filter.Status)
	require.NotNil(t, filter.ClientID)
	assert.Equal(t, clientID, *filter.ClientID)
}

func TestCaseList_Defaults(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/cases", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DefaultPage, env.cases.lastFilter.Page)
	assert.Equal(t, models.DefaultLimit, env.cases.lastFilter.Limit)

	page := decode[models.Page[models.Case]](t, rec)
	assert.Equal(t, models.DefaultLimit, page.Pagination.Limit)
}

func TestCaseSync_ReturnsMovements(t *testing.T) {
	env := newTestEnv(t)
	caseID := uuid.New()
	env.cases.cases[caseID] = &models.Case{ID: caseID, CompanyID: env.tenantID, ProcessNumber: "123"}

	rec := env.do(http.MethodPost, "/api/cases/"+caseID.String()+"/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)

	synced := decode[models.Case](t, rec)
	assert.Len(t, synced.Movements, 1)
	assert.Equal(t, []uuid.UUID{caseID}, env.syncer.synced)
}

func TestCaseSync_PropagatesStatus(t *testing.T) {
	env := newTestEnv(t)
	caseID := uuid.New()
	env.cases.cases[caseID] = &models.Case{ID: caseID, ProcessNumber: "123"}

	env.syncer.syncErr = httperror.NewHTTPError(http.StatusNotFound, "Processo não encontrado no DataJud")
	rec := env.do(http.MethodPost, "/api/cases/"+caseID.String()+"/sync", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Processo não encontrado no DataJud", decode[middleware.ErrorResponse](t, rec).Message)

	env.syncer.syncErr = httperror.NewHTTPError(http.StatusConflict, "Sincronização já em andamento para este processo")
	rec = env.do(http.MethodPost, "/api/cases/"+caseID.String()+"/sync", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCaseSync_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/cases/not-a-uuid/sync", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.syncer.synced)
}

func TestCaseUpdatesAndAcknowledge(t *testing.T) {
	env := newTestEnv(t)
	pendingID := uuid.New()
	env.cases.cases[pendingID] = &models.Case{ID: pendingID, PendingUpdate: true}
	quietID := uuid.New()
	env.cases.cases[quietID] = &models.Case{ID: quietID}

	rec := env.do(http.MethodGet, "/api/cases/updates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	updates := decode[[]models.Case](t, rec)
	require.Len(t, updates, 1)
	assert.Equal(t, pendingID, updates[0].ID)

	rec = env.do(http.MethodPost, "/api/cases/"+pendingID.String()+"/acknowledge", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.cases.cases[pendingID].PendingUpdate)
}

func TestCaseUpdate_RejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	caseID := uuid.New()
	env.cases.cases[caseID] = &models.Case{ID: caseID, Status: models.CaseStatusActive}

	rec := env.do(http.MethodPut, "/api/cases/"+caseID.String(), `{"status":"DELETED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, "/api/cases/"+caseID.String(), `{"status":"ARCHIVED","notes":"sem recurso"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CaseStatusArchived, env.cases.cases[caseID].Status)
	assert.Equal(t, "sem recurso", *env.cases.cases[caseID].Notes)
}

func TestClientGet_IncludesCases(t *testing.T) {
	env := newTestEnv(t)
	client := env.addClient()
	caseID := uuid.New()
	env.cases.cases[caseID] = &models.Case{ID: caseID, ClientID: client.ID}

	rec := env.do(http.MethodGet, "/api/clients/"+client.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[models.Client](t, rec)
	require.Len(t, got.Cases, 1)
	assert.Equal(t, caseID, got.Cases[0].ID)
}

func TestClientDelete_Deactivates(t *testing.T) {
	env := newTestEnv(t)
	client := env.addClient()

	rec := env.do(http.MethodDelete, "/api/clients/"+client.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/clients/"+client.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientCreate_RequiresName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/clients", `{"email":"maria@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
