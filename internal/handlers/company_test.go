package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/advwell/pkg/middleware"
	"github.com/Ramsey-B/advwell/pkg/models"
)

type fakeCompanyRepo struct {
	companies map[uuid.UUID]*models.Company
	counts    models.CompanyCounts
}

func (f *fakeCompanyRepo) Create(_ context.Context, company *models.Company) error {
	company.ID = uuid.New()
	clone := *company
	f.companies[company.ID] = &clone
	return nil
}

func (f *fakeCompanyRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Company, error) {
	company, ok := f.companies[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Empresa não encontrada")
	}
	clone := *company
	return &clone, nil
}

func (f *fakeCompanyRepo) List(_ context.Context) ([]models.Company, error) {
	companies := []models.Company{}
	for _, company := range f.companies {
		companies = append(companies, *company)
	}
	return companies, nil
}

func (f *fakeCompanyRepo) Update(_ context.Context, company *models.Company) error {
	if _, ok := f.companies[company.ID]; !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "Empresa não encontrada")
	}
	clone := *company
	f.companies[company.ID] = &clone
	return nil
}

func (f *fakeCompanyRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	company, ok := f.companies[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "Empresa não encontrada")
	}
	company.Active = false
	return nil
}

func (f *fakeCompanyRepo) Counts(_ context.Context, _ uuid.UUID) (*models.CompanyCounts, error) {
	counts := f.counts
	return &counts, nil
}

func (env *testEnv) addCompany() *models.Company {
	company := &models.Company{ID: env.tenantID, Name: "Silva Advogados", Active: true}
	env.companies.companies[company.ID] = company
	return company
}

func TestCompanyGetOwn_IncludesCounts(t *testing.T) {
	env := newTestEnv(t)
	env.addCompany()
	env.companies.counts = models.CompanyCounts{Users: 3, Clients: 12, Cases: 40}

	rec := env.do(http.MethodGet, "/api/companies/own", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[models.CompanyWithCounts](t, rec)
	assert.Equal(t, env.tenantID, got.ID)
	assert.Equal(t, "Silva Advogados", got.Name)
	assert.Equal(t, 12, got.Count.Clients)
	assert.Equal(t, 40, got.Count.Cases)
}

func TestCompanyUpdateOwn_KeepsActive(t *testing.T) {
	env := newTestEnv(t)
	env.addCompany()

	rec := env.do(http.MethodPut, "/api/companies/own", `{"phone":"21 99999-0000","state":"RJ","active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored := env.companies.companies[env.tenantID]
	assert.True(t, stored.Active)
	require.NotNil(t, stored.State)
	assert.Equal(t, "RJ", *stored.State)
	assert.Equal(t, "Silva Advogados", stored.Name)

	rec = env.do(http.MethodPut, "/api/companies/own", `{"state":"Rio"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompanyOwn_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.addCompany()
	env.role = models.RoleUser

	rec := env.do(http.MethodGet, "/api/companies/own", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Acesso negado", decode[middleware.ErrorResponse](t, rec).Message)
}

func TestCompanyDelete_Deactivates(t *testing.T) {
	env := newTestEnv(t)
	company := env.addCompany()

	rec := env.do(http.MethodDelete, "/api/companies/"+company.ID.String(), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.role = models.RoleSuperAdmin
	rec = env.do(http.MethodDelete, "/api/companies/"+company.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.companies.companies[company.ID].Active)

	rec = env.do(http.MethodDelete, "/api/companies/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
