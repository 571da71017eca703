package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/advwell/pkg/database"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

const companiesTable = "companies"

var companyStruct = database.NewStruct(new(models.Company))

// CompanyRepository manages tenants. It is not tenant scoped.
type CompanyRepository struct {
	*Repository
}

func NewCompanyRepository(db database.DB, logger ectologger.Logger) *CompanyRepository {
	return &CompanyRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	ctx, span := tracing.StartSpan(ctx, "CompanyRepository.Create")
	defer span.End()

	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(companiesTable).
		Cols("id", "name", "email", "cnpj", "phone", "address", "city", "state", "zip_code", "logo", "active", "created_at", "updated_at").
		Values(company.ID, company.Name, company.Email, company.CNPJ, company.Phone, company.Address, company.City, company.State,
			company.ZipCode, company.Logo, company.Active, database.Now(), database.Now()).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err := r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"company_id": company.ID,
		}).Error("failed to create company")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create company")
	}

	r.logger.WithContext(ctx).WithField("company_id", company.ID).Debugf("Created %s", companiesTable)
	return nil
}

// FindByID loads a company regardless of the tenant on ctx
func (r *CompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "CompanyRepository.FindByID")
	defer span.End()

	sb := companyStruct.SelectFrom(companiesTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var company models.Company
	err := r.Q(ctx).GetContext(ctx, &company, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Empresa não encontrada")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_id", id).Error("failed to get company by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get company")
	}

	return &company, nil
}

func (r *CompanyRepository) List(ctx context.Context) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "CompanyRepository.List")
	defer span.End()

	sb := companyStruct.SelectFrom(companiesTable)
	sb.OrderBy("name")

	query, args := sb.Build()
	companies := []models.Company{}
	if err := r.Q(ctx).SelectContext(ctx, &companies, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list companies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list companies")
	}

	return companies, nil
}

func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	ctx, span := tracing.StartSpan(ctx, "CompanyRepository.Update")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(companiesTable).
		Set(
			ub.Assign("name", company.Name),
			ub.Assign("email", company.Email),
			ub.Assign("cnpj", company.CNPJ),
			ub.Assign("phone", company.Phone),
			ub.Assign("address", company.Address),
			ub.Assign("city", company.City),
			ub.Assign("state", company.State),
			ub.Assign("zip_code", company.ZipCode),
			ub.Assign("logo", company.Logo),
			ub.Assign("active", company.Active),
			ub.Assign("updated_at", database.Now()),
		).
		Where(ub.Equal("id", company.ID))
	ub.SQL("RETURNING created_at, updated_at")

	query, args := ub.Build()
	err := r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&company.CreatedAt, &company.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusNotFound, "Empresa não encontrada")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_id", company.ID).Error("failed to update company")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update company")
	}

	return nil
}

// Deactivate soft deletes a company. Its members lose access through the tenant guard.
func (r *CompanyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "CompanyRepository.Deactivate")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(companiesTable).
		Set(ub.Assign("active", false), ub.Assign("updated_at", database.Now())).
		Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_id", id).Error("failed to deactivate company")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate company")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate company")
	}
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "Empresa não encontrada")
	}

	r.logger.WithContext(ctx).WithField("company_id", id).Info("Company deactivated")
	return nil
}

// Counts sizes a company: its users, active clients and cases
func (r *CompanyRepository) Counts(ctx context.Context, id uuid.UUID) (*models.CompanyCounts, error) {
	ctx, span := tracing.StartSpan(ctx, "CompanyRepository.Counts")
	defer span.End()

	query := `SELECT
		(SELECT COUNT(*) FROM users WHERE company_id = $1) AS users,
		(SELECT COUNT(*) FROM clients WHERE company_id = $1 AND active) AS clients,
		(SELECT COUNT(*) FROM cases WHERE company_id = $1) AS cases`

	var counts models.CompanyCounts
	if err := r.Q(ctx).GetContext(ctx, &counts, query, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_id", id).Error("failed to count company records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get company")
	}

	return &counts, nil
}
