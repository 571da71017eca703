package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/advwell/pkg/database"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

const financialTable = "financial_transactions"

var financialStruct = database.NewStruct(new(models.FinancialTransaction))

// FinancialFilter narrows transaction listings
type FinancialFilter struct {
	models.ListParams
	ClientID *uuid.UUID
	CaseID   *uuid.UUID
	Type     models.TransactionType
}

// SummaryFilter narrows the totals of GET /financial/summary. Dates are inclusive.
type SummaryFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	ClientID  *uuid.UUID
	CaseID    *uuid.UUID
}

// FinancialPage is a page of transactions plus totals over the whole filtered set
type FinancialPage struct {
	models.Page[models.FinancialTransaction]
	Summary models.FinancialSummary `json:"summary"`
}

type FinancialRepository struct {
	*Repository
}

func NewFinancialRepository(db database.DB, logger ectologger.Logger) *FinancialRepository {
	return &FinancialRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *FinancialRepository) Create(ctx context.Context, t *models.FinancialTransaction) error {
	ctx, span := tracing.StartSpan(ctx, "FinancialRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	t.CompanyID = tenantID

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(financialTable).
		Cols("id", "company_id", "client_id", "case_id", "type", "description", "amount", "date", "created_at", "updated_at").
		Values(t.ID, t.CompanyID, t.ClientID, t.CaseID, t.Type, t.Description, t.Amount, t.Date, database.Now(), database.Now()).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	if err := r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("transaction_id", t.ID).Error("failed to create transaction")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create transaction")
	}

	return nil
}

func (r *FinancialRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FinancialTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "FinancialRepository.GetByID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := financialStruct.SelectFrom(financialTable)
	sb.Where(sb.Equal("company_id", tenantID), sb.Equal("id", id))

	query, args := sb.Build()
	var t models.FinancialTransaction
	err = r.Q(ctx).GetContext(ctx, &t, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Transação não encontrada")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("transaction_id", id).Error("failed to get transaction")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get transaction")
	}

	return &t, nil
}

func applyFinancialFilter(sb *database.SelectBuilder, tenantID uuid.UUID, filter FinancialFilter) {
	sb.Where(sb.Equal("company_id", tenantID))
	if filter.ClientID != nil {
		sb.Where(sb.Equal("client_id", *filter.ClientID))
	}
	if filter.CaseID != nil {
		sb.Where(sb.Equal("case_id", *filter.CaseID))
	}
	if filter.Type != "" {
		sb.Where(sb.Equal("type", filter.Type))
	}
	if filter.Search != "" {
		sb.Where(sb.Contains(filter.Search, "description"))
	}
}

// List returns a page of transactions, most recent date first, with totals
// computed over every row matching the filter.
func (r *FinancialRepository) List(ctx context.Context, filter FinancialFilter) (*FinancialPage, error) {
	ctx, span := tracing.StartSpan(ctx, "FinancialRepository.List")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}
	filter.ListParams = filter.ListParams.Normalize()

	cb := database.NewSelectBuilder()
	cb.Select(
		"COUNT(*) AS total",
		"COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount ELSE 0 END), 0) AS total_income",
		"COALESCE(SUM(CASE WHEN type = 'EXPENSE' THEN amount ELSE 0 END), 0) AS total_expense",
	).From(financialTable)
	applyFinancialFilter(cb, tenantID, filter)

	query, args := cb.Build()
	var totals struct {
		Total int `db:"total"`
		models.FinancialSummary
	}
	if err := r.Q(ctx).GetContext(ctx, &totals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to summarize transactions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list transactions")
	}

	sb := financialStruct.SelectFrom(financialTable)
	applyFinancialFilter(sb, tenantID, filter)
	sb.OrderBy("date").Desc()
	sb.Page(filter.Page, filter.Limit)

	query, args = sb.Build()
	transactions := []models.FinancialTransaction{}
	if err := r.Q(ctx).SelectContext(ctx, &transactions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list transactions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list transactions")
	}

	summary := totals.FinancialSummary
	summary.Balance = summary.TotalIncome - summary.TotalExpense

	return &FinancialPage{
		Page: models.Page[models.FinancialTransaction]{
			Data:       transactions,
			Pagination: models.NewPagination(filter.ListParams, totals.Total),
		},
		Summary: summary,
	}, nil
}

func (r *FinancialRepository) Update(ctx context.Context, t *models.FinancialTransaction) error {
	ctx, span := tracing.StartSpan(ctx, "FinancialRepository.Update")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(financialTable).
		Set(
			ub.Assign("client_id", t.ClientID),
			ub.Assign("case_id", t.CaseID),
			ub.Assign("type", t.Type),
			ub.Assign("description", t.Description),
			ub.Assign("amount", t.Amount),
			ub.Assign("date", t.Date),
			ub.Assign("updated_at", database.Now()),
		).
		Where(ub.Equal("company_id", tenantID), ub.Equal("id", t.ID))
	ub.SQL("RETURNING updated_at")

	query, args := ub.Build()
	err = r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusNotFound, "Transação não encontrada")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("transaction_id", t.ID).Error("failed to update transaction")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update transaction")
	}

	return nil
}

func (r *FinancialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "FinancialRepository.Delete")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom(financialTable).Where(db.Equal("company_id", tenantID), db.Equal("id", id))

	query, args := db.Build()
	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("transaction_id", id).Error("failed to delete transaction")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete transaction")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete transaction")
	}
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "Transação não encontrada")
	}

	return nil
}

// Summary totals income and expense, with per-type counts, over the filter
func (r *FinancialRepository) Summary(ctx context.Context, filter SummaryFilter) (*models.FinancialTotals, error) {
	ctx, span := tracing.StartSpan(ctx, "FinancialRepository.Summary")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := database.NewSelectBuilder()
	sb.Select(
		"COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount ELSE 0 END), 0) AS total_income",
		"COALESCE(SUM(CASE WHEN type = 'EXPENSE' THEN amount ELSE 0 END), 0) AS total_expense",
		"COUNT(*) AS total_transactions",
		"COUNT(*) FILTER (WHERE type = 'INCOME') AS income_transactions",
		"COUNT(*) FILTER (WHERE type = 'EXPENSE') AS expense_transactions",
	).From(financialTable)
	sb.Where(sb.Equal("company_id", tenantID))
	if filter.StartDate != nil {
		sb.Where(sb.GreaterEqualThan("date", *filter.StartDate))
	}
	if filter.EndDate != nil {
		sb.Where(sb.LessEqualThan("date", *filter.EndDate))
	}
	if filter.ClientID != nil {
		sb.Where(sb.Equal("client_id", *filter.ClientID))
	}
	if filter.CaseID != nil {
		sb.Where(sb.Equal("case_id", *filter.CaseID))
	}

	query, args := sb.Build()
	var totals models.FinancialTotals
	if err := r.Q(ctx).GetContext(ctx, &totals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to summarize transactions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to summarize transactions")
	}
	totals.Balance = totals.TotalIncome - totals.TotalExpense

	return &totals, nil
}

// Export returns every transaction matching the filter, newest first, with the
// client and process number joined in. Search also matches client name and cpf.
func (r *FinancialRepository) Export(ctx context.Context, filter FinancialFilter) ([]models.FinancialExportRow, error) {
	ctx, span := tracing.StartSpan(ctx, "FinancialRepository.Export")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := database.NewSelectBuilder()
	sb.Select(
		"financial_transactions.date",
		"financial_transactions.type",
		"clients.name AS client_name",
		"clients.cpf AS client_cpf",
		"financial_transactions.description",
		"cases.process_number",
		"financial_transactions.amount",
	).From(financialTable).
		Join(clientsTable, "clients.id = financial_transactions.client_id").
		JoinWithOption(sqlbuilder.LeftJoin, casesTable, "cases.id = financial_transactions.case_id")

	sb.Where(sb.Equal("financial_transactions.company_id", tenantID))
	if filter.ClientID != nil {
		sb.Where(sb.Equal("financial_transactions.client_id", *filter.ClientID))
	}
	if filter.CaseID != nil {
		sb.Where(sb.Equal("financial_transactions.case_id", *filter.CaseID))
	}
	if filter.Type != "" {
		sb.Where(sb.Equal("financial_transactions.type", filter.Type))
	}
	if filter.Search != "" {
		sb.Where(sb.Contains(filter.Search, "financial_transactions.description", "clients.name", "COALESCE(clients.cpf, '')"))
	}
	sb.OrderBy("financial_transactions.date").Desc()

	query, args := sb.Build()
	rows := []models.FinancialExportRow{}
	if err := r.Q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to export transactions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to export transactions")
	}

	return rows, nil
}
