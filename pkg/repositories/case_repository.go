package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/advwell/pkg/database"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

const casesTable = "cases"

var caseStruct = database.NewStruct(new(models.Case))

// CaseFilter narrows case listings
type CaseFilter struct {
	models.ListParams
	Status   models.CaseStatus `query:"status"`
	ClientID *uuid.UUID
}

// CaseRepository handles cases. Every method except ListActive is tenant scoped.
type CaseRepository struct {
	*Repository
}

func NewCaseRepository(db database.DB, logger ectologger.Logger) *CaseRepository {
	return &CaseRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create inserts a case. A process number already used by any company is a 400.
func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	ctx, span := tracing.StartSpan(ctx, "CaseRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	c.CompanyID = tenantID

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.CaseStatusActive
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(casesTable).
		Cols("id", "company_id", "client_id", "process_number", "court", "subject", "value", "status", "notes",
			"ultimo_andamento", "informar_cliente", "link_processo", "pending_update", "created_at", "updated_at").
		Values(c.ID, c.CompanyID, c.ClientID, c.ProcessNumber, c.Court, c.Subject, c.Value, c.Status, c.Notes,
			c.UltimoAndamento, c.InformarCliente, c.LinkProcesso, false, database.Now(), database.Now())
	ib.OnConflictDoNothing()
	ib.Returning("created_at", "updated_at")

	query, args := ib.Build()
	err = r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusBadRequest, "Número de processo já cadastrado")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"case_id":        c.ID,
			"process_number": c.ProcessNumber,
		}).Error("failed to create case")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create case")
	}

	r.logger.WithContext(ctx).WithField("case_id", c.ID).Debugf("Created %s", casesTable)
	return nil
}

// GetByID loads a case of the tenant on ctx
func (r *CaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	ctx, span := tracing.StartSpan(ctx, "CaseRepository.GetByID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := caseStruct.SelectFrom(casesTable)
	sb.Where(sb.Equal("company_id", tenantID), sb.Equal("id", id))

	query, args := sb.Build()
	var c models.Case
	err = r.Q(ctx).GetContext(ctx, &c, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Processo não encontrado")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("case_id", id).Error("failed to get case by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get case")
	}

	return &c, nil
}

func applyCaseFilter(sb *database.SelectBuilder, tenantID uuid.UUID, filter CaseFilter) {
	sb.Where(sb.Equal("cases.company_id", tenantID))
	if filter.Status != "" {
		sb.Where(sb.Equal("cases.status", filter.Status))
	}
	if filter.ClientID != nil {
		sb.Where(sb.Equal("cases.client_id", *filter.ClientID))
	}
	if filter.Search != "" {
		sb.Where(sb.Contains(filter.Search, "cases.process_number", "cases.subject", "clients.name"))
	}
}

// List returns a page of cases, newest first. Search matches process number,
// subject or client name.
func (r *CaseRepository) List(ctx context.Context, filter CaseFilter) (*models.Page[models.Case], error) {
	ctx, span := tracing.StartSpan(ctx, "CaseRepository.List")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}
	filter.ListParams = filter.ListParams.Normalize()

	cb := database.NewSelectBuilder()
	cb.Select("COUNT(*)").From(casesTable).
		JoinWithOption(sqlbuilder.LeftJoin, clientsTable, "clients.id = cases.client_id")
	applyCaseFilter(cb, tenantID, filter)

	query, args := cb.Build()
	var total int
	if err := r.Q(ctx).GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count cases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list cases")
	}

	sb := caseStruct.SelectFrom(casesTable)
	sb.JoinWithOption(sqlbuilder.LeftJoin, clientsTable, "clients.id = cases.client_id")
	applyCaseFilter(sb, tenantID, filter)
	sb.OrderBy("cases.created_at").Desc()
	sb.Page(filter.Page, filter.Limit)

	query, args = sb.Build()
	cases := []models.Case{}
	if err := r.Q(ctx).SelectContext(ctx, &cases, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list cases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list cases")
	}

	return &models.Page[models.Case]{
		Data:       cases,
		Pagination: models.NewPagination(filter.ListParams, total),
	}, nil
}

// ListPendingUpdates returns cases whose last sync changed their movements
func (r *CaseRepository) ListPendingUpdates(ctx context.Context) ([]models.Case, error) {
	ctx, span := tracing.StartSpan(ctx, "CaseRepository.ListPendingUpdates")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := caseStruct.SelectFrom(casesTable)
	sb.Where(sb.Equal("company_id", tenantID), sb.Equal("pending_update", true))
	sb.OrderBy("last_synced_at").Desc()

	query, args := sb.Build()
	cases := []models.Case{}
	if err := r.Q(ctx).SelectContext(ctx, &cases, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list pending case updates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list case updates")
	}

	return cases, nil
}

// ListActive returns every ACTIVE case across all companies
func (r *CaseRepository) ListActive(ctx context.Context) ([]models.Case, error) {
	ctx, span := tracing.StartSpan(ctx, "CaseRepository.ListActive")
	defer span.End()

	sb := caseStruct.SelectFrom(casesTable)
	sb.Where(sb.Equal("status", models.CaseStatusActive))
	sb.OrderBy("last_synced_at").Asc()

	query, args := sb.Build()
	cases := []models.Case{}
	if err := r.Q(ctx).SelectContext(ctx, &cases, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list active cases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list active cases")
	}

	r.logger.WithContext(ctx).WithField("case_count", len(cases)).Debug("Listed active cases")
	return cases, nil
}

// Update writes the user-editable fields of a case
func (r *CaseRepository) Update(ctx context.Context, c *models.Case) error {
	ctx, span := tracing.StartSpan(ctx, "CaseRepository.Update")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(casesTable).
		Set(
			ub.Assign("court", c.Court),
			ub.Assign("subject", c.Subject),
			ub.Assign("value", c.Value),
			ub.Assign("status", c.Status),
			ub.Assign("notes", c.Notes),
			ub.Assign("informar_cliente", c.InformarCliente),
			ub.Assign("link_processo", c.LinkProcesso),
			ub.Assign("updated_at", database.Now()),
		).
		Where(ub.Equal("company_id", tenantID), ub.Equal("id", c.ID))
	ub.SQL("RETURNING updated_at")

	query, args := ub.Build()
	err = r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusNotFound, "Processo não encontrado")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("case_id", c.ID).Error("failed to update case")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update case")
	}

	return nil
}

// Acknowledge clears the pending update flag
func (r *CaseRepository) Acknowledge(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "CaseRepository.Acknowledge")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(casesTable).
		Set(ub.Assign("pending_update", false)).
		Where(ub.Equal("company_id", tenantID), ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("case_id", id).Error("failed to acknowledge case update")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to acknowledge case update")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to acknowledge case update")
	}
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "Processo não encontrado")
	}

	return nil
}

// Stamp records the outcome of a sync on the case row. It is meant to run in
// the transaction that replaced the movements. pending_update is only ever
// raised here; clearing it is Acknowledge's job.
func (r *CaseRepository) Stamp(ctx context.Context, caseID uuid.UUID, stamp models.CaseSyncStamp) error {
	ctx, span := tracing.StartSpan(ctx, "CaseRepository.Stamp")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(casesTable).
		Set(
			ub.Assign("last_synced_at", stamp.SyncedAt),
			ub.Assign("ultimo_andamento", stamp.UltimoAndamento),
			ub.Assign("movements_fingerprint", stamp.Fingerprint),
			fmt.Sprintf("pending_update = pending_update OR %s", ub.Var(stamp.MarkPending)),
			ub.Assign("updated_at", database.Now()),
		).
		Where(ub.Equal("id", caseID))

	query, args := ub.Build()
	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("case_id", caseID).Error("failed to stamp case sync")
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
