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

const clientsTable = "clients"

var clientStruct = database.NewStruct(new(models.Client))

// ClientRepository handles the company's clients. Deleted clients stay in
// the table with active=false and are invisible to every read.
type ClientRepository struct {
	*Repository
}

func NewClientRepository(db database.DB, logger ectologger.Logger) *ClientRepository {
	return &ClientRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	ctx, span := tracing.StartSpan(ctx, "ClientRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	client.CompanyID = tenantID
	client.Active = true

	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(clientsTable).
		Cols("id", "company_id", "name", "cpf", "email", "phone", "address", "active", "created_at", "updated_at").
		Values(client.ID, client.CompanyID, client.Name, client.CPF, client.Email, client.Phone, client.Address, client.Active,
			database.Now(), database.Now()).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err = r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"client_id": client.ID,
		}).Error("failed to create client")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create client")
	}

	r.logger.WithContext(ctx).WithField("client_id", client.ID).Debugf("Created %s", clientsTable)
	return nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	ctx, span := tracing.StartSpan(ctx, "ClientRepository.GetByID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := clientStruct.SelectFrom(clientsTable)
	sb.Where(sb.Equal("company_id", tenantID), sb.Equal("id", id), sb.Equal("active", true))

	query, args := sb.Build()
	var client models.Client
	err = r.Q(ctx).GetContext(ctx, &client, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Cliente não encontrado")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("client_id", id).Error("failed to get client by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get client")
	}

	return &client, nil
}

// ListByIDs loads the given clients of the tenant, including inactive ones
func (r *ClientRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Client, error) {
	ctx, span := tracing.StartSpan(ctx, "ClientRepository.ListByIDs")
	defer span.End()

	clients := []models.Client{}
	if len(ids) == 0 {
		return clients, nil
	}

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := clientStruct.SelectFrom(clientsTable)
	sb.Where(sb.Equal("company_id", tenantID), sb.In("id", toArgs(ids)...))

	query, args := sb.Build()
	if err := r.Q(ctx).SelectContext(ctx, &clients, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("client_count", len(ids)).Error("failed to list clients by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list clients")
	}

	return clients, nil
}

// List returns a page of active clients ordered by name. Search matches name, cpf or email.
func (r *ClientRepository) List(ctx context.Context, params models.ListParams) (*models.Page[models.Client], error) {
	ctx, span := tracing.StartSpan(ctx, "ClientRepository.List")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}
	params = params.Normalize()

	filter := func(sb *database.SelectBuilder) {
		sb.Where(sb.Equal("company_id", tenantID), sb.Equal("active", true))
		if params.Search != "" {
			sb.Where(sb.Contains(params.Search, "name", "COALESCE(cpf, '')", "COALESCE(email, '')"))
		}
	}

	cb := database.NewSelectBuilder()
	cb.Select("COUNT(*)").From(clientsTable)
	filter(cb)

	query, args := cb.Build()
	var total int
	if err := r.Q(ctx).GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count clients")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list clients")
	}

	sb := clientStruct.SelectFrom(clientsTable)
	filter(sb)
	sb.OrderBy("name")
	sb.Page(params.Page, params.Limit)

	query, args = sb.Build()
	clients := []models.Client{}
	if err := r.Q(ctx).SelectContext(ctx, &clients, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list clients")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list clients")
	}

	return &models.Page[models.Client]{
		Data:       clients,
		Pagination: models.NewPagination(params, total),
	}, nil
}

func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	ctx, span := tracing.StartSpan(ctx, "ClientRepository.Update")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(clientsTable).
		Set(
			ub.Assign("name", client.Name),
			ub.Assign("cpf", client.CPF),
			ub.Assign("email", client.Email),
			ub.Assign("phone", client.Phone),
			ub.Assign("address", client.Address),
			ub.Assign("updated_at", database.Now()),
		).
		Where(ub.Equal("company_id", tenantID), ub.Equal("id", client.ID), ub.Equal("active", true))
	ub.SQL("RETURNING updated_at")

	query, args := ub.Build()
	err = r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&client.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusNotFound, "Cliente não encontrado")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("client_id", client.ID).Error("failed to update client")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update client")
	}

	return nil
}

// Deactivate soft deletes a client
func (r *ClientRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "ClientRepository.Deactivate")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(clientsTable).
		Set(ub.Assign("active", false), ub.Assign("updated_at", database.Now())).
		Where(ub.Equal("company_id", tenantID), ub.Equal("id", id), ub.Equal("active", true))

	query, args := ub.Build()
	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("client_id", id).Error("failed to delete client")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete client")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("client_id", id).Error("failed to delete client")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete client")
	}
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "Cliente não encontrado")
	}

	r.logger.WithContext(ctx).WithField("client_id", id).Debugf("Deactivated %s", clientsTable)
	return nil
}
