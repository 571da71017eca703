package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ramsey-B/advwell/pkg/database"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

const (
	usersTable      = "users"
	uniqueViolation = "23505"
)

var userStruct = database.NewStruct(new(models.User))

// UserRepository manages the members of the tenant. Removing a user only
// deactivates the row.
type UserRepository struct {
	*Repository
}

func NewUserRepository(db database.DB, logger ectologger.Logger) *UserRepository {
	return &UserRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create adds a user to the tenant. Emails are unique across every company.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	user.CompanyID = tenantID
	user.Active = true
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(usersTable).
		Cols("id", "company_id", "name", "email", "role", "active", "created_at", "updated_at").
		Values(user.ID, user.CompanyID, user.Name, user.Email, user.Role, user.Active, database.Now(), database.Now())
	ib.OnConflictDoNothing()
	ib.Returning("created_at", "updated_at")

	query, args := ib.Build()
	err = r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusBadRequest, "Email já cadastrado")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("user_id", user.ID).Error("failed to create user")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create user")
	}

	r.logger.WithContext(ctx).WithField("user_id", user.ID).Debugf("Created %s", usersTable)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.GetByID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := userStruct.SelectFrom(usersTable)
	sb.Where(sb.Equal("company_id", tenantID), sb.Equal("id", id))

	query, args := sb.Build()
	var user models.User
	err = r.Q(ctx).GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Usuário não encontrado")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("user_id", id).Error("failed to get user by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get user")
	}

	return &user, nil
}

// List returns a page of the tenant's users, newest first. Search matches name or email.
func (r *UserRepository) List(ctx context.Context, params models.ListParams) (*models.Page[models.User], error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.List")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}
	params = params.Normalize()

	filter := func(sb *database.SelectBuilder) {
		sb.Where(sb.Equal("company_id", tenantID))
		if params.Search != "" {
			sb.Where(sb.Contains(params.Search, "name", "email"))
		}
	}

	cb := database.NewSelectBuilder()
	cb.Select("COUNT(*)").From(usersTable)
	filter(cb)

	query, args := cb.Build()
	var total int
	if err := r.Q(ctx).GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count users")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list users")
	}

	sb := userStruct.SelectFrom(usersTable)
	filter(sb)
	sb.OrderBy("created_at").Desc()
	sb.Page(params.Page, params.Limit)

	query, args = sb.Build()
	users := []models.User{}
	if err := r.Q(ctx).SelectContext(ctx, &users, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list users")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list users")
	}

	return &models.Page[models.User]{
		Data:       users,
		Pagination: models.NewPagination(params, total),
	}, nil
}

// Update writes name, email and active. Role is never changed here.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.Update")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(usersTable).
		Set(
			ub.Assign("name", user.Name),
			ub.Assign("email", user.Email),
			ub.Assign("active", user.Active),
			ub.Assign("updated_at", database.Now()),
		).
		Where(ub.Equal("company_id", tenantID), ub.Equal("id", user.ID))
	ub.SQL("RETURNING updated_at")

	query, args := ub.Build()
	err = r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusNotFound, "Usuário não encontrado")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return httperror.NewHTTPError(http.StatusBadRequest, "Email já cadastrado")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("user_id", user.ID).Error("failed to update user")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update user")
	}

	return nil
}

func (r *UserRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.Deactivate")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(usersTable).
		Set(ub.Assign("active", false), ub.Assign("updated_at", database.Now())).
		Where(ub.Equal("company_id", tenantID), ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("user_id", id).Error("failed to deactivate user")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate user")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate user")
	}
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "Usuário não encontrado")
	}

	return nil
}
