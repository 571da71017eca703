package repositories

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/Ramsey-B/advwell/pkg/context"
	"github.com/Ramsey-B/advwell/pkg/database"
)

// Repository is embedded by the company scoped repositories
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Q returns the transaction carried by ctx, or the database when there is none
func (r *Repository) Q(ctx context.Context) database.Querier {
	return database.Executor(ctx, r.db)
}

// GetTenantID returns the company the request acts for. Every scoped query
// filters on it, so a missing or malformed id is refused outright.
func GetTenantID(ctx context.Context) (uuid.UUID, error) {
	raw := appctx.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, httperror.NewHTTPError(http.StatusForbidden, "Usuário sem empresa associada")
	}

	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, httperror.NewHTTPError(http.StatusForbidden, "Empresa inválida")
	}
	return tenantID, nil
}

func toArgs[T any](values []T) []any {
	return ectolinq.Map(values, func(v T) any { return v })
}
