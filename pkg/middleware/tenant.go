package middleware

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/advwell/pkg/context"
	"github.com/Ramsey-B/advwell/pkg/models"
)

// CompanyLookup loads a company without tenant scoping.
type CompanyLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

// Tenant requires a company on the request and rejects inactive or unknown
// companies with 403. SUPER_ADMIN passes without a company.
func Tenant(logger ectologger.Logger, companies CompanyLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if models.Role(appctx.GetRole(ctx)) == models.RoleSuperAdmin {
				return next(c)
			}

			companyID, err := uuid.Parse(appctx.GetTenantID(ctx))
			if err != nil {
				return httperror.NewHTTPError(http.StatusForbidden, "Usuário sem empresa associada")
			}

			company, err := companies.FindByID(ctx, companyID)
			if err != nil {
				if httperror.IsNotFound(err) {
					return httperror.NewHTTPError(http.StatusForbidden, "Empresa não encontrada")
				}
				return err
			}
			if !company.Active {
				logger.WithContext(ctx).WithField("company_id", companyID).Warn("request for inactive company")
				return httperror.NewHTTPError(http.StatusForbidden, "Empresa inativa")
			}

			return next(c)
		}
	}
}

// RequireRole rejects requests whose role is not one of roles.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := models.Role(appctx.GetRole(c.Request().Context()))
			if !ectolinq.Contains(roles, role) {
				return httperror.NewHTTPError(http.StatusForbidden, "Acesso negado")
			}
			return next(c)
		}
	}
}
