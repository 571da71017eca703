package app

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/advwell/internal/handlers"
	"github.com/Ramsey-B/advwell/pkg/middleware"
	"github.com/Ramsey-B/advwell/pkg/models"
)

// newRouter mounts the health, metrics and /api routes. Company management
// is SUPER_ADMIN only; every other /api route is scoped to the tenant.
func (a *App) newRouter(ctx context.Context) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Context(!a.cfg.AuthEnabled))
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.AllowOrigins,
		AllowMethods: a.cfg.AllowMethods,
	}))

	a.health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var auth []echo.MiddlewareFunc
	if a.cfg.AuthEnabled {
		verifier, err := middleware.NewOIDCVerifier(ctx, a.cfg.AuthIssuerURL, a.cfg.AuthClientID)
		if err != nil {
			return nil, err
		}
		auth = append(auth, middleware.Authentication(a.logger, verifier))
	}

	api := e.Group("/api", auth...)
	handlers.NewCompanyHandler(a.companies).RegisterRoutes(api,
		middleware.RequireRole(models.RoleSuperAdmin),
		middleware.RequireRole(models.RoleAdmin),
	)

	tenant := api.Group("", middleware.Tenant(a.logger, a.companies))
	handlers.NewClientHandler(a.clients, a.cases).RegisterRoutes(tenant)
	handlers.NewCaseHandler(a.cases, a.clients, a.movements, a.synchronizer, a.logger).RegisterRoutes(tenant)
	handlers.NewCasePartHandler(a.parts, a.cases).RegisterRoutes(tenant)
	handlers.NewFinancialHandler(a.financial, a.clients, a.cases).RegisterRoutes(tenant)
	handlers.NewDocumentHandler(a.documents, a.clients, a.cases).RegisterRoutes(tenant)
	handlers.NewUserHandler(a.users).RegisterRoutes(tenant, middleware.RequireRole(models.RoleAdmin))

	e.RouteNotFound("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Rota não encontrada")
	})
	return e, nil
}
