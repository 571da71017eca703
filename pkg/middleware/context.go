package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/advwell/pkg/context"
)

const (
	// HeaderCompanyID is the header key for the company (tenant) ID
	HeaderCompanyID = "X-Company-ID"
	// HeaderUserID is the header key for user ID
	HeaderUserID = "X-User-ID"
	// HeaderUserRole is the header key for the user role
	HeaderUserRole = "X-User-Role"
)

// Context seeds the request context with request metadata. When trustHeaders
// is set (authentication disabled) identity is also read from X-Company-ID,
// X-User-ID and X-User-Role.
func Context(trustHeaders bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := req.Context()
			ctx = appctx.SetRequestID(ctx, requestID)
			ctx = appctx.SetMethod(ctx, req.Method)
			ctx = appctx.SetRoute(ctx, req.URL.Path)
			ctx = appctx.SetRemoteIP(ctx, c.RealIP())

			if trustHeaders {
				ctx = appctx.SetTenantID(ctx, req.Header.Get(HeaderCompanyID))
				ctx = appctx.SetUserID(ctx, req.Header.Get(HeaderUserID))
				ctx = appctx.SetRole(ctx, req.Header.Get(HeaderUserRole))
			}

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
