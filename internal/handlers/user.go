package handlers

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/repositories"
	"github.com/Ramsey-B/advwell/pkg/tracing"
	"github.com/Ramsey-B/advwell/pkg/validation"
)

// UserHandler lets a company ADMIN manage the company's users. New users
// are always USER; administrators cannot be edited or deactivated here.
type UserHandler struct {
	users repositories.UserRepo
}

func NewUserHandler(users repositories.UserRepo) *UserHandler {
	return &UserHandler{users: users}
}

type CreateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type UpdateUserRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Active *bool   `json:"active"`
}

func (h *UserHandler) RegisterRoutes(g *echo.Group, mw ...echo.MiddlewareFunc) {
	users := g.Group("/users", mw...)
	users.GET("", h.List)
	users.POST("", h.Create)
	users.PUT("/:id", h.Update)
	users.DELETE("/:id", h.Delete)
}

// List handles GET /users
func (h *UserHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "UserHandler.List")
	defer span.End()

	params, err := listParams(c)
	if err != nil {
		return err
	}

	page, err := h.users.List(ctx, params)
	if err != nil {
		return err
	}
	return SuccessResponse(c, page)
}

// Create handles POST /users
func (h *UserHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "UserHandler.Create")
	defer span.End()

	req, err := validation.BindRequest[CreateUserRequest](c)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  models.RoleUser,
	}
	if err := h.users.Create(ctx, user); err != nil {
		return err
	}
	return CreatedResponse(c, user)
}

// Update handles PUT /users/:id
func (h *UserHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "UserHandler.Update")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[UpdateUserRequest](c)
	if err != nil {
		return err
	}

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return httperror.NewHTTPError(http.StatusForbidden, "Não é possível alterar administradores")
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := h.users.Update(ctx, user); err != nil {
		return err
	}
	return SuccessResponse(c, user)
}

// Delete handles DELETE /users/:id by deactivating the user
func (h *UserHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "UserHandler.Delete")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return httperror.NewHTTPError(http.StatusForbidden, "Não é possível desativar administradores")
	}

	if err := h.users.Deactivate(ctx, id); err != nil {
		return err
	}
	return NoContentResponse(c)
}
