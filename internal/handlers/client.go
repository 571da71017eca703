package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/repositories"
	"github.com/Ramsey-B/advwell/pkg/tracing"
	"github.com/Ramsey-B/advwell/pkg/validation"
)

// ClientHandler handles client API requests for the tenant on the request
type ClientHandler struct {
	clients repositories.ClientRepo
	cases   repositories.CaseRepo
}

func NewClientHandler(clients repositories.ClientRepo, cases repositories.CaseRepo) *ClientHandler {
	return &ClientHandler{clients: clients, cases: cases}
}

type CreateClientRequest struct {
	Name    string  `json:"name" validate:"required"`
	CPF     *string `json:"cpf"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type UpdateClientRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1"`
	CPF     *string `json:"cpf"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (h *ClientHandler) RegisterRoutes(g *echo.Group) {
	clients := g.Group("/clients")
	clients.POST("", h.Create)
	clients.GET("", h.List)
	clients.GET("/:id", h.Get)
	clients.PUT("/:id", h.Update)
	clients.DELETE("/:id", h.Delete)
}

// Create handles POST /clients
func (h *ClientHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ClientHandler.Create")
	defer span.End()

	req, err := validation.BindRequest[CreateClientRequest](c)
	if err != nil {
		return err
	}

	client := &models.Client{
		Name:    req.Name,
		CPF:     req.CPF,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := h.clients.Create(ctx, client); err != nil {
		return err
	}
	return CreatedResponse(c, client)
}

// List handles GET /clients
func (h *ClientHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ClientHandler.List")
	defer span.End()

	params, err := listParams(c)
	if err != nil {
		return err
	}

	page, err := h.clients.List(ctx, params)
	if err != nil {
		return err
	}
	return SuccessResponse(c, page)
}

// Get handles GET /clients/:id and includes the client's most recent cases
func (h *ClientHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ClientHandler.Get")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	client, err := h.clients.GetByID(ctx, id)
	if err != nil {
		return err
	}

	cases, err := h.cases.List(ctx, repositories.CaseFilter{
		ListParams: models.ListParams{Page: 1, Limit: models.MaxLimit},
		ClientID:   &client.ID,
	})
	if err != nil {
		return err
	}
	client.Cases = cases.Data

	return SuccessResponse(c, client)
}

// Update handles PUT /clients/:id
func (h *ClientHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ClientHandler.Update")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := validation.BindRequest[UpdateClientRequest](c)
	if err != nil {
		return err
	}

	client, err := h.clients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.CPF != nil {
		client.CPF = req.CPF
	}
	if req.Email != nil {
		client.Email = req.Email
	}
	if req.Phone != nil {
		client.Phone = req.Phone
	}
	if req.Address != nil {
		client.Address = req.Address
	}

	if err := h.clients.Update(ctx, client); err != nil {
		return err
	}
	return SuccessResponse(c, client)
}

// Delete handles DELETE /clients/:id. Clients are deactivated, not removed.
func (h *ClientHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ClientHandler.Delete")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.clients.Deactivate(ctx, id); err != nil {
		return err
	}
	return NoContentResponse(c)
}
