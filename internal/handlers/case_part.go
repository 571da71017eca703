package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/repositories"
	"github.com/Ramsey-B/advwell/pkg/tracing"
	"github.com/Ramsey-B/advwell/pkg/validation"
)

// CasePartHandler manages the parties of a case. Every route first checks
// that the case belongs to the tenant.
type CasePartHandler struct {
	parts repositories.CasePartRepo
	cases repositories.CaseRepo
}

func NewCasePartHandler(parts repositories.CasePartRepo, cases repositories.CaseRepo) *CasePartHandler {
	return &CasePartHandler{parts: parts, cases: cases}
}

type CasePartRequest struct {
	Type    models.CasePartType `json:"type" validate:"required,oneof=AUTOR REU REPRESENTANTE_LEGAL"`
	Name    string              `json:"name" validate:"required"`
	CpfCnpj *string             `json:"cpfCnpj"`
	Phone   *string             `json:"phone"`
	Address *string             `json:"address"`
	Email   *string             `json:"email" validate:"omitempty,email"`
}

func (h *CasePartHandler) RegisterRoutes(g *echo.Group) {
	parts := g.Group("/cases/:id/parts")
	parts.GET("", h.List)
	parts.POST("", h.Create)
	parts.PUT("/:partId", h.Update)
	parts.DELETE("/:partId", h.Delete)
}

// List handles GET /cases/:id/parts
func (h *CasePartHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CasePartHandler.List")
	defer span.End()

	caseID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.cases.GetByID(ctx, caseID); err != nil {
		return err
	}

	parts, err := h.parts.ListByCase(ctx, caseID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, parts)
}

// Create handles POST /cases/:id/parts
func (h *CasePartHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CasePartHandler.Create")
	defer span.End()

	caseID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[CasePartRequest](c)
	if err != nil {
		return err
	}
	if _, err := h.cases.GetByID(ctx, caseID); err != nil {
		return err
	}

	part := &models.CasePart{
		CaseID:  caseID,
		Type:    req.Type,
		Name:    req.Name,
		CpfCnpj: req.CpfCnpj,
		Phone:   req.Phone,
		Address: req.Address,
		Email:   req.Email,
	}
	if err := h.parts.Create(ctx, part); err != nil {
		return err
	}
	return CreatedResponse(c, part)
}

// Update handles PUT /cases/:id/parts/:partId
func (h *CasePartHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CasePartHandler.Update")
	defer span.End()

	caseID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}
	partID, err := ParseUUID(c, "partId")
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[CasePartRequest](c)
	if err != nil {
		return err
	}
	if _, err := h.cases.GetByID(ctx, caseID); err != nil {
		return err
	}

	part := &models.CasePart{
		ID:      partID,
		CaseID:  caseID,
		Type:    req.Type,
		Name:    req.Name,
		CpfCnpj: req.CpfCnpj,
		Phone:   req.Phone,
		Address: req.Address,
		Email:   req.Email,
	}
	if err := h.parts.Update(ctx, part); err != nil {
		return err
	}
	return SuccessResponse(c, part)
}

// Delete handles DELETE /cases/:id/parts/:partId
func (h *CasePartHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CasePartHandler.Delete")
	defer span.End()

	caseID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}
	partID, err := ParseUUID(c, "partId")
	if err != nil {
		return err
	}
	if _, err := h.cases.GetByID(ctx, caseID); err != nil {
		return err
	}

	if err := h.parts.Delete(ctx, caseID, partID); err != nil {
		return err
	}
	return NoContentResponse(c)
}
