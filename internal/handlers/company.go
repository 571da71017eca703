package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/repositories"
	"github.com/Ramsey-B/advwell/pkg/tracing"
	"github.com/Ramsey-B/advwell/pkg/validation"
)

// CompanyHandler manages tenants. SUPER_ADMIN manages every company; an
// ADMIN reads and edits their own through /companies/own.
type CompanyHandler struct {
	repo repositories.CompanyRepo
}

func NewCompanyHandler(repo repositories.CompanyRepo) *CompanyHandler {
	return &CompanyHandler{repo: repo}
}

type CreateCompanyRequest struct {
	Name  string  `json:"name" validate:"required"`
	Email *string `json:"email" validate:"omitempty,email"`
	CNPJ  *string `json:"cnpj"`
}

type UpdateCompanyRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Active *bool   `json:"active"`
}

// UpdateOwnCompanyRequest carries the settings an ADMIN may change
type UpdateOwnCompanyRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	State   *string `json:"state" validate:"omitempty,len=2"`
	ZipCode *string `json:"zipCode"`
	Logo    *string `json:"logo" validate:"omitempty,url"`
}

// RegisterRoutes mounts /companies. /own is declared before /:id.
func (h *CompanyHandler) RegisterRoutes(g *echo.Group, superAdmin, admin echo.MiddlewareFunc) {
	companies := g.Group("/companies")
	companies.GET("/own", h.GetOwn, admin)
	companies.PUT("/own", h.UpdateOwn, admin)

	companies.GET("", h.List, superAdmin)
	companies.POST("", h.Create, superAdmin)
	companies.GET("/:id", h.Get, superAdmin)
	companies.PUT("/:id", h.Update, superAdmin)
	companies.DELETE("/:id", h.Delete, superAdmin)
}

// List handles GET /companies
func (h *CompanyHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CompanyHandler.List")
	defer span.End()

	companies, err := h.repo.List(ctx)
	if err != nil {
		return err
	}
	return SuccessResponse(c, companies)
}

// Get handles GET /companies/:id
func (h *CompanyHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CompanyHandler.Get")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	company, err := h.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, company)
}

// Create handles POST /companies
func (h *CompanyHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CompanyHandler.Create")
	defer span.End()

	req, err := validation.BindRequest[CreateCompanyRequest](c)
	if err != nil {
		return err
	}

	company := &models.Company{
		Name:   req.Name,
		Email:  req.Email,
		CNPJ:   req.CNPJ,
		Active: true,
	}
	if err := h.repo.Create(ctx, company); err != nil {
		return err
	}
	return CreatedResponse(c, company)
}

// Update handles PUT /companies/:id
func (h *CompanyHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CompanyHandler.Update")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := validation.BindRequest[UpdateCompanyRequest](c)
	if err != nil {
		return err
	}

	company, err := h.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.Email != nil {
		company.Email = req.Email
	}
	if req.Active != nil {
		company.Active = *req.Active
	}

	if err := h.repo.Update(ctx, company); err != nil {
		return err
	}
	return SuccessResponse(c, company)
}

// Delete handles DELETE /companies/:id. Companies are deactivated, never removed.
func (h *CompanyHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CompanyHandler.Delete")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	return NoContentResponse(c)
}

// GetOwn handles GET /companies/own
func (h *CompanyHandler) GetOwn(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CompanyHandler.GetOwn")
	defer span.End()

	companyID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return err
	}

	company, err := h.repo.FindByID(ctx, companyID)
	if err != nil {
		return err
	}
	counts, err := h.repo.Counts(ctx, companyID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, models.CompanyWithCounts{Company: *company, Count: *counts})
}

// UpdateOwn handles PUT /companies/own. Active cannot be changed here.
func (h *CompanyHandler) UpdateOwn(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CompanyHandler.UpdateOwn")
	defer span.End()

	companyID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[UpdateOwnCompanyRequest](c)
	if err != nil {
		return err
	}

	company, err := h.repo.FindByID(ctx, companyID)
	if err != nil {
		return err
	}
	if req.Name != nil {
		company.Name = *req.Name
	}
	setIfPresent(&company.Email, req.Email)
	setIfPresent(&company.Phone, req.Phone)
	setIfPresent(&company.Address, req.Address)
	setIfPresent(&company.City, req.City)
	setIfPresent(&company.State, req.State)
	setIfPresent(&company.ZipCode, req.ZipCode)
	setIfPresent(&company.Logo, req.Logo)

	if err := h.repo.Update(ctx, company); err != nil {
		return err
	}
	return SuccessResponse(c, company)
}

func setIfPresent(dst **string, value *string) {
	if value != nil {
		*dst = value
	}
}
