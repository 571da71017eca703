package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/advwell/pkg/casesync"
	"github.com/Ramsey-B/advwell/pkg/datajud"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/repositories"
	"github.com/Ramsey-B/advwell/pkg/tracing"
	"github.com/Ramsey-B/advwell/pkg/validation"
)

// CaseSynchronizer is the part of casesync the case routes use
type CaseSynchronizer interface {
	Lookup(ctx context.Context, processNumber string) *datajud.SearchResult
	Reconcile(ctx context.Context, c *models.Case, result *datajud.SearchResult, trigger casesync.Trigger) (*casesync.SyncResult, error)
	Sync(ctx context.Context, caseID uuid.UUID, trigger casesync.Trigger) (*casesync.SyncResult, error)
}

// CaseHandler handles case API requests for the tenant on the request
type CaseHandler struct {
	cases     repositories.CaseRepo
	clients   repositories.ClientRepo
	movements repositories.MovementRepo
	syncer    CaseSynchronizer
	logger    ectologger.Logger
}

func NewCaseHandler(
	cases repositories.CaseRepo,
	clients repositories.ClientRepo,
	movements repositories.MovementRepo,
	syncer CaseSynchronizer,
	logger ectologger.Logger,
) *CaseHandler {
	return &CaseHandler{
		cases:     cases,
		clients:   clients,
		movements: movements,
		syncer:    syncer,
		logger:    logger,
	}
}

type CreateCaseRequest struct {
	ClientID        uuid.UUID `json:"clientId" validate:"required"`
	ProcessNumber   string    `json:"processNumber" validate:"required"`
	Court           string    `json:"court"`
	Subject         string    `json:"subject"`
	Value           *float64  `json:"value" validate:"omitempty,gte=0"`
	Notes           *string   `json:"notes"`
	LinkProcesso    *string   `json:"linkProcesso" validate:"omitempty,url"`
	InformarCliente *string   `json:"informarCliente"`
}

type UpdateCaseRequest struct {
	Court           *string            `json:"court"`
	Subject         *string            `json:"subject"`
	Value           *float64           `json:"value" validate:"omitempty,gte=0"`
	Status          *models.CaseStatus `json:"status" validate:"omitempty,oneof=ACTIVE ARCHIVED FINISHED"`
	Notes           *string            `json:"notes"`
	LinkProcesso    *string            `json:"linkProcesso" validate:"omitempty,url"`
	InformarCliente *string            `json:"informarCliente"`
}

func (h *CaseHandler) RegisterRoutes(g *echo.Group) {
	cases := g.Group("/cases")
	cases.POST("", h.Create)
	cases.GET("", h.List)
	cases.GET("/updates", h.Updates)
	cases.GET("/:id", h.Get)
	cases.PUT("/:id", h.Update)
	cases.POST("/:id/sync", h.Sync)
	cases.POST("/:id/acknowledge", h.Acknowledge)
}

// Create handles POST /cases. DataJud enrichment is best-effort: the case is
// created with the submitted fields whatever the lookup returns.
func (h *CaseHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CaseHandler.Create")
	defer span.End()

	req, err := validation.BindRequest[CreateCaseRequest](c)
	if err != nil {
		return err
	}

	client, err := h.clients.GetByID(ctx, req.ClientID)
	if err != nil {
		return err
	}

	caseData := &models.Case{
		ClientID:        client.ID,
		ProcessNumber:   req.ProcessNumber,
		Court:           req.Court,
		Subject:         req.Subject,
		Value:           req.Value,
		Notes:           req.Notes,
		LinkProcesso:    req.LinkProcesso,
		InformarCliente: req.InformarCliente,
		Status:          models.CaseStatusActive,
	}

	lookup := h.syncer.Lookup(ctx, req.ProcessNumber)
	casesync.ApplyRecord(caseData, lookup)

	if err := h.cases.Create(ctx, caseData); err != nil {
		return err
	}

	if lookup != nil {
		if _, err := h.syncer.Reconcile(ctx, caseData, lookup, casesync.TriggerCreate); err != nil {
			h.logger.WithContext(ctx).WithError(err).WithField("case_id", caseData.ID).Warn("failed to store DataJud movements for new case")
		}
	}

	created, err := h.loadCase(ctx, caseData.ID)
	if err != nil {
		return err
	}
	created.Client = client
	return CreatedResponse(c, created)
}

// List handles GET /cases
func (h *CaseHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CaseHandler.List")
	defer span.End()

	params, err := listParams(c)
	if err != nil {
		return err
	}
	clientID, err := parseOptionalUUID(c, "clientId")
	if err != nil {
		return err
	}

	filter := repositories.CaseFilter{
		ListParams: params,
		Status:     models.CaseStatus(c.QueryParam("status")),
		ClientID:   clientID,
	}

	page, err := h.cases.List(ctx, filter)
	if err != nil {
		return err
	}
	return SuccessResponse(c, page)
}

// Get handles GET /cases/:id
func (h *CaseHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CaseHandler.Get")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	caseData, err := h.loadCase(ctx, id)
	if err != nil {
		return err
	}

	client, err := h.clients.GetByID(ctx, caseData.ClientID)
	if err == nil {
		caseData.Client = client
	}

	return SuccessResponse(c, caseData)
}

// Update handles PUT /cases/:id
func (h *CaseHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CaseHandler.Update")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := validation.BindRequest[UpdateCaseRequest](c)
	if err != nil {
		return err
	}

	caseData, err := h.cases.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.Court != nil {
		caseData.Court = *req.Court
	}
	if req.Subject != nil {
		caseData.Subject = *req.Subject
	}
	if req.Value != nil {
		caseData.Value = req.Value
	}
	if req.Status != nil {
		caseData.Status = *req.Status
	}
	if req.Notes != nil {
		caseData.Notes = req.Notes
	}
	if req.LinkProcesso != nil {
		caseData.LinkProcesso = req.LinkProcesso
	}
	if req.InformarCliente != nil {
		caseData.InformarCliente = req.InformarCliente
	}

	if err := h.cases.Update(ctx, caseData); err != nil {
		return err
	}
	return SuccessResponse(c, caseData)
}

// Sync handles POST /cases/:id/sync
func (h *CaseHandler) Sync(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CaseHandler.Sync")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.syncer.Sync(ctx, id, casesync.TriggerManual); err != nil {
		return err
	}

	caseData, err := h.loadCase(ctx, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, caseData)
}

// Updates handles GET /cases/updates
func (h *CaseHandler) Updates(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CaseHandler.Updates")
	defer span.End()

	cases, err := h.cases.ListPendingUpdates(ctx)
	if err != nil {
		return err
	}
	return SuccessResponse(c, cases)
}

// Acknowledge handles POST /cases/:id/acknowledge
func (h *CaseHandler) Acknowledge(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CaseHandler.Acknowledge")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.cases.Acknowledge(ctx, id); err != nil {
		return err
	}
	return NoContentResponse(c)
}

// loadCase reads a case with its movements, newest first
func (h *CaseHandler) loadCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	caseData, err := h.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	movements, err := h.movements.ListByCase(ctx, id)
	if err != nil {
		return nil, err
	}
	caseData.Movements = movements
	return caseData, nil
}
