package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/reports"
	"github.com/Ramsey-B/advwell/pkg/repositories"
	"github.com/Ramsey-B/advwell/pkg/tracing"
	"github.com/Ramsey-B/advwell/pkg/validation"
)

// FinancialHandler handles income and expense transactions of the tenant
type FinancialHandler struct {
	transactions repositories.FinancialRepo
	clients      repositories.ClientRepo
	cases        repositories.CaseRepo
}

func NewFinancialHandler(transactions repositories.FinancialRepo, clients repositories.ClientRepo, cases repositories.CaseRepo) *FinancialHandler {
	return &FinancialHandler{transactions: transactions, clients: clients, cases: cases}
}

type CreateTransactionRequest struct {
	ClientID    uuid.UUID              `json:"clientId" validate:"required"`
	CaseID      *uuid.UUID             `json:"caseId"`
	Type        models.TransactionType `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Description string                 `json:"description" validate:"required"`
	Amount      float64                `json:"amount" validate:"gt=0"`
	Date        *time.Time             `json:"date"`
}

type UpdateTransactionRequest struct {
	ClientID    *uuid.UUID              `json:"clientId"`
	CaseID      *uuid.UUID              `json:"caseId"`
	Type        *models.TransactionType `json:"type" validate:"omitempty,oneof=INCOME EXPENSE"`
	Description *string                 `json:"description" validate:"omitempty,min=1"`
	Amount      *float64                `json:"amount" validate:"omitempty,gt=0"`
	Date        *time.Time              `json:"date"`
}

func (h *FinancialHandler) RegisterRoutes(g *echo.Group) {
	financial := g.Group("/financial")
	financial.POST("", h.Create)
	financial.GET("", h.List)
	financial.GET("/summary", h.Summary)
	financial.GET("/export/csv", h.ExportCSV)
	financial.GET("/:id", h.Get)
	financial.PUT("/:id", h.Update)
	financial.DELETE("/:id", h.Delete)
}

// Create handles POST /financial
func (h *FinancialHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "FinancialHandler.Create")
	defer span.End()

	req, err := validation.BindRequest[CreateTransactionRequest](c)
	if err != nil {
		return err
	}
	if err := h.checkOwnership(ctx, req.ClientID, req.CaseID); err != nil {
		return err
	}

	transaction := &models.FinancialTransaction{
		ClientID:    req.ClientID,
		CaseID:      req.CaseID,
		Type:        req.Type,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        time.Now().UTC(),
	}
	if req.Date != nil {
		transaction.Date = *req.Date
	}

	if err := h.transactions.Create(ctx, transaction); err != nil {
		return err
	}
	return CreatedResponse(c, transaction)
}

// List handles GET /financial
func (h *FinancialHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "FinancialHandler.List")
	defer span.End()

	params, err := listParams(c)
	if err != nil {
		return err
	}
	clientID, err := parseOptionalUUID(c, "clientId")
	if err != nil {
		return err
	}
	caseID, err := parseOptionalUUID(c, "caseId")
	if err != nil {
		return err
	}

	transactionType, err := parseTransactionType(c)
	if err != nil {
		return err
	}

	page, err := h.transactions.List(ctx, repositories.FinancialFilter{
		ListParams: params,
		ClientID:   clientID,
		CaseID:     caseID,
		Type:       transactionType,
	})
	if err != nil {
		return err
	}
	return SuccessResponse(c, page)
}

// Summary handles GET /financial/summary
func (h *FinancialHandler) Summary(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "FinancialHandler.Summary")
	defer span.End()

	var filter repositories.SummaryFilter
	var err error
	if filter.StartDate, err = parseDate(c, "startDate", false); err != nil {
		return err
	}
	if filter.EndDate, err = parseDate(c, "endDate", true); err != nil {
		return err
	}
	if filter.ClientID, err = parseOptionalUUID(c, "clientId"); err != nil {
		return err
	}
	if filter.CaseID, err = parseOptionalUUID(c, "caseId"); err != nil {
		return err
	}

	totals, err := h.transactions.Summary(ctx, filter)
	if err != nil {
		return err
	}
	return SuccessResponse(c, totals)
}

// ExportCSV handles GET /financial/export/csv. It takes the list filters
// without pagination.
func (h *FinancialHandler) ExportCSV(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "FinancialHandler.ExportCSV")
	defer span.End()

	clientID, err := parseOptionalUUID(c, "clientId")
	if err != nil {
		return err
	}
	caseID, err := parseOptionalUUID(c, "caseId")
	if err != nil {
		return err
	}
	transactionType, err := parseTransactionType(c)
	if err != nil {
		return err
	}

	rows, err := h.transactions.Export(ctx, repositories.FinancialFilter{
		ListParams: models.ListParams{Search: c.QueryParam("search")},
		ClientID:   clientID,
		CaseID:     caseID,
		Type:       transactionType,
	})
	if err != nil {
		return err
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, "attachment; filename="+reports.TransactionsFilename)
	res.WriteHeader(http.StatusOK)
	return reports.WriteTransactionsCSV(res, rows)
}

// Get handles GET /financial/:id
func (h *FinancialHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "FinancialHandler.Get")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	transaction, err := h.transactions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, transaction)
}

// Update handles PUT /financial/:id
func (h *FinancialHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "FinancialHandler.Update")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[UpdateTransactionRequest](c)
	if err != nil {
		return err
	}

	transaction, err := h.transactions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.ClientID != nil {
		transaction.ClientID = *req.ClientID
	}
	if req.CaseID != nil {
		transaction.CaseID = req.CaseID
	}
	if req.Type != nil {
		transaction.Type = *req.Type
	}
	if req.Description != nil {
		transaction.Description = *req.Description
	}
	if req.Amount != nil {
		transaction.Amount = *req.Amount
	}
	if req.Date != nil {
		transaction.Date = *req.Date
	}

	if req.ClientID != nil || req.CaseID != nil {
		if err := h.checkOwnership(ctx, transaction.ClientID, transaction.CaseID); err != nil {
			return err
		}
	}

	if err := h.transactions.Update(ctx, transaction); err != nil {
		return err
	}
	return SuccessResponse(c, transaction)
}

// Delete handles DELETE /financial/:id
func (h *FinancialHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "FinancialHandler.Delete")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.transactions.Delete(ctx, id); err != nil {
		return err
	}
	return NoContentResponse(c)
}

func parseTransactionType(c echo.Context) (models.TransactionType, error) {
	transactionType := models.TransactionType(c.QueryParam("type"))
	if transactionType != "" && transactionType != models.TransactionIncome && transactionType != models.TransactionExpense {
		return "", BadRequest("type must be INCOME or EXPENSE")
	}
	return transactionType, nil
}

// parseDate reads a YYYY-MM-DD or RFC 3339 query parameter. A bare end date
// covers that whole day.
func parseDate(c echo.Context, param string, endOfDay bool) (*time.Time, error) {
	raw := c.QueryParam(param)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: use YYYY-MM-DD", param)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// checkOwnership requires the client to belong to the tenant and the case,
// when given, to belong to that client.
func (h *FinancialHandler) checkOwnership(ctx context.Context, clientID uuid.UUID, caseID *uuid.UUID) error {
	if _, err := h.clients.GetByID(ctx, clientID); err != nil {
		return err
	}
	if caseID == nil {
		return nil
	}

	caseData, err := h.cases.GetByID(ctx, *caseID)
	if err != nil {
		return err
	}
	if caseData.ClientID != clientID {
		return BadRequest("Processo não pertence ao cliente informado")
	}
	return nil
}
