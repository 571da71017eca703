package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/advwell/pkg/context"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/repositories"
	"github.com/Ramsey-B/advwell/pkg/tracing"
	"github.com/Ramsey-B/advwell/pkg/validation"
)

const documentsDefaultLimit = 50

// DocumentHandler manages document references attached to a client or a case
type DocumentHandler struct {
	documents repositories.DocumentRepo
	clients   repositories.ClientRepo
	cases     repositories.CaseRepo
}

func NewDocumentHandler(documents repositories.DocumentRepo, clients repositories.ClientRepo, cases repositories.CaseRepo) *DocumentHandler {
	return &DocumentHandler{documents: documents, clients: clients, cases: cases}
}

type CreateDocumentRequest struct {
	CaseID       *uuid.UUID         `json:"caseId"`
	ClientID     *uuid.UUID         `json:"clientId"`
	Name         string             `json:"name"`
	Description  *string            `json:"description"`
	StorageType  models.StorageType `json:"storageType"`
	FileURL      *string            `json:"fileUrl"`
	FileKey      *string            `json:"fileKey"`
	FileSize     *int64             `json:"fileSize" validate:"omitempty,gte=0"`
	FileType     *string            `json:"fileType"`
	ExternalURL  *string            `json:"externalUrl" validate:"omitempty,url"`
	ExternalType *string            `json:"externalType"`
}

type UpdateDocumentRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1"`
	Description  *string `json:"description"`
	ExternalURL  *string `json:"externalUrl" validate:"omitempty,url"`
	ExternalType *string `json:"externalType"`
}

func (h *DocumentHandler) RegisterRoutes(g *echo.Group) {
	documents := g.Group("/documents")
	documents.POST("", h.Create)
	documents.GET("", h.List)
	documents.GET("/search", h.Search)
	documents.GET("/:id", h.Get)
	documents.PUT("/:id", h.Update)
	documents.DELETE("/:id", h.Delete)
}

// Create handles POST /documents
func (h *DocumentHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DocumentHandler.Create")
	defer span.End()

	req, err := validation.BindRequest[CreateDocumentRequest](c)
	if err != nil {
		return err
	}
	if err := validateNewDocument(req); err != nil {
		return err
	}
	if err := h.checkOwner(ctx, req.ClientID, req.CaseID); err != nil {
		return err
	}

	doc := &models.Document{
		CaseID:       req.CaseID,
		ClientID:     req.ClientID,
		Name:         req.Name,
		Description:  req.Description,
		StorageType:  req.StorageType,
		FileURL:      req.FileURL,
		FileKey:      req.FileKey,
		FileSize:     req.FileSize,
		FileType:     req.FileType,
		ExternalURL:  req.ExternalURL,
		ExternalType: req.ExternalType,
		UploadedBy:   appctx.GetUserID(ctx),
	}
	if err := h.documents.Create(ctx, doc); err != nil {
		return err
	}
	return CreatedResponse(c, doc)
}

func validateNewDocument(req CreateDocumentRequest) error {
	if req.Name == "" {
		return BadRequest("Nome do documento é obrigatório")
	}
	if !req.StorageType.IsValid() {
		return BadRequest("Tipo de armazenamento inválido")
	}
	if req.CaseID == nil && req.ClientID == nil {
		return BadRequest("É necessário informar um cliente ou processo")
	}
	if req.CaseID != nil && req.ClientID != nil {
		return BadRequest("Informe apenas um: cliente ou processo")
	}
	if req.StorageType == models.StorageUpload && isBlank(req.FileURL) {
		return BadRequest("URL do arquivo é obrigatória para upload")
	}
	if req.StorageType == models.StorageLink && isBlank(req.ExternalURL) {
		return BadRequest("URL externa é obrigatória para link")
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

// checkOwner loads the client or case so a foreign id surfaces as 404
func (h *DocumentHandler) checkOwner(ctx context.Context, clientID, caseID *uuid.UUID) error {
	if clientID != nil {
		_, err := h.clients.GetByID(ctx, *clientID)
		return err
	}
	_, err := h.cases.GetByID(ctx, *caseID)
	return err
}

// List handles GET /documents
func (h *DocumentHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DocumentHandler.List")
	defer span.End()

	params, err := listParams(c)
	if err != nil {
		return err
	}
	if c.QueryParam("limit") == "" {
		params.Limit = documentsDefaultLimit
	}
	clientID, err := parseOptionalUUID(c, "clientId")
	if err != nil {
		return err
	}
	caseID, err := parseOptionalUUID(c, "caseId")
	if err != nil {
		return err
	}
	storageType := models.StorageType(c.QueryParam("storageType"))
	if storageType != "" && !storageType.IsValid() {
		return BadRequest("Tipo de armazenamento inválido")
	}

	page, err := h.documents.List(ctx, repositories.DocumentFilter{
		ListParams:  params,
		ClientID:    clientID,
		CaseID:      caseID,
		StorageType: storageType,
	})
	if err != nil {
		return err
	}
	return SuccessResponse(c, page)
}

// Search handles GET /documents/search and returns every document of a client or case
func (h *DocumentHandler) Search(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DocumentHandler.Search")
	defer span.End()

	clientID, err := parseOptionalUUID(c, "clientId")
	if err != nil {
		return err
	}
	caseID, err := parseOptionalUUID(c, "caseId")
	if err != nil {
		return err
	}
	if clientID == nil && caseID == nil {
		return BadRequest("É necessário informar clientId ou caseId")
	}

	docs, err := h.documents.ListByOwner(ctx, clientID, caseID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, docs)
}

// Get handles GET /documents/:id
func (h *DocumentHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DocumentHandler.Get")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	doc, err := h.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, doc)
}

// Update handles PUT /documents/:id
func (h *DocumentHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DocumentHandler.Update")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[UpdateDocumentRequest](c)
	if err != nil {
		return err
	}

	doc, err := h.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.Name != nil {
		doc.Name = *req.Name
	}
	setIfPresent(&doc.Description, req.Description)
	setIfPresent(&doc.ExternalURL, req.ExternalURL)
	setIfPresent(&doc.ExternalType, req.ExternalType)

	if err := h.documents.Update(ctx, doc); err != nil {
		return err
	}
	return SuccessResponse(c, doc)
}

// Delete handles DELETE /documents/:id
func (h *DocumentHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DocumentHandler.Delete")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.documents.Delete(ctx, id); err != nil {
		return err
	}
	return NoContentResponse(c)
}
