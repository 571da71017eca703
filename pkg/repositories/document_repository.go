package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/advwell/pkg/database"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

const documentsTable = "documents"

var documentStruct = database.NewStruct(new(models.Document))

// DocumentFilter narrows document listings. Search matches the document name.
type DocumentFilter struct {
	models.ListParams
	ClientID    *uuid.UUID
	CaseID      *uuid.UUID
	StorageType models.StorageType
}

type DocumentRepository struct {
	*Repository
}

func NewDocumentRepository(db database.DB, logger ectologger.Logger) *DocumentRepository {
	return &DocumentRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	doc.CompanyID = tenantID
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(documentsTable).
		Cols("id", "company_id", "case_id", "client_id", "name", "description", "storage_type", "file_url", "file_key",
			"file_size", "file_type", "external_url", "external_type", "uploaded_by", "created_at", "updated_at").
		Values(doc.ID, doc.CompanyID, doc.CaseID, doc.ClientID, doc.Name, doc.Description, doc.StorageType, doc.FileURL, doc.FileKey,
			doc.FileSize, doc.FileType, doc.ExternalURL, doc.ExternalType, doc.UploadedBy, database.Now(), database.Now()).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	if err := r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("document_id", doc.ID).Error("failed to create document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create document")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"document_id":  doc.ID,
		"storage_type": doc.StorageType,
	}).Debugf("Created %s", documentsTable)
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.GetByID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := documentStruct.SelectFrom(documentsTable)
	sb.Where(sb.Equal("company_id", tenantID), sb.Equal("id", id))

	query, args := sb.Build()
	var doc models.Document
	err = r.Q(ctx).GetContext(ctx, &doc, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Documento não encontrado")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("document_id", id).Error("failed to get document by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get document")
	}

	return &doc, nil
}

// List returns a page of documents, newest first
func (r *DocumentRepository) List(ctx context.Context, filter DocumentFilter) (*models.Page[models.Document], error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.List")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}
	filter.ListParams = filter.ListParams.Normalize()

	apply := func(sb *database.SelectBuilder) {
		sb.Where(sb.Equal("company_id", tenantID))
		if filter.ClientID != nil {
			sb.Where(sb.Equal("client_id", *filter.ClientID))
		}
		if filter.CaseID != nil {
			sb.Where(sb.Equal("case_id", *filter.CaseID))
		}
		if filter.StorageType != "" {
			sb.Where(sb.Equal("storage_type", filter.StorageType))
		}
		if filter.Search != "" {
			sb.Where(sb.Contains(filter.Search, "name"))
		}
	}

	cb := database.NewSelectBuilder()
	cb.Select("COUNT(*)").From(documentsTable)
	apply(cb)

	query, args := cb.Build()
	var total int
	if err := r.Q(ctx).GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
	}

	sb := documentStruct.SelectFrom(documentsTable)
	apply(sb)
	sb.OrderBy("created_at").Desc()
	sb.Page(filter.Page, filter.Limit)

	query, args = sb.Build()
	docs := []models.Document{}
	if err := r.Q(ctx).SelectContext(ctx, &docs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
	}

	return &models.Page[models.Document]{
		Data:       docs,
		Pagination: models.NewPagination(filter.ListParams, total),
	}, nil
}

// ListByOwner returns every document of a client and/or case, newest first
func (r *DocumentRepository) ListByOwner(ctx context.Context, clientID, caseID *uuid.UUID) ([]models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.ListByOwner")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := documentStruct.SelectFrom(documentsTable)
	sb.Where(sb.Equal("company_id", tenantID))
	if clientID != nil {
		sb.Where(sb.Equal("client_id", *clientID))
	}
	if caseID != nil {
		sb.Where(sb.Equal("case_id", *caseID))
	}
	sb.OrderBy("created_at").Desc()

	query, args := sb.Build()
	docs := []models.Document{}
	if err := r.Q(ctx).SelectContext(ctx, &docs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to search documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search documents")
	}

	return docs, nil
}

// Update writes the editable fields: name, description and the external link
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Update")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(documentsTable).
		Set(
			ub.Assign("name", doc.Name),
			ub.Assign("description", doc.Description),
			ub.Assign("external_url", doc.ExternalURL),
			ub.Assign("external_type", doc.ExternalType),
			ub.Assign("updated_at", database.Now()),
		).
		Where(ub.Equal("company_id", tenantID), ub.Equal("id", doc.ID))
	ub.SQL("RETURNING updated_at")

	query, args := ub.Build()
	err = r.Q(ctx).QueryRowContext(ctx, query, args...).Scan(&doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusNotFound, "Documento não encontrado")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("document_id", doc.ID).Error("failed to update document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update document")
	}

	return nil
}

// Delete removes the document row. Stored objects are not touched.
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Delete")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom(documentsTable).Where(db.Equal("company_id", tenantID), db.Equal("id", id))

	query, args := db.Build()
	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("document_id", id).Error("failed to delete document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete document")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete document")
	}
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "Documento não encontrado")
	}

	return nil
}
