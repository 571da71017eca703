package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/advwell/pkg/middleware"
	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/repositories"
)

type fakeDocumentRepo struct {
	documents  map[uuid.UUID]*models.Document
	lastFilter repositories.DocumentFilter
}

func (f *fakeDocumentRepo) Create(_ context.Context, doc *models.Document) error {
	doc.ID = uuid.New()
	clone := *doc
	f.documents[doc.ID] = &clone
	return nil
}

func (f *fakeDocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Document, error) {
	doc, ok := f.documents[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "Documento não encontrado")
	}
	clone := *doc
	return &clone, nil
}

func (f *fakeDocumentRepo) List(_ context.Context, filter repositories.DocumentFilter) (*models.Page[models.Document], error) {
	f.lastFilter = filter
	docs := []models.Document{}
	for _, doc := range f.documents {
		docs = append(docs, *doc)
	}
	return &models.Page[models.Document]{Data: docs, Pagination: models.NewPagination(filter.ListParams, len(docs))}, nil
}

func (f *fakeDocumentRepo) ListByOwner(_ context.Context, clientID, caseID *uuid.UUID) ([]models.Document, error) {
	docs := []models.Document{}
	for _, doc := range f.documents {
		if clientID != nil && (doc.ClientID == nil || *doc.ClientID != *clientID) {
			continue
		}
		if caseID != nil && (doc.CaseID == nil || *doc.CaseID != *caseID) {
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (f *fakeDocumentRepo) Update(_ context.Context, doc *models.Document) error {
	clone := *doc
	f.documents[doc.ID] = &clone
	return nil
}

func (f *fakeDocumentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.documents[id]; !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "Documento não encontrado")
	}
	delete(f.documents, id)
	return nil
}

func TestDocumentCreate_LinkOnClient(t *testing.T) {
	env := newTestEnv(t)
	client := env.addClient()

	rec := env.do(http.MethodPost, "/api/documents", `{"clientId":"`+client.ID.String()+`","name":"Procuração","storageType":"link","externalUrl":"https://drive.example.com/f/1","externalType":"google_drive"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[models.Document](t, rec)
	assert.Equal(t, models.StorageLink, created.StorageType)
	assert.Equal(t, "user-1", created.UploadedBy)
	require.NotNil(t, created.ClientID)
	assert.Equal(t, client.ID, *created.ClientID)
	assert.Nil(t, created.CaseID)
}

func TestDocumentCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	client := env.addClient()
	caseID := uuid.New()
	env.cases.cases[caseID] = &models.Case{ID: caseID, ClientID: client.ID}
	owner := `"clientId":"` + client.ID.String() + `"`

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing name", `{` + owner + `,"storageType":"link","externalUrl":"https://x.example.com"}`, "Nome do documento é obrigatório"},
		{"unknown storage", `{` + owner + `,"name":"Doc","storageType":"s3"}`, "Tipo de armazenamento inválido"},
		{"no owner", `{"name":"Doc","storageType":"link","externalUrl":"https://x.example.com"}`, "É necessário informar um cliente ou processo"},
		{"both owners", `{` + owner + `,"caseId":"` + caseID.String() + `","name":"Doc","storageType":"link","externalUrl":"https://x.example.com"}`, "Informe apenas um: cliente ou processo"},
		{"upload without file", `{` + owner + `,"name":"Doc","storageType":"upload"}`, "URL do arquivo é obrigatória para upload"},
		{"link without url", `{` + owner + `,"name":"Doc","storageType":"link"}`, "URL externa é obrigatória para link"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/documents", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decode[middleware.ErrorResponse](t, rec).Message)
		})
	}
	assert.Empty(t, env.documents.documents)
}

func TestDocumentCreate_UnknownCase(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/documents", `{"caseId":"`+uuid.NewString()+`","name":"Petição","storageType":"upload","fileUrl":"https://files.example.com/p.pdf"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Processo não encontrado", decode[middleware.ErrorResponse](t, rec).Message)
}

func TestDocumentList_DefaultsToFifty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/documents?storageType=upload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, env.documents.lastFilter.Limit)
	assert.Equal(t, models.StorageUpload, env.documents.lastFilter.StorageType)

	rec = env.do(http.MethodGet, "/api/documents?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, env.documents.lastFilter.Limit)

	rec = env.do(http.MethodGet, "/api/documents?storageType=s3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentSearch_RequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	caseID := uuid.New()
	env.documents.documents[uuid.New()] = &models.Document{Name: "Sentença", CaseID: &caseID}
	other := uuid.New()
	env.documents.documents[uuid.New()] = &models.Document{Name: "Contrato", CaseID: &other}

	rec := env.do(http.MethodGet, "/api/documents/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "É necessário informar clientId ou caseId", decode[middleware.ErrorResponse](t, rec).Message)

	rec = env.do(http.MethodGet, "/api/documents/search?caseId="+caseID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	docs := decode[[]models.Document](t, rec)
	require.Len(t, docs, 1)
	assert.Equal(t, "Sentença", docs[0].Name)
}

func TestDocumentUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()
	env.documents.documents[id] = &models.Document{ID: id, Name: "Contrato", StorageType: models.StorageLink}

	rec := env.do(http.MethodPut, "/api/documents/"+id.String(), `{"name":"Contrato assinado","description":"v2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := env.documents.documents[id]
	assert.Equal(t, "Contrato assinado", stored.Name)
	require.NotNil(t, stored.Description)
	assert.Equal(t, "v2", *stored.Description)

	rec = env.do(http.MethodDelete, "/api/documents/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/documents/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
