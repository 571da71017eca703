package repositories_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/repositories"
)

func TestDocumentRepository_Create(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewDocumentRepository(db, getTestLogger())
	tenantID := uuid.New()
	clientID := uuid.New()
	url := "https://drive.example.com/f/1"
	now := time.Now()

	mock.ExpectQuery("INSERT INTO documents .* RETURNING created_at, updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	doc := &models.Document{ClientID: &clientID, Name: "Procuração", StorageType: models.StorageLink, ExternalURL: &url, UploadedBy: "user-1"}
	require.NoError(t, repo.Create(getTestContext(tenantID), doc))

	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, tenantID, doc.CompanyID)
	assert.Equal(t, now, doc.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_Create_RequiresTenant(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewDocumentRepository(db, getTestLogger())

	err := repo.Create(context.Background(), &models.Document{Name: "Procuração"})
	assertStatus(t, err, http.StatusForbidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_List_Filters(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewDocumentRepository(db, getTestLogger())
	tenantID := uuid.New()
	caseID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents WHERE company_id = \$1 AND case_id = \$2 AND storage_type = \$3`).
		WithArgs(tenantID, caseID, models.StorageUpload).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .* FROM documents WHERE .* ORDER BY created_at DESC LIMIT \$4 OFFSET \$5`).
		WithArgs(tenantID, caseID, models.StorageUpload, 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	page, err := repo.List(getTestContext(tenantID), repositories.DocumentFilter{
		ListParams:  models.ListParams{Limit: 50},
		CaseID:      &caseID,
		StorageType: models.StorageUpload,
	})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 50, page.Pagination.Limit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_GetByID_NotFound(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewDocumentRepository(db, getTestLogger())

	mock.ExpectQuery("SELECT .* FROM documents WHERE").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(getTestContext(uuid.New()), uuid.New())
	assertStatus(t, err, http.StatusNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_Delete(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewDocumentRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())

	mock.ExpectExec("DELETE FROM documents WHERE company_id").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(ctx, uuid.New()))

	mock.ExpectExec("DELETE FROM documents WHERE company_id").WillReturnResult(sqlmock.NewResult(0, 0))
	assertStatus(t, repo.Delete(ctx, uuid.New()), http.StatusNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
