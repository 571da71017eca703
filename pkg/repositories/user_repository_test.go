package repositories_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/advwell/pkg/models"
	"github.com/Ramsey-B/advwell/pkg/repositories"
)

func TestUserRepository_Create(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewUserRepository(db, getTestLogger())
	tenantID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO users .* ON CONFLICT DO NOTHING RETURNING created_at, updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	user := &models.User{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, repo.Create(getTestContext(tenantID), user))

	assert.Equal(t, tenantID, user.CompanyID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewUserRepository(db, getTestLogger())

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

	err := repo.Create(getTestContext(uuid.New()), &models.User{Name: "Ana", Email: "ana@example.com"})
	assertStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Email já cadastrado", httperror.ToHTTPError(err).Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_UniqueViolation(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewUserRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())

	mock.ExpectQuery("UPDATE users SET").WillReturnError(&pq.Error{Code: "23505"})
	err := repo.Update(ctx, &models.User{ID: uuid.New(), Name: "Ana", Email: "taken@example.com"})
	assertStatus(t, err, http.StatusBadRequest)

	mock.ExpectQuery("UPDATE users SET").WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
	err = repo.Update(ctx, &models.User{ID: uuid.New(), Name: "Ana", Email: "ana@example.com"})
	assertStatus(t, err, http.StatusNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List_SearchesNameAndEmail(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewUserRepository(db, getTestLogger())
	tenantID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE .*LOWER\(name\) LIKE .* OR LOWER\(email\) LIKE`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .* FROM users WHERE .* ORDER BY created_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "name", "email", "role", "active", "created_at", "updated_at"}).
			AddRow(uuid.NewString(), tenantID.String(), "Ana", "ana@example.com", "USER", true, now, now))

	page, err := repo.List(getTestContext(tenantID), models.ListParams{Search: "ANA"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, models.RoleUser, page.Data[0].Role)
	assert.Equal(t, 1, page.Pagination.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Deactivate_NotFound(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewUserRepository(db, getTestLogger())

	mock.ExpectExec("UPDATE users SET active").WillReturnResult(sqlmock.NewResult(0, 0))
	assertStatus(t, repo.Deactivate(getTestContext(uuid.New()), uuid.New()), http.StatusNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
