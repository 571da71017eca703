package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/Ramsey-B/advwell/pkg/models"
)

// CompanyRepo defines the interface for company repository operations
type CompanyRepo interface {
	Create(ctx context.Context, company *models.Company) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	List(ctx context.Context) ([]models.Company, error)
	Update(ctx context.Context, company *models.Company) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Counts(ctx context.Context, id uuid.UUID) (*models.CompanyCounts, error)
}

// ClientRepo defines the interface for client repository operations
type ClientRepo interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Client, error)
	List(ctx context.Context, params models.ListParams) (*models.Page[models.Client], error)
	Update(ctx context.Context, client *models.Client) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// CaseRepo defines the interface for case repository operations
type CaseRepo interface {
	Create(ctx context.Context, c *models.Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	List(ctx context.Context, filter CaseFilter) (*models.Page[models.Case], error)
	ListPendingUpdates(ctx context.Context) ([]models.Case, error)
	ListActive(ctx context.Context) ([]models.Case, error)
	Update(ctx context.Context, c *models.Case) error
	Acknowledge(ctx context.Context, id uuid.UUID) error
}

// MovementRepo defines the interface for movement repository operations
type MovementRepo interface {
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]models.Movement, error)
	ReplaceForCase(ctx context.Context, caseID uuid.UUID, movements []models.Movement, stamp models.CaseSyncStamp) error
}

// CasePartRepo defines the interface for case part repository operations
type CasePartRepo interface {
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]models.CasePart, error)
	Create(ctx context.Context, part *models.CasePart) error
	Update(ctx context.Context, part *models.CasePart) error
	Delete(ctx context.Context, caseID, partID uuid.UUID) error
}

// FinancialRepo defines the interface for financial repository operations
type FinancialRepo interface {
	Create(ctx context.Context, t *models.FinancialTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FinancialTransaction, error)
	List(ctx context.Context, filter FinancialFilter) (*FinancialPage, error)
	Update(ctx context.Context, t *models.FinancialTransaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context, filter SummaryFilter) (*models.FinancialTotals, error)
	Export(ctx context.Context, filter FinancialFilter) ([]models.FinancialExportRow, error)
}

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, params models.ListParams) (*models.Page[models.User], error)
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// DocumentRepo defines the interface for document repository operations
type DocumentRepo interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	List(ctx context.Context, filter DocumentFilter) (*models.Page[models.Document], error)
	ListByOwner(ctx context.Context, clientID, caseID *uuid.UUID) ([]models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
}

var (
	_ CompanyRepo   = (*CompanyRepository)(nil)
	_ ClientRepo    = (*ClientRepository)(nil)
	_ CaseRepo      = (*CaseRepository)(nil)
	_ MovementRepo  = (*MovementRepository)(nil)
	_ CasePartRepo  = (*CasePartRepository)(nil)
	_ FinancialRepo = (*FinancialRepository)(nil)
	_ UserRepo      = (*UserRepository)(nil)
	_ DocumentRepo  = (*DocumentRepository)(nil)
)
