package models

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"
)

// FinancialTransaction is money received from or spent on behalf of a client
type FinancialTransaction struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	CompanyID   uuid.UUID       `db:"company_id" json:"companyId"`
	ClientID    uuid.UUID       `db:"client_id" json:"clientId"`
	CaseID      *uuid.UUID      `db:"case_id" json:"caseId,omitempty"`
	Type        TransactionType `db:"type" json:"type"`
	Description string          `db:"description" json:"description"`
	Amount      float64         `db:"amount" json:"amount"`
	Date        time.Time       `db:"date" json:"date"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// TableName returns the database table name
func (FinancialTransaction) TableName() string {
	return "financial_transactions"
}

// FinancialSummary totals a filtered set of transactions
type FinancialSummary struct {
	TotalIncome  float64 `db:"total_income" json:"totalIncome"`
	TotalExpense float64 `db:"total_expense" json:"totalExpense"`
	Balance      float64 `db:"-" json:"balance"`
}

// FinancialTotals is the summary endpoint's view, with per-type counts
type FinancialTotals struct {
	TotalIncome         float64 `db:"total_income" json:"totalIncome"`
	TotalExpense        float64 `db:"total_expense" json:"totalExpense"`
	Balance             float64 `db:"-" json:"balance"`
	TotalTransactions   int     `db:"total_transactions" json:"totalTransactions"`
	IncomeTransactions  int     `db:"income_transactions" json:"incomeTransactions"`
	ExpenseTransactions int     `db:"expense_transactions" json:"expenseTransactions"`
}

// FinancialExportRow is one transaction joined with its client and case for export
type FinancialExportRow struct {
	Date          time.Time       `db:"date"`
	Type          TransactionType `db:"type"`
	ClientName    string          `db:"client_name"`
	ClientCPF     *string         `db:"client_cpf"`
	Description   string          `db:"description"`
	ProcessNumber *string         `db:"process_number"`
	Amount        float64         `db:"amount"`
}
