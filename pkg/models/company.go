package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tenant: a law firm and everything it owns
type Company struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	CNPJ      *string   `db:"cnpj" json:"cnpj,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	City      *string   `db:"city" json:"city,omitempty"`
	State     *string   `db:"state" json:"state,omitempty"`
	ZipCode   *string   `db:"zip_code" json:"zipCode,omitempty"`
	Logo      *string   `db:"logo" json:"logo,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// TableName returns the database table name
func (Company) TableName() string {
	return "companies"
}

// CompanyCounts sizes a company for its own settings page
type CompanyCounts struct {
	Users   int `db:"users" json:"users"`
	Clients int `db:"clients" json:"clients"`
	Cases   int `db:"cases" json:"cases"`
}

// CompanyWithCounts is what an ADMIN sees of their own company
type CompanyWithCounts struct {
	Company
	Count CompanyCounts `json:"_count"`
}
