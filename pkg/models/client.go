package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is a person or organisation represented by the company
type Client struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CompanyID uuid.UUID `db:"company_id" json:"companyId"`
	Name      string    `db:"name" json:"name"`
	CPF       *string   `db:"cpf" json:"cpf,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	// Active is false once the client is deleted
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Cases []Case `db:"-" json:"cases,omitempty"`
}

// TableName returns the database table name
func (Client) TableName() string {
	return "clients"
}
