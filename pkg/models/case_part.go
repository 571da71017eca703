package models

import (
	"time"

	"github.com/google/uuid"
)

type CasePartType string

const (
	CasePartAutor              CasePartType = "AUTOR"
	CasePartReu                CasePartType = "REU"
	CasePartRepresentanteLegal CasePartType = "REPRESENTANTE_LEGAL"
)

// CasePart is a party to a case
type CasePart struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	CaseID    uuid.UUID    `db:"case_id" json:"caseId"`
	Type      CasePartType `db:"type" json:"type"`
	Name      string       `db:"name" json:"name"`
	CpfCnpj   *string      `db:"cpf_cnpj" json:"cpfCnpj,omitempty"`
	Phone     *string      `db:"phone" json:"phone,omitempty"`
	Address   *string      `db:"address" json:"address,omitempty"`
	Email     *string      `db:"email" json:"email,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time    `db:"updated_at" json:"updatedAt"`
}

// TableName returns the database table name
func (CasePart) TableName() string {
	return "case_parts"
}
