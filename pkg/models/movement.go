package models

import (
	"time"

	"github.com/google/uuid"
)

// Movement is one docket event of a case as reported by DataJud
type Movement struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CaseID      uuid.UUID `db:"case_id" json:"caseId"`
	Code        int       `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Date        time.Time `db:"movement_date" json:"date"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// TableName returns the database table name
func (Movement) TableName() string {
	return "case_movements"
}
