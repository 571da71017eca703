package models

import (
	"time"

	"github.com/google/uuid"
)

// CaseStatus is the lifecycle state of a case
type CaseStatus string

const (
	CaseStatusActive   CaseStatus = "ACTIVE"
	CaseStatusArchived CaseStatus = "ARCHIVED"
	CaseStatusFinished CaseStatus = "FINISHED"
)

// Case is a legal process followed by the company on behalf of a client.
// ProcessNumber is unique across all companies.
type Case struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	CompanyID     uuid.UUID  `db:"company_id" json:"companyId"`
	ClientID      uuid.UUID  `db:"client_id" json:"clientId"`
	ProcessNumber string     `db:"process_number" json:"processNumber"`
	Court         string     `db:"court" json:"court"`
	Subject       string     `db:"subject" json:"subject"`
	Value         *float64   `db:"value" json:"value,omitempty"`
	Status        CaseStatus `db:"status" json:"status"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	// UltimoAndamento summarises the most recent movement, e.g. "Sentença - 03/05/2024"
	UltimoAndamento *string    `db:"ultimo_andamento" json:"ultimoAndamento"`
	InformarCliente *string    `db:"informar_cliente" json:"informarCliente,omitempty"`
	LinkProcesso    *string    `db:"link_processo" json:"linkProcesso,omitempty"`
	LastSyncedAt    *time.Time `db:"last_synced_at" json:"lastSyncedAt"`
	// MovementsFingerprint hashes the movement set stored by the last sync
	MovementsFingerprint *string   `db:"movements_fingerprint" json:"-"`
	PendingUpdate        bool      `db:"pending_update" json:"pendingUpdate"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time `db:"updated_at" json:"updatedAt"`

	Client    *Client    `db:"-" json:"client,omitempty"`
	Movements []Movement `db:"-" json:"movements,omitempty"`
}

// TableName returns the database table name
func (Case) TableName() string {
	return "cases"
}

// CaseSyncStamp is written together with a case's replacement movement set
type CaseSyncStamp struct {
	SyncedAt        time.Time
	UltimoAndamento *string
	Fingerprint     string
	// MarkPending raises pending_update. A stamp never clears the flag, so an
	// acknowledge that lands mid-sync is kept.
	MarkPending bool
}
