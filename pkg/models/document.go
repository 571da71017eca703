package models

import (
	"time"

	"github.com/google/uuid"
)

type StorageType string

const (
	StorageUpload StorageType = "upload"
	StorageLink   StorageType = "link"
)

func (s StorageType) IsValid() bool {
	return s == StorageUpload || s == StorageLink
}

// Document references a file attached to either a client or a case. Uploaded
// files carry the object URL and key; links carry an external URL.
type Document struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	CompanyID    uuid.UUID   `db:"company_id" json:"companyId"`
	CaseID       *uuid.UUID  `db:"case_id" json:"caseId,omitempty"`
	ClientID     *uuid.UUID  `db:"client_id" json:"clientId,omitempty"`
	Name         string      `db:"name" json:"name"`
	Description  *string     `db:"description" json:"description,omitempty"`
	StorageType  StorageType `db:"storage_type" json:"storageType"`
	FileURL      *string     `db:"file_url" json:"fileUrl,omitempty"`
	FileKey      *string     `db:"file_key" json:"fileKey,omitempty"`
	FileSize     *int64      `db:"file_size" json:"fileSize,omitempty"`
	FileType     *string     `db:"file_type" json:"fileType,omitempty"`
	ExternalURL  *string     `db:"external_url" json:"externalUrl,omitempty"`
	ExternalType *string     `db:"external_type" json:"externalType,omitempty"`
	UploadedBy   string      `db:"uploaded_by" json:"uploadedBy"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// TableName returns the database table name
func (Document) TableName() string {
	return "documents"
}
