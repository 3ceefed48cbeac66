package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStored    DocumentStatus = "stored"
	DocumentProcessed DocumentStatus = "processed"
	DocumentFailed    DocumentStatus = "failed"
)

// Document records an uploaded CV file and what became of it.
type Document struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Filename         string         `gorm:"type:text" json:"filename"`
	OriginalFileName string         `gorm:"type:text" json:"original_filename"`
	FileType         string         `gorm:"type:text" json:"file_type"`
	StorageID        string         `gorm:"type:text" json:"storage_id"`
	Size             int64          `json:"size"`
	Status           DocumentStatus `gorm:"type:text;not null;default:'stored'" json:"status"`
	CandidateID      *uint          `gorm:"index" json:"candidate_id,omitempty"`
	ErrorMessage     *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time      `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (d *Document) TableName() string {
	return "documents"
}
