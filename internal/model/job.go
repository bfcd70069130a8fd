package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Import job status enum constants. COMPLETED and FAILED are terminal;
// clients stop polling once either is reached.
const (
	JobPending    = "PENDING"
	JobProcessing = "PROCESSING"
	JobCompleted  = "COMPLETED"
	JobFailed     = "FAILED"
)

// ImportJob tracks one asynchronous Excel ingestion run against a
// PENDING version's staging data.
type ImportJob struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	VersionID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"version_id"`
	FileName      string     `gorm:"type:varchar(255)" json:"file_name"`
	Country       string     `gorm:"type:varchar(10)" json:"country"`
	Status        string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	TotalRows     int        `json:"total_rows"`
	ProcessedRows int        `json:"processed_rows"`
	ErrorDetail   string     `gorm:"type:text" json:"error_detail,omitempty"`
	StartedBy     *uuid.UUID `gorm:"type:uuid" json:"started_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	FinishedAt    *time.Time `json:"finished_at"`
}

func (j *ImportJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether polling for this job should stop.
func (j *ImportJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
