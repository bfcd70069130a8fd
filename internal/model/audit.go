package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateVersion  = "CREATE_VERSION"
	ActionDeleteVersion  = "DELETE_VERSION"
	ActionApproveVersion = "APPROVE_VERSION"
	ActionRejectVersion  = "REJECT_VERSION"
	ActionMigrateVersion = "MIGRATE_VERSION"

	// Staging <-> main sync actions
	ActionUploadToMain     = "UPLOAD_TO_MAIN"
	ActionDownloadFromMain = "DOWNLOAD_FROM_MAIN"

	// Catalog CRUD actions
	ActionCreateEntity = "CREATE_ENTITY"
	ActionUpdateEntity = "UPDATE_ENTITY"
	ActionDeleteEntity = "DELETE_ENTITY"

	// Discount policy actions
	ActionCreatePolicy = "CREATE_DISCOUNT_POLICY"
	ActionUpdatePolicy = "UPDATE_DISCOUNT_POLICY"
	ActionDeletePolicy = "DELETE_DISCOUNT_POLICY"

	ActionStartImport  = "START_EXCEL_IMPORT"
	ActionFinishImport = "FINISH_EXCEL_IMPORT"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated job
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:text" json:"details"`                       // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
