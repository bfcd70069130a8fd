package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Approval status enum constants for catalog versions
const (
	VersionPending  = "PENDING"
	VersionApproved = "APPROVED"
	VersionRejected = "REJECTED"
	VersionMigrated = "MIGRATED"
)

// Main-DB sync state for a version. FAILED marks the "approved but push
// failed" case so the UI can prompt a manual retry.
const (
	SyncNone   = "NONE"
	SyncSynced = "SYNCED"
	SyncFailed = "FAILED"
)

// Version is a full independent snapshot of the catalog tree. Every Brand,
// VehicleLine, CarModel, Trim and Option row is scoped to exactly one version.
type Version struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	VersionName     string     `gorm:"type:varchar(255);not null" json:"version_name"`
	Description     string     `gorm:"type:text" json:"description"`
	ApprovalStatus  string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"approval_status"`
	MainSyncStatus  string     `gorm:"type:varchar(20);not null;default:'NONE'" json:"main_sync_status"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	CreatedBy       *uuid.UUID `gorm:"type:uuid;index" json:"created_by"`
	Creator         *User      `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	ApprovedBy      *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	Approver        *User      `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at"`
	MigrationDate   *time.Time `json:"migration_date"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Brands []Brand `gorm:"foreignKey:VersionID;constraint:OnDelete:CASCADE" json:"brands,omitempty"`
}

func (v *Version) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Deletable reports whether the version may still be removed.
// Migrated snapshots are the live main-DB lineage and must be kept.
func (v *Version) Deletable() bool {
	return v.ApprovalStatus != VersionMigrated
}
