package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role / position / status enum constants
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"

	PositionEmployee = "EMPLOYEE"
	PositionManager  = "MANAGER"
	PositionCEO      = "CEO"

	UserActive    = "ACTIVE"
	UserInactive  = "INACTIVE"
	UserSuspended = "SUSPENDED"
)

// User represents the central user entity for logic and database structure
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email       string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PhoneNumber string         `gorm:"type:varchar(20)" json:"phone_number"`
	Password    string         `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	Role        string         `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	Position    string         `gorm:"type:varchar(20);not null;default:'EMPLOYEE'" json:"position"`
	Status      string         `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// CanApprove reports whether the user may approve or reject a catalog version.
// Admins always can; otherwise the position must be managerial.
func (u *User) CanApprove() bool {
	return u.Role == RoleAdmin || u.Position == PositionManager || u.Position == PositionCEO
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
