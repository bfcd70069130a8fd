package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Realm discriminates the staging working copy from the main-DB mirror.
// Both live in the same tables; sync operations copy subtrees across realms.
const (
	RealmStaging = "STAGING"
	RealmMain    = "MAIN"
)

// Brand is the root of the catalog hierarchy for one version.
type Brand struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	VersionID uuid.UUID  `gorm:"type:uuid;not null;index:idx_brands_version_realm" json:"version_id"`
	Realm     string     `gorm:"type:varchar(10);not null;default:'STAGING';index:idx_brands_version_realm" json:"-"`
	Name      string     `gorm:"type:varchar(255);not null" json:"name"`
	Country   string     `gorm:"type:varchar(10)" json:"country"`
	LogoURL   string     `gorm:"type:varchar(500)" json:"logo_url"`
	Manager   string     `gorm:"type:varchar(255)" json:"manager"`
	CreatedBy string     `gorm:"type:varchar(255)" json:"created_by"`
	UpdatedBy string     `gorm:"type:varchar(255)" json:"updated_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	VehicleLines []VehicleLine `gorm:"foreignKey:BrandID;constraint:OnDelete:CASCADE" json:"vehicle_lines,omitempty"`
}

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// VehicleLine groups models under a brand (e.g. sedans, SUVs, a product line)
type VehicleLine struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID     uuid.UUID `gorm:"type:uuid;not null;index" json:"brand_id"`
	Brand       *Brand    `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Models []CarModel `gorm:"foreignKey:VehicleLineID;constraint:OnDelete:CASCADE" json:"models,omitempty"`
}

func (l *VehicleLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// CarModel is a sellable model inside a vehicle line.
type CarModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	VehicleLineID uuid.UUID       `gorm:"type:uuid;not null;index" json:"vehicle_line_id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Code          string          `gorm:"type:varchar(100)" json:"code"`
	ReleaseYear   int             `json:"release_year"`
	Price         decimal.Decimal `gorm:"type:numeric(15,2)" json:"price"`
	Foreign       bool            `gorm:"default:false" json:"foreign"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Trims []Trim `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE" json:"trims,omitempty"`
}

// TableName keeps the table name aligned with the API naming ("models")
func (CarModel) TableName() string { return "models" }

func (m *CarModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Trim is a configuration level of a model (engine, fuel, base price).
type Trim struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ModelID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"model_id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	CarType     string          `gorm:"type:varchar(50)" json:"car_type"`
	FuelName    string          `gorm:"type:varchar(50)" json:"fuel_name"`
	CC          int             `json:"cc"`
	BasePrice   decimal.Decimal `gorm:"type:numeric(15,2)" json:"base_price"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Options []Option `gorm:"foreignKey:TrimID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

func (t *Trim) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Option is a purchasable extra attached to a trim.
type Option struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TrimID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"trim_id"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	Code            string          `gorm:"type:varchar(100)" json:"code"`
	Description     string          `gorm:"type:text" json:"description"`
	Category        string          `gorm:"type:varchar(100)" json:"category"`
	Price           decimal.Decimal `gorm:"type:numeric(15,2)" json:"price"`
	DiscountedPrice decimal.Decimal `gorm:"type:numeric(15,2)" json:"discounted_price"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (o *Option) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
