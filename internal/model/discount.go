package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscountPolicy type enum constants
const (
	PolicyCardBenefit = "CARD_BENEFIT"
	PolicyBrandPromo  = "BRAND_PROMO"
	PolicyInventory   = "INVENTORY"
	PolicyPrePurchase = "PRE_PURCHASE"
)

// DiscountPolicy is anchored to a specific (brand, vehicle_line, trim, version)
// tuple. Exactly one type-specific detail row exists per policy, matching
// PolicyType.
type DiscountPolicy struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyType    string    `gorm:"type:varchar(30);not null;index" json:"policy_type"`
	Title         string    `gorm:"type:varchar(255);not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	ValidFrom     time.Time `json:"valid_from"`
	ValidTo       time.Time `json:"valid_to"`
	IsActive      bool      `gorm:"default:true;index" json:"is_active"`
	VersionID     uuid.UUID `gorm:"type:uuid;not null;index" json:"version_id"`
	BrandID       uuid.UUID `gorm:"type:uuid;not null" json:"brand_id"`
	VehicleLineID uuid.UUID `gorm:"type:uuid;not null" json:"vehicle_line_id"`
	TrimID        uuid.UUID `gorm:"type:uuid;not null" json:"trim_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	CardBenefit *CardBenefitDetail       `gorm:"foreignKey:PolicyID;constraint:OnDelete:CASCADE" json:"card_benefit,omitempty"`
	BrandPromo  *BrandPromoDetail        `gorm:"foreignKey:PolicyID;constraint:OnDelete:CASCADE" json:"brand_promo,omitempty"`
	Inventory   *InventoryDiscountDetail `gorm:"foreignKey:PolicyID;constraint:OnDelete:CASCADE" json:"inventory,omitempty"`
	PrePurchase *PrePurchaseDetail       `gorm:"foreignKey:PolicyID;constraint:OnDelete:CASCADE" json:"pre_purchase,omitempty"`
}

func (p *DiscountPolicy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CardBenefitDetail holds CARD_BENEFIT specifics (partner card cashback).
type CardBenefitDetail struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"policy_id"`
	CardPartner  string          `gorm:"type:varchar(100);not null" json:"card_partner"`
	CashbackRate decimal.Decimal `gorm:"type:numeric(6,4)" json:"cashback_rate"`
}

func (d *CardBenefitDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// BrandPromoDetail holds BRAND_PROMO specifics (rate or flat amount).
type BrandPromoDetail struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"policy_id"`
	DiscountRate   decimal.Decimal `gorm:"type:numeric(6,4)" json:"discount_rate"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(15,2)" json:"discount_amount"`
}

func (d *BrandPromoDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// InventoryDiscountDetail triggers when stock crosses a threshold.
type InventoryDiscountDetail struct {
	ID                      uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyID                uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"policy_id"`
	InventoryLevelThreshold int             `gorm:"not null" json:"inventory_level_threshold"`
	DiscountRate            decimal.Decimal `gorm:"type:numeric(6,4)" json:"discount_rate"`
	MarginRate              decimal.Decimal `gorm:"type:numeric(6,4)" json:"margin_rate"`
}

func (d *InventoryDiscountDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// PrePurchaseDetail holds PRE_PURCHASE event specifics.
type PrePurchaseDetail struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PolicyID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"policy_id"`
	EventType        string          `gorm:"type:varchar(100)" json:"event_type"`
	DiscountRate     decimal.Decimal `gorm:"type:numeric(6,4)" json:"discount_rate"`
	DiscountAmount   decimal.Decimal `gorm:"type:numeric(15,2)" json:"discount_amount"`
	PrePurchaseStart *time.Time      `json:"pre_purchase_start"`
}

func (d *PrePurchaseDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
