package repository

import (
	"context"

	"carcatalog/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PolicyFilter narrows the discount policy list query
type PolicyFilter struct {
	VersionID  *uuid.UUID
	PolicyType string
	Active     *bool
	Page       int
	Limit      int
}

type DiscountRepository interface {
	Create(ctx context.Context, policy *model.DiscountPolicy) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DiscountPolicy, error)
	List(ctx context.Context, filter PolicyFilter) ([]model.DiscountPolicy, int64, error)
	Update(ctx context.Context, policy *model.DiscountPolicy) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByVersion(ctx context.Context, versionID uuid.UUID) error
}

type discountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{db: db}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("CardBenefit").
		Preload("BrandPromo").
		Preload("Inventory").
		Preload("PrePurchase")
}

func (r *discountRepository) Create(ctx context.Context, policy *model.DiscountPolicy) error {
	// Associated detail row is created in the same insert
	return GetDB(ctx, r.db).Create(policy).Error
}

func (r *discountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DiscountPolicy, error) {
	var policy model.DiscountPolicy
	if err := withDetails(GetDB(ctx, r.db)).First(&policy, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *discountRepository) List(ctx context.Context, filter PolicyFilter) ([]model.DiscountPolicy, int64, error) {
	var policies []model.DiscountPolicy
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.VersionID != nil {
			q = q.Where("version_id = ?", *filter.VersionID)
		}
		if filter.PolicyType != "" {
			q = q.Where("policy_type = ?", filter.PolicyType)
		}
		if filter.Active != nil {
			q = q.Where("is_active = ?", *filter.Active)
		}
		return q
	}

	if err := apply(db.Model(&model.DiscountPolicy{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(withDetails(db)).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&policies).Error; err != nil {
		return nil, 0, err
	}

	return policies, total, nil
}

func (r *discountRepository) Update(ctx context.Context, policy *model.DiscountPolicy) error {
	return GetDB(ctx, r.db).Session(&gorm.Session{FullSaveAssociations: true}).Save(policy).Error
}

func (r *discountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("policy_id = ?", id).Delete(&model.CardBenefitDetail{}).Error; err != nil {
		return err
	}
	if err := db.Where("policy_id = ?", id).Delete(&model.BrandPromoDetail{}).Error; err != nil {
		return err
	}
	if err := db.Where("policy_id = ?", id).Delete(&model.InventoryDiscountDetail{}).Error; err != nil {
		return err
	}
	if err := db.Where("policy_id = ?", id).Delete(&model.PrePurchaseDetail{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.DiscountPolicy{}).Error
}

func (r *discountRepository) DeleteByVersion(ctx context.Context, versionID uuid.UUID) error {
	db := GetDB(ctx, r.db)
	policies := db.Model(&model.DiscountPolicy{}).Select("id").Where("version_id = ?", versionID)
	if err := db.Where("policy_id IN (?)", policies).Delete(&model.CardBenefitDetail{}).Error; err != nil {
		return err
	}
	if err := db.Where("policy_id IN (?)", policies).Delete(&model.BrandPromoDetail{}).Error; err != nil {
		return err
	}
	if err := db.Where("policy_id IN (?)", policies).Delete(&model.InventoryDiscountDetail{}).Error; err != nil {
		return err
	}
	if err := db.Where("policy_id IN (?)", policies).Delete(&model.PrePurchaseDetail{}).Error; err != nil {
		return err
	}
	return db.Where("version_id = ?", versionID).Delete(&model.DiscountPolicy{}).Error
}
