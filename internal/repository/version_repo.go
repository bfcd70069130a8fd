package repository

import (
	"context"

	"carcatalog/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VersionFilter narrows the version list query
type VersionFilter struct {
	Status string // PENDING, APPROVED, REJECTED, MIGRATED or empty for all
	Page   int
	Limit  int
}

// VersionRepository defines the interface for data access of Version entities
type VersionRepository interface {
	Create(ctx context.Context, version *model.Version) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Version, error)
	FindByIDWithUsers(ctx context.Context, id uuid.UUID) (*model.Version, error)
	List(ctx context.Context, filter VersionFilter) ([]model.Version, int64, error)
	Update(ctx context.Context, version *model.Version) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type versionRepository struct {
	db *gorm.DB
}

func NewVersionRepository(db *gorm.DB) VersionRepository {
	return &versionRepository{db: db}
}

func (r *versionRepository) Create(ctx context.Context, version *model.Version) error {
	return GetDB(ctx, r.db).Create(version).Error
}

func (r *versionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Version, error) {
	var version model.Version
	if err := GetDB(ctx, r.db).First(&version, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *versionRepository) FindByIDWithUsers(ctx context.Context, id uuid.UUID) (*model.Version, error) {
	var version model.Version
	if err := GetDB(ctx, r.db).Preload("Creator").Preload("Approver").First(&version, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *versionRepository) List(ctx context.Context, filter VersionFilter) ([]model.Version, int64, error) {
	var versions []model.Version
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Version{})
	if filter.Status != "" {
		query = query.Where("approval_status = ?", filter.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := db.Preload("Creator").Preload("Approver")
	if filter.Status != "" {
		fetch = fetch.Where("approval_status = ?", filter.Status)
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := fetch.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&versions).Error; err != nil {
		return nil, 0, err
	}

	return versions, total, nil
}

func (r *versionRepository) Update(ctx context.Context, version *model.Version) error {
	return GetDB(ctx, r.db).Save(version).Error
}

func (r *versionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Version{}).Error
}
