package repository

import (
	"context"

	"carcatalog/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobRepository interface {
	Create(ctx context.Context, job *model.ImportJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ImportJob, error)
	Update(ctx context.Context, job *model.ImportJob) error
	UpdateProgress(ctx context.Context, id uuid.UUID, processed int) error
	ListRecent(ctx context.Context, limit int) ([]model.ImportJob, error)
	DeleteByVersion(ctx context.Context, versionID uuid.UUID) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *model.ImportJob) error {
	return GetDB(ctx, r.db).Create(job).Error
}

func (r *jobRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ImportJob, error) {
	var job model.ImportJob
	if err := GetDB(ctx, r.db).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) Update(ctx context.Context, job *model.ImportJob) error {
	return GetDB(ctx, r.db).Save(job).Error
}

// UpdateProgress writes only the processed counter so the ingestion goroutine
// can report progress without clobbering concurrent status changes.
func (r *jobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, processed int) error {
	return GetDB(ctx, r.db).Model(&model.ImportJob{}).
		Where("id = ?", id).
		Update("processed_rows", processed).Error
}

func (r *jobRepository) ListRecent(ctx context.Context, limit int) ([]model.ImportJob, error) {
	var jobs []model.ImportJob
	if err := GetDB(ctx, r.db).Order("created_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) DeleteByVersion(ctx context.Context, versionID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("version_id = ?", versionID).Delete(&model.ImportJob{}).Error
}
