package service

import (
	"context"
	"fmt"

	"carcatalog/internal/model"
	"carcatalog/internal/repository"

	"gorm.io/gorm"
)

const recentJobsLimit = 5

// MainSummary describes the current main-DB mirror: its size and which
// version last pushed into it.
type MainSummary struct {
	Counts            model.EntityCounts `json:"counts"`
	LastSyncedVersion *model.Version     `json:"last_synced_version"`
}

type StatisticsService interface {
	GetDashboardStatistics(ctx context.Context) (*model.StatisticsResponse, error)
	GetMainSummary(ctx context.Context) (*MainSummary, error)
}

type statisticsService struct {
	db      *gorm.DB
	jobRepo repository.JobRepository
}

func NewStatisticsService(db *gorm.DB, jobRepo repository.JobRepository) StatisticsService {
	return &statisticsService{db: db, jobRepo: jobRepo}
}

func (s *statisticsService) GetDashboardStatistics(ctx context.Context) (*model.StatisticsResponse, error) {
	db := s.db.WithContext(ctx)
	resp := &model.StatisticsResponse{
		VersionsByStatus: []model.VersionStatusCount{},
		ActivePolicies:   []model.PolicyTypeCount{},
	}

	err := db.Model(&model.Version{}).
		Select("approval_status AS status, COUNT(*) AS count").
		Group("approval_status").
		Order("approval_status asc").
		Scan(&resp.VersionsByStatus).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count versions by status: %w", err)
	}

	// Staging counts track the most recently created PENDING version, which is
	// the one editors are working on.
	var latest model.Version
	err = db.Where("approval_status = ?", model.VersionPending).
		Order("created_at desc").
		First(&latest).Error
	switch {
	case err == nil:
		resp.LatestVersionID = &latest.ID
		counts, countErr := s.realmCounts(ctx, "versions.id = ?", model.RealmStaging, latest.ID)
		if countErr != nil {
			return nil, countErr
		}
		resp.StagingCounts = counts
	case err == gorm.ErrRecordNotFound:
		// no pending version; staging counts stay zero
	default:
		return nil, fmt.Errorf("failed to find latest pending version: %w", err)
	}

	mainCounts, err := s.realmCounts(ctx, "1 = 1", model.RealmMain)
	if err != nil {
		return nil, err
	}
	resp.MainCounts = mainCounts

	err = db.Model(&model.DiscountPolicy{}).
		Select("policy_type, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("policy_type").
		Order("policy_type asc").
		Scan(&resp.ActivePolicies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active policies: %w", err)
	}

	jobs, err := s.jobRepo.ListRecent(ctx, recentJobsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent jobs: %w", err)
	}
	resp.RecentJobs = jobs

	if err := db.Model(&model.User{}).Count(&resp.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	return resp, nil
}

func (s *statisticsService) GetMainSummary(ctx context.Context) (*MainSummary, error) {
	counts, err := s.realmCounts(ctx, "1 = 1", model.RealmMain)
	if err != nil {
		return nil, err
	}

	summary := &MainSummary{Counts: counts}

	var last model.Version
	err = s.db.WithContext(ctx).
		Where("main_sync_status = ?", model.SyncSynced).
		Order("updated_at desc").
		First(&last).Error
	switch {
	case err == nil:
		summary.LastSyncedVersion = &last
	case err == gorm.ErrRecordNotFound:
		// nothing pushed yet
	default:
		return nil, fmt.Errorf("failed to find last synced version: %w", err)
	}

	return summary, nil
}

// realmCounts walks the brand tree level by level with IN-subqueries, the same
// shape the cascade deletes use. versionCond narrows the brand scope.
func (s *statisticsService) realmCounts(ctx context.Context, versionCond string, realm string, args ...interface{}) (model.EntityCounts, error) {
	db := s.db.WithContext(ctx)
	var counts model.EntityCounts

	brandScope := db.Model(&model.Brand{}).Select("brands.id").
		Joins("INNER JOIN versions ON versions.id = brands.version_id").
		Where("brands.realm = ?", realm).
		Where(versionCond, args...)
	err := db.Model(&model.Brand{}).
		Joins("INNER JOIN versions ON versions.id = brands.version_id").
		Where("brands.realm = ?", realm).
		Where(versionCond, args...).
		Count(&counts.Brands).Error
	if err != nil {
		return counts, fmt.Errorf("failed to count brands: %w", err)
	}

	lines := db.Model(&model.VehicleLine{}).Select("id").Where("brand_id IN (?)", brandScope)
	if err := db.Model(&model.VehicleLine{}).Where("brand_id IN (?)", brandScope).Count(&counts.VehicleLines).Error; err != nil {
		return counts, fmt.Errorf("failed to count vehicle lines: %w", err)
	}

	models := db.Model(&model.CarModel{}).Select("id").Where("vehicle_line_id IN (?)", lines)
	if err := db.Model(&model.CarModel{}).Where("vehicle_line_id IN (?)", lines).Count(&counts.Models).Error; err != nil {
		return counts, fmt.Errorf("failed to count models: %w", err)
	}

	trims := db.Model(&model.Trim{}).Select("id").Where("model_id IN (?)", models)
	if err := db.Model(&model.Trim{}).Where("model_id IN (?)", models).Count(&counts.Trims).Error; err != nil {
		return counts, fmt.Errorf("failed to count trims: %w", err)
	}

	if err := db.Model(&model.Option{}).Where("trim_id IN (?)", trims).Count(&counts.Options).Error; err != nil {
		return counts, fmt.Errorf("failed to count options: %w", err)
	}

	return counts, nil
}
