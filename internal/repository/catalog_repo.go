package repository

import (
	"context"

	"carcatalog/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository is the data access layer for the version-scoped
// brand -> vehicle line -> model -> trim -> option tree. Every query is
// scoped by version and realm (staging working copy vs main-DB mirror).
//
// Deletes cascade down the tree explicitly with subqueries instead of
// relying on FK cascade, so behavior is identical across postgres and the
// sqlite test database.
type CatalogRepository interface {
	// Brand level
	CreateBrand(ctx context.Context, brand *model.Brand) error
	FindBrand(ctx context.Context, versionID, brandID uuid.UUID, realm string) (*model.Brand, error)
	UpdateBrand(ctx context.Context, brand *model.Brand) error
	DeleteBrand(ctx context.Context, brandID uuid.UUID) error
	ListBrands(ctx context.Context, versionID uuid.UUID, realm string, page, limit int, deep bool) ([]model.Brand, int64, error)

	// VehicleLine level
	CreateVehicleLine(ctx context.Context, line *model.VehicleLine) error
	FindVehicleLine(ctx context.Context, brandID, lineID uuid.UUID) (*model.VehicleLine, error)
	UpdateVehicleLine(ctx context.Context, line *model.VehicleLine) error
	DeleteVehicleLine(ctx context.Context, lineID uuid.UUID) error
	ListVehicleLines(ctx context.Context, versionID uuid.UUID, realm string, page, limit int) ([]model.VehicleLine, int64, error)

	// CarModel level
	CreateModel(ctx context.Context, m *model.CarModel) error
	FindModel(ctx context.Context, lineID, modelID uuid.UUID) (*model.CarModel, error)
	UpdateModel(ctx context.Context, m *model.CarModel) error
	DeleteModel(ctx context.Context, modelID uuid.UUID) error

	// Trim level
	CreateTrim(ctx context.Context, trim *model.Trim) error
	FindTrim(ctx context.Context, modelID, trimID uuid.UUID) (*model.Trim, error)
	FindTrimInLine(ctx context.Context, lineID, trimID uuid.UUID) (*model.Trim, error)
	UpdateTrim(ctx context.Context, trim *model.Trim) error
	DeleteTrim(ctx context.Context, trimID uuid.UUID) error

	// Option level
	CreateOption(ctx context.Context, opt *model.Option) error
	FindOption(ctx context.Context, trimID, optionID uuid.UUID) (*model.Option, error)
	UpdateOption(ctx context.Context, opt *model.Option) error
	DeleteOption(ctx context.Context, optionID uuid.UUID) error

	// Tree operations used by sync and statistics
	LoadTree(ctx context.Context, versionID uuid.UUID, realm string) ([]model.Brand, error)
	DeleteTree(ctx context.Context, versionID uuid.UUID, realm string) error
	DeleteRealm(ctx context.Context, realm string) error
	Counts(ctx context.Context, versionID uuid.UUID, realm string) (model.EntityCounts, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// --- Brand ---

func (r *catalogRepository) CreateBrand(ctx context.Context, brand *model.Brand) error {
	return GetDB(ctx, r.db).Create(brand).Error
}

func (r *catalogRepository) FindBrand(ctx context.Context, versionID, brandID uuid.UUID, realm string) (*model.Brand, error) {
	var brand model.Brand
	err := GetDB(ctx, r.db).
		Where("id = ? AND version_id = ? AND realm = ?", brandID, versionID, realm).
		First(&brand).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

func (r *catalogRepository) UpdateBrand(ctx context.Context, brand *model.Brand) error {
	return GetDB(ctx, r.db).Save(brand).Error
}

func (r *catalogRepository) DeleteBrand(ctx context.Context, brandID uuid.UUID) error {
	db := GetDB(ctx, r.db)
	lines := db.Model(&model.VehicleLine{}).Select("id").Where("brand_id = ?", brandID)
	if err := r.deleteBelowLines(db, lines); err != nil {
		return err
	}
	if err := db.Where("brand_id = ?", brandID).Delete(&model.VehicleLine{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", brandID).Delete(&model.Brand{}).Error
}

// ListBrands pages over one realm. A nil versionID skips the version filter,
// which is how the main realm is listed: its rows keep whichever version
// pushed them.
func (r *catalogRepository) ListBrands(ctx context.Context, versionID uuid.UUID, realm string, page, limit int, deep bool) ([]model.Brand, int64, error) {
	var brands []model.Brand
	var total int64

	db := GetDB(ctx, r.db)
	scope := db.Where("realm = ?", realm)
	if versionID != uuid.Nil {
		scope = scope.Where("version_id = ?", versionID)
	}

	if err := scope.Session(&gorm.Session{}).Model(&model.Brand{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := scope.Session(&gorm.Session{})
	if deep {
		query = query.
			Preload("VehicleLines").
			Preload("VehicleLines.Models").
			Preload("VehicleLines.Models.Trims").
			Preload("VehicleLines.Models.Trims.Options")
	}

	offset := (page - 1) * limit
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&brands).Error; err != nil {
		return nil, 0, err
	}

	return brands, total, nil
}

// --- VehicleLine ---

func (r *catalogRepository) CreateVehicleLine(ctx context.Context, line *model.VehicleLine) error {
	return GetDB(ctx, r.db).Create(line).Error
}

func (r *catalogRepository) FindVehicleLine(ctx context.Context, brandID, lineID uuid.UUID) (*model.VehicleLine, error) {
	var line model.VehicleLine
	err := GetDB(ctx, r.db).
		Where("id = ? AND brand_id = ?", lineID, brandID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *catalogRepository) UpdateVehicleLine(ctx context.Context, line *model.VehicleLine) error {
	return GetDB(ctx, r.db).Save(line).Error
}

func (r *catalogRepository) DeleteVehicleLine(ctx context.Context, lineID uuid.UUID) error {
	db := GetDB(ctx, r.db)
	models := db.Model(&model.CarModel{}).Select("id").Where("vehicle_line_id = ?", lineID)
	if err := r.deleteBelowModels(db, models); err != nil {
		return err
	}
	if err := db.Where("vehicle_line_id = ?", lineID).Delete(&model.CarModel{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", lineID).Delete(&model.VehicleLine{}).Error
}

// ListVehicleLines is the line-centric loading strategy: each page of lines
// carries its own brand plus the nested models/trims/options.
func (r *catalogRepository) ListVehicleLines(ctx context.Context, versionID uuid.UUID, realm string, page, limit int) ([]model.VehicleLine, int64, error) {
	var lines []model.VehicleLine
	var total int64

	db := GetDB(ctx, r.db)
	base := db.Model(&model.VehicleLine{}).
		Joins("JOIN brands ON brands.id = vehicle_lines.brand_id").
		Where("brands.version_id = ? AND brands.realm = ?", versionID, realm)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.
		Joins("JOIN brands ON brands.id = vehicle_lines.brand_id").
		Where("brands.version_id = ? AND brands.realm = ?", versionID, realm).
		Preload("Brand").
		Preload("Models").
		Preload("Models.Trims").
		Preload("Models.Trims.Options").
		Order("vehicle_lines.name ASC").
		Offset(offset).Limit(limit).
		Find(&lines).Error
	if err != nil {
		return nil, 0, err
	}

	return lines, total, nil
}

// --- CarModel ---

func (r *catalogRepository) CreateModel(ctx context.Context, m *model.CarModel) error {
	return GetDB(ctx, r.db).Create(m).Error
}

func (r *catalogRepository) FindModel(ctx context.Context, lineID, modelID uuid.UUID) (*model.CarModel, error) {
	var m model.CarModel
	err := GetDB(ctx, r.db).
		Where("id = ? AND vehicle_line_id = ?", modelID, lineID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *catalogRepository) UpdateModel(ctx context.Context, m *model.CarModel) error {
	return GetDB(ctx, r.db).Save(m).Error
}

func (r *catalogRepository) DeleteModel(ctx context.Context, modelID uuid.UUID) error {
	db := GetDB(ctx, r.db)
	trims := db.Model(&model.Trim{}).Select("id").Where("model_id = ?", modelID)
	if err := db.Where("trim_id IN (?)", trims).Delete(&model.Option{}).Error; err != nil {
		return err
	}
	if err := db.Where("model_id = ?", modelID).Delete(&model.Trim{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", modelID).Delete(&model.CarModel{}).Error
}

// --- Trim ---

func (r *catalogRepository) CreateTrim(ctx context.Context, trim *model.Trim) error {
	return GetDB(ctx, r.db).Create(trim).Error
}

func (r *catalogRepository) FindTrim(ctx context.Context, modelID, trimID uuid.UUID) (*model.Trim, error) {
	var trim model.Trim
	err := GetDB(ctx, r.db).
		Where("id = ? AND model_id = ?", trimID, modelID).
		First(&trim).Error
	if err != nil {
		return nil, err
	}
	return &trim, nil
}

// FindTrimInLine resolves a trim through any model of the given vehicle line.
func (r *catalogRepository) FindTrimInLine(ctx context.Context, lineID, trimID uuid.UUID) (*model.Trim, error) {
	var trim model.Trim
	err := GetDB(ctx, r.db).
		Joins("JOIN models ON models.id = trims.model_id").
		Where("trims.id = ? AND models.vehicle_line_id = ?", trimID, lineID).
		First(&trim).Error
	if err != nil {
		return nil, err
	}
	return &trim, nil
}

func (r *catalogRepository) UpdateTrim(ctx context.Context, trim *model.Trim) error {
	return GetDB(ctx, r.db).Save(trim).Error
}

func (r *catalogRepository) DeleteTrim(ctx context.Context, trimID uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("trim_id = ?", trimID).Delete(&model.Option{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", trimID).Delete(&model.Trim{}).Error
}

// --- Option ---

func (r *catalogRepository) CreateOption(ctx context.Context, opt *model.Option) error {
	return GetDB(ctx, r.db).Create(opt).Error
}

func (r *catalogRepository) FindOption(ctx context.Context, trimID, optionID uuid.UUID) (*model.Option, error) {
	var opt model.Option
	err := GetDB(ctx, r.db).
		Where("id = ? AND trim_id = ?", optionID, trimID).
		First(&opt).Error
	if err != nil {
		return nil, err
	}
	return &opt, nil
}

func (r *catalogRepository) UpdateOption(ctx context.Context, opt *model.Option) error {
	return GetDB(ctx, r.db).Save(opt).Error
}

func (r *catalogRepository) DeleteOption(ctx context.Context, optionID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", optionID).Delete(&model.Option{}).Error
}

// --- Tree operations ---

// LoadTree returns every brand of the version/realm with the full subtree
// preloaded. Used by the staging <-> main copy operations.
func (r *catalogRepository) LoadTree(ctx context.Context, versionID uuid.UUID, realm string) ([]model.Brand, error) {
	var brands []model.Brand
	err := GetDB(ctx, r.db).
		Where("version_id = ? AND realm = ?", versionID, realm).
		Preload("VehicleLines").
		Preload("VehicleLines.Models").
		Preload("VehicleLines.Models.Trims").
		Preload("VehicleLines.Models.Trims.Options").
		Order("name ASC").
		Find(&brands).Error
	if err != nil {
		return nil, err
	}
	return brands, nil
}

// DeleteTree removes the whole catalog subtree of one version/realm.
func (r *catalogRepository) DeleteTree(ctx context.Context, versionID uuid.UUID, realm string) error {
	db := GetDB(ctx, r.db)
	brands := db.Model(&model.Brand{}).Select("id").Where("version_id = ? AND realm = ?", versionID, realm)
	return r.deleteBelowBrands(db, brands, versionID, realm)
}

// DeleteRealm wipes the whole realm regardless of version. The main realm is
// overwritten this way when an approved version is pushed.
func (r *catalogRepository) DeleteRealm(ctx context.Context, realm string) error {
	db := GetDB(ctx, r.db)
	brands := db.Model(&model.Brand{}).Select("id").Where("realm = ?", realm)
	lines := db.Model(&model.VehicleLine{}).Select("id").Where("brand_id IN (?)", brands)
	if err := r.deleteBelowLines(db, lines); err != nil {
		return err
	}
	if err := db.Where("brand_id IN (?)", brands).Delete(&model.VehicleLine{}).Error; err != nil {
		return err
	}
	return db.Where("realm = ?", realm).Delete(&model.Brand{}).Error
}

func (r *catalogRepository) Counts(ctx context.Context, versionID uuid.UUID, realm string) (model.EntityCounts, error) {
	db := GetDB(ctx, r.db)
	var counts model.EntityCounts

	brands := db.Model(&model.Brand{}).Select("id").Where("version_id = ? AND realm = ?", versionID, realm)
	if err := db.Model(&model.Brand{}).Where("version_id = ? AND realm = ?", versionID, realm).Count(&counts.Brands).Error; err != nil {
		return counts, err
	}

	lines := db.Model(&model.VehicleLine{}).Select("id").Where("brand_id IN (?)", brands)
	if err := db.Model(&model.VehicleLine{}).Where("brand_id IN (?)", brands).Count(&counts.VehicleLines).Error; err != nil {
		return counts, err
	}

	models := db.Model(&model.CarModel{}).Select("id").Where("vehicle_line_id IN (?)", lines)
	if err := db.Model(&model.CarModel{}).Where("vehicle_line_id IN (?)", lines).Count(&counts.Models).Error; err != nil {
		return counts, err
	}

	trims := db.Model(&model.Trim{}).Select("id").Where("model_id IN (?)", models)
	if err := db.Model(&model.Trim{}).Where("model_id IN (?)", models).Count(&counts.Trims).Error; err != nil {
		return counts, err
	}

	if err := db.Model(&model.Option{}).Where("trim_id IN (?)", trims).Count(&counts.Options).Error; err != nil {
		return counts, err
	}

	return counts, nil
}

// --- cascade helpers ---

func (r *catalogRepository) deleteBelowBrands(db *gorm.DB, brands *gorm.DB, versionID uuid.UUID, realm string) error {
	lines := db.Model(&model.VehicleLine{}).Select("id").Where("brand_id IN (?)", brands)
	if err := r.deleteBelowLines(db, lines); err != nil {
		return err
	}
	if err := db.Where("brand_id IN (?)", brands).Delete(&model.VehicleLine{}).Error; err != nil {
		return err
	}
	return db.Where("version_id = ? AND realm = ?", versionID, realm).Delete(&model.Brand{}).Error
}

func (r *catalogRepository) deleteBelowLines(db *gorm.DB, lines *gorm.DB) error {
	models := db.Model(&model.CarModel{}).Select("id").Where("vehicle_line_id IN (?)", lines)
	if err := r.deleteBelowModels(db, models); err != nil {
		return err
	}
	return db.Where("vehicle_line_id IN (?)", lines).Delete(&model.CarModel{}).Error
}

func (r *catalogRepository) deleteBelowModels(db *gorm.DB, models *gorm.DB) error {
	trims := db.Model(&model.Trim{}).Select("id").Where("model_id IN (?)", models)
	if err := db.Where("trim_id IN (?)", trims).Delete(&model.Option{}).Error; err != nil {
		return err
	}
	return db.Where("model_id IN (?)", models).Delete(&model.Trim{}).Error
}
