package service

import (
	"context"
	"testing"

	"carcatalog/internal/database"
	"carcatalog/internal/model"
	"carcatalog/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// An in-memory sqlite database exists per connection; keep the pool on a
	// single one so every goroutine sees the same data.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// noopBroadcaster swallows websocket events in tests.
type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastJSON(event string, payload interface{}) {}

func createTestUser(t *testing.T, db *gorm.DB, role, position string) *model.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user := &model.User{
		Username: role + "-" + position + "-" + suffix,
		Email:    suffix + "@test.local",
		Password: "not-a-real-hash",
		Role:     role,
		Position: position,
		Status:   model.UserActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestVersion(t *testing.T, db *gorm.DB, name string, createdBy *model.User) *model.Version {
	t.Helper()
	v := &model.Version{VersionName: name, ApprovalStatus: model.VersionPending, MainSyncStatus: model.SyncNone}
	if createdBy != nil {
		v.CreatedBy = &createdBy.ID
	}
	require.NoError(t, db.Create(v).Error)
	return v
}

// seedBrandTree plants a small brand -> line -> model -> trim -> option chain
// in the given version's staging realm and returns the brand.
func seedBrandTree(t *testing.T, db *gorm.DB, version *model.Version, brandName string) *model.Brand {
	t.Helper()
	brand := &model.Brand{VersionID: version.ID, Realm: model.RealmStaging, Name: brandName, Country: "KR"}
	require.NoError(t, db.Create(brand).Error)

	line := &model.VehicleLine{BrandID: brand.ID, Name: brandName + " Line"}
	require.NoError(t, db.Create(line).Error)

	carModel := &model.CarModel{VehicleLineID: line.ID, Name: brandName + " Model", Code: "M-1", ReleaseYear: 2025}
	require.NoError(t, db.Create(carModel).Error)

	trim := &model.Trim{ModelID: carModel.ID, Name: brandName + " Trim", CarType: "SUV", FuelName: "GASOLINE", CC: 1998}
	require.NoError(t, db.Create(trim).Error)

	option := &model.Option{TrimID: trim.ID, Name: brandName + " Option", Code: "OPT-1", Category: "EXTERIOR"}
	require.NoError(t, db.Create(option).Error)

	return brand
}

func newTestVersionService(db *gorm.DB) VersionService {
	return NewVersionService(
		db,
		repository.NewVersionRepository(db),
		repository.NewCatalogRepository(db),
		repository.NewDiscountRepository(db),
		repository.NewJobRepository(db),
		repository.NewUserRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		noopBroadcaster{},
	)
}

func newTestCatalogService(db *gorm.DB) CatalogService {
	return NewCatalogService(
		repository.NewCatalogRepository(db),
		repository.NewVersionRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
	)
}

func newTestDiscountService(db *gorm.DB) DiscountService {
	return NewDiscountService(
		repository.NewDiscountRepository(db),
		repository.NewCatalogRepository(db),
		repository.NewVersionRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
	)
}

func newTestImportService(db *gorm.DB) ImportService {
	return NewImportService(
		db,
		repository.NewVersionRepository(db),
		repository.NewJobRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		noopBroadcaster{},
	)
}

// ctx is a shorthand for tests that do not care about cancellation.
func ctx() context.Context { return context.Background() }
