package service

import (
	"context"
	"errors"
	"testing"

	"carcatalog/internal/model"
	"carcatalog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionService_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestVersionService(db)
	admin := createTestUser(t, db, model.RoleAdmin, model.PositionManager)

	created, err := svc.CreateVersion(ctx(), CreateVersionRequest{VersionName: "2026-Q1", Description: "first cut"}, admin.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.VersionPending, created.ApprovalStatus)
	assert.Equal(t, model.SyncNone, created.MainSyncStatus)

	_, err = svc.CreateVersion(ctx(), CreateVersionRequest{VersionName: "2026-Q2"}, admin.ID.String())
	require.NoError(t, err)

	t.Run("unfiltered", func(t *testing.T) {
		list, total, err := svc.ListVersions(ctx(), repository.VersionFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, list, 2)
	})

	t.Run("status filter", func(t *testing.T) {
		list, total, err := svc.ListVersions(ctx(), repository.VersionFilter{Status: model.VersionApproved})
		require.NoError(t, err)
		assert.EqualValues(t, 0, total)
		assert.Empty(t, list)
	})
}

func TestVersionService_Approve(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestVersionService(db)
	manager := createTestUser(t, db, model.RoleUser, model.PositionManager)
	employee := createTestUser(t, db, model.RoleUser, model.PositionEmployee)

	version := createTestVersion(t, db, "v1", manager)
	seedBrandTree(t, db, version, "Hyundai")

	t.Run("employee cannot approve", func(t *testing.T) {
		_, err := svc.Approve(ctx(), version.ID.String(), employee.ID.String())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission denied")
	})

	t.Run("manager approves and content is pushed to main", func(t *testing.T) {
		resp, err := svc.Approve(ctx(), version.ID.String(), manager.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.VersionApproved, resp.ApprovalStatus)
		assert.Equal(t, model.SyncSynced, resp.MainSyncStatus)
		assert.False(t, resp.PushFailed)

		var mainBrands []model.Brand
		require.NoError(t, db.Where("realm = ?", model.RealmMain).Find(&mainBrands).Error)
		require.Len(t, mainBrands, 1)
		assert.Equal(t, "Hyundai", mainBrands[0].Name)

		// Copies get fresh IDs; the staging row must still exist untouched.
		var stagingBrands []model.Brand
		require.NoError(t, db.Where("version_id = ? AND realm = ?", version.ID, model.RealmStaging).Find(&stagingBrands).Error)
		require.Len(t, stagingBrands, 1)
		assert.NotEqual(t, stagingBrands[0].ID, mainBrands[0].ID)

		var mainOptions int64
		require.NoError(t, db.Model(&model.Option{}).
			Joins("JOIN trims ON trims.id = options.trim_id").
			Joins("JOIN models ON models.id = trims.model_id").
			Joins("JOIN vehicle_lines ON vehicle_lines.id = models.vehicle_line_id").
			Joins("JOIN brands ON brands.id = vehicle_lines.brand_id").
			Where("brands.realm = ?", model.RealmMain).
			Count(&mainOptions).Error)
		assert.EqualValues(t, 1, mainOptions)
	})

	t.Run("second approve fails", func(t *testing.T) {
		_, err := svc.Approve(ctx(), version.ID.String(), manager.ID.String())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already APPROVED")
	})
}

// failingCatalogRepo makes every main-realm wipe fail, simulating a main DB
// that is unreachable at push time.
type failingCatalogRepo struct {
	repository.CatalogRepository
}

func (failingCatalogRepo) DeleteRealm(ctx context.Context, realm string) error {
	return errors.New("main realm unavailable")
}

func TestVersionService_ApprovePushFailure(t *testing.T) {
	db := setupTestDB(t)
	manager := createTestUser(t, db, model.RoleUser, model.PositionManager)
	version := createTestVersion(t, db, "v1", manager)
	seedBrandTree(t, db, version, "Hyundai")

	svc := NewVersionService(
		db,
		repository.NewVersionRepository(db),
		failingCatalogRepo{repository.NewCatalogRepository(db)},
		repository.NewDiscountRepository(db),
		repository.NewJobRepository(db),
		repository.NewUserRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		noopBroadcaster{},
	)

	resp, err := svc.Approve(ctx(), version.ID.String(), manager.ID.String())
	require.NoError(t, err)

	// The approval itself sticks; only the sync state reports the failure.
	assert.Equal(t, model.VersionApproved, resp.ApprovalStatus)
	assert.Equal(t, model.SyncFailed, resp.MainSyncStatus)
	assert.True(t, resp.PushFailed)

	var saved model.Version
	require.NoError(t, db.First(&saved, "id = ?", version.ID).Error)
	assert.Equal(t, model.VersionApproved, saved.ApprovalStatus)
	assert.Equal(t, model.SyncFailed, saved.MainSyncStatus)

	// The failed push rolled back, so nothing reached the main realm.
	var mainBrands int64
	require.NoError(t, db.Model(&model.Brand{}).Where("realm = ?", model.RealmMain).Count(&mainBrands).Error)
	assert.Zero(t, mainBrands)

	// Manual retry path: a healthy upload-to-main clears the failure without
	// touching the approval status.
	healthy := newTestVersionService(db)
	retried, err := healthy.UploadToMain(ctx(), version.ID.String(), manager.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.VersionApproved, retried.ApprovalStatus)
	assert.Equal(t, model.SyncSynced, retried.MainSyncStatus)
}

func TestVersionService_Reject(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestVersionService(db)
	ceo := createTestUser(t, db, model.RoleUser, model.PositionCEO)
	version := createTestVersion(t, db, "v1", ceo)

	t.Run("reason is mandatory", func(t *testing.T) {
		_, err := svc.Reject(ctx(), version.ID.String(), ceo.ID.String(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reason is required")
	})

	t.Run("reject records the reason", func(t *testing.T) {
		resp, err := svc.Reject(ctx(), version.ID.String(), ceo.ID.String(), "pricing is off")
		require.NoError(t, err)
		assert.Equal(t, model.VersionRejected, resp.ApprovalStatus)
		assert.Equal(t, "pricing is off", resp.RejectionReason)
	})

	t.Run("re-reject fails and keeps the first reason", func(t *testing.T) {
		_, err := svc.Reject(ctx(), version.ID.String(), ceo.ID.String(), "second opinion")
		require.Error(t, err)

		var stored model.Version
		require.NoError(t, db.First(&stored, "id = ?", version.ID).Error)
		assert.Equal(t, "pricing is off", stored.RejectionReason)
	})
}

func TestVersionService_Migrate(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestVersionService(db)
	admin := createTestUser(t, db, model.RoleAdmin, model.PositionEmployee)
	version := createTestVersion(t, db, "v1", admin)
	seedBrandTree(t, db, version, "Kia")

	t.Run("pending cannot be migrated", func(t *testing.T) {
		_, err := svc.Migrate(ctx(), version.ID.String(), admin.ID.String())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only APPROVED versions")
	})

	t.Run("approved migrates", func(t *testing.T) {
		_, err := svc.Approve(ctx(), version.ID.String(), admin.ID.String())
		require.NoError(t, err)

		resp, err := svc.Migrate(ctx(), version.ID.String(), admin.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.VersionMigrated, resp.ApprovalStatus)
		assert.NotNil(t, resp.MigrationDate)
	})

	t.Run("migrated version cannot be deleted", func(t *testing.T) {
		err := svc.DeleteVersion(ctx(), version.ID.String(), admin.ID.String())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "can no longer be deleted")
	})
}

func TestVersionService_Delete(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestVersionService(db)
	admin := createTestUser(t, db, model.RoleAdmin, model.PositionEmployee)
	version := createTestVersion(t, db, "scratch", admin)
	seedBrandTree(t, db, version, "Genesis")

	require.NoError(t, svc.DeleteVersion(ctx(), version.ID.String(), admin.ID.String()))

	var count int64
	require.NoError(t, db.Model(&model.Version{}).Where("id = ?", version.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	require.NoError(t, db.Model(&model.Brand{}).Where("version_id = ?", version.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestVersionService_DownloadFromMain(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestVersionService(db)
	admin := createTestUser(t, db, model.RoleAdmin, model.PositionManager)

	// v1 establishes the main realm content.
	v1 := createTestVersion(t, db, "v1", admin)
	seedBrandTree(t, db, v1, "Hyundai")
	_, err := svc.Approve(ctx(), v1.ID.String(), admin.ID.String())
	require.NoError(t, err)

	// v2 drifts, gets approved, then pulls main back in.
	v2 := createTestVersion(t, db, "v2", admin)
	seedBrandTree(t, db, v2, "Renault")
	_, err = svc.Approve(ctx(), v2.ID.String(), admin.ID.String())
	require.NoError(t, err)

	// Main now holds Renault (v2's push overwrote v1's).
	resp, err := svc.DownloadFromMain(ctx(), v1.ID.String(), admin.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.VersionPending, resp.ApprovalStatus, "a synced staging copy no longer matches its approval")

	var names []string
	require.NoError(t, db.Model(&model.Brand{}).
		Where("version_id = ? AND realm = ?", v1.ID, model.RealmStaging).
		Pluck("name", &names).Error)
	require.Len(t, names, 1)
	assert.Equal(t, "Renault", names[0])

	var stored model.Version
	require.NoError(t, db.First(&stored, "id = ?", v1.ID).Error)
	assert.Nil(t, stored.ApprovedBy)
	assert.Empty(t, stored.RejectionReason)
}

func TestVersionService_UploadToMain(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestVersionService(db)
	admin := createTestUser(t, db, model.RoleAdmin, model.PositionEmployee)
	version := createTestVersion(t, db, "v1", admin)
	seedBrandTree(t, db, version, "SsangYong")

	resp, err := svc.UploadToMain(ctx(), version.ID.String(), admin.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.SyncSynced, resp.MainSyncStatus)
	// A manual push does not touch the approval workflow.
	assert.Equal(t, model.VersionPending, resp.ApprovalStatus)

	var count int64
	require.NoError(t, db.Model(&model.Brand{}).Where("realm = ?", model.RealmMain).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestVersionService_GetVersionCounts(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestVersionService(db)
	admin := createTestUser(t, db, model.RoleAdmin, model.PositionEmployee)
	version := createTestVersion(t, db, "v1", admin)
	seedBrandTree(t, db, version, "Hyundai")
	seedBrandTree(t, db, version, "Kia")

	detail, err := svc.GetVersion(ctx(), version.ID.String())
	require.NoError(t, err)
	assert.EqualValues(t, 2, detail.Counts.Brands)
	assert.EqualValues(t, 2, detail.Counts.VehicleLines)
	assert.EqualValues(t, 2, detail.Counts.Models)
	assert.EqualValues(t, 2, detail.Counts.Trims)
	assert.EqualValues(t, 2, detail.Counts.Options)
}
