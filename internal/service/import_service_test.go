package service

import (
	"testing"
	"time"

	"carcatalog/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []interface{}{
		"brand", "vehicle_line", "model", "model_code", "release_year", "model_price",
		"trim", "car_type", "fuel", "cc", "trim_price",
		"option", "option_code", "option_category", "option_price",
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	return f
}

// waitForJob polls until the job reaches a terminal state.
func waitForJob(t *testing.T, svc ImportService, jobID string) *model.ImportJob {
	t.Helper()
	var job *model.ImportJob
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.GetJob(ctx(), jobID)
		return err == nil && job.Terminal()
	}, 5*time.Second, 20*time.Millisecond)
	return job
}

func TestImportService_StartImport(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestImportService(db)
	admin := createTestUser(t, db, model.RoleAdmin, model.PositionEmployee)
	version := createTestVersion(t, db, "v1", admin)

	f := buildSheet(t, [][]interface{}{
		{"Hyundai", "SUV", "Tucson", "NX4", 2026, "35,000,000", "Premium", "SUV", "GASOLINE", 1998, "38000000", "Sunroof", "SR", "EXTERIOR", "900000"},
		{"Hyundai", "SUV", "Tucson", "NX4", 2026, "35,000,000", "Premium", "SUV", "GASOLINE", 1998, "38000000", "HUD", "HD", "INTERIOR", "700000"},
		{"Hyundai", "Sedan", "Sonata", "DN8", 2025, "29000000", "Exclusive", "SEDAN", "HYBRID", 1999, "32000000"},
		{"Kia"},
	})

	job, err := svc.StartImport(ctx(), version.ID.String(), admin.ID.String(), "catalog.xlsx", "KR", f)
	require.NoError(t, err)
	assert.Equal(t, 4, job.TotalRows)

	done := waitForJob(t, svc, job.ID.String())
	require.Equal(t, model.JobCompleted, done.Status, done.ErrorDetail)
	assert.Equal(t, 4, done.ProcessedRows)
	assert.NotNil(t, done.FinishedAt)

	t.Run("tree shape", func(t *testing.T) {
		var brands []model.Brand
		require.NoError(t, db.Where("version_id = ? AND realm = ?", version.ID, model.RealmStaging).Order("name").Find(&brands).Error)
		require.Len(t, brands, 2)
		assert.Equal(t, "Hyundai", brands[0].Name)
		assert.Equal(t, "KR", brands[0].Country)

		var lines, options int64
		require.NoError(t, db.Model(&model.VehicleLine{}).Where("brand_id = ?", brands[0].ID).Count(&lines).Error)
		assert.EqualValues(t, 2, lines, "repeated brand rows must not duplicate the vehicle line")

		require.NoError(t, db.Model(&model.Option{}).Count(&options).Error)
		assert.EqualValues(t, 2, options)
	})

	t.Run("numeric cell parsing", func(t *testing.T) {
		var tucson model.CarModel
		require.NoError(t, db.First(&tucson, "name = ?", "Tucson").Error)
		assert.Equal(t, 2026, tucson.ReleaseYear)
		assert.Equal(t, "35000000", tucson.Price.String(), "thousands separators are stripped")
	})
}

func TestImportService_Rejections(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestImportService(db)
	admin := createTestUser(t, db, model.RoleAdmin, model.PositionEmployee)

	t.Run("non-pending version", func(t *testing.T) {
		version := createTestVersion(t, db, "approved", admin)
		require.NoError(t, db.Model(version).Update("approval_status", model.VersionApproved).Error)

		f := buildSheet(t, [][]interface{}{{"Hyundai"}})
		_, err := svc.StartImport(ctx(), version.ID.String(), admin.ID.String(), "x.xlsx", "KR", f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only PENDING versions")
	})

	t.Run("header-only sheet", func(t *testing.T) {
		version := createTestVersion(t, db, "empty", admin)
		f := buildSheet(t, nil)
		_, err := svc.StartImport(ctx(), version.ID.String(), admin.ID.String(), "x.xlsx", "KR", f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no data rows")
	})
}
