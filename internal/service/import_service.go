package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"carcatalog/internal/model"
	"carcatalog/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Expected sheet layout, one row per deepest entity, header in row 1:
//
//	A brand  B vehicle_line  C model  D model_code  E release_year  F model_price
//	G trim   H car_type      I fuel   J cc          K trim_price
//	L option M option_code   N option_category      O option_price
//
// Rows may stop early: a row with only columns A-B creates just the brand and
// vehicle line. Column A is mandatory on every data row.
const importMinColumns = 1

// progressEvery controls how often job progress is flushed to the DB and the
// websocket hub during a run.
const progressEvery = 25

type ImportService interface {
	StartImport(ctx context.Context, versionID, userID, fileName, country string, f *excelize.File) (*model.ImportJob, error)
	GetJob(ctx context.Context, jobID string) (*model.ImportJob, error)
}

type importService struct {
	db          *gorm.DB
	versionRepo repository.VersionRepository
	jobRepo     repository.JobRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventBroadcaster
}

func NewImportService(
	db *gorm.DB,
	versionRepo repository.VersionRepository,
	jobRepo repository.JobRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventBroadcaster,
) ImportService {
	return &importService{
		db:          db,
		versionRepo: versionRepo,
		jobRepo:     jobRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      events,
	}
}

// StartImport validates the target version, records the job and kicks off the
// ingestion in a background goroutine. The returned job is in PENDING state;
// callers poll GetJob until it turns COMPLETED or FAILED.
func (s *importService) StartImport(ctx context.Context, versionID, userID, fileName, country string, f *excelize.File) (*model.ImportJob, error) {
	vID, err := uuid.Parse(versionID)
	if err != nil {
		return nil, fmt.Errorf("invalid version id: %w", err)
	}

	version, err := s.versionRepo.FindByID(ctx, vID)
	if err != nil {
		return nil, fmt.Errorf("version not found: %w", err)
	}
	if version.ApprovalStatus != model.VersionPending {
		return nil, fmt.Errorf("only PENDING versions accept bulk ingestion (current: %s)", version.ApprovalStatus)
	}

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("the sheet has no data rows")
	}
	dataRows := rows[1:]

	startedBy := parseOptionalUUID(userID)
	job := model.ImportJob{
		VersionID: vID,
		FileName:  fileName,
		Country:   country,
		Status:    model.JobPending,
		TotalRows: len(dataRows),
		StartedBy: startedBy,
	}
	if err := s.jobRepo.Create(ctx, &job); err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	_ = s.auditEntry(ctx, startedBy, model.ActionStartImport, job.ID.String(), fileName)

	// The request context dies with the HTTP request; the ingestion runs on
	// its own.
	go s.run(context.Background(), job, country, dataRows)

	return &job, nil
}

func (s *importService) GetJob(ctx context.Context, jobID string) (*model.ImportJob, error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return nil, fmt.Errorf("invalid job id: %w", err)
	}
	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("job not found: %w", err)
	}
	return job, nil
}

// run executes the ingestion. Each row is upserted inside one big transaction
// so a failing sheet leaves staging untouched.
func (s *importService) run(ctx context.Context, job model.ImportJob, country string, rows [][]string) {
	log := logrus.WithFields(logrus.Fields{"job_id": job.ID, "version_id": job.VersionID})

	job.Status = model.JobProcessing
	if err := s.jobRepo.Update(ctx, &job); err != nil {
		log.WithError(err).Error("failed to mark job processing")
		return
	}
	s.broadcastJob(&job)

	processed := 0
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i, row := range rows {
			if len(row) < importMinColumns || strings.TrimSpace(row[0]) == "" {
				continue
			}
			if err := s.upsertRow(txCtx, job.VersionID, country, row); err != nil {
				return fmt.Errorf("row %d: %w", i+2, err)
			}
			processed++
			if processed%progressEvery == 0 {
				if upErr := s.jobRepo.UpdateProgress(txCtx, job.ID, processed); upErr != nil {
					return upErr
				}
				job.ProcessedRows = processed
				s.broadcastJob(&job)
			}
		}
		return nil
	})

	now := time.Now()
	job.ProcessedRows = processed
	job.FinishedAt = &now
	if err != nil {
		log.WithError(err).Error("excel import failed")
		job.Status = model.JobFailed
		job.ErrorDetail = err.Error()
	} else {
		job.Status = model.JobCompleted
	}
	if upErr := s.jobRepo.Update(ctx, &job); upErr != nil {
		log.WithError(upErr).Error("failed to finalize job")
	}
	s.broadcastJob(&job)

	_ = s.auditEntry(ctx, job.StartedBy, model.ActionFinishImport, job.ID.String(), job.Status)
	log.WithFields(logrus.Fields{"status": job.Status, "rows": processed}).Info("excel import finished")
}

// upsertRow walks one sheet row down the brand tree, creating each level when
// it is not already present under its parent. Matching is by name.
func (s *importService) upsertRow(ctx context.Context, versionID uuid.UUID, country string, row []string) error {
	db := repository.GetDB(ctx, s.db)
	col := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	brand := model.Brand{VersionID: versionID, Realm: model.RealmStaging, Name: col(0), Country: country}
	err := db.Where("version_id = ? AND realm = ? AND name = ?", versionID, model.RealmStaging, brand.Name).
		FirstOrCreate(&brand).Error
	if err != nil {
		return fmt.Errorf("brand '%s': %w", brand.Name, err)
	}

	lineName := col(1)
	if lineName == "" {
		return nil
	}
	line := model.VehicleLine{BrandID: brand.ID, Name: lineName}
	if err := db.Where("brand_id = ? AND name = ?", brand.ID, lineName).FirstOrCreate(&line).Error; err != nil {
		return fmt.Errorf("vehicle line '%s': %w", lineName, err)
	}

	modelName := col(2)
	if modelName == "" {
		return nil
	}
	carModel := model.CarModel{
		VehicleLineID: line.ID,
		Name:          modelName,
		Code:          col(3),
		ReleaseYear:   parseIntCell(col(4)),
		Price:         parseDecimalCell(col(5)),
	}
	err = db.Where("vehicle_line_id = ? AND name = ?", line.ID, modelName).
		FirstOrCreate(&carModel).Error
	if err != nil {
		return fmt.Errorf("model '%s': %w", modelName, err)
	}

	trimName := col(6)
	if trimName == "" {
		return nil
	}
	trim := model.Trim{
		ModelID:   carModel.ID,
		Name:      trimName,
		CarType:   col(7),
		FuelName:  col(8),
		CC:        parseIntCell(col(9)),
		BasePrice: parseDecimalCell(col(10)),
	}
	err = db.Where("model_id = ? AND name = ?", carModel.ID, trimName).
		FirstOrCreate(&trim).Error
	if err != nil {
		return fmt.Errorf("trim '%s': %w", trimName, err)
	}

	optionName := col(11)
	if optionName == "" {
		return nil
	}
	option := model.Option{
		TrimID:   trim.ID,
		Name:     optionName,
		Code:     col(12),
		Category: col(13),
		Price:    parseDecimalCell(col(14)),
	}
	err = db.Where("trim_id = ? AND name = ?", trim.ID, optionName).
		FirstOrCreate(&option).Error
	if err != nil {
		return fmt.Errorf("option '%s': %w", optionName, err)
	}

	return nil
}

func (s *importService) broadcastJob(job *model.ImportJob) {
	if s.events != nil {
		s.events.BroadcastJSON("import_job", job)
	}
}

func (s *importService) auditEntry(ctx context.Context, userID *uuid.UUID, action, entityID, entityName string) error {
	entry := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
	}
	return s.auditRepo.Log(ctx, &entry)
}

func parseIntCell(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func parseDecimalCell(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}
