package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carcatalog/internal/model"
	"carcatalog/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateVersionRequest struct {
	VersionName string `json:"version_name" binding:"required"`
	Description string `json:"description"`
}

type RejectVersionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type VersionResponse struct {
	ID              string  `json:"id"`
	VersionName     string  `json:"version_name"`
	Description     string  `json:"description"`
	ApprovalStatus  string  `json:"approval_status"`
	MainSyncStatus  string  `json:"main_sync_status"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	CreatedBy       *string `json:"created_by"`
	CreatorName     string  `json:"creator_name,omitempty"`
	ApprovedBy      *string `json:"approved_by"`
	ApproverName    string  `json:"approver_name,omitempty"`
	ApprovedAt      *string `json:"approved_at"`
	MigrationDate   *string `json:"migration_date"`
	CreatedAt       string  `json:"created_at"`

	// PushFailed marks the approved-but-push-failed case. The approval
	// itself stands; the caller must retry the main-DB push manually.
	PushFailed bool `json:"push_failed,omitempty"`
}

type VersionDetailResponse struct {
	VersionResponse
	Counts model.EntityCounts `json:"counts"`
}

// --- Interface ---

type VersionService interface {
	CreateVersion(ctx context.Context, req CreateVersionRequest, userID string) (VersionResponse, error)
	GetVersion(ctx context.Context, id string) (VersionDetailResponse, error)
	ListVersions(ctx context.Context, filter repository.VersionFilter) ([]VersionResponse, int64, error)
	DeleteVersion(ctx context.Context, id string, userID string) error
	Approve(ctx context.Context, id string, userID string) (VersionResponse, error)
	Reject(ctx context.Context, id string, userID string, reason string) (VersionResponse, error)
	Migrate(ctx context.Context, id string, userID string) (VersionResponse, error)
	UploadToMain(ctx context.Context, id string, userID string) (VersionResponse, error)
	DownloadFromMain(ctx context.Context, id string, userID string) (VersionResponse, error)
}

type versionService struct {
	db           *gorm.DB
	versionRepo  repository.VersionRepository
	catalogRepo  repository.CatalogRepository
	discountRepo repository.DiscountRepository
	jobRepo      repository.JobRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	events       EventBroadcaster
}

// EventBroadcaster pushes lifecycle notifications to connected dashboards.
// The websocket hub satisfies this; tests pass nil-safe fakes.
type EventBroadcaster interface {
	BroadcastJSON(event string, payload interface{})
}

func NewVersionService(
	db *gorm.DB,
	versionRepo repository.VersionRepository,
	catalogRepo repository.CatalogRepository,
	discountRepo repository.DiscountRepository,
	jobRepo repository.JobRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventBroadcaster,
) VersionService {
	return &versionService{
		db:           db,
		versionRepo:  versionRepo,
		catalogRepo:  catalogRepo,
		discountRepo: discountRepo,
		jobRepo:      jobRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		events:       events,
	}
}

// --- Implementation ---

func (s *versionService) CreateVersion(ctx context.Context, req CreateVersionRequest, userID string) (VersionResponse, error) {
	if req.VersionName == "" {
		return VersionResponse{}, fmt.Errorf("version_name is required")
	}

	var creatorID *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		creatorID = &parsed
	}

	version := model.Version{
		VersionName:    req.VersionName,
		Description:    req.Description,
		ApprovalStatus: model.VersionPending,
		MainSyncStatus: model.SyncNone,
		CreatedBy:      creatorID,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.versionRepo.Create(txCtx, &version); err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}
		return s.audit(txCtx, creatorID, model.ActionCreateVersion, version.ID.String(), version.VersionName, map[string]interface{}{
			"version_name": version.VersionName,
		})
	})
	if err != nil {
		return VersionResponse{}, err
	}

	reloaded, err := s.versionRepo.FindByIDWithUsers(ctx, version.ID)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("failed to reload version: %w", err)
	}

	return toVersionResponse(*reloaded), nil
}

func (s *versionService) GetVersion(ctx context.Context, id string) (VersionDetailResponse, error) {
	versionID, err := uuid.Parse(id)
	if err != nil {
		return VersionDetailResponse{}, fmt.Errorf("invalid version id: %w", err)
	}

	version, err := s.versionRepo.FindByIDWithUsers(ctx, versionID)
	if err != nil {
		return VersionDetailResponse{}, fmt.Errorf("version not found: %w", err)
	}

	counts, err := s.catalogRepo.Counts(ctx, versionID, model.RealmStaging)
	if err != nil {
		return VersionDetailResponse{}, fmt.Errorf("failed to count version entities: %w", err)
	}

	return VersionDetailResponse{
		VersionResponse: toVersionResponse(*version),
		Counts:          counts,
	}, nil
}

func (s *versionService) ListVersions(ctx context.Context, filter repository.VersionFilter) ([]VersionResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	versions, total, err := s.versionRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch versions: %w", err)
	}

	result := make([]VersionResponse, 0, len(versions))
	for _, v := range versions {
		result = append(result, toVersionResponse(v))
	}
	return result, total, nil
}

// DeleteVersion removes a version and its staging content. Migrated versions
// are kept permanently. Main-realm rows are never touched here: they are the
// live catalog regardless of which version produced them.
func (s *versionService) DeleteVersion(ctx context.Context, id string, userID string) error {
	versionID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid version id: %w", err)
	}

	actorID := parseOptionalUUID(userID)

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		version, findErr := s.versionRepo.FindByID(txCtx, versionID)
		if findErr != nil {
			return fmt.Errorf("version not found: %w", findErr)
		}
		if !version.Deletable() {
			return fmt.Errorf("version is %s and can no longer be deleted", version.ApprovalStatus)
		}

		if delErr := s.catalogRepo.DeleteTree(txCtx, versionID, model.RealmStaging); delErr != nil {
			return fmt.Errorf("failed to delete staging data: %w", delErr)
		}
		if delErr := s.discountRepo.DeleteByVersion(txCtx, versionID); delErr != nil {
			return fmt.Errorf("failed to delete discount policies: %w", delErr)
		}
		if delErr := s.jobRepo.DeleteByVersion(txCtx, versionID); delErr != nil {
			return fmt.Errorf("failed to delete import jobs: %w", delErr)
		}
		if delErr := s.versionRepo.Delete(txCtx, versionID); delErr != nil {
			return fmt.Errorf("failed to delete version: %w", delErr)
		}

		return s.audit(txCtx, actorID, model.ActionDeleteVersion, versionID.String(), version.VersionName, nil)
	})
}

// Approve moves PENDING -> APPROVED and pushes the staged content into the
// main realm. The push runs after the approval commits; if it fails the
// version stays APPROVED with MainSyncStatus FAILED and the response carries
// push_failed so the caller can prompt a manual retry.
func (s *versionService) Approve(ctx context.Context, id string, userID string) (VersionResponse, error) {
	versionID, err := uuid.Parse(id)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("invalid version id: %w", err)
	}

	approver, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("approver not found: %w", err)
	}
	if !approver.CanApprove() {
		return VersionResponse{}, fmt.Errorf("permission denied: approving requires the ADMIN role or a MANAGER/CEO position")
	}

	var version *model.Version
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		version, findErr = s.versionRepo.FindByID(txCtx, versionID)
		if findErr != nil {
			return fmt.Errorf("version not found: %w", findErr)
		}
		if version.ApprovalStatus != model.VersionPending {
			return fmt.Errorf("version is already %s", version.ApprovalStatus)
		}

		now := time.Now()
		version.ApprovalStatus = model.VersionApproved
		version.ApprovedBy = &approver.ID
		version.ApprovedAt = &now
		version.RejectionReason = ""

		if saveErr := s.versionRepo.Update(txCtx, version); saveErr != nil {
			return fmt.Errorf("failed to update version: %w", saveErr)
		}

		return s.audit(txCtx, &approver.ID, model.ActionApproveVersion, version.ID.String(), version.VersionName, nil)
	})
	if err != nil {
		return VersionResponse{}, err
	}

	// Push staged content to main. Runs outside the approval transaction so a
	// push failure never rolls back the approval itself.
	pushErr := s.pushToMain(ctx, versionID, &approver.ID)
	if pushErr != nil {
		logrus.WithError(pushErr).WithField("version_id", versionID).Error("main-DB push failed after approval")
		version.MainSyncStatus = model.SyncFailed
	} else {
		version.MainSyncStatus = model.SyncSynced
	}
	if saveErr := s.versionRepo.Update(ctx, version); saveErr != nil {
		return VersionResponse{}, fmt.Errorf("failed to record sync status: %w", saveErr)
	}

	resp := toVersionResponse(*version)
	resp.PushFailed = pushErr != nil
	s.broadcast("version_approved", resp)
	return resp, nil
}

// Reject moves PENDING -> REJECTED. The reason is mandatory and a second
// reject of an already-REJECTED version fails without touching the stored
// reason.
func (s *versionService) Reject(ctx context.Context, id string, userID string, reason string) (VersionResponse, error) {
	if reason == "" {
		return VersionResponse{}, fmt.Errorf("a rejection reason is required")
	}

	versionID, err := uuid.Parse(id)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("invalid version id: %w", err)
	}

	approver, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("user not found: %w", err)
	}
	if !approver.CanApprove() {
		return VersionResponse{}, fmt.Errorf("permission denied: rejecting requires the ADMIN role or a MANAGER/CEO position")
	}

	var version *model.Version
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		version, findErr = s.versionRepo.FindByID(txCtx, versionID)
		if findErr != nil {
			return fmt.Errorf("version not found: %w", findErr)
		}
		if version.ApprovalStatus != model.VersionPending {
			return fmt.Errorf("version is already %s", version.ApprovalStatus)
		}

		now := time.Now()
		version.ApprovalStatus = model.VersionRejected
		version.ApprovedBy = &approver.ID
		version.ApprovedAt = &now
		version.RejectionReason = reason

		if saveErr := s.versionRepo.Update(txCtx, version); saveErr != nil {
			return fmt.Errorf("failed to update version: %w", saveErr)
		}

		return s.audit(txCtx, &approver.ID, model.ActionRejectVersion, version.ID.String(), version.VersionName, map[string]interface{}{
			"reason": reason,
		})
	})
	if err != nil {
		return VersionResponse{}, err
	}

	resp := toVersionResponse(*version)
	s.broadcast("version_rejected", resp)
	return resp, nil
}

// Migrate moves APPROVED -> MIGRATED once the content is confirmed pushed.
// A failed earlier push is retried here before the status flips.
func (s *versionService) Migrate(ctx context.Context, id string, userID string) (VersionResponse, error) {
	versionID, err := uuid.Parse(id)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("invalid version id: %w", err)
	}

	migrator, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("migrator not found: %w", err)
	}
	if !migrator.CanApprove() {
		return VersionResponse{}, fmt.Errorf("permission denied: migrating requires the ADMIN role or a MANAGER/CEO position")
	}

	actorID := parseOptionalUUID(userID)

	version, err := s.versionRepo.FindByID(ctx, versionID)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("version not found: %w", err)
	}
	if version.ApprovalStatus != model.VersionApproved {
		return VersionResponse{}, fmt.Errorf("only APPROVED versions can be migrated (current: %s)", version.ApprovalStatus)
	}

	if version.MainSyncStatus != model.SyncSynced {
		if pushErr := s.pushToMain(ctx, versionID, actorID); pushErr != nil {
			return VersionResponse{}, fmt.Errorf("main-DB push failed, version stays APPROVED: %w", pushErr)
		}
		version.MainSyncStatus = model.SyncSynced
	}

	now := time.Now()
	version.ApprovalStatus = model.VersionMigrated
	version.MigrationDate = &now

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.versionRepo.Update(txCtx, version); saveErr != nil {
			return fmt.Errorf("failed to update version: %w", saveErr)
		}
		return s.audit(txCtx, actorID, model.ActionMigrateVersion, version.ID.String(), version.VersionName, nil)
	})
	if err != nil {
		return VersionResponse{}, err
	}

	resp := toVersionResponse(*version)
	s.broadcast("version_migrated", resp)
	return resp, nil
}

// UploadToMain copies the version's staging tree over the main realm without
// touching the approval status. Also the manual retry path after a failed
// approval push.
func (s *versionService) UploadToMain(ctx context.Context, id string, userID string) (VersionResponse, error) {
	versionID, err := uuid.Parse(id)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("invalid version id: %w", err)
	}

	actorID := parseOptionalUUID(userID)

	version, err := s.versionRepo.FindByID(ctx, versionID)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("version not found: %w", err)
	}

	if pushErr := s.pushToMain(ctx, versionID, actorID); pushErr != nil {
		version.MainSyncStatus = model.SyncFailed
		_ = s.versionRepo.Update(ctx, version)
		return VersionResponse{}, fmt.Errorf("upload to main failed: %w", pushErr)
	}

	version.MainSyncStatus = model.SyncSynced
	if saveErr := s.versionRepo.Update(ctx, version); saveErr != nil {
		return VersionResponse{}, fmt.Errorf("failed to record sync status: %w", saveErr)
	}

	return toVersionResponse(*version), nil
}

// DownloadFromMain resets the version's staging tree to mirror the main realm
// and forces the approval status back to PENDING. The status reset is a
// deliberate consequence of the sync: the staging copy no longer matches what
// was approved, so the approval cannot stand.
func (s *versionService) DownloadFromMain(ctx context.Context, id string, userID string) (VersionResponse, error) {
	versionID, err := uuid.Parse(id)
	if err != nil {
		return VersionResponse{}, fmt.Errorf("invalid version id: %w", err)
	}

	actorID := parseOptionalUUID(userID)

	var version *model.Version
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		version, findErr = s.versionRepo.FindByID(txCtx, versionID)
		if findErr != nil {
			return fmt.Errorf("version not found: %w", findErr)
		}

		mainTree, loadErr := s.loadMainTree(txCtx)
		if loadErr != nil {
			return fmt.Errorf("failed to load main data: %w", loadErr)
		}

		if delErr := s.catalogRepo.DeleteTree(txCtx, versionID, model.RealmStaging); delErr != nil {
			return fmt.Errorf("failed to clear staging data: %w", delErr)
		}
		if copyErr := s.copyTree(txCtx, mainTree, versionID, model.RealmStaging); copyErr != nil {
			return fmt.Errorf("failed to copy main data into staging: %w", copyErr)
		}

		previousStatus := version.ApprovalStatus
		version.ApprovalStatus = model.VersionPending
		version.ApprovedBy = nil
		version.ApprovedAt = nil
		version.RejectionReason = ""

		if saveErr := s.versionRepo.Update(txCtx, version); saveErr != nil {
			return fmt.Errorf("failed to update version: %w", saveErr)
		}

		return s.audit(txCtx, actorID, model.ActionDownloadFromMain, version.ID.String(), version.VersionName, map[string]interface{}{
			"previous_status": previousStatus,
			"status_reset_to": model.VersionPending,
		})
	})
	if err != nil {
		return VersionResponse{}, err
	}

	resp := toVersionResponse(*version)
	s.broadcast("version_downloaded", resp)
	return resp, nil
}

// --- sync internals ---

// pushToMain destructively overwrites the main realm with the version's
// staging tree, in one transaction.
func (s *versionService) pushToMain(ctx context.Context, versionID uuid.UUID, actorID *uuid.UUID) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		staged, err := s.catalogRepo.LoadTree(txCtx, versionID, model.RealmStaging)
		if err != nil {
			return fmt.Errorf("failed to load staging tree: %w", err)
		}

		if err := s.catalogRepo.DeleteRealm(txCtx, model.RealmMain); err != nil {
			return fmt.Errorf("failed to clear main realm: %w", err)
		}

		if err := s.copyTree(txCtx, staged, versionID, model.RealmMain); err != nil {
			return fmt.Errorf("failed to copy staging tree to main: %w", err)
		}

		return s.audit(txCtx, actorID, model.ActionUploadToMain, versionID.String(), "", map[string]interface{}{
			"brands": len(staged),
		})
	})
}

// loadMainTree fetches the current main realm content. Main rows keep the
// version ID of whichever version pushed them, so the lookup goes by realm
// alone.
func (s *versionService) loadMainTree(ctx context.Context) ([]model.Brand, error) {
	var brands []model.Brand
	err := repository.GetDB(ctx, s.db).
		Where("realm = ?", model.RealmMain).
		Preload("VehicleLines").
		Preload("VehicleLines.Models").
		Preload("VehicleLines.Models.Trims").
		Preload("VehicleLines.Models.Trims.Options").
		Find(&brands).Error
	if err != nil {
		return nil, err
	}
	return brands, nil
}

// copyTree inserts a deep copy of the given brands (and their subtrees) under
// the target version/realm with fresh IDs.
func (s *versionService) copyTree(ctx context.Context, brands []model.Brand, versionID uuid.UUID, realm string) error {
	for _, brand := range brands {
		newBrand := model.Brand{
			VersionID: versionID,
			Realm:     realm,
			Name:      brand.Name,
			Country:   brand.Country,
			LogoURL:   brand.LogoURL,
			Manager:   brand.Manager,
			CreatedBy: brand.CreatedBy,
			UpdatedBy: brand.UpdatedBy,
		}
		if err := s.catalogRepo.CreateBrand(ctx, &newBrand); err != nil {
			return err
		}

		for _, line := range brand.VehicleLines {
			newLine := model.VehicleLine{
				BrandID:     newBrand.ID,
				Name:        line.Name,
				Description: line.Description,
			}
			if err := s.catalogRepo.CreateVehicleLine(ctx, &newLine); err != nil {
				return err
			}

			for _, m := range line.Models {
				newModel := model.CarModel{
					VehicleLineID: newLine.ID,
					Name:          m.Name,
					Code:          m.Code,
					ReleaseYear:   m.ReleaseYear,
					Price:         m.Price,
					Foreign:       m.Foreign,
				}
				if err := s.catalogRepo.CreateModel(ctx, &newModel); err != nil {
					return err
				}

				for _, trim := range m.Trims {
					newTrim := model.Trim{
						ModelID:     newModel.ID,
						Name:        trim.Name,
						CarType:     trim.CarType,
						FuelName:    trim.FuelName,
						CC:          trim.CC,
						BasePrice:   trim.BasePrice,
						Description: trim.Description,
					}
					if err := s.catalogRepo.CreateTrim(ctx, &newTrim); err != nil {
						return err
					}

					for _, opt := range trim.Options {
						newOpt := model.Option{
							TrimID:          newTrim.ID,
							Name:            opt.Name,
							Code:            opt.Code,
							Description:     opt.Description,
							Category:        opt.Category,
							Price:           opt.Price,
							DiscountedPrice: opt.DiscountedPrice,
						}
						if err := s.catalogRepo.CreateOption(ctx, &newOpt); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	return nil
}

// --- Helpers ---

func (s *versionService) audit(ctx context.Context, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload := ""
	if details != nil {
		raw, _ := json.Marshal(details)
		payload = string(raw)
	}
	entry := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *versionService) broadcast(event string, payload interface{}) {
	if s.events != nil {
		s.events.BroadcastJSON(event, payload)
	}
}

func parseOptionalUUID(raw string) *uuid.UUID {
	if parsed, err := uuid.Parse(raw); err == nil {
		return &parsed
	}
	return nil
}

func toVersionResponse(v model.Version) VersionResponse {
	resp := VersionResponse{
		ID:              v.ID.String(),
		VersionName:     v.VersionName,
		Description:     v.Description,
		ApprovalStatus:  v.ApprovalStatus,
		MainSyncStatus:  v.MainSyncStatus,
		RejectionReason: v.RejectionReason,
		CreatedAt:       v.CreatedAt.Format(time.RFC3339),
	}

	if v.CreatedBy != nil {
		s := v.CreatedBy.String()
		resp.CreatedBy = &s
	}
	if v.Creator != nil {
		resp.CreatorName = v.Creator.Username
	}
	if v.ApprovedBy != nil {
		s := v.ApprovedBy.String()
		resp.ApprovedBy = &s
	}
	if v.Approver != nil {
		resp.ApproverName = v.Approver.Username
	}
	if v.ApprovedAt != nil {
		s := v.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}
	if v.MigrationDate != nil {
		s := v.MigrationDate.Format(time.RFC3339)
		resp.MigrationDate = &s
	}

	return resp
}
