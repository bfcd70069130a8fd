package service

import (
	"context"
	"encoding/json"
	"fmt"

	"carcatalog/internal/model"
	"carcatalog/internal/repository"
	"carcatalog/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---
//
// Update payloads deliberately carry no parent foreign keys: an edit can
// never move an entity to a different parent. Parent scoping comes from the
// URL path on both create and edit.

type BrandPayload struct {
	Name    string `json:"name" binding:"required"`
	Country string `json:"country"`
	LogoURL string `json:"logo_url"`
	Manager string `json:"manager"`
}

type VehicleLinePayload struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type ModelPayload struct {
	Name        string          `json:"name" binding:"required"`
	Code        string          `json:"code"`
	ReleaseYear int             `json:"release_year"`
	Price       decimal.Decimal `json:"price"`
	Foreign     bool            `json:"foreign"`
}

type TrimPayload struct {
	Name        string          `json:"name" binding:"required"`
	CarType     string          `json:"car_type"`
	FuelName    string          `json:"fuel_name"`
	CC          int             `json:"cc"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Description string          `json:"description"`
}

type OptionPayload struct {
	Name            string          `json:"name" binding:"required"`
	Code            string          `json:"code"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}

// BrandPage is the brand-centric loading envelope.
type BrandPage struct {
	Brands     []model.Brand   `json:"brands"`
	Pagination pagination.Meta `json:"pagination"`
}

// VehicleLinePage is the line-centric loading envelope: each line carries its
// own brand plus the nested subtree.
type VehicleLinePage struct {
	VehicleLines []model.VehicleLine `json:"vehicle_lines"`
	Pagination   pagination.Meta     `json:"pagination"`
}

// --- Interface ---

type CatalogService interface {
	// Brand
	CreateBrand(ctx context.Context, versionID string, req BrandPayload, username string) (*model.Brand, error)
	UpdateBrand(ctx context.Context, versionID, brandID string, req BrandPayload, username string) (*model.Brand, error)
	DeleteBrand(ctx context.Context, versionID, brandID string, userID string) error
	ListBrands(ctx context.Context, versionID string, realm string, p pagination.Params, deep bool) (*BrandPage, error)

	// VehicleLine
	CreateVehicleLine(ctx context.Context, versionID, brandID string, req VehicleLinePayload, userID string) (*model.VehicleLine, error)
	UpdateVehicleLine(ctx context.Context, versionID, brandID, lineID string, req VehicleLinePayload, userID string) (*model.VehicleLine, error)
	DeleteVehicleLine(ctx context.Context, versionID, brandID, lineID string, userID string) error
	ListVehicleLines(ctx context.Context, versionID string, realm string, p pagination.Params) (*VehicleLinePage, error)

	// CarModel
	CreateModel(ctx context.Context, lineID string, req ModelPayload, userID string) (*model.CarModel, error)
	UpdateModel(ctx context.Context, lineID, modelID string, req ModelPayload, userID string) (*model.CarModel, error)
	DeleteModel(ctx context.Context, lineID, modelID string, userID string) error

	// Trim
	CreateTrim(ctx context.Context, modelID string, req TrimPayload, userID string) (*model.Trim, error)
	UpdateTrim(ctx context.Context, modelID, trimID string, req TrimPayload, userID string) (*model.Trim, error)
	DeleteTrim(ctx context.Context, modelID, trimID string, userID string) error

	// Option
	CreateOption(ctx context.Context, trimID string, req OptionPayload, userID string) (*model.Option, error)
	UpdateOption(ctx context.Context, trimID, optionID string, req OptionPayload, userID string) (*model.Option, error)
	DeleteOption(ctx context.Context, trimID, optionID string, userID string) error
}

type catalogService struct {
	catalogRepo repository.CatalogRepository
	versionRepo repository.VersionRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewCatalogService(
	catalogRepo repository.CatalogRepository,
	versionRepo repository.VersionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CatalogService {
	return &catalogService{
		catalogRepo: catalogRepo,
		versionRepo: versionRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// --- Brand ---

func (s *catalogService) CreateBrand(ctx context.Context, versionID string, req BrandPayload, username string) (*model.Brand, error) {
	vid, err := s.requireVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	brand := &model.Brand{
		VersionID: vid,
		Realm:     model.RealmStaging,
		Name:      req.Name,
		Country:   req.Country,
		LogoURL:   req.LogoURL,
		Manager:   req.Manager,
		CreatedBy: username,
		UpdatedBy: username,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.catalogRepo.CreateBrand(txCtx, brand); createErr != nil {
			return fmt.Errorf("failed to create brand: %w", createErr)
		}
		return s.auditEntity(txCtx, model.ActionCreateEntity, "brand", brand.ID.String(), brand.Name)
	})
	if err != nil {
		return nil, err
	}
	return brand, nil
}

func (s *catalogService) UpdateBrand(ctx context.Context, versionID, brandID string, req BrandPayload, username string) (*model.Brand, error) {
	vid, bid, err := parseUUIDs(versionID, brandID)
	if err != nil {
		return nil, err
	}

	brand, err := s.catalogRepo.FindBrand(ctx, vid, bid, model.RealmStaging)
	if err != nil {
		return nil, fmt.Errorf("brand not found: %w", err)
	}

	brand.Name = req.Name
	brand.Country = req.Country
	brand.LogoURL = req.LogoURL
	brand.Manager = req.Manager
	brand.UpdatedBy = username

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.catalogRepo.UpdateBrand(txCtx, brand); saveErr != nil {
			return fmt.Errorf("failed to update brand: %w", saveErr)
		}
		return s.auditEntity(txCtx, model.ActionUpdateEntity, "brand", brand.ID.String(), brand.Name)
	})
	if err != nil {
		return nil, err
	}
	return brand, nil
}

func (s *catalogService) DeleteBrand(ctx context.Context, versionID, brandID string, userID string) error {
	vid, bid, err := parseUUIDs(versionID, brandID)
	if err != nil {
		return err
	}

	brand, err := s.catalogRepo.FindBrand(ctx, vid, bid, model.RealmStaging)
	if err != nil {
		return fmt.Errorf("brand not found: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.catalogRepo.DeleteBrand(txCtx, bid); delErr != nil {
			return fmt.Errorf("failed to delete brand: %w", delErr)
		}
		return s.auditEntity(txCtx, model.ActionDeleteEntity, "brand", bid.String(), brand.Name)
	})
}

func (s *catalogService) ListBrands(ctx context.Context, versionID string, realm string, p pagination.Params, deep bool) (*BrandPage, error) {
	var vid uuid.UUID
	if versionID != "" || realm != model.RealmMain {
		parsed, err := uuid.Parse(versionID)
		if err != nil {
			return nil, fmt.Errorf("invalid version id: %w", err)
		}
		vid = parsed
	}

	brands, total, err := s.catalogRepo.ListBrands(ctx, vid, realm, p.Page, p.Limit, deep)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch brands: %w", err)
	}

	return &BrandPage{
		Brands:     brands,
		Pagination: pagination.NewMeta(total, p),
	}, nil
}

// --- VehicleLine ---

func (s *catalogService) CreateVehicleLine(ctx context.Context, versionID, brandID string, req VehicleLinePayload, userID string) (*model.VehicleLine, error) {
	vid, bid, err := parseUUIDs(versionID, brandID)
	if err != nil {
		return nil, err
	}

	// Parent must exist inside this version's staging realm
	if _, findErr := s.catalogRepo.FindBrand(ctx, vid, bid, model.RealmStaging); findErr != nil {
		return nil, fmt.Errorf("parent brand not found: %w", findErr)
	}

	line := &model.VehicleLine{
		BrandID:     bid,
		Name:        req.Name,
		Description: req.Description,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.catalogRepo.CreateVehicleLine(txCtx, line); createErr != nil {
			return fmt.Errorf("failed to create vehicle line: %w", createErr)
		}
		return s.auditEntity(txCtx, model.ActionCreateEntity, "vehicleLine", line.ID.String(), line.Name)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *catalogService) UpdateVehicleLine(ctx context.Context, versionID, brandID, lineID string, req VehicleLinePayload, userID string) (*model.VehicleLine, error) {
	bid, lid, err := parseUUIDs(brandID, lineID)
	if err != nil {
		return nil, err
	}

	line, err := s.catalogRepo.FindVehicleLine(ctx, bid, lid)
	if err != nil {
		return nil, fmt.Errorf("vehicle line not found: %w", err)
	}

	line.Name = req.Name
	line.Description = req.Description

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.catalogRepo.UpdateVehicleLine(txCtx, line); saveErr != nil {
			return fmt.Errorf("failed to update vehicle line: %w", saveErr)
		}
		return s.auditEntity(txCtx, model.ActionUpdateEntity, "vehicleLine", line.ID.String(), line.Name)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *catalogService) DeleteVehicleLine(ctx context.Context, versionID, brandID, lineID string, userID string) error {
	bid, lid, err := parseUUIDs(brandID, lineID)
	if err != nil {
		return err
	}

	line, err := s.catalogRepo.FindVehicleLine(ctx, bid, lid)
	if err != nil {
		return fmt.Errorf("vehicle line not found: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.catalogRepo.DeleteVehicleLine(txCtx, lid); delErr != nil {
			return fmt.Errorf("failed to delete vehicle line: %w", delErr)
		}
		return s.auditEntity(txCtx, model.ActionDeleteEntity, "vehicleLine", lid.String(), line.Name)
	})
}

func (s *catalogService) ListVehicleLines(ctx context.Context, versionID string, realm string, p pagination.Params) (*VehicleLinePage, error) {
	vid, err := uuid.Parse(versionID)
	if err != nil {
		return nil, fmt.Errorf("invalid version id: %w", err)
	}

	lines, total, err := s.catalogRepo.ListVehicleLines(ctx, vid, realm, p.Page, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vehicle lines: %w", err)
	}

	return &VehicleLinePage{
		VehicleLines: lines,
		Pagination:   pagination.NewMeta(total, p),
	}, nil
}

// --- CarModel ---

func (s *catalogService) CreateModel(ctx context.Context, lineID string, req ModelPayload, userID string) (*model.CarModel, error) {
	lid, err := uuid.Parse(lineID)
	if err != nil {
		return nil, fmt.Errorf("invalid vehicle line id: %w", err)
	}

	m := &model.CarModel{
		VehicleLineID: lid,
		Name:          req.Name,
		Code:          req.Code,
		ReleaseYear:   req.ReleaseYear,
		Price:         req.Price,
		Foreign:       req.Foreign,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.catalogRepo.CreateModel(txCtx, m); createErr != nil {
			return fmt.Errorf("failed to create model: %w", createErr)
		}
		return s.auditEntity(txCtx, model.ActionCreateEntity, "model", m.ID.String(), m.Name)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *catalogService) UpdateModel(ctx context.Context, lineID, modelID string, req ModelPayload, userID string) (*model.CarModel, error) {
	lid, mid, err := parseUUIDs(lineID, modelID)
	if err != nil {
		return nil, err
	}

	m, err := s.catalogRepo.FindModel(ctx, lid, mid)
	if err != nil {
		return nil, fmt.Errorf("model not found: %w", err)
	}

	m.Name = req.Name
	m.Code = req.Code
	m.ReleaseYear = req.ReleaseYear
	m.Price = req.Price
	m.Foreign = req.Foreign

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.catalogRepo.UpdateModel(txCtx, m); saveErr != nil {
			return fmt.Errorf("failed to update model: %w", saveErr)
		}
		return s.auditEntity(txCtx, model.ActionUpdateEntity, "model", m.ID.String(), m.Name)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *catalogService) DeleteModel(ctx context.Context, lineID, modelID string, userID string) error {
	lid, mid, err := parseUUIDs(lineID, modelID)
	if err != nil {
		return err
	}

	m, err := s.catalogRepo.FindModel(ctx, lid, mid)
	if err != nil {
		return fmt.Errorf("model not found: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.catalogRepo.DeleteModel(txCtx, mid); delErr != nil {
			return fmt.Errorf("failed to delete model: %w", delErr)
		}
		return s.auditEntity(txCtx, model.ActionDeleteEntity, "model", mid.String(), m.Name)
	})
}

// --- Trim ---

func (s *catalogService) CreateTrim(ctx context.Context, modelID string, req TrimPayload, userID string) (*model.Trim, error) {
	mid, err := uuid.Parse(modelID)
	if err != nil {
		return nil, fmt.Errorf("invalid model id: %w", err)
	}

	trim := &model.Trim{
		ModelID:     mid,
		Name:        req.Name,
		CarType:     req.CarType,
		FuelName:    req.FuelName,
		CC:          req.CC,
		BasePrice:   req.BasePrice,
		Description: req.Description,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.catalogRepo.CreateTrim(txCtx, trim); createErr != nil {
			return fmt.Errorf("failed to create trim: %w", createErr)
		}
		return s.auditEntity(txCtx, model.ActionCreateEntity, "trim", trim.ID.String(), trim.Name)
	})
	if err != nil {
		return nil, err
	}
	return trim, nil
}

func (s *catalogService) UpdateTrim(ctx context.Context, modelID, trimID string, req TrimPayload, userID string) (*model.Trim, error) {
	mid, tid, err := parseUUIDs(modelID, trimID)
	if err != nil {
		return nil, err
	}

	trim, err := s.catalogRepo.FindTrim(ctx, mid, tid)
	if err != nil {
		return nil, fmt.Errorf("trim not found: %w", err)
	}

	trim.Name = req.Name
	trim.CarType = req.CarType
	trim.FuelName = req.FuelName
	trim.CC = req.CC
	trim.BasePrice = req.BasePrice
	trim.Description = req.Description

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.catalogRepo.UpdateTrim(txCtx, trim); saveErr != nil {
			return fmt.Errorf("failed to update trim: %w", saveErr)
		}
		return s.auditEntity(txCtx, model.ActionUpdateEntity, "trim", trim.ID.String(), trim.Name)
	})
	if err != nil {
		return nil, err
	}
	return trim, nil
}

func (s *catalogService) DeleteTrim(ctx context.Context, modelID, trimID string, userID string) error {
	mid, tid, err := parseUUIDs(modelID, trimID)
	if err != nil {
		return err
	}

	trim, err := s.catalogRepo.FindTrim(ctx, mid, tid)
	if err != nil {
		return fmt.Errorf("trim not found: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.catalogRepo.DeleteTrim(txCtx, tid); delErr != nil {
			return fmt.Errorf("failed to delete trim: %w", delErr)
		}
		return s.auditEntity(txCtx, model.ActionDeleteEntity, "trim", tid.String(), trim.Name)
	})
}

// --- Option ---

func (s *catalogService) CreateOption(ctx context.Context, trimID string, req OptionPayload, userID string) (*model.Option, error) {
	tid, err := uuid.Parse(trimID)
	if err != nil {
		return nil, fmt.Errorf("invalid trim id: %w", err)
	}

	opt := &model.Option{
		TrimID:          tid,
		Name:            req.Name,
		Code:            req.Code,
		Description:     req.Description,
		Category:        req.Category,
		Price:           req.Price,
		DiscountedPrice: req.DiscountedPrice,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.catalogRepo.CreateOption(txCtx, opt); createErr != nil {
			return fmt.Errorf("failed to create option: %w", createErr)
		}
		return s.auditEntity(txCtx, model.ActionCreateEntity, "option", opt.ID.String(), opt.Name)
	})
	if err != nil {
		return nil, err
	}
	return opt, nil
}

func (s *catalogService) UpdateOption(ctx context.Context, trimID, optionID string, req OptionPayload, userID string) (*model.Option, error) {
	tid, oid, err := parseUUIDs(trimID, optionID)
	if err != nil {
		return nil, err
	}

	opt, err := s.catalogRepo.FindOption(ctx, tid, oid)
	if err != nil {
		return nil, fmt.Errorf("option not found: %w", err)
	}

	opt.Name = req.Name
	opt.Code = req.Code
	opt.Description = req.Description
	opt.Category = req.Category
	opt.Price = req.Price
	opt.DiscountedPrice = req.DiscountedPrice

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.catalogRepo.UpdateOption(txCtx, opt); saveErr != nil {
			return fmt.Errorf("failed to update option: %w", saveErr)
		}
		return s.auditEntity(txCtx, model.ActionUpdateEntity, "option", opt.ID.String(), opt.Name)
	})
	if err != nil {
		return nil, err
	}
	return opt, nil
}

func (s *catalogService) DeleteOption(ctx context.Context, trimID, optionID string, userID string) error {
	tid, oid, err := parseUUIDs(trimID, optionID)
	if err != nil {
		return err
	}

	opt, err := s.catalogRepo.FindOption(ctx, tid, oid)
	if err != nil {
		return fmt.Errorf("option not found: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.catalogRepo.DeleteOption(txCtx, oid); delErr != nil {
			return fmt.Errorf("failed to delete option: %w", delErr)
		}
		return s.auditEntity(txCtx, model.ActionDeleteEntity, "option", oid.String(), opt.Name)
	})
}

// --- Helpers ---

func (s *catalogService) requireVersion(ctx context.Context, versionID string) (uuid.UUID, error) {
	vid, err := uuid.Parse(versionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid version id: %w", err)
	}
	if _, err := s.versionRepo.FindByID(ctx, vid); err != nil {
		return uuid.Nil, fmt.Errorf("version not found: %w", err)
	}
	return vid, nil
}

func (s *catalogService) auditEntity(ctx context.Context, action, entityType, entityID, name string) error {
	details, _ := json.Marshal(map[string]string{"entity_type": entityType})
	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: name,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func parseUUIDs(first, second string) (uuid.UUID, uuid.UUID, error) {
	a, err := uuid.Parse(first)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid id '%s': %w", first, err)
	}
	b, err := uuid.Parse(second)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid id '%s': %w", second, err)
	}
	return a, b, nil
}
