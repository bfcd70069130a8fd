package service

import (
	"context"
	"fmt"
	"time"

	"carcatalog/internal/model"
	"carcatalog/internal/repository"
	"carcatalog/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

// PolicyDetailPayload is the union of the four type-specific detail shapes.
// Which fields matter depends on policy_type; the service validates the
// combination.
type PolicyDetailPayload struct {
	// CARD_BENEFIT
	CardPartner  string           `json:"card_partner,omitempty"`
	CashbackRate *decimal.Decimal `json:"cashback_rate,omitempty"`

	// BRAND_PROMO and PRE_PURCHASE
	DiscountRate   *decimal.Decimal `json:"discount_rate,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`

	// INVENTORY
	InventoryLevelThreshold *int             `json:"inventory_level_threshold,omitempty"`
	MarginRate              *decimal.Decimal `json:"margin_rate,omitempty"`

	// PRE_PURCHASE
	EventType        string     `json:"event_type,omitempty"`
	PrePurchaseStart *time.Time `json:"pre_purchase_start,omitempty"`
}

type CreatePolicyRequest struct {
	PolicyType    string              `json:"policy_type" binding:"required,oneof=CARD_BENEFIT BRAND_PROMO INVENTORY PRE_PURCHASE"`
	Title         string              `json:"title" binding:"required"`
	Description   string              `json:"description"`
	ValidFrom     time.Time           `json:"valid_from"`
	ValidTo       time.Time           `json:"valid_to"`
	IsActive      *bool               `json:"is_active"`
	VersionID     string              `json:"version_id" binding:"required"`
	BrandID       string              `json:"brand_id" binding:"required"`
	VehicleLineID string              `json:"vehicle_line_id" binding:"required"`
	TrimID        string              `json:"trim_id" binding:"required"`
	Detail        PolicyDetailPayload `json:"detail"`
}

type UpdatePolicyRequest struct {
	Title       string               `json:"title" binding:"required"`
	Description string               `json:"description"`
	ValidFrom   time.Time            `json:"valid_from"`
	ValidTo     time.Time            `json:"valid_to"`
	IsActive    *bool                `json:"is_active"`
	Detail      *PolicyDetailPayload `json:"detail"`
}

type PolicyPage struct {
	Items      []model.DiscountPolicy `json:"items"`
	Pagination pagination.Meta        `json:"pagination"`
}

// --- Interface ---

type DiscountService interface {
	CreatePolicy(ctx context.Context, req CreatePolicyRequest, userID string) (*model.DiscountPolicy, error)
	GetPolicy(ctx context.Context, id string) (*model.DiscountPolicy, error)
	ListPolicies(ctx context.Context, filter repository.PolicyFilter) (*PolicyPage, error)
	UpdatePolicy(ctx context.Context, id string, req UpdatePolicyRequest, userID string) (*model.DiscountPolicy, error)
	DeletePolicy(ctx context.Context, id string, userID string) error
}

type discountService struct {
	discountRepo repository.DiscountRepository
	catalogRepo  repository.CatalogRepository
	versionRepo  repository.VersionRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewDiscountService(
	discountRepo repository.DiscountRepository,
	catalogRepo repository.CatalogRepository,
	versionRepo repository.VersionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) DiscountService {
	return &discountService{
		discountRepo: discountRepo,
		catalogRepo:  catalogRepo,
		versionRepo:  versionRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *discountService) CreatePolicy(ctx context.Context, req CreatePolicyRequest, userID string) (*model.DiscountPolicy, error) {
	vid, err := uuid.Parse(req.VersionID)
	if err != nil {
		return nil, fmt.Errorf("invalid version_id: %w", err)
	}
	bid, err := uuid.Parse(req.BrandID)
	if err != nil {
		return nil, fmt.Errorf("invalid brand_id: %w", err)
	}
	lid, err := uuid.Parse(req.VehicleLineID)
	if err != nil {
		return nil, fmt.Errorf("invalid vehicle_line_id: %w", err)
	}
	tid, err := uuid.Parse(req.TrimID)
	if err != nil {
		return nil, fmt.Errorf("invalid trim_id: %w", err)
	}

	if !req.ValidTo.IsZero() && !req.ValidFrom.IsZero() && req.ValidTo.Before(req.ValidFrom) {
		return nil, fmt.Errorf("valid_to must not be earlier than valid_from")
	}

	// Anchor must resolve inside the version's staging tree
	if _, findErr := s.versionRepo.FindByID(ctx, vid); findErr != nil {
		return nil, fmt.Errorf("version not found: %w", findErr)
	}
	if _, findErr := s.catalogRepo.FindBrand(ctx, vid, bid, model.RealmStaging); findErr != nil {
		return nil, fmt.Errorf("anchor brand not found in version: %w", findErr)
	}
	if _, findErr := s.catalogRepo.FindVehicleLine(ctx, bid, lid); findErr != nil {
		return nil, fmt.Errorf("anchor vehicle line not found under brand: %w", findErr)
	}
	if _, findErr := s.catalogRepo.FindTrimInLine(ctx, lid, tid); findErr != nil {
		return nil, fmt.Errorf("anchor trim not found under vehicle line: %w", findErr)
	}

	policy := &model.DiscountPolicy{
		PolicyType:    req.PolicyType,
		Title:         req.Title,
		Description:   req.Description,
		ValidFrom:     req.ValidFrom,
		ValidTo:       req.ValidTo,
		IsActive:      true,
		VersionID:     vid,
		BrandID:       bid,
		VehicleLineID: lid,
		TrimID:        tid,
	}
	if req.IsActive != nil {
		policy.IsActive = *req.IsActive
	}

	if err := applyDetail(policy, req.Detail); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.discountRepo.Create(txCtx, policy); createErr != nil {
			return fmt.Errorf("failed to create discount policy: %w", createErr)
		}
		return s.auditPolicy(txCtx, model.ActionCreatePolicy, policy, userID)
	})
	if err != nil {
		return nil, err
	}

	return s.discountRepo.FindByID(ctx, policy.ID)
}

func (s *discountService) GetPolicy(ctx context.Context, id string) (*model.DiscountPolicy, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid policy id: %w", err)
	}
	policy, err := s.discountRepo.FindByID(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("discount policy not found: %w", err)
	}
	return policy, nil
}

func (s *discountService) ListPolicies(ctx context.Context, filter repository.PolicyFilter) (*PolicyPage, error) {
	p := pagination.Normalize(filter.Page, filter.Limit)
	filter.Page = p.Page
	filter.Limit = p.Limit

	policies, total, err := s.discountRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discount policies: %w", err)
	}

	return &PolicyPage{
		Items:      policies,
		Pagination: pagination.NewMeta(total, p),
	}, nil
}

func (s *discountService) UpdatePolicy(ctx context.Context, id string, req UpdatePolicyRequest, userID string) (*model.DiscountPolicy, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid policy id: %w", err)
	}

	policy, err := s.discountRepo.FindByID(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("discount policy not found: %w", err)
	}

	policy.Title = req.Title
	policy.Description = req.Description
	if !req.ValidFrom.IsZero() {
		policy.ValidFrom = req.ValidFrom
	}
	if !req.ValidTo.IsZero() {
		policy.ValidTo = req.ValidTo
	}
	if req.IsActive != nil {
		policy.IsActive = *req.IsActive
	}

	// The policy type is fixed after creation; only the matching detail row
	// can be amended.
	if req.Detail != nil {
		if err := applyDetail(policy, *req.Detail); err != nil {
			return nil, err
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.discountRepo.Update(txCtx, policy); saveErr != nil {
			return fmt.Errorf("failed to update discount policy: %w", saveErr)
		}
		return s.auditPolicy(txCtx, model.ActionUpdatePolicy, policy, userID)
	})
	if err != nil {
		return nil, err
	}

	return s.discountRepo.FindByID(ctx, pid)
}

func (s *discountService) DeletePolicy(ctx context.Context, id string, userID string) error {
	pid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid policy id: %w", err)
	}

	policy, err := s.discountRepo.FindByID(ctx, pid)
	if err != nil {
		return fmt.Errorf("discount policy not found: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.discountRepo.Delete(txCtx, pid); delErr != nil {
			return fmt.Errorf("failed to delete discount policy: %w", delErr)
		}
		return s.auditPolicy(txCtx, model.ActionDeletePolicy, policy, userID)
	})
}

// --- Helpers ---

// applyDetail validates the type-specific payload and attaches the matching
// detail record to the policy.
func applyDetail(policy *model.DiscountPolicy, detail PolicyDetailPayload) error {
	switch policy.PolicyType {
	case model.PolicyCardBenefit:
		if detail.CardPartner == "" {
			return fmt.Errorf("card_partner is required for CARD_BENEFIT policies")
		}
		d := &model.CardBenefitDetail{PolicyID: policy.ID, CardPartner: detail.CardPartner}
		if detail.CashbackRate != nil {
			d.CashbackRate = *detail.CashbackRate
		}
		if policy.CardBenefit != nil {
			d.ID = policy.CardBenefit.ID
		}
		policy.CardBenefit = d

	case model.PolicyBrandPromo:
		if detail.DiscountRate == nil && detail.DiscountAmount == nil {
			return fmt.Errorf("BRAND_PROMO policies need discount_rate or discount_amount")
		}
		d := &model.BrandPromoDetail{PolicyID: policy.ID}
		if detail.DiscountRate != nil {
			d.DiscountRate = *detail.DiscountRate
		}
		if detail.DiscountAmount != nil {
			d.DiscountAmount = *detail.DiscountAmount
		}
		if policy.BrandPromo != nil {
			d.ID = policy.BrandPromo.ID
		}
		policy.BrandPromo = d

	case model.PolicyInventory:
		if detail.InventoryLevelThreshold == nil {
			return fmt.Errorf("inventory_level_threshold is required for INVENTORY policies")
		}
		d := &model.InventoryDiscountDetail{
			PolicyID:                policy.ID,
			InventoryLevelThreshold: *detail.InventoryLevelThreshold,
		}
		if detail.DiscountRate != nil {
			d.DiscountRate = *detail.DiscountRate
		}
		if detail.MarginRate != nil {
			d.MarginRate = *detail.MarginRate
		}
		if policy.Inventory != nil {
			d.ID = policy.Inventory.ID
		}
		policy.Inventory = d

	case model.PolicyPrePurchase:
		d := &model.PrePurchaseDetail{
			PolicyID:         policy.ID,
			EventType:        detail.EventType,
			PrePurchaseStart: detail.PrePurchaseStart,
		}
		if detail.DiscountRate != nil {
			d.DiscountRate = *detail.DiscountRate
		}
		if detail.DiscountAmount != nil {
			d.DiscountAmount = *detail.DiscountAmount
		}
		if policy.PrePurchase != nil {
			d.ID = policy.PrePurchase.ID
		}
		policy.PrePurchase = d

	default:
		return fmt.Errorf("unknown policy type: %s", policy.PolicyType)
	}

	return nil
}

func (s *discountService) auditPolicy(ctx context.Context, action string, policy *model.DiscountPolicy, userID string) error {
	entry := model.AuditLog{
		UserID:     parseOptionalUUID(userID),
		Action:     action,
		EntityID:   policy.ID.String(),
		EntityName: policy.Title,
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
