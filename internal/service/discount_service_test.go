package service

import (
	"testing"
	"time"

	"carcatalog/internal/model"
	"carcatalog/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// policyAnchor is the version/brand/line/trim chain every policy hangs off.
type policyAnchor struct {
	version *model.Version
	brand   *model.Brand
	line    *model.VehicleLine
	trim    *model.Trim
}

func seedPolicyAnchor(t *testing.T, db *gorm.DB, name string) policyAnchor {
	t.Helper()
	admin := createTestUser(t, db, model.RoleAdmin, model.PositionEmployee)
	version := createTestVersion(t, db, name, admin)
	brand := seedBrandTree(t, db, version, name+" Brand")

	var line model.VehicleLine
	require.NoError(t, db.Where("brand_id = ?", brand.ID).First(&line).Error)
	var trim model.Trim
	require.NoError(t, db.
		Joins("JOIN models ON models.id = trims.model_id").
		Where("models.vehicle_line_id = ?", line.ID).
		First(&trim).Error)

	return policyAnchor{version: version, brand: brand, line: &line, trim: &trim}
}

func TestDiscountService_CreatePolicy(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestDiscountService(db)
	anchor := seedPolicyAnchor(t, db, "v1")

	rate := decimal.NewFromFloat(2.5)
	base := CreatePolicyRequest{
		PolicyType:    model.PolicyCardBenefit,
		Title:         "Summer card cashback",
		VersionID:     anchor.version.ID.String(),
		BrandID:       anchor.brand.ID.String(),
		VehicleLineID: anchor.line.ID.String(),
		TrimID:        anchor.trim.ID.String(),
		ValidFrom:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:       time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Detail:        PolicyDetailPayload{CardPartner: "Shinhan", CashbackRate: &rate},
	}

	t.Run("happy path", func(t *testing.T) {
		policy, err := svc.CreatePolicy(ctx(), base, "")
		require.NoError(t, err)
		assert.True(t, policy.IsActive)
		require.NotNil(t, policy.CardBenefit)
		assert.Equal(t, "Shinhan", policy.CardBenefit.CardPartner)
		assert.True(t, policy.CardBenefit.CashbackRate.Equal(rate))
	})

	t.Run("card benefit requires a partner", func(t *testing.T) {
		req := base
		req.Detail = PolicyDetailPayload{CashbackRate: &rate}
		_, err := svc.CreatePolicy(ctx(), req, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "card_partner is required")
	})

	t.Run("valid_to before valid_from", func(t *testing.T) {
		req := base
		req.ValidFrom, req.ValidTo = req.ValidTo, req.ValidFrom
		_, err := svc.CreatePolicy(ctx(), req, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "valid_to")
	})

	t.Run("anchor must live in the version", func(t *testing.T) {
		other := seedPolicyAnchor(t, db, "v2")
		req := base
		req.BrandID = other.brand.ID.String()
		_, err := svc.CreatePolicy(ctx(), req, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "anchor brand not found")
	})

	t.Run("trim must exist under the vehicle line", func(t *testing.T) {
		req := base
		req.TrimID = uuid.NewString()
		_, err := svc.CreatePolicy(ctx(), req, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "anchor trim not found")
	})

	t.Run("trim from another line is rejected", func(t *testing.T) {
		other := seedPolicyAnchor(t, db, "v3")
		req := base
		req.TrimID = other.trim.ID.String()
		_, err := svc.CreatePolicy(ctx(), req, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "anchor trim not found")
	})
}

func TestDiscountService_UpdatePolicy(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestDiscountService(db)
	anchor := seedPolicyAnchor(t, db, "v1")

	threshold := 10
	margin := decimal.NewFromFloat(4.2)
	created, err := svc.CreatePolicy(ctx(), CreatePolicyRequest{
		PolicyType:    model.PolicyInventory,
		Title:         "Overstock clearance",
		VersionID:     anchor.version.ID.String(),
		BrandID:       anchor.brand.ID.String(),
		VehicleLineID: anchor.line.ID.String(),
		TrimID:        anchor.trim.ID.String(),
		Detail:        PolicyDetailPayload{InventoryLevelThreshold: &threshold, MarginRate: &margin},
	}, "")
	require.NoError(t, err)

	t.Run("title and active flag", func(t *testing.T) {
		inactive := false
		updated, err := svc.UpdatePolicy(ctx(), created.ID.String(), UpdatePolicyRequest{
			Title:    "Overstock clearance (paused)",
			IsActive: &inactive,
		}, "")
		require.NoError(t, err)
		assert.Equal(t, "Overstock clearance (paused)", updated.Title)
		assert.False(t, updated.IsActive)
	})

	t.Run("detail amends in place, type stays fixed", func(t *testing.T) {
		newThreshold := 25
		updated, err := svc.UpdatePolicy(ctx(), created.ID.String(), UpdatePolicyRequest{
			Title:  "Overstock clearance",
			Detail: &PolicyDetailPayload{InventoryLevelThreshold: &newThreshold, MarginRate: &margin},
		}, "")
		require.NoError(t, err)
		assert.Equal(t, model.PolicyInventory, updated.PolicyType)
		require.NotNil(t, updated.Inventory)
		assert.Equal(t, 25, updated.Inventory.InventoryLevelThreshold)
	})
}

func TestDiscountService_ListAndDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestDiscountService(db)
	anchor := seedPolicyAnchor(t, db, "v1")

	amount := decimal.NewFromInt(500000)
	mk := func(title string, active bool) *model.DiscountPolicy {
		p, err := svc.CreatePolicy(ctx(), CreatePolicyRequest{
			PolicyType:    model.PolicyBrandPromo,
			Title:         title,
			VersionID:     anchor.version.ID.String(),
			BrandID:       anchor.brand.ID.String(),
			VehicleLineID: anchor.line.ID.String(),
			TrimID:        anchor.trim.ID.String(),
			IsActive:      &active,
			Detail:        PolicyDetailPayload{DiscountAmount: &amount},
		}, "")
		require.NoError(t, err)
		return p
	}
	mk("Launch promo", true)
	victim := mk("Old promo", false)

	t.Run("active filter", func(t *testing.T) {
		active := true
		page, err := svc.ListPolicies(ctx(), repository.PolicyFilter{VersionID: &anchor.version.ID, Active: &active})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Launch promo", page.Items[0].Title)
		assert.EqualValues(t, 1, page.Pagination.TotalCount)
	})

	t.Run("type filter", func(t *testing.T) {
		page, err := svc.ListPolicies(ctx(), repository.PolicyFilter{PolicyType: model.PolicyCardBenefit})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.DeletePolicy(ctx(), victim.ID.String(), ""))
		_, err := svc.GetPolicy(ctx(), victim.ID.String())
		require.Error(t, err)
	})
}
