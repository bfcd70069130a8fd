package handler

import (
	"net/http"
	"strconv"

	"carcatalog/internal/middleware"
	"carcatalog/internal/repository"
	"carcatalog/internal/service"
	"carcatalog/pkg/pagination"
	"carcatalog/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DiscountHandler struct {
	discountService service.DiscountService
}

func NewDiscountHandler(discountService service.DiscountService) *DiscountHandler {
	return &DiscountHandler{discountService: discountService}
}

func (h *DiscountHandler) RegisterRoutes(router *gin.RouterGroup) {
	policies := router.Group("/api/discount/policies")
	{
		policies.GET("", middleware.RequirePermission("discount.read"), h.ListPolicies)
		policies.POST("", middleware.RequirePermission("discount.write"), h.CreatePolicy)
		policies.GET("/:id", middleware.RequirePermission("discount.read"), h.GetPolicy)
		policies.PUT("/:id", middleware.RequirePermission("discount.write"), h.UpdatePolicy)
		policies.DELETE("/:id", middleware.RequirePermission("discount.write"), h.DeletePolicy)
	}
}

// ListPolicies returns paginated discount policies with optional filters
// @Summary      List discount policies
// @Tags         discount
// @Security     BearerAuth
// @Produce      json
// @Param        page         query  int     false  "Page number (default: 1)"
// @Param        limit        query  int     false  "Items per page (default: 20)"
// @Param        version_id   query  string  false  "Filter by version"
// @Param        policy_type  query  string  false  "Filter by type: CARD_BENEFIT, BRAND_PROMO, INVENTORY, PRE_PURCHASE"
// @Param        active       query  bool    false  "Filter by active flag"
// @Success      200  {object}  response.Response
// @Router       /api/discount/policies [get]
func (h *DiscountHandler) ListPolicies(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.PolicyFilter{
		PolicyType: c.Query("policy_type"),
		Page:       p.Page,
		Limit:      p.Limit,
	}

	if raw := c.Query("version_id"); raw != "" {
		vid, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid version_id"))
			return
		}
		filter.VersionID = &vid
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid active flag"))
			return
		}
		filter.Active = &active
	}

	page, err := h.discountService.ListPolicies(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}

// CreatePolicy creates a policy with its type-specific detail in one step
// @Summary      Create discount policy
// @Tags         discount
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreatePolicyRequest  true  "Policy payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/discount/policies [post]
func (h *DiscountHandler) CreatePolicy(c *gin.Context) {
	var req service.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	policy, err := h.discountService.CreatePolicy(c.Request.Context(), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, policy))
}

// GetPolicy returns one policy with its detail loaded
// @Summary      Get discount policy
// @Tags         discount
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Policy ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/discount/policies/{id} [get]
func (h *DiscountHandler) GetPolicy(c *gin.Context) {
	policy, err := h.discountService.GetPolicy(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, policy))
}

// UpdatePolicy edits a policy; its type is fixed after creation
// @Summary      Update discount policy
// @Tags         discount
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Policy ID"
// @Param        payload  body  service.UpdatePolicyRequest  true  "Policy payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/discount/policies/{id} [put]
func (h *DiscountHandler) UpdatePolicy(c *gin.Context) {
	var req service.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	policy, err := h.discountService.UpdatePolicy(c.Request.Context(), c.Param("id"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, policy))
}

// DeletePolicy removes a policy and its detail rows
// @Summary      Delete discount policy
// @Tags         discount
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Policy ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/discount/policies/{id} [delete]
func (h *DiscountHandler) DeletePolicy(c *gin.Context) {
	if err := h.discountService.DeletePolicy(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
