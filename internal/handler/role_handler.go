package handler

import (
	"net/http"

	"carcatalog/internal/middleware"
	"carcatalog/internal/service"
	"carcatalog/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService service.RoleService
}

func NewRoleHandler(roleService service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	permissions := router.Group("/api/permissions")
	{
		permissions.GET("", middleware.RequirePermission("permissions.read"), h.ListPermissions)
		permissions.GET("/matrix", middleware.RequirePermission("permissions.read"), h.GetMatrix)
		permissions.PUT("/matrix", middleware.RequirePermission("permissions.write"), h.UpdateMatrix)
	}

	roles := router.Group("/api/roles")
	{
		roles.GET("", middleware.RequirePermission("permissions.read"), h.ListRoles)
		roles.POST("", middleware.RequirePermission("permissions.write"), h.CreateRole)
		roles.DELETE("/:id", middleware.RequirePermission("permissions.write"), h.DeleteRole)
	}
}

// ListPermissions returns the full permission catalog
// @Summary      List permissions
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleService.ListPermissions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}

// GetMatrix returns the role x permission grant matrix
// @Summary      Get permission matrix
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/permissions/matrix [get]
func (h *RoleHandler) GetMatrix(c *gin.Context) {
	matrix, err := h.roleService.GetMatrix(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, matrix))
}

// UpdateMatrix applies a batch of grant/revoke toggles
// @Summary      Update permission matrix
// @Tags         permissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.UpdateMatrixRequest  true  "Matrix cells"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/permissions/matrix [put]
func (h *RoleHandler) UpdateMatrix(c *gin.Context) {
	var req service.UpdateMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	matrix, err := h.roleService.UpdateMatrix(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, matrix))
}

// ListRoles returns all roles with their permissions
// @Summary      List roles
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// CreateRole adds a custom role with an initial permission set
// @Summary      Create role
// @Tags         permissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateRoleRequest  true  "Role payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// DeleteRole removes a non-system role
// @Summary      Delete role
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Role ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	if err := h.roleService.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
