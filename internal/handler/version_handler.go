package handler

import (
	"net/http"

	"carcatalog/internal/middleware"
	"carcatalog/internal/repository"
	"carcatalog/internal/service"
	"carcatalog/pkg/pagination"
	"carcatalog/pkg/response"

	"github.com/gin-gonic/gin"
)

type VersionHandler struct {
	versionService service.VersionService
}

func NewVersionHandler(versionService service.VersionService) *VersionHandler {
	return &VersionHandler{versionService: versionService}
}

func (h *VersionHandler) RegisterRoutes(router *gin.RouterGroup) {
	versions := router.Group("/api/versions")
	{
		versions.GET("", middleware.RequirePermission("versions.read"), h.ListVersions)
		versions.POST("", middleware.RequirePermission("versions.write"), h.CreateVersion)
		versions.GET("/:id", middleware.RequirePermission("versions.read"), h.GetVersion)
		versions.DELETE("/:id", middleware.RequirePermission("versions.write"), h.DeleteVersion)
		// Approval is position-aware (a USER with a MANAGER/CEO position may
		// approve), so these routes only authenticate; the service checks
		// User.CanApprove against the stored account.
		versions.POST("/:id/approve", middleware.RequireAuth(), h.ApproveVersion)
		versions.POST("/:id/reject", middleware.RequireAuth(), h.RejectVersion)
		versions.POST("/:id/migrate", middleware.RequireAuth(), h.MigrateVersion)
		versions.POST("/:id/upload-to-main", middleware.RequirePermission("maindb.sync"), h.UploadToMain)
		versions.POST("/:id/download-from-main", middleware.RequirePermission("maindb.sync"), h.DownloadFromMain)
	}
}

// ListVersions returns paginated versions with optional status filter
// @Summary      List catalog versions
// @Tags         versions
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        status  query     string  false  "Filter by status: PENDING, APPROVED, REJECTED, MIGRATED"
// @Success      200     {object}  response.Response
// @Router       /api/versions [get]
func (h *VersionHandler) ListVersions(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.VersionFilter{
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	}

	versions, total, err := h.versionService.ListVersions(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"versions":   versions,
		"pagination": pagination.NewMeta(total, p),
	}))
}

// CreateVersion creates a new PENDING catalog version
// @Summary      Create version
// @Tags         versions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateVersionRequest  true  "Version payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/versions [post]
func (h *VersionHandler) CreateVersion(c *gin.Context) {
	var req service.CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	version, err := h.versionService.CreateVersion(c.Request.Context(), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, version))
}

// GetVersion returns one version with its staging entity counts
// @Summary      Get version
// @Tags         versions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Version ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/versions/{id} [get]
func (h *VersionHandler) GetVersion(c *gin.Context) {
	version, err := h.versionService.GetVersion(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, version))
}

// DeleteVersion removes a non-migrated version and its staging data
// @Summary      Delete version
// @Tags         versions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Version ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/versions/{id} [delete]
func (h *VersionHandler) DeleteVersion(c *gin.Context) {
	if err := h.versionService.DeleteVersion(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// ApproveVersion moves a PENDING version to APPROVED and pushes to main.
// A failed push is reported via push_failed without undoing the approval.
// @Summary      Approve version
// @Tags         versions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Version ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/versions/{id}/approve [post]
func (h *VersionHandler) ApproveVersion(c *gin.Context) {
	version, err := h.versionService.Approve(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, version))
}

// RejectVersion moves a PENDING version to REJECTED with a mandatory reason
// @Summary      Reject version
// @Tags         versions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "Version ID"
// @Param        payload  body  service.RejectVersionRequest   true  "Rejection reason"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/versions/{id}/reject [post]
func (h *VersionHandler) RejectVersion(c *gin.Context) {
	var req service.RejectVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "A rejection reason is required"))
		return
	}

	version, err := h.versionService.Reject(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.Reason)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, version))
}

// MigrateVersion moves an APPROVED version to MIGRATED
// @Summary      Migrate version
// @Tags         versions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Version ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/versions/{id}/migrate [post]
func (h *VersionHandler) MigrateVersion(c *gin.Context) {
	version, err := h.versionService.Migrate(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, version))
}

// UploadToMain copies the version's staging tree over the main mirror
// @Summary      Push staging to main
// @Tags         versions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Version ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/versions/{id}/upload-to-main [post]
func (h *VersionHandler) UploadToMain(c *gin.Context) {
	version, err := h.versionService.UploadToMain(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, version))
}

// DownloadFromMain resets the staging tree from main and forces PENDING
// @Summary      Pull main into staging
// @Tags         versions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Version ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/versions/{id}/download-from-main [post]
func (h *VersionHandler) DownloadFromMain(c *gin.Context) {
	version, err := h.versionService.DownloadFromMain(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, version))
}
