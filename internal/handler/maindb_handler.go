package handler

import (
	"net/http"

	"carcatalog/internal/middleware"
	"carcatalog/internal/model"
	"carcatalog/internal/service"
	"carcatalog/pkg/pagination"
	"carcatalog/pkg/response"

	"github.com/gin-gonic/gin"
)

// MainDBHandler is the read-only surface over the main realm: the live
// catalog as last pushed by an approved version.
type MainDBHandler struct {
	catalogService    service.CatalogService
	statisticsService service.StatisticsService
}

func NewMainDBHandler(catalogService service.CatalogService, statisticsService service.StatisticsService) *MainDBHandler {
	return &MainDBHandler{catalogService: catalogService, statisticsService: statisticsService}
}

func (h *MainDBHandler) RegisterRoutes(router *gin.RouterGroup) {
	mainDB := router.Group("/api/main-db")
	{
		mainDB.GET("/brands", middleware.RequirePermission("maindb.read"), h.ListBrands)
		mainDB.GET("/summary", middleware.RequirePermission("maindb.read"), h.GetSummary)
	}
}

// ListBrands returns the main-realm brand page with the full nested subtree
// @Summary      List main-DB brands
// @Tags         main-db
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/main-db/brands [get]
func (h *MainDBHandler) ListBrands(c *gin.Context) {
	p := pagination.Parse(c)

	// Main rows keep the version ID of whichever version pushed them, so the
	// listing goes by realm alone.
	page, err := h.catalogService.ListBrands(c.Request.Context(), "", model.RealmMain, p, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}

// GetSummary returns main-realm entity counts and last sync info
// @Summary      Main-DB summary
// @Tags         main-db
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/main-db/summary [get]
func (h *MainDBHandler) GetSummary(c *gin.Context) {
	summary, err := h.statisticsService.GetMainSummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
