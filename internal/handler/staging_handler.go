package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"carcatalog/internal/middleware"
	"carcatalog/internal/model"
	"carcatalog/internal/service"
	"carcatalog/pkg/pagination"
	"carcatalog/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// StagingHandler exposes the version-scoped editing surface: the brand tree
// CRUD, free-text search and Excel ingestion.
type StagingHandler struct {
	catalogService service.CatalogService
	searchService  service.SearchService
	importService  service.ImportService
}

func NewStagingHandler(catalogService service.CatalogService, searchService service.SearchService, importService service.ImportService) *StagingHandler {
	return &StagingHandler{
		catalogService: catalogService,
		searchService:  searchService,
		importService:  importService,
	}
}

func (h *StagingHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := middleware.RequirePermission("staging.read")
	write := middleware.RequirePermission("staging.write")

	staging := router.Group("/api/staging")
	{
		versions := staging.Group("/versions/:id")
		{
			versions.GET("/brands", read, h.ListBrands)
			versions.POST("/brands", write, h.CreateBrand)
			versions.PUT("/brands/:brandId", write, h.UpdateBrand)
			versions.DELETE("/brands/:brandId", write, h.DeleteBrand)

			versions.GET("/vehicle-lines", read, h.ListVehicleLines)
			versions.POST("/brands/:brandId/vehicle-lines", write, h.CreateVehicleLine)
			versions.PUT("/brands/:brandId/vehicle-lines/:lineId", write, h.UpdateVehicleLine)
			versions.DELETE("/brands/:brandId/vehicle-lines/:lineId", write, h.DeleteVehicleLine)

			versions.GET("/search", read, h.Search)
			versions.POST("/upload", write, h.UploadExcel)
		}

		staging.POST("/vehicle-lines/:lineId/models", write, h.CreateModel)
		staging.PUT("/vehicle-lines/:lineId/models/:modelId", write, h.UpdateModel)
		staging.DELETE("/vehicle-lines/:lineId/models/:modelId", write, h.DeleteModel)

		staging.POST("/models/:modelId/trims", write, h.CreateTrim)
		staging.PUT("/models/:modelId/trims/:trimId", write, h.UpdateTrim)
		staging.DELETE("/models/:modelId/trims/:trimId", write, h.DeleteTrim)

		staging.POST("/trims/:trimId/options", write, h.CreateOption)
		staging.PUT("/trims/:trimId/options/:optionId", write, h.UpdateOption)
		staging.DELETE("/trims/:trimId/options/:optionId", write, h.DeleteOption)

		staging.GET("/jobs/:jobId", read, h.GetJob)
	}
}

// --- Brands ---

// ListBrands returns a brand page; deep=true nests the full subtree per brand
// @Summary      List staging brands
// @Tags         staging
// @Security     BearerAuth
// @Produce      json
// @Param        id     path   string  true   "Version ID"
// @Param        page   query  int     false  "Page number (default: 1)"
// @Param        limit  query  int     false  "Items per page (default: 20)"
// @Param        deep   query  bool    false  "Include nested lines/models/trims/options"
// @Success      200  {object}  response.Response
// @Router       /api/staging/versions/{id}/brands [get]
func (h *StagingHandler) ListBrands(c *gin.Context) {
	p := pagination.Parse(c)
	deep := c.DefaultQuery("deep", "true") == "true"

	page, err := h.catalogService.ListBrands(c.Request.Context(), c.Param("id"), model.RealmStaging, p, deep)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}

// CreateBrand adds a brand to the version's staging tree
// @Summary      Create brand
// @Tags         staging
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true  "Version ID"
// @Param        payload  body  service.BrandPayload   true  "Brand payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/staging/versions/{id}/brands [post]
func (h *StagingHandler) CreateBrand(c *gin.Context) {
	var req service.BrandPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	brand, err := h.catalogService.CreateBrand(c.Request.Context(), c.Param("id"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, brand))
}

// UpdateBrand edits a brand within its version scope
// @Summary      Update brand
// @Tags         staging
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "Version ID"
// @Param        brandId  path  string                true  "Brand ID"
// @Param        payload  body  service.BrandPayload  true  "Brand payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/staging/versions/{id}/brands/{brandId} [put]
func (h *StagingHandler) UpdateBrand(c *gin.Context) {
	var req service.BrandPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	brand, err := h.catalogService.UpdateBrand(c.Request.Context(), c.Param("id"), c.Param("brandId"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, brand))
}

// DeleteBrand removes a brand and its whole subtree
// @Summary      Delete brand
// @Tags         staging
// @Security     BearerAuth
// @Produce      json
// @Param        id       path  string  true  "Version ID"
// @Param        brandId  path  string  true  "Brand ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/staging/versions/{id}/brands/{brandId} [delete]
func (h *StagingHandler) DeleteBrand(c *gin.Context) {
	if err := h.catalogService.DeleteBrand(c.Request.Context(), c.Param("id"), c.Param("brandId"), c.GetString("userID")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// --- Vehicle lines ---

// ListVehicleLines returns the line-centric page: each line carries its brand
// @Summary      List staging vehicle lines
// @Tags         staging
// @Security     BearerAuth
// @Produce      json
// @Param        id     path   string  true   "Version ID"
// @Param        page   query  int     false  "Page number (default: 1)"
// @Param        limit  query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/staging/versions/{id}/vehicle-lines [get]
func (h *StagingHandler) ListVehicleLines(c *gin.Context) {
	p := pagination.Parse(c)

	page, err := h.catalogService.ListVehicleLines(c.Request.Context(), c.Param("id"), model.RealmStaging, p)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}

func (h *StagingHandler) CreateVehicleLine(c *gin.Context) {
	var req service.VehicleLinePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	line, err := h.catalogService.CreateVehicleLine(c.Request.Context(), c.Param("id"), c.Param("brandId"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, line))
}

func (h *StagingHandler) UpdateVehicleLine(c *gin.Context) {
	var req service.VehicleLinePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	line, err := h.catalogService.UpdateVehicleLine(c.Request.Context(), c.Param("id"), c.Param("brandId"), c.Param("lineId"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, line))
}

func (h *StagingHandler) DeleteVehicleLine(c *gin.Context) {
	if err := h.catalogService.DeleteVehicleLine(c.Request.Context(), c.Param("id"), c.Param("brandId"), c.Param("lineId"), c.GetString("userID")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// --- Models ---

func (h *StagingHandler) CreateModel(c *gin.Context) {
	var req service.ModelPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	carModel, err := h.catalogService.CreateModel(c.Request.Context(), c.Param("lineId"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, carModel))
}

func (h *StagingHandler) UpdateModel(c *gin.Context) {
	var req service.ModelPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	carModel, err := h.catalogService.UpdateModel(c.Request.Context(), c.Param("lineId"), c.Param("modelId"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, carModel))
}

func (h *StagingHandler) DeleteModel(c *gin.Context) {
	if err := h.catalogService.DeleteModel(c.Request.Context(), c.Param("lineId"), c.Param("modelId"), c.GetString("userID")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// --- Trims ---

func (h *StagingHandler) CreateTrim(c *gin.Context) {
	var req service.TrimPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	trim, err := h.catalogService.CreateTrim(c.Request.Context(), c.Param("modelId"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, trim))
}

func (h *StagingHandler) UpdateTrim(c *gin.Context) {
	var req service.TrimPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	trim, err := h.catalogService.UpdateTrim(c.Request.Context(), c.Param("modelId"), c.Param("trimId"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, trim))
}

func (h *StagingHandler) DeleteTrim(c *gin.Context) {
	if err := h.catalogService.DeleteTrim(c.Request.Context(), c.Param("modelId"), c.Param("trimId"), c.GetString("userID")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// --- Options ---

func (h *StagingHandler) CreateOption(c *gin.Context) {
	var req service.OptionPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	option, err := h.catalogService.CreateOption(c.Request.Context(), c.Param("trimId"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, option))
}

func (h *StagingHandler) UpdateOption(c *gin.Context) {
	var req service.OptionPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	option, err := h.catalogService.UpdateOption(c.Request.Context(), c.Param("trimId"), c.Param("optionId"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, option))
}

func (h *StagingHandler) DeleteOption(c *gin.Context) {
	if err := h.catalogService.DeleteOption(c.Request.Context(), c.Param("trimId"), c.Param("optionId"), c.GetString("userID")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// --- Search ---

// Search runs ranked free-text search over the version's staging tree
// @Summary      Search staging catalog
// @Tags         staging
// @Security     BearerAuth
// @Produce      json
// @Param        id  path   string  true  "Version ID"
// @Param        q   query  string  true  "Query text"
// @Success      200  {object}  response.Response
// @Router       /api/staging/versions/{id}/search [get]
func (h *StagingHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Query parameter 'q' is required"))
		return
	}

	results, err := h.searchService.Search(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"results": results}))
}

// --- Excel ingestion ---

// UploadExcel starts an asynchronous catalog import for a PENDING version
// @Summary      Upload Excel catalog
// @Tags         staging
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id       path      string  true  "Version ID"
// @Param        file     formData  file    true  "xlsx/xls catalog sheet"
// @Param        country  formData  string  true  "Country code"
// @Success      202  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/staging/versions/{id}/upload [post]
func (h *StagingHandler) UploadExcel(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "An Excel file is required"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Only .xlsx and .xls files are accepted"))
		return
	}

	country := c.PostForm("country")
	if country == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "The 'country' field is required"))
		return
	}

	f, err := excelize.OpenReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to parse Excel file: "+err.Error()))
		return
	}
	defer f.Close()

	job, err := h.importService.StartImport(c.Request.Context(), c.Param("id"), c.GetString("userID"), header.Filename, country, f)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, response.Success(http.StatusAccepted, gin.H{"job_id": job.ID, "job": job}))
}

// GetJob is the poll endpoint for import job status
// @Summary      Get import job
// @Tags         staging
// @Security     BearerAuth
// @Produce      json
// @Param        jobId  path  string  true  "Job ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/staging/jobs/{jobId} [get]
func (h *StagingHandler) GetJob(c *gin.Context) {
	job, err := h.importService.GetJob(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, job))
}
