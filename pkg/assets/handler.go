package assets

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"garrison/pkg/auth"
	"garrison/pkg/response"
)

type AssetHandler struct {
	service AssetService
}

func NewAssetHandler(service AssetService) *AssetHandler {
	return &AssetHandler{service: service}
}

func (h *AssetHandler) RegisterRoutes(router *gin.Engine, requireAuth gin.HandlerFunc) {
	grp := router.Group("/api/assets", requireAuth)
	grp.GET("/metrics", h.getMetrics)
	grp.GET("", h.listAssets)
	grp.GET("/:id", h.getAssetByID)
	grp.POST("", auth.RequireRoles(auth.RoleAdmin, auth.RoleLogisticsOfficer), h.createAsset)
	grp.PATCH("/:id", auth.RequireRoles(auth.RoleAdmin, auth.RoleLogisticsOfficer), h.updateAsset)
	grp.DELETE("/:id", auth.RequireRoles(auth.RoleAdmin), h.deleteAsset)
}

type createAssetRequest struct {
	AssetID        string            `json:"assetId" binding:"required"`
	Name           string            `json:"name" binding:"required"`
	Type           string            `json:"type" binding:"required"`
	Category       string            `json:"category" binding:"required"`
	SerialNumber   string            `json:"serialNumber" binding:"required"`
	CurrentBase    string            `json:"currentBase"`
	Status         string            `json:"status"`
	Condition      string            `json:"condition" binding:"required"`
	PurchaseDate   time.Time         `json:"purchaseDate" binding:"required"`
	PurchasePrice  float64           `json:"purchasePrice"`
	Supplier       string            `json:"supplier" binding:"required"`
	Specifications map[string]string `json:"specifications"`
}

// @Summary      Create asset
// @Tags         assets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createAssetRequest true "Asset creation request"
// @Success      201 {object} response.APIResponse{data=Asset}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /api/assets [post]
func (h *AssetHandler) createAsset(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	var req createAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	if req.PurchasePrice < 0 {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "purchase price cannot be negative", nil)
		return
	}

	a, err := h.service.CreateAsset(c.Request.Context(), actor, CreateAssetInput{
		AssetID:        req.AssetID,
		Name:           req.Name,
		Type:           req.Type,
		Category:       req.Category,
		SerialNumber:   req.SerialNumber,
		CurrentBase:    req.CurrentBase,
		Status:         req.Status,
		Condition:      req.Condition,
		PurchaseDate:   req.PurchaseDate,
		PurchasePrice:  req.PurchasePrice,
		Supplier:       req.Supplier,
		Specifications: req.Specifications,
	})
	if err != nil {
		response.SendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusCreated, true, "asset created successfully", a)
}

var assetAllowedUpdates = map[string]bool{
	"name":               true,
	"type":               true,
	"category":           true,
	"status":             true,
	"condition":          true,
	"specifications":     true,
	"maintenanceHistory": true,
	"currentBase":        true,
}

// @Summary      Update asset
// @Description  Updates allow-listed fields only. maintenanceHistory entries are appended.
// @Tags         assets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Asset record ID"
// @Success      200 {object} response.APIResponse{data=Asset}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /api/assets/{id} [patch]
func (h *AssetHandler) updateAsset(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	for field := range body {
		if !assetAllowedUpdates[field] {
			response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid updates: field "+field+" is not allowed", nil)
			return
		}
	}

	var input UpdateAssetInput
	fail := func() {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
	}
	if raw, ok := body["name"]; ok {
		if err := json.Unmarshal(raw, &input.Name); err != nil {
			fail()
			return
		}
	}
	if raw, ok := body["type"]; ok {
		if err := json.Unmarshal(raw, &input.Type); err != nil {
			fail()
			return
		}
	}
	if raw, ok := body["category"]; ok {
		if err := json.Unmarshal(raw, &input.Category); err != nil {
			fail()
			return
		}
	}
	if raw, ok := body["status"]; ok {
		if err := json.Unmarshal(raw, &input.Status); err != nil {
			fail()
			return
		}
	}
	if raw, ok := body["condition"]; ok {
		if err := json.Unmarshal(raw, &input.Condition); err != nil {
			fail()
			return
		}
	}
	if raw, ok := body["specifications"]; ok {
		if err := json.Unmarshal(raw, &input.Specifications); err != nil {
			fail()
			return
		}
	}
	if raw, ok := body["currentBase"]; ok {
		if err := json.Unmarshal(raw, &input.CurrentBase); err != nil {
			fail()
			return
		}
	}
	if raw, ok := body["maintenanceHistory"]; ok {
		if err := json.Unmarshal(raw, &input.MaintenanceEntries); err != nil {
			fail()
			return
		}
	}

	a, err := h.service.UpdateAsset(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		response.SendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "asset updated successfully", a)
}

// @Summary      Delete asset
// @Tags         assets
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Asset record ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /api/assets/{id} [delete]
func (h *AssetHandler) deleteAsset(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	if err := h.service.DeleteAsset(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "asset deleted successfully", nil)
}

// @Summary      Get asset by ID
// @Tags         assets
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Asset record ID"
// @Success      200 {object} response.APIResponse{data=Asset}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /api/assets/{id} [get]
func (h *AssetHandler) getAssetByID(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	a, err := h.service.GetAssetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "asset fetched", a)
}

// @Summary      List assets
// @Tags         assets
// @Produce      json
// @Security     BearerAuth
// @Param        page   query int    false "Page number" default(1)
// @Param        limit  query int    false "Items per page" default(10)
// @Param        type   query string false "Filter by asset type"
// @Param        status query string false "Filter by status"
// @Param        base   query string false "Filter by base (admin only)"
// @Success      200 {object} response.APIResponse{data=AssetList}
// @Router       /api/assets [get]
func (h *AssetHandler) listAssets(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	filters := AssetFilters{}
	if v := c.Query("type"); v != "" {
		if assetType, err := ParseAssetType(v); err == nil {
			filters.Type = &assetType
		}
	}
	if v := c.Query("status"); v != "" {
		if status, err := ParseAssetStatus(v); err == nil {
			filters.Status = &status
		}
	}
	if v := c.Query("base"); v != "" {
		filters.Base = &v
	}

	items, total, err := h.service.ListAssets(c.Request.Context(), actor, filters, page, limit)
	if err != nil {
		response.SendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "assets listed", AssetList{Items: items, Total: total, Page: page, Limit: limit})
}

// @Summary      Asset metrics
// @Description  Dashboard counts scoped to the actor's base unless the actor is an admin.
// @Tags         assets
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.APIResponse{data=Metrics}
// @Router       /api/assets/metrics [get]
func (h *AssetHandler) getMetrics(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	m, err := h.service.GetMetrics(c.Request.Context(), actor)
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "metrics fetched", m)
}
