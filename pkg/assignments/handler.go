package assignments

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"garrison/pkg/auth"
	"garrison/pkg/response"
)

type AssignmentHandler struct {
	service AssignmentService
}

func NewAssignmentHandler(service AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

func (h *AssignmentHandler) RegisterRoutes(router *gin.Engine, requireAuth gin.HandlerFunc) {
	grp := router.Group("/api/assignments", requireAuth)
	grp.GET("", h.listAssignments)
	grp.GET("/:id", h.getAssignmentByID)
	grp.POST("", auth.RequireRoles(auth.RoleLogisticsOfficer), h.createAssignment)
	grp.PATCH("/:id/status", h.updateAssignmentStatus)
}

type createAssignmentRequest struct {
	AssetID    string    `json:"assetId" binding:"required"`
	AssignedTo string    `json:"assignedTo" binding:"required"`
	Purpose    string    `json:"purpose" binding:"required"`
	Notes      string    `json:"notes"`
	StartDate  time.Time `json:"startDate"`
}

// @Summary      Open assignment
// @Description  Captures an available asset and hands custody to the assignee.
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createAssignmentRequest true "Assignment request"
// @Success      201 {object} response.APIResponse{data=Assignment}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /api/assignments [post]
func (h *AssignmentHandler) createAssignment(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	a, err := h.service.CreateAssignment(c.Request.Context(), actor, CreateAssignmentInput{
		AssetID:    req.AssetID,
		AssignedTo: req.AssignedTo,
		Purpose:    req.Purpose,
		Notes:      req.Notes,
		StartDate:  req.StartDate,
	})
	if err != nil {
		response.SendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusCreated, true, "assignment created successfully", a)
}

type closeAssignmentRequest struct {
	Status                 string  `json:"status" binding:"required"`
	ConditionAtReturn      string  `json:"conditionAtReturn"`
	ReturnNotes            string  `json:"returnNotes"`
	MaintenanceRequired    bool    `json:"maintenanceRequired"`
	MaintenanceDescription string  `json:"maintenanceDescription"`
	MaintenanceCost        float64 `json:"maintenanceCost"`
}

// @Summary      Close assignment
// @Description  Moves an active assignment to RETURNED, LOST or DAMAGED and releases the asset.
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Assignment record ID"
// @Param        request body closeAssignmentRequest true "Closing request"
// @Success      200 {object} response.APIResponse{data=Assignment}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /api/assignments/{id}/status [patch]
func (h *AssignmentHandler) updateAssignmentStatus(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	var req closeAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	a, err := h.service.UpdateAssignmentStatus(c.Request.Context(), actor, c.Param("id"), CloseAssignmentInput{
		Status:                 req.Status,
		ConditionAtReturn:      req.ConditionAtReturn,
		ReturnNotes:            req.ReturnNotes,
		MaintenanceRequired:    req.MaintenanceRequired,
		MaintenanceDescription: req.MaintenanceDescription,
		MaintenanceCost:        req.MaintenanceCost,
	})
	if err != nil {
		response.SendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "assignment updated successfully", a)
}

// @Summary      Get assignment by ID
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Assignment record ID"
// @Success      200 {object} response.APIResponse{data=Assignment}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /api/assignments/{id} [get]
func (h *AssignmentHandler) getAssignmentByID(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	a, err := h.service.GetAssignmentByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "assignment fetched", a)
}

// @Summary      List assignments
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        page       query int    false "Page number" default(1)
// @Param        limit      query int    false "Items per page" default(10)
// @Param        status     query string false "Filter by status"
// @Param        assetId    query string false "Filter by asset record ID"
// @Param        assignedTo query string false "Filter by assignee"
// @Param        base       query string false "Filter by base (admin only)"
// @Success      200 {object} response.APIResponse{data=AssignmentList}
// @Router       /api/assignments [get]
func (h *AssignmentHandler) listAssignments(c *gin.Context) {
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

	filters := AssignmentFilters{}
	if v := c.Query("status"); v != "" {
		if status, err := ParseAssignmentStatus(v); err == nil {
			filters.Status = &status
		}
	}
	if v := c.Query("assetId"); v != "" {
		filters.AssetID = &v
	}
	if v := c.Query("assignedTo"); v != "" {
		filters.AssignedTo = &v
	}
	if v := c.Query("base"); v != "" {
		filters.Base = &v
	}

	items, total, err := h.service.ListAssignments(c.Request.Context(), actor, filters, page, limit)
	if err != nil {
		response.SendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "assignments listed", AssignmentList{Items: items, Total: total, Page: page, Limit: limit})
}
