package transfers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"garrison/pkg/auth"
	"garrison/pkg/response"
)

type TransferHandler struct {
	service TransferService
}

func NewTransferHandler(service TransferService) *TransferHandler {
	return &TransferHandler{service: service}
}

func (h *TransferHandler) RegisterRoutes(router *gin.Engine, requireAuth gin.HandlerFunc) {
	grp := router.Group("/api/transfers", requireAuth)
	grp.GET("", h.listTransfers)
	grp.GET("/:id", h.getTransferByID)
	grp.POST("", auth.RequireRoles(auth.RoleLogisticsOfficer), h.createTransfer)
	grp.PATCH("/:id/status", auth.RequireRoles(auth.RoleAdmin, auth.RoleBaseCommander), h.updateTransferStatus)
}

type createTransferRequest struct {
	ToBase        string           `json:"toBase" binding:"required"`
	Reason        string           `json:"reason" binding:"required"`
	Priority      string           `json:"priority"`
	ScheduledDate time.Time        `json:"scheduledDate"`
	Transport     TransportDetails `json:"transportDetails"`
	Notes         string           `json:"notes"`
	Assets        []TransferAsset  `json:"assets" binding:"required"`
}

// @Summary      Request transfer
// @Description  Opens a PENDING transfer from the requester's base and reserves every manifest asset.
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createTransferRequest true "Transfer request"
// @Success      201 {object} response.APIResponse{data=Transfer}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) createTransfer(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	var req createTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	t, err := h.service.CreateTransfer(c.Request.Context(), actor, CreateTransferInput{
		ToBase:        req.ToBase,
		Reason:        req.Reason,
		Priority:      req.Priority,
		ScheduledDate: req.ScheduledDate,
		Transport:     req.Transport,
		Notes:         req.Notes,
		Assets:        req.Assets,
	})
	if err != nil {
		response.SendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusCreated, true, "transfer created successfully", t)
}

type updateTransferStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// @Summary      Advance transfer
// @Description  Moves a transfer along PENDING, APPROVED, IN_TRANSIT, COMPLETED or cancels it.
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transfer record ID"
// @Param        request body updateTransferStatusRequest true "Target status"
// @Success      200 {object} response.APIResponse{data=Transfer}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /api/transfers/{id}/status [patch]
func (h *TransferHandler) updateTransferStatus(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	var req updateTransferStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	t, err := h.service.UpdateTransferStatus(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		response.SendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "transfer updated successfully", t)
}

// @Summary      Get transfer by ID
// @Tags         transfers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transfer record ID"
// @Success      200 {object} response.APIResponse{data=Transfer}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) getTransferByID(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	t, err := h.service.GetTransferByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "transfer fetched", t)
}

// @Summary      List transfers
// @Tags         transfers
// @Produce      json
// @Security     BearerAuth
// @Param        page     query int    false "Page number" default(1)
// @Param        limit    query int    false "Items per page" default(10)
// @Param        status   query string false "Filter by status"
// @Param        priority query string false "Filter by priority"
// @Param        base     query string false "Filter by base on either end (admin only)"
// @Success      200 {object} response.APIResponse{data=TransferList}
// @Router       /api/transfers [get]
func (h *TransferHandler) listTransfers(c *gin.Context) {
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

	filters := TransferFilters{}
	if v := c.Query("status"); v != "" {
		if status, err := ParseTransferStatus(v); err == nil {
			filters.Status = &status
		}
	}
	if v := c.Query("priority"); v != "" {
		if priority, err := ParsePriority(v); err == nil {
			filters.Priority = &priority
		}
	}
	if v := c.Query("base"); v != "" {
		filters.Base = &v
	}

	items, total, err := h.service.ListTransfers(c.Request.Context(), actor, filters, page, limit)
	if err != nil {
		response.SendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "transfers listed", TransferList{Items: items, Total: total, Page: page, Limit: limit})
}
