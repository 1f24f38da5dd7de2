package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/service"
	"github.com/jengzang/fog-backend-go/pkg/response"
)

// StatisticsHandler handles HTTP requests for region statistics
type StatisticsHandler struct {
	service *service.StatsService
}

// NewStatisticsHandler creates a new statistics handler
func NewStatisticsHandler(service *service.StatsService) *StatisticsHandler {
	return &StatisticsHandler{service: service}
}

// List retrieves region statistics
// GET /api/v1/statistics
func (h *StatisticsHandler) List(c *gin.Context) {
	var filter models.StatisticFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	switch filter.Scope {
	case "", models.ScopeAll, models.ScopeCountries, models.ScopeSubdivisions:
	default:
		response.BadRequest(c, "Invalid scope: "+filter.Scope)
		return
	}

	stats, err := h.service.List(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"statistics": stats,
		"page":       filter.Page,
		"page_size":  filter.PageSize,
	})
}

// Get retrieves the statistic of one region
// GET /api/v1/statistics/:code
func (h *StatisticsHandler) Get(c *gin.Context) {
	stat, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, stat)
}

// SetVisibilityRequest represents the request body for showing or hiding a region
type SetVisibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// SetVisibility shows or hides a region
// PATCH /api/v1/statistics/:code/visibility
func (h *StatisticsHandler) SetVisibility(c *gin.Context) {
	var req SetVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.service.SetVisible(c.Request.Context(), c.Param("code"), *req.Visible); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"code": c.Param("code"), "visible": *req.Visible})
}

// History retrieves the latest committed inserts
// GET /api/v1/history
func (h *StatisticsHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}

	history, err := h.service.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, history)
}
