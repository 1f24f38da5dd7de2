package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/service"
	"github.com/jengzang/fog-backend-go/pkg/response"
)

// DiscoveryHandler handles HTTP requests for discovered cells
type DiscoveryHandler struct {
	service *service.DiscoveryService
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(service *service.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{service: service}
}

// Insert records discovered cells
// POST /api/v1/discoveries
func (h *DiscoveryHandler) Insert(c *gin.Context) {
	var req service.InsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.service.Insert(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"cells":      result.Cells.Tokens(),
		"cell_count": result.CellCount,
		"area":       result.Area,
		"instances":  result.Instances,
	})
}

// Clear forgets every discovered cell
// DELETE /api/v1/discoveries
func (h *DiscoveryHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "All discoveries cleared"})
}

// Cells returns the discovered cells inside a viewport
// GET /api/v1/discoveries/cells
func (h *DiscoveryHandler) Cells(c *gin.Context) {
	var filter models.ViewportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid viewport")
		return
	}

	found, err := h.service.Cells(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}

	level := filter.Level
	if level == 0 {
		level = service.DefaultViewportLevel
	}
	response.Success(c, gin.H{
		"level": level,
		"cells": found.Tokens(),
	})
}

// Export streams every discovered cell in the compressed format
// GET /api/v1/export
func (h *DiscoveryHandler) Export(c *gin.Context) {
	name := fmt.Sprintf("fog-%s.cells.zst", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", "application/zstd")
	c.Status(http.StatusOK)

	if err := h.service.Export(c.Request.Context(), c.Writer); err != nil {
		// headers are gone, the client sees a truncated stream
		c.Error(err)
	}
}
