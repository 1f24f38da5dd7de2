package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/fog-backend-go/internal/contour"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/jengzang/fog-backend-go/internal/service"
	"github.com/jengzang/fog-backend-go/pkg/response"
)

// FogHandler serves discovered areas as GeoJSON
type FogHandler struct {
	service *service.FogService
}

// NewFogHandler creates a new fog handler
func NewFogHandler(service *service.FogService) *FogHandler {
	return &FogHandler{service: service}
}

func (h *FogHandler) rings(c *gin.Context) ([]contour.Ring, bool) {
	var filter models.ViewportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid viewport")
		return nil, false
	}
	rings, err := h.service.Rings(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return rings, true
}

// Rings returns the outlines of the discovered area
// GET /api/v1/fog/rings
func (h *FogHandler) Rings(c *gin.Context) {
	rings, ok := h.rings(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, contour.FeatureCollection(rings))
}

// Overlay returns the undiscovered area as one polygon with holes
// GET /api/v1/fog/overlay
func (h *FogHandler) Overlay(c *gin.Context) {
	rings, ok := h.rings(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, contour.Overlay(rings))
}
