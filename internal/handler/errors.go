package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/fog-backend-go/internal/convert"
	"github.com/jengzang/fog-backend-go/internal/coverage"
	"github.com/jengzang/fog-backend-go/internal/region"
	"github.com/jengzang/fog-backend-go/internal/repository"
	"github.com/jengzang/fog-backend-go/internal/service"
	"github.com/jengzang/fog-backend-go/internal/store"
	"github.com/jengzang/fog-backend-go/pkg/response"
)

var badRequest = []error{
	service.ErrInvalidToken,
	service.ErrInvalidPoint,
	service.ErrEmptyInsert,
	service.ErrInvalidRequest,
	region.ErrInvalidCode,
	coverage.ErrInvalidLevel,
	store.ErrInvalidResolution,
	convert.ErrUnknownFormat,
	convert.ErrInvalidFileName,
}

var notFound = []error{
	store.ErrRegionNotFound,
	repository.ErrTaskNotFound,
}

// respondError maps service errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			response.BadRequest(c, err.Error())
			return
		}
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			response.NotFound(c, err.Error())
			return
		}
	}
	c.Error(err)
	response.InternalError(c, err.Error())
}

// currentUser returns the user set by the auth middleware
func currentUser(c *gin.Context) string {
	user := c.GetString("user")
	if user == "" {
		user = "admin" // Default for now
	}
	return user
}
