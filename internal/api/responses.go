package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// respondError maps service errors to HTTP status codes using the shared
// response envelope.
func respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	var unauthorizedErr *models.UnauthorizedError
	var stateErr *models.InvalidStateError
	var externalErr *models.ExternalServiceError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &unauthorizedErr):
		status = http.StatusForbidden
	case errors.As(err, &stateErr):
		status = http.StatusConflict
	case errors.As(err, &externalErr):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   message,
	})
}

// paginationParams reads limit/offset query parameters with sane bounds
func paginationParams(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
