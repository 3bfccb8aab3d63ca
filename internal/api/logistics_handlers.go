package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/services"
)

// LogisticsHandlers contains supply-chain logistics handlers
type LogisticsHandlers struct {
	logisticsService *services.LogisticsService
}

// NewLogisticsHandlers creates new logistics handlers
func NewLogisticsHandlers(logisticsService *services.LogisticsService) *LogisticsHandlers {
	return &LogisticsHandlers{logisticsService: logisticsService}
}

// OptimizeLogistics plans pickup logistics for an accepted offer. The
// accepted-vote path enqueues this automatically; the endpoint retries
// planning when the external planner was down at acceptance time.
func (h *LogisticsHandlers) OptimizeLogistics(c *gin.Context) {
	record, err := h.logisticsService.OptimizeLogistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"logistics": record})
}

// GetLogistics returns the logistics record for an offer, if planned
func (h *LogisticsHandlers) GetLogistics(c *gin.Context) {
	record, err := h.logisticsService.GetByOfferID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "No logistics planned for this offer",
		})
		return
	}

	respondOK(c, gin.H{"logistics": record})
}
