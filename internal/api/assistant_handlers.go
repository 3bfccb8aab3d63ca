package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/services"
)

// maxCropImageSize bounds uploaded diagnosis photos
const maxCropImageSize = 5 * 1024 * 1024

// AssistantHandlers contains AI assistant handlers
type AssistantHandlers struct {
	assistantService *services.AssistantService
	userService      *services.UserService
}

// NewAssistantHandlers creates new assistant handlers
func NewAssistantHandlers(assistantService *services.AssistantService, userService *services.UserService) *AssistantHandlers {
	return &AssistantHandlers{
		assistantService: assistantService,
		userService:      userService,
	}
}

// QueryRequest represents an assistant query
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// Query answers a free-text farming question for the caller
func (h *AssistantHandlers) Query(c *gin.Context) {
	if h.assistantService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Assistant is not configured",
		})
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request data: "+err.Error())
		return
	}

	// Location grounding uses the caller's registered pin code when available
	pinCode := ""
	if user, err := h.userService.GetUserByID(c.GetString("userID")); err == nil {
		pinCode = user.LocationPinCode
	}

	answer, err := h.assistantService.Answer(c.Request.Context(), req.Query, pinCode)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"answer": answer})
}

// DiagnoseCrop analyzes an uploaded crop photo
func (h *AssistantHandlers) DiagnoseCrop(c *gin.Context) {
	if h.assistantService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Assistant is not configured",
		})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		respondBadRequest(c, "Image file required")
		return
	}
	defer file.Close()

	if header.Size > maxCropImageSize {
		respondBadRequest(c, "Image too large")
		return
	}

	image, err := io.ReadAll(io.LimitReader(file, maxCropImageSize))
	if err != nil {
		respondBadRequest(c, "Failed to read image")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	diagnosis, err := h.assistantService.DiagnoseCrop(c.Request.Context(), image, mimeType)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"diagnosis": diagnosis})
}
