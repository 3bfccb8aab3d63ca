package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
	"github.com/DheeruBhaiAmbani/kisan-ai/internal/services"
)

// AuthHandlers contains all authentication-related handlers
type AuthHandlers struct {
	userService *services.UserService
	authService *services.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(userService *services.UserService, authService *services.AuthService) *AuthHandlers {
	return &AuthHandlers{
		userService: userService,
		authService: authService,
	}
}

// Register handles user registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request data: "+err.Error())
		return
	}

	user, err := h.userService.CreateUser(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, gin.H{
		"user":  user,
		"token": token,
	})
}

// Login handles user authentication
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request data: "+err.Error())
		return
	}

	user, err := h.userService.AuthenticateUser(&req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid credentials",
		})
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"user":  user,
		"token": token,
	})
}

// Logout revokes the caller's token
func (h *AuthHandlers) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token != "" {
		h.authService.BlacklistToken(token)
	}

	respondOK(c, gin.H{"message": "Logged out"})
}

// RefreshToken issues a fresh token for one close to expiry
func (h *AuthHandlers) RefreshToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")

	refreshed, err := h.authService.RefreshToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	respondOK(c, gin.H{"token": refreshed})
}

// GetProfile returns the caller's user record with its type-specific profile
func (h *AuthHandlers) GetProfile(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	data := gin.H{"user": user}
	if user.IsFarmer() {
		profile, err := h.userService.GetFarmerProfile(userID)
		if err != nil {
			respondError(c, err)
			return
		}
		data["farmerProfile"] = profile
	} else {
		profile, err := h.userService.GetBuyerProfile(userID)
		if err != nil {
			respondError(c, err)
			return
		}
		data["buyerProfile"] = profile
	}

	respondOK(c, data)
}

// UpdateProfile applies partial updates to the caller's profile
func (h *AuthHandlers) UpdateProfile(c *gin.Context) {
	userID := c.GetString("userID")

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request data: "+err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"user": user})
}
