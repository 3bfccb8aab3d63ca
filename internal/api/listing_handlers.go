package api

import (
	"github.com/gin-gonic/gin"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
	"github.com/DheeruBhaiAmbani/kisan-ai/internal/services"
)

// ListingHandlers contains product listing handlers
type ListingHandlers struct {
	listingService *services.ListingService
}

// NewListingHandlers creates new listing handlers
func NewListingHandlers(listingService *services.ListingService) *ListingHandlers {
	return &ListingHandlers{listingService: listingService}
}

// CreateListing handles listing creation by farmers
func (h *ListingHandlers) CreateListing(c *gin.Context) {
	farmerID := c.GetString("userID")

	var req models.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request data: "+err.Error())
		return
	}

	listing, err := h.listingService.CreateListing(farmerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, gin.H{"listing": listing})
}

// BrowseListings returns active listings for buyers to browse
func (h *ListingHandlers) BrowseListings(c *gin.Context) {
	limit, offset := paginationParams(c)

	listings, err := h.listingService.GetActiveListings(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"listings": listings})
}

// GetListing returns a single listing by ID
func (h *ListingHandlers) GetListing(c *gin.Context) {
	listing, err := h.listingService.GetListing(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"listing": listing})
}

// GetMyListings returns the caller's listings
func (h *ListingHandlers) GetMyListings(c *gin.Context) {
	farmerID := c.GetString("userID")
	limit, offset := paginationParams(c)

	listings, err := h.listingService.GetFarmerListings(farmerID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"listings": listings})
}
