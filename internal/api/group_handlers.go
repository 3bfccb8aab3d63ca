package api

import (
	"github.com/gin-gonic/gin"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/services"
)

// GroupHandlers contains farmer group handlers
type GroupHandlers struct {
	groupingService *services.GroupingService
	listingService  *services.ListingService
}

// NewGroupHandlers creates new group handlers
func NewGroupHandlers(groupingService *services.GroupingService, listingService *services.ListingService) *GroupHandlers {
	return &GroupHandlers{
		groupingService: groupingService,
		listingService:  listingService,
	}
}

// GetActiveGroups lists groups that are still open for offers
func (h *GroupHandlers) GetActiveGroups(c *gin.Context) {
	limit, offset := paginationParams(c)

	groups, err := h.groupingService.GetActiveGroups(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"groups": groups})
}

// GetGroup returns a single group with its member listings
func (h *GroupHandlers) GetGroup(c *gin.Context) {
	group, err := h.groupingService.GetGroup(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	listings, err := h.listingService.GetGroupListings(group.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	group.Listings = listings

	respondOK(c, gin.H{"group": group})
}

// RunGrouping triggers a grouping sweep on demand. The scheduler runs the
// same sweep periodically; this endpoint exists for operators and tests.
func (h *GroupHandlers) RunGrouping(c *gin.Context) {
	created, err := h.groupingService.GroupSimilarListings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"groupsCreated": created})
}
