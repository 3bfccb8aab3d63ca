package api

import (
	"github.com/gin-gonic/gin"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
	"github.com/DheeruBhaiAmbani/kisan-ai/internal/services"
)

// OfferHandlers contains offer and vote handlers
type OfferHandlers struct {
	offerService *services.OfferService
	voteService  *services.VoteService
}

// NewOfferHandlers creates new offer handlers
func NewOfferHandlers(offerService *services.OfferService, voteService *services.VoteService) *OfferHandlers {
	return &OfferHandlers{
		offerService: offerService,
		voteService:  voteService,
	}
}

// SubmitOffer handles offer submission by buyers on a group
func (h *OfferHandlers) SubmitOffer(c *gin.Context) {
	buyerID := c.GetString("userID")
	groupID := c.Param("id")

	var req models.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request data: "+err.Error())
		return
	}

	offer, err := h.offerService.SubmitOffer(groupID, buyerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, gin.H{"offer": offer})
}

// GetOffer returns a single offer by ID
func (h *OfferHandlers) GetOffer(c *gin.Context) {
	offer, err := h.offerService.GetOffer(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"offer": offer})
}

// GetGroupOffers lists offers submitted on a group
func (h *OfferHandlers) GetGroupOffers(c *gin.Context) {
	limit, offset := paginationParams(c)

	offers, err := h.offerService.GetGroupOffers(c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"offers": offers})
}

// GetMyOffers lists the calling buyer's offers
func (h *OfferHandlers) GetMyOffers(c *gin.Context) {
	buyerID := c.GetString("userID")
	limit, offset := paginationParams(c)

	offers, err := h.offerService.GetBuyerOffers(buyerID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"offers": offers})
}

// CastVote records a farmer's vote on an offer and returns the offer in
// its possibly updated state
func (h *OfferHandlers) CastVote(c *gin.Context) {
	farmerID := c.GetString("userID")
	offerID := c.Param("id")

	var req models.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request data: "+err.Error())
		return
	}

	offer, err := h.voteService.CastVote(offerID, farmerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"offer": offer})
}

// GetOfferVotes lists the votes recorded on an offer
func (h *OfferHandlers) GetOfferVotes(c *gin.Context) {
	votes, err := h.voteService.GetOfferVotes(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"votes": votes})
}
