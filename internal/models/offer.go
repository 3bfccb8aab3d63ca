package models

import "time"

// OfferStatus represents the status of a buyer offer
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusCountered OfferStatus = "countered"
)

// IsTerminal reports whether no further resolution may change the status.
// A countered offer stays open: fresh votes can still resolve it.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusAccepted || s == OfferStatusRejected
}

// Offer represents a buyer's bid against a farmer group
type Offer struct {
	ID                 string      `json:"id" db:"id"`
	GroupID            string      `json:"groupId" db:"group_id"`
	BuyerID            string      `json:"buyerId" db:"buyer_id"`
	OfferedPricePerKg  float64     `json:"offeredPricePerKg" db:"offered_price_per_kg"`
	OfferedQuantityKg  float64     `json:"offeredQuantityKg" db:"offered_quantity_kg"`
	DeliveryTerms      string      `json:"deliveryTerms" db:"delivery_terms"`
	Status             OfferStatus `json:"status" db:"status"`
	CreatedAt          time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time   `json:"updatedAt" db:"updated_at"`

	// Joined data (populated when needed)
	BuyerName string `json:"buyerName,omitempty"`
}

// VoteChoice represents a farmer's stance on an offer
type VoteChoice string

const (
	VoteChoiceAccept  VoteChoice = "accept"
	VoteChoiceReject  VoteChoice = "reject"
	VoteChoiceCounter VoteChoice = "counter"
)

// OfferVote represents a farmer's vote on an offer. There is at most one vote
// per (offer, farmer); casting again overwrites the earlier one.
type OfferVote struct {
	ID       string     `json:"id" db:"id"`
	OfferID  string     `json:"offerId" db:"offer_id"`
	FarmerID string     `json:"farmerId" db:"farmer_id"`
	Choice   VoteChoice `json:"choice" db:"choice"`
	Comment  string     `json:"comment" db:"comment"`
	VotedAt  time.Time  `json:"votedAt" db:"voted_at"`

	// Joined data (populated when needed)
	FarmerName string `json:"farmerName,omitempty"`
}

// VoteTally holds the current vote counts for one offer
type VoteTally struct {
	TotalVoters  int `json:"totalVoters"`
	AcceptCount  int `json:"acceptCount"`
	RejectCount  int `json:"rejectCount"`
	CounterCount int `json:"counterCount"`
}

// Resolve computes the offer resolution from the tally. The policy is
// evaluated in priority order: acceptance by quorum, then unilateral veto,
// then counter. Replaying the same votes always yields the same result.
func (t VoteTally) Resolve(acceptThreshold float64) OfferStatus {
	if t.TotalVoters > 0 && float64(t.AcceptCount)/float64(t.TotalVoters) >= acceptThreshold {
		return OfferStatusAccepted
	}
	if t.RejectCount >= 1 {
		return OfferStatusRejected
	}
	if t.CounterCount >= 1 {
		return OfferStatusCountered
	}
	return OfferStatusPending
}

// SubmitOfferRequest represents a buyer's offer submission
type SubmitOfferRequest struct {
	OfferedPricePerKg float64 `json:"offeredPricePerKg" binding:"required,gt=0"`
	OfferedQuantityKg float64 `json:"offeredQuantityKg" binding:"required,gt=0"`
	DeliveryTerms     string  `json:"deliveryTerms,omitempty" binding:"omitempty,max=1000"`
}

// CastVoteRequest represents a farmer's vote on an offer
type CastVoteRequest struct {
	Choice  VoteChoice `json:"choice" binding:"required,oneof=accept reject counter"`
	Comment string     `json:"comment,omitempty" binding:"omitempty,max=500"`
}
