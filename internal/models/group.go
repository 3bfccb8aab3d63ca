package models

import "time"

// GroupStatus represents the status of a farmer group. Transitions are
// monotonic: active -> negotiating -> deal_closed.
type GroupStatus string

const (
	GroupStatusActive      GroupStatus = "active"
	GroupStatusNegotiating GroupStatus = "negotiating"
	GroupStatusDealClosed  GroupStatus = "deal_closed"
)

// FarmerGroup represents a frozen cluster of listings pooled for collective
// sale. The member set never changes after creation.
type FarmerGroup struct {
	ID              string      `json:"id" db:"id"`
	Name            string      `json:"name" db:"name"`
	LeaderID        string      `json:"leaderId" db:"leader_id"`
	TotalQuantityKg float64     `json:"totalQuantityKg" db:"total_quantity_kg"`
	Status          GroupStatus `json:"status" db:"status"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`

	// Joined data (populated when needed)
	Listings   []ProductListing `json:"listings,omitempty"`
	LeaderName string           `json:"leaderName,omitempty"`
}

// CanAcceptOffers checks whether buyers may still submit offers
func (g *FarmerGroup) CanAcceptOffers() bool {
	return g.Status == GroupStatusActive || g.Status == GroupStatusNegotiating
}

// IsValidGroupStatus checks if the group status is valid
func IsValidGroupStatus(status string) bool {
	switch GroupStatus(status) {
	case GroupStatusActive, GroupStatusNegotiating, GroupStatusDealClosed:
		return true
	default:
		return false
	}
}
