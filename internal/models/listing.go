package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProductListing represents a farmer's intent to sell a quantity of a product
type ProductListing struct {
	ID                    string     `json:"id" db:"id"`
	FarmerID              string     `json:"farmerId" db:"farmer_id"`
	ProductName           string     `json:"productName" db:"product_name"`
	QuantityKg            float64    `json:"quantityKg" db:"quantity_kg"`
	PriceExpectationPerKg *float64   `json:"priceExpectationPerKg,omitempty" db:"price_expectation_per_kg"`
	LocationPinCode       string     `json:"locationPinCode" db:"location_pin_code"`
	AvailableFrom         *time.Time `json:"availableFrom,omitempty" db:"available_from"`
	AvailableUntil        *time.Time `json:"availableUntil,omitempty" db:"available_until"`
	IsActive              bool       `json:"isActive" db:"is_active"`
	GroupID               *string    `json:"groupId,omitempty" db:"group_id"`
	Embedding             []float64  `json:"-" db:"embedding"`
	CreatedAt             time.Time  `json:"createdAt" db:"created_at"`

	// Joined data (populated when needed)
	Farmer *User `json:"farmer,omitempty"`
}

// DescriptionText builds the canonical text the embedding fingerprint is
// computed from
func (l *ProductListing) DescriptionText() string {
	price := "market price"
	if l.PriceExpectationPerKg != nil {
		price = fmt.Sprintf("%.2f per kg", *l.PriceExpectationPerKg)
	}
	return fmt.Sprintf("%s from pin code %s at %s", l.ProductName, l.LocationPinCode, price)
}

// IsGrouped checks whether the listing has been pooled into a farmer group
func (l *ProductListing) IsGrouped() bool {
	return l.GroupID != nil && *l.GroupID != ""
}

// HasExpired checks whether the availability window has passed
func (l *ProductListing) HasExpired(now time.Time) bool {
	return l.AvailableUntil != nil && now.After(*l.AvailableUntil)
}

// EmbeddingJSON returns the fingerprint as a JSON string for storage
func (l *ProductListing) EmbeddingJSON() (string, error) {
	if len(l.Embedding) == 0 {
		return "", nil
	}
	data, err := json.Marshal(l.Embedding)
	return string(data), err
}

// SetEmbeddingFromJSON restores the fingerprint from its stored form
func (l *ProductListing) SetEmbeddingFromJSON(embeddingJSON string) error {
	if embeddingJSON == "" {
		l.Embedding = nil
		return nil
	}
	return json.Unmarshal([]byte(embeddingJSON), &l.Embedding)
}

// CreateListingRequest represents data for creating a new listing
type CreateListingRequest struct {
	ProductName           string     `json:"productName" binding:"required,min=1,max=100"`
	QuantityKg            float64    `json:"quantityKg" binding:"required,gt=0"`
	PriceExpectationPerKg *float64   `json:"priceExpectationPerKg,omitempty" binding:"omitempty,gt=0"`
	LocationPinCode       string     `json:"locationPinCode,omitempty"`
	AvailableFrom         *time.Time `json:"availableFrom,omitempty"`
	AvailableUntil        *time.Time `json:"availableUntil,omitempty"`
}
