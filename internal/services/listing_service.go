package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// ListingService handles product listing business logic
type ListingService struct {
	db *sql.DB
}

// NewListingService creates a new listing service
func NewListingService(db *sql.DB) *ListingService {
	return &ListingService{db: db}
}

// CreateListing creates a new sell listing for a farmer. The location pin
// code defaults to the farmer's profile when the request omits it.
func (s *ListingService) CreateListing(farmerID string, req *models.CreateListingRequest) (*models.ProductListing, error) {
	var userType, profilePin string
	err := s.db.QueryRow(`SELECT user_type, location_pin_code FROM users WHERE id = ? AND is_active = TRUE`, farmerID).
		Scan(&userType, &profilePin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.NewUnauthorizedError("user not found")
		}
		return nil, fmt.Errorf("failed to look up farmer: %w", err)
	}
	if models.UserType(userType) != models.UserTypeFarmer {
		return nil, models.NewUnauthorizedError("only farmers can create listings")
	}

	pinCode := req.LocationPinCode
	if pinCode == "" {
		pinCode = profilePin
	}
	if pinCode == "" {
		return nil, models.NewValidationError("location pin code is required")
	}
	if req.AvailableFrom != nil && req.AvailableUntil != nil && req.AvailableUntil.Before(*req.AvailableFrom) {
		return nil, models.NewValidationError("availability window ends before it starts")
	}

	listing := &models.ProductListing{
		ID:                    uuid.New().String(),
		FarmerID:              farmerID,
		ProductName:           req.ProductName,
		QuantityKg:            req.QuantityKg,
		PriceExpectationPerKg: req.PriceExpectationPerKg,
		LocationPinCode:       pinCode,
		AvailableFrom:         req.AvailableFrom,
		AvailableUntil:        req.AvailableUntil,
		IsActive:              true,
		CreatedAt:             time.Now(),
	}

	query := `
		INSERT INTO product_listings (
			id, farmer_id, product_name, quantity_kg, price_expectation_per_kg,
			location_pin_code, available_from, available_until, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		listing.ID, listing.FarmerID, listing.ProductName, listing.QuantityKg,
		listing.PriceExpectationPerKg, listing.LocationPinCode,
		listing.AvailableFrom, listing.AvailableUntil, listing.IsActive, listing.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	log.Printf("Created listing %s (%s, %.1fkg) by farmer %s", listing.ID, listing.ProductName, listing.QuantityKg, farmerID)
	return listing, nil
}

// GetListing retrieves a single listing by id
func (s *ListingService) GetListing(listingID string) (*models.ProductListing, error) {
	row := s.db.QueryRow(listingSelectColumns+` WHERE id = ?`, listingID)
	listing, err := scanListing(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.NewValidationError("listing not found")
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

// GetFarmerListings retrieves a farmer's listings, newest first
func (s *ListingService) GetFarmerListings(farmerID string, limit, offset int) ([]models.ProductListing, error) {
	rows, err := s.db.Query(listingSelectColumns+`
		WHERE farmer_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, farmerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get farmer listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

// GetActiveListings retrieves active listings for buyers to browse, newest
// first
func (s *ListingService) GetActiveListings(limit, offset int) ([]models.ProductListing, error) {
	rows, err := s.db.Query(listingSelectColumns+`
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get active listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

// GetUngroupedActiveListings retrieves all active listings not yet claimed by
// a group, in stable creation order. The grouper scans this set.
func (s *ListingService) GetUngroupedActiveListings() ([]models.ProductListing, error) {
	rows, err := s.db.Query(listingSelectColumns + `
		WHERE is_active = TRUE AND group_id IS NULL
		ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get ungrouped listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

// GetGroupListings retrieves the member listings of a group
func (s *ListingService) GetGroupListings(groupID string) ([]models.ProductListing, error) {
	rows, err := s.db.Query(listingSelectColumns+`
		WHERE id IN (SELECT listing_id FROM farmer_group_listings WHERE group_id = ?)
		ORDER BY created_at ASC, rowid ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

// SaveEmbedding persists a listing's similarity fingerprint
func (s *ListingService) SaveEmbedding(listingID string, embedding []float64) error {
	l := models.ProductListing{Embedding: embedding}
	embeddingJSON, err := l.EmbeddingJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}
	_, err = s.db.Exec(`UPDATE product_listings SET embedding = ? WHERE id = ?`, embeddingJSON, listingID)
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	return nil
}

// DeactivateExpiredListings flips active=false on ungrouped listings whose
// availability window has passed. Runs from the scheduler.
func (s *ListingService) DeactivateExpiredListings() (int, error) {
	result, err := s.db.Exec(`
		UPDATE product_listings
		SET is_active = FALSE
		WHERE is_active = TRUE AND group_id IS NULL
		AND available_until IS NOT NULL AND available_until < ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired listings: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected > 0 {
		log.Printf("Deactivated %d expired listings", affected)
	}
	return int(affected), nil
}

const listingSelectColumns = `
	SELECT id, farmer_id, product_name, quantity_kg, price_expectation_per_kg,
	       location_pin_code, available_from, available_until, is_active,
	       group_id, embedding, created_at
	FROM product_listings`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*models.ProductListing, error) {
	var listing models.ProductListing
	var embeddingJSON sql.NullString
	err := row.Scan(
		&listing.ID, &listing.FarmerID, &listing.ProductName, &listing.QuantityKg,
		&listing.PriceExpectationPerKg, &listing.LocationPinCode,
		&listing.AvailableFrom, &listing.AvailableUntil, &listing.IsActive,
		&listing.GroupID, &embeddingJSON, &listing.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if embeddingJSON.Valid {
		if err := listing.SetEmbeddingFromJSON(embeddingJSON.String); err != nil {
			log.Printf("Warning: failed to decode embedding for listing %s: %v", listing.ID, err)
		}
	}
	return &listing, nil
}

func collectListings(rows *sql.Rows) ([]models.ProductListing, error) {
	var listings []models.ProductListing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *listing)
	}
	return listings, rows.Err()
}
