package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// OfferService records buyer offers against farmer groups
type OfferService struct {
	db            *sql.DB
	notifications *NotificationService
}

// NewOfferService creates a new offer service
func NewOfferService(db *sql.DB, notifications *NotificationService) *OfferService {
	return &OfferService{db: db, notifications: notifications}
}

// SubmitOffer creates a pending offer against a group. The first offer moves
// the group from active to negotiating; once a deal closes the group takes
// no more offers.
func (s *OfferService) SubmitOffer(groupID, buyerID string, req *models.SubmitOfferRequest) (*models.Offer, error) {
	var userType string
	err := s.db.QueryRow(`SELECT user_type FROM users WHERE id = ? AND is_active = TRUE`, buyerID).Scan(&userType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.NewUnauthorizedError("user not found")
		}
		return nil, fmt.Errorf("failed to look up buyer: %w", err)
	}
	if models.UserType(userType) != models.UserTypeBuyer {
		return nil, models.NewUnauthorizedError("only buyers can submit offers")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var group models.FarmerGroup
	err = tx.QueryRow(`
		SELECT id, name, leader_id, total_quantity_kg, status
		FROM farmer_groups WHERE id = ?`, groupID).
		Scan(&group.ID, &group.Name, &group.LeaderID, &group.TotalQuantityKg, &group.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.NewValidationError("farmer group not found")
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if !group.CanAcceptOffers() {
		return nil, models.NewInvalidStateError("group %s is %s and no longer accepts offers", group.ID, group.Status)
	}
	if req.OfferedQuantityKg > group.TotalQuantityKg {
		return nil, models.NewValidationError("offered quantity %.1fkg exceeds group total of %.1fkg",
			req.OfferedQuantityKg, group.TotalQuantityKg)
	}

	now := time.Now()
	offer := &models.Offer{
		ID:                uuid.New().String(),
		GroupID:           groupID,
		BuyerID:           buyerID,
		OfferedPricePerKg: req.OfferedPricePerKg,
		OfferedQuantityKg: req.OfferedQuantityKg,
		DeliveryTerms:     req.DeliveryTerms,
		Status:            models.OfferStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err = tx.Exec(`
		INSERT INTO offers (
			id, group_id, buyer_id, offered_price_per_kg, offered_quantity_kg,
			delivery_terms, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		offer.ID, offer.GroupID, offer.BuyerID, offer.OfferedPricePerKg,
		offer.OfferedQuantityKg, offer.DeliveryTerms, offer.Status,
		offer.CreatedAt, offer.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	if group.Status == models.GroupStatusActive {
		_, err = tx.Exec(`UPDATE farmer_groups SET status = ? WHERE id = ? AND status = ?`,
			models.GroupStatusNegotiating, groupID, models.GroupStatusActive)
		if err != nil {
			return nil, fmt.Errorf("failed to move group to negotiating: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit offer: %w", err)
	}

	log.Printf("Offer %s submitted on group %s by buyer %s (%.2f/kg for %.1fkg)",
		offer.ID, groupID, buyerID, offer.OfferedPricePerKg, offer.OfferedQuantityKg)
	s.notifyGroupFarmers(groupID, offer)
	return offer, nil
}

// GetOffer retrieves a single offer by id
func (s *OfferService) GetOffer(offerID string) (*models.Offer, error) {
	return getOfferByID(s.db, offerID)
}

// GetGroupOffers retrieves all offers on a group, newest first
func (s *OfferService) GetGroupOffers(groupID string, limit, offset int) ([]models.Offer, error) {
	rows, err := s.db.Query(`
		SELECT o.id, o.group_id, o.buyer_id, o.offered_price_per_kg, o.offered_quantity_kg,
		       o.delivery_terms, o.status, o.created_at, o.updated_at,
		       u.first_name, u.last_name
		FROM offers o
		JOIN users u ON o.buyer_id = u.id
		WHERE o.group_id = ?
		ORDER BY o.created_at DESC
		LIMIT ? OFFSET ?`, groupID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get group offers: %w", err)
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		var o models.Offer
		var firstName, lastName string
		err := rows.Scan(&o.ID, &o.GroupID, &o.BuyerID, &o.OfferedPricePerKg, &o.OfferedQuantityKg,
			&o.DeliveryTerms, &o.Status, &o.CreatedAt, &o.UpdatedAt, &firstName, &lastName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		o.BuyerName = firstName + " " + lastName
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// GetBuyerOffers retrieves the offers a buyer has submitted, newest first
func (s *OfferService) GetBuyerOffers(buyerID string, limit, offset int) ([]models.Offer, error) {
	rows, err := s.db.Query(`
		SELECT id, group_id, buyer_id, offered_price_per_kg, offered_quantity_kg,
		       delivery_terms, status, created_at, updated_at
		FROM offers
		WHERE buyer_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, buyerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get buyer offers: %w", err)
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		var o models.Offer
		err := rows.Scan(&o.ID, &o.GroupID, &o.BuyerID, &o.OfferedPricePerKg, &o.OfferedQuantityKg,
			&o.DeliveryTerms, &o.Status, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// notifyGroupFarmers tells every farmer in the group about a new offer
func (s *OfferService) notifyGroupFarmers(groupID string, offer *models.Offer) {
	if s.notifications == nil {
		return
	}
	farmerIDs, err := groupFarmerIDs(s.db, groupID)
	if err != nil {
		log.Printf("Warning: failed to get farmers for offer notification: %v", err)
		return
	}
	for _, farmerID := range farmerIDs {
		s.notifications.Notify(farmerID, models.NotificationTypeOffer,
			"New offer on your group",
			fmt.Sprintf("A buyer offered %.2f per kg for %.1fkg. Cast your vote.",
				offer.OfferedPricePerKg, offer.OfferedQuantityKg),
			map[string]interface{}{"offerId": offer.ID, "groupId": groupID})
	}
}

func getOfferByID(db *sql.DB, offerID string) (*models.Offer, error) {
	var o models.Offer
	err := db.QueryRow(`
		SELECT id, group_id, buyer_id, offered_price_per_kg, offered_quantity_kg,
		       delivery_terms, status, created_at, updated_at
		FROM offers WHERE id = ?`, offerID).
		Scan(&o.ID, &o.GroupID, &o.BuyerID, &o.OfferedPricePerKg, &o.OfferedQuantityKg,
			&o.DeliveryTerms, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.NewValidationError("offer not found")
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return &o, nil
}

// groupFarmerIDs returns the distinct farmers owning a member listing of the
// group. This is also the eligible voter set for the group's offers.
func groupFarmerIDs(db *sql.DB, groupID string) ([]string, error) {
	rows, err := db.Query(`
		SELECT DISTINCT l.farmer_id
		FROM product_listings l
		JOIN farmer_group_listings m ON m.listing_id = l.id
		WHERE m.group_id = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group farmers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan farmer id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
