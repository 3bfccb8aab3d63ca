package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// LogisticsService computes meeting point, route and cost once a deal closes.
// Work arrives on a queue so vote handling never blocks on the route planner;
// OptimizeLogistics is also callable directly and is idempotent either way.
type LogisticsService struct {
	db            *sql.DB
	planner       RoutePlanner
	notifications *NotificationService
	jobs          chan string
	stopChan      chan bool
}

// NewLogisticsService creates a new logistics service
func NewLogisticsService(db *sql.DB, planner RoutePlanner, notifications *NotificationService) *LogisticsService {
	return &LogisticsService{
		db:            db,
		planner:       planner,
		notifications: notifications,
		jobs:          make(chan string, 64),
		stopChan:      make(chan bool),
	}
}

// Start launches the background worker draining the job queue
func (s *LogisticsService) Start() {
	go func() {
		for {
			select {
			case offerID := <-s.jobs:
				if _, err := s.OptimizeLogistics(context.Background(), offerID); err != nil {
					// Routing failures leave no record and are retried on
					// the next trigger
					log.Printf("Warning: logistics optimization for offer %s failed: %v", offerID, err)
				}
			case <-s.stopChan:
				log.Println("Logistics worker stopped")
				return
			}
		}
	}()
	log.Println("Logistics worker started")
}

// Stop stops the background worker
func (s *LogisticsService) Stop() {
	s.stopChan <- true
}

// Enqueue schedules logistics optimization for an accepted offer
func (s *LogisticsService) Enqueue(offerID string) {
	select {
	case s.jobs <- offerID:
	default:
		log.Printf("Warning: logistics queue full, dropping trigger for offer %s (retriable)", offerID)
	}
}

// OptimizeLogistics computes and persists the logistics record for an
// accepted offer. Get-or-create: calling it twice for the same offer yields
// exactly one record, and a failed routing call leaves nothing behind.
func (s *LogisticsService) OptimizeLogistics(ctx context.Context, offerID string) (*models.LogisticsRecord, error) {
	offer, err := getOfferByID(s.db, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferStatusAccepted {
		return nil, models.NewInvalidStateError("offer %s is %s, logistics runs only for accepted offers",
			offerID, offer.Status)
	}

	if record, err := s.GetByOfferID(offerID); err != nil {
		return nil, err
	} else if record != nil {
		return record, nil
	}

	if s.planner == nil {
		return nil, models.NewExternalServiceError("routing", fmt.Errorf("no route planner configured"))
	}

	pinCodes, err := s.gatherPinCodes(offer)
	if err != nil {
		return nil, err
	}

	planCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	plan, err := s.planner.PlanRoute(planCtx, pinCodes)
	if err != nil {
		return nil, err
	}

	record := &models.LogisticsRecord{
		ID:              uuid.New().String(),
		OfferID:         offer.ID,
		GroupID:         offer.GroupID,
		MeetingPointLat: plan.MeetingPointLat,
		MeetingPointLon: plan.MeetingPointLon,
		RouteJSON:       plan.RouteJSON,
		EstimatedCost:   plan.EstimatedCost,
		CreatedAt:       time.Now(),
	}

	// INSERT OR IGNORE plus re-read collapses concurrent duplicate triggers
	// onto the one row that won
	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO supply_chain_logistics (
			id, offer_id, group_id, meeting_point_lat, meeting_point_lon,
			optimal_route_json, estimated_costs, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.OfferID, record.GroupID, record.MeetingPointLat,
		record.MeetingPointLon, record.RouteJSON, record.EstimatedCost, record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to persist logistics record: %w", err)
	}

	stored, err := s.GetByOfferID(offerID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("logistics record for offer %s missing after insert", offerID)
	}

	log.Printf("Logistics optimized for offer %s: estimated cost %.2f", offerID, stored.EstimatedCost)
	s.notifyParties(offer, stored)
	return stored, nil
}

// GetByOfferID retrieves the logistics record for an offer, or nil when none
// exists yet
func (s *LogisticsService) GetByOfferID(offerID string) (*models.LogisticsRecord, error) {
	var r models.LogisticsRecord
	err := s.db.QueryRow(`
		SELECT id, offer_id, group_id, meeting_point_lat, meeting_point_lon,
		       optimal_route_json, estimated_costs, created_at
		FROM supply_chain_logistics WHERE offer_id = ?`, offerID).
		Scan(&r.ID, &r.OfferID, &r.GroupID, &r.MeetingPointLat, &r.MeetingPointLon,
			&r.RouteJSON, &r.EstimatedCost, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get logistics record: %w", err)
	}
	return &r, nil
}

// gatherPinCodes collects the locations of every member listing plus the
// buyer
func (s *LogisticsService) gatherPinCodes(offer *models.Offer) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT l.location_pin_code
		FROM product_listings l
		JOIN farmer_group_listings m ON m.listing_id = l.id
		WHERE m.group_id = ?`, offer.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member locations: %w", err)
	}
	defer rows.Close()

	var pinCodes []string
	for rows.Next() {
		var pin string
		if err := rows.Scan(&pin); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		if pin != "" {
			pinCodes = append(pinCodes, pin)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var buyerPin string
	err = s.db.QueryRow(`SELECT location_pin_code FROM users WHERE id = ?`, offer.BuyerID).Scan(&buyerPin)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get buyer location: %w", err)
	}
	if buyerPin != "" {
		pinCodes = append(pinCodes, buyerPin)
	}
	return pinCodes, nil
}

// notifyParties tells the buyer and all group farmers that logistics are
// ready. Best-effort.
func (s *LogisticsService) notifyParties(offer *models.Offer, record *models.LogisticsRecord) {
	if s.notifications == nil {
		return
	}
	message := fmt.Sprintf("Pickup logistics are ready, estimated cost %.2f.", record.EstimatedCost)
	data := map[string]interface{}{"offerId": offer.ID, "groupId": offer.GroupID, "logisticsId": record.ID}

	s.notifications.Notify(offer.BuyerID, models.NotificationTypeLogistics, "Logistics ready", message, data)

	farmerIDs, err := groupFarmerIDs(s.db, offer.GroupID)
	if err != nil {
		log.Printf("Warning: failed to get farmers for logistics notification: %v", err)
		return
	}
	for _, farmerID := range farmerIDs {
		s.notifications.Notify(farmerID, models.NotificationTypeLogistics, "Logistics ready", message, data)
	}
}
