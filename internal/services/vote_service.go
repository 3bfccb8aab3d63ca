package services

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// VoteService collects farmer votes on offers and resolves offer status from
// the tallies. The count-then-decide step runs under a per-offer lock so
// concurrent votes cannot double-accept an offer or lose an update.
type VoteService struct {
	db              *sql.DB
	notifications   *NotificationService
	logistics       *LogisticsService
	acceptThreshold float64

	mu         sync.Mutex
	offerLocks map[string]*sync.Mutex
}

// NewVoteService creates a new vote tally service
func NewVoteService(db *sql.DB, notifications *NotificationService, logistics *LogisticsService, acceptThreshold float64) *VoteService {
	return &VoteService{
		db:              db,
		notifications:   notifications,
		logistics:       logistics,
		acceptThreshold: acceptThreshold,
		offerLocks:      make(map[string]*sync.Mutex),
	}
}

func (s *VoteService) lockOffer(offerID string) *sync.Mutex {
	s.mu.Lock()
	lock, ok := s.offerLocks[offerID]
	if !ok {
		lock = &sync.Mutex{}
		s.offerLocks[offerID] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock
}

// forgetOffer drops the lock entry for an offer that reached a terminal
// state, so the map does not grow with every offer ever voted on. A voter
// still holding the old lock is harmless: evaluateOffer short-circuits on
// terminal offers.
func (s *VoteService) forgetOffer(offerID string) {
	s.mu.Lock()
	delete(s.offerLocks, offerID)
	s.mu.Unlock()
}

// CastVote upserts the farmer's vote on the offer and re-evaluates the
// offer's resolution. A farmer may change their vote; only the latest vote
// per farmer counts. Once the group has closed a deal no offer in it takes
// further votes; a rejected offer still records votes but never re-opens.
func (s *VoteService) CastVote(offerID, farmerID string, req *models.CastVoteRequest) (*models.Offer, error) {
	offer, err := getOfferByID(s.db, offerID)
	if err != nil {
		return nil, err
	}

	eligible, err := s.isEligibleVoter(farmerID, offer.GroupID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, models.NewUnauthorizedError("farmer %s is not a member of the offer's group", farmerID)
	}

	lock := s.lockOffer(offerID)
	defer lock.Unlock()

	var groupStatus models.GroupStatus
	err = s.db.QueryRow(`SELECT status FROM farmer_groups WHERE id = ?`, offer.GroupID).Scan(&groupStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to check group status: %w", err)
	}
	if groupStatus == models.GroupStatusDealClosed {
		return nil, models.NewInvalidStateError("group %s has already closed a deal", offer.GroupID)
	}

	_, err = s.db.Exec(`
		INSERT INTO offer_votes (id, offer_id, farmer_id, choice, comment, voted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(offer_id, farmer_id) DO UPDATE SET
			choice = excluded.choice,
			comment = excluded.comment,
			voted_at = excluded.voted_at`,
		uuid.New().String(), offerID, farmerID, req.Choice, req.Comment, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	log.Printf("Vote %s cast on offer %s by farmer %s", req.Choice, offerID, farmerID)
	offer, err = s.evaluateOffer(offerID)
	if err == nil && offer.Status.IsTerminal() {
		s.forgetOffer(offerID)
	}
	return offer, err
}

// Tally recomputes the raw counts for an offer from the stored votes
func (s *VoteService) Tally(offerID, groupID string) (models.VoteTally, error) {
	var tally models.VoteTally

	farmerIDs, err := groupFarmerIDs(s.db, groupID)
	if err != nil {
		return tally, err
	}
	tally.TotalVoters = len(farmerIDs)

	rows, err := s.db.Query(`
		SELECT choice, COUNT(*) FROM offer_votes
		WHERE offer_id = ?
		GROUP BY choice`, offerID)
	if err != nil {
		return tally, fmt.Errorf("failed to tally votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var choice string
		var count int
		if err := rows.Scan(&choice, &count); err != nil {
			return tally, fmt.Errorf("failed to scan tally: %w", err)
		}
		switch models.VoteChoice(choice) {
		case models.VoteChoiceAccept:
			tally.AcceptCount = count
		case models.VoteChoiceReject:
			tally.RejectCount = count
		case models.VoteChoiceCounter:
			tally.CounterCount = count
		}
	}
	return tally, rows.Err()
}

// evaluateOffer recomputes the offer resolution in full from the current
// votes. Must run under the offer's lock. Accepted and rejected are terminal;
// a countered offer stays open to fresh votes.
func (s *VoteService) evaluateOffer(offerID string) (*models.Offer, error) {
	offer, err := getOfferByID(s.db, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status.IsTerminal() {
		return offer, nil
	}

	tally, err := s.Tally(offerID, offer.GroupID)
	if err != nil {
		return nil, err
	}

	resolved := tally.Resolve(s.acceptThreshold)
	if resolved == offer.Status {
		return offer, nil
	}

	switch resolved {
	case models.OfferStatusAccepted:
		if err := s.acceptOffer(offer); err != nil {
			return nil, err
		}
	default:
		_, err = s.db.Exec(`UPDATE offers SET status = ?, updated_at = ? WHERE id = ?`,
			resolved, time.Now(), offerID)
		if err != nil {
			return nil, fmt.Errorf("failed to update offer status: %w", err)
		}
	}

	offer.Status = resolved
	log.Printf("Offer %s resolved as %s (%d/%d accept, %d reject, %d counter)",
		offerID, resolved, tally.AcceptCount, tally.TotalVoters, tally.RejectCount, tally.CounterCount)
	s.notifyResolution(offer, tally)

	if resolved == models.OfferStatusAccepted && s.logistics != nil {
		s.logistics.Enqueue(offerID)
	}
	return offer, nil
}

// acceptOffer closes the deal: the offer becomes accepted, the group
// deal_closed, sibling open offers are rejected and the member listings are
// retired, all in one transaction. The conditional group update guarantees
// at most one offer per group ever reaches accepted, even when two offers
// resolve concurrently.
func (s *VoteService) acceptOffer(offer *models.Offer) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE farmer_groups SET status = ? WHERE id = ? AND status != ?`,
		models.GroupStatusDealClosed, offer.GroupID, models.GroupStatusDealClosed)
	if err != nil {
		return fmt.Errorf("failed to close group: %w", err)
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check group close: %w", err)
	}
	if claimed == 0 {
		return models.NewInvalidStateError("group %s has already closed a deal", offer.GroupID)
	}

	now := time.Now()
	_, err = tx.Exec(`UPDATE offers SET status = ?, updated_at = ? WHERE id = ?`,
		models.OfferStatusAccepted, now, offer.ID)
	if err != nil {
		return fmt.Errorf("failed to accept offer: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE offers SET status = ?, updated_at = ?
		WHERE group_id = ? AND id != ? AND status IN (?, ?)`,
		models.OfferStatusRejected, now, offer.GroupID, offer.ID,
		models.OfferStatusPending, models.OfferStatusCountered)
	if err != nil {
		return fmt.Errorf("failed to retire sibling offers: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE product_listings SET is_active = FALSE
		WHERE id IN (SELECT listing_id FROM farmer_group_listings WHERE group_id = ?)`,
		offer.GroupID)
	if err != nil {
		return fmt.Errorf("failed to retire group listings: %w", err)
	}

	return tx.Commit()
}

// GetOfferVotes retrieves the votes cast on an offer
func (s *VoteService) GetOfferVotes(offerID string) ([]models.OfferVote, error) {
	rows, err := s.db.Query(`
		SELECT v.id, v.offer_id, v.farmer_id, v.choice, v.comment, v.voted_at,
		       u.first_name, u.last_name
		FROM offer_votes v
		JOIN users u ON v.farmer_id = u.id
		WHERE v.offer_id = ?
		ORDER BY v.voted_at ASC`, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get offer votes: %w", err)
	}
	defer rows.Close()

	var votes []models.OfferVote
	for rows.Next() {
		var v models.OfferVote
		var firstName, lastName string
		err := rows.Scan(&v.ID, &v.OfferID, &v.FarmerID, &v.Choice, &v.Comment, &v.VotedAt,
			&firstName, &lastName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.FarmerName = firstName + " " + lastName
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// isEligibleVoter checks that the farmer owns a member listing of the group
// or leads the group
func (s *VoteService) isEligibleVoter(farmerID, groupID string) (bool, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT 1 FROM farmer_group_listings m
		JOIN product_listings l ON l.id = m.listing_id
		WHERE m.group_id = ? AND l.farmer_id = ?`, groupID, farmerID).Scan(&exists)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}

	err = s.db.QueryRow(`SELECT 1 FROM farmer_groups WHERE id = ? AND leader_id = ?`,
		groupID, farmerID).Scan(&exists)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check group leadership: %w", err)
	}
	return false, nil
}

// notifyResolution tells the buyer and the group farmers how the offer
// resolved. Best-effort.
func (s *VoteService) notifyResolution(offer *models.Offer, tally models.VoteTally) {
	if s.notifications == nil {
		return
	}
	title := "Offer " + string(offer.Status)
	message := fmt.Sprintf("Offer of %.2f per kg resolved as %s (%d of %d farmers accepted).",
		offer.OfferedPricePerKg, offer.Status, tally.AcceptCount, tally.TotalVoters)
	data := map[string]interface{}{"offerId": offer.ID, "groupId": offer.GroupID}

	s.notifications.Notify(offer.BuyerID, models.NotificationTypeVote, title, message, data)

	farmerIDs, err := groupFarmerIDs(s.db, offer.GroupID)
	if err != nil {
		log.Printf("Warning: failed to get farmers for resolution notification: %v", err)
		return
	}
	for _, farmerID := range farmerIDs {
		s.notifications.Notify(farmerID, models.NotificationTypeVote, title, message, data)
	}
}
