package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// GroupingService clusters ungrouped active listings into farmer groups.
// Runs from the scheduler; safe to re-run at any time because listings
// already claimed by a group are never re-examined.
type GroupingService struct {
	db            *sql.DB
	listings      *ListingService
	embedder      Embedder // may be nil when no embedding backend is configured
	notifications *NotificationService
	proximity     int
}

// NewGroupingService creates a new grouping service
func NewGroupingService(db *sql.DB, listings *ListingService, embedder Embedder, notifications *NotificationService, pinCodeProximity int) *GroupingService {
	return &GroupingService{
		db:            db,
		listings:      listings,
		embedder:      embedder,
		notifications: notifications,
		proximity:     pinCodeProximity,
	}
}

// GroupSimilarListings runs one grouping pass and returns the number of
// groups created. Re-running on an unchanged listing set is a no-op.
func (s *GroupingService) GroupSimilarListings(ctx context.Context) (int, error) {
	candidates, err := s.listings.GetUngroupedActiveListings()
	if err != nil {
		return 0, fmt.Errorf("failed to fetch ungrouped listings: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	s.fingerprintListings(ctx, candidates)

	created := 0
	for _, cluster := range s.clusterListings(candidates) {
		group, err := s.createGroup(cluster)
		if err != nil {
			// One failing cluster must not block the rest of the batch
			log.Printf("Warning: failed to create group for %s cluster: %v", cluster[0].ProductName, err)
			continue
		}
		if group == nil {
			continue // members were claimed concurrently, nothing left to pool
		}
		created++
		s.notifyGroupMembers(group)
	}

	if created > 0 {
		log.Printf("Grouping pass created %d farmer groups from %d listings", created, len(candidates))
	}
	return created, nil
}

// fingerprintListings computes and persists the similarity fingerprint for
// listings that lack one. Embedding failures are logged and retried on the
// next pass; they never abort grouping of the other listings.
func (s *GroupingService) fingerprintListings(ctx context.Context, listings []models.ProductListing) {
	if s.embedder == nil {
		return
	}
	for i := range listings {
		if len(listings[i].Embedding) > 0 {
			continue
		}
		embedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		embedding, err := s.embedder.Embed(embedCtx, listings[i].DescriptionText())
		cancel()
		if err != nil {
			log.Printf("Warning: failed to fingerprint listing %s: %v", listings[i].ID, err)
			continue
		}
		if err := s.listings.SaveEmbedding(listings[i].ID, embedding); err != nil {
			log.Printf("Warning: failed to save fingerprint for listing %s: %v", listings[i].ID, err)
			continue
		}
		listings[i].Embedding = embedding
	}
}

// clusterListings partitions listings with a greedy single pass: each
// unclaimed listing seeds a cluster and pulls in every later unclaimed
// listing with the same product name and a nearby pin code.
func (s *GroupingService) clusterListings(listings []models.ProductListing) [][]models.ProductListing {
	var clusters [][]models.ProductListing
	claimed := make(map[string]bool, len(listings))

	for i := range listings {
		seed := listings[i]
		if claimed[seed.ID] {
			continue
		}
		cluster := []models.ProductListing{seed}
		claimed[seed.ID] = true

		for j := i + 1; j < len(listings); j++ {
			candidate := listings[j]
			if claimed[candidate.ID] {
				continue
			}
			if candidate.ProductName == seed.ProductName && s.isNearby(seed.LocationPinCode, candidate.LocationPinCode) {
				cluster = append(cluster, candidate)
				claimed[candidate.ID] = true
			}
		}

		// A single listing does not make a collective
		if len(cluster) >= 2 {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

// isNearby judges proximity by numeric pin-code distance. Crude, but what the
// marketplace runs on until a real geo-distance source is wired in.
func (s *GroupingService) isNearby(pinA, pinB string) bool {
	a, errA := strconv.Atoi(pinA)
	b, errB := strconv.Atoi(pinB)
	if errA != nil || errB != nil {
		return false
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < s.proximity
}

// createGroup persists a cluster as a farmer group. Every member is claimed
// with a conditional update so a listing can never end up in two
// concurrently-formed groups; members lost to a concurrent claim are dropped
// and the group is only kept if at least two members remain.
func (s *GroupingService) createGroup(cluster []models.ProductListing) (*models.FarmerGroup, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	groupID := uuid.New().String()
	now := time.Now()

	var members []models.ProductListing
	for _, listing := range cluster {
		result, err := tx.Exec(`
			UPDATE product_listings
			SET group_id = ?
			WHERE id = ? AND group_id IS NULL AND is_active = TRUE`, groupID, listing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to claim listing %s: %w", listing.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check claim of listing %s: %w", listing.ID, err)
		}
		if affected == 0 {
			log.Printf("Listing %s already claimed, skipping", listing.ID)
			continue
		}
		members = append(members, listing)
	}

	if len(members) < 2 {
		return nil, nil // rollback releases any single claim
	}

	leader := members[0]
	total := 0.0
	for _, m := range members {
		total += m.QuantityKg
		// Largest quantity wins; creation-order iteration keeps the
		// earliest listing on ties
		if m.QuantityKg > leader.QuantityKg {
			leader = m
		}
	}

	group := &models.FarmerGroup{
		ID:              groupID,
		Name:            fmt.Sprintf("Group for %s - %.1fkg", leader.ProductName, total),
		LeaderID:        leader.FarmerID,
		TotalQuantityKg: total,
		Status:          models.GroupStatusActive,
		CreatedAt:       now,
	}

	_, err = tx.Exec(`
		INSERT INTO farmer_groups (id, name, leader_id, total_quantity_kg, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.LeaderID, group.TotalQuantityKg, group.Status, group.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert group: %w", err)
	}

	for _, m := range members {
		_, err = tx.Exec(`
			INSERT INTO farmer_group_listings (id, group_id, listing_id)
			VALUES (?, ?, ?)`, uuid.New().String(), groupID, m.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to record group member %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group: %w", err)
	}

	group.Listings = members
	log.Printf("Created farmer group %s (%s) with %d members, leader %s",
		group.ID, group.Name, len(members), group.LeaderID)
	return group, nil
}

// notifyGroupMembers tells each member farmer about the new group. Delivery
// is best-effort.
func (s *GroupingService) notifyGroupMembers(group *models.FarmerGroup) {
	if s.notifications == nil {
		return
	}
	seen := make(map[string]bool)
	for _, listing := range group.Listings {
		if seen[listing.FarmerID] {
			continue
		}
		seen[listing.FarmerID] = true
		s.notifications.Notify(listing.FarmerID, models.NotificationTypeGroup,
			"You joined a farmer group",
			fmt.Sprintf("Your %s listing was pooled into %q (%.1fkg total).", listing.ProductName, group.Name, group.TotalQuantityKg),
			map[string]interface{}{"groupId": group.ID})
	}
}

// GetGroup retrieves a group with its member listings
func (s *GroupingService) GetGroup(groupID string) (*models.FarmerGroup, error) {
	group, err := getGroupByID(s.db, groupID)
	if err != nil {
		return nil, err
	}
	listings, err := s.listings.GetGroupListings(groupID)
	if err != nil {
		return nil, err
	}
	group.Listings = listings
	return group, nil
}

// GetActiveGroups retrieves groups still open for offers, newest first
func (s *GroupingService) GetActiveGroups(limit, offset int) ([]models.FarmerGroup, error) {
	rows, err := s.db.Query(`
		SELECT g.id, g.name, g.leader_id, g.total_quantity_kg, g.status, g.created_at,
		       u.first_name, u.last_name
		FROM farmer_groups g
		JOIN users u ON g.leader_id = u.id
		WHERE g.status IN (?, ?)
		ORDER BY g.created_at DESC
		LIMIT ? OFFSET ?`,
		models.GroupStatusActive, models.GroupStatusNegotiating, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get active groups: %w", err)
	}
	defer rows.Close()

	var groups []models.FarmerGroup
	for rows.Next() {
		var g models.FarmerGroup
		var firstName, lastName string
		err := rows.Scan(&g.ID, &g.Name, &g.LeaderID, &g.TotalQuantityKg, &g.Status, &g.CreatedAt,
			&firstName, &lastName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		g.LeaderName = firstName + " " + lastName
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func getGroupByID(db *sql.DB, groupID string) (*models.FarmerGroup, error) {
	var g models.FarmerGroup
	err := db.QueryRow(`
		SELECT id, name, leader_id, total_quantity_kg, status, created_at
		FROM farmer_groups WHERE id = ?`, groupID).
		Scan(&g.ID, &g.Name, &g.LeaderID, &g.TotalQuantityKg, &g.Status, &g.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.NewValidationError("farmer group not found")
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &g, nil
}
