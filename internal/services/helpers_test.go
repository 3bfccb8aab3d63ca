package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/DheeruBhaiAmbani/kisan-ai/database"
	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// setupTestDB creates a migrated in-memory SQLite database. One connection
// only, or each pooled connection would see its own empty memory database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { db.Close() })
	return db
}

var testUserSeq int

// createTestUser registers a user through the user service
func createTestUser(t *testing.T, db *sql.DB, userType models.UserType, pinCode string) *models.User {
	t.Helper()

	testUserSeq++
	req := &models.RegisterRequest{
		Email:           fmt.Sprintf("user%d@example.com", testUserSeq),
		Phone:           fmt.Sprintf("+91900000%04d", testUserSeq),
		FirstName:       "Test",
		LastName:        fmt.Sprintf("User%d", testUserSeq),
		Password:        "secret-password",
		UserType:        userType,
		LocationPinCode: pinCode,
	}

	user, err := NewUserService(db).CreateUser(req)
	require.NoError(t, err)
	return user
}

// createTestListing creates an active listing for a farmer
func createTestListing(t *testing.T, db *sql.DB, farmerID, product string, quantityKg float64, pinCode string) *models.ProductListing {
	t.Helper()

	listing, err := NewListingService(db).CreateListing(farmerID, &models.CreateListingRequest{
		ProductName:     product,
		QuantityKg:      quantityKg,
		LocationPinCode: pinCode,
	})
	require.NoError(t, err)
	return listing
}

// stubEmbedder returns a canned vector or error for every input
type stubEmbedder struct {
	vector []float64
	err    error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

// stubPlanner returns a canned route plan or error
type stubPlanner struct {
	plan  *models.RoutePlan
	err   error
	calls int
}

func (s *stubPlanner) PlanRoute(_ context.Context, _ []string) (*models.RoutePlan, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.plan, nil
}

// createTestGroup forms a farmer group of n members by running a grouping
// pass over freshly created wheat listings. Returns the group and its
// farmers in listing-creation order; the first farmer leads.
func createTestGroup(t *testing.T, db *sql.DB, n int) (*models.FarmerGroup, []*models.User) {
	t.Helper()

	grouping := NewGroupingService(db, NewListingService(db), nil, nil, 100)

	farmers := make([]*models.User, n)
	for i := 0; i < n; i++ {
		pin := fmt.Sprintf("1100%02d", i+1)
		farmers[i] = createTestUser(t, db, models.UserTypeFarmer, pin)
		// Descending quantity keeps the first farmer as leader
		createTestListing(t, db, farmers[i].ID, "wheat", float64(200-i), pin)
	}

	created, err := grouping.GroupSimilarListings(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, created)

	groups, err := grouping.GetActiveGroups(10, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	group, err := grouping.GetGroup(groups[0].ID)
	require.NoError(t, err)
	return group, farmers
}
