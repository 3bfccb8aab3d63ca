package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

type GroupingServiceTestSuite struct {
	suite.Suite
	db       *sql.DB
	listings *ListingService
	grouping *GroupingService
}

func (s *GroupingServiceTestSuite) SetupTest() {
	s.db = setupTestDB(s.T())
	s.listings = NewListingService(s.db)
	s.grouping = NewGroupingService(s.db, s.listings, nil, nil, 100)
}

func TestGroupingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GroupingServiceTestSuite))
}

func (s *GroupingServiceTestSuite) TestGroupsSameProductWithNearbyPins() {
	f1 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110001")
	f2 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110050")
	f3 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110090")

	createTestListing(s.T(), s.db, f1.ID, "wheat", 100, "110001")
	big := createTestListing(s.T(), s.db, f2.ID, "wheat", 250, "110050")
	createTestListing(s.T(), s.db, f3.ID, "wheat", 150, "110090")

	created, err := s.grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)
	s.Equal(1, created)

	groups, err := s.grouping.GetActiveGroups(10, 0)
	s.Require().NoError(err)
	s.Require().Len(groups, 1)

	group := groups[0]
	s.InDelta(500.0, group.TotalQuantityKg, 0.001)
	s.Equal(models.GroupStatusActive, group.Status)
	// Largest quantity leads
	s.Equal(big.FarmerID, group.LeaderID)

	members, err := s.listings.GetGroupListings(group.ID)
	s.Require().NoError(err)
	s.Len(members, 3)
	for _, m := range members {
		s.Require().NotNil(m.GroupID)
		s.Equal(group.ID, *m.GroupID)
	}
}

func (s *GroupingServiceTestSuite) TestSingleListingFormsNoGroup() {
	f := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110001")
	createTestListing(s.T(), s.db, f.ID, "wheat", 100, "110001")

	created, err := s.grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)
	s.Equal(0, created)

	groups, err := s.grouping.GetActiveGroups(10, 0)
	s.Require().NoError(err)
	s.Empty(groups)
}

func (s *GroupingServiceTestSuite) TestDistantPinsAreNotGrouped() {
	f1 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110001")
	f2 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "560001")

	createTestListing(s.T(), s.db, f1.ID, "wheat", 100, "110001")
	createTestListing(s.T(), s.db, f2.ID, "wheat", 120, "560001")

	created, err := s.grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)
	s.Equal(0, created)
}

func (s *GroupingServiceTestSuite) TestProximityBoundaryIsExclusive() {
	f1 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110000")
	f2 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110100")

	// Distance of exactly 100 is out of range when the threshold is 100
	createTestListing(s.T(), s.db, f1.ID, "wheat", 100, "110000")
	createTestListing(s.T(), s.db, f2.ID, "wheat", 120, "110100")

	created, err := s.grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)
	s.Equal(0, created)
}

func (s *GroupingServiceTestSuite) TestDifferentProductsAreNotGrouped() {
	f1 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110001")
	f2 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110002")

	createTestListing(s.T(), s.db, f1.ID, "wheat", 100, "110001")
	createTestListing(s.T(), s.db, f2.ID, "rice", 120, "110002")

	created, err := s.grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)
	s.Equal(0, created)
}

func (s *GroupingServiceTestSuite) TestRerunIsIdempotent() {
	f1 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110001")
	f2 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110002")

	createTestListing(s.T(), s.db, f1.ID, "wheat", 100, "110001")
	createTestListing(s.T(), s.db, f2.ID, "wheat", 120, "110002")

	created, err := s.grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)
	s.Equal(1, created)

	// Same listings again: all are claimed, nothing to do
	created, err = s.grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)
	s.Equal(0, created)

	groups, err := s.grouping.GetActiveGroups(10, 0)
	s.Require().NoError(err)
	s.Len(groups, 1)
}

func (s *GroupingServiceTestSuite) TestLeaderTieGoesToEarliestListing() {
	f1 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110001")
	f2 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110002")

	first := createTestListing(s.T(), s.db, f1.ID, "wheat", 200, "110001")
	createTestListing(s.T(), s.db, f2.ID, "wheat", 200, "110002")

	created, err := s.grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)
	s.Equal(1, created)

	groups, err := s.grouping.GetActiveGroups(10, 0)
	s.Require().NoError(err)
	s.Require().Len(groups, 1)
	s.Equal(first.FarmerID, groups[0].LeaderID)
}

func (s *GroupingServiceTestSuite) TestFailingEmbedderDoesNotBlockGrouping() {
	grouping := NewGroupingService(s.db, s.listings, &stubEmbedder{err: errors.New("backend down")}, nil, 100)

	f1 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110001")
	f2 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110002")

	createTestListing(s.T(), s.db, f1.ID, "wheat", 100, "110001")
	createTestListing(s.T(), s.db, f2.ID, "wheat", 120, "110002")

	created, err := grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)
	s.Equal(1, created)
}

func (s *GroupingServiceTestSuite) TestWorkingEmbedderPersistsFingerprints() {
	grouping := NewGroupingService(s.db, s.listings, &stubEmbedder{vector: []float64{0.1, 0.2, 0.3}}, nil, 100)

	f1 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110001")
	f2 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110002")

	l1 := createTestListing(s.T(), s.db, f1.ID, "wheat", 100, "110001")
	createTestListing(s.T(), s.db, f2.ID, "wheat", 120, "110002")

	_, err := grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)

	stored, err := s.listings.GetListing(l1.ID)
	s.Require().NoError(err)
	s.Equal([]float64{0.1, 0.2, 0.3}, stored.Embedding)
}

func (s *GroupingServiceTestSuite) TestInactiveListingsAreSkipped() {
	f1 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110001")
	f2 := createTestUser(s.T(), s.db, models.UserTypeFarmer, "110002")

	l1 := createTestListing(s.T(), s.db, f1.ID, "wheat", 100, "110001")
	createTestListing(s.T(), s.db, f2.ID, "wheat", 120, "110002")

	_, err := s.db.Exec(`UPDATE product_listings SET is_active = FALSE WHERE id = ?`, l1.ID)
	s.Require().NoError(err)

	created, err := s.grouping.GroupSimilarListings(context.Background())
	s.Require().NoError(err)
	s.Equal(0, created)
}
