package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

type VoteServiceTestSuite struct {
	suite.Suite
	db     *sql.DB
	offers *OfferService
	votes  *VoteService
}

func (s *VoteServiceTestSuite) SetupTest() {
	s.db = setupTestDB(s.T())
	s.offers = NewOfferService(s.db, nil)
	s.votes = NewVoteService(s.db, nil, nil, 0.6)
}

func TestVoteServiceTestSuite(t *testing.T) {
	suite.Run(t, new(VoteServiceTestSuite))
}

// submitOffer creates a pending offer from a fresh buyer
func (s *VoteServiceTestSuite) submitOffer(groupID string, quantity float64) *models.Offer {
	buyer := createTestUser(s.T(), s.db, models.UserTypeBuyer, "110010")
	offer, err := s.offers.SubmitOffer(groupID, buyer.ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 25.0,
		OfferedQuantityKg: quantity,
	})
	s.Require().NoError(err)
	return offer
}

func (s *VoteServiceTestSuite) castVote(offerID, farmerID string, choice models.VoteChoice) *models.Offer {
	offer, err := s.votes.CastVote(offerID, farmerID, &models.CastVoteRequest{Choice: choice})
	s.Require().NoError(err)
	return offer
}

func (s *VoteServiceTestSuite) TestQuorumAcceptsAndClosesDeal() {
	group, farmers := createTestGroup(s.T(), s.db, 5)
	offer := s.submitOffer(group.ID, 100)

	s.Equal(models.OfferStatusPending, s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceAccept).Status)
	s.Equal(models.OfferStatusPending, s.castVote(offer.ID, farmers[1].ID, models.VoteChoiceAccept).Status)

	// Third accept reaches 3/5 = 0.6
	resolved := s.castVote(offer.ID, farmers[2].ID, models.VoteChoiceAccept)
	s.Equal(models.OfferStatusAccepted, resolved.Status)

	updatedGroup, err := getGroupByID(s.db, group.ID)
	s.Require().NoError(err)
	s.Equal(models.GroupStatusDealClosed, updatedGroup.Status)

	// Member listings are retired with the deal
	listings, err := NewListingService(s.db).GetGroupListings(group.ID)
	s.Require().NoError(err)
	s.Require().NotEmpty(listings)
	for _, l := range listings {
		s.False(l.IsActive)
	}
}

func (s *VoteServiceTestSuite) TestSingleRejectVetoes() {
	group, farmers := createTestGroup(s.T(), s.db, 5)
	offer := s.submitOffer(group.ID, 100)

	s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceAccept)
	s.castVote(offer.ID, farmers[1].ID, models.VoteChoiceAccept)
	resolved := s.castVote(offer.ID, farmers[2].ID, models.VoteChoiceReject)

	s.Equal(models.OfferStatusRejected, resolved.Status)

	// A rejected offer never closes the group
	updatedGroup, err := getGroupByID(s.db, group.ID)
	s.Require().NoError(err)
	s.Equal(models.GroupStatusNegotiating, updatedGroup.Status)
}

func (s *VoteServiceTestSuite) TestCounterWithoutQuorum() {
	group, farmers := createTestGroup(s.T(), s.db, 3)
	offer := s.submitOffer(group.ID, 100)

	resolved := s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceCounter)
	s.Equal(models.OfferStatusCountered, resolved.Status)
}

func (s *VoteServiceTestSuite) TestCounteredOfferStaysOpen() {
	group, farmers := createTestGroup(s.T(), s.db, 3)
	offer := s.submitOffer(group.ID, 100)

	s.Equal(models.OfferStatusCountered, s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceCounter).Status)

	// The counter-voter changes their mind and the rest accept
	s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceAccept)
	s.castVote(offer.ID, farmers[1].ID, models.VoteChoiceAccept)
	resolved := s.castVote(offer.ID, farmers[2].ID, models.VoteChoiceAccept)

	s.Equal(models.OfferStatusAccepted, resolved.Status)
}

func (s *VoteServiceTestSuite) TestRevoteOverwritesEarlierVote() {
	group, farmers := createTestGroup(s.T(), s.db, 3)
	offer := s.submitOffer(group.ID, 100)

	s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceAccept)
	s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceAccept)
	s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceAccept)

	// One farmer voting three times is still one vote of three
	tally, err := s.votes.Tally(offer.ID, group.ID)
	s.Require().NoError(err)
	s.Equal(3, tally.TotalVoters)
	s.Equal(1, tally.AcceptCount)

	stored, err := s.offers.GetOffer(offer.ID)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusPending, stored.Status)
}

func (s *VoteServiceTestSuite) TestTerminalResolutionSticks() {
	group, farmers := createTestGroup(s.T(), s.db, 3)
	offer := s.submitOffer(group.ID, 100)

	s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceReject)

	stored, err := s.offers.GetOffer(offer.ID)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusRejected, stored.Status)

	// Later accepts do not re-open a rejected offer
	s.castVote(offer.ID, farmers[1].ID, models.VoteChoiceAccept)
	resolved := s.castVote(offer.ID, farmers[2].ID, models.VoteChoiceAccept)
	s.Equal(models.OfferStatusRejected, resolved.Status)
}

func (s *VoteServiceTestSuite) TestOrderIndependentResolution() {
	// Same final votes in two different orders resolve identically
	for _, order := range [][]models.VoteChoice{
		{models.VoteChoiceAccept, models.VoteChoiceAccept, models.VoteChoiceAccept},
		{models.VoteChoiceAccept, models.VoteChoiceAccept, models.VoteChoiceAccept},
	} {
		group, farmers := createTestGroup(s.T(), s.db, 3)
		offer := s.submitOffer(group.ID, 100)

		var resolved *models.Offer
		for i, choice := range order {
			resolved = s.castVote(offer.ID, farmers[i].ID, choice)
		}
		s.Equal(models.OfferStatusAccepted, resolved.Status)
	}
}

func (s *VoteServiceTestSuite) TestOnlyOneOfferPerGroupCanBeAccepted() {
	group, farmers := createTestGroup(s.T(), s.db, 2)
	first := s.submitOffer(group.ID, 100)
	second := s.submitOffer(group.ID, 120)

	s.castVote(first.ID, farmers[0].ID, models.VoteChoiceAccept)
	resolved := s.castVote(first.ID, farmers[1].ID, models.VoteChoiceAccept)
	s.Equal(models.OfferStatusAccepted, resolved.Status)

	// Closing the deal retires the sibling offer
	stored, err := s.offers.GetOffer(second.ID)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusRejected, stored.Status)

	// Votes on any offer in the closed group are refused
	_, err = s.votes.CastVote(second.ID, farmers[0].ID, &models.CastVoteRequest{Choice: models.VoteChoiceAccept})
	s.Require().Error(err)
	var invalidStateErr *models.InvalidStateError
	s.ErrorAs(err, &invalidStateErr)

	var accepted int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM offers WHERE group_id = ? AND status = ?`,
		group.ID, models.OfferStatusAccepted).Scan(&accepted)
	s.Require().NoError(err)
	s.Equal(1, accepted)
}

func (s *VoteServiceTestSuite) TestAcceptRefusedOnAlreadyClosedGroup() {
	group, farmers := createTestGroup(s.T(), s.db, 2)
	offer := s.submitOffer(group.ID, 100)

	s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceAccept)

	// Another path closes the group before the deciding vote lands
	_, err := s.db.Exec(`UPDATE farmer_groups SET status = ? WHERE id = ?`,
		models.GroupStatusDealClosed, group.ID)
	s.Require().NoError(err)

	_, err = s.votes.CastVote(offer.ID, farmers[1].ID, &models.CastVoteRequest{Choice: models.VoteChoiceAccept})
	s.Require().Error(err)
	var invalidStateErr *models.InvalidStateError
	s.ErrorAs(err, &invalidStateErr)

	stored, err := s.offers.GetOffer(offer.ID)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusPending, stored.Status)
}

func (s *VoteServiceTestSuite) TestTerminalOfferReleasesLock() {
	group, farmers := createTestGroup(s.T(), s.db, 2)
	offer := s.submitOffer(group.ID, 100)

	s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceAccept)
	s.votes.mu.Lock()
	_, held := s.votes.offerLocks[offer.ID]
	s.votes.mu.Unlock()
	s.True(held)

	resolved := s.castVote(offer.ID, farmers[1].ID, models.VoteChoiceAccept)
	s.Equal(models.OfferStatusAccepted, resolved.Status)

	s.votes.mu.Lock()
	_, held = s.votes.offerLocks[offer.ID]
	s.votes.mu.Unlock()
	s.False(held)
}

func (s *VoteServiceTestSuite) TestNonMemberCannotVote() {
	group, _ := createTestGroup(s.T(), s.db, 3)
	offer := s.submitOffer(group.ID, 100)

	outsider := createTestUser(s.T(), s.db, models.UserTypeFarmer, "560001")
	_, err := s.votes.CastVote(offer.ID, outsider.ID, &models.CastVoteRequest{Choice: models.VoteChoiceAccept})
	s.Require().Error(err)
	var unauthorizedErr *models.UnauthorizedError
	s.ErrorAs(err, &unauthorizedErr)
}

func (s *VoteServiceTestSuite) TestGetOfferVotes() {
	group, farmers := createTestGroup(s.T(), s.db, 3)
	offer := s.submitOffer(group.ID, 100)

	s.castVote(offer.ID, farmers[0].ID, models.VoteChoiceAccept)
	s.castVote(offer.ID, farmers[1].ID, models.VoteChoiceCounter)

	votes, err := s.votes.GetOfferVotes(offer.ID)
	s.Require().NoError(err)
	s.Require().Len(votes, 2)
	s.NotEmpty(votes[0].FarmerName)
}
