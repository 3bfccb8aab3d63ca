package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

type OfferServiceTestSuite struct {
	suite.Suite
	db     *sql.DB
	offers *OfferService
}

func (s *OfferServiceTestSuite) SetupTest() {
	s.db = setupTestDB(s.T())
	s.offers = NewOfferService(s.db, nil)
}

func TestOfferServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OfferServiceTestSuite))
}

func (s *OfferServiceTestSuite) TestSubmitOfferMovesGroupToNegotiating() {
	group, _ := createTestGroup(s.T(), s.db, 2)
	buyer := createTestUser(s.T(), s.db, models.UserTypeBuyer, "110010")

	offer, err := s.offers.SubmitOffer(group.ID, buyer.ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 25.0,
		OfferedQuantityKg: 300,
	})
	s.Require().NoError(err)
	s.Equal(models.OfferStatusPending, offer.Status)

	updated, err := getGroupByID(s.db, group.ID)
	s.Require().NoError(err)
	s.Equal(models.GroupStatusNegotiating, updated.Status)
}

func (s *OfferServiceTestSuite) TestSecondOfferAllowedWhileNegotiating() {
	group, _ := createTestGroup(s.T(), s.db, 2)
	buyer1 := createTestUser(s.T(), s.db, models.UserTypeBuyer, "110010")
	buyer2 := createTestUser(s.T(), s.db, models.UserTypeBuyer, "110011")

	_, err := s.offers.SubmitOffer(group.ID, buyer1.ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 25.0,
		OfferedQuantityKg: 300,
	})
	s.Require().NoError(err)

	_, err = s.offers.SubmitOffer(group.ID, buyer2.ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 27.0,
		OfferedQuantityKg: 350,
	})
	s.Require().NoError(err)

	offers, err := s.offers.GetGroupOffers(group.ID, 10, 0)
	s.Require().NoError(err)
	s.Len(offers, 2)
}

func (s *OfferServiceTestSuite) TestOfferExceedingGroupQuantityRejected() {
	group, _ := createTestGroup(s.T(), s.db, 2)
	buyer := createTestUser(s.T(), s.db, models.UserTypeBuyer, "110010")

	_, err := s.offers.SubmitOffer(group.ID, buyer.ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 25.0,
		OfferedQuantityKg: group.TotalQuantityKg + 1,
	})
	s.Require().Error(err)
	var validationErr *models.ValidationError
	s.ErrorAs(err, &validationErr)

	// Nothing persisted
	offers, err := s.offers.GetGroupOffers(group.ID, 10, 0)
	s.Require().NoError(err)
	s.Empty(offers)

	updated, err := getGroupByID(s.db, group.ID)
	s.Require().NoError(err)
	s.Equal(models.GroupStatusActive, updated.Status)
}

func (s *OfferServiceTestSuite) TestClosedGroupTakesNoOffers() {
	group, _ := createTestGroup(s.T(), s.db, 2)
	buyer := createTestUser(s.T(), s.db, models.UserTypeBuyer, "110010")

	_, err := s.db.Exec(`UPDATE farmer_groups SET status = ? WHERE id = ?`,
		models.GroupStatusDealClosed, group.ID)
	s.Require().NoError(err)

	_, err = s.offers.SubmitOffer(group.ID, buyer.ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 25.0,
		OfferedQuantityKg: 100,
	})
	s.Require().Error(err)
	var stateErr *models.InvalidStateError
	s.ErrorAs(err, &stateErr)
}

func (s *OfferServiceTestSuite) TestOnlyBuyersCanSubmitOffers() {
	group, farmers := createTestGroup(s.T(), s.db, 2)

	_, err := s.offers.SubmitOffer(group.ID, farmers[0].ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 25.0,
		OfferedQuantityKg: 100,
	})
	s.Require().Error(err)
	var unauthorizedErr *models.UnauthorizedError
	s.ErrorAs(err, &unauthorizedErr)
}

func (s *OfferServiceTestSuite) TestUnknownGroupRejected() {
	buyer := createTestUser(s.T(), s.db, models.UserTypeBuyer, "110010")

	_, err := s.offers.SubmitOffer("no-such-group", buyer.ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 25.0,
		OfferedQuantityKg: 100,
	})
	s.Require().Error(err)
	var validationErr *models.ValidationError
	s.ErrorAs(err, &validationErr)
}

func (s *OfferServiceTestSuite) TestGetBuyerOffers() {
	group, _ := createTestGroup(s.T(), s.db, 2)
	buyer := createTestUser(s.T(), s.db, models.UserTypeBuyer, "110010")

	_, err := s.offers.SubmitOffer(group.ID, buyer.ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 25.0,
		OfferedQuantityKg: 100,
	})
	s.Require().NoError(err)

	offers, err := s.offers.GetBuyerOffers(buyer.ID, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(offers, 1)
	s.Equal(group.ID, offers[0].GroupID)
}
