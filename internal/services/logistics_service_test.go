package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

type LogisticsServiceTestSuite struct {
	suite.Suite
	db *sql.DB
}

func (s *LogisticsServiceTestSuite) SetupTest() {
	s.db = setupTestDB(s.T())
}

func TestLogisticsServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LogisticsServiceTestSuite))
}

func testRoutePlan() *models.RoutePlan {
	lat, lon := 28.6139, 77.2090
	return &models.RoutePlan{
		MeetingPointLat: &lat,
		MeetingPointLon: &lon,
		RouteJSON:       `{"stops":["110001","110002"]}`,
		EstimatedCost:   1250.50,
	}
}

// acceptedOffer creates a group with an offer forced into accepted state
func (s *LogisticsServiceTestSuite) acceptedOffer() *models.Offer {
	group, _ := createTestGroup(s.T(), s.db, 2)
	buyer := createTestUser(s.T(), s.db, models.UserTypeBuyer, "110010")

	offer, err := NewOfferService(s.db, nil).SubmitOffer(group.ID, buyer.ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 25.0,
		OfferedQuantityKg: 100,
	})
	s.Require().NoError(err)

	_, err = s.db.Exec(`UPDATE offers SET status = ? WHERE id = ?`, models.OfferStatusAccepted, offer.ID)
	s.Require().NoError(err)
	offer.Status = models.OfferStatusAccepted
	return offer
}

func (s *LogisticsServiceTestSuite) TestOptimizeCreatesRecord() {
	planner := &stubPlanner{plan: testRoutePlan()}
	logistics := NewLogisticsService(s.db, planner, nil)

	offer := s.acceptedOffer()

	record, err := logistics.OptimizeLogistics(context.Background(), offer.ID)
	s.Require().NoError(err)
	s.Require().NotNil(record)
	s.Equal(offer.ID, record.OfferID)
	s.Equal(offer.GroupID, record.GroupID)
	s.InDelta(1250.50, record.EstimatedCost, 0.001)
	s.Require().NotNil(record.MeetingPointLat)
	s.InDelta(28.6139, *record.MeetingPointLat, 0.0001)
}

func (s *LogisticsServiceTestSuite) TestOptimizeIsIdempotent() {
	planner := &stubPlanner{plan: testRoutePlan()}
	logistics := NewLogisticsService(s.db, planner, nil)

	offer := s.acceptedOffer()

	first, err := logistics.OptimizeLogistics(context.Background(), offer.ID)
	s.Require().NoError(err)

	second, err := logistics.OptimizeLogistics(context.Background(), offer.ID)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(1, planner.calls)
}

func (s *LogisticsServiceTestSuite) TestNonAcceptedOfferIsRejected() {
	planner := &stubPlanner{plan: testRoutePlan()}
	logistics := NewLogisticsService(s.db, planner, nil)

	group, _ := createTestGroup(s.T(), s.db, 2)
	buyer := createTestUser(s.T(), s.db, models.UserTypeBuyer, "110010")
	offer, err := NewOfferService(s.db, nil).SubmitOffer(group.ID, buyer.ID, &models.SubmitOfferRequest{
		OfferedPricePerKg: 25.0,
		OfferedQuantityKg: 100,
	})
	s.Require().NoError(err)

	_, err = logistics.OptimizeLogistics(context.Background(), offer.ID)
	s.Require().Error(err)
	var stateErr *models.InvalidStateError
	s.ErrorAs(err, &stateErr)
	s.Equal(0, planner.calls)
}

func (s *LogisticsServiceTestSuite) TestPlannerFailureLeavesNoRecord() {
	planner := &stubPlanner{err: errors.New("planner unreachable")}
	logistics := NewLogisticsService(s.db, planner, nil)

	offer := s.acceptedOffer()

	_, err := logistics.OptimizeLogistics(context.Background(), offer.ID)
	s.Require().Error(err)

	record, err := logistics.GetByOfferID(offer.ID)
	s.Require().NoError(err)
	s.Nil(record)

	// A later retry with a healthy planner succeeds
	logistics = NewLogisticsService(s.db, &stubPlanner{plan: testRoutePlan()}, nil)
	record, err = logistics.OptimizeLogistics(context.Background(), offer.ID)
	s.Require().NoError(err)
	s.NotNil(record)
}

func (s *LogisticsServiceTestSuite) TestMissingPlannerIsExternalServiceError() {
	logistics := NewLogisticsService(s.db, nil, nil)

	offer := s.acceptedOffer()

	_, err := logistics.OptimizeLogistics(context.Background(), offer.ID)
	s.Require().Error(err)
	var externalErr *models.ExternalServiceError
	s.ErrorAs(err, &externalErr)
}

func (s *LogisticsServiceTestSuite) TestGetByOfferIDWithoutRecord() {
	logistics := NewLogisticsService(s.db, nil, nil)

	record, err := logistics.GetByOfferID("no-such-offer")
	s.Require().NoError(err)
	s.Nil(record)
}
