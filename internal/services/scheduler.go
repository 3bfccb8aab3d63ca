package services

import (
	"context"
	"log"
	"time"
)

// SchedulerService handles periodic background tasks: the grouping sweep
// and expiry of listings whose availability window has passed.
type SchedulerService struct {
	grouping *GroupingService
	listings *ListingService
	ticker   *time.Ticker
	stopChan chan bool
}

// NewSchedulerService creates a new scheduler service
func NewSchedulerService(grouping *GroupingService, listings *ListingService) *SchedulerService {
	return &SchedulerService{
		grouping: grouping,
		listings: listings,
		stopChan: make(chan bool),
	}
}

// Start begins the scheduler with a specified interval
func (s *SchedulerService) Start(interval time.Duration) {
	s.ticker = time.NewTicker(interval)

	log.Printf("Scheduler started with interval: %v", interval)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.runScheduledTasks()
			case <-s.stopChan:
				log.Println("Scheduler stopped")
				return
			}
		}
	}()
}

// Stop stops the scheduler
func (s *SchedulerService) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.stopChan <- true
}

// runScheduledTasks executes all scheduled tasks
func (s *SchedulerService) runScheduledTasks() {
	s.deactivateExpiredListings()
	s.runGroupingSweep()
}

// deactivateExpiredListings retires listings past their availability window
func (s *SchedulerService) deactivateExpiredListings() {
	count, err := s.listings.DeactivateExpiredListings()
	if err != nil {
		log.Printf("Warning: failed to deactivate expired listings: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Deactivated %d expired listings", count)
	}
}

// runGroupingSweep groups ungrouped active listings into farmer groups
func (s *SchedulerService) runGroupingSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	created, err := s.grouping.GroupSimilarListings(ctx)
	if err != nil {
		log.Printf("Warning: grouping sweep failed: %v", err)
		return
	}
	if created > 0 {
		log.Printf("Grouping sweep created %d groups", created)
	}
}
