package jobs

import (
	"context"
	"fmt"
	"log"

	"time"

	"github.com/robfig/cron/v3"

	"slotshare-backend/internal/core"
)

var timeNow = time.Now

// Scheduler runs periodic maintenance. Currently a single nightly job
// that marks past-dated bookings expired.
type Scheduler struct {
	cron     *cron.Cron
	bookings *core.BookingManager
}

// NewScheduler registers the booking expiry job under the given cron
// spec.
func NewScheduler(bookings *core.BookingManager, expirySpec string) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, bookings: bookings}

	if _, err := c.AddFunc(expirySpec, s.expireBookings); err != nil {
		return nil, fmt.Errorf("register booking expiry job %q: %w", expirySpec, err)
	}
	return s, nil
}

func (s *Scheduler) expireBookings() {
	n, err := s.bookings.ExpirePast(context.Background(), timeNow())
	if err != nil {
		log.Printf("booking expiry job failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("booking expiry job marked %d bookings expired", n)
	}
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
