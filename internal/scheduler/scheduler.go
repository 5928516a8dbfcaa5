// Package scheduler runs the day rollover on a cron schedule.
package scheduler

import (
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"screentime/internal/tracker"
)

// DayResetter is the part of the tracker the rollover needs.
type DayResetter interface {
	ResetDay() tracker.DaySummary
}

// Scheduler calls ResetDay on a cron spec with a seconds field,
// e.g. "0 0 0 * * *" for midnight.
type Scheduler struct {
	cron     *cron.Cron
	resetter DayResetter
	onReset  func(tracker.DaySummary)
	mu       sync.Mutex
	started  bool
}

func NewScheduler(resetter DayResetter, onReset func(tracker.DaySummary)) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		resetter: resetter,
		onReset:  onReset,
	}
}

func (s *Scheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	if _, err := s.cron.AddFunc(spec, s.runDayReset); err != nil {
		return fmt.Errorf("invalid day reset schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.started = true
	log.Printf("Scheduler started (day reset: %s)", spec)
	return nil
}

// Stop waits for a running reset to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
	log.Println("Scheduler stopped.")
}

func (s *Scheduler) runDayReset() {
	summary := s.resetter.ResetDay()
	log.Printf("Day reset: %s", summary)
	if s.onReset != nil {
		s.onReset(summary)
	}
}
