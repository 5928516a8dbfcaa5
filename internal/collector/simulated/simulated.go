package simulated

import (
	"context"
	"log"
	"screentime/internal/collector"
	"screentime/internal/event"
	"sync"
	"time"
)

// SimulatedCollector stands in for OS usage polling: while it has a target
// it reports that app as the foreground app on every interval.
type SimulatedCollector struct {
	mu       sync.Mutex
	target   string
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

var (
	_ collector.Collector = (*SimulatedCollector)(nil)
	_ collector.Targeter  = (*SimulatedCollector)(nil)
)

func NewSimulatedCollector() *SimulatedCollector {
	return &SimulatedCollector{
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

func (c *SimulatedCollector) SetTarget(appID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target != appID {
		log.Printf("Simulated collector target: '%s'", appID)
	}
	c.target = appID
}

func (c *SimulatedCollector) ClearTarget() {
	c.SetTarget("")
}

func (c *SimulatedCollector) CurrentTarget() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, nil
}

func (c *SimulatedCollector) Start(ctx context.Context, interval time.Duration, output chan<- event.Tick) error {
	log.Printf("Starting simulated collector (interval: %s)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Simulated collector stopping due to context cancellation.")
			return ctx.Err()
		case <-c.stopChan:
			log.Println("Simulated collector stopping.")
			return nil
		case <-ticker.C:
			target, _ := c.CurrentTarget()
			if target == "" {
				continue
			}
			select {
			case output <- event.Tick{AppID: target, At: c.now()}:
			case <-ctx.Done():
				return ctx.Err()
			case <-c.stopChan:
				return nil
			}
		}
	}
}

func (c *SimulatedCollector) Stop() error {
	c.stopOnce.Do(func() {
		log.Println("Sending stop signal to simulated collector.")
		close(c.stopChan)
	})
	return nil
}
