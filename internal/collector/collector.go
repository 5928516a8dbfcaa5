package collector

import (
	"context"
	"screentime/internal/event"
	"time"
)

// Collector is a tick source: it emits one event.Tick per interval for the
// app it currently targets.
type Collector interface {
	Start(ctx context.Context, interval time.Duration, output chan<- event.Tick) error
	Stop() error
	// CurrentTarget returns the app id ticks are produced for, or "" when idle
	CurrentTarget() (string, error)
}

// Targeter is implemented by collectors whose target is chosen externally.
type Targeter interface {
	SetTarget(appID string)
	ClearTarget()
}
