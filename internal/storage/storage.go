package storage

import (
	"context"
	"screentime/internal/event"
	"time"
)

// AppUsage is the number of recorded ticks (minutes) for one app.
type AppUsage struct {
	AppID   string `db:"app_id" json:"app_id"`
	AppName string `db:"app_name" json:"app_name"`
	Minutes int    `db:"minutes" json:"minutes"`
}

// Storage is the append-only event log. It records history for reports; the
// tracker never restores its state from it.
type Storage interface {
	Init(ctx context.Context) error
	SaveEvent(ctx context.Context, e event.Event) (int64, error)
	GetEvents(ctx context.Context, start, end time.Time, eventTypes ...event.EventType) ([]event.Event, error)
	UsageByApp(ctx context.Context, start, end time.Time) ([]AppUsage, error)
	Close() error
}
