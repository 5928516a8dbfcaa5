package event

import "time"

type EventType string

const (
	EventTypeTick         EventType = "tick"
	EventTypeSessionEnd   EventType = "session_end"
	EventTypeNotification EventType = "notification"
	EventTypeDayReset     EventType = "day_reset"
	EventTypeAppAdded     EventType = "app_added"
	EventTypeAppStart     EventType = "app_start"
	EventTypeAppStop      EventType = "app_stop"
)

// Event structure to store in DB
type Event struct {
	ID        int64     `db:"id"`
	Timestamp time.Time `db:"timestamp"`
	Type      EventType `db:"type"`
	AppID     string    `db:"app_id"`
	AppName   string    `db:"app_name"`
	Value     float64   `db:"value"` // remaining minutes for ticks/notifications, goals hit for day resets
	Notes     string    `db:"notes"`
}

// Tick is one unit of usage produced by a tick source for a target app.
type Tick struct {
	AppID string
	At    time.Time
}

// Simulated run state
type RunState string

const (
	RunIdle    RunState = "Idle"
	RunRunning RunState = "Running"
)

// RunUpdate is sent by the hook manager whenever a simulated run changes state.
type RunUpdate struct {
	RunID         string
	State         RunState
	AppID         string
	RemainingTime time.Duration
	Reason        string // "timeout", "stopped", "replaced" when a run ends
}
