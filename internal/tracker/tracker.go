// Package tracker implements the in-memory screen-time engine: a registry of
// tracked apps, the per-tick usage accumulator, the goal-threshold notifier,
// a bounded notification feed, and pure progress reporting.
//
// The engine owns no timers. Hosts drive it by calling Tick at a fixed
// cadence and ResetDay at day rollover.
package tracker

import (
	"sync"
	"time"
)

// Tracker serializes every mutation behind one lock. Queries take the read
// lock and return copies, so callers always see a consistent snapshot.
type Tracker struct {
	mu       sync.RWMutex
	registry *Registry
	notifier *Notifier
	feed     *Feed

	onNotify func(Notification)
}

type Option func(*Tracker)

// WithClock sets the time source used to stamp notifications.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.notifier = NewNotifier(now) }
}

// WithNotifyHook registers a callback invoked for each fired notification.
// It runs after the lock is released and must not block for long.
func WithNotifyHook(fn func(Notification)) Option {
	return func(t *Tracker) { t.onNotify = fn }
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		registry: NewRegistry(),
		notifier: NewNotifier(time.Now),
		feed:     NewFeed(DefaultFeedCapacity),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) AddApp(name string, dailyGoalMinutes int, icon, color string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registry.Add(name, dailyGoalMinutes, icon, color)
}

func (t *Tracker) Get(id string) (TrackedApp, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.registry.Get(id)
}

func (t *Tracker) List() []TrackedApp {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.registry.List()
}

func (t *Tracker) FindByName(name string) (TrackedApp, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.registry.FindByName(name)
}

// Tick adds one minute to appID, evaluates thresholds and returns the
// remaining allowance, which is negative once the app is over goal.
func (t *Tracker) Tick(appID string) (int, error) {
	t.mu.Lock()
	before, after, err := tick(t.registry, appID)
	if err != nil {
		t.mu.Unlock()
		return 0, err
	}
	app, _ := t.registry.Get(appID)
	n, fired := t.notifier.Evaluate(app, before, after)
	if fired {
		t.feed.Push(n)
	}
	hook := t.onNotify
	t.mu.Unlock()

	if fired && hook != nil {
		hook(n)
	}
	return after, nil
}

// EndSession makes appID inactive. Calling it on an inactive app is a no-op.
func (t *Tracker) EndSession(appID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := endSession(t.registry, appID)
	return err
}

// Active returns the app currently holding focus, if any.
func (t *Tracker) Active() (TrackedApp, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, a := range t.registry.List() {
		if a.IsActive {
			return a, true
		}
	}
	return TrackedApp{}, false
}

// ResetDay closes the current day: it returns that day's summary, zeroes
// every usage counter and re-arms all thresholds.
func (t *Tracker) ResetDay() DaySummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	summary := resetDay(t.registry)
	t.notifier.Reset()
	return summary
}

// Summary reports goal attainment for the day so far.
func (t *Tracker) Summary() DaySummary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return summarize(t.registry)
}

// Notifications returns the feed, newest first.
func (t *Tracker) Notifications() []Notification {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.feed.List()
}

// Progress looks up appID and reports on its snapshot.
func (t *Tracker) Progress(appID string) (Progress, error) {
	app, err := t.Get(appID)
	if err != nil {
		return Progress{}, err
	}
	return Report(app)
}
