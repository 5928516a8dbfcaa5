package tracker

import (
	"fmt"
	"time"
)

// thresholds are the remaining-allowance values, in minutes, that trigger a
// notification. Checked in this order.
var thresholds = [...]int{30, 15, 5, 0}

// Thresholds returns a copy of the remaining-allowance values that notify.
func Thresholds() []int {
	return append([]int(nil), thresholds[:]...)
}

// Notification is emitted once per app and threshold per day.
type Notification struct {
	ID               uint64    `json:"id"`
	AppID            string    `json:"app_id"`
	AppName          string    `json:"app_name"`
	RemainingMinutes int       `json:"remaining_minutes"`
	CreatedAt        time.Time `json:"created_at"`
}

// Message renders the default English text. Presentation layers are free to
// build their own from the structured fields.
func (n Notification) Message() string {
	if n.RemainingMinutes == 0 {
		return fmt.Sprintf("You've reached your goal for %s today", n.AppName)
	}
	return fmt.Sprintf("Only %d min left for %s today", n.RemainingMinutes, n.AppName)
}

// Notifier decides whether a tick lands on a threshold. Matching is by exact
// equality, so a threshold the counter never lands on is never reported.
type Notifier struct {
	now    func() time.Time
	nextID uint64
	fired  map[string]map[int]struct{} // app id -> thresholds fired today
}

func NewNotifier(now func() time.Time) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{now: now, fired: make(map[string]map[int]struct{})}
}

// Evaluate inspects the remaining allowance before and after a tick and
// returns the notification to emit, if any. The pre-tick value is checked so
// an allowance that starts exactly on a threshold is announced on the first
// tick of the day.
func (n *Notifier) Evaluate(app TrackedApp, before, after int) (Notification, bool) {
	for _, remaining := range []int{before, after} {
		for _, t := range thresholds {
			if remaining != t || n.wasFired(app.ID, t) {
				continue
			}
			n.markFired(app.ID, t)
			n.nextID++
			return Notification{
				ID:               n.nextID,
				AppID:            app.ID,
				AppName:          app.Name,
				RemainingMinutes: t,
				CreatedAt:        n.now(),
			}, true
		}
	}
	return Notification{}, false
}

// Reset forgets which thresholds fired; called at day rollover.
func (n *Notifier) Reset() {
	n.fired = make(map[string]map[int]struct{})
}

func (n *Notifier) wasFired(appID string, threshold int) bool {
	_, ok := n.fired[appID][threshold]
	return ok
}

func (n *Notifier) markFired(appID string, threshold int) {
	if n.fired[appID] == nil {
		n.fired[appID] = make(map[int]struct{})
	}
	n.fired[appID][threshold] = struct{}{}
}
