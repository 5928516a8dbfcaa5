package tracker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var n int
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
}

func newTestTracker(t *testing.T, opts ...Option) *Tracker {
	t.Helper()
	return New(append([]Option{WithClock(fixedClock())}, opts...)...)
}

func TestAddAppValidation(t *testing.T) {
	tr := newTestTracker(t)

	_, err := tr.AddApp("", 60, "", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = tr.AddApp("   ", 60, "", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = tr.AddApp("X", 0, "", "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "daily_goal_minutes", verr.Field)

	_, err = tr.AddApp("X", -5, "", "")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, tr.List(), "failed adds must not create records")
}

func TestAddAppInitialState(t *testing.T) {
	tr := newTestTracker(t)

	id, err := tr.AddApp("TikTok", 45, "logo-tiktok", "#FF0050")
	require.NoError(t, err)

	app, err := tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "TikTok", app.Name)
	assert.Equal(t, "logo-tiktok", app.Icon)
	assert.Equal(t, "#ff0050", app.Color)
	assert.Equal(t, 45, app.DailyGoalMinutes)
	assert.Zero(t, app.TodayUsageMinutes)
	assert.Zero(t, app.CurrentSessionMinutes)
	assert.False(t, app.IsActive)
}

func TestListKeepsInsertionOrderAndAllowsDuplicateNames(t *testing.T) {
	tr := newTestTracker(t)
	var ids []string
	for _, name := range []string{"YouTube", "Instagram", "YouTube"} {
		id, err := tr.AddApp(name, 60, "", "")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	apps := tr.List()
	require.Len(t, apps, 3)
	for i, a := range apps {
		assert.Equal(t, ids[i], a.ID)
	}
	assert.NotEqual(t, ids[0], ids[2], "ids must be unique even for equal names")
}

func TestGetUnknown(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Get("42")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "42", nf.AppID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTickAccumulates(t *testing.T) {
	tr := newTestTracker(t)
	id, err := tr.AddApp("Reddit", 60, "", "")
	require.NoError(t, err)

	for i := 1; i <= 17; i++ {
		remaining, err := tr.Tick(id)
		require.NoError(t, err)
		assert.Equal(t, 60-i, remaining)
	}

	app, err := tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 17, app.TodayUsageMinutes)
	assert.Equal(t, 17, app.CurrentSessionMinutes)
	assert.True(t, app.IsActive)
}

func TestTickUnknownApp(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Tick("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, tr.EndSession("nope"), ErrNotFound)
}

func TestSingleFocus(t *testing.T) {
	tr := newTestTracker(t)
	a, _ := tr.AddApp("A", 60, "", "")
	b, _ := tr.AddApp("B", 60, "", "")
	c, _ := tr.AddApp("C", 60, "", "")

	sequence := []string{a, a, b, c, c, a, b, b}
	for _, id := range sequence {
		_, err := tr.Tick(id)
		require.NoError(t, err)

		var active []string
		for _, app := range tr.List() {
			if app.IsActive {
				active = append(active, app.ID)
			}
			assert.LessOrEqual(t, app.CurrentSessionMinutes, app.TodayUsageMinutes)
		}
		assert.Equal(t, []string{id}, active)
	}

	// Totals equal the number of ticks per id.
	counts := map[string]int{}
	for _, id := range sequence {
		counts[id]++
	}
	for _, app := range tr.List() {
		assert.Equal(t, counts[app.ID], app.TodayUsageMinutes, app.Name)
	}
}

func TestSessionResetsOnFocusChange(t *testing.T) {
	tr := newTestTracker(t)
	x, _ := tr.AddApp("X", 60, "", "")
	y, _ := tr.AddApp("Y", 60, "", "")

	_, _ = tr.Tick(x)
	_, _ = tr.Tick(x)
	_, _ = tr.Tick(y)

	appX, _ := tr.Get(x)
	assert.Zero(t, appX.CurrentSessionMinutes)
	assert.False(t, appX.IsActive)
	assert.Equal(t, 2, appX.TodayUsageMinutes, "focus loss keeps today's usage")

	// Returning to X starts a fresh session.
	_, _ = tr.Tick(x)
	appX, _ = tr.Get(x)
	assert.Equal(t, 1, appX.CurrentSessionMinutes)
	assert.Equal(t, 3, appX.TodayUsageMinutes)
}

func TestEndSessionIdempotent(t *testing.T) {
	tr := newTestTracker(t)
	id, _ := tr.AddApp("Snapchat", 30, "", "")
	_, _ = tr.Tick(id)
	_, _ = tr.Tick(id)

	require.NoError(t, tr.EndSession(id))
	first, _ := tr.Get(id)
	assert.False(t, first.IsActive)
	assert.Zero(t, first.CurrentSessionMinutes)
	assert.Equal(t, 2, first.TodayUsageMinutes)

	require.NoError(t, tr.EndSession(id))
	second, _ := tr.Get(id)
	assert.Equal(t, first, second)

	_, ok := tr.Active()
	assert.False(t, ok)
}

func TestThresholdsFireExactlyOnce(t *testing.T) {
	var hooked []Notification
	tr := newTestTracker(t, WithNotifyHook(func(n Notification) { hooked = append(hooked, n) }))
	id, _ := tr.AddApp("Instagram", 30, "", "")

	firedAt := map[int]int{} // remaining -> usage before the tick that fired it
	for usage := 0; usage < 30; usage++ {
		before := len(hooked)
		_, err := tr.Tick(id)
		require.NoError(t, err)
		require.LessOrEqual(t, len(hooked)-before, 1, "at most one notification per tick")
		if len(hooked) > before {
			n := hooked[len(hooked)-1]
			if n.RemainingMinutes == 30 {
				firedAt[30] = usage
			} else {
				firedAt[n.RemainingMinutes] = usage + 1
			}
		}
	}

	require.Len(t, hooked, 4)
	assert.Equal(t, map[int]int{30: 0, 15: 15, 5: 25, 0: 30}, firedAt)

	// Ticking past the goal fires nothing more.
	for i := 0; i < 10; i++ {
		_, _ = tr.Tick(id)
	}
	assert.Len(t, hooked, 4)

	// Ids increase in creation order and the feed is newest first.
	feed := tr.Notifications()
	require.Len(t, feed, 4)
	assert.Equal(t, []int{0, 5, 15, 30}, remainingOf(feed))
	for i := 1; i < len(feed); i++ {
		assert.Greater(t, feed[i-1].ID, feed[i].ID)
		assert.True(t, feed[i-1].CreatedAt.After(feed[i].CreatedAt))
	}
	assert.Equal(t, "Instagram", feed[0].AppName)
	assert.Equal(t, id, feed[0].AppID)
}

func TestThresholdsNotRepeatedAcrossSessions(t *testing.T) {
	tr := newTestTracker(t)
	a, _ := tr.AddApp("A", 16, "", "")
	b, _ := tr.AddApp("B", 60, "", "")

	_, _ = tr.Tick(a) // remaining 15 -> fires
	require.Len(t, tr.Notifications(), 1)

	_, _ = tr.Tick(b)
	require.NoError(t, tr.EndSession(b))
	require.Len(t, tr.Notifications(), 1)

	_, _ = tr.Tick(a) // pre-tick value 15 was already announced
	assert.Len(t, tr.Notifications(), 1)
}

func TestGoalsBelowThresholdsOnlyFireReachable(t *testing.T) {
	tr := newTestTracker(t)
	id, _ := tr.AddApp("Short", 8, "", "")
	for i := 0; i < 8; i++ {
		_, _ = tr.Tick(id)
	}
	assert.Equal(t, []int{0, 5}, remainingOf(tr.Notifications()))
}

func TestResetDay(t *testing.T) {
	tr := newTestTracker(t)
	within, _ := tr.AddApp("Within", 10, "", "")
	over, _ := tr.AddApp("Over", 2, "", "")

	for i := 0; i < 3; i++ {
		_, _ = tr.Tick(within)
		_, _ = tr.Tick(over)
	}
	require.NotEmpty(t, tr.Notifications())

	summary := tr.ResetDay()
	assert.Equal(t, 1, summary.GoalsHit)
	assert.Equal(t, 2, summary.GoalsTotal)
	assert.Equal(t, []string{"Over"}, summary.OverGoal)
	assert.Equal(t, "You hit 1/2 goals today!", summary.String())

	for _, app := range tr.List() {
		assert.Zero(t, app.TodayUsageMinutes)
		assert.Zero(t, app.CurrentSessionMinutes)
		assert.False(t, app.IsActive)
	}
	w, _ := tr.Get(within)
	o, _ := tr.Get(over)
	assert.Equal(t, 1, w.GoalsMet)
	assert.Zero(t, o.GoalsMet)

	// Thresholds are armed again: the same app can hit 0 remaining on the new day.
	before := len(tr.Notifications())
	_, _ = tr.Tick(over)
	_, _ = tr.Tick(over)
	feed := tr.Notifications()
	require.Len(t, feed, min(before+1, DefaultFeedCapacity))
	assert.Equal(t, over, feed[0].AppID)
	assert.Equal(t, 0, feed[0].RemainingMinutes)
}

func TestTrackerFeedKeepsFive(t *testing.T) {
	tr := newTestTracker(t)
	var ids []string
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		id, err := tr.AddApp(name, 30, "", "")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	// First tick of a 30 minute goal announces the 30 threshold.
	for _, id := range ids {
		_, err := tr.Tick(id)
		require.NoError(t, err)
	}

	feed := tr.Notifications()
	require.Len(t, feed, DefaultFeedCapacity)
	for i, n := range feed {
		assert.Equal(t, ids[len(ids)-1-i], n.AppID)
	}
}

func TestResetDayIgnoresUnusedApps(t *testing.T) {
	tr := newTestTracker(t)
	unused, _ := tr.AddApp("Unused", 30, "", "")
	used, _ := tr.AddApp("Used", 30, "", "")
	_, _ = tr.Tick(used)

	summary := tr.ResetDay()
	assert.Equal(t, 1, summary.GoalsHit)
	assert.Equal(t, 1, summary.GoalsTotal)
	assert.Equal(t, "You hit 1/1 goals today!", summary.String())

	u, _ := tr.Get(unused)
	assert.Zero(t, u.GoalsMet)
	w, _ := tr.Get(used)
	assert.Equal(t, 1, w.GoalsMet)

	// A day with nothing opened credits nobody.
	summary = tr.ResetDay()
	assert.Zero(t, summary.GoalsTotal)
	w, _ = tr.Get(used)
	assert.Equal(t, 1, w.GoalsMet)
}

func TestThresholdsReturnsCopy(t *testing.T) {
	got := Thresholds()
	assert.Equal(t, []int{30, 15, 5, 0}, got)
	got[0] = 99
	assert.Equal(t, []int{30, 15, 5, 0}, Thresholds())

	tr := newTestTracker(t)
	id, _ := tr.AddApp("A", 30, "", "")
	_, _ = tr.Tick(id)
	assert.Equal(t, []int{30}, remainingOf(tr.Notifications()))
}

func TestProgressViaTracker(t *testing.T) {
	tr := newTestTracker(t)
	id, _ := tr.AddApp("A", 4, "", "")
	for i := 0; i < 6; i++ {
		_, _ = tr.Tick(id)
	}
	p, err := tr.Progress(id)
	require.NoError(t, err)
	assert.Equal(t, Progress{AppID: id, Percent: 100, IsOverGoal: true, OverGoalMinutes: 2, RemainingMinutes: -2}, p)

	_, err = tr.Progress("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConcurrentTicksKeepSingleFocus(t *testing.T) {
	tr := New()
	var ids []string
	for _, name := range []string{"A", "B", "C", "D"} {
		id, err := tr.AddApp(name, 500, "", "")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_, err := tr.Tick(id)
				assert.NoError(t, err)
				_ = tr.List()
			}
		}(id)
	}
	wg.Wait()

	active := 0
	total := 0
	for _, app := range tr.List() {
		assert.Equal(t, 100, app.TodayUsageMinutes)
		if app.IsActive {
			active++
		}
		total += app.TodayUsageMinutes
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, 400, total)
}

func remainingOf(ns []Notification) []int {
	out := make([]int, len(ns))
	for i, n := range ns {
		out[i] = n.RemainingMinutes
	}
	return out
}
