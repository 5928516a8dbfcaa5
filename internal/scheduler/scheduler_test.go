package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screentime/internal/tracker"
)

func TestDayResetClearsUsage(t *testing.T) {
	tr := tracker.New()
	id, err := tr.AddApp("Instagram", 2, "", "")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := tr.Tick(id)
		require.NoError(t, err)
	}

	var got []tracker.DaySummary
	s := NewScheduler(tr, func(sum tracker.DaySummary) { got = append(got, sum) })
	s.runDayReset()

	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].GoalsHit)
	assert.Equal(t, 1, got[0].GoalsTotal)

	app, err := tr.Get(id)
	require.NoError(t, err)
	assert.Zero(t, app.TodayUsageMinutes)
	assert.False(t, app.IsActive)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(tracker.New(), nil)
	err := s.Start("not a cron spec")
	assert.Error(t, err)
	s.Stop()
}

func TestScheduledReset(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	s := NewScheduler(tracker.New(), func(tracker.DaySummary) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, s.Start("* * * * * *"))
	defer s.Stop()

	assert.Error(t, s.Start("* * * * * *"), "double start")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls > 0
	}, 3*time.Second, 50*time.Millisecond)
}
