package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"screentime/internal/event"
	"screentime/internal/storage"
)

func setupTestDB(t *testing.T) (storage.Storage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test_screentime.db")
	store := NewSQLiteStore(dbPath)
	err := store.Init(context.Background())
	require.NoError(t, err, "Failed to initialize test database")

	cleanup := func() {
		err := store.Close()
		assert.NoError(t, err, "Failed to close test database")
	}

	return store, cleanup
}

func TestSaveAndGetEvent(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	testEvent := event.Event{
		Timestamp: now,
		Type:      event.EventTypeNotification,
		AppID:     "3",
		AppName:   "YouTube",
		Value:     15,
		Notes:     "Only 15 min left for YouTube today",
	}

	id, err := store.SaveEvent(ctx, testEvent)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	retrievedEvents, err := store.GetEvents(ctx, now.Add(-1*time.Minute), now.Add(1*time.Minute))
	require.NoError(t, err)
	require.Len(t, retrievedEvents, 1)

	retrieved := retrievedEvents[0]
	assert.Equal(t, id, retrieved.ID)
	assert.Equal(t, testEvent.Type, retrieved.Type)
	assert.True(t, testEvent.Timestamp.Equal(retrieved.Timestamp.Truncate(time.Second)))
	assert.Equal(t, testEvent.AppID, retrieved.AppID)
	assert.Equal(t, testEvent.AppName, retrieved.AppName)
	assert.InDelta(t, testEvent.Value, retrieved.Value, 0.001)
	assert.Equal(t, testEvent.Notes, retrieved.Notes)
}

func TestGetEventsFiltering(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	t1 := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)
	t2 := t1.Add(1 * time.Minute)
	t3 := t1.Add(5 * time.Minute)
	t4 := t1.Add(15 * time.Minute) // Outside initial range

	events := []event.Event{
		{Timestamp: t1, Type: event.EventTypeTick, AppID: "1", Notes: "A"},
		{Timestamp: t2, Type: event.EventTypeSessionEnd, AppID: "1", AppName: "App1"},
		{Timestamp: t3, Type: event.EventTypeTick, AppID: "2", Notes: "B"},
		{Timestamp: t4, Type: event.EventTypeDayReset, Notes: "You hit 1/2 goals today!"},
	}

	for _, e := range events {
		_, err := store.SaveEvent(ctx, e)
		require.NoError(t, err)
	}

	// Time range
	retrieved, err := store.GetEvents(ctx, t1, t3)
	require.NoError(t, err)
	require.Len(t, retrieved, 3)
	assert.Equal(t, events[0].Notes, retrieved[0].Notes)
	assert.Equal(t, events[1].AppName, retrieved[1].AppName)
	assert.Equal(t, events[2].Notes, retrieved[2].Notes)

	// Type filtering
	retrieved, err = store.GetEvents(ctx, t1.Add(-time.Hour), t4.Add(time.Hour), event.EventTypeTick)
	require.NoError(t, err)
	require.Len(t, retrieved, 2)
	assert.Equal(t, events[0].Notes, retrieved[0].Notes)
	assert.Equal(t, events[2].Notes, retrieved[1].Notes)

	// Multiple type filtering
	retrieved, err = store.GetEvents(ctx, t1.Add(-time.Hour), t4.Add(time.Hour), event.EventTypeSessionEnd, event.EventTypeDayReset)
	require.NoError(t, err)
	require.Len(t, retrieved, 2)
	assert.Equal(t, events[1].AppName, retrieved[0].AppName)
	assert.Equal(t, events[3].Notes, retrieved[1].Notes)

	// No results
	retrieved, err = store.GetEvents(ctx, t1.Add(10*time.Hour), t4.Add(11*time.Hour))
	require.NoError(t, err)
	assert.Len(t, retrieved, 0)
}

func TestUsageByApp(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	save := func(offset int, typ event.EventType, id, name string) {
		_, err := store.SaveEvent(ctx, event.Event{Timestamp: base.Add(time.Duration(offset) * time.Minute), Type: typ, AppID: id, AppName: name})
		require.NoError(t, err)
	}
	save(0, event.EventTypeTick, "1", "TikTok")
	save(1, event.EventTypeTick, "2", "Reddit")
	save(2, event.EventTypeTick, "2", "Reddit")
	save(3, event.EventTypeTick, "2", "Reddit")
	save(4, event.EventTypeSessionEnd, "2", "Reddit") // not usage
	save(90, event.EventTypeTick, "1", "TikTok")      // outside range

	usage, err := store.UsageByApp(ctx, base, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []storage.AppUsage{
		{AppID: "2", AppName: "Reddit", Minutes: 3},
		{AppID: "1", AppName: "TikTok", Minutes: 1},
	}, usage)
}

func TestCloseDB(t *testing.T) {
	store, cleanup := setupTestDB(t)
	cleanup()

	// Saving after close should fail
	_, err := store.SaveEvent(context.Background(), event.Event{Timestamp: time.Now(), Type: event.EventTypeTick})
	assert.Error(t, err)
}
