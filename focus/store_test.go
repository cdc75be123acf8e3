package focus

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "focus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRecordAndRecent(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Record(Elapsed{
		Actual:    25 * time.Minute,
		Completed: true,
		Planned:   25 * time.Minute,
		StartedAt: time.Now().Add(-30 * time.Minute),
	}))
	require.NoError(t, store.Record(Elapsed{
		Actual:    10 * time.Minute,
		Completed: false,
		Planned:   25 * time.Minute,
		StartedAt: time.Now(),
	}))

	intervals, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, intervals, 2)

	// Newest first
	assert.False(t, intervals[0].Completed)
	assert.True(t, intervals[1].Completed)
	assert.Equal(t, int64(1500), intervals[1].ActualSecs)
}

func TestStoreTotalsByDay(t *testing.T) {
	store := testStore(t)

	now := time.Now().UTC()
	require.NoError(t, store.Record(Elapsed{Actual: 10 * time.Minute, Completed: true, Planned: 10 * time.Minute, StartedAt: now}))
	require.NoError(t, store.Record(Elapsed{Actual: 20 * time.Minute, Completed: true, Planned: 20 * time.Minute, StartedAt: now}))

	totals, err := store.TotalsByDay(7)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(1800), totals[0].TotalSecs)
	assert.Equal(t, now.Format("2006-01-02"), totals[0].Day)
}

func TestStoreRecentEmpty(t *testing.T) {
	store := testStore(t)
	intervals, err := store.Recent(5)
	require.NoError(t, err)
	assert.Empty(t, intervals)
}
