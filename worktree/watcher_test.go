package worktree

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsRemovedWorktree(t *testing.T) {
	c := testController(t)

	// A project directory with one checkout, present before the watcher starts
	checkout := filepath.Join(c.Root(), "app", "feature")
	require.NoError(t, os.MkdirAll(checkout, 0755))

	w, err := NewWatcher(c)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.RemoveAll(checkout))

	select {
	case removed := <-w.Removed():
		assert.Equal(t, checkout, removed)
	case <-time.After(2 * time.Second):
		t.Fatal("expected removal event")
	}
}

func TestWatcherPicksUpNewProjectDirs(t *testing.T) {
	c := testController(t)

	w, err := NewWatcher(c)
	require.NoError(t, err)
	defer w.Close()

	// Project directory created after the watcher starts
	projectDir := filepath.Join(c.Root(), "later")
	require.NoError(t, os.MkdirAll(projectDir, 0755))

	// Give the watcher a moment to add the new directory
	time.Sleep(100 * time.Millisecond)

	checkout := filepath.Join(projectDir, "branch")
	require.NoError(t, os.MkdirAll(checkout, 0755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.RemoveAll(checkout))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case removed := <-w.Removed():
			if removed == checkout {
				return
			}
		case <-deadline:
			t.Fatal("expected removal event for the new project's checkout")
		}
	}
}

func TestWatcherCloseStops(t *testing.T) {
	c := testController(t)
	w, err := NewWatcher(c)
	require.NoError(t, err)

	require.NoError(t, w.Close())

	select {
	case _, ok := <-w.Removed():
		assert.False(t, ok, "channel should close after watcher close")
	case <-time.After(2 * time.Second):
		t.Fatal("expected removed channel to close")
	}
}
