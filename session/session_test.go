package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnTestSession(t *testing.T, command string, args ...string) *Session {
	t.Helper()
	pty, err := Spawn(command, args, "/tmp", nil, 80, 24)
	require.NoError(t, err)

	s := New(NewID(), "test", KindAgent, "/tmp", pty, 80, 24, 1000, 1000)
	t.Cleanup(s.Close)
	return s
}

func TestSetStateWaitingSince(t *testing.T) {
	s := spawnTestSession(t, "sleep", "5")

	assert.True(t, s.WaitingSince.IsZero())

	s.SetState(StateWaiting)
	require.False(t, s.WaitingSince.IsZero())
	firstWaiting := s.WaitingSince

	// Re-entering Waiting keeps the original timestamp
	s.SetState(StateWaiting)
	assert.Equal(t, firstWaiting, s.WaitingSince)

	// Leaving Waiting clears it
	s.SetState(StateThinking)
	assert.True(t, s.WaitingSince.IsZero())
}

func TestSetStateExitedIsTerminal(t *testing.T) {
	s := spawnTestSession(t, "sleep", "5")

	s.SetState(StateExited)
	require.Equal(t, StateExited, s.State)
	exitedAt := s.ExitedAt
	require.False(t, exitedAt.IsZero())

	// No transition leaves Exited, and the exit timestamp is stable
	s.SetState(StateThinking)
	assert.Equal(t, StateExited, s.State)
	s.SetState(StateWaiting)
	assert.Equal(t, StateExited, s.State)
	assert.Equal(t, exitedAt, s.ExitedAt)
}

func TestSetStateClearsToolOutsideExecuting(t *testing.T) {
	s := spawnTestSession(t, "sleep", "5")

	s.SetState(StateExecuting)
	s.CurrentTool = "Bash"
	s.SetState(StateThinking)
	assert.Empty(t, s.CurrentTool)
}

func TestPollOutputPromotesStartingToWaiting(t *testing.T) {
	s := spawnTestSession(t, "echo", "ready")

	require.Equal(t, StateStarting, s.State)

	ok := waitFor(t, 2*time.Second, func() bool { return s.PollOutput() })
	require.True(t, ok, "expected output from echo")
	assert.Equal(t, StateWaiting, s.State)
}

func TestStateDisplayNames(t *testing.T) {
	assert.Equal(t, "Starting", StateStarting.DisplayName(KindAgent))
	assert.Equal(t, "Thinking", StateThinking.DisplayName(KindAgent))
	assert.Equal(t, "Executing", StateExecuting.DisplayName(KindAgent))
	assert.Equal(t, "Waiting", StateWaiting.DisplayName(KindAgent))
	assert.Equal(t, "Idle", StateIdle.DisplayName(KindAgent))
	assert.Equal(t, "Exited", StateExited.DisplayName(KindAgent))
}

func TestShellStateAlphabetIsReduced(t *testing.T) {
	// Shell sessions show {Running, Ready, Exited} only
	assert.Equal(t, "Running", StateExecuting.DisplayName(KindShell))
	assert.Equal(t, "Ready", StateWaiting.DisplayName(KindShell))
	assert.Equal(t, "Ready", StateIdle.DisplayName(KindShell))
	assert.Equal(t, "Ready", StateStarting.DisplayName(KindShell))
	assert.Equal(t, "Exited", StateExited.DisplayName(KindShell))
}

func TestStateIsActive(t *testing.T) {
	assert.True(t, StateStarting.IsActive())
	assert.True(t, StateThinking.IsActive())
	assert.True(t, StateExecuting.IsActive())
	assert.False(t, StateWaiting.IsActive())
	assert.False(t, StateIdle.IsActive())
	assert.False(t, StateExited.IsActive())
}

func TestNewIDUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}

func TestSessionResize(t *testing.T) {
	s := spawnTestSession(t, "sleep", "5")

	require.NoError(t, s.Resize(120, 40))
	cols, rows := s.VTerm.Size()
	assert.Equal(t, 120, cols)
	assert.Equal(t, 40, rows)
}
