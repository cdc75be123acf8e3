package session

import (
	"syscall"
	"testing"
	"time"

	"argos/hooks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter spawns a long-lived sleep so manager tests get real PTYs
// without depending on any agent binary
type stubAdapter struct {
	kind Kind
}

func (a stubAdapter) Name() string                             { return "Stub" }
func (a stubAdapter) Key() string                              { return "stub" }
func (a stubAdapter) Kind() Kind                               { return a.kind }
func (a stubAdapter) Command() string                          { return "sleep" }
func (a stubAdapter) Args(cfg SpawnConfig) []string            { return []string{"30"} }
func (a stubAdapter) Env(cfg SpawnConfig) map[string]string    { return nil }
func (a stubAdapter) SupportsHooks() bool                      { return false }
func (a stubAdapter) SetupHooks(cfg SpawnConfig) ([]string, error) { return nil, nil }
func (a stubAdapter) Spawn(cfg SpawnConfig) (*PtyHandle, error) {
	return Spawn(a.Command(), a.Args(cfg), cfg.WorkingDir, a.Env(cfg), cfg.Cols, cfg.Rows)
}

func testManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(ManagerConfig{
		ExitedRetention:    300 * time.Second,
		HookPort:           9999,
		HooksDir:           t.TempDir(),
		IdleThreshold:      300 * time.Second,
		MaxOutputLines:     1000,
		NotificationMethod: "none",
		ScrollbackLines:    1000,
		StateTimeout:       300 * time.Second,
	})
	t.Cleanup(m.ShutdownAll)
	return m
}

func createStubSession(t *testing.T, m *Manager, name string) ID {
	t.Helper()
	id, err := m.Create(CreateOptions{
		Adapter:    stubAdapter{kind: KindAgent},
		Cols:       80,
		Name:       name,
		Rows:       24,
		WorkingDir: "/tmp",
	})
	require.NoError(t, err)
	return id
}

func TestManagerCreateAndDestroy(t *testing.T) {
	m := testManager(t)

	id := createStubSession(t, m, "one")
	assert.Equal(t, 1, m.Len())

	s, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, StateStarting, s.State)
	assert.Equal(t, "one", s.Name)

	require.NoError(t, m.Destroy(id))
	assert.Equal(t, 0, m.Len())
	_, ok = m.Get(id)
	assert.False(t, ok)
}

func TestManagerDestroyUnknown(t *testing.T) {
	m := testManager(t)
	assert.Error(t, m.Destroy("no-such-session"))
}

func TestManagerCreateSpawnFailureLeavesNoState(t *testing.T) {
	m := testManager(t)

	_, err := m.Create(CreateOptions{
		Adapter:    brokenAdapter{},
		Cols:       80,
		Name:       "broken",
		Rows:       24,
		WorkingDir: "/tmp",
	})
	require.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

type brokenAdapter struct{ stubAdapter }

func (brokenAdapter) Command() string { return "/nonexistent/definitely-not-a-binary" }
func (b brokenAdapter) Spawn(cfg SpawnConfig) (*PtyHandle, error) {
	return Spawn(b.Command(), nil, cfg.WorkingDir, nil, cfg.Cols, cfg.Rows)
}

func TestManagerByIndexChecked(t *testing.T) {
	m := testManager(t)

	_, ok := m.ByIndex(0)
	assert.False(t, ok)
	_, ok = m.ByIndex(-1)
	assert.False(t, ok)
	_, ok = m.ByIndex(100)
	assert.False(t, ok)

	id := createStubSession(t, m, "one")
	s, ok := m.ByIndex(0)
	require.True(t, ok)
	assert.Equal(t, id, s.ID)
}

func event(sessionID, name, tool string) hooks.Event {
	return hooks.Event{
		EventName:   name,
		SessionID:   sessionID,
		TimestampMS: time.Now().UnixMilli(),
		Tool:        tool,
	}
}

func TestManagerHookTransitionTable(t *testing.T) {
	m := testManager(t)
	id := createStubSession(t, m, "agent")
	s, _ := m.Get(id)

	// Spawn and waiting cycle: UserPromptSubmit → PreToolUse → PostToolUse → Stop
	bell := m.ApplyHook(event(id, "UserPromptSubmit", ""))
	assert.Equal(t, StateThinking, s.State)
	assert.False(t, bell)

	bell = m.ApplyHook(event(id, "PreToolUse", "Bash"))
	assert.Equal(t, StateExecuting, s.State)
	assert.Equal(t, "Bash", s.CurrentTool)
	assert.False(t, bell)

	bell = m.ApplyHook(event(id, "PostToolUse", "Bash"))
	assert.Equal(t, StateThinking, s.State)
	assert.False(t, bell)

	bell = m.ApplyHook(event(id, "Stop", ""))
	assert.Equal(t, StateWaiting, s.State)
	assert.True(t, s.NeedsAttention)
	assert.True(t, bell, "one notification on Waiting entry")

	// A second Stop must not ring again
	bell = m.ApplyHook(event(id, "Stop", ""))
	assert.False(t, bell)
}

func TestManagerSubagentStopActsLikeStop(t *testing.T) {
	m := testManager(t)
	id := createStubSession(t, m, "agent")
	s, _ := m.Get(id)

	bell := m.ApplyHook(event(id, "SubagentStop", ""))
	assert.Equal(t, StateWaiting, s.State)
	assert.True(t, s.NeedsAttention)
	assert.True(t, bell)
}

func TestManagerNotificationEventSetsAttentionOnly(t *testing.T) {
	m := testManager(t)
	id := createStubSession(t, m, "agent")
	s, _ := m.Get(id)

	m.ApplyHook(event(id, "UserPromptSubmit", ""))
	bell := m.ApplyHook(event(id, "Notification", ""))
	assert.Equal(t, StateThinking, s.State, "state unchanged")
	assert.True(t, s.NeedsAttention)
	assert.False(t, bell)
}

func TestManagerUnknownEventIgnored(t *testing.T) {
	m := testManager(t)
	id := createStubSession(t, m, "agent")
	s, _ := m.Get(id)

	m.ApplyHook(event(id, "UserPromptSubmit", ""))
	bell := m.ApplyHook(event(id, "SomethingNew", ""))
	assert.Equal(t, StateThinking, s.State)
	assert.False(t, bell)
}

func TestManagerHookForUnknownSession(t *testing.T) {
	m := testManager(t)
	assert.False(t, m.ApplyHook(event("missing", "Stop", "")))
}

func TestManagerUserPromptClearsAttention(t *testing.T) {
	m := testManager(t)
	id := createStubSession(t, m, "agent")
	s, _ := m.Get(id)

	m.ApplyHook(event(id, "Stop", ""))
	require.True(t, s.NeedsAttention)

	m.ApplyHook(event(id, "UserPromptSubmit", ""))
	assert.False(t, s.NeedsAttention)
	assert.Equal(t, StateThinking, s.State)
}

func TestManagerActiveSessionSuppressesAttention(t *testing.T) {
	m := testManager(t)
	id := createStubSession(t, m, "agent")
	s, _ := m.Get(id)

	m.SetActive(id)
	bell := m.ApplyHook(event(id, "Stop", ""))
	assert.Equal(t, StateWaiting, s.State)
	assert.False(t, s.NeedsAttention, "viewed session never badges")
	assert.False(t, bell, "viewed session never rings")
}

func TestManagerExecutingTimeoutFallsToIdle(t *testing.T) {
	m := testManager(t)
	id := createStubSession(t, m, "agent")
	s, _ := m.Get(id)

	m.ApplyHook(event(id, "PreToolUse", "Bash"))
	require.Equal(t, StateExecuting, s.State)

	// Simulate 301 seconds without further hooks
	s.LastActivityAt = time.Now().Add(-301 * time.Second)
	m.TickTimeouts(time.Now())

	assert.Equal(t, StateIdle, s.State)
}

func TestManagerWaitingStaleBadge(t *testing.T) {
	m := testManager(t)
	id := createStubSession(t, m, "agent")
	s, _ := m.Get(id)

	m.ApplyHook(event(id, "Stop", ""))
	assert.False(t, m.AttentionStale(s, time.Now()))

	s.WaitingSince = time.Now().Add(-301 * time.Second)
	assert.True(t, m.AttentionStale(s, time.Now()))
	assert.Equal(t, StateWaiting, s.State, "stale badge does not change state")
}

func TestManagerCrashCleanup(t *testing.T) {
	m := testManager(t)
	id := createStubSession(t, m, "doomed")
	s, _ := m.Get(id)
	m.ApplyHook(event(id, "Stop", ""))
	require.True(t, s.NeedsAttention)

	// Kill the child externally
	require.NoError(t, s.Pty.cmd.Process.Signal(syscall.SIGKILL))
	s.Pty.Wait()

	result := m.Poll()
	require.Len(t, result.Crashed, 1)
	assert.Equal(t, StateExited, s.State)
	assert.Contains(t, s.ExitReason, "signal 9")
	assert.False(t, s.NeedsAttention, "attention cleared on exit")

	// After the retention window the session is reaped
	s.ExitedAt = time.Now().Add(-301 * time.Second)
	reaped := m.TickTimeouts(time.Now())
	assert.Equal(t, []ID{id}, reaped)
	assert.Equal(t, 0, m.Len())
}

func TestManagerIndexSafetyUnderDeletion(t *testing.T) {
	m := testManager(t)
	createStubSession(t, m, "zero")
	idOne := createStubSession(t, m, "one")

	// UI selection sits at index 1; that session goes away
	require.NoError(t, m.Destroy(idOne))

	// Checked retrieval after the shrink: no panic, index clamps to 0
	_, ok := m.ByIndex(1)
	assert.False(t, ok)
	s, ok := m.ByIndex(0)
	require.True(t, ok)
	assert.Equal(t, "zero", s.Name)
}

func TestCoalesceEventsDropsConsecutiveDuplicates(t *testing.T) {
	events := []hooks.Event{
		event("a", "PreToolUse", "Bash"),
		event("a", "PreToolUse", "Read"),
		event("a", "PostToolUse", ""),
		event("b", "Stop", ""),
		event("b", "Stop", ""),
	}

	coalesced := CoalesceEvents(events)
	require.Len(t, coalesced, 3)
	assert.Equal(t, "Read", coalesced[0].Tool)
	assert.Equal(t, "PostToolUse", coalesced[1].EventName)
	assert.Equal(t, "Stop", coalesced[2].EventName)
}

func TestCoalescingPreservesFinalState(t *testing.T) {
	batch := []hooks.Event{
		{SessionID: "x", EventName: "UserPromptSubmit"},
		{SessionID: "x", EventName: "PreToolUse", Tool: "Bash"},
		{SessionID: "x", EventName: "PreToolUse", Tool: "Read"},
		{SessionID: "x", EventName: "PostToolUse"},
		{SessionID: "x", EventName: "Stop"},
		{SessionID: "y", EventName: "PreToolUse", Tool: "Edit"},
	}

	runBatch := func(events []hooks.Event) (State, State) {
		m := testManager(t)
		idX := createStubSession(t, m, "x-session")
		idY := createStubSession(t, m, "y-session")
		for _, e := range events {
			switch e.SessionID {
			case "x":
				e.SessionID = idX
			case "y":
				e.SessionID = idY
			}
			m.ApplyHook(e)
		}
		sx, _ := m.Get(idX)
		sy, _ := m.Get(idY)
		return sx.State, sy.State
	}

	oneByOneX, oneByOneY := runBatch(batch)
	coalescedX, coalescedY := runBatch(CoalesceEvents(batch))

	assert.Equal(t, oneByOneX, coalescedX)
	assert.Equal(t, oneByOneY, coalescedY)
	assert.Equal(t, StateWaiting, coalescedX)
	assert.Equal(t, StateExecuting, coalescedY)
}

func TestManagerShellStateDetection(t *testing.T) {
	m := testManager(t)

	// The stub child is `sleep`, not a shell, so the foreground group never
	// differs from the child itself: the session reads as not busy
	id, err := m.Create(CreateOptions{
		Adapter:    stubAdapter{kind: KindShell},
		Cols:       80,
		Name:       "shell",
		Rows:       24,
		WorkingDir: "/tmp",
	})
	require.NoError(t, err)

	s, _ := m.Get(id)
	s.SetState(StateExecuting)

	finished := m.CheckShellStates()
	require.Len(t, finished, 1)
	assert.Equal(t, StateWaiting, s.State)
	assert.True(t, s.NeedsAttention)
}

func TestManagerShutdownAll(t *testing.T) {
	m := testManager(t)
	createStubSession(t, m, "one")
	createStubSession(t, m, "two")

	start := time.Now()
	m.ShutdownAll()

	assert.Equal(t, 0, m.Len())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestManagerForProjectAndBranch(t *testing.T) {
	m := testManager(t)
	id, err := m.Create(CreateOptions{
		Adapter:    stubAdapter{kind: KindAgent},
		BranchID:   "branch-1",
		Cols:       80,
		Name:       "one",
		ProjectID:  "project-1",
		Rows:       24,
		WorkingDir: "/tmp",
	})
	require.NoError(t, err)

	assert.Len(t, m.ForProject("project-1"), 1)
	assert.Empty(t, m.ForProject("project-2"))
	assert.Len(t, m.ForBranch("branch-1"), 1)

	s, _ := m.Get(id)
	assert.Equal(t, "project-1", s.ProjectID)
}
