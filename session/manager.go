package session

import (
	"fmt"
	"os"
	"time"

	"argos/hooks"
	"argos/logging"

	"golang.org/x/sync/errgroup"
)

// shutdownBound is the hard upper bound on shutting down all sessions, so
// the process exits even if a child refuses to die
const shutdownBound = 3 * time.Second

// ManagerConfig carries the tunables the manager applies
type ManagerConfig struct {
	ExitedRetention    time.Duration
	HookPort           uint16
	HooksDir           string
	IdleThreshold      time.Duration
	MaxOutputLines     int
	NotificationMethod string
	ScrollbackLines    int
	StateTimeout       time.Duration
}

// CreateOptions parameterizes session creation
type CreateOptions struct {
	Adapter       Adapter
	BranchID      string
	Cols          int
	InitialPrompt string
	Name          string
	ProjectID     string
	Rows          int
	WorkingDir    string
}

// Manager owns the id → session mapping and an ordered list for navigation.
// It is single-threaded: only the app loop calls into it.
type Manager struct {
	activeID     ID
	cfg          ManagerConfig
	cleanupPaths map[ID][]string
	order        []ID
	sessions     map[ID]*Session
}

// NewManager creates an empty session manager
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		cfg:          cfg,
		cleanupPaths: make(map[ID][]string),
		sessions:     make(map[ID]*Session),
	}
}

// Create spawns a new session from the adapter's recipe. Hook scripts are
// installed first when the adapter needs them. On spawn failure no session
// is registered and any session-specific files are removed again.
func (m *Manager) Create(opts CreateOptions) (ID, error) {
	if opts.Adapter == nil {
		return "", fmt.Errorf("adapter is required")
	}
	if opts.Cols <= 0 || opts.Rows <= 0 {
		opts.Cols, opts.Rows = 80, 24
	}

	id := NewID()
	spawnCfg := SpawnConfig{
		Cols:          uint16(opts.Cols),
		HookPort:      m.cfg.HookPort,
		HooksDir:      m.cfg.HooksDir,
		InitialPrompt: opts.InitialPrompt,
		Rows:          uint16(opts.Rows),
		SessionID:     id,
		SessionName:   opts.Name,
		WorkingDir:    opts.WorkingDir,
	}

	var cleanup []string
	if opts.Adapter.SupportsHooks() {
		var err error
		cleanup, err = opts.Adapter.SetupHooks(spawnCfg)
		if err != nil {
			return "", fmt.Errorf("failed to install hooks for session %q: %w", opts.Name, err)
		}
	}

	pty, err := Spawn(opts.Adapter.Command(), opts.Adapter.Args(spawnCfg),
		opts.WorkingDir, opts.Adapter.Env(spawnCfg), spawnCfg.Cols, spawnCfg.Rows)
	if err != nil {
		for _, path := range cleanup {
			os.Remove(path)
		}
		return "", fmt.Errorf("failed to spawn %s session %q: %w", opts.Adapter.Name(), opts.Name, err)
	}

	s := New(id, opts.Name, opts.Adapter.Kind(), opts.WorkingDir, pty,
		opts.Cols, opts.Rows, m.cfg.MaxOutputLines, m.cfg.ScrollbackLines)
	s.AdapterKey = opts.Adapter.Key()
	s.BranchID = opts.BranchID
	s.ProjectID = opts.ProjectID

	m.sessions[id] = s
	m.order = append(m.order, id)
	m.cleanupPaths[id] = cleanup

	logging.Logger.Info("Created session",
		"session_id", id, "name", opts.Name, "adapter", opts.Adapter.Key(),
		"working_dir", opts.WorkingDir)
	return id, nil
}

// CreateShellWithCommand creates a shell session and queues an initial
// command for execution once the shell is up
func (m *Manager) CreateShellWithCommand(opts CreateOptions, command string) (ID, error) {
	id, err := m.Create(opts)
	if err != nil {
		return "", err
	}
	if command != "" {
		if err := m.sessions[id].Write([]byte(command + "\n")); err != nil {
			logging.Logger.Warn("Failed to write initial command to shell session",
				"session_id", id, "command", command, "error", err)
		}
	}
	return id, nil
}

// Destroy kills a session's child and removes all its state
func (m *Manager) Destroy(id ID) error {
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	s.Close()
	m.removeSession(id)

	logging.Logger.Info("Destroyed session", "session_id", id, "name", s.Name)
	return nil
}

func (m *Manager) removeSession(id ID) {
	delete(m.sessions, id)
	for _, path := range m.cleanupPaths[id] {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Logger.Debug("Failed to remove session file", "path", path, "error", err)
		}
	}
	delete(m.cleanupPaths, id)

	order := m.order[:0]
	for _, oid := range m.order {
		if oid != id {
			order = append(order, oid)
		}
	}
	m.order = order

	if m.activeID == id {
		m.activeID = ""
	}
}

// Get returns a session by ID
func (m *Manager) Get(id ID) (*Session, bool) {
	s, ok := m.sessions[id]
	return s, ok
}

// ByIndex returns the session at a navigation index; checked retrieval,
// never panics
func (m *Manager) ByIndex(index int) (*Session, bool) {
	if index < 0 || index >= len(m.order) {
		return nil, false
	}
	s, ok := m.sessions[m.order[index]]
	return s, ok
}

// IndexOf returns the navigation index of a session, -1 when absent
func (m *Manager) IndexOf(id ID) int {
	for i, oid := range m.order {
		if oid == id {
			return i
		}
	}
	return -1
}

// Len returns the session count
func (m *Manager) Len() int {
	return len(m.sessions)
}

// InOrder returns all sessions in navigation order
func (m *Manager) InOrder() []*Session {
	out := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		if s, ok := m.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// SetActive records which session the UI shows fullscreen. The active
// session's attention flag is cleared and its notifications suppressed.
func (m *Manager) SetActive(id ID) {
	m.activeID = id
	if s, ok := m.sessions[id]; ok {
		s.NeedsAttention = false
	}
}

// ClearActive drops the active-session reference
func (m *Manager) ClearActive() {
	m.activeID = ""
}

// Active returns the UI's fullscreen session ID, "" when none
func (m *Manager) Active() ID {
	return m.activeID
}

// PollResult reports what Poll observed
type PollResult struct {
	// Crashed lists sessions that newly exited abnormally
	Crashed []*Session
	// HadOutput is true when any session produced output
	HadOutput bool
}

// Poll drains every session's PTY into its terminal and detects deaths.
// Dead sessions transition to Exited with a formatted reason and their
// attention flag cleared.
func (m *Manager) Poll() PollResult {
	var result PollResult

	for _, id := range m.order {
		s := m.sessions[id]
		if s.PollOutput() {
			result.HadOutput = true
		}

		if s.State == StateExited {
			continue
		}
		if info := s.Pty.ExitStatus(); info != nil {
			reason := info.FormatReason()
			if info.Success {
				logging.Logger.Debug("Session exited normally", "session_id", id, "name", s.Name)
				s.ExitReason = ""
			} else {
				logging.Logger.Warn("Session exited abnormally",
					"session_id", id, "name", s.Name,
					"exit_code", info.Code, "signal", info.Signal, "reason", reason)
				s.ExitReason = reason
				result.Crashed = append(result.Crashed, s)
			}
			s.SetState(StateExited)
			s.NeedsAttention = false
		}
	}

	return result
}

// ApplyHook drives the state machine with one callback event. Returns true
// when a notification should be emitted (session entered Waiting and is not
// the fullscreen view).
func (m *Manager) ApplyHook(event hooks.Event) bool {
	s, ok := m.sessions[event.SessionID]
	if !ok {
		logging.Logger.Debug("Hook event for unknown session", "session_id", event.SessionID)
		return false
	}
	if s.State == StateExited {
		return false
	}

	oldState := s.State

	switch event.Kind() {
	case hooks.KindUserPromptSubmit:
		s.SetState(StateThinking)
		s.NeedsAttention = false
	case hooks.KindPreToolUse:
		s.SetState(StateExecuting)
		s.CurrentTool = event.Tool
	case hooks.KindPostToolUse:
		if s.State == StateExecuting {
			s.SetState(StateThinking)
		} else {
			s.LastActivityAt = time.Now()
		}
	case hooks.KindStop, hooks.KindSubagentStop:
		s.SetState(StateWaiting)
		if s.ID != m.activeID {
			s.NeedsAttention = true
		}
	case hooks.KindNotification:
		s.NeedsAttention = true
		s.LastActivityAt = time.Now()
	case hooks.KindUnknown:
		logging.Logger.Debug("Ignoring unknown hook event",
			"session_id", event.SessionID, "event", event.EventName)
		s.LastActivityAt = time.Now()
		return false
	}

	// Notify exactly once per Waiting entry, suppressed for the viewed session
	entered := s.State == StateWaiting && oldState != StateWaiting
	return entered && s.ID != m.activeID
}

// ApplyHooks applies a batch of queued events in arrival order, emitting at
// most one notification per session per batch
func (m *Manager) ApplyHooks(events []hooks.Event) {
	notified := make(map[ID]bool)
	for _, event := range CoalesceEvents(events) {
		if m.ApplyHook(event) && !notified[event.SessionID] {
			notified[event.SessionID] = true
			if s, ok := m.sessions[event.SessionID]; ok {
				Notify(m.cfg.NotificationMethod, s.Name)
			}
		}
	}
}

// CoalesceEvents collapses immediately repeated same-session, same-kind
// events to their last occurrence. The net per-session state after applying
// the coalesced batch equals applying the original batch one by one.
func CoalesceEvents(events []hooks.Event) []hooks.Event {
	if len(events) < 2 {
		return events
	}
	out := make([]hooks.Event, 0, len(events))
	for i, e := range events {
		if i+1 < len(events) {
			next := events[i+1]
			if next.SessionID == e.SessionID && next.Kind() == e.Kind() {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// CheckShellStates polls foreground-process detection for shell sessions.
// Returns sessions that finished a command (Running → Ready) and need a
// notification.
func (m *Manager) CheckShellStates() []*Session {
	var finished []*Session

	for _, id := range m.order {
		s := m.sessions[id]
		if s.Kind != KindShell || s.State == StateExited {
			continue
		}

		busy := s.Pty.ForegroundBusy()
		switch {
		case busy && s.State != StateExecuting:
			s.SetState(StateExecuting)
			s.CurrentTool = s.Pty.ForegroundCommand()
		case !busy && s.State == StateExecuting:
			s.SetState(StateWaiting)
			if s.ID != m.activeID {
				s.NeedsAttention = true
				finished = append(finished, s)
			}
		}
	}

	return finished
}

// TickTimeouts applies the time-based policies:
//   - Executing past state_timeout falls to Idle (protects against a lost
//     PostToolUse)
//   - Exited sessions past the retention window are reaped
//
// Returns the IDs of reaped sessions so selection indexes can clamp.
func (m *Manager) TickTimeouts(now time.Time) []ID {
	var reaped []ID

	for _, id := range m.order {
		s := m.sessions[id]
		switch s.State {
		case StateExecuting:
			if now.Sub(s.LastActivityAt) > m.cfg.StateTimeout {
				logging.Logger.Warn("Session stuck in Executing, transitioning to Idle",
					"session_id", id, "name", s.Name,
					"elapsed", now.Sub(s.LastActivityAt).Round(time.Second))
				s.SetState(StateIdle)
			}
		case StateExited:
			if !s.ExitedAt.IsZero() && now.Sub(s.ExitedAt) > m.cfg.ExitedRetention {
				reaped = append(reaped, id)
			}
		}
	}

	for _, id := range reaped {
		s := m.sessions[id]
		s.Close()
		m.removeSession(id)
		logging.Logger.Debug("Reaped exited session", "session_id", id, "name", s.Name)
	}

	return reaped
}

// AttentionStale reports whether a Waiting session's attention badge has
// escalated from fresh to stale
func (m *Manager) AttentionStale(s *Session, now time.Time) bool {
	return s.State == StateWaiting && !s.WaitingSince.IsZero() &&
		now.Sub(s.WaitingSince) > m.cfg.IdleThreshold
}

// NeedsAttention reports whether a session should be badged
func (m *Manager) NeedsAttention(s *Session) bool {
	switch s.State {
	case StateWaiting:
		return s.NeedsAttention
	case StateIdle:
		return true
	default:
		return false
	}
}

// AttentionCount returns the number of sessions currently badged
func (m *Manager) AttentionCount() int {
	count := 0
	for _, s := range m.sessions {
		if m.NeedsAttention(s) {
			count++
		}
	}
	return count
}

// ForProject returns sessions attached to a project
func (m *Manager) ForProject(projectID string) []*Session {
	var out []*Session
	for _, s := range m.InOrder() {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out
}

// ForBranch returns sessions attached to a branch
func (m *Manager) ForBranch(branchID string) []*Session {
	var out []*Session
	for _, s := range m.InOrder() {
		if s.BranchID == branchID {
			out = append(out, s)
		}
	}
	return out
}

// ResizeAll adjusts every session to the new terminal dimensions
func (m *Manager) ResizeAll(cols, rows int) {
	for _, s := range m.sessions {
		if err := s.Resize(cols, rows); err != nil {
			logging.Logger.Warn("Failed to resize session", "session_id", s.ID, "error", err)
		}
	}
}

// ShutdownAll kills every session in parallel, bounded so the process exits
// even when a child refuses to die
func (m *Manager) ShutdownAll() {
	logging.Logger.Info("Shutting down sessions", "count", len(m.sessions))

	var g errgroup.Group
	for _, s := range m.sessions {
		g.Go(func() error {
			if s.IsAlive() {
				if err := s.Kill(); err != nil {
					logging.Logger.Warn("Failed to kill session", "session_id", s.ID, "error", err)
				}
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownBound):
		logging.Logger.Warn("Session shutdown exceeded bound, exiting anyway")
	}

	for _, id := range append([]ID(nil), m.order...) {
		m.removeSession(id)
	}
}

// Notify emits a notification using the configured method: "bell" rings the
// terminal bell, "title" updates the terminal title, "none" stays quiet
func Notify(method, sessionName string) {
	switch method {
	case "title":
		fmt.Fprintf(os.Stderr, "\x1b]0;[!] %s needs attention\x07", sessionName)
	case "none":
	default:
		fmt.Fprint(os.Stderr, "\a")
	}
}

// ResetTerminalTitle restores the default title after "title" notifications
func ResetTerminalTitle() {
	fmt.Fprint(os.Stderr, "\x1b]0;argos\x07")
}
