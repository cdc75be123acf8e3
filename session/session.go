package session

import (
	"io"
	"time"

	"argos/logging"

	"github.com/google/uuid"
)

// ID uniquely identifies a session. It is opaque to external collaborators:
// callback scripts carry it verbatim and never parse it.
type ID = string

// NewID generates a collision-free session identifier
func NewID() ID {
	return uuid.New().String()
}

// Kind determines how a session's state is tracked
type Kind string

const (
	// KindAgent sessions report lifecycle via hook callbacks
	KindAgent Kind = "agent"
	// KindShell sessions are tracked via foreground-process detection
	KindShell Kind = "shell"
)

// State of a session
type State string

const (
	// StateStarting means spawned, no output yet
	StateStarting State = "starting"
	// StateThinking means the agent is doing internal work
	StateThinking State = "thinking"
	// StateExecuting means the agent is invoking an external tool
	StateExecuting State = "executing"
	// StateWaiting means the agent has yielded and awaits user input
	StateWaiting State = "waiting"
	// StateIdle means a bounded period elapsed with no further activity;
	// user attention is recommended
	StateIdle State = "idle"
	// StateExited is terminal
	StateExited State = "exited"
)

// IsActive reports whether the session is doing work
func (s State) IsActive() bool {
	return s == StateStarting || s == StateThinking || s == StateExecuting
}

// DisplayName returns the state name for UI badges. Shell sessions use a
// reduced alphabet derived from foreground detection.
func (s State) DisplayName(kind Kind) string {
	if kind == KindShell {
		switch s {
		case StateExecuting:
			return "Running"
		case StateWaiting, StateStarting, StateThinking, StateIdle:
			return "Ready"
		case StateExited:
			return "Exited"
		}
	}
	switch s {
	case StateStarting:
		return "Starting"
	case StateThinking:
		return "Thinking"
	case StateExecuting:
		return "Executing"
	case StateWaiting:
		return "Waiting"
	case StateIdle:
		return "Idle"
	case StateExited:
		return "Exited"
	}
	return string(s)
}

// Session exclusively owns one PTY and its virtual terminal. Destroying the
// session kills the child and releases both.
type Session struct {
	AdapterKey     string
	Buffer         *OutputBuffer
	BranchID       string
	CreatedAt      time.Time
	CurrentTool    string
	ExitReason     string
	ExitedAt       time.Time
	ID             ID
	Kind           Kind
	LastActivityAt time.Time
	Name           string
	NeedsAttention bool
	ProjectID      string
	Pty            *PtyHandle
	State          State
	StateEnteredAt time.Time
	VTerm          *VirtualTerminal
	WaitingSince   time.Time
	WorkingDir     string
}

// New assembles a session around a freshly spawned PTY
func New(id ID, name string, kind Kind, workingDir string, pty *PtyHandle, cols, rows, maxOutputLines, scrollbackLines int) *Session {
	now := time.Now()
	return &Session{
		Buffer:         NewOutputBuffer(maxOutputLines),
		CreatedAt:      now,
		ID:             id,
		Kind:           kind,
		LastActivityAt: now,
		Name:           name,
		Pty:            pty,
		State:          StateStarting,
		StateEnteredAt: now,
		VTerm:          NewVirtualTerminal(cols, rows, scrollbackLines, pty.ReplyWriter()),
		WorkingDir:     workingDir,
	}
}

// SetState transitions the session, stamping the bookkeeping timestamps.
// waiting_since is set exactly on entering Waiting and cleared on leaving;
// exited_at is recorded once and Exited is terminal.
func (s *Session) SetState(state State) {
	if s.State == StateExited {
		return
	}

	now := time.Now()
	if state == StateWaiting && s.State != StateWaiting {
		s.WaitingSince = now
	}
	if state != StateWaiting {
		s.WaitingSince = time.Time{}
	}
	if state == StateExited && s.ExitedAt.IsZero() {
		s.ExitedAt = now
	}
	if state != StateExecuting {
		s.CurrentTool = ""
	}

	s.State = state
	s.StateEnteredAt = now
	s.LastActivityAt = now
}

// PollOutput drains available PTY output through the buffer into the VT.
// Returns true when any output was consumed. A closed stream is quietly
// ignored here; death is detected by the manager via the exit status.
func (s *Session) PollOutput() bool {
	had := false
	for {
		chunk, err := s.Pty.TryRead()
		if err == io.EOF || chunk == nil {
			break
		}
		had = true
		s.Buffer.Append(chunk)
	}

	if !had {
		return false
	}

	for _, chunk := range s.Buffer.TakeUnread() {
		s.VTerm.Feed(chunk)
	}
	s.LastActivityAt = time.Now()

	// First output means the child is up and ready for input
	if s.State == StateStarting {
		s.SetState(StateWaiting)
	}
	return true
}

// Write queues raw bytes for the PTY
func (s *Session) Write(data []byte) error {
	return s.Pty.Write(data)
}

// WritePaste queues pasted text, bracketed
func (s *Session) WritePaste(text string) error {
	return s.Pty.WritePaste(text)
}

// IsAlive reports whether the child is still running
func (s *Session) IsAlive() bool {
	return s.Pty.IsAlive()
}

// Kill terminates the child process
func (s *Session) Kill() error {
	return s.Pty.Kill()
}

// Resize adjusts both the PTY and the virtual terminal
func (s *Session) Resize(cols, rows int) error {
	if err := s.Pty.Resize(uint16(cols), uint16(rows)); err != nil {
		return err
	}
	s.VTerm.Resize(cols, rows)
	return nil
}

// Close releases the session's resources, killing the child if needed
func (s *Session) Close() {
	if s.IsAlive() {
		if err := s.Kill(); err != nil {
			logging.Logger.Warn("Failed to kill session child", "session_id", s.ID, "error", err)
		}
	}
	s.VTerm.Close()
}
