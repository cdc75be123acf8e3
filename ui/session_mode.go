package ui

import (
	"errors"
	"fmt"

	"argos/session"

	tea "github.com/charmbracelet/bubbletea"
)

// handleSessionKey forwards keystrokes to the active session's PTY.
// Ctrl+q detaches; PgUp/PgDn move through scrollback locally.
func (m *Model) handleSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s, ok := m.manager.Get(m.activeSession)
	if !ok {
		m.leaveSessionView()
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlQ:
		m.leaveSessionView()
		return m, nil
	case tea.KeyPgUp:
		m.sessionScroll = clamp(m.sessionScroll+5, 0, s.VTerm.ScrollbackLen())
		return m, nil
	case tea.KeyPgDown:
		m.sessionScroll = clamp(m.sessionScroll-5, 0, 1<<30)
		return m, nil
	}

	// Any real key snaps back to the live view
	m.sessionScroll = 0

	if msg.Paste {
		m.forwardPaste(s, string(msg.Runes))
		return m, nil
	}

	// The user answering a Waiting prompt means the agent starts processing
	if msg.Type == tea.KeyEnter && s.State == session.StateWaiting && s.Kind == session.KindAgent {
		s.SetState(session.StateThinking)
	}

	if bytes := keyToBytes(msg); len(bytes) > 0 {
		if err := s.Write(bytes); err != nil {
			m.notifications.Push("Could not write to session: " + err.Error())
		}
	}
	return m, nil
}

// forwardPaste sends pasted text through the bracketed-paste path, rejecting
// pastes the write queue cannot absorb
func (m *Model) forwardPaste(s *session.Session, text string) {
	if err := s.WritePaste(text); err != nil {
		if errors.Is(err, session.ErrWriteQueueFull) {
			m.notifications.Push("Paste rejected: too large for the session's input queue")
			return
		}
		m.notifications.Push("Paste failed: " + err.Error())
	}
}

// keyToBytes converts a key event to the terminal escape sequence the child
// expects
func keyToBytes(msg tea.KeyMsg) []byte {
	switch msg.Type {
	case tea.KeyRunes:
		bytes := []byte(string(msg.Runes))
		if msg.Alt {
			return append([]byte{0x1b}, bytes...)
		}
		return bytes
	case tea.KeySpace:
		if msg.Alt {
			return []byte{0x1b, ' '}
		}
		return []byte{' '}
	case tea.KeyEnter:
		return []byte{'\r'}
	case tea.KeyTab:
		return []byte{'\t'}
	case tea.KeyShiftTab:
		return []byte{0x1b, '[', 'Z'}
	case tea.KeyBackspace:
		return []byte{0x7f}
	case tea.KeyEsc:
		return []byte{0x1b}
	case tea.KeyUp:
		return []byte{0x1b, '[', 'A'}
	case tea.KeyDown:
		return []byte{0x1b, '[', 'B'}
	case tea.KeyRight:
		return []byte{0x1b, '[', 'C'}
	case tea.KeyLeft:
		return []byte{0x1b, '[', 'D'}
	case tea.KeyHome:
		return []byte{0x1b, '[', 'H'}
	case tea.KeyEnd:
		return []byte{0x1b, '[', 'F'}
	case tea.KeyInsert:
		return []byte{0x1b, '[', '2', '~'}
	case tea.KeyDelete:
		return []byte{0x1b, '[', '3', '~'}
	case tea.KeyPgUp:
		return []byte{0x1b, '[', '5', '~'}
	case tea.KeyPgDown:
		return []byte{0x1b, '[', '6', '~'}
	case tea.KeyF1:
		return []byte{0x1b, 'O', 'P'}
	case tea.KeyF2:
		return []byte{0x1b, 'O', 'Q'}
	case tea.KeyF3:
		return []byte{0x1b, 'O', 'R'}
	case tea.KeyF4:
		return []byte{0x1b, 'O', 'S'}
	case tea.KeyF5:
		return []byte{0x1b, '[', '1', '5', '~'}
	case tea.KeyF6:
		return []byte{0x1b, '[', '1', '7', '~'}
	case tea.KeyF7:
		return []byte{0x1b, '[', '1', '8', '~'}
	case tea.KeyF8:
		return []byte{0x1b, '[', '1', '9', '~'}
	case tea.KeyF9:
		return []byte{0x1b, '[', '2', '0', '~'}
	case tea.KeyF10:
		return []byte{0x1b, '[', '2', '1', '~'}
	case tea.KeyF11:
		return []byte{0x1b, '[', '2', '3', '~'}
	case tea.KeyF12:
		return []byte{0x1b, '[', '2', '4', '~'}
	}

	// Control characters map to their ASCII codes (ctrl+a..ctrl+z and
	// friends); bubbletea uses those codes as the key type
	if t := int(msg.Type); t >= 0 && t <= 31 {
		return []byte{byte(t)}
	}
	return nil
}

// forwardMouse translates a mouse event into an SGR sequence for the child.
// The session's content area starts below the single header row.
func (m *Model) forwardMouse(msg tea.MouseMsg) {
	s, ok := m.manager.Get(m.activeSession)
	if !ok {
		return
	}

	row := msg.Y - 1
	col := msg.X
	if row < 0 || col < 0 {
		return
	}

	var button int
	switch msg.Button {
	case tea.MouseButtonLeft:
		button = 0
	case tea.MouseButtonMiddle:
		button = 1
	case tea.MouseButtonRight:
		button = 2
	case tea.MouseButtonWheelUp:
		button = 64
	case tea.MouseButtonWheelDown:
		button = 65
	case tea.MouseButtonNone:
		if msg.Action != tea.MouseActionMotion {
			return
		}
		button = 35
	default:
		return
	}

	if msg.Action == tea.MouseActionMotion && msg.Button != tea.MouseButtonNone {
		button += 32
	}
	if msg.Shift {
		button += 4
	}
	if msg.Alt {
		button += 8
	}
	if msg.Ctrl {
		button += 16
	}

	suffix := "M"
	if msg.Action == tea.MouseActionRelease {
		suffix = "m"
	}

	seq := fmt.Sprintf("\x1b[<%d;%d;%d%s", button, col+1, row+1, suffix)
	if err := s.Write([]byte(seq)); err != nil {
		// Mouse noise is not worth surfacing; the write queue guards itself
		return
	}
}
