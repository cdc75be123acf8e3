package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap contains the normal-mode keyboard shortcuts organized by context
type KeyMap struct {
	Application ApplicationKeys
	Navigation  NavigationKeys
	Actions     ActionKeys
}

// ApplicationKeys defines key bindings for application-level actions
type ApplicationKeys struct {
	ForceQuit key.Binding
	Logs      key.Binding
	Quit      key.Binding
	Timeline  key.Binding
}

// NavigationKeys defines key bindings for moving through lists and views
type NavigationKeys struct {
	Back  key.Binding
	Down  key.Binding
	Enter key.Binding
	Up    key.Binding
}

// ActionKeys defines key bindings for object actions
type ActionKeys struct {
	AddProject    key.Binding
	Delete        key.Binding
	FocusTimer    key.Binding
	NewSession    key.Binding
	NewShell      key.Binding
	NewWorktree   key.Binding
	Refresh       key.Binding
	RenameProject key.Binding
}

// NewKeyMap creates a new KeyMap with all key bindings initialized
func NewKeyMap() KeyMap {
	return KeyMap{
		Application: ApplicationKeys{
			ForceQuit: key.NewBinding(
				key.WithKeys("ctrl+c"),
				key.WithHelp("ctrl+c", "quit"),
			),
			Logs: key.NewBinding(
				key.WithKeys("L"),
				key.WithHelp("L", "logs"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q"),
				key.WithHelp("q", "quit"),
			),
			Timeline: key.NewBinding(
				key.WithKeys("t"),
				key.WithHelp("t", "timeline"),
			),
		},
		Navigation: NavigationKeys{
			Back: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "back"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "down"),
			),
			Enter: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "open"),
			),
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "up"),
			),
		},
		Actions: ActionKeys{
			AddProject: key.NewBinding(
				key.WithKeys("a"),
				key.WithHelp("a", "add project"),
			),
			Delete: key.NewBinding(
				key.WithKeys("d"),
				key.WithHelp("d", "delete"),
			),
			FocusTimer: key.NewBinding(
				key.WithKeys("f"),
				key.WithHelp("f", "focus timer"),
			),
			NewSession: key.NewBinding(
				key.WithKeys("n"),
				key.WithHelp("n", "new session"),
			),
			NewShell: key.NewBinding(
				key.WithKeys("s"),
				key.WithHelp("s", "new shell"),
			),
			NewWorktree: key.NewBinding(
				key.WithKeys("w"),
				key.WithHelp("w", "new worktree"),
			),
			Refresh: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "refresh"),
			),
			RenameProject: key.NewBinding(
				key.WithKeys("R"),
				key.WithHelp("R", "rename"),
			),
		},
	}
}
