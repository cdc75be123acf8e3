package ui

import (
	"time"

	"argos/config"
	"argos/focus"
	"argos/hooks"
	"argos/logging"
	"argos/project"
	"argos/session"
	"argos/worktree"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// framePeriod is the cooperative loop's iteration period
const framePeriod = 16 * time.Millisecond

// maxHookEventsPerFrame bounds hook processing per frame so a burst cannot
// starve rendering
const maxHookEventsPerFrame = 256

// frameMsg drives one iteration of the app loop
type frameMsg time.Time

// ModelConfig wires the model's collaborators
type ModelConfig struct {
	Config     config.Config
	Controller *worktree.Controller
	FocusStore *focus.Store
	Listener   *hooks.Listener
	Manager    *session.Manager
	Store      *project.Store
	Watcher    *worktree.Watcher
}

// Model is the single-threaded application loop. All session state is
// mutated here; background tasks communicate through channels only.
type Model struct {
	cfg        config.Config
	controller *worktree.Controller
	focusStore *focus.Store
	focusTimer *focus.Timer
	keys       KeyMap
	listener   *hooks.Listener
	manager    *session.Manager
	store      *project.Store
	watcher    *worktree.Watcher

	mode       Mode
	returnView View
	view       View

	height int
	width  int

	// Selection indexes; all list access is checked and clamped
	branchIndex   int
	logScroll     int
	projectIndex  int
	sessionIndex  int
	timelineIndex int

	// Session view
	activeSession session.ID
	sessionScroll int

	// Text input state
	creatingShell       bool
	pathCompletionIndex int
	pathCompletions     []string
	pendingProjectPath  string
	renameProjectID     project.ProjectID
	textInput           textinput.Model
	textPurpose         textPurpose

	confirm confirmState
	wizard  wizardState

	listenerStatus hooks.Status
	notifications  notificationQueue

	quitting bool
}

// NewModel assembles the application model
func NewModel(mc ModelConfig) *Model {
	ti := textinput.New()
	ti.CharLimit = 0 // caps are applied per purpose

	m := &Model{
		cfg:        mc.Config,
		controller: mc.Controller,
		focusStore: mc.FocusStore,
		focusTimer: focus.NewTimer(),
		keys:       NewKeyMap(),
		listener:   mc.Listener,
		manager:    mc.Manager,
		store:      mc.Store,
		textInput:  ti,
		view:       View{Kind: ViewProjectsOverview},
		watcher:    mc.Watcher,
	}

	if mc.Store.CorruptBackup != "" {
		m.notifications.Push("projects.json was corrupt; backup saved as " + mc.Store.CorruptBackup)
	}
	return m
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return frameTick()
}

func frameTick() tea.Cmd {
	return tea.Tick(framePeriod, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.tickFrame(time.Time(msg))
		if m.quitting {
			return m, tea.Quit
		}
		return m, frameTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.manager.ResizeAll(msg.Width, m.sessionContentHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.mode == ModeSession {
			m.forwardMouse(msg)
		}
		return m, nil
	}

	return m, nil
}

// tickFrame is one iteration of the cooperative loop: drain inputs, pump
// PTYs, apply policies
func (m *Model) tickFrame(now time.Time) {
	// The dispatcher validates (mode, view) consistency every frame
	if !m.mode.validFor(m.view) {
		logging.Logger.Warn("Input mode inconsistent with view, resetting to normal",
			"mode", int(m.mode), "view", int(m.view.Kind))
		m.mode = ModeNormal
	}

	m.drainHookEvents()
	m.drainHealth()

	result := m.manager.Poll()
	for _, s := range result.Crashed {
		m.notifications.Push("Session " + s.Name + " crashed: " + s.ExitReason)
	}

	for _, s := range m.manager.CheckShellStates() {
		session.Notify(m.cfg.NotificationMethod, s.Name)
	}

	reaped := m.manager.TickTimeouts(now)
	for _, id := range reaped {
		if id == m.activeSession {
			m.leaveSessionView()
		}
	}

	m.drainWatcher()

	if elapsed := m.focusTimer.Tick(now); elapsed != nil {
		m.notifications.Push("Focus interval complete")
		session.Notify(m.cfg.NotificationMethod, "focus timer")
		if m.focusStore != nil {
			if err := m.focusStore.Record(*elapsed); err != nil {
				logging.Logger.Warn("Failed to record focus interval", "error", err)
				m.notifications.Push("Could not save focus interval")
			}
		}
	}

	m.notifications.Prune(now)
	m.clampSelections()
}

// drainHookEvents applies up to maxHookEventsPerFrame queued callbacks
func (m *Model) drainHookEvents() {
	if m.listener == nil {
		return
	}

	var batch []hooks.Event
	for len(batch) < maxHookEventsPerFrame {
		select {
		case event := <-m.listener.Events():
			batch = append(batch, event)
		default:
			goto done
		}
	}
done:
	if len(batch) > 0 {
		m.manager.ApplyHooks(batch)
	}
}

// drainHealth keeps the latest listener status for the header warning
func (m *Model) drainHealth() {
	if m.listener == nil {
		return
	}
	for {
		select {
		case status := <-m.listener.Health():
			m.listenerStatus = status
			if status.Kind == hooks.StatusStopped && status.Err != nil {
				m.notifications.Push("Hook listener stopped: " + status.Err.Error())
			}
		default:
			return
		}
	}
}

// drainWatcher marks branches whose managed worktree directory disappeared
func (m *Model) drainWatcher() {
	if m.watcher == nil {
		return
	}
	for {
		select {
		case path, ok := <-m.watcher.Removed():
			if !ok {
				m.watcher = nil
				return
			}
			if m.store.MarkBranchMissingByPath(path) {
				m.notifications.Push("Worktree disappeared: " + path)
			}
		default:
			return
		}
	}
}

// handleKey routes a keystroke by (view, mode)
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C starts an orderly shutdown in every mode except Session, where
	// it is forwarded to the child like any other key
	if msg.String() == "ctrl+c" && m.mode != ModeSession {
		m.shutdown()
		return m, tea.Quit
	}

	switch m.mode {
	case ModeNormal:
		return m.handleNormalKey(msg)
	case ModeSession:
		return m.handleSessionKey(msg)
	case ModeTextInput:
		return m.handleTextInputKey(msg)
	case ModeConfirm:
		return m.handleConfirmKey(msg)
	case ModeWizardSelectBranch, ModeWizardSelectBase, ModeWizardConfirm:
		return m.handleWizardKey(msg)
	}
	return m, nil
}

// shutdown stops accepting events, kills sessions in parallel, persists the
// store, and lets bubbletea restore the terminal
func (m *Model) shutdown() {
	if m.quitting {
		return
	}
	m.quitting = true

	logging.Logger.Info("Shutting down")
	if m.listener != nil {
		if err := m.listener.Stop(); err != nil {
			logging.Logger.Warn("Failed to stop hook listener", "error", err)
		}
	}
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			logging.Logger.Warn("Failed to close worktree watcher", "error", err)
		}
	}
	m.manager.ShutdownAll()
	if err := m.store.Save(); err != nil {
		logging.Logger.Warn("Failed to persist project store on shutdown", "error", err)
	}
	if m.cfg.NotificationMethod == config.NotifyTitle {
		session.ResetTerminalTitle()
	}
}

// sessionContentHeight is the session view's usable PTY height
func (m *Model) sessionContentHeight() int {
	h := m.height - 2 // header + status line
	if h < 1 {
		h = 24
	}
	return h
}

// openSession switches to the fullscreen session view
func (m *Model) openSession(id session.ID) {
	s, ok := m.manager.Get(id)
	if !ok {
		return
	}
	m.returnView = m.view
	m.view = View{Kind: ViewSession}
	m.mode = ModeSession
	m.activeSession = id
	m.sessionScroll = 0
	m.manager.SetActive(id)

	if m.width > 0 {
		if err := s.Resize(m.width, m.sessionContentHeight()); err != nil {
			logging.Logger.Warn("Failed to resize session on open", "session_id", id, "error", err)
		}
	}
}

// leaveSessionView returns to the view the session was opened from
func (m *Model) leaveSessionView() {
	m.view = m.returnView
	if m.view.Kind == ViewSession {
		m.view = View{Kind: ViewProjectsOverview}
	}
	m.mode = ModeNormal
	m.activeSession = ""
	m.sessionScroll = 0
	m.manager.ClearActive()
}

// clampSelections keeps every selection index inside its list. A list that
// shrinks under the cursor clamps; never a panic.
func (m *Model) clampSelections() {
	m.projectIndex = clamp(m.projectIndex, 0, m.store.ProjectCount()-1)

	branches := m.store.BranchesForProject(m.view.ProjectID)
	m.branchIndex = clamp(m.branchIndex, 0, len(branches)-1)

	sessions := m.manager.ForBranch(m.view.BranchID)
	m.sessionIndex = clamp(m.sessionIndex, 0, len(sessions)-1)

	m.timelineIndex = clamp(m.timelineIndex, 0, m.manager.Len()-1)

	m.wizard.clampIndexes()
	m.pathCompletionIndex = clamp(m.pathCompletionIndex, 0, len(m.pathCompletions)-1)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
