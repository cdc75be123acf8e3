package ui

import (
	"time"

	"argos/logging"
	"argos/session"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleNormalKey routes normal-mode commands per view
func (m *Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Application-level keys work on every view
	switch {
	case key.Matches(msg, m.keys.Application.Quit):
		m.startConfirm(confirmQuit, "Quit argos? Running sessions will be killed.")
		return m, nil
	case key.Matches(msg, m.keys.Application.Timeline):
		if m.view.Kind != ViewActivityTimeline {
			m.view = View{Kind: ViewActivityTimeline}
		}
		return m, nil
	case key.Matches(msg, m.keys.Application.Logs):
		if m.view.Kind != ViewLogs {
			m.view = View{Kind: ViewLogs}
			m.logScroll = 0
		}
		return m, nil
	case key.Matches(msg, m.keys.Actions.FocusTimer):
		m.toggleFocusTimer()
		return m, nil
	}

	switch m.view.Kind {
	case ViewProjectsOverview:
		return m.handleProjectsOverviewKey(msg)
	case ViewProjectDetail:
		return m.handleProjectDetailKey(msg)
	case ViewBranchDetail:
		return m.handleBranchDetailKey(msg)
	case ViewActivityTimeline:
		return m.handleTimelineKey(msg)
	case ViewSession:
		// Normally session view runs in Session mode; after a consistency
		// reset, Esc still gets the user out
		if key.Matches(msg, m.keys.Navigation.Back) {
			m.leaveSessionView()
		}
		return m, nil
	case ViewLogs, ViewFocusStats:
		if key.Matches(msg, m.keys.Navigation.Back) {
			m.view = View{Kind: ViewProjectsOverview}
		}
		if m.view.Kind == ViewLogs {
			switch {
			case key.Matches(msg, m.keys.Navigation.Up):
				m.logScroll++
			case key.Matches(msg, m.keys.Navigation.Down):
				m.logScroll = clamp(m.logScroll-1, 0, 1<<30)
			}
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleProjectsOverviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	projects := m.store.ProjectsSorted()

	switch {
	case key.Matches(msg, m.keys.Navigation.Up):
		m.projectIndex = clamp(m.projectIndex-1, 0, len(projects)-1)
	case key.Matches(msg, m.keys.Navigation.Down):
		m.projectIndex = clamp(m.projectIndex+1, 0, len(projects)-1)
	case key.Matches(msg, m.keys.Navigation.Enter):
		if p, ok := at(projects, m.projectIndex); ok {
			m.view = View{Kind: ViewProjectDetail, ProjectID: p.ID}
			m.branchIndex = 0
		}
	case key.Matches(msg, m.keys.Actions.AddProject):
		m.startTextInput(textPurposeProjectPath, "Repository path", "")
	case key.Matches(msg, m.keys.Actions.RenameProject):
		if p, ok := at(projects, m.projectIndex); ok {
			m.renameProjectID = p.ID
			m.startTextInput(textPurposeRenameProject, "New project name", p.Name)
		}
	case key.Matches(msg, m.keys.Actions.Delete):
		if p, ok := at(projects, m.projectIndex); ok {
			m.confirm.projectID = p.ID
			m.startConfirm(confirmDeleteProject, "Delete project "+p.Name+" and all its branch records?")
		}
	case msg.String() == "F":
		m.view = View{Kind: ViewFocusStats}
	}
	return m, nil
}

func (m *Model) handleProjectDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	branches := m.store.BranchesForProject(m.view.ProjectID)

	switch {
	case key.Matches(msg, m.keys.Navigation.Back):
		if parent, ok := m.view.Parent(); ok {
			m.view = parent
		}
	case key.Matches(msg, m.keys.Navigation.Up):
		m.branchIndex = clamp(m.branchIndex-1, 0, len(branches)-1)
	case key.Matches(msg, m.keys.Navigation.Down):
		m.branchIndex = clamp(m.branchIndex+1, 0, len(branches)-1)
	case key.Matches(msg, m.keys.Navigation.Enter):
		if b, ok := at(branches, m.branchIndex); ok {
			if b.Missing {
				m.notifications.Push("Branch working directory is missing; refresh or recreate the worktree")
				return m, nil
			}
			m.view = View{Kind: ViewBranchDetail, ProjectID: m.view.ProjectID, BranchID: b.ID}
			m.sessionIndex = 0
		}
	case key.Matches(msg, m.keys.Actions.NewWorktree):
		m.startWorktreeWizard()
	case key.Matches(msg, m.keys.Actions.Refresh):
		if changed, err := m.store.Refresh(m.view.ProjectID); err != nil {
			m.notifications.Push("Refresh failed: " + err.Error())
		} else if changed > 0 {
			m.notifications.Push("Refreshed branch records")
		}
	case key.Matches(msg, m.keys.Actions.Delete):
		if b, ok := at(branches, m.branchIndex); ok {
			if b.IsDefault {
				m.notifications.Push("The primary checkout cannot be deleted")
				return m, nil
			}
			m.confirm.branchID = b.ID
			m.confirm.alsoDeleteWorktree = b.IsWorktree
			m.startConfirm(confirmDeleteBranch, "Delete branch "+b.Name+" and its worktree?")
		}
	}
	return m, nil
}

func (m *Model) handleBranchDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.manager.ForBranch(m.view.BranchID)

	switch {
	case key.Matches(msg, m.keys.Navigation.Back):
		if parent, ok := m.view.Parent(); ok {
			m.view = parent
		}
	case key.Matches(msg, m.keys.Navigation.Up):
		m.sessionIndex = clamp(m.sessionIndex-1, 0, len(sessions)-1)
	case key.Matches(msg, m.keys.Navigation.Down):
		m.sessionIndex = clamp(m.sessionIndex+1, 0, len(sessions)-1)
	case key.Matches(msg, m.keys.Navigation.Enter):
		if s, ok := at(sessions, m.sessionIndex); ok {
			m.openSession(s.ID)
		}
	case key.Matches(msg, m.keys.Actions.NewSession):
		m.creatingShell = false
		m.startTextInput(textPurposeSessionName, "Session name", "")
	case key.Matches(msg, m.keys.Actions.NewShell):
		m.creatingShell = true
		m.startTextInput(textPurposeSessionName, "Shell session name", "")
	case key.Matches(msg, m.keys.Actions.Delete):
		if s, ok := at(sessions, m.sessionIndex); ok {
			m.confirm.sessionID = s.ID
			m.startConfirm(confirmDeleteSession, "Kill session "+s.Name+"?")
		}
	}
	return m, nil
}

func (m *Model) handleTimelineKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.timelineSessions()

	switch {
	case key.Matches(msg, m.keys.Navigation.Back):
		m.view = View{Kind: ViewProjectsOverview}
	case key.Matches(msg, m.keys.Navigation.Up):
		m.timelineIndex = clamp(m.timelineIndex-1, 0, len(sessions)-1)
	case key.Matches(msg, m.keys.Navigation.Down):
		m.timelineIndex = clamp(m.timelineIndex+1, 0, len(sessions)-1)
	case key.Matches(msg, m.keys.Navigation.Enter):
		if s, ok := at(sessions, m.timelineIndex); ok {
			m.openSession(s.ID)
		}
	}
	return m, nil
}

// timelineSessions returns all sessions ordered by most recent activity
func (m *Model) timelineSessions() []*session.Session {
	sessions := m.manager.InOrder()
	// Insertion sort keeps this simple; session counts are small
	for i := 1; i < len(sessions); i++ {
		for j := i; j > 0 && sessions[j].LastActivityAt.After(sessions[j-1].LastActivityAt); j-- {
			sessions[j], sessions[j-1] = sessions[j-1], sessions[j]
		}
	}
	return sessions
}

// toggleFocusTimer stops a running timer or prompts for a duration
func (m *Model) toggleFocusTimer() {
	if m.focusTimer.Running() {
		if elapsed := m.focusTimer.Stop(); elapsed != nil && m.focusStore != nil {
			if err := m.focusStore.Record(*elapsed); err != nil {
				logging.Logger.Warn("Failed to record focus interval", "error", err)
			}
		}
		m.notifications.Push("Focus timer stopped")
		return
	}
	m.startTextInput(textPurposeFocusDuration, "Focus duration (minutes)", "25")
}

// startFocusTimer begins a focus interval of n minutes
func (m *Model) startFocusTimer(minutes int) {
	m.focusTimer.Start(time.Duration(minutes) * time.Minute)
	m.notifications.Push("Focus timer started")
}

// at is checked slice retrieval
func at[T any](list []T, index int) (T, bool) {
	var zero T
	if index < 0 || index >= len(list) {
		return zero, false
	}
	return list[index], true
}
