package ui

import (
	"errors"

	"argos/project"
	"argos/session"
	"argos/worktree"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmKind identifies what a confirmation dialog decides
type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmQuit
	confirmDeleteProject
	confirmDeleteBranch
	confirmDeleteSession
)

// confirmState is the transient confirmation dialog
type confirmState struct {
	alsoDeleteWorktree bool
	branchID           project.BranchID
	kind               confirmKind
	message            string
	projectID          project.ProjectID
	selectedYes        bool
	sessionID          session.ID
}

// startConfirm opens a confirmation dialog. Context IDs are filled by the
// caller before invoking this.
func (m *Model) startConfirm(kind confirmKind, message string) {
	m.confirm.kind = kind
	m.confirm.message = message
	m.confirm.selectedYes = false
	m.mode = ModeConfirm
}

func (m *Model) closeConfirm() {
	m.confirm = confirmState{}
	m.mode = ModeNormal
}

// handleConfirmKey routes keys inside a confirmation dialog
func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n", "N":
		m.closeConfirm()
	case "left", "right", "tab", "h", "l":
		m.confirm.selectedYes = !m.confirm.selectedYes
	case "y", "Y":
		return m.executeConfirmed()
	case "enter":
		if m.confirm.selectedYes {
			return m.executeConfirmed()
		}
		m.closeConfirm()
	}
	return m, nil
}

// executeConfirmed performs the confirmed action
func (m *Model) executeConfirmed() (tea.Model, tea.Cmd) {
	state := m.confirm
	m.closeConfirm()

	switch state.kind {
	case confirmQuit:
		m.shutdown()
		return m, tea.Quit

	case confirmDeleteProject:
		// Destroy sessions attached to the project first; they own PTYs
		for _, s := range m.manager.ForProject(state.projectID) {
			if err := m.manager.Destroy(s.ID); err != nil {
				m.notifications.Push("Could not kill session " + s.Name + ": " + err.Error())
			}
		}
		if err := m.store.RemoveProject(state.projectID); err != nil {
			m.notifications.Push("Could not delete project: " + err.Error())
		}

	case confirmDeleteBranch:
		m.deleteBranch(state)

	case confirmDeleteSession:
		wasActive := state.sessionID == m.activeSession
		if err := m.manager.Destroy(state.sessionID); err != nil {
			m.notifications.Push("Could not kill session: " + err.Error())
			return m, nil
		}
		if wasActive {
			m.leaveSessionView()
		}
	}
	return m, nil
}

// deleteBranch removes a branch record and, for worktree branches, the
// checkout on disk. The controller's safety fence is final: a refusal is
// surfaced and nothing is deleted.
func (m *Model) deleteBranch(state confirmState) {
	branch, ok := m.store.GetBranch(state.branchID)
	if !ok {
		return
	}
	proj, ok := m.store.GetProject(branch.ProjectID)
	if !ok {
		return
	}

	for _, s := range m.manager.ForBranch(branch.ID) {
		if err := m.manager.Destroy(s.ID); err != nil {
			m.notifications.Push("Could not kill session " + s.Name + ": " + err.Error())
		}
	}

	if branch.IsWorktree && !branch.Missing {
		err := m.controller.DeleteWorktree(proj.RepoPath, branch.WorkingDir, branch.Name, state.alsoDeleteWorktree)
		if err != nil {
			if errors.Is(err, worktree.ErrOutsideRoot) {
				m.notifications.Push("Refused: " + err.Error())
				return
			}
			m.notifications.Push("Could not delete worktree: " + err.Error())
			return
		}
	}

	if err := m.store.RemoveBranch(branch.ID); err != nil {
		m.notifications.Push("Could not delete branch record: " + err.Error())
	}
}
