package ui

import (
	"fmt"
	"strings"
	"time"

	"argos/hooks"
	"argos/logging"
	"argos/session"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("1"))

	activeIconStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")) // Green - actively working

	idleIconStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")) // Yellow - idle

	waitingIconStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("1")) // Red - waiting for the user

	exitedIconStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - exited
)

// State symbols
const (
	symbolActive  = "●"
	symbolIdle    = "○"
	symbolWaiting = "◐"
)

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.view.Kind {
	case ViewProjectsOverview:
		b.WriteString(m.renderProjectsOverview())
	case ViewProjectDetail:
		b.WriteString(m.renderProjectDetail())
	case ViewBranchDetail:
		b.WriteString(m.renderBranchDetail())
	case ViewSession:
		b.WriteString(m.renderSessionView())
	case ViewActivityTimeline:
		b.WriteString(m.renderTimeline())
	case ViewLogs:
		b.WriteString(m.renderLogs())
	case ViewFocusStats:
		b.WriteString(m.renderFocusStats())
	}

	if overlay := m.renderOverlay(); overlay != "" {
		b.WriteString("\n")
		b.WriteString(overlay)
	}

	return b.String()
}

// renderHeader is the single status line on top of every view
func (m *Model) renderHeader() string {
	parts := []string{titleStyle.Render("argos")}

	if count := m.manager.AttentionCount(); count > 0 {
		parts = append(parts, waitingIconStyle.Render(fmt.Sprintf("%s %d need attention", symbolWaiting, count)))
	}
	if m.focusTimer.Running() {
		remaining := m.focusTimer.Remaining(time.Now()).Round(time.Second)
		parts = append(parts, dimStyle.Render("focus "+remaining.String()))
	}
	if m.listenerStatus.Kind == hooks.StatusStopped {
		parts = append(parts, warningStyle.Render("[!] hook listener down — session states frozen"))
	}
	if dropped := m.droppedEvents(); dropped > 0 {
		parts = append(parts, warningStyle.Render(fmt.Sprintf("[!] %d hook events dropped", dropped)))
	}
	if note := m.notifications.Current(); note != "" {
		parts = append(parts, normalStyle.Render(note))
	}

	return strings.Join(parts, dimStyle.Render("  |  "))
}

func (m *Model) droppedEvents() uint64 {
	if m.listener == nil {
		return 0
	}
	return m.listener.DroppedEvents()
}

func (m *Model) renderProjectsOverview() string {
	projects := m.store.ProjectsSorted()
	if len(projects) == 0 {
		return dimStyle.Render("No projects yet. Press 'a' to add a repository.") + "\n" +
			m.renderHelp("a add · t timeline · L logs · F focus stats · q quit")
	}

	var b strings.Builder
	for i, p := range projects {
		line := fmt.Sprintf("%s  %s", p.Name, dimStyle.Render(p.RepoPath))
		if count := len(m.manager.ForProject(p.ID)); count > 0 {
			line += dimStyle.Render(fmt.Sprintf("  (%d sessions)", count))
		}
		b.WriteString(m.listLine(line, i == m.projectIndex))
	}
	b.WriteString(m.renderHelp("enter open · a add · R rename · d delete · t timeline · q quit"))
	return b.String()
}

func (m *Model) renderProjectDetail() string {
	proj, ok := m.store.GetProject(m.view.ProjectID)
	if !ok {
		return dimStyle.Render("Project no longer exists")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(proj.Name) + "\n\n")

	branches := m.store.BranchesForProject(proj.ID)
	for i, branch := range branches {
		line := branch.Name
		if branch.IsDefault {
			line += dimStyle.Render("  (primary)")
		}
		if branch.IsWorktree {
			line += dimStyle.Render("  worktree")
		}
		if branch.Missing {
			line += warningStyle.Render("  missing")
		}
		if count := len(m.manager.ForBranch(branch.ID)); count > 0 {
			line += dimStyle.Render(fmt.Sprintf("  (%d sessions)", count))
		}
		b.WriteString(m.listLine(line, i == m.branchIndex))
	}

	b.WriteString(m.renderHelp("enter open · w new worktree · r refresh · d delete · esc back"))
	return b.String()
}

func (m *Model) renderBranchDetail() string {
	branch, ok := m.store.GetBranch(m.view.BranchID)
	if !ok {
		return dimStyle.Render("Branch no longer exists")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(branch.Name) + dimStyle.Render("  "+branch.WorkingDir) + "\n\n")

	sessions := m.manager.ForBranch(branch.ID)
	if len(sessions) == 0 {
		b.WriteString(dimStyle.Render("No sessions. Press 'n' for an agent, 's' for a shell.") + "\n")
	}
	now := time.Now()
	for i, s := range sessions {
		b.WriteString(m.listLine(m.sessionLine(s, now), i == m.sessionIndex))
	}

	b.WriteString(m.renderHelp("enter attach · n new session · s new shell · d kill · esc back"))
	return b.String()
}

// sessionLine renders one session row with its state badge
func (m *Model) sessionLine(s *session.Session, now time.Time) string {
	icon := stateIcon(s)
	line := fmt.Sprintf("%s %s  %s", icon, s.Name, dimStyle.Render(s.State.DisplayName(s.Kind)))
	if s.CurrentTool != "" {
		line += dimStyle.Render(" · " + s.CurrentTool)
	}
	if s.State == session.StateExited && s.ExitReason != "" {
		line += warningStyle.Render(" · " + s.ExitReason)
	}
	if m.manager.NeedsAttention(s) {
		badge := " [attention]"
		if m.manager.AttentionStale(s, now) {
			badge = " [attention — stale]"
		}
		line += warningStyle.Render(badge)
	}
	return line
}

func stateIcon(s *session.Session) string {
	switch s.State {
	case session.StateStarting, session.StateThinking, session.StateExecuting:
		return activeIconStyle.Render(symbolActive)
	case session.StateWaiting:
		return waitingIconStyle.Render(symbolWaiting)
	case session.StateIdle:
		return idleIconStyle.Render(symbolIdle)
	default:
		return exitedIconStyle.Render(symbolIdle)
	}
}

func (m *Model) renderSessionView() string {
	s, ok := m.manager.Get(m.activeSession)
	if !ok {
		return dimStyle.Render("Session is gone")
	}

	lines := s.VTerm.VisibleLines(m.sessionContentHeight(), m.sessionScroll)
	body := strings.Join(lines, "\n")

	status := fmt.Sprintf("%s · %s · ctrl+q detach", s.Name, s.State.DisplayName(s.Kind))
	if m.sessionScroll > 0 {
		status += fmt.Sprintf(" · scrollback %d", m.sessionScroll)
	}
	return body + "\n" + helpStyle.Render(status)
}

func (m *Model) renderTimeline() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Activity") + "\n\n")

	sessions := m.timelineSessions()
	if len(sessions) == 0 {
		b.WriteString(dimStyle.Render("No sessions") + "\n")
	}
	now := time.Now()
	for i, s := range sessions {
		age := now.Sub(s.LastActivityAt).Round(time.Second)
		line := m.sessionLine(s, now) + dimStyle.Render(fmt.Sprintf("  %s ago", age))
		b.WriteString(m.listLine(line, i == m.timelineIndex))
	}

	b.WriteString(m.renderHelp("enter attach · esc back"))
	return b.String()
}

func (m *Model) renderLogs() string {
	height := m.height - 4
	if height < 5 {
		height = 20
	}

	lines := logging.Tail(0)
	end := len(lines) - m.logScroll
	if end < 0 {
		end = 0
	}
	start := end - height
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Logs") + "\n")
	for _, line := range lines[start:end] {
		b.WriteString(dimStyle.Render(line) + "\n")
	}
	b.WriteString(m.renderHelp("j/k scroll · esc back"))
	return b.String()
}

func (m *Model) renderFocusStats() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Focus") + "\n\n")

	if m.focusStore == nil {
		b.WriteString(dimStyle.Render("Focus store unavailable") + "\n")
	} else {
		totals, err := m.focusStore.TotalsByDay(7)
		if err != nil {
			b.WriteString(warningStyle.Render("Could not load stats: "+err.Error()) + "\n")
		} else if len(totals) == 0 {
			b.WriteString(dimStyle.Render("No focus intervals recorded yet") + "\n")
		} else {
			for _, t := range totals {
				d := time.Duration(t.TotalSecs) * time.Second
				b.WriteString(fmt.Sprintf("%s  %s\n", t.Day, normalStyle.Render(d.String())))
			}
		}
	}

	b.WriteString(m.renderHelp("f start/stop timer · esc back"))
	return b.String()
}

// renderOverlay shows the active dialog, if any
func (m *Model) renderOverlay() string {
	switch m.mode {
	case ModeTextInput:
		out := m.textInput.View()
		for i, completion := range m.pathCompletions {
			marker := "  "
			if i == m.pathCompletionIndex {
				marker = selectedStyle.Render("> ")
			}
			out += "\n" + marker + dimStyle.Render(completion)
		}
		return out

	case ModeConfirm:
		yes, no := "[ yes ]", "[ no ]"
		if m.confirm.selectedYes {
			yes = selectedStyle.Render("[ yes ]")
		} else {
			no = selectedStyle.Render("[ no ]")
		}
		return m.confirm.message + "\n" + yes + " " + no

	case ModeWizardSelectBranch:
		return m.renderWizardList("New worktree — branch: "+m.wizard.search,
			m.wizard.filtered, m.wizard.listIndex, m.wizard.search, m.wizard.validationError)

	case ModeWizardSelectBase:
		return m.renderWizardList("Base branch: "+m.wizard.baseSearch,
			m.wizard.baseFiltered, m.wizard.baseIndex, "", "")

	case ModeWizardConfirm:
		desc := fmt.Sprintf("Create worktree for %q", m.wizard.branchName)
		if m.wizard.creationType == wizardNewBranch {
			desc += fmt.Sprintf(" (new branch from %s)", m.wizard.baseBranch)
		}
		return desc + "? " + dimStyle.Render("y/n")
	}
	return ""
}

func (m *Model) renderWizardList(prompt string, items []string, index int, search, validationError string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(prompt) + "\n")
	if validationError != "" {
		b.WriteString(warningStyle.Render(validationError) + "\n")
	}
	for i, item := range items {
		b.WriteString(m.listLine(item, i == index))
	}
	if search != "" {
		b.WriteString(m.listLine("create new branch "+search, index == len(items)))
	}
	return b.String()
}

func (m *Model) listLine(text string, selected bool) string {
	if selected {
		return selectedStyle.Render("> ") + text + "\n"
	}
	return "  " + text + "\n"
}

func (m *Model) renderHelp(text string) string {
	return "\n" + helpStyle.Render(text) + "\n"
}
