package ui

import (
	"strconv"
	"strings"

	"argos/agent"
	"argos/git"
	"argos/input"
	"argos/session"

	tea "github.com/charmbracelet/bubbletea"
)

// textPurpose identifies what the text input is collecting
type textPurpose int

const (
	textPurposeNone textPurpose = iota
	textPurposeProjectPath
	textPurposeProjectName
	textPurposeSessionName
	textPurposeRenameProject
	textPurposeFocusDuration
)

// capFor returns the hard cap for a purpose
func (p textPurpose) capFor() int {
	switch p {
	case textPurposeProjectPath:
		return input.MaxProjectPathLen
	case textPurposeFocusDuration:
		return 4
	default:
		return input.MaxSessionNameLen
	}
}

// startTextInput switches into text-input mode
func (m *Model) startTextInput(purpose textPurpose, prompt, initial string) {
	m.textPurpose = purpose
	m.textInput.Prompt = prompt + ": "
	m.textInput.SetValue(initial)
	m.textInput.CursorEnd()
	m.textInput.Focus()
	m.pathCompletions = nil
	m.pathCompletionIndex = 0
	m.mode = ModeTextInput
}

func (m *Model) cancelTextInput() {
	m.textPurpose = textPurposeNone
	m.textInput.Blur()
	m.textInput.SetValue("")
	m.pathCompletions = nil
	m.mode = ModeNormal
}

// handleTextInputKey routes keys while collecting a line of text
func (m *Model) handleTextInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.cancelTextInput()
		return m, nil

	case tea.KeyEnter:
		m.submitTextInput()
		return m, nil

	case tea.KeyTab:
		if m.textPurpose == textPurposeProjectPath {
			if completion, ok := at(m.pathCompletions, m.pathCompletionIndex); ok {
				m.textInput.SetValue(completion)
				m.textInput.CursorEnd()
				m.refreshPathCompletions()
			}
		}
		return m, nil

	case tea.KeyUp:
		m.pathCompletionIndex = clamp(m.pathCompletionIndex-1, 0, len(m.pathCompletions)-1)
		return m, nil

	case tea.KeyDown:
		m.pathCompletionIndex = clamp(m.pathCompletionIndex+1, 0, len(m.pathCompletions)-1)
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	m.enforceCap()
	if m.textPurpose == textPurposeProjectPath {
		m.refreshPathCompletions()
	}
	return m, cmd
}

// enforceCap truncates over-cap input and surfaces one notification
func (m *Model) enforceCap() {
	capped, truncated := input.Truncate(m.textInput.Value(), m.textPurpose.capFor())
	if truncated {
		m.textInput.SetValue(capped)
		m.textInput.CursorEnd()
		m.notifications.Push("Input truncated to " + strconv.Itoa(m.textPurpose.capFor()) + " characters")
	}
}

func (m *Model) refreshPathCompletions() {
	m.pathCompletions = completePath(m.textInput.Value())
	m.pathCompletionIndex = clamp(m.pathCompletionIndex, 0, len(m.pathCompletions)-1)
}

// submitTextInput finishes the current text entry
func (m *Model) submitTextInput() {
	value := strings.TrimSpace(m.textInput.Value())
	purpose := m.textPurpose
	m.cancelTextInput()

	switch purpose {
	case textPurposeProjectPath:
		if value == "" {
			return
		}
		isRepo, repoRoot := git.IsGitRepo(value)
		if !isRepo {
			m.notifications.Push("Not a git repository: " + value)
			return
		}
		m.pendingProjectPath = repoRoot
		m.startTextInput(textPurposeProjectName, "Project name", "")

	case textPurposeProjectName:
		p, err := m.store.AddProject(m.pendingProjectPath, value)
		if err != nil {
			m.notifications.Push("Could not add project: " + err.Error())
			return
		}
		m.pendingProjectPath = ""
		m.notifications.Push("Added project " + p.Name)

	case textPurposeSessionName:
		m.createSession(value)

	case textPurposeRenameProject:
		if value == "" {
			return
		}
		if err := m.store.RenameProject(m.renameProjectID, value); err != nil {
			m.notifications.Push("Rename failed: " + err.Error())
		}
		m.renameProjectID = ""

	case textPurposeFocusDuration:
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes <= 0 {
			m.notifications.Push("Invalid duration: " + value)
			return
		}
		m.startFocusTimer(minutes)
	}
}

// createSession spawns an agent or shell session on the current branch
func (m *Model) createSession(name string) {
	branch, ok := m.store.GetBranch(m.view.BranchID)
	if !ok {
		m.notifications.Push("No branch selected")
		return
	}
	if branch.Missing {
		m.notifications.Push("Branch working directory is missing")
		return
	}
	if name == "" {
		name = branch.Name
	}

	var adapter session.Adapter
	if m.creatingShell {
		adapter = agent.NewShellAdapter()
	} else {
		adapter = agent.NewClaudeCodeAdapter()
	}

	id, err := m.manager.Create(session.CreateOptions{
		Adapter:    adapter,
		BranchID:   branch.ID,
		Cols:       m.width,
		Name:       name,
		ProjectID:  branch.ProjectID,
		Rows:       m.sessionContentHeight(),
		WorkingDir: branch.WorkingDir,
	})
	if err != nil {
		m.notifications.Push("Could not create session: " + err.Error())
		return
	}

	m.openSession(id)
}
