package ui

import (
	"strings"

	"argos/git"
	"argos/input"
	"argos/logging"
	"argos/project"

	tea "github.com/charmbracelet/bubbletea"
)

// wizardCreationType distinguishes how the worktree's branch comes to be
type wizardCreationType int

const (
	// wizardNewBranch creates a fresh branch from a chosen base
	wizardNewBranch wizardCreationType = iota
	// wizardExistingBranch checks out a branch that already exists
	wizardExistingBranch
)

// wizardState groups the multi-step worktree creation wizard. Initialized
// by startWorktreeWizard, cleared by cancelWizard.
type wizardState struct {
	allBranches     []string
	baseBranch      string
	baseFiltered    []string
	baseIndex       int
	baseSearch      string
	branchName      string
	creationType    wizardCreationType
	filtered        []string
	listIndex       int
	projectID       project.ProjectID
	search          string
	validationError string
}

// clampIndexes keeps the wizard's selection indexes inside their filtered
// candidate lists. The branch list has one extra "create new" entry when
// search text is present.
func (w *wizardState) clampIndexes() {
	maxIndex := len(w.filtered) - 1
	if w.search != "" {
		maxIndex = len(w.filtered)
	}
	w.listIndex = clamp(w.listIndex, 0, maxIndex)
	w.baseIndex = clamp(w.baseIndex, 0, len(w.baseFiltered)-1)
}

// startWorktreeWizard begins worktree creation for the current project
func (m *Model) startWorktreeWizard() {
	proj, ok := m.store.GetProject(m.view.ProjectID)
	if !ok {
		return
	}

	if err := git.Fetch(proj.RepoPath); err != nil {
		logging.Logger.Warn("Fetch before worktree creation failed", "error", err)
		m.notifications.Push("git fetch failed; branch list may be stale")
	}

	local, err := git.LocalBranches(proj.RepoPath)
	if err != nil {
		m.notifications.Push("Could not list branches: " + err.Error())
		return
	}
	remote, err := git.RemoteBranches(proj.RepoPath)
	if err != nil {
		logging.Logger.Debug("Could not list remote branches", "error", err)
	}

	m.wizard = wizardState{
		allBranches: append(local, remote...),
		projectID:   proj.ID,
	}
	m.wizard.filtered = m.wizard.allBranches
	m.mode = ModeWizardSelectBranch
}

func (m *Model) cancelWizard() {
	m.wizard = wizardState{}
	m.mode = ModeNormal
}

// handleWizardKey routes keys through the wizard's three steps
func (m *Model) handleWizardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeWizardSelectBranch:
		m.wizardSelectBranchKey(msg)
	case ModeWizardSelectBase:
		m.wizardSelectBaseKey(msg)
	case ModeWizardConfirm:
		m.wizardConfirmKey(msg)
	}
	return m, nil
}

func (m *Model) wizardSelectBranchKey(msg tea.KeyMsg) {
	w := &m.wizard
	switch msg.Type {
	case tea.KeyEsc:
		m.cancelWizard()
	case tea.KeyUp:
		w.listIndex--
	case tea.KeyDown:
		w.listIndex++
	case tea.KeyBackspace:
		if w.search != "" {
			w.search = w.search[:len(w.search)-1]
			m.refilterBranches()
		}
	case tea.KeyEnter:
		m.wizardChooseBranch()
	case tea.KeyRunes, tea.KeySpace:
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		capped, truncated := input.Truncate(w.search+text, input.MaxBranchNameLen)
		if truncated {
			m.notifications.Push("Branch name truncated")
		}
		w.search = capped
		m.refilterBranches()
	}
	w.clampIndexes()
}

// wizardChooseBranch resolves step 1's selection: an existing branch or the
// trailing "create new" entry
func (m *Model) wizardChooseBranch() {
	w := &m.wizard

	if branch, ok := at(w.filtered, w.listIndex); ok {
		w.creationType = wizardExistingBranch
		w.branchName = strings.TrimPrefix(branch, "origin/")
		w.baseBranch = branch
		m.mode = ModeWizardConfirm
		return
	}

	// Index past the filtered list is the "create new" entry
	if w.search == "" {
		return
	}
	if err := git.ValidateBranchName(w.search); err != nil {
		w.validationError = err.Error()
		return
	}
	w.validationError = ""
	w.creationType = wizardNewBranch
	w.branchName = w.search
	w.baseFiltered = w.allBranches
	w.baseSearch = ""
	w.baseIndex = 0
	m.mode = ModeWizardSelectBase
}

func (m *Model) wizardSelectBaseKey(msg tea.KeyMsg) {
	w := &m.wizard
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeWizardSelectBranch
	case tea.KeyUp:
		w.baseIndex--
	case tea.KeyDown:
		w.baseIndex++
	case tea.KeyBackspace:
		if w.baseSearch != "" {
			w.baseSearch = w.baseSearch[:len(w.baseSearch)-1]
			m.refilterBase()
		}
	case tea.KeyEnter:
		if base, ok := at(w.baseFiltered, w.baseIndex); ok {
			w.baseBranch = base
			m.mode = ModeWizardConfirm
		}
	case tea.KeyRunes, tea.KeySpace:
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		capped, _ := input.Truncate(w.baseSearch+text, input.MaxBranchNameLen)
		w.baseSearch = capped
		m.refilterBase()
	}
	w.clampIndexes()
}

func (m *Model) wizardConfirmKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "esc", "n", "N":
		m.cancelWizard()
	case "y", "Y", "enter":
		m.performWorktreeCreation()
	}
}

// performWorktreeCreation runs the wizard's outcome through the controller
// and registers the resulting branch record
func (m *Model) performWorktreeCreation() {
	w := m.wizard
	m.cancelWizard()

	proj, ok := m.store.GetProject(w.projectID)
	if !ok {
		return
	}

	// For an existing branch, baseBranch is the selected name itself; the
	// controller only uses it when no local branch exists yet (origin/x)
	worktreePath, err := m.controller.CreateForBranch(proj.RepoPath, proj.Name, w.branchName, w.baseBranch)
	if err != nil {
		m.notifications.Push("Worktree creation failed: " + err.Error())
		return
	}

	branch := project.NewBranch(proj.ID, w.branchName, worktreePath, false, true)
	if err := m.store.AddBranch(branch); err != nil {
		m.notifications.Push("Could not register branch: " + err.Error())
		return
	}

	m.notifications.Push("Created worktree for " + w.branchName)
	m.view = View{Kind: ViewBranchDetail, ProjectID: proj.ID, BranchID: branch.ID}
	m.sessionIndex = 0
}

func (m *Model) refilterBranches() {
	w := &m.wizard
	w.filtered = filterBranches(w.allBranches, w.search)
	w.clampIndexes()
}

func (m *Model) refilterBase() {
	w := &m.wizard
	w.baseFiltered = filterBranches(w.allBranches, w.baseSearch)
	w.clampIndexes()
}

func filterBranches(branches []string, search string) []string {
	if search == "" {
		return branches
	}
	needle := strings.ToLower(search)
	var out []string
	for _, b := range branches {
		if strings.Contains(strings.ToLower(b), needle) {
			out = append(out, b)
		}
	}
	return out
}
