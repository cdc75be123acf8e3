package ui

// Mode determines how keyboard input is routed
type Mode int

const (
	// ModeNormal handles keys as commands
	ModeNormal Mode = iota
	// ModeSession forwards keystrokes to the active session's PTY
	ModeSession
	// ModeTextInput collects a line of text (names, paths)
	ModeTextInput
	// ModeConfirm asks a yes/no question
	ModeConfirm
	// ModeWizardSelectBranch is worktree creation step 1: pick or search a branch
	ModeWizardSelectBranch
	// ModeWizardSelectBase is worktree creation step 2: pick the base branch
	ModeWizardSelectBase
	// ModeWizardConfirm is worktree creation step 3: confirm
	ModeWizardConfirm
)

// validFor reports whether this mode makes sense on the given view. The
// dispatcher checks this every frame and resets to Normal on mismatch.
func (m Mode) validFor(v View) bool {
	switch m {
	case ModeSession:
		return v.Kind == ViewSession
	case ModeWizardSelectBranch, ModeWizardSelectBase, ModeWizardConfirm:
		return v.Kind == ViewProjectDetail
	default:
		return true
	}
}
