package ui

import "argos/project"

// ViewKind enumerates the screens argos can display
type ViewKind int

const (
	// ViewProjectsOverview is the landing page listing projects
	ViewProjectsOverview ViewKind = iota
	// ViewProjectDetail lists branches for one project
	ViewProjectDetail
	// ViewBranchDetail lists sessions for one branch
	ViewBranchDetail
	// ViewSession shows a single session fullscreen
	ViewSession
	// ViewActivityTimeline lists all sessions by recent activity
	ViewActivityTimeline
	// ViewLogs shows the in-memory log tail
	ViewLogs
	// ViewFocusStats shows focus interval statistics
	ViewFocusStats
)

// View is the current screen plus its context
type View struct {
	BranchID  project.BranchID
	Kind      ViewKind
	ProjectID project.ProjectID
}

// Parent returns the view Esc navigates back to. The session view is handled
// specially via the model's return-view context.
func (v View) Parent() (View, bool) {
	switch v.Kind {
	case ViewProjectsOverview, ViewSession:
		return View{}, false
	case ViewProjectDetail:
		return View{Kind: ViewProjectsOverview}, true
	case ViewBranchDetail:
		return View{Kind: ViewProjectDetail, ProjectID: v.ProjectID}, true
	default:
		return View{Kind: ViewProjectsOverview}, true
	}
}
