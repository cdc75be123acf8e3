package project

import (
	"time"

	"github.com/google/uuid"
)

// ProjectID uniquely identifies a registered project
type ProjectID = string

// BranchID uniquely identifies a branch record
type BranchID = string

// Project is a registered source-control repository
type Project struct {
	CreatedAt         time.Time `json:"created_at"`
	DefaultBaseBranch string    `json:"default_base_branch"`
	ID                ProjectID `json:"id"`
	Name              string    `json:"name"`
	RepoPath          string    `json:"repo_path"`
}

// NewProject creates a project record with a fresh ID
func NewProject(name, repoPath, defaultBaseBranch string) Project {
	return Project{
		CreatedAt:         time.Now().UTC(),
		DefaultBaseBranch: defaultBaseBranch,
		ID:                uuid.New().String(),
		Name:              name,
		RepoPath:          repoPath,
	}
}

// Branch is a branch record owned by a project. WorkingDir must live inside
// the managed worktree root unless this is the default (primary) checkout.
type Branch struct {
	ID         BranchID  `json:"id"`
	IsDefault  bool      `json:"is_default"`
	IsWorktree bool      `json:"is_worktree"`
	Missing    bool      `json:"missing,omitempty"`
	Name       string    `json:"name"`
	ProjectID  ProjectID `json:"project_id"`
	WorkingDir string    `json:"working_dir"`
}

// NewBranch creates a branch record with a fresh ID
func NewBranch(projectID ProjectID, name, workingDir string, isDefault, isWorktree bool) Branch {
	return Branch{
		ID:         uuid.New().String(),
		IsDefault:  isDefault,
		IsWorktree: isWorktree,
		Name:       name,
		ProjectID:  projectID,
		WorkingDir: workingDir,
	}
}

// DefaultBranch creates the branch record for a project's primary checkout
func DefaultBranch(projectID ProjectID, name, workingDir string) Branch {
	return NewBranch(projectID, name, workingDir, true, false)
}
