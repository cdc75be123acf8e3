package worktree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"argos/git"
	"argos/logging"
)

// ErrOutsideRoot is returned when a deletion target does not canonicalize
// to a location inside the managed worktree root. This refusal is hard: the
// operation never proceeds, not even with user confirmation.
var ErrOutsideRoot = errors.New("path is outside the managed worktree root")

// Controller provisions and removes isolated per-branch checkouts under a
// single controller-owned root directory
type Controller struct {
	root string
}

// NewController creates a controller fenced to the given root.
// The root is created if missing and resolved to its canonical form so
// later containment checks compare like with like.
func NewController(root string) (*Controller, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create worktree root: %w", err)
	}

	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize worktree root: %w", err)
	}

	return &Controller{root: canonical}, nil
}

// Root returns the canonical managed root
func (c *Controller) Root() string {
	return c.root
}

// PathForBranch computes the managed checkout location for a branch:
// <root>/<project>/<branch>, with both components sanitized for the filesystem.
func (c *Controller) PathForBranch(projectName, branchName string) string {
	return filepath.Join(c.root, sanitizeComponent(projectName), sanitizeComponent(branchName))
}

// CreateForBranch provisions a worktree for branchName in the repository at
// repoPath. If the branch does not exist it is created from base (or the
// repository HEAD when base is empty). Base-ref resolution reports every
// strategy attempted on failure. Returns the worktree path.
func (c *Controller) CreateForBranch(repoPath, projectName, branchName, base string) (string, error) {
	if err := git.ValidateBranchName(branchName); err != nil {
		return "", err
	}

	worktreePath := c.PathForBranch(projectName, branchName)
	if _, err := os.Stat(worktreePath); err == nil {
		return "", fmt.Errorf("worktree path already exists: %s", worktreePath)
	}

	if err := os.MkdirAll(filepath.Dir(worktreePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create worktree parent directory: %w", err)
	}

	if !git.BranchExists(repoPath, branchName) {
		ref := base
		if ref == "" {
			ref = "HEAD"
		}
		commit, err := git.ResolveCommit(repoPath, ref)
		if err != nil {
			return "", fmt.Errorf("failed to resolve base for new branch %q: %w", branchName, err)
		}
		if err := git.CreateBranch(repoPath, branchName, commit); err != nil {
			return "", err
		}
	}

	if err := git.AddWorktree(repoPath, worktreePath, branchName); err != nil {
		return "", err
	}

	logging.Logger.Info("Created worktree",
		"repo_path", repoPath, "branch", branchName, "worktree_path", worktreePath)
	return worktreePath, nil
}

// DeleteWorktree removes a managed worktree directory and optionally the
// branch it had checked out. The target is re-canonicalized immediately
// before removal and the operation is refused with ErrOutsideRoot unless the
// canonical path is strictly inside the managed root; checking any earlier
// would leave a symlink-swap window.
func (c *Controller) DeleteWorktree(repoPath, path, branchName string, alsoDeleteBranch bool) error {
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Logger.Warn("Worktree path does not exist", "path", path)
			return nil
		}
		return fmt.Errorf("failed to canonicalize %s: %w", path, err)
	}

	if !c.contains(canonical) {
		logging.Logger.Error("Refusing to delete path outside managed root",
			"path", path, "canonical", canonical, "root", c.root)
		return fmt.Errorf("refusing to delete %s (resolves to %s): %w", path, canonical, ErrOutsideRoot)
	}

	if err := git.RemoveWorktree(repoPath, canonical); err != nil {
		return err
	}

	// git worktree remove can leave the directory behind when the checkout
	// was already broken
	if _, statErr := os.Stat(canonical); statErr == nil {
		if err := os.RemoveAll(canonical); err != nil {
			return fmt.Errorf("failed to remove worktree directory: %w", err)
		}
	}

	if alsoDeleteBranch && branchName != "" {
		if err := git.DeleteBranch(repoPath, branchName); err != nil {
			return err
		}
	}

	logging.Logger.Info("Deleted worktree",
		"path", canonical, "branch", branchName, "deleted_branch", alsoDeleteBranch)
	return nil
}

// contains reports whether canonical is strictly inside the managed root
func (c *Controller) contains(canonical string) bool {
	rel, err := filepath.Rel(c.root, canonical)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// sanitizeComponent makes a name safe for use as a single directory name
func sanitizeComponent(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}, name)
}
