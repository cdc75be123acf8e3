package git

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"argos/logging"
)

// AddWorktree creates a git worktree at worktreePath checking out branchName.
// The branch must already exist; use CreateBranch first for new branches.
func AddWorktree(repoPath, worktreePath, branchName string) error {
	logging.Logger.Info("Running git worktree add", "path", worktreePath, "branch", branchName)

	cmd := exec.Command("git", "worktree", "add", worktreePath, branchName)
	cmd.Dir = repoPath

	if output, err := cmd.CombinedOutput(); err != nil {
		logging.Logger.Error("Git worktree add failed", "error", err, "output", string(output))
		return fmt.Errorf("failed to create worktree: %w\nOutput: %s", err, string(output))
	}

	return nil
}

// RemoveWorktree removes a git worktree at the specified path.
// repoPath is the main repository path where the git command runs.
func RemoveWorktree(repoPath, worktreePath string) error {
	logging.Logger.Info("Removing worktree", "repo_path", repoPath, "worktree_path", worktreePath)

	if _, err := os.Stat(worktreePath); os.IsNotExist(err) {
		logging.Logger.Warn("Worktree path does not exist", "path", worktreePath)
		return nil // Already removed, not an error
	}

	cmd := exec.Command("git", "worktree", "remove", "--force", worktreePath)
	cmd.Dir = repoPath

	if output, err := cmd.CombinedOutput(); err != nil {
		logging.Logger.Error("Git worktree remove failed", "error", err, "output", string(output))
		return fmt.Errorf("failed to remove worktree: %w\nOutput: %s", err, string(output))
	}

	return nil
}

// ListWorktrees lists worktree paths for the given repository
func ListWorktrees(repoPath string) ([]string, error) {
	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = repoPath

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %w", err)
	}

	var worktrees []string
	for _, line := range strings.Split(string(output), "\n") {
		if path, ok := strings.CutPrefix(line, "worktree "); ok {
			worktrees = append(worktrees, path)
		}
	}

	logging.Logger.Debug("Found worktrees", "repo_path", repoPath, "count", len(worktrees))
	return worktrees, nil
}
