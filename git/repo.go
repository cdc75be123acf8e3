package git

import (
	"fmt"
	"os/exec"
	"strings"

	"argos/logging"
)

// IsGitRepo checks if the given path is within a git repository
// Returns true and the repository root path if it is, false and empty string otherwise
func IsGitRepo(path string) (bool, string) {
	logging.Logger.Debug("Checking if directory is git repo", "path", path)

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = path

	output, err := cmd.Output()
	if err != nil {
		logging.Logger.Debug("Not a git repository", "path", path)
		return false, ""
	}

	repoRoot := strings.TrimSpace(string(output))
	logging.Logger.Debug("Found git repository", "repo_root", repoRoot)
	return true, repoRoot
}

// CurrentBranch returns the current branch name for the given path
// Returns empty string if not in a git repository or cannot determine branch
func CurrentBranch(path string) string {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = path

	output, err := cmd.Output()
	if err != nil {
		logging.Logger.Debug("Failed to get branch name", "error", err, "path", path)
		return ""
	}

	return strings.TrimSpace(string(output))
}

// DefaultBranch determines the repository's default branch.
// Prefers origin/HEAD; falls back to the currently checked-out branch.
func DefaultBranch(repoPath string) string {
	cmd := exec.Command("git", "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	cmd.Dir = repoPath

	if output, err := cmd.Output(); err == nil {
		ref := strings.TrimSpace(string(output))
		if name, ok := strings.CutPrefix(ref, "origin/"); ok && name != "" {
			return name
		}
	}

	return CurrentBranch(repoPath)
}

// LocalBranches lists local branch names for the repository
func LocalBranches(repoPath string) ([]string, error) {
	return branchList(repoPath, "refs/heads/")
}

// RemoteBranches lists remote-tracking branch names (e.g. "origin/main")
func RemoteBranches(repoPath string) ([]string, error) {
	branches, err := branchList(repoPath, "refs/remotes/")
	if err != nil {
		return nil, err
	}
	// Drop symbolic origin/HEAD entries
	out := branches[:0]
	for _, b := range branches {
		if strings.HasSuffix(b, "/HEAD") {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func branchList(repoPath, refPrefix string) ([]string, error) {
	cmd := exec.Command("git", "for-each-ref", "--format=%(refname:short)", refPrefix)
	cmd.Dir = repoPath

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches under %s: %w", refPrefix, err)
	}

	var branches []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// BranchExists checks if a local branch exists
func BranchExists(repoPath, name string) bool {
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	cmd.Dir = repoPath
	return cmd.Run() == nil
}

// CreateBranch creates a local branch pointing at the given commit
func CreateBranch(repoPath, name, commit string) error {
	cmd := exec.Command("git", "branch", name, commit)
	cmd.Dir = repoPath

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create branch %q: %w\nOutput: %s", name, err, string(output))
	}
	return nil
}

// DeleteBranch force-deletes a local branch
func DeleteBranch(repoPath, name string) error {
	cmd := exec.Command("git", "branch", "-D", name)
	cmd.Dir = repoPath

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to delete branch %q: %w\nOutput: %s", name, err, string(output))
	}
	return nil
}

// Fetch updates remote-tracking branches. Failures are reported but are
// commonly benign (offline, no remote).
func Fetch(repoPath string) error {
	cmd := exec.Command("git", "fetch", "--prune")
	cmd.Dir = repoPath

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git fetch failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// ResolveCommit resolves a base ref to a commit hash. It tries, in order:
// a direct reference lookup, a local branch lookup, and a generic
// revision-parse. Every failed strategy is collected so the caller can see
// exactly why resolution failed.
func ResolveCommit(repoPath, ref string) (string, error) {
	var attempts []string

	strategies := []struct {
		name string
		args []string
	}{
		{"direct reference", []string{"rev-parse", "--verify", "--quiet", "refs/" + strings.TrimPrefix(ref, "refs/") + "^{commit}"}},
		{"local branch", []string{"rev-parse", "--verify", "--quiet", "refs/heads/" + ref + "^{commit}"}},
		{"revision parse", []string{"rev-parse", "--verify", "--quiet", ref + "^{commit}"}},
	}

	for _, s := range strategies {
		cmd := exec.Command("git", s.args...)
		cmd.Dir = repoPath

		output, err := cmd.Output()
		if err == nil {
			commit := strings.TrimSpace(string(output))
			if commit != "" {
				logging.Logger.Debug("Resolved base ref", "ref", ref, "commit", commit, "strategy", s.name)
				return commit, nil
			}
			err = fmt.Errorf("empty output")
		}
		attempts = append(attempts, fmt.Sprintf("%s: %v", s.name, err))
	}

	return "", fmt.Errorf("could not resolve %q to a commit, tried:\n  - %s", ref, strings.Join(attempts, "\n  - "))
}
