package worktree

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testController(t *testing.T) *Controller {
	t.Helper()
	c, err := NewController(filepath.Join(t.TempDir(), "worktrees"))
	require.NoError(t, err)
	return c
}

// initTestRepo creates a git repository with one commit on main
func initTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com")
		output, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, string(output))
	}

	run("init", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("content\n"), 0644))
	run("add", ".")
	run("commit", "-m", "initial commit")
	return dir
}

func TestDeleteWorktreeRefusesOutsideRoot(t *testing.T) {
	c := testController(t)

	err := c.DeleteWorktree("/tmp", "/etc", "", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutsideRoot)

	// /etc is untouched
	_, statErr := os.Stat("/etc")
	assert.NoError(t, statErr)
}

func TestDeleteWorktreeRefusesSymlinkEscape(t *testing.T) {
	c := testController(t)

	// A symlink inside the root pointing outside must be refused: the
	// canonical form is what gets checked, atomically with the deletion
	victim := t.TempDir()
	link := filepath.Join(c.Root(), "sneaky")
	require.NoError(t, os.Symlink(victim, link))

	err := c.DeleteWorktree("/tmp", link, "", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, statErr := os.Stat(victim)
	assert.NoError(t, statErr)
}

func TestDeleteWorktreeRefusesRootItself(t *testing.T) {
	c := testController(t)

	err := c.DeleteWorktree("/tmp", c.Root(), "", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestDeleteWorktreeMissingPathIsNoop(t *testing.T) {
	c := testController(t)
	assert.NoError(t, c.DeleteWorktree("/tmp", filepath.Join(c.Root(), "never-existed"), "", false))
}

func TestPathForBranchSanitizes(t *testing.T) {
	c := testController(t)

	path := c.PathForBranch("My Project", "feature/add-auth")
	assert.Equal(t, filepath.Join(c.Root(), "My-Project", "feature-add-auth"), path)

	path = c.PathForBranch("app", "fix:bug?123")
	assert.Equal(t, filepath.Join(c.Root(), "app", "fix-bug-123"), path)
}

func TestContains(t *testing.T) {
	c := testController(t)

	assert.True(t, c.contains(filepath.Join(c.Root(), "proj", "branch")))
	assert.False(t, c.contains(c.Root()))
	assert.False(t, c.contains("/etc"))
	assert.False(t, c.contains(filepath.Dir(c.Root())))
}

func TestCreateForBranchNewBranch(t *testing.T) {
	repo := initTestRepo(t)
	c := testController(t)

	path, err := c.CreateForBranch(repo, "app", "feature-x", "")
	require.NoError(t, err)
	assert.Equal(t, c.PathForBranch("app", "feature-x"), path)
	assert.DirExists(t, path)
	assert.FileExists(t, filepath.Join(path, "file.txt"))
}

func TestCreateForBranchWithBase(t *testing.T) {
	repo := initTestRepo(t)
	c := testController(t)

	path, err := c.CreateForBranch(repo, "app", "from-main", "main")
	require.NoError(t, err)
	assert.DirExists(t, path)
}

func TestCreateForBranchBadBaseCollectsAttempts(t *testing.T) {
	repo := initTestRepo(t)
	c := testController(t)

	_, err := c.CreateForBranch(repo, "app", "doomed", "no-such-ref")
	require.Error(t, err)
	// Every resolution strategy is reported
	assert.Contains(t, err.Error(), "direct reference")
	assert.Contains(t, err.Error(), "local branch")
	assert.Contains(t, err.Error(), "revision parse")
}

func TestCreateForBranchRejectsInvalidName(t *testing.T) {
	c := testController(t)
	_, err := c.CreateForBranch("/tmp", "app", "bad..name", "")
	assert.Error(t, err)
}

func TestCreateForBranchRefusesExistingPath(t *testing.T) {
	repo := initTestRepo(t)
	c := testController(t)

	path := c.PathForBranch("app", "taken")
	require.NoError(t, os.MkdirAll(path, 0755))

	_, err := c.CreateForBranch(repo, "app", "taken", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreateThenDeleteWorktree(t *testing.T) {
	repo := initTestRepo(t)
	c := testController(t)

	path, err := c.CreateForBranch(repo, "app", "short-lived", "")
	require.NoError(t, err)
	require.DirExists(t, path)

	require.NoError(t, c.DeleteWorktree(repo, path, "short-lived", true))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
