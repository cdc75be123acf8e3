package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetArgosHome returns ARGOS_HOME or ~/.argos default
func GetArgosHome() string {
	argosHome := os.Getenv("ARGOS_HOME")
	if argosHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".argos"
		}
		return filepath.Join(homeDir, ".argos")
	}
	return ExpandPath(argosHome)
}

// GetConfigPath returns $ARGOS_HOME/config.toml
func GetConfigPath() string {
	return filepath.Join(GetArgosHome(), "config.toml")
}

// GetProjectsPath returns $ARGOS_HOME/projects.json
func GetProjectsPath() string {
	return filepath.Join(GetArgosHome(), "projects.json")
}

// GetHooksDir returns $ARGOS_HOME/hooks
func GetHooksDir() string {
	return filepath.Join(GetArgosHome(), "hooks")
}

// GetWorktreesDir returns $ARGOS_HOME/worktrees
func GetWorktreesDir() string {
	return filepath.Join(GetArgosHome(), "worktrees")
}

// GetLogsDir returns $ARGOS_HOME/logs
func GetLogsDir() string {
	return filepath.Join(GetArgosHome(), "logs")
}

// GetFocusDBPath returns $ARGOS_HOME/focus.db
func GetFocusDBPath() string {
	return filepath.Join(GetArgosHome(), "focus.db")
}

// EnsureDirectories creates the controller-owned directory tree if missing
func EnsureDirectories() error {
	for _, dir := range []string{
		GetArgosHome(),
		GetHooksDir(),
		GetWorktreesDir(),
		GetLogsDir(),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			if len(path) == 1 {
				return homeDir
			}
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}
