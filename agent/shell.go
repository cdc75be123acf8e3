package agent

import (
	"os"

	"argos/session"
)

// AdapterKeyShell identifies the plain shell adapter
const AdapterKeyShell = "shell"

// ShellAdapter spawns a plain interactive shell. No hooks: execution state
// is inferred from foreground-process detection on the PTY.
type ShellAdapter struct {
	shellCommand string
}

// NewShellAdapter creates a shell adapter using $SHELL (fallback /bin/bash)
func NewShellAdapter() *ShellAdapter {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}
	return &ShellAdapter{shellCommand: shell}
}

// NewShellAdapterWithShell creates a shell adapter for a specific shell
func NewShellAdapterWithShell(shell string) *ShellAdapter {
	return &ShellAdapter{shellCommand: shell}
}

// Name implements Adapter
func (a *ShellAdapter) Name() string { return "Shell" }

// Key implements Adapter
func (a *ShellAdapter) Key() string { return AdapterKeyShell }

// Kind implements Adapter
func (a *ShellAdapter) Kind() session.Kind { return session.KindShell }

// Command implements Adapter
func (a *ShellAdapter) Command() string { return a.shellCommand }

// SupportsHooks implements Adapter
func (a *ShellAdapter) SupportsHooks() bool { return false }

// Args implements Adapter
func (a *ShellAdapter) Args(cfg session.SpawnConfig) []string {
	// Interactive login shell
	return []string{"-l"}
}

// Env implements Adapter
func (a *ShellAdapter) Env(cfg session.SpawnConfig) map[string]string {
	return map[string]string{
		"ARGOS_SESSION":    "1",
		"ARGOS_SESSION_ID": cfg.SessionID,
		"TERM":             "xterm-256color",
	}
}

// SetupHooks implements Adapter; shells have none
func (a *ShellAdapter) SetupHooks(cfg session.SpawnConfig) ([]string, error) {
	return nil, nil
}

// Spawn implements Adapter
func (a *ShellAdapter) Spawn(cfg session.SpawnConfig) (*session.PtyHandle, error) {
	return session.Spawn(a.Command(), a.Args(cfg), cfg.WorkingDir, a.Env(cfg), cfg.Cols, cfg.Rows)
}
