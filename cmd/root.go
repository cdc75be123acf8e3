package cmd

import (
	"fmt"
	"time"

	"argos/config"
	"argos/focus"
	"argos/hooks"
	"argos/logging"
	"argos/paths"
	"argos/project"
	"argos/session"
	"argos/ui"
	"argos/worktree"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
)

// CLI is the command-line surface: one binary, flags only
type CLI struct {
	Debug   bool             `help:"Enable debug logging" short:"d"`
	Version kong.VersionFlag `help:"Show version information"`

	Run RunCmd `cmd:"" default:"1" hidden:""`
}

// RunCmd starts the dashboard
type RunCmd struct{}

// Run executes the dashboard until quit
func (r *RunCmd) Run(cli *CLI) error {
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create controller directory: %w", err)
	}

	if _, err := logging.Initialize(cli.Debug, paths.GetLogsDir(), logging.DefaultRetentionDays); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := project.Load(paths.GetProjectsPath())
	if err != nil {
		return err
	}

	controller, err := worktree.NewController(paths.GetWorktreesDir())
	if err != nil {
		return err
	}

	watcher, err := worktree.NewWatcher(controller)
	if err != nil {
		logging.Logger.Warn("Worktree watcher unavailable", "error", err)
		watcher = nil
	}

	focusStore, err := focus.NewStore(paths.GetFocusDBPath())
	if err != nil {
		logging.Logger.Warn("Focus store unavailable", "error", err)
		focusStore = nil
	}

	manager := session.NewManager(session.ManagerConfig{
		ExitedRetention:    time.Duration(cfg.ExitedRetentionSecs) * time.Second,
		HookPort:           cfg.HookPort,
		HooksDir:           paths.GetHooksDir(),
		IdleThreshold:      time.Duration(cfg.IdleThresholdSecs) * time.Second,
		MaxOutputLines:     int(cfg.MaxOutputLines),
		NotificationMethod: cfg.NotificationMethod,
		ScrollbackLines:    int(cfg.ScrollbackLines),
		StateTimeout:       time.Duration(cfg.StateTimeoutSecs) * time.Second,
	})

	// A listener that fails to bind leaves the app usable; session states
	// simply stop updating and the header shows the warning
	listener := hooks.NewListener(cfg.HookPort)
	if err := listener.Start(); err != nil {
		logging.Logger.Error("Hook listener failed to start", "error", err)
		fmt.Println(err.Error())
	}

	model := ui.NewModel(ui.ModelConfig{
		Config:     cfg,
		Controller: controller,
		FocusStore: focusStore,
		Listener:   listener,
		Manager:    manager,
		Store:      store,
		Watcher:    watcher,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run UI: %w", err)
	}

	if focusStore != nil {
		if err := focusStore.Close(); err != nil {
			logging.Logger.Warn("Failed to close focus store", "error", err)
		}
	}

	return nil
}
