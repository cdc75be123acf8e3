package config

import (
	"fmt"
	"os"
	"path/filepath"

	"argos/paths"

	"github.com/pelletier/go-toml/v2"
)

// NotificationMethod selects how Waiting sessions announce themselves
const (
	NotifyBell  = "bell"
	NotifyTitle = "title"
	NotifyNone  = "none"
)

// Config is the application configuration loaded from config.toml
type Config struct {
	ExitedRetentionSecs uint32 `toml:"exited_retention_secs"`
	HookPort            uint16 `toml:"hook_port"`
	IdleThresholdSecs   uint32 `toml:"idle_threshold_secs"`
	MaxOutputLines      uint32 `toml:"max_output_lines"`
	NotificationMethod  string `toml:"notification_method"`
	ScrollbackLines     uint32 `toml:"scrollback_lines"`
	StateTimeoutSecs    uint32 `toml:"state_timeout_secs"`
	ThemePreset         string `toml:"theme_preset"`
}

// Default returns the configuration defaults
func Default() Config {
	return Config{
		ExitedRetentionSecs: 300,
		HookPort:            9999,
		IdleThresholdSecs:   300,
		MaxOutputLines:      10000,
		NotificationMethod:  NotifyBell,
		ScrollbackLines:     10000,
		StateTimeoutSecs:    300,
		ThemePreset:         "dark",
	}
}

// Load reads config.toml from the controller directory.
// A missing file is not an error; defaults are returned.
func Load() (Config, error) {
	return LoadFrom(paths.GetConfigPath())
}

// LoadFrom reads configuration from a specific path
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("invalid config file %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// Save writes the configuration to a specific path
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// normalize clamps out-of-range values back to defaults
func (c *Config) normalize() {
	def := Default()
	if c.MaxOutputLines == 0 {
		c.MaxOutputLines = def.MaxOutputLines
	}
	if c.ScrollbackLines == 0 {
		c.ScrollbackLines = def.ScrollbackLines
	}
	if c.IdleThresholdSecs == 0 {
		c.IdleThresholdSecs = def.IdleThresholdSecs
	}
	if c.StateTimeoutSecs == 0 {
		c.StateTimeoutSecs = def.StateTimeoutSecs
	}
	if c.ExitedRetentionSecs == 0 {
		c.ExitedRetentionSecs = def.ExitedRetentionSecs
	}
	switch c.NotificationMethod {
	case NotifyBell, NotifyTitle, NotifyNone:
	default:
		c.NotificationMethod = def.NotificationMethod
	}
	if c.ThemePreset == "" {
		c.ThemePreset = def.ThemePreset
	}
}
