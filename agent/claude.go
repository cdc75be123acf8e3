package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"argos/hooks"
	"argos/logging"
	"argos/session"
)

// AdapterKeyClaude identifies the Claude Code adapter
const AdapterKeyClaude = "claude-code"

// hookScriptName is the shared callback script; per-event symlinks point at
// it so `basename $0` yields the event name
const hookScriptName = "argos-hook.sh"

// ClaudeCodeAdapter spawns the Claude Code CLI and wires its hook system to
// the argos listener
type ClaudeCodeAdapter struct {
	extraArgs []string
}

// NewClaudeCodeAdapter creates the adapter with default settings
func NewClaudeCodeAdapter() *ClaudeCodeAdapter {
	return &ClaudeCodeAdapter{}
}

// NewClaudeCodeAdapterWithArgs creates the adapter with extra CLI arguments
func NewClaudeCodeAdapterWithArgs(args []string) *ClaudeCodeAdapter {
	return &ClaudeCodeAdapter{extraArgs: args}
}

// Name implements Adapter
func (a *ClaudeCodeAdapter) Name() string { return "Claude Code" }

// Key implements Adapter
func (a *ClaudeCodeAdapter) Key() string { return AdapterKeyClaude }

// Kind implements Adapter
func (a *ClaudeCodeAdapter) Kind() session.Kind { return session.KindAgent }

// Command implements Adapter
func (a *ClaudeCodeAdapter) Command() string { return "claude" }

// SupportsHooks implements Adapter
func (a *ClaudeCodeAdapter) SupportsHooks() bool { return true }

// Args implements Adapter
func (a *ClaudeCodeAdapter) Args(cfg session.SpawnConfig) []string {
	args := append([]string{}, a.extraArgs...)
	if cfg.InitialPrompt != "" {
		args = append(args, cfg.InitialPrompt)
	}
	return args
}

// Env implements Adapter
func (a *ClaudeCodeAdapter) Env(cfg session.SpawnConfig) map[string]string {
	return map[string]string{
		"ARGOS_SESSION_ID": cfg.SessionID,
	}
}

// SetupHooks writes the shared hook script, one symlink per event kind, and
// the session's .claude/settings.local.json registering them. Returns the
// session-specific paths for cleanup.
func (a *ClaudeCodeAdapter) SetupHooks(cfg session.SpawnConfig) ([]string, error) {
	eventScripts, err := installHookScript(cfg.HooksDir, cfg.HookPort)
	if err != nil {
		return nil, err
	}

	settingsPath, err := writeSessionSettings(cfg.WorkingDir, eventScripts)
	if err != nil {
		return nil, err
	}

	return []string{settingsPath}, nil
}

// Spawn implements Adapter
func (a *ClaudeCodeAdapter) Spawn(cfg session.SpawnConfig) (*session.PtyHandle, error) {
	if _, err := a.SetupHooks(cfg); err != nil {
		return nil, fmt.Errorf("failed to set up hooks: %w", err)
	}
	return session.Spawn(a.Command(), a.Args(cfg), cfg.WorkingDir, a.Env(cfg), cfg.Cols, cfg.Rows)
}

// installHookScript writes the shared script and refreshes the per-event
// symlinks. The script is shared across sessions, so it is not returned for
// cleanup.
func installHookScript(hooksDir string, port uint16) (map[string]string, error) {
	if err := os.MkdirAll(hooksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create hooks directory: %w", err)
	}

	scriptPath := filepath.Join(hooksDir, hookScriptName)
	if err := os.WriteFile(scriptPath, []byte(hookScript(port)), 0755); err != nil {
		return nil, fmt.Errorf("failed to write hook script: %w", err)
	}

	eventScripts := make(map[string]string, len(hooks.KnownEventNames))
	for _, event := range hooks.KnownEventNames {
		linkPath := filepath.Join(hooksDir, event+".sh")
		if _, err := os.Lstat(linkPath); err == nil {
			if err := os.Remove(linkPath); err != nil {
				return nil, fmt.Errorf("failed to replace hook symlink for %s: %w", event, err)
			}
		}
		if err := os.Symlink(scriptPath, linkPath); err != nil {
			return nil, fmt.Errorf("failed to create hook symlink for %s: %w", event, err)
		}
		eventScripts[event] = linkPath
	}

	logging.Logger.Debug("Installed hook scripts", "dir", hooksDir, "events", len(eventScripts))
	return eventScripts, nil
}

// hookScript is the callback the child runs on each lifecycle event. It
// reads the JSON envelope from stdin, derives the event from its own
// basename, and POSTs a compact document to the listener. It always exits 0
// so the agent is never blocked by listener downtime.
func hookScript(port uint16) string {
	return fmt.Sprintf(`#!/bin/bash
# Argos hook callback. Receives a JSON envelope on stdin and forwards the
# event to the argos listener.

SESSION_ID="${ARGOS_SESSION_ID:-unknown}"

json_input=$(cat)

# The symlink name identifies the hook event
event="$(basename "$0" .sh)"

tool_name=""
if command -v jq &> /dev/null; then
    tool_name=$(echo "$json_input" | jq -r '.tool_name // .tool // empty' 2>/dev/null || echo "")
fi

timestamp=$(($(date +%%s) * 1000))

payload=$(cat <<EOF
{"session_id": "$SESSION_ID", "event": "$event", "tool": "$tool_name", "timestamp": $timestamp}
EOF
)

curl -s -X POST "http://127.0.0.1:%d/hook" \
    -H "Content-Type: application/json" \
    -d "$payload" \
    --connect-timeout 2 \
    --max-time 2 \
    > /dev/null 2>&1 &

exit 0
`, port)
}

// writeSessionSettings registers the hook scripts in the working directory's
// .claude/settings.local.json
func writeSessionSettings(workingDir string, eventScripts map[string]string) (string, error) {
	claudeDir := filepath.Join(workingDir, ".claude")
	if err := os.MkdirAll(claudeDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create .claude directory: %w", err)
	}

	hookEntries := make(map[string]any, len(eventScripts))
	for _, event := range hooks.KnownEventNames {
		scriptPath, ok := eventScripts[event]
		if !ok {
			continue
		}
		hookEntries[event] = []map[string]any{
			{
				"matcher": ".*",
				"hooks": []map[string]string{
					{"type": "command", "command": scriptPath},
				},
			},
		}
	}

	content, err := json.MarshalIndent(map[string]any{"hooks": hookEntries}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize hook settings: %w", err)
	}

	settingsPath := filepath.Join(claudeDir, "settings.local.json")
	if err := os.WriteFile(settingsPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write hook settings: %w", err)
	}

	return settingsPath, nil
}
