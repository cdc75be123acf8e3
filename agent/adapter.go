// Package agent provides the child-process recipes argos can supervise.
// Each adapter implements session.Adapter: the callback-emitting Claude Code
// CLI and a plain shell tracked by foreground detection.
package agent

import (
	"fmt"

	"argos/session"
)

// ForKey resolves an adapter by its key
func ForKey(key string) (session.Adapter, error) {
	switch key {
	case AdapterKeyClaude:
		return NewClaudeCodeAdapter(), nil
	case AdapterKeyShell:
		return NewShellAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown agent adapter: %q", key)
	}
}
