package ui

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxPathCompletions bounds the completion popup
const maxPathCompletions = 8

// completePath returns directory suggestions for a partially typed path.
// ~ is expanded against the home directory; only directories are offered,
// each with a trailing separator so the user can keep typing.
func completePath(input string) []string {
	if input == "" {
		return nil
	}

	useTilde := strings.HasPrefix(input, "~/")
	expanded := input
	homeDir, homeErr := os.UserHomeDir()
	if useTilde && homeErr == nil {
		expanded = filepath.Join(homeDir, input[2:])
		if strings.HasSuffix(input, "/") {
			expanded += "/"
		}
	}

	dir := expanded
	prefix := ""
	if !strings.HasSuffix(expanded, "/") {
		dir = filepath.Dir(expanded)
		prefix = filepath.Base(expanded)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var suggestions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		if prefix == "" && strings.HasPrefix(name, ".") {
			continue
		}

		full := filepath.Join(dir, name) + "/"
		if useTilde && homeErr == nil {
			full = "~/" + strings.TrimPrefix(full, homeDir+"/")
		}
		suggestions = append(suggestions, full)
	}

	sort.Strings(suggestions)
	if len(suggestions) > maxPathCompletions {
		suggestions = suggestions[:maxPathCompletions]
	}
	return suggestions
}
