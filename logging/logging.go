package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the public logger instance accessible from all packages
var Logger *slog.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// DefaultRetentionDays is how long rotated daily log files are kept
const DefaultRetentionDays = 7

// writeFailureThreshold is the number of consecutive log write failures
// before a one-shot warning is emitted on stderr
const writeFailureThreshold = 5

// tail keeps recent log records in memory for the UI log viewer
var tail = newMemoryTail(2000)

// Initialize sets up the logger writing to a daily file in logDir.
// Returns the active log file path. Old files past the retention window
// are removed. debug enables Debug-level records.
func Initialize(debug bool, logDir string, retentionDays int) (string, error) {
	if os.Getenv("ARGOS_DEBUG") == "1" {
		debug = true
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	if err := pruneOldLogs(logDir, retentionDays); err != nil {
		// Retention failure shouldn't prevent logging
		fmt.Fprintf(os.Stderr, "Warning: log retention cleanup failed: %v\n", err)
	}

	logFilePath := filepath.Join(logDir, fmt.Sprintf("argos-%s.log", time.Now().Format("2006-01-02")))
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	w := io.MultiWriter(&failureCountingWriter{w: logFile}, tail)
	Logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	Logger.Info("Logging initialized", "log_file", logFilePath, "retention_days", retentionDays)

	return logFilePath, nil
}

// Tail returns up to n of the most recent log lines (oldest first)
func Tail(n int) []string {
	return tail.Lines(n)
}

// pruneOldLogs removes daily log files older than retentionDays
func pruneOldLogs(logDir string, retentionDays int) error {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "argos-") || filepath.Ext(name) != ".log" {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, "argos-"), ".log")
		day, err := time.Parse("2006-01-02", stamp)
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(logDir, name)); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to delete old log file %s: %v\n", name, err)
			}
		}
	}
	return nil
}

// failureCountingWriter tracks consecutive write failures and emits a
// single stderr warning when the threshold is crossed
type failureCountingWriter struct {
	w        io.Writer
	failures atomic.Int64
	warned   atomic.Bool
}

func (f *failureCountingWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		count := f.failures.Add(1)
		if count >= writeFailureThreshold && f.warned.CompareAndSwap(false, true) {
			fmt.Fprintf(os.Stderr, "Warning: %d consecutive log write failures, latest: %v\n", count, err)
		}
		return n, err
	}
	f.failures.Store(0)
	return n, nil
}

// memoryTail is a bounded ring of recent log lines
type memoryTail struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newMemoryTail(max int) *memoryTail {
	return &memoryTail{max: max}
}

func (m *memoryTail) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		m.lines = append(m.lines, line)
	}
	if overflow := len(m.lines) - m.max; overflow > 0 {
		m.lines = m.lines[overflow:]
	}
	return len(p), nil
}

func (m *memoryTail) Lines(n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > len(m.lines) {
		n = len(m.lines)
	}
	out := make([]string, n)
	copy(out, m.lines[len(m.lines)-n:])
	return out
}
