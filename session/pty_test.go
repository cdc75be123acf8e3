package session

import (
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drainPty reads everything currently available from the handle
func drainPty(h *PtyHandle) []byte {
	var out []byte
	for {
		chunk, err := h.TryRead()
		if chunk == nil || err != nil {
			return out
		}
		out = append(out, chunk...)
	}
}

// waitFor polls until the condition holds or the deadline passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestSpawnAndRead(t *testing.T) {
	h, err := Spawn("echo", []string{"hello"}, "/tmp", nil, 80, 24)
	require.NoError(t, err)
	defer h.Kill()

	var output []byte
	waitFor(t, 2*time.Second, func() bool {
		output = append(output, drainPty(h)...)
		return len(output) > 0
	})

	assert.Contains(t, string(output), "hello")
}

func TestTryReadIsNonBlocking(t *testing.T) {
	h, err := Spawn("sleep", []string{"5"}, "/tmp", nil, 80, 24)
	require.NoError(t, err)
	defer h.Kill()

	start := time.Now()
	chunk, readErr := h.TryRead()
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Nil(t, chunk)
	assert.NoError(t, readErr)
}

func TestWriteAndEcho(t *testing.T) {
	h, err := Spawn("cat", nil, "/tmp", nil, 80, 24)
	require.NoError(t, err)
	defer h.Kill()

	require.NoError(t, h.Write([]byte("hello pty\n")))

	var output []byte
	ok := waitFor(t, 2*time.Second, func() bool {
		output = append(output, drainPty(h)...)
		return len(output) >= len("hello pty")
	})
	require.True(t, ok, "expected echo from cat, got: %q", string(output))
	assert.Contains(t, string(output), "hello pty")
	assert.True(t, h.IsAlive())
}

func TestWriteQueueCap(t *testing.T) {
	h, err := Spawn("sleep", []string{"5"}, "/tmp", nil, 80, 24)
	require.NoError(t, err)
	defer h.Kill()

	// Flood the queue past the 1 MiB soft cap; sleep never drains stdin
	payload := make([]byte, 256*1024)
	var capErr error
	for i := 0; i < 16; i++ {
		if capErr = h.Write(payload); capErr != nil {
			break
		}
	}
	assert.ErrorIs(t, capErr, ErrWriteQueueFull)
}

func TestIsAliveAndKill(t *testing.T) {
	h, err := Spawn("sleep", []string{"10"}, "/tmp", nil, 80, 24)
	require.NoError(t, err)

	assert.True(t, h.IsAlive())
	require.NoError(t, h.Kill())
	assert.True(t, waitFor(t, 2*time.Second, func() bool { return !h.IsAlive() }))
}

func TestExitStatusNormal(t *testing.T) {
	h, err := Spawn("true", nil, "/tmp", nil, 80, 24)
	require.NoError(t, err)

	info := h.Wait()
	assert.True(t, info.Success)
	assert.Equal(t, 0, info.Code)
	assert.Equal(t, "Exited normally", info.FormatReason())
}

func TestExitStatusNonzero(t *testing.T) {
	h, err := Spawn("false", nil, "/tmp", nil, 80, 24)
	require.NoError(t, err)

	info := h.Wait()
	assert.False(t, info.Success)
	assert.Equal(t, 1, info.Code)
	assert.Equal(t, "Exit code: 1", info.FormatReason())
}

func TestExitStatusSignal(t *testing.T) {
	h, err := Spawn("sleep", []string{"10"}, "/tmp", nil, 80, 24)
	require.NoError(t, err)

	require.NoError(t, h.cmd.Process.Signal(syscall.SIGKILL))
	info := h.Wait()

	assert.False(t, info.Success)
	assert.Equal(t, 9, info.Signal)
	assert.Contains(t, info.FormatReason(), "signal 9")
}

func TestExitStatusNilWhileRunning(t *testing.T) {
	h, err := Spawn("sleep", []string{"5"}, "/tmp", nil, 80, 24)
	require.NoError(t, err)
	defer h.Kill()

	assert.Nil(t, h.ExitStatus())
}

func TestReadAfterExitReturnsEOF(t *testing.T) {
	h, err := Spawn("true", nil, "/tmp", nil, 80, 24)
	require.NoError(t, err)

	h.Wait()
	// Drain any trailing output, then expect EOF
	waitFor(t, 2*time.Second, func() bool {
		_, readErr := h.TryRead()
		return readErr == io.EOF
	})
	_, readErr := h.TryRead()
	assert.Equal(t, io.EOF, readErr)
}

func TestResize(t *testing.T) {
	h, err := Spawn("sleep", []string{"5"}, "/tmp", nil, 80, 24)
	require.NoError(t, err)
	defer h.Kill()

	assert.NoError(t, h.Resize(120, 40))
}

func TestExitInfoFormatting(t *testing.T) {
	tests := []struct {
		expected string
		info     ExitInfo
		name     string
	}{
		{"Exited normally", ExitInfo{Code: 0, Success: true}, "success"},
		{"Exit code: 2", ExitInfo{Code: 2}, "nonzero"},
		{"Killed by signal 15 (SIGTERM)", ExitInfo{Code: 143, Signal: 15}, "sigterm"},
		{"Killed by signal 9 (SIGKILL)", ExitInfo{Code: 137, Signal: 9}, "sigkill"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.info.FormatReason())
		})
	}
}
