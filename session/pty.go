package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"argos/logging"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// ErrWriteQueueFull is returned when queued writes exceed the soft cap.
// Callers pasting large buffers must reject the paste instead of blocking
// the event loop.
var ErrWriteQueueFull = errors.New("pty write queue is full")

// writeQueueCap is the soft cap on bytes queued for writing (1 MiB)
const writeQueueCap = 1 << 20

// killGrace is how long Kill waits after SIGTERM before SIGKILL
const killGrace = 500 * time.Millisecond

// readChunkSize is the reader goroutine's buffer size
const readChunkSize = 32 * 1024

// Bracketed paste markers
var (
	pasteStart = []byte("\x1b[200~")
	pasteEnd   = []byte("\x1b[201~")
)

// ExitInfo describes how a child process terminated
type ExitInfo struct {
	// Exit code (or 128+signal for signal termination)
	Code int
	// Whether the process exited with status 0
	Success bool
	// Terminating signal number, 0 if none
	Signal int
}

// FormatReason renders the exit as a human-readable string
func (e ExitInfo) FormatReason() string {
	if e.Success {
		return "Exited normally"
	}
	if e.Signal != 0 {
		return fmt.Sprintf("Killed by signal %d (%s)", e.Signal, signalName(e.Signal))
	}
	return fmt.Sprintf("Exit code: %d", e.Code)
}

func signalName(sig int) string {
	name := unix.SignalName(syscall.Signal(sig))
	if name == "" {
		return "unknown"
	}
	return name
}

// PtyHandle owns a child process attached to a pseudo-terminal.
// Reads and writes are delegated to helper goroutines behind non-blocking
// interfaces; the goroutines never observe session state.
type PtyHandle struct {
	cmd  *exec.Cmd
	ptmx *os.File

	readCh chan []byte

	writeMu      sync.Mutex
	writeQueue   [][]byte
	writeQueued  int
	writeSignal  chan struct{}
	writeStopped bool

	exitMu   sync.Mutex
	exitInfo *ExitInfo
	exitCh   chan struct{}
}

// Spawn launches command with args in a new PTY of the given size.
// env entries are added on top of the parent environment.
func Spawn(command string, args []string, cwd string, env map[string]string, cols, rows uint16) (*PtyHandle, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = cwd
	cmd.Env = buildEnv(env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, fmt.Errorf("failed to spawn %q in PTY: %w", command, err)
	}

	h := &PtyHandle{
		cmd:         cmd,
		ptmx:        ptmx,
		readCh:      make(chan []byte, 256),
		writeSignal: make(chan struct{}, 1),
		exitCh:      make(chan struct{}),
	}

	go h.readLoop()
	go h.writeLoop()
	go h.waitLoop()

	logging.Logger.Debug("Spawned process in PTY",
		"command", command, "pid", cmd.Process.Pid, "cwd", cwd, "cols", cols, "rows", rows)
	return h, nil
}

func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// readLoop forwards PTY output chunks into the read channel. It runs until
// the PTY closes; the channel close marks end of stream.
func (h *PtyHandle) readLoop() {
	defer close(h.readCh)
	buf := make([]byte, readChunkSize)
	for {
		n, err := h.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			h.readCh <- chunk
		}
		if err != nil {
			return
		}
	}
}

// writeLoop drains the write queue into the PTY
func (h *PtyHandle) writeLoop() {
	for {
		select {
		case <-h.writeSignal:
		case <-h.exitCh:
			// Flush whatever is already queued, then stop
		}

		for {
			h.writeMu.Lock()
			if len(h.writeQueue) == 0 {
				stopped := h.writeStopped
				h.writeMu.Unlock()
				if stopped {
					return
				}
				break
			}
			chunk := h.writeQueue[0]
			h.writeQueue = h.writeQueue[1:]
			h.writeQueued -= len(chunk)
			h.writeMu.Unlock()

			if _, err := h.ptmx.Write(chunk); err != nil {
				logging.Logger.Debug("PTY write failed", "error", err)
				h.writeMu.Lock()
				h.writeStopped = true
				h.writeQueue = nil
				h.writeQueued = 0
				h.writeMu.Unlock()
				return
			}
		}

		select {
		case <-h.exitCh:
			h.writeMu.Lock()
			h.writeStopped = true
			empty := len(h.writeQueue) == 0
			h.writeMu.Unlock()
			if empty {
				return
			}
		default:
		}
	}
}

// waitLoop reaps the child exactly once and records its exit status
func (h *PtyHandle) waitLoop() {
	err := h.cmd.Wait()
	info := exitInfoFromError(err)

	h.exitMu.Lock()
	h.exitInfo = &info
	h.exitMu.Unlock()
	close(h.exitCh)

	// Unblock the reader
	h.ptmx.Close()
}

func exitInfoFromError(err error) ExitInfo {
	if err == nil {
		return ExitInfo{Code: 0, Success: true}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				sig := int(ws.Signal())
				return ExitInfo{Code: 128 + sig, Signal: sig}
			}
			return ExitInfo{Code: ws.ExitStatus()}
		}
		return ExitInfo{Code: exitErr.ExitCode()}
	}

	// Wait itself failed; treat as abnormal exit
	return ExitInfo{Code: 255}
}

// TryRead returns available output without blocking.
// (nil, nil) means no data is currently available; (nil, io.EOF) means the
// stream is closed and fully drained.
func (h *PtyHandle) TryRead() ([]byte, error) {
	select {
	case chunk, ok := <-h.readCh:
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	default:
		return nil, nil
	}
}

// Write queues raw bytes for the PTY. Never blocks; returns
// ErrWriteQueueFull when more than the soft cap is already pending.
func (h *PtyHandle) Write(data []byte) error {
	return h.enqueue(data)
}

// WritePaste queues pasted text wrapped in bracketed paste markers
func (h *PtyHandle) WritePaste(text string) error {
	payload := make([]byte, 0, len(pasteStart)+len(text)+len(pasteEnd))
	payload = append(payload, pasteStart...)
	payload = append(payload, text...)
	payload = append(payload, pasteEnd...)
	return h.enqueue(payload)
}

func (h *PtyHandle) enqueue(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	h.writeMu.Lock()
	if h.writeStopped {
		h.writeMu.Unlock()
		return fmt.Errorf("failed to write to PTY: %w", io.ErrClosedPipe)
	}
	if h.writeQueued+len(data) > writeQueueCap {
		h.writeMu.Unlock()
		return ErrWriteQueueFull
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	h.writeQueue = append(h.writeQueue, chunk)
	h.writeQueued += len(chunk)
	h.writeMu.Unlock()

	select {
	case h.writeSignal <- struct{}{}:
	default:
	}
	return nil
}

// Resize changes the PTY dimensions
func (h *PtyHandle) Resize(cols, rows uint16) error {
	if err := pty.Setsize(h.ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return fmt.Errorf("failed to resize PTY: %w", err)
	}
	return nil
}

// IsAlive reports whether the child process is still running
func (h *PtyHandle) IsAlive() bool {
	select {
	case <-h.exitCh:
		return false
	default:
		return true
	}
}

// ExitStatus returns the exit info once the child has terminated, nil while
// it is still running
func (h *PtyHandle) ExitStatus() *ExitInfo {
	h.exitMu.Lock()
	defer h.exitMu.Unlock()
	return h.exitInfo
}

// Wait blocks until the child exits and returns its exit info
func (h *PtyHandle) Wait() ExitInfo {
	<-h.exitCh
	h.exitMu.Lock()
	defer h.exitMu.Unlock()
	return *h.exitInfo
}

// Kill terminates the child: SIGTERM first, escalating to SIGKILL after a
// short grace period
func (h *PtyHandle) Kill() error {
	if !h.IsAlive() {
		return nil
	}

	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to signal process: %w", err)
	}

	select {
	case <-h.exitCh:
		return nil
	case <-time.After(killGrace):
	}

	logging.Logger.Warn("Process ignored SIGTERM, escalating to SIGKILL", "pid", h.cmd.Process.Pid)
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill process: %w", err)
	}
	<-h.exitCh
	return nil
}

// Pid returns the child's process ID
func (h *PtyHandle) Pid() int {
	return h.cmd.Process.Pid
}

// ReplyWriter returns a writer for terminal query responses (emulator →
// child). Writes go through the same non-blocking queue as user input.
func (h *PtyHandle) ReplyWriter() io.Writer {
	return replyWriter{h}
}

type replyWriter struct{ h *PtyHandle }

func (w replyWriter) Write(p []byte) (int, error) {
	if err := w.h.enqueue(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
