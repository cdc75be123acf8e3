package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"argos/logging"
)

// DefaultChannelBuffer is the hook event channel capacity
const DefaultChannelBuffer = 1024

// shutdownTimeout bounds how long in-flight requests may linger on close
const shutdownTimeout = 3 * time.Second

// StatusKind enumerates the listener health states
type StatusKind int

const (
	// StatusBound means the listener acquired its port
	StatusBound StatusKind = iota
	// StatusRunning means the listener is serving
	StatusRunning
	// StatusStopped means the listener is down; Err carries the reason
	StatusStopped
)

// Status is a health report from the listener. The app renders a header
// warning when the listener stops.
type Status struct {
	Err  error
	Kind StatusKind
	Port uint16
}

// Listener is the local-only HTTP endpoint receiving hook callbacks.
// It never touches session state: events are forwarded over a bounded
// channel owned by the app loop.
type Listener struct {
	dropped atomic.Uint64
	events  chan Event
	health  chan Status
	port    uint16
	server  *http.Server
}

// NewListener creates a listener for the given loopback port
func NewListener(port uint16) *Listener {
	return &Listener{
		events: make(chan Event, DefaultChannelBuffer),
		health: make(chan Status, 8),
		port:   port,
	}
}

// Events returns the bounded event channel the app loop drains
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Health returns the status channel
func (l *Listener) Health() <-chan Status {
	return l.health
}

// DroppedEvents returns the count of events dropped due to a full channel
func (l *Listener) DroppedEvents() uint64 {
	return l.dropped.Load()
}

// Start binds to 127.0.0.1:<port> and serves in the background.
// A bind failure is returned immediately and names both the port and the
// configuration key to change.
func (l *Listener) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", l.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		err = fmt.Errorf("failed to bind hook listener on %s (is another instance running? change hook_port in config.toml): %w", addr, err)
		l.report(Status{Kind: StatusStopped, Port: l.port, Err: err})
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /hook", l.handleHook)

	l.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}

	l.report(Status{Kind: StatusBound, Port: l.port})
	logging.Logger.Info("Hook listener bound", "addr", addr)

	go func() {
		l.report(Status{Kind: StatusRunning, Port: l.port})
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Error("Hook listener stopped", "error", err)
			l.report(Status{Kind: StatusStopped, Port: l.port, Err: err})
			return
		}
		l.report(Status{Kind: StatusStopped, Port: l.port})
	}()

	return nil
}

// Stop shuts the listener down, letting in-flight requests finish within a
// bounded window
func (l *Listener) Stop() error {
	if l.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown hook listener: %w", err)
	}
	return nil
}

// handleHook decodes one callback and forwards it to the event channel.
// Malformed bodies get a 400; a full channel drops the event but still
// returns 200 so the child agent is never blocked.
func (l *Listener) handleHook(w http.ResponseWriter, r *http.Request) {
	var event Event
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024))
	if err := decoder.Decode(&event); err != nil {
		logging.Logger.Debug("Rejected malformed hook payload", "error", err)
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return
	}
	if event.SessionID == "" || event.EventName == "" {
		http.Error(w, "session_id and event are required", http.StatusBadRequest)
		return
	}

	logging.Logger.Debug("Received hook event",
		"session_id", event.SessionID, "event", event.EventName, "tool", event.Tool)

	select {
	case l.events <- event:
		w.WriteHeader(http.StatusOK)
	default:
		dropped := l.dropped.Add(1)
		logging.Logger.Warn("Hook event channel full, dropping event", "dropped_total", dropped)
		w.WriteHeader(http.StatusOK)
	}
}

func (l *Listener) report(s Status) {
	select {
	case l.health <- s:
	default:
		// Health reader is behind; stale reports may be dropped
	}
}
