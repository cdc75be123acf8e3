package session

// SpawnConfig carries everything an adapter needs to start a session child
type SpawnConfig struct {
	Cols          uint16
	HookPort      uint16
	HooksDir      string
	InitialPrompt string
	Rows          uint16
	SessionID     ID
	SessionName   string
	WorkingDir    string
}

// Adapter abstracts a child-process recipe: command, arguments, environment,
// and optional hook wiring. Implementations live in the agent package; the
// manager only depends on this narrow contract.
type Adapter interface {
	// Name is the display name of this agent
	Name() string

	// Key identifies the adapter in session metadata
	Key() string

	// Kind reports how sessions of this adapter track state
	Kind() Kind

	// Command is the executable to launch
	Command() string

	// Args returns the command-line arguments for a spawn
	Args(cfg SpawnConfig) []string

	// Env returns extra environment variables for the child
	Env(cfg SpawnConfig) map[string]string

	// SupportsHooks reports whether the agent emits lifecycle callbacks
	SupportsHooks() bool

	// SetupHooks installs callback scripts and per-session configuration.
	// Returns the paths created for the session, for cleanup on destroy.
	SetupHooks(cfg SpawnConfig) ([]string, error)

	// Spawn launches the child in a PTY
	Spawn(cfg SpawnConfig) (*PtyHandle, error)
}
