package instance

import "fmt"

// Handle is an opaque identifier for one live simulator instance.
//
// A Handle pairs the OS process identity with a generation counter minted by
// the Manager. The OS reuses process IDs after exit, so a raw PID is a
// stale-identity hazard; the generation makes every issued handle unique for
// the lifetime of its Manager. The zero Handle is never issued and always
// fails validation.
type Handle struct {
	PID        int
	Generation uint64
}

// String returns a human-readable form of the handle.
func (h Handle) String() string {
	return fmt.Sprintf("sim-%d.%d", h.PID, h.Generation)
}

// IsZero reports whether the handle is the zero value.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// State represents the lifecycle state of a simulator instance.
type State int

const (
	// StateInitializing indicates the instance is mid-launch and not yet
	// accepting commands.
	StateInitializing State = iota

	// StateReady indicates the instance is idle and accepting commands.
	StateReady

	// StateRunning indicates the instance accepted a run command and is
	// executing asynchronously.
	StateRunning

	// StateTerminated indicates the instance has exited or been torn down.
	// Terminated is terminal: the handle is permanently invalid.
	StateTerminated
)

// String returns a human-readable string for the state.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
