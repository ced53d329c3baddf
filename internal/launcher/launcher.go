// Package launcher owns the mechanics of spawning a simulator process,
// wiring its control channel, and probing process liveness.
//
// The bootstrap sequence mirrors the simulator's control protocol: the
// launcher listens on a unix domain socket, hands the socket path to the
// child through the SIMSUP_CONTROL_SOCKET environment variable, and waits
// for the child to connect and send a ready frame within a bounded timeout.
//
// The package uses interface-based design to:
//   - Enable unit testing the instance manager with fake implementations
//   - Separate spawning concerns from command transport concerns
package launcher

import (
	"context"

	"github.com/simsup/simsup/internal/protocol"
)

// ControlSocketEnv is the environment variable naming the unix socket the
// simulator must connect back to during startup.
const ControlSocketEnv = "SIMSUP_CONTROL_SOCKET"

// Process is a handle on a spawned simulator process.
//
// Implementations must be safe for concurrent use: the instance manager
// probes liveness from command paths while a reaper goroutine blocks in Wait.
type Process interface {
	// PID returns the OS process identifier.
	PID() int

	// Alive reports whether the process is still running. This is a
	// lightweight probe (signal-0 check) and may race with process exit;
	// callers treat a true result as advisory only.
	Alive() bool

	// Kill forcefully terminates the process. It is safe to call Kill on a
	// process that has already exited.
	Kill() error

	// Wait blocks until the process exits and reaps it. Wait may be called
	// from multiple goroutines; all callers observe the same result.
	Wait() error
}

// Channel is a bidirectional control channel to a simulator process.
//
// Commands on one channel are strictly sequential: Send holds an exclusive
// lock for the full request/response exchange, so the simulator never
// observes interleaved command bytes.
type Channel interface {
	// Send writes one command frame and blocks for the simulator's framed
	// response. It returns nil on ack, ErrCommandRejected on nack,
	// ErrChannel on I/O failure, a timeout error when the response deadline
	// passes, and ErrCancelled when ctx is cancelled.
	Send(ctx context.Context, kind protocol.Kind) error

	// Close tears down the channel. Pending and subsequent Sends fail.
	Close() error
}

// Launcher spawns simulator processes and establishes their control channels.
type Launcher interface {
	// Launch spawns the simulator for the given project and config paths and
	// completes the readiness handshake. On any failure no process is left
	// running and no channel is returned.
	Launch(ctx context.Context, projectPath, configPath string) (Process, Channel, error)
}
