// Package instance implements the supervisor's instance manager: the
// authoritative keeper of the handle table for live simulator processes.
//
// The Manager owns every mutation of instance state. Callers hold only
// opaque Handle copies; all lifecycle operations validate the handle against
// the live table before any command reaches a process. Commands for one
// instance are serialized on the instance's own lock, while distinct
// instances proceed fully in parallel. Every externally visible transition
// is published on the manager's event bus after the relevant locks are
// released.
package instance

import (
	"context"
	"sync"

	"github.com/simsup/simsup/internal/errors"
	"github.com/simsup/simsup/internal/event"
	"github.com/simsup/simsup/internal/launcher"
	"github.com/simsup/simsup/internal/logging"
	"github.com/simsup/simsup/internal/projlock"
	"github.com/simsup/simsup/internal/protocol"
)

// record is the Manager's internal bookkeeping for one live instance.
// The record mutex serializes channel use and state transitions; the
// simulator's control loop is single-threaded and does not tolerate
// interleaved requests.
type record struct {
	mu          sync.Mutex
	handle      Handle
	proc        launcher.Process
	channel     launcher.Channel
	state       State
	projectPath string
	configPath  string
}

// Manager supervises simulator instances: it issues handles, validates
// lifecycle transitions, and forwards commands over each instance's control
// channel. It is safe for concurrent use.
type Manager struct {
	logger   *logging.Logger
	launcher launcher.Launcher
	bus      *event.Bus
	projects *projlock.Registry

	// mu guards the handle table, the generation counter, and the
	// shutdown flag. It is never held across a channel exchange.
	mu       sync.Mutex
	records  map[Handle]*record
	lastGen  uint64
	shutdown bool
}

// NewManager creates a Manager that launches simulators through l.
// A nil logger disables logging.
func NewManager(l launcher.Launcher, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	bus := event.NewBus()
	return &Manager{
		logger:   logger,
		launcher: l,
		bus:      bus,
		projects: projlock.NewRegistry(bus),
		records:  make(map[Handle]*record),
	}
}

// Events returns the bus on which the manager publishes lifecycle events.
// Handlers run synchronously after the manager has released its locks, so
// they may call back into the manager's read methods.
func (m *Manager) Events() *event.Bus {
	return m.bus
}

// Projects returns the registry of project directory claims.
func (m *Manager) Projects() *projlock.Registry {
	return m.projects
}

// Init launches a new simulator instance for the given project and config
// paths and returns its handle. The project directory is claimed for the
// instance's lifetime; the config path is forwarded opaquely, its content
// validity is the simulator's concern. On launch failure no record is
// created and no process is left running.
func (m *Manager) Init(ctx context.Context, projectPath, configPath string) (Handle, error) {
	if projectPath == "" {
		return Handle{}, errors.NewValidationError("project path must not be empty").WithField("projectPath")
	}
	if configPath == "" {
		return Handle{}, errors.NewValidationError("config path must not be empty").WithField("configPath")
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return Handle{}, errors.ErrShutdown
	}
	m.mu.Unlock()

	// Fail fast before spawning a process whose project is taken. The
	// post-launch claim below is the authoritative check.
	if owner, ok := m.projects.Owner(projectPath); ok {
		return Handle{}, errors.NewSimulatorError("project directory in use by "+owner, errors.ErrSpawnFailed).
			WithPath(projectPath)
	}

	proc, channel, err := m.launcher.Launch(ctx, projectPath, configPath)
	if err != nil {
		m.logger.Warn("simulator launch failed",
			"project", projectPath,
			"config", configPath,
			"error", err.Error())
		return Handle{}, err
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		m.teardown(proc, channel)
		return Handle{}, errors.ErrShutdown
	}
	m.lastGen++
	handle := Handle{PID: proc.PID(), Generation: m.lastGen}
	rec := &record{
		handle:      handle,
		proc:        proc,
		channel:     channel,
		state:       StateReady,
		projectPath: projectPath,
		configPath:  configPath,
	}
	// Insert before claiming so claim-event handlers can already resolve
	// the handle through the table.
	m.records[handle] = rec
	m.mu.Unlock()

	if err := m.projects.Claim(handle.String(), projectPath); err != nil {
		// The handle was never returned to anyone; drop the record again.
		m.mu.Lock()
		delete(m.records, handle)
		m.mu.Unlock()
		m.teardown(proc, channel)
		return Handle{}, errors.NewSimulatorError("project directory in use", errors.ErrSpawnFailed).
			WithPath(projectPath)
	}

	// Shutdown may have drained the table while the claim was being
	// established; the record is then already terminated.
	rec.mu.Lock()
	drained := rec.state == StateTerminated
	rec.mu.Unlock()
	if drained {
		m.projects.ReleaseAll(handle.String())
		return Handle{}, errors.ErrShutdown
	}

	go m.reap(rec)

	m.logger.WithSimulator(handle.String()).Info("simulator instance ready",
		"pid", handle.PID,
		"project", projectPath,
		"config", configPath)
	m.bus.Publish(event.NewInstanceReadyEvent(handle.String(), handle.PID, projectPath, configPath))

	return handle, nil
}

// teardown disposes of a launched process that never made it into the table.
func (m *Manager) teardown(proc launcher.Process, channel launcher.Channel) {
	_ = channel.Close()
	_ = proc.Kill()
	_ = proc.Wait()
}

// Reset returns the instance to its initial state. It blocks until the
// simulator acknowledges, the configured command timeout passes, or ctx is
// cancelled. On acknowledgment the instance is Ready regardless of whether
// it was Running.
func (m *Manager) Reset(ctx context.Context, h Handle) error {
	return m.command(ctx, h, protocol.KindReset, StateReady)
}

// Run starts simulation on the instance. Run blocks only until the
// simulator accepts the command; execution continues asynchronously
// relative to this call.
func (m *Manager) Run(ctx context.Context, h Handle) error {
	return m.command(ctx, h, protocol.KindRun, StateRunning)
}

// command validates the handle, probes liveness, and forwards one command
// over the instance's channel, transitioning to next on acknowledgment.
func (m *Manager) command(ctx context.Context, h Handle, kind protocol.Kind, next State) error {
	rec, err := m.lookup(h)
	if err != nil {
		return err
	}

	rec.mu.Lock()

	if rec.state == StateTerminated {
		rec.mu.Unlock()
		return errors.ErrInstanceTerminated
	}

	// Shortcut dead processes with an immediate failure instead of waiting
	// out a channel I/O timeout.
	if !rec.proc.Alive() {
		m.terminateLocked(rec, "process exited")
		rec.mu.Unlock()
		m.announceTermination(rec, "process exited")
		return errors.NewSimulatorError("simulator process exited", errors.ErrInstanceLost).
			WithPID(h.PID)
	}

	if err := rec.channel.Send(ctx, kind); err != nil {
		switch {
		case errors.Is(err, errors.ErrCommandRejected):
			// A nack is a clean, complete exchange; the instance stays
			// controllable in its previous state.
			rec.mu.Unlock()
			m.bus.Publish(event.NewCommandFailedEvent(h.String(), string(kind), err.Error()))
			return err
		case errors.Is(err, errors.ErrCancelled):
			// The exchange was abandoned midway; the channel can no longer
			// be trusted to be in sync.
			m.terminateLocked(rec, "command cancelled")
			rec.mu.Unlock()
			m.announceTermination(rec, "command cancelled")
			return err
		default:
			m.terminateLocked(rec, "channel failure")
			rec.mu.Unlock()
			m.announceTermination(rec, "channel failure")
			return errors.NewSimulatorError("simulator unreachable", errors.ErrInstanceLost).
				WithPID(h.PID)
		}
	}

	prev := rec.state
	rec.state = next
	rec.mu.Unlock()

	m.logger.WithSimulator(h.String()).Debug("command acknowledged",
		"command", string(kind),
		"state", next.String())
	m.bus.Publish(event.NewStateChangedEvent(h.String(), prev.String(), next.String(), string(kind)))
	return nil
}

// Stop tears down one instance. The record stays in the table so later
// calls against the handle fail with ErrInstanceTerminated. Stopping an
// already-terminated instance is not an error.
func (m *Manager) Stop(h Handle) error {
	rec, err := m.lookup(h)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	if rec.state == StateTerminated {
		rec.mu.Unlock()
		return nil
	}
	m.terminateLocked(rec, "explicit stop")
	rec.mu.Unlock()

	m.announceTermination(rec, "explicit stop")
	return nil
}

// Shutdown tears down all live instances and rejects subsequent Init calls.
// It is safe to call Shutdown more than once.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.shutdown = true
	recs := make([]*record, 0, len(m.records))
	for _, rec := range m.records {
		recs = append(recs, rec)
	}
	m.mu.Unlock()

	for _, rec := range recs {
		rec.mu.Lock()
		terminated := rec.state != StateTerminated
		if terminated {
			m.terminateLocked(rec, "manager shutdown")
		}
		rec.mu.Unlock()

		if terminated {
			m.announceTermination(rec, "manager shutdown")
		}
	}
}

// State returns the lifecycle state of the instance behind h.
func (m *Manager) State(h Handle) (State, error) {
	rec, err := m.lookup(h)
	if err != nil {
		return StateTerminated, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state, nil
}

// Handles returns the handles of all instances the manager has issued,
// including terminated ones.
func (m *Manager) Handles() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	handles := make([]Handle, 0, len(m.records))
	for h := range m.records {
		handles = append(handles, h)
	}
	return handles
}

// lookup resolves a handle to its record. An issued handle whose process
// identity is now bound to a different generation is stale; a handle the
// manager never issued is unknown. Both checks are local and never touch
// the process.
func (m *Manager) lookup(h Handle) (*record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[h]; ok {
		return rec, nil
	}
	if h.IsZero() {
		return nil, errors.ErrUnknownHandle
	}
	for _, rec := range m.records {
		if rec.handle.PID == h.PID {
			return nil, errors.ErrStaleHandle
		}
	}
	return nil, errors.ErrUnknownHandle
}

// terminateLocked transitions a record to Terminated, closes its channel,
// and kills the process. Callers must hold rec.mu and call
// announceTermination after releasing it. Terminated is terminal; there is
// no automatic respawn because simulator state cannot be safely
// reconstructed.
func (m *Manager) terminateLocked(rec *record, reason string) {
	rec.state = StateTerminated
	_ = rec.channel.Close()
	if err := rec.proc.Kill(); err != nil {
		m.logger.Warn("failed to kill simulator process",
			"pid", rec.handle.PID,
			"error", err.Error())
	}
	m.logger.WithSimulator(rec.handle.String()).Info("simulator instance terminated",
		"reason", reason)
}

// announceTermination releases the record's project claim and publishes the
// termination event. Must be called without rec.mu held so event handlers
// can query the manager.
func (m *Manager) announceTermination(rec *record, reason string) {
	m.projects.ReleaseAll(rec.handle.String())
	m.bus.Publish(event.NewInstanceTerminatedEvent(rec.handle.String(), reason))
}

// reap blocks until the instance's process exits and marks the record
// Terminated, so death is noticed even between commands.
func (m *Manager) reap(rec *record) {
	_ = rec.proc.Wait()

	rec.mu.Lock()
	exited := rec.state != StateTerminated
	if exited {
		rec.state = StateTerminated
		_ = rec.channel.Close()
		m.logger.WithSimulator(rec.handle.String()).Warn("simulator process exited unexpectedly",
			"pid", rec.handle.PID)
	}
	rec.mu.Unlock()

	if exited {
		m.announceTermination(rec, "process exited")
	}
}
