package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "instance.ready").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Event type identifiers published by the supervisor.
const (
	TypeInstanceReady      = "instance.ready"
	TypeStateChanged       = "instance.state_changed"
	TypeInstanceTerminated = "instance.terminated"
	TypeCommandFailed      = "instance.command_failed"
	TypeProjectClaimed     = "project.claimed"
	TypeProjectReleased    = "project.released"
)

// InstanceReadyEvent is emitted when a simulator instance completes its
// readiness handshake and enters the ready state.
type InstanceReadyEvent struct {
	baseEvent
	Handle      string // Handle of the new instance
	PID         int    // OS process ID of the simulator
	ProjectPath string // Project directory the simulator runs in
	ConfigPath  string // Configuration file passed to the simulator
}

// NewInstanceReadyEvent creates an InstanceReadyEvent.
func NewInstanceReadyEvent(handle string, pid int, projectPath, configPath string) InstanceReadyEvent {
	return InstanceReadyEvent{
		baseEvent:   newBaseEvent(TypeInstanceReady),
		Handle:      handle,
		PID:         pid,
		ProjectPath: projectPath,
		ConfigPath:  configPath,
	}
}

// StateChangedEvent is emitted when a command acknowledgment moves an
// instance between lifecycle states.
type StateChangedEvent struct {
	baseEvent
	Handle  string // Handle of the instance
	From    string // Previous lifecycle state
	To      string // New lifecycle state
	Command string // Command that caused the transition
}

// NewStateChangedEvent creates a StateChangedEvent.
func NewStateChangedEvent(handle, from, to, command string) StateChangedEvent {
	return StateChangedEvent{
		baseEvent: newBaseEvent(TypeStateChanged),
		Handle:    handle,
		From:      from,
		To:        to,
		Command:   command,
	}
}

// InstanceTerminatedEvent is emitted when an instance reaches its terminal
// state, whether by explicit stop, process death, or channel failure.
type InstanceTerminatedEvent struct {
	baseEvent
	Handle string // Handle of the terminated instance
	Reason string // Why the instance terminated (e.g., "explicit stop")
}

// NewInstanceTerminatedEvent creates an InstanceTerminatedEvent.
func NewInstanceTerminatedEvent(handle, reason string) InstanceTerminatedEvent {
	return InstanceTerminatedEvent{
		baseEvent: newBaseEvent(TypeInstanceTerminated),
		Handle:    handle,
		Reason:    reason,
	}
}

// CommandFailedEvent is emitted when a command exchange fails without
// terminating the instance, i.e. the simulator nacked it.
type CommandFailedEvent struct {
	baseEvent
	Handle  string // Handle of the instance
	Command string // Command that failed
	Error   string // Failure description
}

// NewCommandFailedEvent creates a CommandFailedEvent.
func NewCommandFailedEvent(handle, command, errMsg string) CommandFailedEvent {
	return CommandFailedEvent{
		baseEvent: newBaseEvent(TypeCommandFailed),
		Handle:    handle,
		Command:   command,
		Error:     errMsg,
	}
}

// ProjectClaimedEvent is emitted when an instance claims exclusive use of a
// project directory.
type ProjectClaimedEvent struct {
	baseEvent
	Handle      string // Handle of the claiming instance
	ProjectPath string // Claimed project directory
}

// NewProjectClaimedEvent creates a ProjectClaimedEvent.
func NewProjectClaimedEvent(handle, projectPath string) ProjectClaimedEvent {
	return ProjectClaimedEvent{
		baseEvent:   newBaseEvent(TypeProjectClaimed),
		Handle:      handle,
		ProjectPath: projectPath,
	}
}

// ProjectReleasedEvent is emitted when a project directory claim is
// relinquished.
type ProjectReleasedEvent struct {
	baseEvent
	Handle      string // Handle of the releasing instance
	ProjectPath string // Released project directory
}

// NewProjectReleasedEvent creates a ProjectReleasedEvent.
func NewProjectReleasedEvent(handle, projectPath string) ProjectReleasedEvent {
	return ProjectReleasedEvent{
		baseEvent:   newBaseEvent(TypeProjectReleased),
		Handle:      handle,
		ProjectPath: projectPath,
	}
}
