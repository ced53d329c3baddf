// Package errors provides centralized error definitions and error handling
// utilities for the simulator supervisor. It defines sentinel errors for every
// lifecycle failure mode, a domain error type carrying simulator context, and
// a status-code classification mirroring the control binding's integer
// status convention.
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewSimulatorError("launch failed", errors.ErrSpawnFailed).WithPath(projectPath)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrInstanceLost) { ... }
//
//	var simErr *errors.SimulatorError
//	if errors.As(err, &simErr) { ... }
//
// Classifying for a process exit status:
//
//	os.Exit(int(errors.CodeOf(err)))
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Code is the integer status returned to callers that need the original
// binding's status-code convention. Zero means success; every failure mode
// has a distinct non-zero code.
type Code int

const (
	// CodeOK indicates success.
	CodeOK Code = iota
	// CodeSpawnFailed indicates the simulator binary could not be started.
	CodeSpawnFailed
	// CodeLaunchTimeout indicates the simulator never signalled readiness.
	CodeLaunchTimeout
	// CodeConfigRejected indicates the simulator refused its configuration.
	CodeConfigRejected
	// CodeUnknownHandle indicates a handle that was never issued.
	CodeUnknownHandle
	// CodeStaleHandle indicates a handle from a previous generation.
	CodeStaleHandle
	// CodeInstanceTerminated indicates the instance has already terminated.
	CodeInstanceTerminated
	// CodeInstanceLost indicates the simulator process died or stopped responding.
	CodeInstanceLost
	// CodeChannelError indicates a control-channel I/O failure.
	CodeChannelError
	// CodeCancelled indicates the caller cancelled a pending operation.
	CodeCancelled
	// CodeInternal indicates an unclassified internal failure.
	CodeInternal
)

// String returns the string representation of the status code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeSpawnFailed:
		return "spawn_failed"
	case CodeLaunchTimeout:
		return "launch_timeout"
	case CodeConfigRejected:
		return "config_rejected"
	case CodeUnknownHandle:
		return "unknown_handle"
	case CodeStaleHandle:
		return "stale_handle"
	case CodeInstanceTerminated:
		return "instance_terminated"
	case CodeInstanceLost:
		return "instance_lost"
	case CodeChannelError:
		return "channel_error"
	case CodeCancelled:
		return "cancelled"
	case CodeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Launch-related sentinel errors.
var (
	// ErrSpawnFailed indicates the simulator process could not be spawned.
	ErrSpawnFailed = New("simulator spawn failed")
	// ErrLaunchTimeout indicates the simulator did not signal readiness in time.
	ErrLaunchTimeout = New("timeout waiting for simulator to become ready")
	// ErrConfigRejected indicates the simulator rejected its configuration.
	ErrConfigRejected = New("simulator rejected configuration")
)

// Handle-validation sentinel errors. These are always local and never touch
// the simulator process.
var (
	// ErrUnknownHandle indicates a handle that was never issued by the manager.
	ErrUnknownHandle = New("unknown simulator handle")
	// ErrStaleHandle indicates a handle whose generation no longer matches
	// the live record for its process identity.
	ErrStaleHandle = New("stale simulator handle")
	// ErrInstanceTerminated indicates the instance behind the handle has
	// already terminated; the handle is permanently invalid.
	ErrInstanceTerminated = New("simulator instance terminated")
)

// Channel and process-loss sentinel errors.
var (
	// ErrInstanceLost indicates the simulator process exited or stopped
	// responding; the instance is irrecoverable.
	ErrInstanceLost = New("simulator instance lost")
	// ErrChannel indicates an I/O failure on the control channel.
	ErrChannel = New("control channel failure")
	// ErrCommandRejected indicates the simulator nacked a command.
	ErrCommandRejected = New("simulator rejected command")
)

// General sentinel errors.
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCancelled indicates that a pending operation was cancelled.
	ErrCancelled = New("operation cancelled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrShutdown indicates the manager is shutting down.
	ErrShutdown = New("manager is shutting down")
)

// CodeOf classifies an error into a status Code. A nil error is CodeOK;
// unrecognized errors are CodeInternal.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case Is(err, ErrSpawnFailed):
		return CodeSpawnFailed
	case Is(err, ErrLaunchTimeout):
		return CodeLaunchTimeout
	case Is(err, ErrConfigRejected):
		return CodeConfigRejected
	case Is(err, ErrUnknownHandle):
		return CodeUnknownHandle
	case Is(err, ErrStaleHandle):
		return CodeStaleHandle
	case Is(err, ErrInstanceTerminated):
		return CodeInstanceTerminated
	case Is(err, ErrInstanceLost):
		return CodeInstanceLost
	case Is(err, ErrChannel), Is(err, ErrCommandRejected):
		return CodeChannelError
	case Is(err, ErrCancelled):
		return CodeCancelled
	default:
		return CodeInternal
	}
}

// -----------------------------------------------------------------------------
// Domain Error
// -----------------------------------------------------------------------------

// SimulatorError represents an error from managing a simulator instance.
//
// Example:
//
//	err := errors.NewSimulatorError("launch failed", errors.ErrSpawnFailed)
//	err = err.WithPID(4242).WithPath("/work/proj")
type SimulatorError struct {
	message string
	cause   error
	PID     int
	Path    string
}

// NewSimulatorError creates a new SimulatorError wrapping cause.
func NewSimulatorError(message string, cause error) *SimulatorError {
	return &SimulatorError{
		message: message,
		cause:   cause,
	}
}

// WithPID adds the simulator process ID to the error context.
func (e *SimulatorError) WithPID(pid int) *SimulatorError {
	e.PID = pid
	return e
}

// WithPath adds the project or config path to the error context.
func (e *SimulatorError) WithPath(path string) *SimulatorError {
	e.Path = path
	return e
}

// Error returns the formatted error message.
func (e *SimulatorError) Error() string {
	var parts []string
	if e.PID != 0 {
		parts = append(parts, fmt.Sprintf("pid=%d", e.PID))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}

	prefix := "simulator error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("simulator error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *SimulatorError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *SimulatorError) Is(target error) bool {
	if _, ok := target.(*SimulatorError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for reset acknowledgment", 10*time.Second)
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	cause     error
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// ValidationError represents invalid input or state.
type ValidationError struct {
	message string
	Field   string
	Value   any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{message: message}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return errors.Is(target, ErrInvalidInput)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with an additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
