// Package event provides a pub-sub event bus for decoupled observation of
// simulator instance lifecycles.
//
// The instance manager publishes an event for every externally visible
// transition; observers (CLI progress output, log followers) subscribe
// without the manager knowing who is watching. Handlers are invoked
// synchronously, after the manager has released its locks, so a handler may
// safely call back into the manager's read methods.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Instance Lifecycle:
//   - [InstanceReadyEvent]: Emitted when a simulator completes its readiness handshake
//   - [StateChangedEvent]: Emitted when a command moves an instance between states
//   - [InstanceTerminatedEvent]: Emitted when an instance reaches its terminal state
//   - [CommandFailedEvent]: Emitted when the simulator nacks a command
//
// Project Claims:
//   - [ProjectClaimedEvent]: Emitted when an instance claims a project directory
//   - [ProjectReleasedEvent]: Emitted when a claim is relinquished
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Multiple goroutines can publish
// and subscribe concurrently. Handlers are called synchronously and protected
// against panics - a panicking handler will not prevent other handlers from
// being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	// Subscribe to specific event types
//	bus.Subscribe(event.TypeInstanceTerminated, func(e event.Event) {
//	    term := e.(event.InstanceTerminatedEvent)
//	    log.Printf("instance %s terminated: %s", term.Handle, term.Reason)
//	})
//
//	// Subscribe to all events (useful for logging)
//	bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("event: %s at %v", e.EventType(), e.Timestamp())
//	})
//
//	// Unsubscribe when done
//	id := bus.Subscribe(event.TypeStateChanged, handler)
//	bus.Unsubscribe(id)
package event
