// Package projlock implements an advisory ownership registry for simulator
// project directories.
//
// A simulator instance runs inside a project directory and mutates it
// (checkpoints, caches, logs). Launching two instances against the same
// directory corrupts both, so the instance manager claims the directory
// before launch and releases it when the instance terminates. Claims are
// in-memory and advisory: they arbitrate between instances of one
// supervisor, not between separate supervisor processes.
//
// Claim and release each publish an event on the supervisor's event bus, so
// observers can follow directory ownership without polling.
package projlock
