package projlock

import (
	"errors"
	"time"
)

// Sentinel errors returned by registry operations.
var (
	// ErrAlreadyClaimed is returned when a project directory is already
	// claimed by another instance.
	ErrAlreadyClaimed = errors.New("project directory already claimed by another instance")

	// ErrNotOwner is returned when an instance tries to release a project
	// directory it does not own.
	ErrNotOwner = errors.New("instance does not own this project directory")

	// ErrNotClaimed is returned when an instance tries to release an
	// unclaimed project directory.
	ErrNotClaimed = errors.New("project directory is not claimed")
)

// Claim represents an ownership claim on a project directory.
type Claim struct {
	Handle      string    // Instance that owns the claim
	ProjectPath string    // Claimed project directory (cleaned)
	ClaimedAt   time.Time // When the claim was established
}
