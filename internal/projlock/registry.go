package projlock

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/simsup/simsup/internal/event"
)

// Registry tracks which instance owns each simulator project directory.
// A simulator mutates its project directory while it runs, so two live
// instances must never share one. Claims are advisory and in-memory: they
// protect instances of one supervisor, not separate supervisor processes.
type Registry struct {
	mu       sync.RWMutex
	claims   map[string]Claim // cleaned project path -> claim
	bus      *event.Bus
	handlers []func(Claim)
}

// NewRegistry creates a Registry that publishes claim and release events on
// the given bus.
func NewRegistry(bus *event.Bus) *Registry {
	return &Registry{
		claims: make(map[string]Claim),
		bus:    bus,
	}
}

// Claim registers ownership of a project directory for the given instance.
// Returns ErrAlreadyClaimed if the directory is owned by a different
// instance. Re-claiming a directory the instance already owns is a no-op.
func (r *Registry) Claim(handle, projectPath string) error {
	path := filepath.Clean(projectPath)

	r.mu.Lock()
	if existing, ok := r.claims[path]; ok {
		r.mu.Unlock()
		if existing.Handle == handle {
			return nil
		}
		return fmt.Errorf("%w: %s owns %s", ErrAlreadyClaimed, existing.Handle, path)
	}
	claim := Claim{
		Handle:      handle,
		ProjectPath: path,
		ClaimedAt:   time.Now(),
	}
	r.claims[path] = claim
	r.mu.Unlock()

	// Publish outside the lock; handlers may call back into the registry.
	r.bus.Publish(event.NewProjectClaimedEvent(handle, path))
	r.notifyHandlers(claim)
	return nil
}

// Release relinquishes ownership of a project directory for the given
// instance. Returns ErrNotClaimed if the directory is not claimed, or
// ErrNotOwner if it is claimed by a different instance.
func (r *Registry) Release(handle, projectPath string) error {
	path := filepath.Clean(projectPath)

	r.mu.Lock()
	existing, ok := r.claims[path]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotClaimed, path)
	}
	if existing.Handle != handle {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s owns %s", ErrNotOwner, existing.Handle, path)
	}
	delete(r.claims, path)
	r.mu.Unlock()

	r.bus.Publish(event.NewProjectReleasedEvent(handle, path))
	return nil
}

// ReleaseAll relinquishes every project directory owned by the given
// instance. Releasing for an instance with no claims is not an error.
func (r *Registry) ReleaseAll(handle string) {
	r.mu.Lock()
	var released []string
	for path, claim := range r.claims {
		if claim.Handle == handle {
			released = append(released, path)
			delete(r.claims, path)
		}
	}
	r.mu.Unlock()

	// Sort for deterministic event order.
	sort.Strings(released)
	for _, path := range released {
		r.bus.Publish(event.NewProjectReleasedEvent(handle, path))
	}
}

// Owner returns the handle that owns the project directory and true, or
// ("", false) if the directory is unclaimed.
func (r *Registry) Owner(projectPath string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	claim, ok := r.claims[filepath.Clean(projectPath)]
	if !ok {
		return "", false
	}
	return claim.Handle, true
}

// IsAvailable returns true if the project directory is not claimed.
func (r *Registry) IsAvailable(projectPath string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.claims[filepath.Clean(projectPath)]
	return !ok
}

// Claims returns all current claims, sorted by project path.
func (r *Registry) Claims() []Claim {
	r.mu.RLock()
	defer r.mu.RUnlock()

	claims := make([]Claim, 0, len(r.claims))
	for _, claim := range r.claims {
		claims = append(claims, claim)
	}
	sort.Slice(claims, func(i, j int) bool {
		return claims[i].ProjectPath < claims[j].ProjectPath
	})
	return claims
}

// WatchClaims registers a handler that is called whenever a claim is
// established. Handlers run outside the registry's lock; they may safely
// call read methods like Owner and IsAvailable without deadlocking.
func (r *Registry) WatchClaims(handler func(Claim)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = append(r.handlers, handler)
}

// notifyHandlers calls all registered claim handlers outside the write lock.
func (r *Registry) notifyHandlers(claim Claim) {
	r.mu.RLock()
	handlers := make([]func(Claim), len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	for _, h := range handlers {
		h(claim)
	}
}
