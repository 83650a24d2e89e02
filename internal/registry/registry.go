// Package registry tracks the set of currently live connections and hands out
// point-in-time snapshots of that set for broadcast.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateConnection is returned by Add when a member with the same ID is
// already registered.
var ErrDuplicateConnection = errors.New("duplicate connection")

// Member is anything the registry can hold. IDs must be unique for the
// lifetime of the member.
type Member interface {
	ID() string
}

// Registry is a mutex-guarded membership set. The zero value is not usable;
// create one with New.
type Registry[T Member] struct {
	mu      sync.RWMutex
	members map[string]T
}

// New returns an empty Registry.
func New[T Member]() *Registry[T] {
	return &Registry[T]{
		members: make(map[string]T),
	}
}

// Add inserts m into the set. It fails with ErrDuplicateConnection if a
// member with the same ID is already present.
func (r *Registry[T]) Add(m T) error {
	id := m.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateConnection, id)
	}
	r.members[id] = m
	return nil
}

// Remove deletes m from the set and reports whether it was present.
// Removing an absent member is a no-op.
func (r *Registry[T]) Remove(m T) bool {
	id := m.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[id]; !exists {
		return false
	}
	delete(r.members, id)
	return true
}

// Snapshot returns a copy of the current membership. The returned slice is
// owned by the caller and is unaffected by later Add or Remove calls.
func (r *Registry[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]T, 0, len(r.members))
	for _, m := range r.members {
		snapshot = append(snapshot, m)
	}
	return snapshot
}

// Len returns the current number of members.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.members)
}
