// Package optimistic implements the client-side reconciliation protocol for
// collaboratively edited entity collections: per-collection overlay stores
// whose view is the last authoritative snapshot plus pending local edits, and
// a coordinator that drives each user mutation from optimistic application
// through commit or rollback once the authoritative outcome is known.
package optimistic

import (
	"sync"
)

// Entity is the minimal contract for values managed by a Store.
// Implementations should be plain value types; the store never mutates them.
type Entity interface {
	EntityID() string
}

// Store maintains the reconciled view of one homogeneous entity collection.
// The baseline snapshot is owned externally and changes only via Reset (a
// full refresh); everything between refreshes is an overlay of Apply calls.
//
// Every operation is idempotent against repeated application with the same
// arguments: deleting twice, or restoring twice, does not corrupt state.
// Rollback paths and success paths can race, so this is load-bearing.
//
// Apply runs to completion under the store lock, which gives the same
// guarantee as a single-threaded reducer: readers never observe a half-applied
// transform.
type Store[E Entity] struct {
	mu   sync.RWMutex
	view []E

	// baseIndex records each entity's position in the last authoritative
	// snapshot. Restore consults it so a rolled-back delete lands at the
	// entity's original index.
	baseIndex map[string]int
}

// NewStore creates a store seeded with the authoritative snapshot.
func NewStore[E Entity](snapshot []E) *Store[E] {
	s := &Store[E]{}
	s.reset(snapshot)
	return s
}

// Reset replaces the baseline snapshot and discards the overlay wholesale.
// Called on a full refresh of the owning view; a stale optimistic edit
// surviving past a refresh is superseded here.
func (s *Store[E]) Reset(snapshot []E) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(snapshot)
}

func (s *Store[E]) reset(snapshot []E) {
	s.view = make([]E, len(snapshot))
	copy(s.view, snapshot)
	s.baseIndex = make(map[string]int, len(snapshot))
	for i, e := range snapshot {
		s.baseIndex[e.EntityID()] = i
	}
}

// Apply executes one action against the view. Unknown targets are no-ops;
// error handling is the caller's responsibility.
func (s *Store[E]) Apply(a Action[E]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch act := a.(type) {
	case Add[E]:
		if s.indexOf(act.Entity.EntityID()) >= 0 {
			return
		}
		if act.At == Head {
			s.view = append([]E{act.Entity}, s.view...)
		} else {
			s.view = append(s.view, act.Entity)
		}

	case Delete[E]:
		i := s.indexOf(act.ID)
		if i < 0 {
			return
		}
		s.view = append(s.view[:i:i], s.view[i+1:]...)

	case Restore[E]:
		if s.indexOf(act.ID) >= 0 {
			return
		}
		at, known := s.baseIndex[act.ID]
		if !known || at > len(s.view) {
			s.view = append(s.view, act.Entity)
			return
		}
		rest := make([]E, len(s.view[at:]))
		copy(rest, s.view[at:])
		s.view = append(append(s.view[:at:at], act.Entity), rest...)

	case Replace[E]:
		i := s.indexOf(act.ID)
		if i < 0 {
			return
		}
		s.view[i] = act.Entity

	case Update[E]:
		i := s.indexOf(act.ID)
		if i < 0 || act.Fn == nil {
			return
		}
		s.view[i] = act.Fn(s.view[i])
	}
}

// View returns a copy of the current reconciled collection.
func (s *Store[E]) View() []E {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]E, len(s.view))
	copy(out, s.view)
	return out
}

// Get returns the entity with the given id from the current view.
func (s *Store[E]) Get(id string) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.view[i], true
	}
	var zero E
	return zero, false
}

// Len returns the number of entities in the current view.
func (s *Store[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.view)
}

// indexOf returns the view index for id, or -1. Callers hold the lock.
func (s *Store[E]) indexOf(id string) int {
	for i, e := range s.view {
		if e.EntityID() == id {
			return i
		}
	}
	return -1
}
