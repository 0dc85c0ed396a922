// Package entity provides the opaque widget identity used to address messages.
//
// An Entity is a plain value: copyable, comparable and totally ordered, so it
// can key maps and produce deterministic orderings. The Store hands out ids
// and tracks which entities are still alive.
package entity

import (
	"cmp"
	"slices"
	"strconv"
	"sync"
)

// Entity identifies a widget inside a running session.
type Entity uint32

// String returns a human-readable form of the entity.
func (e Entity) String() string {
	return "entity#" + strconv.FormatUint(uint64(e), 10)
}

// Compare orders two entities. It returns -1, 0 or +1.
func Compare(a, b Entity) int {
	return cmp.Compare(a, b)
}

// Sort sorts entities in ascending order in place.
func Sort(entities []Entity) {
	slices.SortFunc(entities, Compare)
}

// Store allocates entities and tracks their liveness.
// Ids are never reused within one Store. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	next  Entity
	alive map[Entity]struct{}
}

// NewStore creates an empty store. The first allocated entity is 1.
func NewStore() *Store {
	return &Store{
		next:  1,
		alive: make(map[Entity]struct{}),
	}
}

// Create allocates a new live entity.
func (s *Store) Create() Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.next
	s.next++
	s.alive[e] = struct{}{}
	return e
}

// Remove marks the entity as dead. Returns false if it was not alive.
func (s *Store) Remove(e Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alive[e]; !ok {
		return false
	}
	delete(s.alive, e)
	return true
}

// Contains reports whether the entity is alive.
func (s *Store) Contains(e Entity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.alive[e]
	return ok
}

// Len returns the number of live entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.alive)
}

// Entities returns a sorted snapshot of the live entities.
func (s *Store) Entities() []Entity {
	s.mu.RLock()
	out := make([]Entity, 0, len(s.alive))
	for e := range s.alive {
		out = append(out, e)
	}
	s.mu.RUnlock()

	Sort(out)
	return out
}
