package persona

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when an id does not resolve in the catalog.
var ErrNotFound = errors.New("persona not found")

// Store exposes read-only persona lookup.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	Get(id string) (Persona, error)
	Default() Persona
}

// MemoryStore implements Store over an in-memory catalog. The catalog can be
// swapped wholesale with Replace; it is never mutated in place.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Persona
	index map[string]int
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
// Later duplicates of an id are shadowed by the first occurrence; use Validate
// to reject such catalogs up front.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(items)
	return s
}

// Replace swaps in a new catalog.
func (s *MemoryStore) Replace(items []Persona) {
	copied := append([]Persona(nil), items...)
	index := make(map[string]int, len(copied))
	for i, item := range copied {
		if _, exists := index[item.ID]; !exists {
			index[item.ID] = i
		}
	}

	s.mu.Lock()
	s.items = copied
	s.index = index
	s.mu.Unlock()
}

// List returns the catalog in display order.
func (s *MemoryStore) List() []Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Persona{}, false
	}
	return s.items[i], true
}

// Get is FindByID with an error for unknown ids.
func (s *MemoryStore) Get(id string) (Persona, error) {
	p, ok := s.FindByID(id)
	if !ok {
		return Persona{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return p, nil
}

// Default returns the first catalog entry, or the zero Persona for an empty catalog.
func (s *MemoryStore) Default() Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		return Persona{}
	}
	return s.items[0]
}
