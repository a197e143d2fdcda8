package activities

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps rosters in memory only (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	defs    map[string]Definition
	rosters map[string][]string
}

// NewMemoryStore creates a MemoryStore seeded from the given catalog.
// The catalog is assumed to have passed ValidateCatalog.
func NewMemoryStore(catalog []Definition) *MemoryStore {
	s := &MemoryStore{
		defs:    make(map[string]Definition, len(catalog)),
		rosters: make(map[string][]string, len(catalog)),
	}
	for _, d := range catalog {
		d.Participants = slices.Clone(d.Participants)
		s.defs[d.Name] = d
	}
	s.seed()
	return s
}

// seed resets every roster to its definition. Callers must hold mu.
func (s *MemoryStore) seed() {
	for name, d := range s.defs {
		s.rosters[name] = slices.Clone(d.Participants)
	}
}

// Activities returns a copy of every activity keyed by name.
func (s *MemoryStore) Activities(_ context.Context) (map[string]Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]Activity, len(s.defs))
	for name, d := range s.defs {
		result[name] = d.activity(slices.Clone(s.rosters[name]))
	}
	return result, nil
}

// Signup adds email to the named activity's roster.
func (s *MemoryStore) Signup(_ context.Context, name, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.defs[name]; !ok {
		return 0, ErrActivityNotFound
	}
	roster := s.rosters[name]
	if slices.Contains(roster, email) {
		return len(roster), ErrAlreadyRegistered
	}
	s.rosters[name] = append(roster, email)
	return len(s.rosters[name]), nil
}

// Unregister removes email from the named activity's roster.
func (s *MemoryStore) Unregister(_ context.Context, name, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.defs[name]; !ok {
		return 0, ErrActivityNotFound
	}
	roster := s.rosters[name]
	i := slices.Index(roster, email)
	if i < 0 {
		return len(roster), ErrNotRegistered
	}
	s.rosters[name] = slices.Delete(roster, i, i+1)
	return len(s.rosters[name]), nil
}

// Reset restores every roster to its seeded participants.
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seed()
	return nil
}
