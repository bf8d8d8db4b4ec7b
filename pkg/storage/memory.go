package storage

import (
	"sort"
	"sync"
)

// MemoryStore is a thread-safe in-memory record store.
//
// Use Cases:
//   - Unit testing (no disk I/O, fast cleanup)
//   - Loading a JSON record export into memory for one-shot analysis
//   - Datasets that fit entirely in RAM (most family trees do)
//
// All reads return deep copies so callers can never mutate stored records.
//
// Example:
//
//	store := storage.NewMemoryStore()
//	defer store.Close()
//
//	store.PutIndividual(&storage.Individual{ID: "@I1@", GivenName: "Alice"})
//	indi, err := store.GetIndividual("@I1@")
type MemoryStore struct {
	mu          sync.RWMutex
	individuals map[IndividualID]*Individual
	families    map[FamilyID]*Family
	closed      bool
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		individuals: make(map[IndividualID]*Individual),
		families:    make(map[FamilyID]*Family),
	}
}

// PutIndividual inserts or replaces an individual record.
func (s *MemoryStore) PutIndividual(indi *Individual) error {
	if indi == nil || indi.ID == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.individuals[indi.ID] = indi.Clone()
	return nil
}

// PutFamily inserts or replaces a family record.
func (s *MemoryStore) PutFamily(fam *Family) error {
	if fam == nil || fam.ID == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.families[fam.ID] = fam.Clone()
	return nil
}

// GetIndividual returns a copy of the individual, or ErrNotFound.
func (s *MemoryStore) GetIndividual(id IndividualID) (*Individual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	indi, ok := s.individuals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return indi.Clone(), nil
}

// GetFamily returns a copy of the family, or ErrNotFound.
func (s *MemoryStore) GetFamily(id FamilyID) (*Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	fam, ok := s.families[id]
	if !ok {
		return nil, ErrNotFound
	}
	return fam.Clone(), nil
}

// Individuals returns copies of all individual records, ordered by ID for
// deterministic builds.
func (s *MemoryStore) Individuals() ([]*Individual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]*Individual, 0, len(s.individuals))
	for _, indi := range s.individuals {
		out = append(out, indi.Clone())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

// Families returns copies of all family records, ordered by ID.
func (s *MemoryStore) Families() ([]*Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]*Family, 0, len(s.families))
	for _, fam := range s.families {
		out = append(out, fam.Clone())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

// IndividualCount returns the number of individual records.
func (s *MemoryStore) IndividualCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	return int64(len(s.individuals)), nil
}

// FamilyCount returns the number of family records.
func (s *MemoryStore) FamilyCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	return int64(len(s.families)), nil
}

// Close marks the store closed. Further operations fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
