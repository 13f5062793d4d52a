package store

import (
	"context"
	"sort"
	"sync"

	"kycgate/internal/roles/models"
	"kycgate/pkg/domain"
)

// InMemory keeps capability assignments in a map guarded by a RWMutex.
type InMemory struct {
	mu          sync.RWMutex
	assignments map[domain.Identity]map[domain.Capability]models.Assignment
}

func NewInMemory() *InMemory {
	return &InMemory{assignments: make(map[domain.Identity]map[domain.Capability]models.Assignment)}
}

// Grant records the assignment. Reports false when it was already held.
func (s *InMemory) Grant(_ context.Context, a models.Assignment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caps, ok := s.assignments[a.Identity]
	if !ok {
		caps = make(map[domain.Capability]models.Assignment)
		s.assignments[a.Identity] = caps
	}
	if _, held := caps[a.Capability]; held {
		return false, nil
	}
	caps[a.Capability] = a
	return true, nil
}

// Revoke drops the assignment. Reports false when it was not held.
func (s *InMemory) Revoke(_ context.Context, who domain.Identity, capability domain.Capability) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caps, ok := s.assignments[who]
	if !ok {
		return false, nil
	}
	if _, held := caps[capability]; !held {
		return false, nil
	}
	delete(caps, capability)
	return true, nil
}

func (s *InMemory) Has(_ context.Context, who domain.Identity, capability domain.Capability) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, held := s.assignments[who][capability]
	return held, nil
}

// Members lists holders of capability ordered by grant time, then identity.
func (s *InMemory) Members(_ context.Context, capability domain.Capability) ([]domain.Identity, error) {
	s.mu.RLock()
	var held []models.Assignment
	for _, caps := range s.assignments {
		if a, ok := caps[capability]; ok {
			held = append(held, a)
		}
	}
	s.mu.RUnlock()

	sortAssignments(held)
	out := make([]domain.Identity, len(held))
	for i, a := range held {
		out[i] = a.Identity
	}
	return out, nil
}

// List returns the capabilities who holds, in canonical order.
func (s *InMemory) List(_ context.Context, who domain.Identity) ([]domain.Capability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	caps := s.assignments[who]
	out := make([]domain.Capability, 0, len(caps))
	for _, c := range domain.AllCapabilities() {
		if _, ok := caps[c]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func sortAssignments(as []models.Assignment) {
	sort.Slice(as, func(i, j int) bool {
		if !as[i].GrantedAt.Equal(as[j].GrantedAt) {
			return as[i].GrantedAt.Before(as[j].GrantedAt)
		}
		return as[i].Identity.String() < as[j].Identity.String()
	})
}
