package store

import (
	"context"
	"sort"
	"sync"

	"kycgate/internal/ledger/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemory keeps verification records in a map.
type InMemory struct {
	mu      sync.RWMutex
	records map[domain.Identity]models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[domain.Identity]models.Record)}
}

// Get returns sentinel.ErrNotFound for identities never written.
func (s *InMemory) Get(_ context.Context, who domain.Identity) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[who]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

// Save upserts rec.
func (s *InMemory) Save(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Identity] = *rec
	return nil
}

// ListVerified returns currently verified identities in text order.
func (s *InMemory) ListVerified(_ context.Context) ([]domain.Identity, error) {
	s.mu.RLock()
	out := make([]domain.Identity, 0, len(s.records))
	for who, rec := range s.records {
		if rec.Verified {
			out = append(out, who)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
