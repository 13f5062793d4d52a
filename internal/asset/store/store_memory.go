package store

import (
	"context"
	"sort"
	"sync"

	"kycgate/internal/asset/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

type balanceKey struct {
	asset  domain.AssetID
	holder domain.Identity
}

// InMemory keeps assets and the balance book in maps.
type InMemory struct {
	mu       sync.RWMutex
	assets   map[domain.AssetID]models.Asset
	balances map[balanceKey]uint64
}

func NewInMemory() *InMemory {
	return &InMemory{
		assets:   make(map[domain.AssetID]models.Asset),
		balances: make(map[balanceKey]uint64),
	}
}

func (s *InMemory) Create(_ context.Context, a *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.assets[a.ID] = *a
	return nil
}

func (s *InMemory) Get(_ context.Context, id domain.AssetID) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

// Update replaces the mutable fields of an existing asset.
func (s *InMemory) Update(_ context.Context, a *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.assets[a.ID] = *a
	return nil
}

// List returns assets in creation order.
func (s *InMemory) List(_ context.Context) ([]*models.Asset, error) {
	s.mu.RLock()
	out := make([]*models.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		a := a
		out = append(out, &a)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Balance returns 0 for holders never credited.
func (s *InMemory) Balance(_ context.Context, id domain.AssetID, holder domain.Identity) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[balanceKey{id, holder}], nil
}

func (s *InMemory) SetBalance(_ context.Context, id domain.AssetID, holder domain.Identity, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount == 0 {
		delete(s.balances, balanceKey{id, holder})
		return nil
	}
	s.balances[balanceKey{id, holder}] = amount
	return nil
}
