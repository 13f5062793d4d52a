package store

import (
	"context"
	"sync"

	"kycgate/internal/governance/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemory keeps operations in id order. Ids are dense, so the slice index
// is the operation id.
type InMemory struct {
	mu         sync.RWMutex
	operations []*models.Operation
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

// NextID returns the id the next Create must use. Callers serialize
// allocation and creation.
func (s *InMemory) NextID(_ context.Context) (domain.OperationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.OperationID(len(s.operations)), nil
}

// Create appends op. It fails with sentinel.ErrConflict unless op.ID is the
// next id.
func (s *InMemory) Create(_ context.Context, op *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op.ID != domain.OperationID(len(s.operations)) {
		return sentinel.ErrConflict
	}
	s.operations = append(s.operations, op.Clone())
	return nil
}

func (s *InMemory) Get(_ context.Context, id domain.OperationID) (*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) >= len(s.operations) {
		return nil, sentinel.ErrNotFound
	}
	return s.operations[id].Clone(), nil
}

// Save replaces the stored signers and execution state of op.
func (s *InMemory) Save(_ context.Context, op *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(op.ID) >= len(s.operations) {
		return sentinel.ErrNotFound
	}
	s.operations[op.ID] = op.Clone()
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Operation, len(s.operations))
	for i, op := range s.operations {
		out[i] = op.Clone()
	}
	return out, nil
}

// InMemoryConfig holds the required signature count.
type InMemoryConfig struct {
	mu       sync.RWMutex
	required int
	set      bool
}

func NewInMemoryConfig() *InMemoryConfig {
	return &InMemoryConfig{}
}

// RequiredSignatures returns sentinel.ErrNotFound until a value is set.
func (s *InMemoryConfig) RequiredSignatures(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return 0, sentinel.ErrNotFound
	}
	return s.required, nil
}

func (s *InMemoryConfig) SetRequiredSignatures(_ context.Context, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.required, s.set = n, true
	return nil
}
