package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL is a process-local revocation list for single-instance and
// test deployments.
type InMemoryTRL struct {
	mu      sync.Mutex
	entries map[string]Entry
	clock   Clock
}

func NewInMemoryTRL(clock Clock) *InMemoryTRL {
	if clock == nil {
		clock = time.Now
	}
	return &InMemoryTRL{entries: make(map[string]Entry), clock: clock}
}

// Revoke stores e. Revoking an already revoked jti keeps the first entry.
func (t *InMemoryTRL) Revoke(_ context.Context, e Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	live, err := e.live(t.clock())
	if err != nil || !live {
		return err
	}
	if _, ok := t.entries[e.JTI]; !ok {
		t.entries[e.JTI] = e
	}
	return nil
}

// IsRevoked reports whether jti is revoked. Lapsed entries are pruned on read.
func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[jti]
	if !ok {
		return false, nil
	}
	if !e.ExpiresAt.After(t.clock()) {
		delete(t.entries, jti)
		return false, nil
	}
	return true, nil
}
