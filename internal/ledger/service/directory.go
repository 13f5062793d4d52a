package service

import (
	"context"
	"sort"
	"sync"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// Source is what a guarded asset needs from the ledger it is bound to.
type Source interface {
	IsVerified(ctx context.Context, who domain.Identity) (bool, error)
}

// Directory resolves ledger references held by guarded assets. Many assets
// may point at one ledger; an asset's controller may repoint it.
type Directory struct {
	mu      sync.RWMutex
	ledgers map[string]Source
}

func NewDirectory() *Directory {
	return &Directory{ledgers: make(map[string]Source)}
}

// Register binds name to src, replacing any previous binding.
func (d *Directory) Register(name string, src Source) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ledgers[name] = src
}

// Resolve returns the ledger bound to name or InvalidArgument.
func (d *Directory) Resolve(name string) (Source, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	src, ok := d.ledgers[name]
	if !ok || src == nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidArgument, "unknown ledger %q", name)
	}
	return src, nil
}

// Names lists registered ledgers in order.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.ledgers))
	for name := range d.ledgers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
