package ports

import (
	"context"

	"kycgate/internal/asset/models"
	"kycgate/pkg/domain"
)

// AssetPort is where the registry hands off new assets. The asset service
// implements it; the registry never touches balances directly.
//
// This keeps the registry independent of:
// - the balance book and its storage
// - transfer and guard wiring
type AssetPort interface {
	// Create stores a and credits its supply to the controller.
	Create(ctx context.Context, a *models.Asset) error

	// Get returns the asset or a not_found error.
	Get(ctx context.Context, id domain.AssetID) (*models.Asset, error)
}

// LedgerPort reports whether a ledger reference can be bound.
type LedgerPort interface {
	// Names lists the registered ledger references.
	Names() []string
}
