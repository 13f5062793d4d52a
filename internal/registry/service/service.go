// Package service is the factory that creates guarded assets and binds each
// one to a registered verification ledger.
package service

import (
	"context"
	"log/slog"
	"slices"

	"kycgate/internal/asset/models"
	"kycgate/internal/registry/ports"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

type Service struct {
	assets  ports.AssetPort
	ledgers ports.LedgerPort
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(assets ports.AssetPort, ledgers ports.LedgerPort, opts ...Option) *Service {
	s := &Service{assets: assets, ledgers: ledgers}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGuardedAsset creates an asset controlled by caller, mints
// InitialSupply to caller, and binds it to req.LedgerRef. The reference must
// name a registered ledger, so no asset ever exists without one.
func (s *Service) CreateGuardedAsset(ctx context.Context, caller domain.Identity, req models.CreateAssetRequest) (*models.Asset, error) {
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "controller must not be null")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !slices.Contains(s.ledgers.Names(), req.LedgerRef) {
		return nil, dErrors.Newf(dErrors.CodeInvalidArgument, "unknown ledger %q", req.LedgerRef)
	}

	now := requestcontext.Now(ctx)
	a := &models.Asset{
		ID:           domain.NewAssetID(),
		Name:         req.Name,
		Symbol:       req.Symbol,
		Description:  req.Description,
		Valuation:    req.Valuation,
		DocumentHash: req.DocumentHash,
		Controller:   caller,
		LedgerRef:    req.LedgerRef,
		Supply:       req.InitialSupply,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.assets.Create(ctx, a); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "guarded asset created",
			"asset_id", a.ID.String(),
			"controller", caller.String(),
			"ledger", a.LedgerRef,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return a, nil
}

// Resolve returns a previously created asset.
func (s *Service) Resolve(ctx context.Context, id domain.AssetID) (*models.Asset, error) {
	return s.assets.Get(ctx, id)
}
