// Package service owns capability bookkeeping and the authorization check
// every privileged command runs first.
package service

import (
	"context"
	"log/slog"

	"kycgate/internal/roles/metrics"
	"kycgate/internal/roles/models"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/tx"
	"kycgate/pkg/requestcontext"
)

// KeyRoles serializes every capability mutation.
const KeyRoles = "roles"

type Store interface {
	Grant(ctx context.Context, a models.Assignment) (bool, error)
	Revoke(ctx context.Context, who domain.Identity, capability domain.Capability) (bool, error)
	Has(ctx context.Context, who domain.Identity, capability domain.Capability) (bool, error)
	Members(ctx context.Context, capability domain.Capability) ([]domain.Identity, error)
	List(ctx context.Context, who domain.Identity) ([]domain.Capability, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages capability assignments.
type Service struct {
	store     Store
	runner    tx.Runner
	logger    *slog.Logger
	publisher AuditPublisher
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{store: store, runner: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize checks whether who holds capability. The bootstrap admin goes
// through the same check; there is no bypass.
func (s *Service) Authorize(ctx context.Context, who domain.Identity, capability domain.Capability) models.Authorization {
	if who.IsNil() {
		return models.Deny(who, capability)
	}
	held, err := s.store.Has(ctx, who, capability)
	if err != nil {
		return models.Failed(who, capability, err)
	}
	if !held {
		if s.metrics != nil {
			s.metrics.IncDenied(string(capability))
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "authorization denied",
				"actor", who.String(),
				"capability", string(capability),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return models.Deny(who, capability)
	}
	return models.Allow(who, capability)
}

// Require is Authorize(...).Err().
func (s *Service) Require(ctx context.Context, who domain.Identity, capability domain.Capability) error {
	return s.Authorize(ctx, who, capability).Err()
}

// Has reports whether who holds capability.
func (s *Service) Has(ctx context.Context, who domain.Identity, capability domain.Capability) (bool, error) {
	held, err := s.store.Has(ctx, who, capability)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check capability")
	}
	return held, nil
}

// Members lists holders of capability.
func (s *Service) Members(ctx context.Context, capability domain.Capability) ([]domain.Identity, error) {
	members, err := s.store.Members(ctx, capability)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list capability holders")
	}
	return members, nil
}

// Capabilities returns every capability who holds. Unknown identities hold none.
func (s *Service) Capabilities(ctx context.Context, who domain.Identity) (*models.CapabilitySet, error) {
	if who.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "identity must not be null")
	}
	caps, err := s.store.List(ctx, who)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list capabilities")
	}
	return &models.CapabilitySet{Identity: who, Capabilities: caps}, nil
}

// Bootstrap grants every capability to the deployment's initializer. It is
// idempotent and unauthenticated; call it only from wiring code.
func (s *Service) Bootstrap(ctx context.Context, admin domain.Identity) error {
	if admin.IsNil() {
		return dErrors.New(dErrors.CodeInvalidArgument, "bootstrap admin must not be null")
	}
	return s.runner.RunInTx(ctx, []string{KeyRoles}, func(ctx context.Context) error {
		for _, c := range domain.AllCapabilities() {
			if _, err := s.grant(ctx, admin, admin, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// GrantAdmin gives target the admin capability. Admin only.
func (s *Service) GrantAdmin(ctx context.Context, actor, target domain.Identity) error {
	_, err := s.Grant(ctx, actor, target, domain.CapabilityAdmin)
	return err
}

// RevokeAdmin removes the admin capability from target. Admin only.
func (s *Service) RevokeAdmin(ctx context.Context, actor, target domain.Identity) error {
	_, err := s.Revoke(ctx, actor, target, domain.CapabilityAdmin)
	return err
}

// Grant gives target capability on behalf of an admin actor. Granting a held
// capability is a no-op reported as changed=false.
func (s *Service) Grant(ctx context.Context, actor, target domain.Identity, capability domain.Capability) (bool, error) {
	if err := s.Require(ctx, actor, domain.CapabilityAdmin); err != nil {
		return false, err
	}
	if err := validateChange(target, capability); err != nil {
		return false, err
	}
	var changed bool
	err := s.runner.RunInTx(ctx, []string{KeyRoles}, func(ctx context.Context) error {
		var err error
		changed, err = s.grant(ctx, actor, target, capability)
		return err
	})
	return changed, err
}

// Revoke removes capability from target on behalf of an admin actor.
// Revoking an unheld capability is a no-op reported as changed=false.
func (s *Service) Revoke(ctx context.Context, actor, target domain.Identity, capability domain.Capability) (bool, error) {
	if err := s.Require(ctx, actor, domain.CapabilityAdmin); err != nil {
		return false, err
	}
	if err := validateChange(target, capability); err != nil {
		return false, err
	}
	var changed bool
	err := s.runner.RunInTx(ctx, []string{KeyRoles}, func(ctx context.Context) error {
		var err error
		changed, err = s.store.Revoke(ctx, target, capability)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke capability")
		}
		if changed {
			s.recordChange(ctx, audit.EventCapabilityRevoked, actor, target, capability)
		}
		return nil
	})
	return changed, err
}

func (s *Service) grant(ctx context.Context, actor, target domain.Identity, capability domain.Capability) (bool, error) {
	changed, err := s.store.Grant(ctx, models.Assignment{
		Identity:   target,
		Capability: capability,
		GrantedBy:  actor,
		GrantedAt:  requestcontext.Now(ctx),
	})
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant capability")
	}
	if changed {
		s.recordChange(ctx, audit.EventCapabilityGranted, actor, target, capability)
	}
	return changed, nil
}

func (s *Service) recordChange(ctx context.Context, action audit.Action, actor, target domain.Identity, capability domain.Capability) {
	audit.Record(ctx, s.logger, s.publisher, audit.Event{
		Action:     action,
		Actor:      actor,
		Subject:    target,
		Capability: capability,
	})
	if s.metrics != nil {
		change := "granted"
		if action == audit.EventCapabilityRevoked {
			change = "revoked"
		}
		tx.AfterCommit(ctx, func() { s.metrics.IncChange(string(capability), change) })
	}
}

func validateChange(target domain.Identity, capability domain.Capability) error {
	if target.IsNil() {
		return dErrors.New(dErrors.CodeInvalidArgument, "identity must not be null")
	}
	if !capability.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid capability")
	}
	return nil
}
