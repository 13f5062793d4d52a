// Package service implements the verification ledger: which identities may
// hold and move the guarded asset, mutated only by verifiers or by an
// executed threshold operation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kycgate/internal/ledger/metrics"
	"kycgate/internal/ledger/models"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tracing"
	"kycgate/pkg/platform/tx"
	"kycgate/pkg/requestcontext"
)

// IdentityKey is the serialization key for mutations of one identity's record.
func IdentityKey(who domain.Identity) string {
	return "identity:" + who.String()
}

type Store interface {
	Get(ctx context.Context, who domain.Identity) (*models.Record, error)
	Save(ctx context.Context, rec *models.Record) error
	ListVerified(ctx context.Context) ([]domain.Identity, error)
}

// Roles is the capability surface the ledger consults and delegates to.
type Roles interface {
	Require(ctx context.Context, who domain.Identity, capability domain.Capability) error
	Grant(ctx context.Context, actor, target domain.Identity, capability domain.Capability) (bool, error)
	Revoke(ctx context.Context, actor, target domain.Identity, capability domain.Capability) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is one verification ledger.
type Service struct {
	name      string
	store     Store
	roles     Roles
	runner    tx.Runner
	logger    *slog.Logger
	publisher AuditPublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
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

// WithTracerProvider takes spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer("kycgate/ledger")
		}
	}
}

// WithName labels the ledger for asset binding. Defaults to "primary".
func WithName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.name = name
		}
	}
}

// New constructs a ledger Service.
func New(store Store, roles Roles, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		name:   "primary",
		store:  store,
		roles:  roles,
		runner: runner,
		tracer: tracing.Tracer("kycgate/ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the ledger's binding name.
func (s *Service) Name() string {
	return s.name
}

// IsVerified reports the identity's flag. Absent and null identities read as
// unverified. The only error is a failing store.
func (s *Service) IsVerified(ctx context.Context, who domain.Identity) (bool, error) {
	if who.IsNil() {
		return false, nil
	}
	rec, err := s.store.Get(ctx, who)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification record")
	}
	return rec.Verified, nil
}

// Status wraps IsVerified for lookups.
func (s *Service) Status(ctx context.Context, who domain.Identity) (*models.Status, error) {
	verified, err := s.IsVerified(ctx, who)
	if err != nil {
		return nil, err
	}
	return &models.Status{Identity: who, Verified: verified}, nil
}

// ListVerified returns every currently verified identity.
func (s *Service) ListVerified(ctx context.Context) ([]domain.Identity, error) {
	ids, err := s.store.ListVerified(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verified identities")
	}
	return ids, nil
}

// Verify marks who as verified. Verifier only. Verifying an already verified
// identity fails with AlreadyInState.
func (s *Service) Verify(ctx context.Context, actor, who domain.Identity) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ledger.Verify", attribute.String("identity", who.String()))
	defer tracing.End(span, &err)
	defer s.observe("verify", time.Now())

	return s.direct(ctx, actor, domain.OperationVerifyIdentity, who)
}

// Revoke clears who's verification. Verifier only. Revoking an unverified
// identity fails with NotInState.
func (s *Service) Revoke(ctx context.Context, actor, who domain.Identity) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ledger.Revoke", attribute.String("identity", who.String()))
	defer tracing.End(span, &err)
	defer s.observe("revoke", time.Now())

	return s.direct(ctx, actor, domain.OperationRevokeIdentity, who)
}

func (s *Service) direct(ctx context.Context, actor domain.Identity, kind domain.OperationKind, who domain.Identity) error {
	if err := s.roles.Require(ctx, actor, domain.CapabilityVerifier); err != nil {
		return err
	}
	if who.IsNil() {
		return dErrors.New(dErrors.CodeInvalidArgument, "identity must not be null")
	}
	return s.runner.RunInTx(ctx, []string{IdentityKey(who)}, func(ctx context.Context) error {
		return s.apply(ctx, actor, kind, who, nil)
	})
}

// BatchVerify verifies every eligible identity in ids. Null, duplicate and
// already verified entries are skipped without failing. Returns the
// identities this call verified, in input order.
func (s *Service) BatchVerify(ctx context.Context, actor domain.Identity, ids []domain.Identity) (verified []domain.Identity, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ledger.BatchVerify", attribute.Int("batch.size", len(ids)))
	defer tracing.End(span, &err)
	defer s.observe("batch_verify", time.Now())

	if err := s.roles.Require(ctx, actor, domain.CapabilityVerifier); err != nil {
		return nil, err
	}

	candidates := make([]domain.Identity, 0, len(ids))
	keys := make([]string, 0, len(ids))
	seen := make(map[domain.Identity]bool, len(ids))
	for _, who := range ids {
		if who.IsNil() || seen[who] {
			continue
		}
		seen[who] = true
		candidates = append(candidates, who)
		keys = append(keys, IdentityKey(who))
	}

	verified = make([]domain.Identity, 0, len(candidates))
	if len(candidates) == 0 {
		return verified, nil
	}
	err = s.runner.RunInTx(ctx, keys, func(ctx context.Context) error {
		verified = verified[:0]
		for _, who := range candidates {
			already, err := s.IsVerified(ctx, who)
			if err != nil {
				return err
			}
			if already {
				continue
			}
			if err := s.apply(ctx, actor, domain.OperationVerifyIdentity, who, nil); err != nil {
				return err
			}
			verified = append(verified, who)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveBatch(len(verified))
	}
	return verified, nil
}

// CheckApplicable reports, without writing, whether kind can be applied to
// who right now. It returns the same error Apply would.
func (s *Service) CheckApplicable(ctx context.Context, kind domain.OperationKind, who domain.Identity) error {
	if !kind.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, "unknown operation kind")
	}
	if who.IsNil() {
		return dErrors.New(dErrors.CodeInvalidArgument, "identity must not be null")
	}
	verified, err := s.IsVerified(ctx, who)
	if err != nil {
		return err
	}
	return precondition(kind, verified)
}

// Apply executes kind on who for an executed threshold operation. The
// operation's quorum is the authorization, so no capability is checked. The
// caller must already hold IdentityKey(who).
func (s *Service) Apply(ctx context.Context, actor domain.Identity, kind domain.OperationKind, who domain.Identity, opID domain.OperationID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ledger.Apply",
		attribute.String("identity", who.String()),
		attribute.String("kind", string(kind)),
		attribute.Int64("operation.id", int64(opID)),
	)
	defer tracing.End(span, &err)

	if !kind.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, "unknown operation kind")
	}
	if who.IsNil() {
		return dErrors.New(dErrors.CodeInvalidArgument, "identity must not be null")
	}
	return s.runner.RunInTx(ctx, []string{IdentityKey(who)}, func(ctx context.Context) error {
		return s.apply(ctx, actor, kind, who, audit.OperationRef(opID))
	})
}

func (s *Service) apply(ctx context.Context, actor domain.Identity, kind domain.OperationKind, who domain.Identity, opID *domain.OperationID) error {
	verified, err := s.IsVerified(ctx, who)
	if err != nil {
		return err
	}
	if err := precondition(kind, verified); err != nil {
		return err
	}

	rec := &models.Record{
		Identity:  who,
		Verified:  kind == domain.OperationVerifyIdentity,
		UpdatedAt: requestcontext.Now(ctx),
		UpdatedBy: actor,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification record")
	}

	action, change := audit.EventIdentityVerified, "verified"
	if !rec.Verified {
		action, change = audit.EventIdentityRevoked, "revoked"
	}
	audit.Record(ctx, s.logger, s.publisher, audit.Event{
		Action:      action,
		Actor:       actor,
		Subject:     who,
		OperationID: opID,
		Detail:      s.name,
	})
	if s.metrics != nil {
		path := "direct"
		if opID != nil {
			path = "operation"
		}
		tx.AfterCommit(ctx, func() { s.metrics.IncChange(change, path) })
	}
	return nil
}

func precondition(kind domain.OperationKind, verified bool) error {
	switch kind {
	case domain.OperationVerifyIdentity:
		if verified {
			return dErrors.New(dErrors.CodeAlreadyInState, "identity is already verified")
		}
	case domain.OperationRevokeIdentity:
		if !verified {
			return dErrors.New(dErrors.CodeNotInState, "identity is not verified")
		}
	default:
		return dErrors.New(dErrors.CodeInvalidArgument, "unknown operation kind")
	}
	return nil
}

// GrantVerifier gives who the verifier capability. Admin only.
func (s *Service) GrantVerifier(ctx context.Context, actor, who domain.Identity) error {
	_, err := s.roles.Grant(ctx, actor, who, domain.CapabilityVerifier)
	return err
}

// RevokeVerifier removes the verifier capability from who. Admin only.
func (s *Service) RevokeVerifier(ctx context.Context, actor, who domain.Identity) error {
	_, err := s.roles.Revoke(ctx, actor, who, domain.CapabilityVerifier)
	return err
}

func (s *Service) observe(command string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveCommand(command, start)
	}
}
