// Package service implements the threshold operation engine: signers propose
// a ledger action, co-sign it, and the signature that reaches quorum executes
// it against the verification ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kycgate/internal/governance/metrics"
	"kycgate/internal/governance/models"
	ledgersvc "kycgate/internal/ledger/service"
	rolesvc "kycgate/internal/roles/service"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tracing"
	"kycgate/pkg/platform/tx"
	"kycgate/pkg/requestcontext"
)

const (
	// KeySequence serializes operation id allocation.
	KeySequence = "governance:seq"
	// KeyConfig serializes quorum and signer-set changes.
	KeyConfig = "governance:config"

	// DefaultRequiredSignatures applies until a quorum is stored.
	DefaultRequiredSignatures = 1
)

// OperationKey is the serialization key for one operation's signature set.
func OperationKey(id domain.OperationID) string {
	return "op:" + id.String()
}

type Store interface {
	NextID(ctx context.Context) (domain.OperationID, error)
	Create(ctx context.Context, op *models.Operation) error
	Get(ctx context.Context, id domain.OperationID) (*models.Operation, error)
	Save(ctx context.Context, op *models.Operation) error
	List(ctx context.Context) ([]*models.Operation, error)
}

type ConfigStore interface {
	RequiredSignatures(ctx context.Context) (int, error)
	SetRequiredSignatures(ctx context.Context, n int) error
}

// Roles is the capability surface the engine consults. The signer set is
// the set of threshold_signer holders.
type Roles interface {
	Require(ctx context.Context, who domain.Identity, capability domain.Capability) error
	Members(ctx context.Context, capability domain.Capability) ([]domain.Identity, error)
	Grant(ctx context.Context, actor, target domain.Identity, capability domain.Capability) (bool, error)
	Revoke(ctx context.Context, actor, target domain.Identity, capability domain.Capability) (bool, error)
}

// Ledger is the dispatch target of executed operations.
type Ledger interface {
	CheckApplicable(ctx context.Context, kind domain.OperationKind, who domain.Identity) error
	Apply(ctx context.Context, actor domain.Identity, kind domain.OperationKind, who domain.Identity, opID domain.OperationID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the operation engine.
type Service struct {
	store     Store
	config    ConfigStore
	roles     Roles
	ledger    Ledger
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
			s.tracer = tp.Tracer("kycgate/governance")
		}
	}
}

// New constructs the engine.
func New(store Store, config ConfigStore, roles Roles, ledger Ledger, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		config: config,
		roles:  roles,
		ledger: ledger,
		runner: runner,
		tracer: tracing.Tracer("kycgate/governance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Propose records a new operation signed by caller. When one signature is
// already a quorum the operation executes before Propose returns. A failing
// execution fails the whole call and records nothing.
func (s *Service) Propose(ctx context.Context, caller domain.Identity, kind domain.OperationKind, target domain.Identity) (op *models.Operation, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "governance.Propose",
		attribute.String("kind", string(kind)),
		attribute.String("target", target.String()),
	)
	defer tracing.End(span, &err)

	if err := s.roles.Require(ctx, caller, domain.CapabilityThresholdSigner); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "unknown operation kind")
	}
	if target.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "target must not be null")
	}

	err = s.runner.RunInTx(ctx, []string{KeySequence, ledgersvc.IdentityKey(target)}, func(ctx context.Context) error {
		id, err := s.store.NextID(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate operation id")
		}
		required, err := s.requiredSignatures(ctx)
		if err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		created := &models.Operation{
			ID:        id,
			Kind:      kind,
			Target:    target,
			Signers:   []domain.Identity{caller},
			CreatedBy: caller,
			CreatedAt: now,
		}
		execute := created.SignatureCount() >= required
		if execute {
			if err := s.checkDispatch(ctx, created); err != nil {
				return err
			}
			created.Executed = true
			created.ExecutedAt = &now
		}

		if err := s.store.Create(ctx, created); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "operation id already allocated")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save operation")
		}
		s.record(ctx, audit.EventOperationProposed, caller, created)
		s.record(ctx, audit.EventOperationSigned, caller, created)
		if s.metrics != nil {
			tx.AfterCommit(ctx, func() {
				s.metrics.IncProposed(string(kind))
				s.metrics.IncSigned()
			})
		}
		if execute {
			if err := s.execute(ctx, caller, created); err != nil {
				return err
			}
		}
		op = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// Sign adds caller's signature to operation id and reports whether this
// signature executed it. Signature check, quorum comparison and dispatch run
// as one unit per operation.
func (s *Service) Sign(ctx context.Context, caller domain.Identity, id domain.OperationID) (executed bool, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "governance.Sign", attribute.Int64("operation.id", int64(id)))
	defer tracing.End(span, &err)

	if err := s.roles.Require(ctx, caller, domain.CapabilityThresholdSigner); err != nil {
		return false, err
	}
	// Target never changes, so it can be read before locking.
	pending, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}

	keys := []string{OperationKey(id), ledgersvc.IdentityKey(pending.Target)}
	err = s.runner.RunInTx(ctx, keys, func(ctx context.Context) error {
		executed = false
		op, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if op.Executed {
			return dErrors.Newf(dErrors.CodeAlreadyExecuted, "operation %d already executed", id)
		}
		if op.HasSigned(caller) {
			return dErrors.Newf(dErrors.CodeAlreadySigned, "operation %d already signed by caller", id)
		}
		required, err := s.requiredSignatures(ctx)
		if err != nil {
			return err
		}

		op.Signers = append(op.Signers, caller)
		reached := op.SignatureCount() >= required
		if reached {
			if err := s.checkDispatch(ctx, op); err != nil {
				return err
			}
			now := requestcontext.Now(ctx)
			op.Executed = true
			op.ExecutedAt = &now
		}

		if err := s.store.Save(ctx, op); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.Newf(dErrors.CodeAlreadyExecuted, "operation %d already executed", id)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save operation")
		}
		s.record(ctx, audit.EventOperationSigned, caller, op)
		if s.metrics != nil {
			tx.AfterCommit(ctx, s.metrics.IncSigned)
		}
		if reached {
			if err := s.execute(ctx, caller, op); err != nil {
				return err
			}
		}
		executed = reached
		return nil
	})
	if err != nil {
		return false, err
	}
	return executed, nil
}

// checkDispatch runs the ledger's precondition for op before anything is
// written.
func (s *Service) checkDispatch(ctx context.Context, op *models.Operation) error {
	err := s.ledger.CheckApplicable(ctx, op.Kind, op.Target)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncDispatchFailure(string(dErrors.CodeOf(err)))
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "operation dispatch refused",
				"operation_id", uint64(op.ID),
				"kind", string(op.Kind),
				"target", op.Target.String(),
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	return err
}

// execute applies op to the ledger. The signer completing quorum is recorded
// as the actor of the ledger change.
func (s *Service) execute(ctx context.Context, actor domain.Identity, op *models.Operation) error {
	if err := s.ledger.Apply(ctx, actor, op.Kind, op.Target, op.ID); err != nil {
		return err
	}
	s.record(ctx, audit.EventOperationExecuted, actor, op)
	if s.metrics != nil {
		kind, createdAt, executedAt := string(op.Kind), op.CreatedAt, *op.ExecutedAt
		tx.AfterCommit(ctx, func() { s.metrics.ObserveExecuted(kind, createdAt, executedAt) })
	}
	return nil
}

func (s *Service) record(ctx context.Context, action audit.Action, actor domain.Identity, op *models.Operation) {
	audit.Record(ctx, s.logger, s.publisher, audit.Event{
		Action:      action,
		Actor:       actor,
		Subject:     op.Target,
		OperationID: audit.OperationRef(op.ID),
		Kind:        op.Kind,
	})
}

func (s *Service) load(ctx context.Context, id domain.OperationID) (*models.Operation, error) {
	op, err := s.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeUnknownOperation, "operation %d does not exist", id)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load operation")
	}
	return op, nil
}

// lookup is load for the lenient accessors: unknown ids are not an error.
func (s *Service) lookup(ctx context.Context, id domain.OperationID) (*models.Operation, error) {
	op, err := s.load(ctx, id)
	if dErrors.HasCode(err, dErrors.CodeUnknownOperation) {
		return nil, nil
	}
	return op, err
}

// Get returns operation id or UnknownOperation.
func (s *Service) Get(ctx context.Context, id domain.OperationID) (*models.Operation, error) {
	return s.load(ctx, id)
}

// List returns every operation in id order.
func (s *Service) List(ctx context.Context) ([]*models.Operation, error) {
	ops, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list operations")
	}
	return ops, nil
}

// SignatureCount returns the number of signatures on id, 0 if unknown.
func (s *Service) SignatureCount(ctx context.Context, id domain.OperationID) (int, error) {
	op, err := s.lookup(ctx, id)
	if err != nil || op == nil {
		return 0, err
	}
	return op.SignatureCount(), nil
}

// HasSigned reports whether who signed id. False for unknown ids.
func (s *Service) HasSigned(ctx context.Context, id domain.OperationID, who domain.Identity) (bool, error) {
	op, err := s.lookup(ctx, id)
	if err != nil || op == nil {
		return false, err
	}
	return op.HasSigned(who), nil
}

// Exists reports whether id was ever proposed.
func (s *Service) Exists(ctx context.Context, id domain.OperationID) (bool, error) {
	op, err := s.lookup(ctx, id)
	return op != nil, err
}

// IsExecuted reports whether id has executed. False for unknown ids.
func (s *Service) IsExecuted(ctx context.Context, id domain.OperationID) (bool, error) {
	op, err := s.lookup(ctx, id)
	if err != nil || op == nil {
		return false, err
	}
	return op.Executed, nil
}

// Config returns the current quorum and signer set.
func (s *Service) Config(ctx context.Context) (*models.Config, error) {
	required, err := s.requiredSignatures(ctx)
	if err != nil {
		return nil, err
	}
	signers, err := s.roles.Members(ctx, domain.CapabilityThresholdSigner)
	if err != nil {
		return nil, err
	}
	return &models.Config{RequiredSignatures: required, Signers: signers}, nil
}

func (s *Service) requiredSignatures(ctx context.Context) (int, error) {
	n, err := s.config.RequiredSignatures(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return DefaultRequiredSignatures, nil
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read quorum")
	}
	return n, nil
}

// Bootstrap stores the initial quorum unless one is already stored. The value
// is clamped into [1, signers]. Call it from wiring code after the role
// bootstrap.
func (s *Service) Bootstrap(ctx context.Context, required int) error {
	return s.runner.RunInTx(ctx, []string{KeyConfig, rolesvc.KeyRoles}, func(ctx context.Context) error {
		current, err := s.config.RequiredSignatures(ctx)
		if err == nil {
			s.observeRequired(ctx, current)
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read quorum")
		}
		signers, err := s.roles.Members(ctx, domain.CapabilityThresholdSigner)
		if err != nil {
			return err
		}
		n := min(required, len(signers))
		n = max(n, DefaultRequiredSignatures)
		if err := s.config.SetRequiredSignatures(ctx, n); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store quorum")
		}
		s.observeRequired(ctx, n)
		return nil
	})
}

// AddSigner grants who the threshold_signer capability. Admin only.
func (s *Service) AddSigner(ctx context.Context, actor, who domain.Identity) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "governance.AddSigner", attribute.String("signer", who.String()))
	defer tracing.End(span, &err)

	if err := s.roles.Require(ctx, actor, domain.CapabilityAdmin); err != nil {
		return err
	}
	if who.IsNil() {
		return dErrors.New(dErrors.CodeInvalidArgument, "signer must not be null")
	}
	return s.runner.RunInTx(ctx, []string{KeyConfig, rolesvc.KeyRoles}, func(ctx context.Context) error {
		changed, err := s.roles.Grant(ctx, actor, who, domain.CapabilityThresholdSigner)
		if err != nil || !changed {
			return err
		}
		audit.Record(ctx, s.logger, s.publisher, audit.Event{
			Action:     audit.EventSignerAdded,
			Actor:      actor,
			Subject:    who,
			Capability: domain.CapabilityThresholdSigner,
		})
		return nil
	})
}

// RemoveSigner revokes who's threshold_signer capability. Admin only. If the
// remaining set is smaller than the quorum, the quorum is lowered to the set
// size; an empty set leaves the quorum unchanged. Signatures who already gave
// keep counting.
func (s *Service) RemoveSigner(ctx context.Context, actor, who domain.Identity) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "governance.RemoveSigner", attribute.String("signer", who.String()))
	defer tracing.End(span, &err)

	if err := s.roles.Require(ctx, actor, domain.CapabilityAdmin); err != nil {
		return err
	}
	if who.IsNil() {
		return dErrors.New(dErrors.CodeInvalidArgument, "signer must not be null")
	}
	return s.runner.RunInTx(ctx, []string{KeyConfig, rolesvc.KeyRoles}, func(ctx context.Context) error {
		changed, err := s.roles.Revoke(ctx, actor, who, domain.CapabilityThresholdSigner)
		if err != nil || !changed {
			return err
		}
		audit.Record(ctx, s.logger, s.publisher, audit.Event{
			Action:     audit.EventSignerRemoved,
			Actor:      actor,
			Subject:    who,
			Capability: domain.CapabilityThresholdSigner,
		})

		signers, err := s.roles.Members(ctx, domain.CapabilityThresholdSigner)
		if err != nil {
			return err
		}
		required, err := s.requiredSignatures(ctx)
		if err != nil {
			return err
		}
		if n := len(signers); n > 0 && required > n {
			return s.storeRequired(ctx, actor, required, n)
		}
		return nil
	})
}

// SetRequiredSignatures sets the quorum to n, which must lie in
// [1, signers]. Admin only. Pending operations that already hold n
// signatures execute on their next signature.
func (s *Service) SetRequiredSignatures(ctx context.Context, actor domain.Identity, n int) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "governance.SetRequiredSignatures", attribute.Int("required", n))
	defer tracing.End(span, &err)

	if err := s.roles.Require(ctx, actor, domain.CapabilityAdmin); err != nil {
		return err
	}
	if n < 1 {
		return dErrors.New(dErrors.CodeInvalidArgument, "required signatures must be at least 1")
	}
	return s.runner.RunInTx(ctx, []string{KeyConfig, rolesvc.KeyRoles}, func(ctx context.Context) error {
		signers, err := s.roles.Members(ctx, domain.CapabilityThresholdSigner)
		if err != nil {
			return err
		}
		if n > len(signers) {
			return dErrors.Newf(dErrors.CodeInvalidArgument,
				"required signatures %d exceeds the %d registered signers", n, len(signers))
		}
		current, err := s.requiredSignatures(ctx)
		if err != nil {
			return err
		}
		if current == n {
			return nil
		}
		return s.storeRequired(ctx, actor, current, n)
	})
}

func (s *Service) storeRequired(ctx context.Context, actor domain.Identity, from, to int) error {
	if err := s.config.SetRequiredSignatures(ctx, to); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store quorum")
	}
	audit.Record(ctx, s.logger, s.publisher, audit.Event{
		Action: audit.EventQuorumChanged,
		Actor:  actor,
		Amount: uint64(to),
		Detail: fmt.Sprintf("%d->%d", from, to),
	})
	s.observeRequired(ctx, to)
	return nil
}

func (s *Service) observeRequired(ctx context.Context, n int) {
	if s.metrics != nil {
		tx.AfterCommit(ctx, func() { s.metrics.SetRequired(n) })
	}
}
