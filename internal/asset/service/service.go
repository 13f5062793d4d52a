// Package service manages guarded assets: the controller-owned record, the
// balance book, and transfers that pass through the compliance guard.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kycgate/internal/asset/metrics"
	"kycgate/internal/asset/models"
	"kycgate/internal/guard"
	ledgersvc "kycgate/internal/ledger/service"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tracing"
	"kycgate/pkg/platform/tx"
	"kycgate/pkg/requestcontext"
)

// AssetKey serializes every write to one asset and its balance book.
func AssetKey(id domain.AssetID) string {
	return "asset:" + id.String()
}

type Store interface {
	Create(ctx context.Context, a *models.Asset) error
	Get(ctx context.Context, id domain.AssetID) (*models.Asset, error)
	Update(ctx context.Context, a *models.Asset) error
	List(ctx context.Context) ([]*models.Asset, error)
	Balance(ctx context.Context, id domain.AssetID, holder domain.Identity) (uint64, error)
	SetBalance(ctx context.Context, id domain.AssetID, holder domain.Identity, amount uint64) error
}

// Ledgers resolves an asset's ledger reference.
type Ledgers interface {
	Resolve(name string) (ledgersvc.Source, error)
}

type Guard interface {
	GuardedTransfer(ctx context.Context, ledger guard.Ledger, from, to domain.Identity, amount uint64, execute guard.TransferFunc) (*guard.Result, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store     Store
	ledgers   Ledgers
	guard     Guard
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
			s.tracer = tp.Tracer("kycgate/asset")
		}
	}
}

func New(store Store, ledgers Ledgers, g Guard, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:   store,
		ledgers: ledgers,
		guard:   g,
		runner:  runner,
		tracer:  tracing.Tracer("kycgate/asset"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a and credits its whole supply to the controller. The caller
// has already validated a and resolved its ledger.
func (s *Service) Create(ctx context.Context, a *models.Asset) error {
	return s.runner.RunInTx(ctx, []string{AssetKey(a.ID)}, func(ctx context.Context) error {
		if err := s.store.Create(ctx, a); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "asset already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save asset")
		}
		if a.Supply > 0 {
			if err := s.store.SetBalance(ctx, a.ID, a.Controller, a.Supply); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit initial supply")
			}
		}
		s.record(ctx, audit.Event{
			Action:  audit.EventAssetCreated,
			Actor:   a.Controller,
			Subject: a.Controller,
			AssetID: a.ID,
			Amount:  a.Supply,
			Detail:  a.LedgerRef,
		})
		if s.metrics != nil {
			tx.AfterCommit(ctx, s.metrics.IncCreated)
		}
		return nil
	})
}

// Get returns asset id or NotFound.
func (s *Service) Get(ctx context.Context, id domain.AssetID) (*models.Asset, error) {
	a, err := s.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "asset %s not found", id)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}
	return a, nil
}

// List returns every asset in creation order.
func (s *Service) List(ctx context.Context) ([]*models.Asset, error) {
	assets, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assets")
	}
	return assets, nil
}

// BalanceOf returns holder's balance of asset id.
func (s *Service) BalanceOf(ctx context.Context, id domain.AssetID, holder domain.Identity) (*models.Balance, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	amount, err := s.store.Balance(ctx, id, holder)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	return &models.Balance{AssetID: id, Holder: holder, Balance: amount}, nil
}

// Transfer moves amount of asset id from caller to recipient. Both parties
// must be verified on the asset's ledger at the moment of the call.
func (s *Service) Transfer(ctx context.Context, caller domain.Identity, id domain.AssetID, to domain.Identity, amount uint64) (res *guard.Result, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "asset.Transfer",
		attribute.String("asset.id", id.String()),
		attribute.Int64("amount", int64(amount)),
	)
	defer tracing.End(span, &err)

	if caller.IsNil() || to.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "transfer parties must not be null")
	}

	keys := []string{AssetKey(id), ledgersvc.IdentityKey(caller), ledgersvc.IdentityKey(to)}
	err = s.runner.RunInTx(ctx, keys, func(ctx context.Context) error {
		a, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		ledger, err := s.ledgers.Resolve(a.LedgerRef)
		if err != nil {
			return err
		}
		res, err = s.guard.GuardedTransfer(ctx, ledger, caller, to, amount, func(ctx context.Context) error {
			return s.move(ctx, id, caller, to, amount)
		})
		if err != nil {
			return err
		}
		s.record(ctx, audit.Event{
			Action:      audit.EventAssetTransferred,
			Actor:       caller,
			Subject:     caller,
			Counterpart: to,
			AssetID:     id,
			Amount:      amount,
		})
		return nil
	})

	var rejected *guard.RejectedError
	switch {
	case errors.As(err, &rejected):
		// Outside the unit: rejections are recorded although nothing committed.
		s.record(ctx, audit.Event{
			Action:      audit.EventTransferRejected,
			Actor:       caller,
			Subject:     rejected.Party,
			Counterpart: to,
			AssetID:     id,
			Amount:      amount,
			Detail:      string(rejected.Role),
		})
		s.observeTransfer("rejected", amount)
	case err != nil:
		s.observeTransfer("failed", amount)
	default:
		s.observeTransfer("settled", amount)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) move(ctx context.Context, id domain.AssetID, from, to domain.Identity, amount uint64) error {
	fromBalance, err := s.store.Balance(ctx, id, from)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	if fromBalance < amount {
		return dErrors.New(dErrors.CodeInvalidArgument, "insufficient balance")
	}
	if from == to {
		return nil
	}
	toBalance, err := s.store.Balance(ctx, id, to)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	if err := s.store.SetBalance(ctx, id, from, fromBalance-amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit sender")
	}
	if err := s.store.SetBalance(ctx, id, to, toBalance+amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit recipient")
	}
	return nil
}

// Burn destroys amount of the controller's own balance. Controller only.
func (s *Service) Burn(ctx context.Context, caller domain.Identity, id domain.AssetID, amount uint64) error {
	return s.controlled(ctx, caller, id, func(ctx context.Context, a *models.Asset) error {
		if amount == 0 {
			return dErrors.New(dErrors.CodeInvalidArgument, "amount must be positive")
		}
		balance, err := s.store.Balance(ctx, id, caller)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
		}
		if balance < amount {
			return dErrors.New(dErrors.CodeInvalidArgument, "burn exceeds controller balance")
		}
		a.Supply -= amount
		if err := s.save(ctx, a); err != nil {
			return err
		}
		if err := s.store.SetBalance(ctx, id, caller, balance-amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit controller")
		}
		s.record(ctx, audit.Event{
			Action:  audit.EventAssetBurned,
			Actor:   caller,
			Subject: caller,
			AssetID: id,
			Amount:  amount,
		})
		if s.metrics != nil {
			tx.AfterCommit(ctx, func() { s.metrics.AddBurned(amount) })
		}
		return nil
	})
}

// SetValuation replaces the valuation. Controller only.
func (s *Service) SetValuation(ctx context.Context, caller domain.Identity, id domain.AssetID, valuation models.Valuation) error {
	return s.controlled(ctx, caller, id, func(ctx context.Context, a *models.Asset) error {
		v, err := valuation.Normalize()
		if err != nil {
			return err
		}
		a.Valuation = v
		return s.saveAndRecord(ctx, a, audit.EventAssetValuationChanged, caller, v.String())
	})
}

// SetDocumentHash replaces the document reference. Controller only.
func (s *Service) SetDocumentHash(ctx context.Context, caller domain.Identity, id domain.AssetID, hash string) error {
	return s.controlled(ctx, caller, id, func(ctx context.Context, a *models.Asset) error {
		if hash == "" {
			return dErrors.New(dErrors.CodeInvalidArgument, "document hash must not be empty")
		}
		a.DocumentHash = hash
		return s.saveAndRecord(ctx, a, audit.EventAssetDocumentChanged, caller, hash)
	})
}

// SetLedger rebinds the asset to another registered ledger. Controller only.
func (s *Service) SetLedger(ctx context.Context, caller domain.Identity, id domain.AssetID, ref string) error {
	return s.controlled(ctx, caller, id, func(ctx context.Context, a *models.Asset) error {
		if ref == "" {
			return dErrors.New(dErrors.CodeInvalidArgument, "ledger must not be empty")
		}
		if _, err := s.ledgers.Resolve(ref); err != nil {
			return err
		}
		a.LedgerRef = ref
		return s.saveAndRecord(ctx, a, audit.EventAssetLedgerChanged, caller, ref)
	})
}

// controlled runs fn on the loaded asset under its key once caller is
// confirmed as the controller.
func (s *Service) controlled(ctx context.Context, caller domain.Identity, id domain.AssetID,
	fn func(ctx context.Context, a *models.Asset) error) error {
	return s.runner.RunInTx(ctx, []string{AssetKey(id)}, func(ctx context.Context) error {
		a, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if caller.IsNil() || a.Controller != caller {
			return dErrors.New(dErrors.CodeUnauthorized, "only the asset controller may do this")
		}
		return fn(ctx, a)
	})
}

func (s *Service) save(ctx context.Context, a *models.Asset) error {
	a.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update asset")
	}
	return nil
}

func (s *Service) saveAndRecord(ctx context.Context, a *models.Asset, action audit.Action, actor domain.Identity, detail string) error {
	if err := s.save(ctx, a); err != nil {
		return err
	}
	s.record(ctx, audit.Event{
		Action:  action,
		Actor:   actor,
		Subject: actor,
		AssetID: a.ID,
		Detail:  detail,
	})
	return nil
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	audit.Record(ctx, s.logger, s.publisher, event)
}

func (s *Service) observeTransfer(outcome string, amount uint64) {
	if s.metrics != nil {
		s.metrics.ObserveTransfer(outcome, amount)
	}
}
