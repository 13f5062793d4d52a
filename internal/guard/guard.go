// Package guard gates asset movements on the verification ledger. Both
// parties are looked up on every call; nothing is cached.
package guard

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kycgate/internal/guard/metrics"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/tracing"
	"kycgate/pkg/requestcontext"
)

// Role names the side of a transfer that failed the check.
type Role string

const (
	RoleSender    Role = "sender"
	RoleRecipient Role = "recipient"
)

// Ledger answers the compliance question for one identity.
type Ledger interface {
	IsVerified(ctx context.Context, who domain.Identity) (bool, error)
}

// TransferFunc is the underlying balance movement. It runs only after both
// parties passed.
type TransferFunc func(ctx context.Context) error

// Result describes a transfer the guard let through.
type Result struct {
	From   domain.Identity `json:"from"`
	To     domain.Identity `json:"to"`
	Amount uint64          `json:"amount"`
}

// RejectedError names the unverified party. It unwraps to a
// compliance_rejected domain error.
type RejectedError struct {
	Party domain.Identity
	Role  Role
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s %s is not verified", dErrors.CodeComplianceRejected, e.Role, e.Party)
}

func (e *RejectedError) Unwrap() error {
	return dErrors.Newf(dErrors.CodeComplianceRejected, "%s %s is not verified", e.Role, e.Party)
}

// PartyInfo reports the rejected party for error envelopes.
func (e *RejectedError) PartyInfo() (string, string) {
	return e.Party.String(), string(e.Role)
}

type Guard struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Guard)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

// WithTracerProvider takes spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Guard) {
		if tp != nil {
			g.tracer = tp.Tracer("kycgate/guard")
		}
	}
}

func New(opts ...Option) *Guard {
	g := &Guard{tracer: tracing.Tracer("kycgate/guard")}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GuardedTransfer checks from then to against ledger and, if both are
// verified, runs execute and returns its error unchanged. A rejected
// transfer never calls execute.
func (g *Guard) GuardedTransfer(ctx context.Context, ledger Ledger, from, to domain.Identity, amount uint64, execute TransferFunc) (res *Result, err error) {
	ctx, span := tracing.Start(ctx, g.tracer, "guard.Transfer",
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	)
	defer tracing.End(span, &err)

	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "amount must be positive")
	}
	if ledger == nil {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "asset is not bound to a ledger")
	}

	for _, party := range []struct {
		who  domain.Identity
		role Role
	}{{from, RoleSender}, {to, RoleRecipient}} {
		verified, err := ledger.IsVerified(ctx, party.who)
		if err != nil {
			return nil, err
		}
		if !verified {
			g.observe("rejected_" + string(party.role))
			if g.logger != nil {
				g.logger.WarnContext(ctx, "transfer rejected",
					"party", party.who.String(),
					"role", string(party.role),
					"request_id", requestcontext.RequestID(ctx),
				)
			}
			return nil, &RejectedError{Party: party.who, Role: party.role}
		}
	}

	if err := execute(ctx); err != nil {
		g.observe("execute_failed")
		return nil, err
	}
	g.observe("passed")
	return &Result{From: from, To: to, Amount: amount}, nil
}

func (g *Guard) observe(outcome string) {
	if g.metrics != nil {
		g.metrics.IncCheck(outcome)
	}
}
