package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"kycgate/internal/ledger/metrics"
	"kycgate/internal/ledger/store"
	rolesservice "kycgate/internal/roles/service"
	rolesstore "kycgate/internal/roles/store"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	auditmemory "kycgate/pkg/platform/audit/store/memory"
	"kycgate/pkg/platform/tx"
)

var (
	admin    = domain.MustParseIdentity("0x00000000000000000000000000000000000ad111")
	verifier = domain.MustParseIdentity("0x0000000000000000000000000000000000000e71")
	alice    = domain.MustParseIdentity("0x00000000000000000000000000000000000a11ce")
	bob      = domain.MustParseIdentity("0x0000000000000000000000000000000000000b0b")
	carol    = domain.MustParseIdentity("0x00000000000000000000000000000000000ca201")
)

type storeEmitter struct{ store *auditmemory.InMemoryStore }

func (e storeEmitter) Emit(ctx context.Context, event audit.Event) error {
	return e.store.Append(ctx, event)
}

type LedgerServiceSuite struct {
	suite.Suite
	ctx     context.Context
	events  *auditmemory.InMemoryStore
	metrics *metrics.Metrics
	roles   *rolesservice.Service
	spans   *tracetest.SpanRecorder
	ledger  *Service
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.events = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	runner := tx.NewShardedRunner()
	emitter := storeEmitter{s.events}

	s.roles = rolesservice.New(rolesstore.NewInMemory(), runner, rolesservice.WithAuditPublisher(emitter))
	s.Require().NoError(s.roles.Bootstrap(s.ctx, admin))

	s.spans = tracetest.NewSpanRecorder()
	s.ledger = New(store.NewInMemory(), s.roles, runner,
		WithAuditPublisher(emitter),
		WithMetrics(s.metrics),
		WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.spans))),
	)
	s.Require().NoError(s.ledger.GrantVerifier(s.ctx, admin, verifier))
	s.events.Clear()
}

func (s *LedgerServiceSuite) verified(who domain.Identity) bool {
	ok, err := s.ledger.IsVerified(s.ctx, who)
	s.Require().NoError(err)
	return ok
}

func (s *LedgerServiceSuite) TestDefaultsToUnverified() {
	s.False(s.verified(alice))
	s.False(s.verified(domain.NilIdentity))
	s.Empty(s.events.Actions(), "reads have no side effects")
}

func (s *LedgerServiceSuite) TestVerify() {
	s.Run("verifier flips the flag and emits", func() {
		s.Require().NoError(s.ledger.Verify(s.ctx, verifier, alice))
		s.True(s.verified(alice))

		events, err := s.events.ListBySubject(s.ctx, alice)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.EventIdentityVerified, events[0].Action)
		s.Equal(verifier, events[0].Actor)
		s.Nil(events[0].OperationID)
	})

	s.Run("second verify is AlreadyInState and changes nothing", func() {
		s.events.Clear()
		err := s.ledger.Verify(s.ctx, verifier, alice)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyInState))
		s.True(s.verified(alice))
		s.Empty(s.events.Actions())
	})

	s.Run("null identity is invalid", func() {
		err := s.ledger.Verify(s.ctx, verifier, domain.NilIdentity)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("non-verifier is unauthorized", func() {
		err := s.ledger.Verify(s.ctx, bob, carol)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.False(s.verified(carol))
	})
}

func (s *LedgerServiceSuite) TestSpansCarryErrorCodes() {
	s.Require().NoError(s.ledger.Verify(s.ctx, verifier, alice))
	s.True(dErrors.HasCode(s.ledger.Verify(s.ctx, verifier, alice), dErrors.CodeAlreadyInState))
	s.True(dErrors.HasCode(s.ledger.Revoke(s.ctx, bob, alice), dErrors.CodeUnauthorized))

	spans := s.spans.Ended()
	s.Require().Len(spans, 3)
	want := []struct {
		name string
		code string
	}{{"ledger.Verify", ""}, {"ledger.Verify", "already_in_state"}, {"ledger.Revoke", "unauthorized"}}
	for i, span := range spans {
		s.Equal(want[i].name, span.Name())
		code := ""
		for _, kv := range span.Attributes() {
			if kv.Key == "error.code" {
				code = kv.Value.AsString()
			}
		}
		s.Equal(want[i].code, code)
		s.Equal(codes.Unset, span.Status().Code, "refusals are not span failures")
	}
}

func (s *LedgerServiceSuite) TestRevoke() {
	s.Require().NoError(s.ledger.Verify(s.ctx, verifier, alice))
	s.events.Clear()

	s.Require().NoError(s.ledger.Revoke(s.ctx, verifier, alice))
	s.False(s.verified(alice))
	s.Equal([]audit.Action{audit.EventIdentityRevoked}, s.events.Actions())

	err := s.ledger.Revoke(s.ctx, verifier, alice)
	s.True(dErrors.HasCode(err, dErrors.CodeNotInState))

	err = s.ledger.Revoke(s.ctx, verifier, bob)
	s.True(dErrors.HasCode(err, dErrors.CodeNotInState), "never-written identities are not verified")

	s.Equal(1.0, testutil.ToFloat64(s.metrics.StateChanges.WithLabelValues("revoked", "direct")))
}

func (s *LedgerServiceSuite) TestBatchVerify() {
	s.Require().NoError(s.ledger.Verify(s.ctx, verifier, bob))
	s.events.Clear()

	got, err := s.ledger.BatchVerify(s.ctx, verifier, []domain.Identity{
		alice, domain.NilIdentity, bob, alice, carol,
	})
	s.Require().NoError(err)
	s.Equal([]domain.Identity{alice, carol}, got)
	s.True(s.verified(alice))
	s.True(s.verified(carol))
	s.Equal([]audit.Action{audit.EventIdentityVerified, audit.EventIdentityVerified}, s.events.Actions())

	s.Run("empty batch verifies nothing", func() {
		got, err := s.ledger.BatchVerify(s.ctx, verifier, nil)
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("non-verifier is unauthorized", func() {
		_, err := s.ledger.BatchVerify(s.ctx, alice, []domain.Identity{bob})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *LedgerServiceSuite) TestVerifierManagement() {
	s.Run("only admins grant verifiers", func() {
		err := s.ledger.GrantVerifier(s.ctx, verifier, alice)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("revoked verifier loses access", func() {
		s.Require().NoError(s.ledger.RevokeVerifier(s.ctx, admin, verifier))
		err := s.ledger.Verify(s.ctx, verifier, alice)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("revoking an unheld verifier is silent", func() {
		s.events.Clear()
		s.Require().NoError(s.ledger.RevokeVerifier(s.ctx, admin, carol))
		s.Empty(s.events.Actions())
	})
}

func (s *LedgerServiceSuite) TestApply() {
	s.Run("executes without a capability and tags the operation", func() {
		s.Require().NoError(s.ledger.Apply(s.ctx, bob, domain.OperationVerifyIdentity, alice, 7))
		s.True(s.verified(alice))

		events, err := s.events.ListByOperation(s.ctx, 7)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(bob, events[0].Actor)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.StateChanges.WithLabelValues("verified", "operation")))
	})

	s.Run("keeps the strict preconditions", func() {
		err := s.ledger.Apply(s.ctx, bob, domain.OperationVerifyIdentity, alice, 8)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyInState))
		err = s.ledger.Apply(s.ctx, bob, domain.OperationRevokeIdentity, carol, 9)
		s.True(dErrors.HasCode(err, dErrors.CodeNotInState))
		err = s.ledger.Apply(s.ctx, bob, domain.OperationKind("mint"), carol, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func (s *LedgerServiceSuite) TestCheckApplicable() {
	s.NoError(s.ledger.CheckApplicable(s.ctx, domain.OperationVerifyIdentity, alice))
	s.True(dErrors.HasCode(s.ledger.CheckApplicable(s.ctx, domain.OperationRevokeIdentity, alice), dErrors.CodeNotInState))
	s.True(dErrors.HasCode(s.ledger.CheckApplicable(s.ctx, domain.OperationVerifyIdentity, domain.NilIdentity), dErrors.CodeInvalidArgument))
	s.False(s.verified(alice), "checking never writes")
}

func (s *LedgerServiceSuite) TestConcurrentVerifySameIdentity() {
	const goroutines = 32
	var ok, already atomic.Int32
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.ledger.Verify(s.ctx, verifier, alice)
			switch {
			case err == nil:
				ok.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadyInState):
				already.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), ok.Load())
	s.Equal(int32(goroutines-1), already.Load())
	s.Len(s.events.Actions(), 1)
}

func (s *LedgerServiceSuite) TestListVerified() {
	_, err := s.ledger.BatchVerify(s.ctx, verifier, []domain.Identity{carol, alice})
	s.Require().NoError(err)
	ids, err := s.ledger.ListVerified(s.ctx)
	s.Require().NoError(err)
	s.Equal([]domain.Identity{alice, carol}, ids)
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	primary := New(store.NewInMemory(), nil, tx.NewShardedRunner())
	d.Register("primary", primary)

	got, err := d.Resolve("primary")
	if err != nil || got != primary {
		t.Fatalf("expected primary ledger, got %v, %v", got, err)
	}
	if _, err := d.Resolve("missing"); !dErrors.HasCode(err, dErrors.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument for unknown ledger, got %v", err)
	}
	if names := d.Names(); len(names) != 1 || names[0] != "primary" {
		t.Fatalf("unexpected names %v", names)
	}
}
