package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/governance/metrics"
	"kycgate/internal/governance/store"
	ledgerservice "kycgate/internal/ledger/service"
	ledgerstore "kycgate/internal/ledger/store"
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
	signerA  = domain.MustParseIdentity("0x000000000000000000000000000000000000000a")
	signerB  = domain.MustParseIdentity("0x000000000000000000000000000000000000000b")
	signerC  = domain.MustParseIdentity("0x000000000000000000000000000000000000000c")
	outsider = domain.MustParseIdentity("0x00000000000000000000000000000000000000ff")
	targetX  = domain.MustParseIdentity("0x0000000000000000000000000000000000001111")
	targetY  = domain.MustParseIdentity("0x0000000000000000000000000000000000002222")
)

type storeEmitter struct{ store *auditmemory.InMemoryStore }

func (e storeEmitter) Emit(ctx context.Context, event audit.Event) error {
	return e.store.Append(ctx, event)
}

type EngineSuite struct {
	suite.Suite
	ctx     context.Context
	events  *auditmemory.InMemoryStore
	metrics *metrics.Metrics
	roles   *rolesservice.Service
	ledger  *ledgerservice.Service
	engine  *Service
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// SetupTest leaves signers {A, B, C} with a quorum of 2. The bootstrap
// admin keeps admin and verifier but gives up its signer capability.
func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.events = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	runner := tx.NewShardedRunner()
	emitter := storeEmitter{s.events}

	s.roles = rolesservice.New(rolesstore.NewInMemory(), runner, rolesservice.WithAuditPublisher(emitter))
	s.Require().NoError(s.roles.Bootstrap(s.ctx, admin))
	s.ledger = ledgerservice.New(ledgerstore.NewInMemory(), s.roles, runner, ledgerservice.WithAuditPublisher(emitter))
	s.engine = New(store.NewInMemory(), store.NewInMemoryConfig(), s.roles, s.ledger, runner,
		WithAuditPublisher(emitter),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(s.engine.Bootstrap(s.ctx, 1))

	for _, who := range []domain.Identity{signerA, signerB, signerC} {
		s.Require().NoError(s.engine.AddSigner(s.ctx, admin, who))
	}
	s.Require().NoError(s.engine.RemoveSigner(s.ctx, admin, admin))
	s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 2))
	s.events.Clear()
}

func (s *EngineSuite) verified(who domain.Identity) bool {
	ok, err := s.ledger.IsVerified(s.ctx, who)
	s.Require().NoError(err)
	return ok
}

func (s *EngineSuite) requireCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *EngineSuite) TestQuorumOfTwoExecutesOnSecondSignature() {
	// Given signers {A, B, C} and a quorum of 2
	// When A proposes verifying X
	op, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, targetX)
	s.Require().NoError(err)
	s.Equal(domain.OperationID(0), op.ID)
	s.False(op.Executed)
	s.Equal([]domain.Identity{signerA}, op.Signers)
	s.False(s.verified(targetX))

	// And B signs
	executed, err := s.engine.Sign(s.ctx, signerB, op.ID)
	s.Require().NoError(err)

	// Then the operation executes and X is verified
	s.True(executed)
	s.True(s.verified(targetX))
	done, err := s.engine.IsExecuted(s.ctx, op.ID)
	s.Require().NoError(err)
	s.True(done)

	// And a third signature is refused
	_, err = s.engine.Sign(s.ctx, signerC, op.ID)
	s.requireCode(err, dErrors.CodeAlreadyExecuted)
	count, err := s.engine.SignatureCount(s.ctx, op.ID)
	s.Require().NoError(err)
	s.Equal(2, count)

	events, err := s.events.ListByOperation(s.ctx, op.ID)
	s.Require().NoError(err)
	actions := make([]audit.Action, len(events))
	for i, e := range events {
		actions[i] = e.Action
	}
	s.Equal([]audit.Action{
		audit.EventOperationProposed,
		audit.EventOperationSigned,
		audit.EventOperationSigned,
		audit.EventIdentityVerified,
		audit.EventOperationExecuted,
	}, actions)
	s.Equal(signerB, events[3].Actor, "the completing signer is the actor of the ledger change")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.OperationsExecuted.WithLabelValues("verify_identity")))
}

func (s *EngineSuite) TestQuorumOfOneExecutesInsidePropose() {
	s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 1))
	s.Require().NoError(s.ledger.Verify(s.ctx, admin, targetY))

	op, err := s.engine.Propose(s.ctx, signerA, domain.OperationRevokeIdentity, targetY)
	s.Require().NoError(err)

	s.True(op.Executed)
	s.NotNil(op.ExecutedAt)
	s.False(s.verified(targetY))

	_, err = s.engine.Sign(s.ctx, signerB, op.ID)
	s.requireCode(err, dErrors.CodeAlreadyExecuted)
}

func (s *EngineSuite) TestDoubleSignIsRejected() {
	op, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, targetX)
	s.Require().NoError(err)

	_, err = s.engine.Sign(s.ctx, signerA, op.ID)
	s.requireCode(err, dErrors.CodeAlreadySigned)

	s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 3))
	_, err = s.engine.Sign(s.ctx, signerB, op.ID)
	s.Require().NoError(err)
	_, err = s.engine.Sign(s.ctx, signerB, op.ID)
	s.requireCode(err, dErrors.CodeAlreadySigned)

	count, err := s.engine.SignatureCount(s.ctx, op.ID)
	s.Require().NoError(err)
	s.Equal(2, count)

	executed, err := s.engine.Sign(s.ctx, signerC, op.ID)
	s.Require().NoError(err)
	s.Require().True(executed)
	// execution is checked before the caller's earlier signature
	for _, who := range []domain.Identity{signerA, signerB, signerC} {
		_, err = s.engine.Sign(s.ctx, who, op.ID)
		s.requireCode(err, dErrors.CodeAlreadyExecuted)
	}
}

func (s *EngineSuite) TestSignUnknownOperation() {
	_, err := s.engine.Sign(s.ctx, signerA, 42)
	s.requireCode(err, dErrors.CodeUnknownOperation)
}

func (s *EngineSuite) TestProposeValidation() {
	s.Run("non-signer", func() {
		_, err := s.engine.Propose(s.ctx, outsider, domain.OperationVerifyIdentity, targetX)
		s.requireCode(err, dErrors.CodeUnauthorized)
	})
	s.Run("authorization precedes argument checks", func() {
		_, err := s.engine.Propose(s.ctx, outsider, domain.OperationVerifyIdentity, domain.NilIdentity)
		s.requireCode(err, dErrors.CodeUnauthorized)
	})
	s.Run("null target", func() {
		_, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, domain.NilIdentity)
		s.requireCode(err, dErrors.CodeInvalidArgument)
	})
	s.Run("unknown kind", func() {
		_, err := s.engine.Propose(s.ctx, signerA, domain.OperationKind("mint"), targetX)
		s.requireCode(err, dErrors.CodeInvalidArgument)
	})
	s.Run("nothing was recorded", func() {
		ops, err := s.engine.List(s.ctx)
		s.Require().NoError(err)
		s.Empty(ops)
		s.Empty(s.events.Actions())
	})
}

func (s *EngineSuite) TestSignRequiresSigner() {
	op, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, targetX)
	s.Require().NoError(err)

	_, err = s.engine.Sign(s.ctx, outsider, op.ID)
	s.requireCode(err, dErrors.CodeUnauthorized)
	_, err = s.engine.Sign(s.ctx, admin, op.ID)
	s.requireCode(err, dErrors.CodeUnauthorized)
}

func (s *EngineSuite) TestIDsAreSequential() {
	for i := range 3 {
		op, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, targetX)
		s.Require().NoError(err)
		s.Equal(domain.OperationID(i), op.ID)
	}
	ops, err := s.engine.List(s.ctx)
	s.Require().NoError(err)
	s.Len(ops, 3)
}

func (s *EngineSuite) TestFailedDispatchRecordsNothing() {
	s.Require().NoError(s.ledger.Verify(s.ctx, admin, targetX))
	op, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, targetX)
	s.Require().NoError(err)
	s.events.Clear()

	executed, err := s.engine.Sign(s.ctx, signerB, op.ID)

	s.requireCode(err, dErrors.CodeAlreadyInState)
	s.False(executed)
	signed, err := s.engine.HasSigned(s.ctx, op.ID, signerB)
	s.Require().NoError(err)
	s.False(signed)
	done, err := s.engine.IsExecuted(s.ctx, op.ID)
	s.Require().NoError(err)
	s.False(done)
	s.Empty(s.events.Actions())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DispatchFailures.WithLabelValues(string(dErrors.CodeAlreadyInState))))

	s.Run("quorum of one refuses the proposal itself", func() {
		s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 1))
		s.events.Clear()
		_, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, targetX)
		s.requireCode(err, dErrors.CodeAlreadyInState)
		exists, err := s.engine.Exists(s.ctx, op.ID+1)
		s.Require().NoError(err)
		s.False(exists)
		s.Empty(s.events.Actions())
	})
}

func (s *EngineSuite) TestRemovedSignerSignatureStillCounts() {
	op, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, targetX)
	s.Require().NoError(err)
	s.Require().NoError(s.engine.RemoveSigner(s.ctx, admin, signerA))

	executed, err := s.engine.Sign(s.ctx, signerB, op.ID)
	s.Require().NoError(err)
	s.True(executed)
	s.True(s.verified(targetX))
}

func (s *EngineSuite) TestRemovalClampsQuorum() {
	s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 3))

	for _, who := range []domain.Identity{signerC, signerB} {
		s.Require().NoError(s.engine.RemoveSigner(s.ctx, admin, who))
		cfg, err := s.engine.Config(s.ctx)
		s.Require().NoError(err)
		s.LessOrEqual(cfg.RequiredSignatures, len(cfg.Signers))
		s.Equal(len(cfg.Signers), cfg.RequiredSignatures)
	}

	s.Require().NoError(s.engine.RemoveSigner(s.ctx, admin, signerA))
	cfg, err := s.engine.Config(s.ctx)
	s.Require().NoError(err)
	s.Empty(cfg.Signers)
	s.Equal(1, cfg.RequiredSignatures, "an empty signer set leaves the quorum alone")
}

func (s *EngineSuite) TestLowerQuorumExecutesOnNextSignature() {
	s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 3))
	op, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, targetX)
	s.Require().NoError(err)
	_, err = s.engine.Sign(s.ctx, signerB, op.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 1))
	done, err := s.engine.IsExecuted(s.ctx, op.ID)
	s.Require().NoError(err)
	s.False(done, "lowering the quorum does not execute by itself")

	executed, err := s.engine.Sign(s.ctx, signerC, op.ID)
	s.Require().NoError(err)
	s.True(executed)
}

func (s *EngineSuite) TestSignerManagement() {
	s.Run("quorum bounds", func() {
		s.requireCode(s.engine.SetRequiredSignatures(s.ctx, admin, 0), dErrors.CodeInvalidArgument)
		s.requireCode(s.engine.SetRequiredSignatures(s.ctx, admin, 4), dErrors.CodeInvalidArgument)
	})
	s.Run("admin only", func() {
		s.requireCode(s.engine.SetRequiredSignatures(s.ctx, signerA, 1), dErrors.CodeUnauthorized)
		s.requireCode(s.engine.AddSigner(s.ctx, signerA, outsider), dErrors.CodeUnauthorized)
		s.requireCode(s.engine.RemoveSigner(s.ctx, signerA, signerB), dErrors.CodeUnauthorized)
	})
	s.Run("events only on change", func() {
		s.events.Clear()
		s.Require().NoError(s.engine.AddSigner(s.ctx, admin, signerA))
		s.Require().NoError(s.engine.RemoveSigner(s.ctx, admin, outsider))
		s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 2))
		s.Empty(s.events.Actions())

		s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 3))
		s.Equal([]audit.Action{audit.EventQuorumChanged}, s.events.Actions())
		s.Equal(3.0, testutil.ToFloat64(s.metrics.RequiredSignatures))
	})
	s.Run("null signer", func() {
		s.requireCode(s.engine.AddSigner(s.ctx, admin, domain.NilIdentity), dErrors.CodeInvalidArgument)
	})
}

func (s *EngineSuite) TestLenientAccessors() {
	count, err := s.engine.SignatureCount(s.ctx, 9)
	s.Require().NoError(err)
	s.Zero(count)
	exists, err := s.engine.Exists(s.ctx, 9)
	s.Require().NoError(err)
	s.False(exists)
	signed, err := s.engine.HasSigned(s.ctx, 9, signerA)
	s.Require().NoError(err)
	s.False(signed)
	_, err = s.engine.Get(s.ctx, 9)
	s.requireCode(err, dErrors.CodeUnknownOperation)
}

func (s *EngineSuite) TestConcurrentSignersExecuteOnce() {
	const extra = 9
	signers := make([]domain.Identity, extra)
	for i := range signers {
		signers[i] = domain.MustParseIdentity(fmt.Sprintf("0x%040x", 0x100+i))
		s.Require().NoError(s.engine.AddSigner(s.ctx, admin, signers[i]))
	}
	s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 5))
	op, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, targetX)
	s.Require().NoError(err)
	s.events.Clear()

	var executedCount, signedCount, refused atomic.Int32
	var wg sync.WaitGroup
	for _, who := range signers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			executed, err := s.engine.Sign(s.ctx, who, op.ID)
			switch {
			case err == nil && executed:
				executedCount.Add(1)
			case err == nil:
				signedCount.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadyExecuted):
				refused.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), executedCount.Load())
	s.Equal(int32(3), signedCount.Load())
	s.Equal(int32(extra-4), refused.Load())
	count, err := s.engine.SignatureCount(s.ctx, op.ID)
	s.Require().NoError(err)
	s.Equal(5, count)

	verifications := 0
	for _, a := range s.events.Actions() {
		if a == audit.EventIdentityVerified {
			verifications++
		}
	}
	s.Equal(1, verifications)
}

func (s *EngineSuite) TestConcurrentSameSignerSignsOnce() {
	s.Require().NoError(s.engine.SetRequiredSignatures(s.ctx, admin, 3))
	op, err := s.engine.Propose(s.ctx, signerA, domain.OperationVerifyIdentity, targetX)
	s.Require().NoError(err)

	var ok, already atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.engine.Sign(s.ctx, signerB, op.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadySigned):
				already.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(15), already.Load())
}

func TestBootstrapClampsAndKeepsStoredQuorum(t *testing.T) {
	ctx := context.Background()
	runner := tx.NewShardedRunner()
	roles := rolesservice.New(rolesstore.NewInMemory(), runner)
	if err := roles.Bootstrap(ctx, admin); err != nil {
		t.Fatal(err)
	}
	config := store.NewInMemoryConfig()
	engine := New(store.NewInMemory(), config, roles, nil, runner)

	if err := engine.Bootstrap(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if n, _ := config.RequiredSignatures(ctx); n != 1 {
		t.Fatalf("expected quorum clamped to the single signer, got %d", n)
	}

	if err := config.SetRequiredSignatures(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := engine.AddSigner(ctx, admin, signerA); err != nil {
		t.Fatal(err)
	}
	if err := engine.SetRequiredSignatures(ctx, admin, 2); err != nil {
		t.Fatal(err)
	}
	if err := engine.Bootstrap(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if n, _ := config.RequiredSignatures(ctx); n != 2 {
		t.Fatalf("bootstrap overwrote a stored quorum: got %d", n)
	}
}
