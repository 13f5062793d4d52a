package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	govmodels "kycgate/internal/governance/models"
	ledgermodels "kycgate/internal/ledger/models"
	"kycgate/internal/platform/config"
	"kycgate/pkg/domain"
	"kycgate/pkg/testutil"
)

var (
	admin   = domain.MustParseIdentity("0x00000000000000000000000000000000000000ad")
	signerB = domain.MustParseIdentity("0x000000000000000000000000000000000000000b")
	signerC = domain.MustParseIdentity("0x000000000000000000000000000000000000000c")
	alice   = domain.MustParseIdentity("0x00000000000000000000000000000000000a11ce")
	bob     = domain.MustParseIdentity("0x0000000000000000000000000000000000000b0b")
)

func newTestApp(t *testing.T, overrides ...func(*config.Server)) *app {
	t.Helper()
	cfg := config.Server{
		JWTSigningKey:  "test-signing-key",
		JWTIssuer:      "kycgate",
		TokenTTL:       time.Hour,
		BootstrapAdmin: admin,
		Ledgers:        []string{"primary", "secondary"},
		RequiredSigs:   1,
		TxTimeout:      time.Second,
	}
	for _, o := range overrides {
		o(&cfg)
	}
	a, err := build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func (a *app) call(t *testing.T, method, path string, body any, caller domain.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	if !caller.IsNil() {
		token, err := a.tokens.GenerateAccessToken(caller, time.Hour)
		require.NoError(t, err)
		testutil.WithBearer(req, token)
	}
	return testutil.DoRequest(a.handler, req)
}

func TestServer_QuorumVerificationGatesTransfers(t *testing.T) {
	a := newTestApp(t)
	var op *govmodels.Operation
	var assetID string

	testutil.Given(t, "an admin with two co-signers and a quorum of two", func(t *testing.T) {
		testutil.AssertStatus(t, a.call(t, http.MethodPost, "/v1/governance/signers/"+signerB.String(), nil, admin), http.StatusNoContent)
		testutil.AssertStatus(t, a.call(t, http.MethodPost, "/v1/governance/signers/"+signerC.String(), nil, admin), http.StatusNoContent)
		testutil.AssertStatus(t, a.call(t, http.MethodPut, "/v1/governance/quorum", map[string]int{"required_signatures": 2}, admin), http.StatusNoContent)

		rr := a.call(t, http.MethodGet, "/v1/governance/config", nil, admin)
		testutil.AssertStatus(t, rr, http.StatusOK)
		cfg := testutil.UnmarshalResponse[govmodels.Config](t, rr)
		assert.Equal(t, 2, cfg.RequiredSignatures)
		assert.Len(t, cfg.Signers, 3)
	})

	testutil.When(t, "signer B proposes verifying alice", func(t *testing.T) {
		rr := a.call(t, http.MethodPost, "/v1/governance/operations",
			map[string]string{"kind": "verify_identity", "target": alice.String()}, signerB)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		op = testutil.UnmarshalResponse[govmodels.Operation](t, rr)
		assert.Equal(t, domain.OperationID(0), op.ID)
		assert.False(t, op.Executed)

		status := testutil.UnmarshalResponse[ledgermodels.Status](t, a.call(t, http.MethodGet, "/v1/ledger/identities/"+alice.String(), nil, admin))
		assert.False(t, status.Verified, "one signature is below quorum")
	})

	testutil.Then(t, "signer C's signature executes it exactly once", func(t *testing.T) {
		require.NotNil(t, op)
		path := "/v1/governance/operations/" + op.ID.String() + "/sign"

		rr := a.call(t, http.MethodPost, path, nil, signerC)
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, true, (*testutil.UnmarshalResponse[map[string]any](t, rr))["executed"])

		status := testutil.UnmarshalResponse[ledgermodels.Status](t, a.call(t, http.MethodGet, "/v1/ledger/identities/"+alice.String(), nil, admin))
		assert.True(t, status.Verified)

		testutil.AssertStatusAndError(t, a.call(t, http.MethodPost, path, nil, admin), http.StatusConflict, "already_executed")
	})

	testutil.Then(t, "a guarded asset only moves between verified holders", func(t *testing.T) {
		testutil.AssertStatus(t, a.call(t, http.MethodPost, "/v1/ledger/identities/"+admin.String()+"/verify", nil, admin), http.StatusNoContent)

		rr := a.call(t, http.MethodPost, "/v1/assets", map[string]any{
			"name": "Harbour Street 12", "symbol": "HS12", "valuation": map[string]any{"amount": 1200000, "currency": "EUR"},
			"document_hash": "sha256:9f2c", "initial_supply": 1000, "ledger": "primary",
		}, admin)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		assetID, _ = (*testutil.UnmarshalResponse[map[string]any](t, rr))["id"].(string)
		require.NotEmpty(t, assetID)

		transfers := "/v1/assets/" + assetID + "/transfers"
		testutil.AssertStatus(t, a.call(t, http.MethodPost, transfers, map[string]any{"to": alice.String(), "amount": 10}, admin), http.StatusOK)

		rr = a.call(t, http.MethodPost, transfers, map[string]any{"to": bob.String(), "amount": 10}, admin)
		rejected := testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "compliance_rejected")
		assert.Equal(t, bob.String(), rejected.Party)
		assert.Equal(t, "recipient", rejected.Role)

		balance := testutil.UnmarshalResponse[map[string]any](t, a.call(t, http.MethodGet, "/v1/assets/"+assetID+"/balances/"+admin.String(), nil, admin))
		assert.Equal(t, 990.0, (*balance)["balance"])
	})

	testutil.Then(t, "the notification trail records the quorum path", func(t *testing.T) {
		rr := a.call(t, http.MethodGet, "/v1/audit/operations/0", nil, admin)
		testutil.AssertStatus(t, rr, http.StatusOK)
		body := testutil.UnmarshalResponse[struct {
			Events []struct {
				Action string `json:"action"`
			} `json:"events"`
		}](t, rr)
		var actions []string
		for _, e := range body.Events {
			actions = append(actions, e.Action)
		}
		assert.Equal(t, []string{"operation_proposed", "operation_signed", "operation_signed", "identity_verified", "operation_executed"}, actions)
	})
}

func TestServer_AssetBoundToSecondaryLedger(t *testing.T) {
	a := newTestApp(t)
	var transfers string

	testutil.Given(t, "admin and alice verified on the primary ledger only", func(t *testing.T) {
		for _, who := range []domain.Identity{admin, alice} {
			testutil.AssertStatus(t, a.call(t, http.MethodPost, "/v1/ledger/identities/"+who.String()+"/verify", nil, admin), http.StatusNoContent)
		}
		rr := a.call(t, http.MethodPost, "/v1/assets", map[string]any{
			"name": "Quay Lane 3", "symbol": "QL3", "valuation": map[string]any{"amount": 450000},
			"document_hash": "sha256:c0de", "initial_supply": 100, "ledger": "secondary",
		}, admin)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		id, _ := (*testutil.UnmarshalResponse[map[string]any](t, rr))["id"].(string)
		require.NotEmpty(t, id)
		transfers = "/v1/assets/" + id + "/transfers"
	})

	testutil.When(t, "the asset moves before the secondary ledger knows anyone", func(t *testing.T) {
		rr := a.call(t, http.MethodPost, transfers, map[string]any{"to": alice.String(), "amount": 5}, admin)
		rejected := testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "compliance_rejected")
		assert.Equal(t, admin.String(), rejected.Party)
		assert.Equal(t, "sender", rejected.Role)
	})

	testutil.Then(t, "verifying both parties on the secondary ledger unblocks it", func(t *testing.T) {
		for _, who := range []domain.Identity{admin, alice} {
			testutil.AssertStatus(t, a.call(t, http.MethodPost, "/v1/ledgers/secondary/identities/"+who.String()+"/verify", nil, admin), http.StatusNoContent)
		}
		status := testutil.UnmarshalResponse[ledgermodels.Status](t, a.call(t, http.MethodGet, "/v1/ledgers/secondary/identities/"+alice.String(), nil, admin))
		assert.True(t, status.Verified)

		testutil.AssertStatus(t, a.call(t, http.MethodPost, transfers, map[string]any{"to": alice.String(), "amount": 5}, admin), http.StatusOK)
	})

	testutil.Then(t, "each ledger lists only its own verifications", func(t *testing.T) {
		rr := a.call(t, http.MethodGet, "/v1/ledgers/secondary/identities", nil, admin)
		testutil.AssertStatus(t, rr, http.StatusOK)
		list := testutil.UnmarshalResponse[ledgermodels.VerifiedList](t, rr)
		assert.Equal(t, "secondary", list.Ledger)
		assert.ElementsMatch(t, []domain.Identity{admin, alice}, list.Identities)

		testutil.AssertStatus(t, a.call(t, http.MethodPost, "/v1/ledgers/secondary/identities/"+alice.String()+"/revoke", nil, admin), http.StatusNoContent)
		status := testutil.UnmarshalResponse[ledgermodels.Status](t, a.call(t, http.MethodGet, "/v1/ledger/identities/"+alice.String(), nil, admin))
		assert.True(t, status.Verified, "primary is untouched")
	})

	testutil.Then(t, "an unknown ledger is not found", func(t *testing.T) {
		testutil.AssertStatusAndError(t, a.call(t, http.MethodPost, "/v1/ledgers/tertiary/identities/"+alice.String()+"/verify", nil, admin),
			http.StatusNotFound, "not_found")
	})
}

func TestServer_LogsSpansWithErrorCodes(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Server{
		JWTSigningKey:  "test-signing-key",
		JWTIssuer:      "kycgate",
		BootstrapAdmin: admin,
		Ledgers:        []string{"primary"},
		RequiredSigs:   1,
		TxTimeout:      time.Second,
		Tracing:        config.TracingConfig{SampleRatio: 1, LogSpans: true},
	}
	a, err := build(context.Background(), cfg, slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, err)
	t.Cleanup(a.close)

	verify := "/v1/ledger/identities/" + alice.String() + "/verify"
	testutil.AssertStatus(t, a.call(t, http.MethodPost, verify, nil, admin), http.StatusNoContent)
	testutil.AssertStatusAndError(t, a.call(t, http.MethodPost, verify, nil, admin), http.StatusConflict, "already_in_state")
	require.NoError(t, a.traces.ForceFlush(context.Background()))

	var spans []map[string]any
	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		if line["msg"] == "span finished" && line["span"] == "ledger.Verify" {
			spans = append(spans, line)
		}
	}
	require.Len(t, spans, 2)
	assert.NotContains(t, spans[0], "attr.error.code")
	assert.Equal(t, "already_in_state", spans[1]["attr.error.code"])
	assert.Equal(t, "Unset", spans[1]["status"])
}

func TestServer_Authentication(t *testing.T) {
	a := newTestApp(t)

	testutil.AssertStatusAndError(t, a.call(t, http.MethodGet, "/v1/governance/config", nil, domain.NilIdentity),
		http.StatusUnauthorized, "unauthenticated")

	token, err := a.tokens.GenerateAccessToken(alice, time.Hour)
	require.NoError(t, err)
	logout := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/v1/auth/logout", nil), token)
	testutil.AssertStatus(t, testutil.DoRequest(a.handler, logout), http.StatusNoContent)

	again := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodGet, "/v1/governance/config", nil), token)
	testutil.AssertStatus(t, testutil.DoRequest(a.handler, again), http.StatusUnauthorized)
}

func TestServer_PublicEndpoints(t *testing.T) {
	a := newTestApp(t)

	rr := testutil.DoRequest(a.handler, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.DoRequest(a.handler, testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), "kycgate_http_requests_total")
}

func TestServer_RateLimitsCommandsPerCaller(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Server) {
		cfg.RateLimit = config.RateLimitConfig{ReadPerMinute: 100, WritePerMinute: 1}
	})
	verify := "/v1/ledger/identities/" + alice.String() + "/verify"

	testutil.AssertStatus(t, a.call(t, http.MethodPost, verify, nil, admin), http.StatusNoContent)
	testutil.AssertStatusAndError(t, a.call(t, http.MethodPost, verify, nil, admin), http.StatusTooManyRequests, "rate_limit_exceeded")

	rr := a.call(t, http.MethodGet, "/v1/ledger/identities/"+alice.String(), nil, admin)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "100", rr.Header().Get("X-RateLimit-Limit"))
}
