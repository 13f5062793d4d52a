package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/ledger/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Service is the ledger surface the HTTP layer needs.
type Service interface {
	Name() string
	Status(ctx context.Context, who domain.Identity) (*models.Status, error)
	ListVerified(ctx context.Context) ([]domain.Identity, error)
	Verify(ctx context.Context, actor, who domain.Identity) error
	Revoke(ctx context.Context, actor, who domain.Identity) error
	BatchVerify(ctx context.Context, actor domain.Identity, ids []domain.Identity) ([]domain.Identity, error)
	GrantVerifier(ctx context.Context, actor, who domain.Identity) error
	RevokeVerifier(ctx context.Context, actor, who domain.Identity) error
}

// Resolver looks a ledger up by name. Unknown names are NotFound.
type Resolver func(name string) (Service, error)

// Handler exposes verification reads and verifier commands.
type Handler struct {
	service Service
	resolve Resolver
	logger  *slog.Logger
}

type Option func(*Handler)

// WithLedgers enables the /v1/ledgers/{ledger} routes, resolved per request.
func WithLedgers(resolve Resolver) Option {
	return func(h *Handler) {
		h.resolve = resolve
	}
}

// New serves service under /v1/ledger. Verifier capabilities are shared by
// every ledger, so the verifier routes are not scoped.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	prefixes := []string{"/v1/ledger"}
	if h.resolve != nil {
		prefixes = append(prefixes, "/v1/ledgers/{ledger}")
	}
	for _, p := range prefixes {
		r.Get(p+"/identities", h.HandleListVerified)
		r.Get(p+"/identities/{identity}", h.HandleStatus)
		r.Post(p+"/identities/{identity}/verify", h.HandleVerify)
		r.Post(p+"/identities/{identity}/revoke", h.HandleRevoke)
		r.Post(p+"/batch-verify", h.HandleBatchVerify)
	}
	r.Post("/v1/roles/verifiers/{identity}", h.HandleGrantVerifier)
	r.Delete("/v1/roles/verifiers/{identity}", h.HandleRevokeVerifier)
}

// ledger picks the ledger named in the path, or the default one.
func (h *Handler) ledger(r *http.Request) (Service, error) {
	name := chi.URLParam(r, "ledger")
	if name == "" || h.resolve == nil {
		return h.service, nil
	}
	return h.resolve(name)
}

// HandleStatus handles GET /v1/ledger/identities/{identity}.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	svc, err := h.ledger(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	who, err := httputil.IdentityParam(r, "identity")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := svc.Status(r.Context(), who)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleListVerified handles GET /v1/ledger/identities.
func (h *Handler) HandleListVerified(w http.ResponseWriter, r *http.Request) {
	svc, err := h.ledger(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ids, err := svc.ListVerified(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.VerifiedList{Ledger: svc.Name(), Identities: ids})
}

// HandleVerify handles POST /v1/ledger/identities/{identity}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "verify identity", Service.Verify)
}

// HandleRevoke handles POST /v1/ledger/identities/{identity}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "revoke identity", Service.Revoke)
}

// HandleGrantVerifier handles POST /v1/roles/verifiers/{identity}.
func (h *Handler) HandleGrantVerifier(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "grant verifier", Service.GrantVerifier)
}

// HandleRevokeVerifier handles DELETE /v1/roles/verifiers/{identity}.
func (h *Handler) HandleRevokeVerifier(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "revoke verifier", Service.RevokeVerifier)
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request, what string,
	fn func(svc Service, ctx context.Context, actor, who domain.Identity) error) {
	ctx := r.Context()
	caller, err := httputil.RequireCaller(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	svc, err := h.ledger(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	who, err := httputil.IdentityParam(r, "identity")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := fn(svc, ctx, caller, who); err != nil {
		h.logger.WarnContext(ctx, what+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"ledger", chi.URLParam(r, "ledger"),
			"actor", caller.String(),
			"identity", who.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBatchVerify handles POST /v1/ledger/batch-verify.
func (h *Handler) HandleBatchVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	svc, err := h.ledger(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.BatchVerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	verified, err := svc.BatchVerify(ctx, caller, req.Parsed())
	if err != nil {
		h.logger.WarnContext(ctx, "batch verify failed",
			"request_id", requestID,
			"ledger", chi.URLParam(r, "ledger"),
			"actor", caller.String(),
			"batch_size", len(req.Identities),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.BatchVerifyResponse{Verified: verified})
}
