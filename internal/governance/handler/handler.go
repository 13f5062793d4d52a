package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/governance/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Service is the operation engine surface the HTTP layer needs.
type Service interface {
	Propose(ctx context.Context, caller domain.Identity, kind domain.OperationKind, target domain.Identity) (*models.Operation, error)
	Sign(ctx context.Context, caller domain.Identity, id domain.OperationID) (bool, error)
	Get(ctx context.Context, id domain.OperationID) (*models.Operation, error)
	List(ctx context.Context) ([]*models.Operation, error)
	HasSigned(ctx context.Context, id domain.OperationID, who domain.Identity) (bool, error)
	Config(ctx context.Context) (*models.Config, error)
	AddSigner(ctx context.Context, actor, who domain.Identity) error
	RemoveSigner(ctx context.Context, actor, who domain.Identity) error
	SetRequiredSignatures(ctx context.Context, actor domain.Identity, n int) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts governance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/governance", func(r chi.Router) {
		r.Post("/operations", h.HandlePropose)
		r.Get("/operations", h.HandleList)
		r.Get("/operations/{id}", h.HandleGet)
		r.Post("/operations/{id}/sign", h.HandleSign)
		r.Get("/operations/{id}/signers/{identity}", h.HandleHasSigned)
		r.Get("/config", h.HandleConfig)
		r.Post("/signers/{identity}", h.HandleAddSigner)
		r.Delete("/signers/{identity}", h.HandleRemoveSigner)
		r.Put("/quorum", h.HandleSetQuorum)
	})
}

// HandlePropose handles POST /v1/governance/operations.
func (h *Handler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.ProposeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	kind, target := req.Parsed()
	op, err := h.service.Propose(ctx, caller, kind, target)
	if err != nil {
		h.logger.WarnContext(ctx, "propose failed",
			"request_id", requestID,
			"actor", caller.String(),
			"kind", string(kind),
			"target", target.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, op)
}

// HandleSign handles POST /v1/governance/operations/{id}/sign.
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := httputil.RequireCaller(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := httputil.OperationIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	executed, err := h.service.Sign(ctx, caller, id)
	if err != nil {
		h.logger.WarnContext(ctx, "sign failed",
			"request_id", requestcontext.RequestID(ctx),
			"actor", caller.String(),
			"operation_id", uint64(id),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SignResponse{Executed: executed})
}

// HandleGet handles GET /v1/governance/operations/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.OperationIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	op, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, op)
}

// HandleList handles GET /v1/governance/operations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ops, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if ops == nil {
		ops = []*models.Operation{}
	}
	httputil.WriteJSON(w, http.StatusOK, models.OperationList{Operations: ops})
}

// HandleHasSigned handles GET /v1/governance/operations/{id}/signers/{identity}.
func (h *Handler) HandleHasSigned(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.OperationIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	who, err := httputil.IdentityParam(r, "identity")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	signed, err := h.service.HasSigned(r.Context(), id, who)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SignedResponse{Operation: id, Identity: who, Signed: signed})
}

// HandleConfig handles GET /v1/governance/config.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Config(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

// HandleAddSigner handles POST /v1/governance/signers/{identity}.
func (h *Handler) HandleAddSigner(w http.ResponseWriter, r *http.Request) {
	h.signerCommand(w, r, "add signer", h.service.AddSigner)
}

// HandleRemoveSigner handles DELETE /v1/governance/signers/{identity}.
func (h *Handler) HandleRemoveSigner(w http.ResponseWriter, r *http.Request) {
	h.signerCommand(w, r, "remove signer", h.service.RemoveSigner)
}

func (h *Handler) signerCommand(w http.ResponseWriter, r *http.Request, what string,
	fn func(ctx context.Context, actor, who domain.Identity) error) {
	ctx := r.Context()
	caller, err := httputil.RequireCaller(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	who, err := httputil.IdentityParam(r, "identity")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := fn(ctx, caller, who); err != nil {
		h.logger.WarnContext(ctx, what+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"actor", caller.String(),
			"signer", who.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetQuorum handles PUT /v1/governance/quorum.
func (h *Handler) HandleSetQuorum(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.QuorumRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.SetRequiredSignatures(ctx, caller, req.RequiredSignatures); err != nil {
		h.logger.WarnContext(ctx, "set quorum failed",
			"request_id", requestID,
			"actor", caller.String(),
			"required_signatures", req.RequiredSignatures,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
