package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/roles/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Service is the subset of the role service the HTTP layer needs.
type Service interface {
	GrantAdmin(ctx context.Context, actor, target domain.Identity) error
	RevokeAdmin(ctx context.Context, actor, target domain.Identity) error
	Capabilities(ctx context.Context, who domain.Identity) (*models.CapabilitySet, error)
}

// Handler exposes admin management and capability lookups.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts role endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/roles/admins/{identity}", h.HandleGrantAdmin)
	r.Delete("/v1/roles/admins/{identity}", h.HandleRevokeAdmin)
	r.Get("/v1/roles/{identity}", h.HandleCapabilities)
}

// HandleGrantAdmin handles POST /v1/roles/admins/{identity}.
func (h *Handler) HandleGrantAdmin(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "grant admin", h.service.GrantAdmin)
}

// HandleRevokeAdmin handles DELETE /v1/roles/admins/{identity}.
func (h *Handler) HandleRevokeAdmin(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "revoke admin", h.service.RevokeAdmin)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, what string,
	fn func(ctx context.Context, actor, target domain.Identity) error) {
	ctx := r.Context()
	caller, err := httputil.RequireCaller(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	target, err := httputil.IdentityParam(r, "identity")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := fn(ctx, caller, target); err != nil {
		h.logger.WarnContext(ctx, what+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"actor", caller.String(),
			"target", target.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCapabilities handles GET /v1/roles/{identity}.
func (h *Handler) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	who, err := httputil.IdentityParam(r, "identity")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	set, err := h.service.Capabilities(r.Context(), who)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, set)
}
