package jwttoken

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/jwt_token/revocation"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	authmw "kycgate/pkg/platform/middleware/auth"
	"kycgate/pkg/requestcontext"
)

// Revoker records a token as revoked until it expires.
type Revoker interface {
	Revoke(ctx context.Context, e revocation.Entry) error
}

// Handler exposes token self-revocation.
type Handler struct {
	revoker Revoker
	logger  *slog.Logger
}

func NewHandler(revoker Revoker, logger *slog.Logger) *Handler {
	return &Handler{revoker: revoker, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/auth/logout", h.HandleLogout)
}

// HandleLogout revokes the bearer token used for the request until it expires.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	jti := requestcontext.TokenID(ctx)
	if jti == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token has no id"))
		return
	}
	entry := revocation.Entry{JTI: jti, Subject: caller, ExpiresAt: authmw.ExpiresAt(ctx)}
	if err := h.revoker.Revoke(ctx, entry); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke token",
			"request_id", requestID,
			"actor", caller.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token"))
		return
	}
	h.logger.InfoContext(ctx, "token revoked",
		"event", "token_revoked",
		"request_id", requestID,
		"actor", caller.String(),
		"jti", jti,
	)
	w.WriteHeader(http.StatusNoContent)
}
