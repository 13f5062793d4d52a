package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/asset/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

type Service interface {
	CreateGuardedAsset(ctx context.Context, caller domain.Identity, req models.CreateAssetRequest) (*models.Asset, error)
}

// Ledgers lists bindable ledger references.
type Ledgers interface {
	Names() []string
}

type Handler struct {
	service Service
	ledgers Ledgers
	logger  *slog.Logger
}

func New(service Service, ledgers Ledgers, logger *slog.Logger) *Handler {
	return &Handler{service: service, ledgers: ledgers, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/assets", h.HandleCreate)
	r.Get("/v1/ledgers", h.HandleLedgers)
}

// HandleCreate handles POST /v1/assets.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, err := httputil.RequireCaller(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.CreateAssetRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.CreateGuardedAsset(ctx, caller, *req)
	if err != nil {
		h.logger.WarnContext(ctx, "create asset failed",
			"request_id", requestID,
			"actor", caller.String(),
			"ledger", req.LedgerRef,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

// HandleLedgers handles GET /v1/ledgers.
func (h *Handler) HandleLedgers(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{"ledgers": h.ledgers.Names()})
}
