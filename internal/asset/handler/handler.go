package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/asset/models"
	"kycgate/internal/guard"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

type Service interface {
	Get(ctx context.Context, id domain.AssetID) (*models.Asset, error)
	List(ctx context.Context) ([]*models.Asset, error)
	BalanceOf(ctx context.Context, id domain.AssetID, holder domain.Identity) (*models.Balance, error)
	Transfer(ctx context.Context, caller domain.Identity, id domain.AssetID, to domain.Identity, amount uint64) (*guard.Result, error)
	Burn(ctx context.Context, caller domain.Identity, id domain.AssetID, amount uint64) error
	SetValuation(ctx context.Context, caller domain.Identity, id domain.AssetID, valuation models.Valuation) error
	SetDocumentHash(ctx context.Context, caller domain.Identity, id domain.AssetID, hash string) error
	SetLedger(ctx context.Context, caller domain.Identity, id domain.AssetID, ref string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/assets", h.HandleList)
	r.Route("/v1/assets/{id}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Post("/transfers", h.HandleTransfer)
		r.Get("/balances/{identity}", h.HandleBalance)
		r.Put("/valuation", h.HandleSetValuation)
		r.Put("/document", h.HandleSetDocument)
		r.Put("/ledger", h.HandleSetLedger)
		r.Post("/burn", h.HandleBurn)
	})
}

// HandleList handles GET /v1/assets.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if assets == nil {
		assets = []*models.Asset{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"assets": assets})
}

// HandleGet handles GET /v1/assets/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.AssetIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// HandleBalance handles GET /v1/assets/{id}/balances/{identity}.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.AssetIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	holder, err := httputil.IdentityParam(r, "identity")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.service.BalanceOf(r.Context(), id, holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balance)
}

// HandleTransfer handles POST /v1/assets/{id}/transfers.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.Transfer(ctx, caller, id, req.Recipient(), req.Amount)
	if err != nil {
		h.logger.WarnContext(ctx, "transfer failed",
			"request_id", requestID,
			"asset_id", id.String(),
			"from", caller.String(),
			"to", req.To,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleSetValuation handles PUT /v1/assets/{id}/valuation.
func (h *Handler) HandleSetValuation(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.ValuationRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	h.finish(w, r, "set valuation", id, h.service.SetValuation(r.Context(), caller, id, req.Valuation))
}

// HandleSetDocument handles PUT /v1/assets/{id}/document.
func (h *Handler) HandleSetDocument(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.DocumentRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	h.finish(w, r, "set document hash", id, h.service.SetDocumentHash(r.Context(), caller, id, req.DocumentHash))
}

// HandleSetLedger handles PUT /v1/assets/{id}/ledger.
func (h *Handler) HandleSetLedger(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.LedgerRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	h.finish(w, r, "set ledger", id, h.service.SetLedger(r.Context(), caller, id, req.Ledger))
}

// HandleBurn handles POST /v1/assets/{id}/burn.
func (h *Handler) HandleBurn(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.BurnRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	h.finish(w, r, "burn", id, h.service.Burn(r.Context(), caller, id, req.Amount))
}

// target extracts the caller and asset id shared by every command.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (domain.Identity, domain.AssetID, bool) {
	caller, err := httputil.RequireCaller(r)
	if err != nil {
		httputil.WriteError(w, err)
		return domain.NilIdentity, domain.AssetID{}, false
	}
	id, err := httputil.AssetIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return domain.NilIdentity, domain.AssetID{}, false
	}
	return caller, id, true
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request, what string, id domain.AssetID, err error) {
	if err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, what+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"asset_id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
