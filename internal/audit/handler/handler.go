// Package handler exposes read access to the committed notification trail.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Reader is the query side of an audit.Store.
type Reader interface {
	ListBySubject(ctx context.Context, subject domain.Identity) ([]audit.Event, error)
	ListByOperation(ctx context.Context, opID domain.OperationID) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

type Handler struct {
	reader Reader
	logger *slog.Logger
}

func New(reader Reader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/audit", func(r chi.Router) {
		r.Get("/events", h.HandleRecent)
		r.Get("/identities/{identity}", h.HandleBySubject)
		r.Get("/operations/{id}", h.HandleByOperation)
	})
}

// HandleRecent handles GET /v1/audit/events?limit=n.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "limit must be between 1 and %d", maxLimit))
			return
		}
		limit = n
	}
	events, err := h.reader.ListRecent(r.Context(), limit)
	h.write(w, r, events, err)
}

// HandleBySubject handles GET /v1/audit/identities/{identity}.
func (h *Handler) HandleBySubject(w http.ResponseWriter, r *http.Request) {
	subject, err := httputil.IdentityParam(r, "identity")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.reader.ListBySubject(r.Context(), subject)
	h.write(w, r, events, err)
}

// HandleByOperation handles GET /v1/audit/operations/{id}.
func (h *Handler) HandleByOperation(w http.ResponseWriter, r *http.Request) {
	opID, err := httputil.OperationIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.reader.ListByOperation(r.Context(), opID)
	h.write(w, r, events, err)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, events []audit.Event, err error) {
	if err != nil {
		ctx := r.Context()
		h.logger.ErrorContext(ctx, "failed to read audit events",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit events"))
		return
	}
	out := make([]audit.Envelope, 0, len(events))
	for _, e := range events {
		out = append(out, audit.ToEnvelope(e))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}
