package pos

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/httpx"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
)

// Handler exposes POS HTTP endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/pos/transactions", h.recordSale)                // POST   /api/v1/pos/transactions
	r.Get("/api/v1/pos/transactions/{id}", h.getTransaction)        // GET    /api/v1/pos/transactions/{id}
	r.Post("/api/v1/pos/transactions/{id}/refund", h.refund)        // POST   /api/v1/pos/transactions/{id}/refund
	r.Get("/api/v1/shifts/{shift_id}/transactions", h.listForShift) // GET    /api/v1/shifts/{shift_id}/transactions
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, status int, fn func(actor auth.Actor) (any, error)) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.Unauthorized("MISSING_TOKEN", "missing bearer token"))
		return
	}
	out, err := fn(actor)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.Respond(w, status, out)
}

func (h *Handler) recordSale(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusCreated, func(a auth.Actor) (any, error) {
		var req RecordSaleRequest
		if err := httpx.Decode(r, &req); err != nil {
			return nil, err
		}
		return h.service.RecordSale(r.Context(), a, req)
	})
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.GetTransaction(r.Context(), a, chi.URLParam(r, "id"))
	})
}

func (h *Handler) listForShift(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.ListShiftTransactions(r.Context(), a, chi.URLParam(r, "shift_id"))
	})
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		var req RefundRequest
		if err := httpx.Decode(r, &req); err != nil {
			return nil, err
		}
		return h.service.RefundTransaction(r.Context(), a, chi.URLParam(r, "id"), req)
	})
}
