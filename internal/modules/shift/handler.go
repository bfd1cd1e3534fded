package shift

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/httpx"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
)

// Handler handles HTTP requests for shifts.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new shift handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers shift routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/shifts", h.openShift)
	r.Get("/api/v1/shifts/{id}", h.getShift)
	r.Get("/api/v1/shifts/{id}/summary", h.getSummary)
	r.Post("/api/v1/shifts/{id}/activate", h.activate)
	r.Post("/api/v1/shifts/{id}/closing", h.initiateClosing)
	r.Post("/api/v1/shifts/{id}/reconcile", h.reconcile)
	r.Post("/api/v1/shifts/{id}/variance/approve", h.approveVariance)
	r.Post("/api/v1/shifts/{id}/finalize", h.finalize)
	r.Post("/api/v1/shifts/{id}/close", h.closeDirect)

	r.Get("/api/v1/stores/{store_id}/shifts", h.listStoreShifts)
	r.Post("/api/v1/stores/{store_id}/shifts/backfill-business-days", h.backfill)
	r.Get("/api/v1/terminals/{terminal_id}/shifts/active", h.activeShift)
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

// decode reads the body into v; an empty body leaves v at its zero value.
func decode(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return httpx.Decode(r, v)
}

func (h *Handler) openShift(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusCreated, func(a auth.Actor) (any, error) {
		var req OpenShiftRequest
		if err := httpx.Decode(r, &req); err != nil {
			return nil, err
		}
		return h.service.OpenShift(r.Context(), a, req)
	})
}

func (h *Handler) getShift(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.GetShift(r.Context(), a, chi.URLParam(r, "id"))
	})
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.GetSummary(r.Context(), a, chi.URLParam(r, "id"))
	})
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		var req ActivateRequest
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		return h.service.ActivateShiftOnFirstActivity(r.Context(), a, chi.URLParam(r, "id"), req.Trigger)
	})
}

func (h *Handler) initiateClosing(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.InitiateClosing(r.Context(), a, chi.URLParam(r, "id"))
	})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		var req ReconcileRequest
		if err := httpx.Decode(r, &req); err != nil {
			return nil, err
		}
		return h.service.ReconcileCash(r.Context(), a, chi.URLParam(r, "id"), req)
	})
}

func (h *Handler) approveVariance(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		var req ApproveVarianceRequest
		if err := httpx.Decode(r, &req); err != nil {
			return nil, err
		}
		return h.service.ApproveVariance(r.Context(), a, chi.URLParam(r, "id"), req)
	})
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.FinalizeReconciliation(r.Context(), a, chi.URLParam(r, "id"))
	})
}

func (h *Handler) closeDirect(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		var req CloseShiftRequest
		if err := httpx.Decode(r, &req); err != nil {
			return nil, err
		}
		return h.service.CloseShiftDirect(r.Context(), a, chi.URLParam(r, "id"), req)
	})
}

func (h *Handler) listStoreShifts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.ListStoreShifts(r.Context(), a, chi.URLParam(r, "store_id"), r.URL.Query().Get("status"))
	})
}

func (h *Handler) backfill(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.BackfillBusinessDays(r.Context(), a, chi.URLParam(r, "store_id"))
	})
}

func (h *Handler) activeShift(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.ActiveShiftForTerminal(r.Context(), a, chi.URLParam(r, "terminal_id"))
	})
}
