package store

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/httpx"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
)

// Handler exposes the store directory HTTP endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/stores", h.createStore)
	r.Get("/api/v1/stores", h.listStores)
	r.Get("/api/v1/stores/{id}", h.getStore)

	r.Post("/api/v1/stores/{store_id}/terminals", h.addTerminal)
	r.Get("/api/v1/stores/{store_id}/terminals", h.listTerminals)
	r.Post("/api/v1/terminals/{id}/retire", h.retireTerminal)

	r.Post("/api/v1/stores/{store_id}/cashiers", h.addCashier)
	r.Get("/api/v1/stores/{store_id}/cashiers", h.listCashiers)
	r.Post("/api/v1/cashiers/{id}/deactivate", h.deactivateCashier)
}

// serve runs fn with the request actor and writes its result.
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

func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusCreated, func(a auth.Actor) (any, error) {
		var req CreateStoreRequest
		if err := httpx.Decode(r, &req); err != nil {
			return nil, err
		}
		return h.service.CreateStore(r.Context(), a, req)
	})
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.ListStores(r.Context(), a)
	})
}

func (h *Handler) getStore(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.GetStore(r.Context(), a, chi.URLParam(r, "id"))
	})
}

func (h *Handler) addTerminal(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusCreated, func(a auth.Actor) (any, error) {
		var req CreateTerminalRequest
		if err := httpx.Decode(r, &req); err != nil {
			return nil, err
		}
		return h.service.AddTerminal(r.Context(), a, chi.URLParam(r, "store_id"), req)
	})
}

func (h *Handler) listTerminals(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.ListTerminals(r.Context(), a, chi.URLParam(r, "store_id"))
	})
}

func (h *Handler) retireTerminal(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.RetireTerminal(r.Context(), a, chi.URLParam(r, "id"))
	})
}

func (h *Handler) addCashier(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusCreated, func(a auth.Actor) (any, error) {
		var req CreateCashierRequest
		if err := httpx.Decode(r, &req); err != nil {
			return nil, err
		}
		return h.service.AddCashier(r.Context(), a, chi.URLParam(r, "store_id"), req)
	})
}

func (h *Handler) listCashiers(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.ListCashiers(r.Context(), a, chi.URLParam(r, "store_id"))
	})
}

func (h *Handler) deactivateCashier(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(a auth.Actor) (any, error) {
		return h.service.DeactivateCashier(r.Context(), a, chi.URLParam(r, "id"))
	})
}
