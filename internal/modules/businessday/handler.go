package businessday

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/httpx"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/stores/{store_id}/business-days/current", h.current)
	r.Get("/api/v1/business-days/{id}", h.get)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.Unauthorized("MISSING_TOKEN", "missing bearer token"))
		return
	}
	day, err := h.service.Current(r.Context(), actor, chi.URLParam(r, "store_id"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.Respond(w, http.StatusOK, day)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.Unauthorized("MISSING_TOKEN", "missing bearer token"))
		return
	}
	day, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.Respond(w, http.StatusOK, day)
}
