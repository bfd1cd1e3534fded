package audit

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
	r.Get("/api/v1/audit", h.trail) // ?entity_id=...
}

func (h *Handler) trail(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.Unauthorized("MISSING_TOKEN", "missing bearer token"))
		return
	}
	entityID := r.URL.Query().Get("entity_id")
	if entityID == "" {
		httpx.Error(w, h.logger, apperr.Validation("ENTITY_ID_REQUIRED", "entity_id is required"))
		return
	}
	events, err := h.service.Trail(r.Context(), actor, entityID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.Respond(w, http.StatusOK, events)
}
