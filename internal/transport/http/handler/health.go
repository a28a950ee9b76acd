package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Configurable reports whether an upstream client has credentials.
type Configurable interface {
	Configured() bool
}

// HealthHandler handles health-check endpoints.
type HealthHandler struct {
	text  Configurable
	image Configurable
}

func NewHealthHandler(text, image Configurable) *HealthHandler {
	return &HealthHandler{text: text, image: image}
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthEnvelope{
		Status:           "ok",
		OpenAIConfigured: h.text.Configured(),
		FalConfigured:    h.image.Configured(),
	})
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action == "ping" {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
		return
	}
	writeError(w, http.StatusBadRequest, "unknown action")
}
