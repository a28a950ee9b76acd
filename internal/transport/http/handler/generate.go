package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ai-content-platform/internal/application/generation"
	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/transport/http/middleware"
)

// GenerateHandler proxies text and image generation for signed-in users.
type GenerateHandler struct {
	svc generation.Service
}

func NewGenerateHandler(svc generation.Service) *GenerateHandler {
	return &GenerateHandler{svc: svc}
}

func (h *GenerateHandler) Text(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Text(r.Context(), claims.UserID, claims.UserPlan(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *GenerateHandler) Image(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Image(r.Context(), claims.UserID, claims.UserPlan(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
