package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ai-content-platform/internal/application/session"
	"github.com/ai-content-platform/internal/pkg/validate"
	"github.com/ai-content-platform/internal/transport/http/middleware"
)

type googleSignInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// SessionHandler trades Google identities for API bearer tokens.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req googleSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	result, err := h.svc.SignInWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Logout snapshots the caller's usage stats. The bearer token
// itself stays valid until it expires.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.SignOut(r.Context(), userID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}
