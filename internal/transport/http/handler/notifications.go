package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ai-content-platform/internal/application/notification"
	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/pkg/validate"
	"github.com/ai-content-platform/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// NotificationHub hands out the per-user notification queues.
type NotificationHub interface {
	For(userID string) *notification.Manager
	Hold(userID string) (*notification.Manager, func())
	Expirer(userID string) (*notification.Expirer, bool)
}

// NotificationHandler exposes the caller's notification queue over REST and a
// websocket stream.
type NotificationHandler struct {
	hub      NotificationHub
	upgrader websocket.Upgrader
}

// NewNotificationHandler allows websocket upgrades from allowedOrigins; "*"
// allows any origin.
func NewNotificationHandler(hub NotificationHub, allowedOrigins []string) *NotificationHandler {
	return &NotificationHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, snapshotOf(h.hub.For(userID).Notifications()))
}

func (h *NotificationHandler) Show(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var opts domain.NotificationOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&opts); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	id := h.hub.For(userID).Show(opts)
	writeJSON(w, http.StatusCreated, IDEnvelope{ID: id})
}

func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.hub.For(userID).Clear()
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "cleared"})
}

func (h *NotificationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	h.hub.For(userID).Remove(id)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "removed"})
}

func (h *NotificationHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPausedHTTP(w, r, true)
}

func (h *NotificationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPausedHTTP(w, r, false)
}

func (h *NotificationHandler) setPausedHTTP(w http.ResponseWriter, r *http.Request, paused bool) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.setPaused(userID, id, paused); err != nil {
		httpError(w, err)
		return
	}
	msg := "resumed"
	if paused {
		msg = "paused"
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}

// target resolves the caller and the {id} URL parameter, writing the error
// response itself when either is missing.
func (h *NotificationHandler) target(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return "", 0, false
	}
	return userID, id, true
}

func (h *NotificationHandler) setPaused(userID string, id int64, paused bool) error {
	e, ok := h.hub.Expirer(userID)
	if !ok {
		return fmt.Errorf("server-side expiry is disabled: %w", domain.ErrNotConfigured)
	}
	var found bool
	if paused {
		found = e.Pause(id)
	} else {
		found = e.Resume(id)
	}
	if !found {
		return fmt.Errorf("notification %d has no running countdown: %w", id, domain.ErrNotFound)
	}
	return nil
}

func snapshotOf(items []domain.Notification) NotificationsEnvelope {
	if items == nil {
		items = []domain.Notification{}
	}
	return NotificationsEnvelope{Notifications: items}
}
