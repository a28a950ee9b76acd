package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ai-content-platform/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthEnvelope reports liveness and which upstreams have credentials.
type HealthEnvelope struct {
	Status           string `json:"status"`
	OpenAIConfigured bool   `json:"openai_configured"`
	FalConfigured    bool   `json:"fal_configured"`
}

// NotificationsEnvelope wraps a notification queue snapshot, newest first.
type NotificationsEnvelope struct {
	Notifications []domain.Notification `json:"notifications"`
}

// IDEnvelope returns the id of a created notification.
type IDEnvelope struct {
	ID int64 `json:"id"`
}

// HistoryEnvelope wraps usage history rows.
type HistoryEnvelope struct {
	Items []domain.HistoryItem `json:"items"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
