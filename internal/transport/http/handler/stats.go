package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/transport/http/middleware"
)

// StatsTracker is the usage tracker as seen by the stats endpoints. It
// resolves the user from the request context.
type StatsTracker interface {
	GetStats(ctx context.Context) domain.StatsSummary
	History(ctx context.Context) []domain.HistoryItem
	TrackGeneration(ctx context.Context, kind domain.GenerationKind) (*domain.UsageStats, error)
	ClearStats(ctx context.Context) error
}

// StatsHandler handles usage statistics endpoints.
type StatsHandler struct {
	tracker StatsTracker
	notes   NotificationHub
}

func NewStatsHandler(tracker StatsTracker, notes NotificationHub) *StatsHandler {
	return &StatsHandler{tracker: tracker, notes: notes}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.GetStats(r.Context()))
}

func (h *StatsHandler) History(w http.ResponseWriter, r *http.Request) {
	items := h.tracker.History(r.Context())
	if items == nil {
		items = []domain.HistoryItem{}
	}
	writeJSON(w, http.StatusOK, HistoryEnvelope{Items: items})
}

// Track records a generation that ran outside this server and returns the
// updated summary.
func (h *StatsHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := domain.ParseGenerationKind(req.Type)
	if err != nil {
		httpError(w, err)
		return
	}
	if _, err := h.tracker.TrackGeneration(r.Context(), kind); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.tracker.GetStats(r.Context()))
}

func (h *StatsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.tracker.ClearStats(r.Context()); err != nil {
		h.notes.For(userID).Error("Failed to clear history", domain.NotificationOptions{})
		httpError(w, err)
		return
	}
	h.notes.For(userID).Success("History cleared successfully", domain.NotificationOptions{})
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "cleared"})
}
