package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ai-content-platform/internal/application/notification"
	"github.com/ai-content-platform/internal/application/usage"
	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/infrastructure/memory"
	"github.com/ai-content-platform/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatsHandler(t *testing.T) (*StatsHandler, *memory.KVStore, *notification.Hub) {
	t.Helper()
	store := memory.NewKVStore()
	hub := notification.NewHub(0)
	t.Cleanup(hub.Dispose)
	tracker := usage.NewTracker(store, usage.UserResolverFunc(middleware.UserID))
	return NewStatsHandler(tracker, hub), store, hub
}

func TestStats_TrackThenGet(t *testing.T) {
	h, _, _ := newStatsHandler(t)

	for _, kind := range []string{"text", "image", "image"} {
		rr := httptest.NewRecorder()
		body := jsonBody(t, map[string]string{"type": kind})
		h.Track(rr, authed(httptest.NewRequest(http.MethodPost, "/v1/stats/track", body), "u1", "free"))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	h.Get(rr, authed(httptest.NewRequest(http.MethodGet, "/v1/stats", nil), "u1", "free"))
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decode[domain.StatsSummary](t, rr)
	assert.Equal(t, domain.PeriodSummary{Text: 1, Image: 2, Total: 3}, summary.Daily)
	assert.Equal(t, domain.PeriodSummary{Text: 1, Image: 2, Total: 3}, summary.Total)

	rr = httptest.NewRecorder()
	h.Get(rr, authed(httptest.NewRequest(http.MethodGet, "/v1/stats", nil), "u2", "free"))
	assert.Zero(t, decode[domain.StatsSummary](t, rr).Total.Total, "stats are per user")
}

func TestStats_TrackRejectsUnknownKind(t *testing.T) {
	h, store, _ := newStatsHandler(t)
	rr := httptest.NewRecorder()
	body := jsonBody(t, map[string]string{"type": "video"})
	h.Track(rr, authed(httptest.NewRequest(http.MethodPost, "/v1/stats/track", body), "u1", "free"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, store.Len())
}

func TestStats_History(t *testing.T) {
	h, _, _ := newStatsHandler(t)

	rr := httptest.NewRecorder()
	h.History(rr, authed(httptest.NewRequest(http.MethodGet, "/v1/stats/history", nil), "u1", "free"))
	assert.JSONEq(t, `{"items":[]}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Track(rr, authed(httptest.NewRequest(http.MethodPost, "/v1/stats/track", jsonBody(t, `{"type":"text"}`)), "u1", "free"))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.History(rr, authed(httptest.NewRequest(http.MethodGet, "/v1/stats/history", nil), "u1", "free"))
	items := decode[HistoryEnvelope](t, rr).Items
	require.Len(t, items, 1)
	assert.Equal(t, domain.KindText, items[0].Kind)
	assert.Equal(t, "Generated 1 text", items[0].Description)
}

func TestStats_ClearNotifies(t *testing.T) {
	h, store, hub := newStatsHandler(t)
	rr := httptest.NewRecorder()
	h.Track(rr, authed(httptest.NewRequest(http.MethodPost, "/v1/stats/track", jsonBody(t, `{"type":"image"}`)), "u1", "free"))
	require.Equal(t, 2, store.Len(), "active and preserved copies")

	rr = httptest.NewRecorder()
	h.Clear(rr, authed(httptest.NewRequest(http.MethodDelete, "/v1/stats", nil), "u1", "free"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, store.Len())
	items := hub.For("u1").Notifications()
	require.Len(t, items, 1)
	assert.Equal(t, domain.NotificationSuccess, items[0].Type)
	assert.Equal(t, "History cleared successfully", items[0].Title)
}

type failingClear struct{ StatsTracker }

func (failingClear) ClearStats(context.Context) error { return errors.New("throttled") }

func TestStats_ClearFailure(t *testing.T) {
	base, _, hub := newStatsHandler(t)
	h := NewStatsHandler(failingClear{base.tracker}, hub)

	rr := httptest.NewRecorder()
	h.Clear(rr, authed(httptest.NewRequest(http.MethodDelete, "/v1/stats", nil), "u1", "free"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	items := hub.For("u1").Notifications()
	require.Len(t, items, 1)
	assert.Equal(t, domain.NotificationError, items[0].Type)
}
