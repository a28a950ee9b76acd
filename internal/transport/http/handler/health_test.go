package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type configured bool

func (c configured) Configured() bool { return bool(c) }

func withAction(r *http.Request, action string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", action)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHealth_ReportsUpstreams(t *testing.T) {
	h := NewHealthHandler(configured(true), configured(false))
	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, HealthEnvelope{Status: "ok", OpenAIConfigured: true, FalConfigured: false}, decode[HealthEnvelope](t, rr))
}

func TestPing(t *testing.T) {
	h := NewHealthHandler(configured(true), configured(true))

	rr := httptest.NewRecorder()
	h.Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil), "ping"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", decode[MessageEnvelope](t, rr).Message)

	rr = httptest.NewRecorder()
	h.Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/v1/health-check/status", nil), "status"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
