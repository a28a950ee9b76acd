package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRealIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	assert.Equal(t, "1.2.3.4", realIP(req, true))
}

func TestRealIP_XRealIP_Fallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-Ip", "9.10.11.12")
	assert.Equal(t, "9.10.11.12", realIP(req, true))
}

func TestRealIP_RemoteAddr_Fallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:54321"
	assert.Equal(t, "192.168.1.1", realIP(req, true))
}

func TestRealIP_XForwardedFor_TakesPrecedenceOverXRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	req.Header.Set("X-Real-Ip", "2.2.2.2")
	assert.Equal(t, "1.1.1.1", realIP(req, true))
}

func TestRealIP_UntrustedIgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:54321"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	req.Header.Set("X-Real-Ip", "2.2.2.2")
	assert.Equal(t, "192.168.1.1", realIP(req, false))
}

func newLimiter(t *testing.T, burst int, opts ...RateLimiterOption) *RateLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	// one token per hour, so only the burst is available during a test
	return NewRateLimiter(ctx, rate.Every(time.Hour), burst, opts...)
}

func TestLimit_PerUserBuckets(t *testing.T) {
	rl := newLimiter(t, 2)
	h := rl.Limit(http.HandlerFunc(okHandler))

	serve := func(userID string) int {
		req := withClaims(httptest.NewRequest(http.MethodPost, "/v1/generate/text", nil), userID)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, serve("u1"))
	assert.Equal(t, http.StatusOK, serve("u1"))
	assert.Equal(t, http.StatusTooManyRequests, serve("u1"))
	assert.Equal(t, http.StatusOK, serve("u2"))
}

func TestLimit_AnonymousKeyedByIP(t *testing.T) {
	rl := newLimiter(t, 1)
	h := rl.Limit(http.HandlerFunc(okHandler))

	serve := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, serve("10.0.0.1").Code)
	limited := serve("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, serve("10.0.0.2").Code)
}

func TestLimit_SpoofedForwardedForSharesBucket(t *testing.T) {
	serve := func(h http.Handler, xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", xff)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	direct := newLimiter(t, 1).Limit(http.HandlerFunc(okHandler))
	assert.Equal(t, http.StatusOK, serve(direct, "1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, serve(direct, "2.2.2.2"))

	proxied := newLimiter(t, 1, TrustProxyHeaders(true)).Limit(http.HandlerFunc(okHandler))
	assert.Equal(t, http.StatusOK, serve(proxied, "1.1.1.1"))
	assert.Equal(t, http.StatusOK, serve(proxied, "2.2.2.2"))
}

func TestSweep_DropsStaleEntries(t *testing.T) {
	rl := newLimiter(t, 1)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.get("user:old")
	now = now.Add(staleAfter + time.Minute)
	rl.get("user:new")
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.limiters, "user:old")
	assert.Contains(t, rl.limiters, "user:new")
}
