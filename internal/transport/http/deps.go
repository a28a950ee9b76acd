package http

import (
	"net/http"
	"time"

	"github.com/ai-content-platform/internal/application/generation"
	"github.com/ai-content-platform/internal/application/notification"
	"github.com/ai-content-platform/internal/application/session"
	"github.com/ai-content-platform/internal/application/usage"
	jwtinfra "github.com/ai-content-platform/internal/infrastructure/jwt"
)

// TokenProvider signs session tokens and verifies bearer tokens.
type TokenProvider interface {
	Sign(userID, email, plan string) (string, error)
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// MetricsCollector is the Prometheus surface the router wires in.
type MetricsCollector interface {
	Handler() http.Handler
	ObserveHTTP(method, route string, status int, d time.Duration)
	ObserveGeneration(kind, outcome string, d time.Duration)
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Store       usage.Store
	Hub         *notification.Hub
	JWTProvider TokenProvider
	Google      session.GoogleVerifier
	Text        generation.TextGenerator // already wrapped in a circuit breaker
	Image       generation.ImageGenerator
	Archiver    generation.Archiver // nil disables image archiving
	Metrics     MetricsCollector
}
