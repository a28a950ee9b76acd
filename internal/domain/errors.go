package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	ErrLimitReached  = errors.New("usage limit reached")
	ErrCorruptStats  = errors.New("corrupt usage stats")
	ErrNotConfigured = errors.New("not configured")

	// Upstream generation API failures.
	ErrUpstreamUnauthorized = errors.New("upstream rejected credentials")
	ErrUpstreamRateLimited  = errors.New("upstream rate limit exceeded")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
)
