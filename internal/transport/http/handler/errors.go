package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ai-content-platform/internal/domain"
)

// statusFor maps domain sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLimitReached), errors.Is(err, domain.ErrUpstreamRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUpstreamUnauthorized):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrUpstreamUnavailable), errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// httpError writes err with its mapped status. Unmapped errors are logged and
// replaced with a generic message.
func httpError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
		msg = "internal server error"
	}
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}
