package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ai-content-platform/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrBadRequest, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrLimitReached, http.StatusTooManyRequests},
		{domain.ErrUpstreamRateLimited, http.StatusTooManyRequests},
		{domain.ErrUpstreamUnauthorized, http.StatusBadGateway},
		{domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
		{domain.ErrNotConfigured, http.StatusServiceUnavailable},
		{fmt.Errorf("generate: %w", domain.ErrUpstreamRateLimited), http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestHTTPError_HidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	httpError(rr, errors.New("dynamodb: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decode[MessageEnvelope](t, rr)
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, http.StatusInternalServerError, resp.ErrorCode)
}

func TestHTTPError_KeepsDomainMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	httpError(rr, fmt.Errorf("prompt is required: %w", domain.ErrBadRequest))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "prompt is required: bad request", decode[MessageEnvelope](t, rr).Error)
}
