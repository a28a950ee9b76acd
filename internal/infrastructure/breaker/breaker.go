// Package breaker guards upstream generators with a circuit breaker so a
// failing provider is not hammered while it recovers.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ai-content-platform/internal/domain"
	"github.com/sony/gobreaker"
)

// Settings tune when the breaker opens.
type Settings struct {
	Name             string
	MaxRequests      uint32        // probes allowed while half-open
	Interval         time.Duration // closed-state counting window
	Timeout          time.Duration // open-state duration before probing
	FailureThreshold float64
	MinRequests      uint32
	OnStateChange    func(name string, state string)
}

// DefaultSettings trips after 5 requests with at least 60% upstream failures.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Breaker wraps gobreaker with domain error mapping.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func New(s Settings) *Breaker {
	return &Breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < s.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if s.OnStateChange != nil {
				s.OnStateChange(name, to.String())
			}
		},
		IsSuccessful: upstreamHealthy,
	})}
}

// upstreamHealthy treats caller mistakes and cancellations as successes; only
// provider-side failures count against the upstream.
func upstreamHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrBadRequest) ||
		errors.Is(err, domain.ErrNotConfigured) ||
		errors.Is(err, domain.ErrUpstreamUnauthorized) ||
		errors.Is(err, context.Canceled)
}

// State returns closed, half-open or open.
func (b *Breaker) State() string { return b.cb.State().String() }

func (b *Breaker) execute(fn func() (interface{}, error)) (interface{}, error) {
	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %v: %w", b.cb.Name(), err, domain.ErrUpstreamUnavailable)
	}
	return out, err
}
