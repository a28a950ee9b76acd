// Package metrics exposes Prometheus counters for HTTP traffic, generations,
// notifications and upstream circuit breakers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	notifications      *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Upstream generation latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_shown_total",
			Help:      "Notifications shown to users by type",
		}, []string{"type"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_open",
			Help:      "1 while the named upstream breaker is not closed",
		}, []string{"breaker"}),
	}
	c.registry.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.generations,
		c.generationDuration,
		c.notifications,
		c.breakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveGeneration records one generation attempt. outcome is a short label
// such as "success", "limited" or "upstream_error".
func (c *Collector) ObserveGeneration(kind, outcome string, d time.Duration) {
	c.generations.WithLabelValues(kind, outcome).Inc()
	if d > 0 {
		c.generationDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func (c *Collector) NotificationShown(notificationType string) {
	c.notifications.WithLabelValues(notificationType).Inc()
}

func (c *Collector) BreakerStateChanged(name, state string) {
	v := 1.0
	if state == "closed" {
		v = 0
	}
	c.breakerState.WithLabelValues(name).Set(v)
}
