// Package metrics registers and serves Prometheus metrics for the relay.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the relay service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// WebSocket connection metrics
	WSConnectionsTotal  prometheus.Counter
	WSActiveConnections prometheus.Gauge

	// Relay metrics
	RelayEventsTotal  prometheus.CounterVec
	RelayDroppedTotal prometheus.CounterVec

	// Webhook metrics
	WebhookRequestsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			WSConnectionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "ws_connections_total",
					Help: "Total number of accepted WebSocket connections",
				},
			),
			WSActiveConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "ws_active_connections",
					Help: "Number of currently registered WebSocket connections",
				},
			),
			RelayEventsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relay_events_total",
					Help: "Total number of relayed events by event name",
				},
				[]string{"event"},
			),
			RelayDroppedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relay_dropped_total",
					Help: "Total number of dropped relay events by reason",
				},
				[]string{"reason"},
			),
			WebhookRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "webhook_requests_total",
					Help: "Total number of webhook requests by outcome",
				},
				[]string{"outcome"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it if needed
func Get() *Metrics {
	return Initialize()
}
