// Package realtime provides the Campfire realtime presence/relay server.

// This package contains the main application entry point. The actual
// documentation is organized into subpackages:

// - internal/websocket: connection registry, hub, and event relay
// - internal/handlers: webhook ingress and status endpoints
// - internal/auth: bearer-token identity verification
// - internal/config: environment configuration
// - internal/logger: structured logging
// - internal/metrics: Prometheus metrics
// - internal/middleware: HTTP middleware (request ids, logging, metrics)
// - internal/telemetry: optional OpenTelemetry tracing

// See the individual package documentation for detailed reference.
package realtime
