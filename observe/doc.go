// Package observe provides observability primitives for outbound calls.
//
// It wires OpenTelemetry tracing and metrics, a zerolog-backed structured
// logger, and the hooks that report rate limiter and retry decisions from
// package resilience. It performs no I/O beyond exporter setup and the
// Prometheus handler it hands back to the caller.
package observe
