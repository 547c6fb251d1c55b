// Package telemetry provides observability for the Aegis policy engine.
//
// # Components
//
//   - logging: structured slog setup (JSON or text)
//   - metrics: Prometheus metrics for evaluations, the result cache and
//     the audit chain
//
// Metrics are recorded through the Collector, which satisfies the engine's
// Metrics interface and serves a promhttp scrape endpoint.
package telemetry
