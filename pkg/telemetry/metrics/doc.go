// Package metrics provides Prometheus instrumentation for the policy
// evaluation engine.
//
// The Collector registers three metric families:
//
//   - evaluation metrics: decision counts, per-rule hits and misses,
//     evaluation latency, risk score distribution
//   - cache metrics: result cache hits, misses, evictions and size
//   - audit metrics: chain position, queue drops, segment rotations
//
// The Collector satisfies the engine's Metrics interface and exposes a
// promhttp handler for scraping.
package metrics
