package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"sentinel-hq/aegis/pkg/audit"
	"sentinel-hq/aegis/pkg/config"
)

// AuditMetrics tracks the audit log's chain and writer health.
//
// Metrics:
//   - aegis_policy_audit_events_total: Events appended to the chain
//   - aegis_policy_audit_retries_total: Storage write retries
//   - aegis_policy_audit_write_failures_total: Writes dropped after retries
//   - aegis_policy_audit_dropped_total: Events dropped on a full queue
//   - aegis_policy_audit_queue_depth: Pending events in the writer queue
//   - aegis_policy_audit_chain_seq: Current chain position
//   - aegis_policy_audit_segment: Current rotation segment
type AuditMetrics struct {
	eventsTotal        prometheus.Counter
	retriesTotal       prometheus.Counter
	writeFailuresTotal prometheus.Counter
	droppedTotal       prometheus.Counter
	queueDepth         prometheus.Gauge
	chainSeq           prometheus.Gauge
	segment            prometheus.Gauge

	last audit.Stats
}

// NewAuditMetrics creates and registers audit metrics with the provided
// registry.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		eventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "audit_events_total",
			Help:      "Total number of events appended to the audit chain",
		}),

		retriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "audit_retries_total",
			Help:      "Total number of audit storage write retries",
		}),

		writeFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "audit_write_failures_total",
			Help:      "Total number of audit events dropped after exhausting retries",
		}),

		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "audit_dropped_total",
			Help:      "Total number of audit events dropped on a full queue",
		}),

		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "audit_queue_depth",
			Help:      "Number of audit events waiting for the writer",
		}),

		chainSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "audit_chain_seq",
			Help:      "Current audit chain sequence number",
		}),

		segment: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "audit_segment",
			Help:      "Current audit rotation segment",
		}),
	}

	registry.MustRegister(
		am.eventsTotal,
		am.retriesTotal,
		am.writeFailuresTotal,
		am.droppedTotal,
		am.queueDepth,
		am.chainSeq,
		am.segment,
	)

	return am
}

// Publish updates the metric family from an audit stats snapshot. Only one
// goroutine may publish.
func (am *AuditMetrics) Publish(s audit.Stats) {
	if d := s.Appended - am.last.Appended; d > 0 {
		am.eventsTotal.Add(float64(d))
	}
	if d := s.Retries - am.last.Retries; d > 0 {
		am.retriesTotal.Add(float64(d))
	}
	if d := s.WriteFailures - am.last.WriteFailures; d > 0 {
		am.writeFailuresTotal.Add(float64(d))
	}
	if d := s.Dropped - am.last.Dropped; d > 0 {
		am.droppedTotal.Add(float64(d))
	}
	am.queueDepth.Set(float64(s.QueueDepth))
	am.chainSeq.Set(float64(s.Seq))
	am.segment.Set(float64(s.Segment))
	am.last = s
}
