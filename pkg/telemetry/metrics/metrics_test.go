package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"sentinel-hq/aegis/pkg/audit"
	"sentinel-hq/aegis/pkg/config"
	"sentinel-hq/aegis/pkg/policy/cache"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "policy",
	}
}

func TestNewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	c := NewCollector(cfg, registry)
	if c == nil {
		t.Fatal("Expected non-nil collector")
	}
	if c.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if c.Evaluation() == nil || c.Cache() == nil || c.Audit() == nil {
		t.Error("Expected all metric families initialized")
	}
}

func TestNewCollectorDefaultsNaming(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, nil)
	if cfg.Namespace != "aegis" || cfg.Subsystem != "policy" {
		t.Errorf("Expected default naming, got %s/%s", cfg.Namespace, cfg.Subsystem)
	}
}

func TestObserveEvaluation(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.ObserveEvaluation(true, 0.2, 2*time.Millisecond)
	c.ObserveEvaluation(true, 0.3, time.Millisecond)
	c.ObserveEvaluation(false, 0.9, time.Millisecond)

	allowed := testutil.ToFloat64(c.evaluation.evaluationsTotal.WithLabelValues("allowed"))
	if allowed != 2 {
		t.Errorf("Expected 2 allowed evaluations, got %v", allowed)
	}
	denied := testutil.ToFloat64(c.evaluation.evaluationsTotal.WithLabelValues("denied"))
	if denied != 1 {
		t.Errorf("Expected 1 denied evaluation, got %v", denied)
	}
}

func TestObserveRule(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.ObserveRule("admin-access", true, false)
	c.ObserveRule("admin-access", true, true)
	c.ObserveRule("admin-access", false, false)

	if got := testutil.ToFloat64(c.evaluation.ruleHitsTotal.WithLabelValues("admin-access")); got != 2 {
		t.Errorf("Expected 2 rule hits, got %v", got)
	}
	if got := testutil.ToFloat64(c.evaluation.ruleMissesTotal.WithLabelValues("admin-access")); got != 1 {
		t.Errorf("Expected 1 rule miss, got %v", got)
	}
	if got := testutil.ToFloat64(c.evaluation.ruleCachedTotal.WithLabelValues("admin-access")); got != 1 {
		t.Errorf("Expected 1 cached observation, got %v", got)
	}
}

func TestObserveDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, prometheus.NewRegistry())

	c.ObserveEvaluation(true, 0.2, time.Millisecond)
	c.ObserveRule("r", true, false)

	if got := testutil.ToFloat64(c.evaluation.evaluationsTotal.WithLabelValues("allowed")); got != 0 {
		t.Errorf("Expected no observations when disabled, got %v", got)
	}
}

func TestCacheMetricsPublishDeltas(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	cm := c.Cache()

	cm.Publish(cache.Stats{Hits: 10, Misses: 5, Evictions: 1, Entries: 4, HitRate: 0.66})
	if got := testutil.ToFloat64(cm.hitsTotal); got != 10 {
		t.Errorf("Expected 10 hits, got %v", got)
	}

	// Counters advance by the delta between snapshots, not the total.
	cm.Publish(cache.Stats{Hits: 25, Misses: 5, Evictions: 1, Entries: 7, HitRate: 0.8})
	if got := testutil.ToFloat64(cm.hitsTotal); got != 25 {
		t.Errorf("Expected 25 hits after second publish, got %v", got)
	}
	if got := testutil.ToFloat64(cm.missesTotal); got != 5 {
		t.Errorf("Expected 5 misses, got %v", got)
	}
	if got := testutil.ToFloat64(cm.entries); got != 7 {
		t.Errorf("Expected 7 entries, got %v", got)
	}
	if got := testutil.ToFloat64(cm.hitRate); got != 0.8 {
		t.Errorf("Expected hit rate 0.8, got %v", got)
	}
}

func TestAuditMetricsPublish(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	am := c.Audit()

	am.Publish(audit.Stats{Appended: 100, Retries: 2, QueueDepth: 3, Seq: 100, Segment: 1})
	am.Publish(audit.Stats{Appended: 150, Retries: 2, QueueDepth: 0, Seq: 150, Segment: 2})

	if got := testutil.ToFloat64(am.eventsTotal); got != 150 {
		t.Errorf("Expected 150 events, got %v", got)
	}
	if got := testutil.ToFloat64(am.retriesTotal); got != 2 {
		t.Errorf("Expected 2 retries, got %v", got)
	}
	if got := testutil.ToFloat64(am.queueDepth); got != 0 {
		t.Errorf("Expected queue depth 0, got %v", got)
	}
	if got := testutil.ToFloat64(am.chainSeq); got != 150 {
		t.Errorf("Expected chain seq 150, got %v", got)
	}
	if got := testutil.ToFloat64(am.segment); got != 2 {
		t.Errorf("Expected segment 2, got %v", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	if c.Handler() == nil {
		t.Fatal("Expected non-nil handler")
	}

	c.ObserveEvaluation(false, 0.5, time.Millisecond)
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_policy_evaluations_total" {
			found = true
		}
	}
	if !found {
		t.Error("Expected evaluations metric in registry output")
	}
}
