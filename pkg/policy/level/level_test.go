package level

import (
	"context"
	"testing"
	"time"

	"sentinel-hq/aegis/pkg/audit"
	"sentinel-hq/aegis/pkg/audit/storage"
)

func openAudit(t *testing.T) (*audit.Log, *storage.MemoryStorage) {
	t.Helper()
	mem := storage.NewMemoryStorage()
	l, err := audit.Open(mem, nil)
	if err != nil {
		t.Fatalf("audit.Open failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, mem
}

// ===== Level Tests =====

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{Monitor, "MONITOR"},
		{Standard, "STANDARD"},
		{High, "HIGH"},
		{Maximum, "MAXIMUM"},
		{Level(9), "LEVEL(9)"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestParse(t *testing.T) {
	for _, name := range []string{"MONITOR", "STANDARD", "HIGH", "MAXIMUM"} {
		lv, err := Parse(name)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", name, err)
		}
		if lv.String() != name {
			t.Errorf("Expected round trip for %q, got %q", name, lv.String())
		}
	}
	if _, err := Parse("standard"); err == nil {
		t.Error("Expected lower-case name to be rejected")
	}
	if _, err := Parse("EXTREME"); err == nil {
		t.Error("Expected unknown name to be rejected")
	}
}

func TestBlockingEnforced(t *testing.T) {
	if Monitor.BlockingEnforced() {
		t.Error("Expected MONITOR to suppress enforcement")
	}
	for _, lv := range []Level{Standard, High, Maximum} {
		if !lv.BlockingEnforced() {
			t.Errorf("Expected %s to enforce blocking actions", lv)
		}
	}
}

func TestRiskThreshold(t *testing.T) {
	base := 0.8
	tests := []struct {
		level Level
		want  float64
	}{
		{Monitor, 0.8},
		{Standard, 0.8},
		{High, 0.68},
		{Maximum, 0.56},
	}
	for _, tt := range tests {
		got := tt.level.RiskThreshold(base)
		if got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("Expected %s threshold %.3f, got %.3f", tt.level, tt.want, got)
		}
	}
}

// ===== Controller Tests =====

func TestSetLevelEmitsOneAuditEvent(t *testing.T) {
	log, mem := openAudit(t)
	c := NewController(Standard, log)

	ctx := context.Background()
	if err := c.SetLevel(ctx, High, "ops@example.com"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	if c.Level() != High {
		t.Errorf("Expected level HIGH, got %s", c.Level())
	}

	log.Flush(ctx)
	events, _ := mem.Events(ctx)
	if len(events) != 1 {
		t.Fatalf("Expected exactly 1 audit event, got %d", len(events))
	}

	e := events[0]
	if e.Category != audit.CategoryLevelChange {
		t.Errorf("Expected level-change category, got %q", e.Category)
	}
	if e.Severity != audit.SeverityInfo {
		t.Errorf("Expected info severity, got %q", e.Severity)
	}
	if e.Payload["from"] != "STANDARD" || e.Payload["to"] != "HIGH" {
		t.Errorf("Unexpected transition payload: %v", e.Payload)
	}
	if e.Payload["actor"] != "ops@example.com" {
		t.Errorf("Expected actor recorded, got %v", e.Payload["actor"])
	}
	if _, err := time.Parse(time.RFC3339Nano, e.Payload["changed_at"].(string)); err != nil {
		t.Errorf("Expected RFC3339 changed_at, got %v", e.Payload["changed_at"])
	}
}

func TestSetLevelSameLevelIsNoOp(t *testing.T) {
	log, mem := openAudit(t)
	c := NewController(Standard, log)

	ctx := context.Background()
	if err := c.SetLevel(ctx, Standard, "ops"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}

	log.Flush(ctx)
	events, _ := mem.Events(ctx)
	if len(events) != 0 {
		t.Errorf("Expected no audit events for a no-op transition, got %d", len(events))
	}
}

func TestSetLevelMaximumIsWarning(t *testing.T) {
	log, mem := openAudit(t)
	c := NewController(Standard, log)

	ctx := context.Background()
	c.SetLevel(ctx, Maximum, "ops")
	c.SetLevel(ctx, Standard, "ops")

	log.Flush(ctx)
	events, _ := mem.Events(ctx)
	if len(events) != 2 {
		t.Fatalf("Expected 2 audit events, got %d", len(events))
	}
	for _, e := range events {
		if e.Severity != audit.SeverityWarning {
			t.Errorf("Expected warning severity for transition touching MAXIMUM, got %q", e.Severity)
		}
	}
}

func TestSetLevelInvalid(t *testing.T) {
	c := NewController(Standard, nil)
	if err := c.SetLevel(context.Background(), Level(42), "ops"); err == nil {
		t.Error("Expected error for invalid level")
	}
	if c.Level() != Standard {
		t.Errorf("Expected level unchanged, got %s", c.Level())
	}
}

func TestNewControllerInvalidInitialFallsBack(t *testing.T) {
	c := NewController(Level(-3), nil)
	if c.Level() != Standard {
		t.Errorf("Expected STANDARD fallback, got %s", c.Level())
	}
}

func TestSetLevelWithoutAuditor(t *testing.T) {
	c := NewController(Standard, nil)
	if err := c.SetLevel(context.Background(), Monitor, "ops"); err != nil {
		t.Fatalf("SetLevel without auditor failed: %v", err)
	}
	if c.Level() != Monitor {
		t.Errorf("Expected MONITOR, got %s", c.Level())
	}
}

// ===== Restore Tests =====

func TestRestoreReplaysLastTransition(t *testing.T) {
	log, mem := openAudit(t)
	c := NewController(Standard, log)

	ctx := context.Background()
	c.SetLevel(ctx, High, "ops")
	c.SetLevel(ctx, Maximum, "ops")
	c.SetLevel(ctx, High, "ops")
	log.Flush(ctx)

	got, err := Restore(ctx, mem, Standard)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got != High {
		t.Errorf("Expected restored level HIGH, got %s", got)
	}
}

func TestRestoreFallbackWhenNoTransitions(t *testing.T) {
	log, mem := openAudit(t)
	_, err := log.Append(context.Background(), audit.CategoryDecision, audit.SeverityInfo, map[string]any{"allowed": true})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	log.Flush(context.Background())

	got, err := Restore(context.Background(), mem, Monitor)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got != Monitor {
		t.Errorf("Expected fallback MONITOR, got %s", got)
	}
}
