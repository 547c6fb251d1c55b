package audit_test

import (
	"context"
	"testing"
	"time"

	"sentinel-hq/aegis/pkg/audit"
	"sentinel-hq/aegis/pkg/audit/storage"
)

func TestSchedulerEmptyScheduleIsDisabled(t *testing.T) {
	l := openLog(t, storage.NewMemoryStorage(), testConfig())
	s := audit.NewScheduler(l, "")
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("Expected empty schedule to be a no-op, got %v", err)
	}
	s.Stop()
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	l := openLog(t, storage.NewMemoryStorage(), testConfig())
	s := audit.NewScheduler(l, "every minute or so")
	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
}

func TestSchedulerRotatesOversizedSegment(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSegmentEvents = 2
	mem := storage.NewMemoryStorage()
	l := openLog(t, mem, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fill the segment without tripping the append-time rotation check,
	// then let the scheduler notice.
	l.Append(ctx, audit.CategoryDecision, audit.SeverityInfo, nil)
	l.Append(ctx, audit.CategoryDecision, audit.SeverityInfo, nil)

	s := audit.NewScheduler(l, "@every 1s")
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for l.CurrentSegment() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected scheduled maintenance to rotate the oversized segment")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
