package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic audit log maintenance (threshold rotation and
// retention pruning) on a cron schedule, so oversized segments rotate even
// during quiet periods.
type Scheduler struct {
	log      *Log
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewScheduler creates a maintenance scheduler for the log.
//
// Common cron expressions:
//
//	"0 * * * *"   - hourly
//	"0 3 * * *"   - daily at 3 AM
func NewScheduler(log *Log, schedule string) *Scheduler {
	return &Scheduler{
		log:      log,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "audit.scheduler"),
	}
}

// Start begins scheduled maintenance. An empty schedule disables it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("audit maintenance schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		rotated, err := s.log.RotateIfNeeded(ctx)
		if err != nil {
			s.logger.Error("scheduled audit maintenance failed", "error", err)
			return
		}
		if rotated {
			s.logger.Info("scheduled audit rotation completed",
				"segment", s.log.CurrentSegment(),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit maintenance: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("audit maintenance scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts scheduled maintenance.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info("audit maintenance scheduler stopped")
}
