package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"focusroom/internal/core"
)

// Target is what the scheduler drives on every tick
type Target interface {
	Tick(ctx context.Context, now time.Time) error
}

// Scheduler periodically re-checks the session. The deadline timer normally completes a
// session; this loop catches a missed timer and announces progress milestones.
type Scheduler struct {
	target   Target
	clock    core.Clock
	interval time.Duration
	timeout  time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(target Target, clock core.Clock, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = core.RealClock{}
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Scheduler{
		target:   target,
		clock:    clock,
		interval: interval,
		timeout:  interval,
		stopChan: make(chan struct{}),
		logger:   logger.With("component", "scheduler"),
	}
}

// Start begins the scheduler loop and blocks until Stop
func (s *Scheduler) Start() {
	s.Run(context.Background())
}

// Run begins the scheduler loop and blocks until ctx is done or Stop is called
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started", "interval", s.interval)
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// tick performs one cycle of the scheduler
func (s *Scheduler) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.clock.Now()
	if err := s.target.Tick(ctx, now); err != nil {
		s.logger.Error("Scheduler tick failed", "now", now, "error", err)
		return
	}
	s.logger.Debug("Scheduler tick", "now", now)
}
