package application

import (
	"context"
	"log"
	"time"
)

// Scheduler triggers monitoring runs on a fixed interval. The engine is
// stateless between invocations; overlapping runs are safe because the
// store collapses racing opens per fingerprint.
type Scheduler struct {
	runner   *Runner
	interval time.Duration
	logger   *log.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(runner *Runner, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Start begins the scheduler loop and blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.runner == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.runner.Run(ctx); err != nil && s.logger != nil {
				s.logger.Printf("monitoring schedule error: %v", err)
			}
		}
	}
}
