package processor

import (
	"context"
	"sync"
	"time"

	"github.com/tigerroll/recordhub/internal/support/logger"
)

// BatchRunner runs one budgeted pass. *Processor satisfies it.
type BatchRunner interface {
	Run(ctx context.Context, budget int) (Summary, error)
}

// Scheduler runs the processor on a fixed interval. A tick that fires while a run is still going
// is dropped.
type Scheduler struct {
	runner   BatchRunner
	interval time.Duration
	budget   int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(runner BatchRunner, interval time.Duration, budget int) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{runner: runner, interval: interval, budget: budget}
}

func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
	logger.Infof("Processor scheduled every %s with a budget of %d record(s).", s.interval, s.budget)
}

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic recovered in scheduled processor run: %v", r)
		}
	}()
	if _, err := s.runner.Run(ctx, s.budget); err != nil && ctx.Err() == nil {
		logger.Errorf("Scheduled processor run failed: %v", err)
	}
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	logger.Infof("Processor scheduler stopped.")
}
