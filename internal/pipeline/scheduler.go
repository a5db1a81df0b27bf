package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wildfire-alert-service/internal/observability"
)

// Runner executes one monitoring run.
type Runner interface {
	Run(ctx context.Context) (RunReport, error)
}

// Scheduler triggers runs on a fixed interval and on demand. Runs never
// overlap; an on-demand request waits for a run in progress to finish.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu      sync.Mutex
	started atomic.Bool
	last    atomic.Pointer[RunReport]
}

// NewScheduler creates a Scheduler. A nil clock uses real time.
func NewScheduler(runner Runner, interval time.Duration, runOnStart bool, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once the schedule loop is running.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.started.Load() {
		return errors.New("scheduler has not started yet")
	}
	return nil
}

// LastReport returns the most recent run report, if any.
func (s *Scheduler) LastReport() (RunReport, bool) {
	r := s.last.Load()
	if r == nil {
		return RunReport{}, false
	}
	return *r, true
}

// Run executes scheduled runs until the context is cancelled. A failed run
// is logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_on_start", s.runOnStart)
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)
	s.started.Store(true)
	defer s.started.Store(false)

	if s.runOnStart {
		_, _ = s.RunNow(ctx)
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			_, _ = s.RunNow(ctx)
		}
	}
}

// RunNow performs a run immediately and returns its report.
func (s *Scheduler) RunNow(ctx context.Context) (RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.runner.Run(ctx)
	s.last.Store(&report)
	if err != nil {
		s.logger.Error("run failed", "run_id", report.RunID, "error", err)
		return report, err
	}
	s.logger.Info("run finished", "run_id", report.RunID, "status", report.Status,
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}
