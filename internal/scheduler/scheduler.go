package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazz-dev/conncheck/internal/checker"
	"github.com/hazz-dev/conncheck/internal/suite"
)

// Runner runs the whole check suite once.
type Runner interface {
	Run(ctx context.Context, onResult func(checker.Result)) suite.Report
}

// Scheduler reruns the suite on a fixed interval and remembers the latest
// report and the previous status of every service.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	onResult func(checker.Result, *checker.Status)
	logger   *slog.Logger

	mu       sync.Mutex
	previous map[string]checker.Status
	latest   *suite.Report
	wg       sync.WaitGroup
}

// New creates a new Scheduler. Pass nil logger to use the default logger.
func New(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
		previous: make(map[string]checker.Status),
	}
}

// SetOnResult sets the callback invoked for each result of a completed run.
// result is the current check result; prev is the previous status (nil on first check).
func (s *Scheduler) SetOnResult(fn func(checker.Result, *checker.Status)) {
	s.onResult = fn
}

// Start runs the suite immediately and then every interval until ctx is
// done. It is non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Wait blocks until the scheduling goroutine has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Latest returns the most recent completed report, if any.
func (s *Scheduler) Latest() (suite.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return suite.Report{}, false
	}
	return *s.latest, true
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce runs the suite and publishes its results. A run cut short by
// cancellation publishes nothing: its failures come from the shutdown, not
// from the services.
func (s *Scheduler) runOnce(ctx context.Context) {
	var results []checker.Result
	rep := s.runner.Run(ctx, func(r checker.Result) {
		results = append(results, r)
	})
	if ctx.Err() != nil {
		s.logger.Debug("scheduled run cancelled", "results_dropped", len(results))
		return
	}

	for _, r := range results {
		s.record(r)
	}

	s.mu.Lock()
	s.latest = &rep
	s.mu.Unlock()

	s.logger.Info("scheduled run finished",
		"passed", rep.Passed,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
	)
}

func (s *Scheduler) record(result checker.Result) {
	s.mu.Lock()
	var prev *checker.Status
	if st, ok := s.previous[result.Service]; ok {
		prev = &st
	}
	s.previous[result.Service] = result.Status
	s.mu.Unlock()

	if s.onResult != nil {
		s.onResult(result, prev)
	}
}
