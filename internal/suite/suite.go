// Package suite runs the service checks in order and aggregates their
// results.
package suite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazz-dev/conncheck/internal/checker"
)

// Report is the aggregated outcome of one suite run.
type Report struct {
	Results []checker.Result `json:"results" yaml:"results"`
	Passed  int              `json:"passed" yaml:"passed"`
	Skipped int              `json:"skipped" yaml:"skipped"`
	Failed  int              `json:"failed" yaml:"failed"`
}

// Summarize counts results. Passed is everything that neither failed nor
// was skipped.
func Summarize(results []checker.Result) Report {
	rep := Report{Results: results}
	for _, r := range results {
		switch r.Status {
		case checker.StatusFail:
			rep.Failed++
		case checker.StatusSkip:
			rep.Skipped++
		}
	}
	rep.Passed = len(results) - rep.Failed - rep.Skipped
	return rep
}

// OK reports whether no check failed. Skips do not count as failures.
func (r Report) OK() bool { return r.Failed == 0 }

// ExitCode is 0 when no check failed and 1 otherwise.
func (r Report) ExitCode() int {
	if r.OK() {
		return 0
	}
	return 1
}

// Summary renders the counts, e.g. "2 passed, 1 skipped, 1 failed".
func (r Report) Summary() string {
	return fmt.Sprintf("%d passed, %d skipped, %d failed", r.Passed, r.Skipped, r.Failed)
}

// Suite is an ordered set of checkers.
type Suite struct {
	checkers []checker.Checker
	logger   *slog.Logger
}

// New creates a Suite. Pass nil logger to use the default logger.
func New(checkers []checker.Checker, logger *slog.Logger) *Suite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suite{checkers: checkers, logger: logger}
}

// Run executes every checker sequentially in order. onResult, when non-nil,
// is called as each result completes.
func (s *Suite) Run(ctx context.Context, onResult func(checker.Result)) Report {
	results := make([]checker.Result, 0, len(s.checkers))
	for _, c := range s.checkers {
		r := c.Check(ctx)
		s.logger.Debug("check result",
			"service", r.Service,
			"client", r.Client,
			"status", r.Status,
			"duration_ms", r.DurationMs,
		)
		results = append(results, r)
		if onResult != nil {
			onResult(r)
		}
	}
	rep := Summarize(results)
	s.logger.Info("suite finished",
		"passed", rep.Passed,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
	)
	return rep
}

// Find returns the checker for service, matched case-insensitively.
func (s *Suite) Find(service string) (checker.Checker, bool) {
	for _, c := range s.checkers {
		if strings.EqualFold(c.Service(), service) {
			return c, true
		}
	}
	return nil, false
}

// Services lists the service names in suite order.
func (s *Suite) Services() []string {
	names := make([]string, 0, len(s.checkers))
	for _, c := range s.checkers {
		names = append(names, c.Service())
	}
	return names
}
