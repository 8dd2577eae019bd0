package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hazz-dev/conncheck/internal/checker"
)

var statuses = []checker.Status{checker.StatusPass, checker.StatusFail, checker.StatusSkip}

var (
	// CheckStatus is a one-hot gauge over PASS, FAIL and SKIP per service.
	CheckStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "conncheck",
			Subsystem: "check",
			Name:      "status",
			Help:      "Outcome of the latest check: 1 for the reported status, 0 for the others",
		},
		[]string{"service", "client", "status"},
	)

	// CheckDuration observes how long check bodies ran. Gate results are left out.
	CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "conncheck",
			Subsystem: "check",
			Name:      "duration_seconds",
			Help:      "Check body duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service"},
	)

	// ChecksTotal counts results by service and status.
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conncheck",
			Subsystem: "check",
			Name:      "runs_total",
			Help:      "Total number of checks run",
		},
		[]string{"service", "status"},
	)

	// LastRun is the time the most recent result was recorded.
	LastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "conncheck",
			Subsystem: "suite",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed check",
		},
	)
)

func init() {
	Registry.MustRegister(CheckStatus, CheckDuration, ChecksTotal, LastRun)
}

// ObserveResult records one check result. Gate results (SKIP, unreachable)
// carry no body duration and are not added to the histogram.
func ObserveResult(r checker.Result) {
	for _, s := range statuses {
		v := 0.0
		if s == r.Status {
			v = 1
		}
		CheckStatus.WithLabelValues(r.Service, r.Client, string(s)).Set(v)
	}
	ChecksTotal.WithLabelValues(r.Service, string(r.Status)).Inc()
	if r.DurationMs > 0 {
		CheckDuration.WithLabelValues(r.Service).Observe((time.Duration(r.DurationMs) * time.Millisecond).Seconds())
	}
	LastRun.SetToCurrentTime()
}
