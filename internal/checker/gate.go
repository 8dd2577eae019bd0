package checker

import (
	"context"
	"fmt"
	"log/slog"
)

// Gate decides whether a check runs at all.
type Gate struct {
	// Flag is the ENABLE_* key the Enabled value was resolved from.
	Flag    string
	Enabled bool
	Host    string
	// Port 0 skips the reachability probe.
	Port   int
	Probe  PortProbe
	Logger *slog.Logger
}

// Evaluate returns a SKIP result when the service is disabled, a FAIL
// result when its port never became reachable, and nil when the check
// should proceed. It never touches the service beyond a TCP connect.
func (g Gate) Evaluate(ctx context.Context, service, client string) *Result {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !g.Enabled {
		logger.Debug("service disabled", "service", service, "flag", g.Flag)
		return skipResult(service, client, fmt.Sprintf("%s=false -> service intentionally disabled", g.Flag))
	}

	if g.Port > 0 && !g.Probe.Wait(ctx, g.Host, g.Port) {
		logger.Debug("service unreachable", "service", service, "host", g.Host, "port", g.Port)
		return failResult(service, client, fmt.Sprintf("%s:%d is not reachable", g.Host, g.Port))
	}

	return nil
}

// gated runs body through the runner unless the gate short-circuits.
func gated(ctx context.Context, g Gate, service, client string, body Body) Result {
	if r := g.Evaluate(ctx, service, client); r != nil {
		return *r
	}
	return Run(ctx, service, client, body)
}
