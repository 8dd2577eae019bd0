package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hazz-dev/conncheck/internal/suite"
)

// executeRun runs the suite and renders it in format. Text output streams
// one line per check; json and yaml print the full report at the end. The
// returned error is non-nil when any check failed.
func executeRun(ctx context.Context, out io.Writer, s *suite.Suite, format string, colorize bool) (suite.Report, error) {
	var rep suite.Report
	switch format {
	case suite.FormatText:
		p := suite.NewPrinter(out, colorize)
		p.Header()
		rep = s.Run(ctx, p.Result)
		p.Summary(rep)
	case suite.FormatJSON, suite.FormatYAML:
		rep = s.Run(ctx, nil)
		if err := suite.WriteReport(out, format, rep); err != nil {
			return rep, err
		}
	default:
		return rep, fmt.Errorf("unknown output format %q (must be text, json, or yaml)", format)
	}

	if !rep.OK() {
		return rep, fmt.Errorf("%d check(s) failed", rep.Failed)
	}
	return rep, nil
}
