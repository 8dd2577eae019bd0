package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hazz-dev/conncheck/internal/alert"
	"github.com/hazz-dev/conncheck/internal/checker"
	"github.com/hazz-dev/conncheck/internal/config"
	"github.com/hazz-dev/conncheck/internal/metrics"
	"github.com/hazz-dev/conncheck/internal/scheduler"
	"github.com/hazz-dev/conncheck/internal/server"
	"github.com/hazz-dev/conncheck/internal/suite"
	"github.com/hazz-dev/conncheck/internal/version"
)

var outputFormat string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "conncheck",
		Short:        "Verify connectivity to the development backing services",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runRoot,
	}
	root.Flags().StringVarP(&outputFormat, "output", "o", suite.FormatText, "output format: text, json, or yaml")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(servicesCmd())

	return root
}

// setup loads the configuration and installs the stderr logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func buildSuite(cfg *config.Config, logger *slog.Logger) *suite.Suite {
	checkers := checker.New(cfg, checker.OptionsFromConfig(cfg, logger))
	return suite.New(checkers, logger)
}

func runRoot(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	out := cmd.OutOrStdout()
	f, isFile := out.(*os.File)
	colorize := isFile && f == os.Stdout && !color.NoColor

	_, err = executeRun(ctx, out, buildSuite(cfg, logger), outputFormat, colorize)
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func serveCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve on-demand checks and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(addr, interval)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&interval, "interval", 0, "rerun the suite on this interval (overrides WATCH_INTERVAL, 0 keeps it)")
	return cmd
}

func runServe(addr string, interval time.Duration) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = cfg.Watch.Interval
	}

	s := buildSuite(cfg, logger)
	apiServer := server.New(s, logger)

	var (
		sched   *scheduler.Scheduler
		alerter *alert.Alerter
	)
	if interval > 0 {
		sched, alerter = newScheduler(cfg, s, interval, logger)
		apiServer.SetLatestSource(sched)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if sched != nil {
		sched.Start(ctx)
		logger.Info("scheduler started", "interval", interval)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	}

	if sched != nil {
		sched.Wait()
	}
	if alerter != nil {
		alerter.Wait()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newScheduler wires periodic runs to the metrics registry and, when a
// webhook is configured, to the alerter. The alerter is nil without a webhook.
func newScheduler(cfg *config.Config, s *suite.Suite, interval time.Duration, logger *slog.Logger) (*scheduler.Scheduler, *alert.Alerter) {
	sched := scheduler.New(s, interval, logger)

	var alerter *alert.Alerter
	if cfg.Watch.WebhookURL != "" {
		alerter = alert.New(cfg.Watch.WebhookURL, cfg.Watch.AlertCooldown, logger)
	}
	sched.SetOnResult(func(r checker.Result, prev *checker.Status) {
		metrics.ObserveResult(r)
		if alerter != nil {
			alerter.Notify(r, prev)
		}
	})
	return sched, alerter
}

func servicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the configured services without contacting them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			checkers := checker.New(cfg, checker.OptionsFromConfig(cfg, logger))
			return executeServices(cmd.OutOrStdout(), checkers)
		},
	}
}
