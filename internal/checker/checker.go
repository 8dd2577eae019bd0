package checker

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	"github.com/hazz-dev/conncheck/internal/config"
)

// Checker performs one service check. Check never fails: every outcome is
// reported through the Result.
type Checker interface {
	Service() string
	Check(ctx context.Context) Result
}

// Target describes what a checker contacts when it runs.
type Target struct {
	Service string `json:"service" yaml:"service"`
	Client  string `json:"client" yaml:"client"`
	Flag    string `json:"flag" yaml:"flag"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address" yaml:"address"`
}

// Describer is implemented by checkers that can report their Target.
type Describer interface {
	Target() Target
}

func (g Gate) target(service, client string) Target {
	return Target{
		Service: service,
		Client:  client,
		Flag:    g.Flag,
		Enabled: g.Enabled,
		Address: net.JoinHostPort(g.Host, strconv.Itoa(g.Port)),
	}
}

// Options carries the settings shared by every checker.
type Options struct {
	Probe  PortProbe
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) gate(flag string, enabled bool, host string, port int) Gate {
	return Gate{
		Flag:    flag,
		Enabled: enabled,
		Host:    host,
		Port:    port,
		Probe:   o.Probe,
		Logger:  o.logger(),
	}
}

// OptionsFromConfig derives checker options from the gate settings.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Probe: PortProbe{
			Timeout:     cfg.Gate.Timeout,
			Interval:    cfg.Gate.Interval,
			DialTimeout: cfg.Gate.DialTimeout,
		},
		Logger: logger,
	}
}

// New returns one Checker per backing service in suite order.
func New(cfg *config.Config, opts Options) []Checker {
	return []Checker{
		newPostgresChecker(cfg.Postgres, opts),
		newMySQLChecker(cfg.MySQL, opts),
		newValkeyChecker(cfg.Valkey, opts),
		newKafkaChecker(cfg.Kafka, opts),
		newOpenSearchChecker(cfg.OpenSearch, opts),
		newMinIOChecker(cfg.MinIO, opts),
	}
}
