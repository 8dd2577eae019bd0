package checker

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/hazz-dev/conncheck/internal/config"
)

const (
	postgresService = "PostgreSQL"
	postgresClient  = "go-pgx"
)

var postgresDialect = sqlDialect{
	createTable: `
		CREATE TABLE IF NOT EXISTS health_check_events (
			id UUID PRIMARY KEY,
			source TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	insert: "INSERT INTO health_check_events (id, source) VALUES ($1, $2)",
	count:  "SELECT COUNT(*) FROM health_check_events WHERE id = $1",
}

type postgresChecker struct {
	cfg  config.Postgres
	gate Gate
	open sqlOpener
}

func newPostgresChecker(cfg config.Postgres, opts Options) *postgresChecker {
	return &postgresChecker{
		cfg:  cfg,
		gate: opts.gate(cfg.Flag(), cfg.Enabled(), cfg.Host, cfg.Port),
		open: sql.Open,
	}
}

func (c *postgresChecker) Service() string { return postgresService }

func (c *postgresChecker) Target() Target { return c.gate.target(postgresService, postgresClient) }

func (c *postgresChecker) Check(ctx context.Context) Result {
	return gated(ctx, c.gate, postgresService, postgresClient, c.roundTrip)
}

func (c *postgresChecker) roundTrip(ctx context.Context) (string, error) {
	db, err := c.open("pgx", c.dsn())
	if err != nil {
		return "", err
	}
	defer db.Close()

	return insertAndCount(ctx, db, postgresDialect, postgresClient)
}

func (c *postgresChecker) dsn() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.cfg.User, c.cfg.Password),
		Host:     net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port)),
		Path:     "/" + c.cfg.Database,
		RawQuery: "sslmode=disable&connect_timeout=5",
	}
	return u.String()
}
