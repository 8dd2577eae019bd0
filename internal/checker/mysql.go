package checker

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/hazz-dev/conncheck/internal/config"
)

const (
	mysqlService = "MySQL"
	mysqlClient  = "go-mysql"
)

var mysqlDialect = sqlDialect{
	createTable: `
		CREATE TABLE IF NOT EXISTS health_check_events (
			id CHAR(36) PRIMARY KEY,
			source VARCHAR(64) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	insert: "INSERT INTO health_check_events (id, source) VALUES (?, ?)",
	count:  "SELECT COUNT(*) FROM health_check_events WHERE id = ?",
}

type mysqlChecker struct {
	cfg  config.MySQL
	gate Gate
	open sqlOpener
}

func newMySQLChecker(cfg config.MySQL, opts Options) *mysqlChecker {
	return &mysqlChecker{
		cfg:  cfg,
		gate: opts.gate(cfg.Flag(), cfg.Enabled(), cfg.Host, cfg.Port),
		open: sql.Open,
	}
}

func (c *mysqlChecker) Service() string { return mysqlService }

func (c *mysqlChecker) Target() Target { return c.gate.target(mysqlService, mysqlClient) }

func (c *mysqlChecker) Check(ctx context.Context) Result {
	return gated(ctx, c.gate, mysqlService, mysqlClient, c.roundTrip)
}

func (c *mysqlChecker) roundTrip(ctx context.Context) (string, error) {
	db, err := c.open("mysql", c.dsn())
	if err != nil {
		return "", err
	}
	defer db.Close()

	return insertAndCount(ctx, db, mysqlDialect, mysqlClient)
}

func (c *mysqlChecker) dsn() string {
	cfg := mysql.NewConfig()
	cfg.User = c.cfg.User
	cfg.Passwd = c.cfg.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	cfg.DBName = c.cfg.Database
	cfg.ParseTime = true
	cfg.Timeout = 5 * time.Second
	return cfg.FormatDSN()
}
