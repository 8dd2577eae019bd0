package checker

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const healthTable = "health_check_events"

// sqlDialect holds the statements one SQL engine needs for the insert and
// count round-trip.
type sqlDialect struct {
	createTable string
	insert      string
	count       string
}

// insertAndCount creates the health table if absent, inserts one row tagged
// with source, counts it back and commits. The transaction is rolled back on
// any failure.
func insertAndCount(ctx context.Context, db *sql.DB, d sqlDialect, source string) (string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, d.createTable); err != nil {
		return "", fmt.Errorf("creating %s: %w", healthTable, err)
	}

	eventID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, d.insert, eventID, source); err != nil {
		return "", fmt.Errorf("inserting event: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, d.count, eventID).Scan(&count); err != nil {
		return "", fmt.Errorf("counting events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return fmt.Sprintf("Inserted row %s (rows_found=%d)", eventID, count), nil
}

// sqlOpener matches sql.Open.
type sqlOpener func(driverName, dsn string) (*sql.DB, error)
