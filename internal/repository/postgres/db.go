// Package postgres holds the database/sql side of persistence: the outbox
// table every flushed event lands in and the inbox of handled events.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

func InitDB(ctx context.Context, log *logger.Logger, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("Database connected and migrated")
	return db, nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS domain_events (
			id TEXT PRIMARY KEY,
			aggregate_id TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			event_type TEXT NOT NULL,
			schema_version INT NOT NULL DEFAULT 1,
			sequence INT NOT NULL DEFAULT 0,
			event_data JSONB NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS domain_events_unprocessed
			ON domain_events (occurred_at) WHERE processed_at IS NULL;

		CREATE TABLE IF NOT EXISTS processed_events (
			key TEXT PRIMARY KEY,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// mapError tags a driver failure with a domain error code.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return entity.Wrap(entity.CodeConflict, op, err)
	}
	return entity.Wrap(entity.CodeInfrastructure, op, err)
}
