package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Inbox records handled (handler, event) keys in processed_events.
type Inbox struct {
	db *sql.DB
}

func NewInbox(db *sql.DB) *Inbox {
	return &Inbox{db: db}
}

// Claim reports true the first time key is seen.
func (i *Inbox) Claim(ctx context.Context, key string) (bool, error) {
	var inserted bool
	err := i.db.QueryRowContext(ctx,
		"INSERT INTO processed_events (key) VALUES ($1) ON CONFLICT (key) DO NOTHING RETURNING true",
		key,
	).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		// Already claimed.
		return false, nil
	}
	if err != nil {
		return false, mapError("postgres.Inbox.Claim", fmt.Errorf("failed to claim %s: %w", key, err))
	}
	return inserted, nil
}

func (i *Inbox) Forget(ctx context.Context, key string) error {
	if _, err := i.db.ExecContext(ctx, "DELETE FROM processed_events WHERE key = $1", key); err != nil {
		return mapError("postgres.Inbox.Forget", fmt.Errorf("failed to forget %s: %w", key, err))
	}
	return nil
}
