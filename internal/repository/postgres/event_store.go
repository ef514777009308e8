package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

type eventStore struct {
	db *sql.DB
}

// NewEventStore creates an outbox backed by Postgres.
func NewEventStore(db *sql.DB) repository.EventStore {
	return &eventStore{db: db}
}

func (s *eventStore) Save(ctx context.Context, e entity.DomainEvent) error {
	return s.SaveAll(ctx, []entity.DomainEvent{e})
}

// SaveAll appends events in one transaction. Event ids already stored are
// skipped, so a retried flush does not duplicate rows.
func (s *eventStore) SaveAll(ctx context.Context, events []entity.DomainEvent) error {
	const op = "postgres.EventStore.SaveAll"
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(op, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO domain_events (id, aggregate_id, aggregate_type, event_type, schema_version, sequence, event_data, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return mapError(op, fmt.Errorf("failed to prepare insert statement: %w", err))
	}
	defer stmt.Close()

	for _, e := range events {
		_, err = stmt.ExecContext(ctx, e.EventID, e.AggregateID, e.AggregateType, e.EventType, e.SchemaVersion, e.Sequence, []byte(e.EventData), e.OccurredAt)
		if err != nil {
			return mapError(op, fmt.Errorf("failed to insert event %s: %w", e.EventType, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError(op, fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *eventStore) GetUnprocessed(ctx context.Context, limit int) ([]entity.DomainEvent, error) {
	const op = "postgres.EventStore.GetUnprocessed"
	query := `
		SELECT id, aggregate_id, aggregate_type, event_type, schema_version, sequence, event_data, occurred_at
		FROM domain_events WHERE processed_at IS NULL ORDER BY occurred_at ASC, sequence ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, fmt.Errorf("failed to query unprocessed events: %w", err))
	}
	defer rows.Close()

	var events []entity.DomainEvent
	for rows.Next() {
		var (
			e    entity.DomainEvent
			data []byte
		)
		if err := rows.Scan(&e.EventID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.SchemaVersion, &e.Sequence, &data, &e.OccurredAt); err != nil {
			return nil, mapError(op, fmt.Errorf("failed to scan event record: %w", err))
		}
		e.EventData = data
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, fmt.Errorf("error iterating event rows: %w", err))
	}
	return events, nil
}

func (s *eventStore) MarkProcessed(ctx context.Context, eventIDs ...string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE domain_events SET processed_at = NOW() WHERE id = ANY($1) AND processed_at IS NULL",
		pq.Array(eventIDs),
	)
	if err != nil {
		return mapError("postgres.EventStore.MarkProcessed", fmt.Errorf("failed to mark events processed: %w", err))
	}
	return nil
}
