// Package outbox moves raised domain events from aggregates to the bus,
// recording each one in the event store first.
package outbox

import (
	"context"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/eventbus"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

// Flusher drains aggregate buffers: store, publish, mark processed.
type Flusher struct {
	store repository.EventStore
	bus   eventbus.Bus
	log   *logger.Logger
}

// NewFlusher returns a Flusher. A nil store publishes without recording.
func NewFlusher(store repository.EventStore, bus eventbus.Bus, log *logger.Logger) *Flusher {
	return &Flusher{store: store, bus: bus, log: log.With("component", "OutboxFlusher")}
}

// Flush takes the pending events of every aggregate, in argument order, and
// publishes them. Buffers are cleared before publishing, so a failed publish
// leaves the events to the relay instead of a second flush.
func (f *Flusher) Flush(ctx context.Context, aggs ...entity.Aggregate) error {
	var events []entity.DomainEvent
	for _, agg := range aggs {
		events = append(events, agg.DomainEvents()...)
		agg.ClearDomainEvents()
	}
	return f.Publish(ctx, events...)
}

// Publish records and publishes events that did not come from a buffer.
func (f *Flusher) Publish(ctx context.Context, events ...entity.DomainEvent) error {
	const op = "outbox.Flusher.Publish"
	if len(events) == 0 {
		return nil
	}

	recorded := false
	if f.store != nil {
		if err := f.store.SaveAll(ctx, events); err != nil {
			f.log.Error("Failed to record events in outbox, publishing anyway", "count", len(events), "error", err)
		} else {
			recorded = true
		}
	}

	if err := f.bus.PublishAll(ctx, events); err != nil {
		return entity.Wrap(entity.CodeInfrastructure, op, err)
	}

	if recorded {
		ids := make([]string, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.EventID)
		}
		if err := f.store.MarkProcessed(ctx, ids...); err != nil {
			f.log.Warn("Failed to mark events processed", "count", len(ids), "error", err)
		}
	}
	return nil
}
