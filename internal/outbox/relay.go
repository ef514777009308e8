package outbox

import (
	"context"
	"time"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/eventbus"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

const defaultBatchSize = 100

// Relay republishes outbox events that were recorded but never marked
// processed, e.g. because the bus was down when they were flushed.
type Relay struct {
	store     repository.EventStore
	bus       eventbus.Bus
	log       *logger.Logger
	batchSize int
}

func NewRelay(store repository.EventStore, bus eventbus.Bus, log *logger.Logger) *Relay {
	return &Relay{store: store, bus: bus, log: log.With("component", "OutboxRelay"), batchSize: defaultBatchSize}
}

// ReplayOnce publishes one batch of unprocessed events, oldest first, and
// returns how many were delivered. It stops at the first publish failure so
// later events of the same aggregate do not overtake it.
func (r *Relay) ReplayOnce(ctx context.Context) (int, error) {
	const op = "outbox.Relay.ReplayOnce"
	pending, err := r.store.GetUnprocessed(ctx, r.batchSize)
	if err != nil {
		return 0, entity.Wrap(entity.CodeInfrastructure, op, err)
	}

	delivered := 0
	for _, e := range pending {
		if err := r.bus.Publish(ctx, e); err != nil {
			return delivered, entity.Wrap(entity.CodeInfrastructure, op, err)
		}
		if err := r.store.MarkProcessed(ctx, e.EventID); err != nil {
			return delivered, entity.Wrap(entity.CodeInfrastructure, op, err)
		}
		delivered++
	}
	if delivered > 0 {
		r.log.Info("Replayed outbox events", "count", delivered)
	}
	return delivered, nil
}

// Run replays every interval until ctx is done.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.log.Info("Outbox relay started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.ReplayOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn("Outbox replay failed", "error", err)
			}
		}
	}
}
