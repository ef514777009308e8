package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

type storedEvent struct {
	event     entity.DomainEvent
	seq       int
	processed bool
}

type eventStore struct {
	mu     sync.Mutex
	byID   map[string]*storedEvent
	nextID int
}

// NewEventStore creates an in-memory outbox.
func NewEventStore() repository.EventStore {
	return &eventStore{byID: make(map[string]*storedEvent)}
}

func (s *eventStore) Save(ctx context.Context, e entity.DomainEvent) error {
	return s.SaveAll(ctx, []entity.DomainEvent{e})
}

// SaveAll appends events. An event id already stored is ignored.
func (s *eventStore) SaveAll(_ context.Context, events []entity.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if _, dup := s.byID[e.EventID]; dup {
			continue
		}
		s.nextID++
		s.byID[e.EventID] = &storedEvent{event: e, seq: s.nextID}
	}
	return nil
}

func (s *eventStore) GetUnprocessed(_ context.Context, limit int) ([]entity.DomainEvent, error) {
	s.mu.Lock()
	pending := make([]*storedEvent, 0)
	for _, se := range s.byID {
		if !se.processed {
			pending = append(pending, se)
		}
	}
	s.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i].event.OccurredAt, pending[j].event.OccurredAt
		if a.Equal(b) {
			return pending[i].seq < pending[j].seq
		}
		return a.Before(b)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]entity.DomainEvent, 0, len(pending))
	for _, se := range pending {
		out = append(out, se.event)
	}
	return out, nil
}

func (s *eventStore) MarkProcessed(_ context.Context, eventIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range eventIDs {
		if se, ok := s.byID[id]; ok {
			se.processed = true
		}
	}
	return nil
}
