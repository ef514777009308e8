package saga

import (
	"context"
	"sync"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/eventbus"
)

// Inbox remembers which (handler, event) pairs have been handled.
type Inbox interface {
	// Claim reports true the first time key is seen.
	Claim(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// MemoryInbox is an Inbox for a single process.
type MemoryInbox struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{seen: make(map[string]struct{})}
}

func (i *MemoryInbox) Claim(_ context.Context, key string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[key]; ok {
		return false, nil
	}
	i.seen[key] = struct{}{}
	return true, nil
}

func (i *MemoryInbox) Forget(_ context.Context, key string) error {
	i.mu.Lock()
	delete(i.seen, key)
	i.mu.Unlock()
	return nil
}

type dedupHandler struct {
	inbox Inbox
	name  string
	next  eventbus.Handler
}

// Deduplicate runs next at most once per event id. A claim is dropped again
// when next fails so a redelivery can retry it.
func Deduplicate(inbox Inbox, name string, next eventbus.Handler) eventbus.Handler {
	return &dedupHandler{inbox: inbox, name: name, next: next}
}

func (h *dedupHandler) Handle(ctx context.Context, e entity.DomainEvent) error {
	key := h.name + ":" + e.EventID
	first, err := h.inbox.Claim(ctx, key)
	if err != nil {
		return entity.Wrap(entity.CodeInfrastructure, "saga.Deduplicate", err)
	}
	if !first {
		return nil
	}
	if err := h.next.Handle(ctx, e); err != nil {
		_ = h.inbox.Forget(ctx, key)
		return err
	}
	return nil
}

func (h *dedupHandler) String() string { return h.name }
