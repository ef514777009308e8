package eventbus

import (
	"context"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

// InProcessBus delivers events synchronously inside the publishing call.
// Handlers for one event run one after another; events of one PublishAll call
// are delivered in the order given. A failing handler is logged and skipped.
type InProcessBus struct {
	log  *logger.Logger
	subs *subscriberSet
	obs  Observer
}

var _ Bus = (*InProcessBus)(nil)

func NewInProcessBus(log *logger.Logger, opts ...Option) *InProcessBus {
	o := buildOptions(opts)
	return &InProcessBus{
		log:  log.With("component", "InProcessBus"),
		subs: newSubscriberSet(),
		obs:  o.observer,
	}
}

func (b *InProcessBus) Publish(ctx context.Context, e entity.DomainEvent) error {
	b.obs.EventPublished("inprocess", e.EventType)
	handlers := b.subs.snapshot(e.EventType)
	if len(handlers) == 0 {
		b.log.Debug("No handlers for event", "event_type", e.EventType)
		return nil
	}
	for _, h := range handlers {
		invoke(ctx, b.log, b.obs, h, e)
	}
	return nil
}

func (b *InProcessBus) PublishAll(ctx context.Context, events []entity.DomainEvent) error {
	for _, e := range events {
		if err := b.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (b *InProcessBus) Subscribe(eventType string, h Handler) error {
	if eventType == "" || h == nil {
		return entity.NewError(entity.CodeInvalidArgument, "eventbus.Subscribe", "event type and handler are required", nil)
	}
	b.subs.add(eventType, h)
	b.log.Debug("Handler subscribed", "event_type", eventType, "handler", HandlerName(h))
	return nil
}

func (b *InProcessBus) Unsubscribe(eventType string, h Handler) error {
	if found, _ := b.subs.remove(eventType, h); found {
		b.log.Debug("Handler unsubscribed", "event_type", eventType, "handler", HandlerName(h))
	}
	return nil
}

func (b *InProcessBus) HandlerCount(eventType string) int {
	return b.subs.count(eventType)
}

// Clear removes every subscription.
func (b *InProcessBus) Clear() {
	b.subs.clear()
}
