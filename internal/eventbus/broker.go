package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/messaging"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

// DefaultChannelPrefix prefixes the broker channel of every event type.
const DefaultChannelPrefix = "domain-events"

// closeTimeout bounds how long Close waits for channel listeners to stop.
var closeTimeout = 10 * time.Second

// BrokerBus publishes events to a broker channel per event type and delivers
// inbound messages to local handlers. The channel of an event type is
// subscribed when its first handler subscribes and closed when its last one
// leaves. Messages of one channel are handled one at a time; the handlers of
// one message run concurrently.
type BrokerBus struct {
	log    *logger.Logger
	broker messaging.Broker
	subs   *subscriberSet
	opts   options

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex // serializes channel subscribe/detach
	channels map[string]*channel
}

// channel is one open broker subscription. Once detached it stops
// delivering, even while its listener is still draining.
type channel struct {
	sub      messaging.Subscription
	detached atomic.Bool
}

var _ Bus = (*BrokerBus)(nil)

func NewBrokerBus(log *logger.Logger, broker messaging.Broker, opts ...Option) *BrokerBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &BrokerBus{
		log:      log.With("component", "BrokerBus"),
		broker:   broker,
		subs:     newSubscriberSet(),
		opts:     buildOptions(opts),
		ctx:      ctx,
		cancel:   cancel,
		channels: make(map[string]*channel),
	}
}

// Channel returns the broker channel carrying eventType.
func (b *BrokerBus) Channel(eventType string) string {
	return b.opts.prefix + ":" + eventType
}

func (b *BrokerBus) Publish(ctx context.Context, e entity.DomainEvent) error {
	raw, err := entity.MarshalEvent(e)
	if err != nil {
		return entity.Wrap(entity.CodeInternal, "eventbus.BrokerBus.Publish", err)
	}
	if err := b.broker.Publish(ctx, b.Channel(e.EventType), e.AggregateID, raw); err != nil {
		b.opts.observer.PublishFailed("broker", e.EventType)
		return entity.Wrap(entity.CodeInfrastructure, "eventbus.BrokerBus.Publish", err)
	}
	b.opts.observer.EventPublished("broker", e.EventType)
	return nil
}

// PublishAll uses the broker's batch path when it has one, otherwise it
// publishes in order and stops at the first failure.
func (b *BrokerBus) PublishAll(ctx context.Context, events []entity.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	batcher, ok := b.broker.(messaging.BatchPublisher)
	if !ok {
		for _, e := range events {
			if err := b.Publish(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}

	msgs := make([]messaging.Message, 0, len(events))
	for _, e := range events {
		raw, err := entity.MarshalEvent(e)
		if err != nil {
			return entity.Wrap(entity.CodeInternal, "eventbus.BrokerBus.PublishAll", err)
		}
		msgs = append(msgs, messaging.Message{Channel: b.Channel(e.EventType), Key: e.AggregateID, Payload: raw})
	}
	if err := batcher.PublishBatch(ctx, msgs); err != nil {
		for _, e := range events {
			b.opts.observer.PublishFailed("broker", e.EventType)
		}
		return entity.Wrap(entity.CodeInfrastructure, "eventbus.BrokerBus.PublishAll", err)
	}
	for _, e := range events {
		b.opts.observer.EventPublished("broker", e.EventType)
	}
	return nil
}

func (b *BrokerBus) Subscribe(eventType string, h Handler) error {
	const op = "eventbus.BrokerBus.Subscribe"
	if eventType == "" || h == nil {
		return entity.NewError(entity.CodeInvalidArgument, op, "event type and handler are required", nil)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if first := b.subs.add(eventType, h); !first {
		return nil
	}
	name := b.Channel(eventType)
	ch := &channel{}
	sub, err := b.broker.Subscribe(b.ctx, name, b.deliverer(eventType, ch))
	if err != nil {
		b.subs.remove(eventType, h)
		return entity.Wrap(entity.CodeInfrastructure, op, err)
	}
	ch.sub = sub
	b.channels[eventType] = ch
	b.log.Info("Subscribed to channel", "channel", name)
	return nil
}

// Unsubscribe removes h. Removing the last handler of an event type closes
// its channel in the background, since the caller may be a handler running
// on that channel's listener.
func (b *BrokerBus) Unsubscribe(eventType string, h Handler) error {
	b.mu.Lock()
	found, last := b.subs.remove(eventType, h)
	ch, ok := b.channels[eventType]
	if !found || !last || !ok {
		b.mu.Unlock()
		return nil
	}
	delete(b.channels, eventType)
	ch.detached.Store(true)
	b.mu.Unlock()

	name := b.Channel(eventType)
	go func() {
		if err := ch.sub.Close(); err != nil {
			b.log.Warn("Failed to close channel", "channel", name, "err", err)
			return
		}
		b.log.Info("Unsubscribed from channel", "channel", name)
	}()
	return nil
}

func (b *BrokerBus) HandlerCount(eventType string) int {
	return b.subs.count(eventType)
}

// Close tears down every channel subscription and waits up to closeTimeout
// for their listeners. The broker itself is left open.
func (b *BrokerBus) Close() error {
	const op = "eventbus.BrokerBus.Close"
	b.mu.Lock()
	b.cancel()
	detached := make([]*channel, 0, len(b.channels))
	for eventType, ch := range b.channels {
		ch.detached.Store(true)
		detached = append(detached, ch)
		delete(b.channels, eventType)
	}
	b.subs.clear()
	b.mu.Unlock()

	errs := make(chan error, len(detached))
	for _, ch := range detached {
		go func() { errs <- ch.sub.Close() }()
	}
	timeout := time.NewTimer(closeTimeout)
	defer timeout.Stop()
	var firstErr error
	for pending := len(detached); pending > 0; pending-- {
		select {
		case err := <-errs:
			if err != nil && firstErr == nil {
				firstErr = entity.Wrap(entity.CodeInfrastructure, op, err)
			}
		case <-timeout.C:
			return entity.Errorf(entity.CodeInfrastructure, op, "%d channel(s) still draining after %s", pending, closeTimeout)
		}
	}
	return firstErr
}

func (b *BrokerBus) deliverer(eventType string, ch *channel) messaging.Deliver {
	return func(ctx context.Context, payload []byte) {
		if ch.detached.Load() {
			return
		}
		e, err := entity.UnmarshalEvent(payload)
		if err != nil {
			b.log.Warn("Dropping undecodable message", "channel", b.Channel(eventType), "err", err)
			return
		}
		if e.EventType != eventType {
			b.log.Warn("Dropping message on wrong channel", "channel", b.Channel(eventType), "event_type", e.EventType)
			return
		}
		b.dispatch(ctx, e)
	}
}

func (b *BrokerBus) dispatch(ctx context.Context, e entity.DomainEvent) {
	handlers := b.subs.snapshot(e.EventType)
	if len(handlers) == 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.concurrency)
	for _, h := range handlers {
		g.Go(func() error {
			invoke(gctx, b.log, b.opts.observer, h, e)
			return nil
		})
	}
	_ = g.Wait()
}
