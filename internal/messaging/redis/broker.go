package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/messaging"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

// Broker publishes and subscribes through Redis Pub/Sub. Pub/Sub keeps the
// order of messages on one channel and drops messages nobody listens to.
type Broker struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewBroker(log *logger.Logger, rdb *goredis.Client) *Broker {
	return &Broker{log: log.With("component", "RedisBroker"), rdb: rdb}
}

// Dial connects to addr and verifies the connection with a ping.
func Dial(ctx context.Context, log *logger.Logger, addr string) (*Broker, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewBroker(log, rdb), nil
}

// Client exposes the underlying connection so other Redis-backed components
// can share it.
func (b *Broker) Client() *goredis.Client { return b.rdb }

func (b *Broker) Publish(ctx context.Context, channel string, key string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// PublishBatch sends every message in one pipeline round trip.
func (b *Broker) PublishBatch(ctx context.Context, msgs []messaging.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	pipe := b.rdb.Pipeline()
	for _, m := range msgs {
		pipe.Publish(ctx, m.Channel, m.Payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish %d messages: %w", len(msgs), err)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string, deliver messaging.Deliver) (messaging.Subscription, error) {
	ps := b.rdb.Subscribe(ctx, channel)

	// ensures subscription actually started
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	sub := &subscription{ps: ps, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range ps.Channel() {
			deliver(ctx, []byte(msg.Payload))
		}
		b.log.Debug("Subscription closed", "channel", channel)
	}()
	return sub, nil
}

func (b *Broker) Close() error {
	return b.rdb.Close()
}

type subscription struct {
	ps   *goredis.PubSub
	done chan struct{}
	once sync.Once
	err  error
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.err = s.ps.Close()
		<-s.done
	})
	return s.err
}
