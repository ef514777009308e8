// Package watermill adapts any watermill Publisher/Subscriber pair to the
// messaging ports. It ships constructors for the in-memory GoChannel and for
// Kafka through watermill-kafka on sarama.
package watermill

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/messaging"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

const keyMetadata = "partition_key"

type Broker struct {
	log *logger.Logger
	pub message.Publisher
	sub message.Subscriber
}

func NewBroker(log *logger.Logger, pub message.Publisher, sub message.Subscriber) *Broker {
	return &Broker{log: log.With("component", "WatermillBroker"), pub: pub, sub: sub}
}

// NewGoChannel builds an in-memory broker. Messages published before a
// subscription exists are dropped, as with Redis Pub/Sub.
func NewGoChannel(log *logger.Logger) *Broker {
	gc := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewLogger(log))
	return NewBroker(log, gc, gc)
}

// NewKafka builds a broker on watermill-kafka. Messages are partitioned by key.
func NewKafka(log *logger.Logger, brokers []string, consumerGroup string) (*Broker, error) {
	wmLogger := NewLogger(log)
	marshaler := kafka.NewWithPartitioningMarshaler(func(topic string, msg *message.Message) (string, error) {
		return msg.Metadata.Get(keyMetadata), nil
	})

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: marshaler,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	saramaCfg := kafka.DefaultSaramaSubscriberConfig()
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	sub, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           marshaler,
		OverwriteSaramaConfig: saramaCfg,
		ConsumerGroup:         consumerGroup,
	}, wmLogger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}
	return NewBroker(log, pub, sub), nil
}

// Topic converts a channel name into a topic name valid on every watermill backend.
func Topic(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}

func (b *Broker) Publish(ctx context.Context, channel string, key string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(keyMetadata, key)
	msg.SetContext(ctx)
	if err := b.pub.Publish(Topic(channel), msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", Topic(channel), err)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string, deliver messaging.Deliver) (messaging.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	msgs, err := b.sub.Subscribe(ctx, Topic(channel))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Topic(channel), err)
	}

	s := &subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		for msg := range msgs {
			deliver(ctx, msg.Payload)
			msg.Ack()
		}
	}()
	return s, nil
}

func (b *Broker) Close() error {
	pubErr := b.pub.Close()
	subErr := b.sub.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}
