// Package kafka adapts segmentio/kafka-go to the messaging ports. Channels map
// to topics with ':' replaced by '.', messages are keyed by aggregate id so one
// aggregate's events land on one partition.
package kafka

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/messaging"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

type Broker struct {
	log     *logger.Logger
	brokers []string
	groupID string
	writer  *kafkaGo.Writer
}

// NewBroker creates a Kafka publisher and subscriber. Every subscription joins
// groupID, so each node should use its own group to see every event.
func NewBroker(log *logger.Logger, brokers []string, groupID string) *Broker {
	return &Broker{
		log:     log.With("component", "KafkaBroker"),
		brokers: brokers,
		groupID: groupID,
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Balancer:               &kafkaGo.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// Topic converts a channel name into a valid Kafka topic name.
func Topic(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}

func (k *Broker) Publish(ctx context.Context, channel string, key string, payload []byte) error {
	err := k.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic: Topic(channel),
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to %s: %w", Topic(channel), err)
	}
	return nil
}

func (k *Broker) PublishBatch(ctx context.Context, msgs []messaging.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := make([]kafkaGo.Message, 0, len(msgs))
	for _, m := range msgs {
		batch = append(batch, kafkaGo.Message{Topic: Topic(m.Channel), Key: []byte(m.Key), Value: m.Payload})
	}
	if err := k.writer.WriteMessages(ctx, batch...); err != nil {
		return fmt.Errorf("failed to write %d messages: %w", len(batch), err)
	}
	return nil
}

func (k *Broker) Subscribe(ctx context.Context, channel string, deliver messaging.Deliver) (messaging.Subscription, error) {
	topic := Topic(channel)
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers: k.brokers,
		Topic:   topic,
		GroupID: k.groupID,
	})

	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, reader: reader}
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		k.consume(ctx, reader, topic, deliver)
	}()
	return sub, nil
}

// Read error backoff bounds.
var (
	minReadBackoff = 100 * time.Millisecond
	maxReadBackoff = 30 * time.Second
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafkaGo.Message, error)
}

// nextBackoff doubles d within [minReadBackoff, maxReadBackoff].
func nextBackoff(d time.Duration) time.Duration {
	if d < minReadBackoff {
		return minReadBackoff
	}
	if d *= 2; d > maxReadBackoff {
		return maxReadBackoff
	}
	return d
}

// consume reads messages in a loop and hands each one to deliver.
// It blocks until the context is cancelled.
func (k *Broker) consume(ctx context.Context, reader messageReader, topic string, deliver messaging.Deliver) {
	var backoff time.Duration
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				k.log.Info("Consumer shutting down", "topic", topic)
				return
			}
			backoff = nextBackoff(backoff)
			k.log.Error("Error reading message", "topic", topic, "retry_in", backoff.String(), "err", err)
			select {
			case <-ctx.Done():
				k.log.Info("Consumer shutting down", "topic", topic)
				return
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0
		deliver(ctx, msg.Value)
	}
}

func (k *Broker) Close() error {
	return k.writer.Close()
}

type subscription struct {
	cancel context.CancelFunc
	reader *kafkaGo.Reader
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.err = s.reader.Close()
	})
	return s.err
}
