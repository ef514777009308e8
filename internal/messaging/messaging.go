package messaging

import "context"

// Message is one payload addressed to a named channel. Key groups messages
// that must stay ordered with respect to each other (the aggregate id).
type Message struct {
	Channel string
	Key     string
	Payload []byte
}

// Deliver receives the payloads of one channel. Adapters call it from a single
// goroutine per subscription, in the order the broker hands messages out.
type Deliver func(ctx context.Context, payload []byte)

// Subscription is an open channel subscription.
type Subscription interface {
	Close() error
}

// Publisher defines an interface for publishing payloads to a message broker.
type Publisher interface {
	Publish(ctx context.Context, channel string, key string, payload []byte) error
}

// BatchPublisher is implemented by brokers that can send several messages in
// one round trip.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, msgs []Message) error
}

// Subscriber defines an interface for subscribing to a message channel.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, deliver Deliver) (Subscription, error)
}

// Broker is a Publisher and Subscriber sharing one connection.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}
