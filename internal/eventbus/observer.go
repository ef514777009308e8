package eventbus

import "time"

// Observer receives bus activity for metrics.
type Observer interface {
	EventPublished(bus, eventType string)
	PublishFailed(bus, eventType string)
	HandlerSucceeded(eventType, handler string, took time.Duration)
	HandlerFailed(eventType, handler string, took time.Duration)
}

type nopObserver struct{}

func (nopObserver) EventPublished(string, string) {}
func (nopObserver) PublishFailed(string, string) {}
func (nopObserver) HandlerSucceeded(string, string, time.Duration) {}
func (nopObserver) HandlerFailed(string, string, time.Duration) {}

type options struct {
	observer    Observer
	prefix      string
	concurrency int
}

type Option func(*options)

func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

// WithChannelPrefix sets the prefix of broker channel names.
func WithChannelPrefix(prefix string) Option {
	return func(opts *options) {
		if prefix != "" {
			opts.prefix = prefix
		}
	}
}

// WithHandlerConcurrency bounds how many handlers of one message the broker
// bus runs at once.
func WithHandlerConcurrency(n int) Option {
	return func(opts *options) {
		if n > 0 {
			opts.concurrency = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{observer: nopObserver{}, prefix: DefaultChannelPrefix, concurrency: 8}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
