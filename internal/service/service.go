// Package service holds the use cases. Each one loads or creates aggregates,
// mutates them, saves them and flushes their events through the outbox.
package service

import (
	"time"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
)

type options struct {
	now      func() time.Time
	cartTTL  time.Duration
	provider string
}

type Option func(*options)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithCartTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.cartTTL = ttl
		}
	}
}

// WithPaymentProvider names the provider recorded on new payments.
func WithPaymentProvider(name string) Option {
	return func(o *options) {
		if name != "" {
			o.provider = name
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:      func() time.Time { return time.Now().UTC() },
		cartTTL:  entity.DefaultCartTTL,
		provider: "stripe",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func notFound(op, what, id string) error {
	return entity.Errorf(entity.CodeNotFound, op, "%s %s not found", what, id)
}
