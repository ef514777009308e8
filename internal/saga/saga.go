// Package saga wires the cross-context reactions between Orders, Catalog and
// Payments onto an event bus.
package saga

import (
	"context"
	"time"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/eventbus"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/outbox"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

// CancelReasonInsufficientInventory is recorded on orders the saga cancels.
const CancelReasonInsufficientInventory = "insufficient inventory"

var now = func() time.Time { return time.Now().UTC() }

// saveAttempts bounds retries of a save that lost an optimistic race.
const saveAttempts = 3

type Deps struct {
	Inventory repository.InventoryRepository
	Orders    repository.OrderRepository
	// Events is the outbox. Optional.
	Events repository.EventStore
	// Inbox defaults to a MemoryInbox.
	Inbox Inbox
	Log   *logger.Logger
}

type registration struct {
	eventType string
	name      string
	fn        func(context.Context, entity.DomainEvent) error
}

// Register subscribes every saga handler to bus. Call it once per bus.
func Register(bus eventbus.Bus, d Deps) error {
	if d.Inventory == nil || d.Orders == nil || d.Log == nil {
		return entity.NewError(entity.CodeInvalidArgument, "saga.Register", "inventory, orders and log are required", nil)
	}
	if d.Inbox == nil {
		d.Inbox = NewMemoryInbox()
	}
	s := &sagas{
		inventory: d.Inventory,
		orders:    d.Orders,
		flusher:   outbox.NewFlusher(d.Events, bus, d.Log),
		log:       d.Log.With("component", "Saga"),
	}

	for _, r := range []registration{
		{entity.EventOrderPlaced, "reserve-stock", s.reserveStock},
		{entity.EventInventoryReservationFailed, "cancel-unreservable-order", s.cancelUnreservableOrder},
		{entity.EventOrderCancelled, "release-stock", s.releaseStock},
		{entity.EventOrderShipped, "commit-stock", s.commitStock},
		{entity.EventPaymentInitiated, "await-payment", s.awaitPayment},
		{entity.EventPaymentSucceeded, "mark-order-paid", s.markOrderPaid},
	} {
		h := Deduplicate(d.Inbox, r.name, eventbus.Func(r.name, r.fn))
		if err := bus.Subscribe(r.eventType, h); err != nil {
			return err
		}
	}
	s.log.Info("Saga handlers registered")
	return nil
}

type sagas struct {
	inventory repository.InventoryRepository
	orders    repository.OrderRepository
	flusher   *outbox.Flusher
	log       *logger.Logger
}

// retry reruns fn while it fails with a version conflict.
func retry(fn func() error) error {
	var err error
	for i := 0; i < saveAttempts; i++ {
		if err = fn(); !entity.IsCode(err, entity.CodeConflict) {
			return err
		}
	}
	return err
}
