package saga

import (
	"context"
	"fmt"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
)

// cancelUnreservableOrder is the compensation for a line that could not be
// reserved: the order is cancelled, which in turn releases its other holds.
func (s *sagas) cancelUnreservableOrder(ctx context.Context, e entity.DomainEvent) error {
	failed, err := entity.PayloadAs[entity.InventoryReservationFailed](e)
	if err != nil {
		return err
	}
	s.updateOrder(ctx, failed.OrderID, func(o *entity.Order) (bool, error) {
		if !o.CanCancel() {
			return false, nil
		}
		return true, o.Cancel(CancelReasonInsufficientInventory)
	})
	return nil
}

func (s *sagas) awaitPayment(ctx context.Context, e entity.DomainEvent) error {
	initiated, err := entity.PayloadAs[entity.PaymentInitiated](e)
	if err != nil {
		return err
	}
	s.updateOrder(ctx, initiated.OrderID, func(o *entity.Order) (bool, error) {
		if o.Status() != entity.OrderStatusPending {
			return false, nil
		}
		return true, o.UpdateStatus(entity.OrderStatusPaymentPending)
	})
	return nil
}

// markOrderPaid also moves a still PENDING order through PAYMENT_PENDING:
// on a broker the PaymentInitiated reaction may not have run yet.
func (s *sagas) markOrderPaid(ctx context.Context, e entity.DomainEvent) error {
	succeeded, err := entity.PayloadAs[entity.PaymentSucceeded](e)
	if err != nil {
		return err
	}
	s.updateOrder(ctx, succeeded.OrderID, func(o *entity.Order) (bool, error) {
		if o.Status() == entity.OrderStatusPaid && o.PaymentID() == succeeded.PaymentID {
			return false, nil
		}
		if o.Status() == entity.OrderStatusPending {
			if err := o.UpdateStatus(entity.OrderStatusPaymentPending); err != nil {
				return false, err
			}
		}
		return true, o.MarkAsPaid(succeeded.PaymentID)
	})
	return nil
}

// updateOrder loads the order, lets mutate decide whether it changes, then
// saves and flushes it. Failures are logged, never returned.
func (s *sagas) updateOrder(ctx context.Context, orderID string, mutate func(*entity.Order) (bool, error)) {
	err := retry(func() error {
		o, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if o == nil {
			s.log.Warn("Order not found", "order_id", orderID)
			return nil
		}
		changed, err := mutate(o)
		if err != nil || !changed {
			return err
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		s.log.Info("Order updated", "order_id", orderID, "status", o.Status())
		return s.flusher.Flush(ctx, o)
	})
	if err != nil {
		s.log.Error("Failed to update order", "order_id", orderID, "error", err)
	}
}
