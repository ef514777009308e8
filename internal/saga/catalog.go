package saga

import (
	"context"
	"fmt"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
)

// reserveStock holds stock for every line of a placed order. Lines are
// independent: one failing does not stop the others.
func (s *sagas) reserveStock(ctx context.Context, e entity.DomainEvent) error {
	placed, err := entity.PayloadAs[entity.OrderPlaced](e)
	if err != nil {
		return err
	}
	s.log.Info("Reserving stock", "order_id", placed.OrderID, "lines", len(placed.Items))

	for _, line := range placed.Items {
		if s.orderCancelled(ctx, placed.OrderID) {
			s.log.Info("Order cancelled while reserving, skipping remaining lines", "order_id", placed.OrderID)
			return nil
		}
		if err := retry(func() error { return s.reserveLine(ctx, placed.OrderID, line) }); err != nil {
			s.log.Error("Failed to reserve stock", "order_id", placed.OrderID, "product_id", line.ProductID, "error", err)
		}
	}
	return nil
}

// orderCancelled reports whether a compensation already cancelled the order.
// Holds taken after that would never be released.
func (s *sagas) orderCancelled(ctx context.Context, orderID string) bool {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil || o == nil {
		return false
	}
	return o.Status() == entity.OrderStatusCancelled
}

func (s *sagas) reserveLine(ctx context.Context, orderID string, line entity.OrderLine) error {
	inv, err := s.inventory.FindByProductID(ctx, line.ProductID)
	if err != nil {
		return fmt.Errorf("failed to load inventory: %w", err)
	}
	if inv == nil {
		s.log.Warn("No inventory for product, skipping line", "order_id", orderID, "product_id", line.ProductID)
		return nil
	}
	if inv.HeldFor(orderID) > 0 {
		s.log.Debug("Stock already held for order", "order_id", orderID, "product_id", line.ProductID)
		return nil
	}

	if err := inv.Reserve(orderID, line.Quantity); err != nil {
		if !entity.IsCode(err, entity.CodeInsufficientStock) {
			return err
		}
		s.log.Error("Insufficient stock for order line",
			"order_id", orderID, "product_id", line.ProductID,
			"requested", line.Quantity, "available", inv.Available())
		failed, err := entity.NewDomainEvent(entity.InventoryAggregateType, line.ProductID, 0, entity.InventoryReservationFailed{
			OrderID:   orderID,
			ProductID: line.ProductID,
			Requested: line.Quantity,
			Available: inv.Available(),
		}, now())
		if err != nil {
			return err
		}
		return s.flusher.Publish(ctx, failed)
	}

	if err := s.inventory.Save(ctx, inv); err != nil {
		return fmt.Errorf("failed to save inventory: %w", err)
	}
	return s.flusher.Flush(ctx, inv)
}

func (s *sagas) releaseStock(ctx context.Context, e entity.DomainEvent) error {
	cancelled, err := entity.PayloadAs[entity.OrderCancelled](e)
	if err != nil {
		return err
	}
	s.settleHolds(ctx, "release", cancelled.OrderID, cancelled.Items, (*entity.Inventory).Release)
	return nil
}

func (s *sagas) commitStock(ctx context.Context, e entity.DomainEvent) error {
	shipped, err := entity.PayloadAs[entity.OrderShipped](e)
	if err != nil {
		return err
	}
	s.settleHolds(ctx, "commit", shipped.OrderID, shipped.Items, (*entity.Inventory).Commit)
	return nil
}

// settleHolds applies settle to the whole hold orderID has on each line's
// product. Lines without a hold are skipped.
func (s *sagas) settleHolds(ctx context.Context, action, orderID string, lines []entity.OrderLine, settle func(*entity.Inventory, string, int) error) {
	for _, line := range lines {
		err := retry(func() error {
			inv, err := s.inventory.FindByProductID(ctx, line.ProductID)
			if err != nil {
				return fmt.Errorf("failed to load inventory: %w", err)
			}
			if inv == nil {
				return nil
			}
			held := inv.HeldFor(orderID)
			if held == 0 {
				return nil
			}
			if err := settle(inv, orderID, held); err != nil {
				return err
			}
			if err := s.inventory.Save(ctx, inv); err != nil {
				return fmt.Errorf("failed to save inventory: %w", err)
			}
			return s.flusher.Flush(ctx, inv)
		})
		if err != nil {
			s.log.Error("Failed to "+action+" stock", "order_id", orderID, "product_id", line.ProductID, "error", err)
		}
	}
}
