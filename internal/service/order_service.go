package service

import (
	"context"
	"fmt"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/outbox"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

// OrderService orchestrates order-related business logic.
type OrderService struct {
	orders  repository.OrderRepository
	carts   repository.CartRepository
	users   repository.UserRepository
	flusher *outbox.Flusher
	log     *logger.Logger
	opts    options
}

// NewOrderService creates an OrderService. users may be nil, in which case
// orders must always carry their own shipping address.
func NewOrderService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	users repository.UserRepository,
	flusher *outbox.Flusher,
	log *logger.Logger,
	opts ...Option,
) *OrderService {
	return &OrderService{
		orders:  orders,
		carts:   carts,
		users:   users,
		flusher: flusher,
		log:     log.With("component", "OrderService"),
		opts:    buildOptions(opts),
	}
}

type AddressInput struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (in AddressInput) empty() bool {
	return in == AddressInput{}
}

func (in AddressInput) toAddress() (entity.Address, error) {
	return entity.NewAddress(in.Street, in.City, in.PostalCode, in.Country)
}

// PlaceOrder turns the user's cart into a PENDING order, empties the cart and
// announces the order with OrderPlaced. Without an address the user's default
// address is used.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, shipTo AddressInput) (*OrderDTO, error) {
	const op = "service.OrderService.PlaceOrder"
	s.log.Info("Placing order", "user_id", userID)

	// 1. Load the cart
	at := s.opts.now()
	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil || cart.IsEmpty() {
		return nil, entity.NewError(entity.CodeValidation, op, "cart is empty", nil)
	}
	if cart.IsExpired(at) {
		return nil, entity.NewError(entity.CodeInvalidStateTransition, op, "cart has expired", nil)
	}

	// 2. Resolve the shipping address
	address, err := s.shippingAddress(ctx, userID, shipTo)
	if err != nil {
		return nil, err
	}

	// 3. Create the order from the cart lines
	items := make([]entity.OrderItem, 0, len(cart.Items()))
	for _, it := range cart.Items() {
		item, err := entity.NewOrderItem(it.ProductID, it.ProductName, it.Quantity, it.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	order, err := entity.NewOrder(userID, items, address)
	if err != nil {
		return nil, err
	}

	// 4. Empty the cart first: a concurrent cart change fails here, before
	// any order exists
	if err := cart.Clear(at); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cleared cart: %w", err)
	}
	if err := s.orders.Save(ctx, order); err != nil {
		if flushErr := s.flusher.Flush(ctx, cart); flushErr != nil {
			s.log.Error("Failed to flush cleared cart", "cart_id", cart.ID, "error", flushErr)
		}
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	// 5. Publish the order's events and the OrderPlaced integration event
	dto := toOrderDTO(order)
	placed, err := entity.OrderPlacedEvent(order)
	if err != nil {
		return nil, err
	}
	if err := s.flusher.Flush(ctx, order, cart); err != nil {
		return nil, err
	}
	if err := s.flusher.Publish(ctx, placed); err != nil {
		return nil, fmt.Errorf("failed to publish OrderPlaced event: %w", err)
	}

	s.log.Info("Order placed", "order_id", order.ID, "total", order.Total().String())
	return dto, nil
}

func (s *OrderService) shippingAddress(ctx context.Context, userID string, in AddressInput) (*entity.Address, error) {
	if !in.empty() {
		addr, err := in.toAddress()
		if err != nil {
			return nil, err
		}
		return &addr, nil
	}
	if s.users == nil {
		return nil, nil
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	if addr, ok := user.DefaultAddress(); ok {
		return &addr, nil
	}
	return nil, nil
}

// GetOrder returns an order. A non-empty userID restricts it to that user.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*OrderDTO, error) {
	o, err := s.load(ctx, "service.OrderService.GetOrder", userID, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderDTO(o), nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*OrderDTO, error) {
	orders, err := s.orders.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	out := make([]*OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	return out, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID, reason string) (*OrderDTO, error) {
	if reason == "" {
		reason = "cancelled by customer"
	}
	return s.transition(ctx, "service.OrderService.CancelOrder", userID, orderID, func(o *entity.Order) error {
		return o.Cancel(reason)
	})
}

func (s *OrderService) StartProcessing(ctx context.Context, orderID string) (*OrderDTO, error) {
	return s.transition(ctx, "service.OrderService.StartProcessing", "", orderID, (*entity.Order).StartProcessing)
}

func (s *OrderService) ShipOrder(ctx context.Context, orderID, trackingRef string) (*OrderDTO, error) {
	return s.transition(ctx, "service.OrderService.ShipOrder", "", orderID, func(o *entity.Order) error {
		return o.Ship(trackingRef)
	})
}

func (s *OrderService) DeliverOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	return s.transition(ctx, "service.OrderService.DeliverOrder", "", orderID, (*entity.Order).Deliver)
}

func (s *OrderService) transition(ctx context.Context, op, userID, orderID string, apply func(*entity.Order) error) (*OrderDTO, error) {
	o, err := s.load(ctx, op, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := apply(o); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}
	s.log.Info("Order status changed", "order_id", o.ID, "status", o.Status())
	dto := toOrderDTO(o)
	if err := s.flusher.Flush(ctx, o); err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *OrderService) load(ctx context.Context, op, userID, orderID string) (*entity.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	// Someone else's order is reported as missing.
	if o == nil || (userID != "" && o.UserID() != userID) {
		return nil, notFound(op, "order", orderID)
	}
	return o, nil
}
