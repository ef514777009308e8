package entity

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusPaymentPending, OrderStatusCancelled},
	OrderStatusPaymentPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:           {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusDelivered},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

// CanTransitionTo reports whether the order state machine allows s -> to.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// OrderItem is a line item within an order, priced at order time.
type OrderItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Price       Money  `json:"price"`
}

func NewOrderItem(productID, productName string, quantity int, price Money) (OrderItem, error) {
	if productID == "" {
		return OrderItem{}, NewError(CodeValidation, "entity.NewOrderItem", "product id is required", nil)
	}
	if quantity <= 0 {
		return OrderItem{}, NewError(CodeInvalidArgument, "entity.NewOrderItem", "order quantity must be positive", nil)
	}
	if quantity > MaxLineQuantity {
		return OrderItem{}, Errorf(CodeInvalidArgument, "entity.NewOrderItem", "order quantity cannot exceed %d", MaxLineQuantity)
	}
	return OrderItem{ProductID: productID, ProductName: productName, Quantity: quantity, Price: price}, nil
}

// Subtotal cannot overflow for prices built with NewPrice and quantities
// within MaxLineQuantity.
func (it OrderItem) Subtotal() Money {
	sub, _ := it.Price.Multiply(it.Quantity)
	return sub
}

type OrderState struct {
	UserID          string
	Items           []OrderItem
	Total           Money
	Status          OrderStatus
	ShippingAddress *Address
	PaymentID       string
	TrackingRef     string
	CancelReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Order is the aggregate root of the Orders context.
type Order struct {
	AggregateBase
	state OrderState
}

// NewOrder creates a PENDING order and raises OrderCreated.
func NewOrder(userID string, items []OrderItem, shippingAddress *Address) (*Order, error) {
	const op = "entity.NewOrder"
	if userID == "" {
		return nil, NewError(CodeValidation, op, "user id is required", nil)
	}
	if len(items) == 0 {
		return nil, NewError(CodeValidation, op, "order must have at least one item", nil)
	}
	total := ZeroMoney(items[0].Price.Currency())
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, Errorf(CodeInvalidArgument, op, "quantity of %s must be positive", it.ProductID)
		}
		var err error
		if total, err = total.Add(it.Subtotal()); err != nil {
			return nil, err
		}
	}

	at := now()
	o := &Order{
		AggregateBase: AggregateBase{ID: uuid.NewString()},
		state: OrderState{
			UserID:          userID,
			Items:           append([]OrderItem(nil), items...),
			Total:           total,
			Status:          OrderStatusPending,
			ShippingAddress: shippingAddress,
			CreatedAt:       at,
			UpdatedAt:       at,
		},
	}
	if err := o.raise(OrderAggregateType, OrderCreated{OrderID: o.ID, UserID: userID, Total: total}); err != nil {
		return nil, err
	}
	return o, nil
}

func RestoreOrder(id string, version int, state OrderState) *Order {
	state.Items = append([]OrderItem(nil), state.Items...)
	return &Order{AggregateBase: AggregateBase{ID: id, Version: version}, state: state}
}

func (o *Order) AggregateType() string { return OrderAggregateType }
func (o *Order) Equals(other Aggregate) bool { return SameAggregate(o, other) }
func (o *Order) UserID() string { return o.state.UserID }
func (o *Order) Status() OrderStatus { return o.state.Status }
func (o *Order) Total() Money { return o.state.Total }
func (o *Order) PaymentID() string { return o.state.PaymentID }
func (o *Order) Items() []OrderItem { return append([]OrderItem(nil), o.state.Items...) }

func (o *Order) State() OrderState {
	s := o.state
	s.Items = o.Items()
	return s
}

// Lines returns the product/quantity pairs of the order.
func (o *Order) Lines() []OrderLine {
	lines := make([]OrderLine, 0, len(o.state.Items))
	for _, it := range o.state.Items {
		lines = append(lines, OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// CanCancel reports whether the order may still move to CANCELLED.
func (o *Order) CanCancel() bool {
	return o.state.Status.CanTransitionTo(OrderStatusCancelled)
}

// UpdateStatus moves the order along the state machine and raises
// OrderStatusChanged plus the status-specific event of the target state.
func (o *Order) UpdateStatus(status OrderStatus) error {
	return o.transition(status, func(*OrderState) {})
}

func (o *Order) MarkAsPaid(paymentID string) error {
	return o.transition(OrderStatusPaid, func(s *OrderState) { s.PaymentID = paymentID })
}

func (o *Order) StartProcessing() error {
	return o.transition(OrderStatusProcessing, func(*OrderState) {})
}

func (o *Order) Ship(trackingRef string) error {
	return o.transition(OrderStatusShipped, func(s *OrderState) { s.TrackingRef = trackingRef })
}

func (o *Order) Deliver() error {
	return o.transition(OrderStatusDelivered, func(*OrderState) {})
}

func (o *Order) Cancel(reason string) error {
	return o.transition(OrderStatusCancelled, func(s *OrderState) { s.CancelReason = reason })
}

func (o *Order) transition(to OrderStatus, mutate func(*OrderState)) error {
	next, events, err := decideOrderTransition(o.ID, o.State(), to, mutate)
	if err != nil {
		return err
	}
	if err := o.raise(OrderAggregateType, events...); err != nil {
		return err
	}
	next.UpdatedAt = now()
	o.state = next
	return nil
}

func decideOrderTransition(orderID string, s OrderState, to OrderStatus, mutate func(*OrderState)) (OrderState, []Event, error) {
	if !to.Valid() {
		return s, nil, Errorf(CodeValidation, "entity.Order.UpdateStatus", "unknown order status %q", to)
	}
	if !s.Status.CanTransitionTo(to) {
		return s, nil, Errorf(CodeInvalidStateTransition, "entity.Order.UpdateStatus", "cannot transition from %s to %s", s.Status, to)
	}
	from := s.Status
	next := s
	mutate(&next)
	next.Status = to

	events := []Event{OrderStatusChanged{OrderID: orderID, From: from, Status: to}}
	lines := make([]OrderLine, 0, len(next.Items))
	for _, it := range next.Items {
		lines = append(lines, OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	switch to {
	case OrderStatusPaid:
		events = append(events, OrderPaid{OrderID: orderID, PaymentID: next.PaymentID})
	case OrderStatusCancelled:
		events = append(events, OrderCancelled{OrderID: orderID, Reason: next.CancelReason, Items: lines})
	case OrderStatusShipped:
		events = append(events, OrderShipped{OrderID: orderID, TrackingRef: next.TrackingRef, Items: lines})
	case OrderStatusDelivered:
		events = append(events, OrderDelivered{OrderID: orderID})
	}
	return next, events, nil
}

// OrderPlacedEvent builds the integration event announcing a newly placed
// order. It is not part of the order's own event stream, so its sequence is 0.
func OrderPlacedEvent(o *Order) (DomainEvent, error) {
	return NewDomainEvent(OrderAggregateType, o.ID, 0, OrderPlaced{
		OrderID: o.ID,
		UserID:  o.state.UserID,
		Items:   o.Lines(),
		Total:   o.state.Total,
	}, now())
}
