package entity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCartTTL is how long a cart lives when the caller does not say otherwise.
const DefaultCartTTL = 24 * time.Hour

// CartItem represents an item currently in a user's cart. Price is the unit
// price at the time the product was first added.
type CartItem struct {
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	Price       Money     `json:"price"`
	AddedAt     time.Time `json:"addedAt"`
}

// Subtotal cannot overflow for prices built with NewPrice and quantities
// within MaxLineQuantity.
func (it CartItem) Subtotal() Money {
	sub, _ := it.Price.Multiply(it.Quantity)
	return sub
}

type CartState struct {
	UserID    string
	Items     []CartItem
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cart holds the items a user intends to order. Operations take the current
// time explicitly because expiry is part of the cart's state.
type Cart struct {
	AggregateBase
	state CartState
}

func NewCart(userID string, ttl time.Duration, at time.Time) (*Cart, error) {
	if userID == "" {
		return nil, NewError(CodeValidation, "entity.NewCart", "user id is required", nil)
	}
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	c := &Cart{
		AggregateBase: AggregateBase{ID: uuid.NewString()},
		state: CartState{
			UserID:    userID,
			ExpiresAt: at.Add(ttl),
			CreatedAt: at,
			UpdatedAt: at,
		},
	}
	if err := c.raise(CartAggregateType, CartCreated{CartID: c.ID, UserID: userID, ExpiresAt: c.state.ExpiresAt}); err != nil {
		return nil, err
	}
	return c, nil
}

func RestoreCart(id string, version int, state CartState) *Cart {
	state.Items = append([]CartItem(nil), state.Items...)
	return &Cart{AggregateBase: AggregateBase{ID: id, Version: version}, state: state}
}

func (c *Cart) AggregateType() string { return CartAggregateType }
func (c *Cart) Equals(other Aggregate) bool { return SameAggregate(c, other) }
func (c *Cart) UserID() string { return c.state.UserID }
func (c *Cart) ExpiresAt() time.Time { return c.state.ExpiresAt }
func (c *Cart) IsEmpty() bool { return len(c.state.Items) == 0 }

func (c *Cart) State() CartState {
	s := c.state
	s.Items = append([]CartItem(nil), c.state.Items...)
	return s
}

func (c *Cart) Items() []CartItem {
	return append([]CartItem(nil), c.state.Items...)
}

func (c *Cart) IsExpired(at time.Time) bool {
	return !at.Before(c.state.ExpiresAt)
}

// Total is the sum of all line subtotals. An empty cart totals zero EUR.
func (c *Cart) Total() Money {
	if len(c.state.Items) == 0 {
		return ZeroMoney(EUR)
	}
	total := ZeroMoney(c.state.Items[0].Price.Currency())
	for _, it := range c.state.Items {
		// Items share one currency, enforced by AddItem.
		total, _ = total.Add(it.Subtotal())
	}
	return total
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.state.Items {
		n += it.Quantity
	}
	return n
}

// AddItem adds quantity of a product. Adding a product already in the cart
// increases its quantity and keeps the original price.
func (c *Cart) AddItem(productID, productName string, quantity int, price Money, at time.Time) error {
	const op = "entity.Cart.AddItem"
	switch {
	case productID == "":
		return NewError(CodeValidation, op, "product id is required", nil)
	case quantity <= 0:
		return NewError(CodeInvalidArgument, op, "quantity must be positive", nil)
	case quantity > MaxLineQuantity:
		return Errorf(CodeInvalidArgument, op, "quantity cannot exceed %d", MaxLineQuantity)
	case c.IsExpired(at):
		return NewError(CodeInvalidStateTransition, op, "cart has expired", nil)
	case len(c.state.Items) > 0 && c.state.Items[0].Price.Currency() != price.Currency():
		return Errorf(CodeValidation, op, "cart is priced in %s, got %s", c.state.Items[0].Price.Currency(), price.Currency())
	}

	next := c.State()
	if idx := next.indexOf(productID); idx >= 0 {
		if next.Items[idx].Quantity+quantity > MaxLineQuantity {
			return Errorf(CodeInvalidArgument, op, "quantity cannot exceed %d", MaxLineQuantity)
		}
		next.Items[idx].Quantity += quantity
	} else {
		next.Items = append(next.Items, CartItem{
			ProductID:   productID,
			ProductName: productName,
			Quantity:    quantity,
			Price:       price,
			AddedAt:     at,
		})
	}
	return c.commit(next, at, CartItemAdded{ProductID: productID, Quantity: quantity})
}

// UpdateItemQuantity sets the quantity of a line. Quantities must stay positive;
// use RemoveItem to drop a line.
func (c *Cart) UpdateItemQuantity(productID string, quantity int, at time.Time) error {
	const op = "entity.Cart.UpdateItemQuantity"
	if quantity <= 0 {
		return NewError(CodeInvalidArgument, op, "quantity must be positive", nil)
	}
	if quantity > MaxLineQuantity {
		return Errorf(CodeInvalidArgument, op, "quantity cannot exceed %d", MaxLineQuantity)
	}
	next := c.State()
	idx := next.indexOf(productID)
	if idx < 0 {
		return Errorf(CodeNotFound, op, "product %s not found in cart", productID)
	}
	if next.Items[idx].Quantity == quantity {
		return nil
	}
	next.Items[idx].Quantity = quantity
	return c.commit(next, at, CartItemUpdated{ProductID: productID, Quantity: quantity})
}

func (c *Cart) RemoveItem(productID string, at time.Time) error {
	next := c.State()
	idx := next.indexOf(productID)
	if idx < 0 {
		return Errorf(CodeNotFound, "entity.Cart.RemoveItem", "product %s not found in cart", productID)
	}
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	return c.commit(next, at, CartItemRemoved{ProductID: productID})
}

// Clear empties the cart. Clearing an empty cart raises nothing.
func (c *Cart) Clear(at time.Time) error {
	if c.IsEmpty() {
		return nil
	}
	next := c.State()
	next.Items = nil
	return c.commit(next, at, CartCleared{CartID: c.ID})
}

// DiscardIfExpired drops the items of an expired cart and opens a new expiry
// window of ttl. It reports whether the cart had expired.
func (c *Cart) DiscardIfExpired(at time.Time, ttl time.Duration) (bool, error) {
	if !c.IsExpired(at) {
		return false, nil
	}
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	if err := c.Clear(at); err != nil {
		return true, err
	}
	c.state.ExpiresAt = at.Add(ttl)
	c.state.UpdatedAt = at
	return true, nil
}

func (c *Cart) commit(next CartState, at time.Time, e Event) error {
	if err := c.raise(CartAggregateType, e); err != nil {
		return err
	}
	next.UpdatedAt = at
	c.state = next
	return nil
}

func (s CartState) indexOf(productID string) int {
	for i, it := range s.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}
