package entity

import "time"

// InventoryState is the stock record of one product. Holds tracks how much of
// Reserved belongs to each order.
type InventoryState struct {
	Quantity  int            // Total physical items
	Reserved  int            // Items locked for pending orders
	Holds     map[string]int // orderID -> reserved quantity
	UpdatedAt time.Time
}

// Available returns the stock available for new reservations.
func (s InventoryState) Available() int {
	return s.Quantity - s.Reserved
}

func (s InventoryState) clone() InventoryState {
	holds := make(map[string]int, len(s.Holds))
	for k, v := range s.Holds {
		holds[k] = v
	}
	s.Holds = holds
	return s
}

// Inventory manages the stock of a product. Its identity is the product id.
type Inventory struct {
	AggregateBase
	state InventoryState
}

// NewInventory creates the stock record for a product and raises InventoryCreated.
func NewInventory(productID string, quantity int) (*Inventory, error) {
	if productID == "" {
		return nil, NewError(CodeValidation, "entity.NewInventory", "product id is required", nil)
	}
	if quantity < 0 {
		return nil, NewError(CodeInvalidArgument, "entity.NewInventory", "quantity cannot be negative", nil)
	}
	inv := &Inventory{
		AggregateBase: AggregateBase{ID: productID},
		state:         InventoryState{Quantity: quantity, Holds: map[string]int{}, UpdatedAt: now()},
	}
	if err := inv.raise(InventoryAggregateType, InventoryCreated{ProductID: productID, Quantity: quantity}); err != nil {
		return nil, err
	}
	return inv, nil
}

func RestoreInventory(productID string, version int, state InventoryState) *Inventory {
	state = state.clone()
	return &Inventory{AggregateBase: AggregateBase{ID: productID, Version: version}, state: state}
}

func (i *Inventory) AggregateType() string { return InventoryAggregateType }
func (i *Inventory) Equals(other Aggregate) bool { return SameAggregate(i, other) }
func (i *Inventory) ProductID() string { return i.ID }
func (i *Inventory) Quantity() int { return i.state.Quantity }
func (i *Inventory) Reserved() int { return i.state.Reserved }
func (i *Inventory) Available() int { return i.state.Available() }
func (i *Inventory) State() InventoryState { return i.state.clone() }

// HeldFor returns how much stock is reserved for orderID.
func (i *Inventory) HeldFor(orderID string) int {
	return i.state.Holds[orderID]
}

// Reserve holds n units for orderID and raises InventoryReduced.
func (i *Inventory) Reserve(orderID string, n int) error {
	return i.apply(reserveStock(i.ID, i.state, orderID, n))
}

// Release gives back n units previously reserved for orderID.
func (i *Inventory) Release(orderID string, n int) error {
	return i.apply(releaseStock(i.ID, i.state, orderID, n))
}

// Commit turns n reserved units of orderID into shipped stock.
func (i *Inventory) Commit(orderID string, n int) error {
	return i.apply(commitStock(i.ID, i.state, orderID, n))
}

func (i *Inventory) Restock(n int) error {
	return i.apply(restockStock(i.ID, i.state, n))
}

func (i *Inventory) apply(next InventoryState, e Event, err error) error {
	if err != nil {
		return err
	}
	if err := i.raise(InventoryAggregateType, e); err != nil {
		return err
	}
	next.UpdatedAt = now()
	i.state = next
	return nil
}

func reserveStock(productID string, s InventoryState, orderID string, n int) (InventoryState, Event, error) {
	const op = "entity.Inventory.Reserve"
	if n <= 0 {
		return s, nil, NewError(CodeInvalidArgument, op, "reserve amount must be positive", nil)
	}
	if orderID == "" {
		return s, nil, NewError(CodeInvalidArgument, op, "order id is required", nil)
	}
	if s.Available() < n {
		return s, nil, Errorf(CodeInsufficientStock, op, "insufficient inventory: available=%d, requested=%d", s.Available(), n)
	}
	next := s.clone()
	next.Reserved += n
	next.Holds[orderID] += n
	return next, InventoryReduced{ProductID: productID, Quantity: n, OrderID: orderID}, nil
}

func releaseStock(productID string, s InventoryState, orderID string, n int) (InventoryState, Event, error) {
	const op = "entity.Inventory.Release"
	if n <= 0 {
		return s, nil, NewError(CodeInvalidArgument, op, "release amount must be positive", nil)
	}
	if s.Reserved < n || s.Holds[orderID] < n {
		return s, nil, Errorf(CodeInvariantViolation, op, "cannot release more than reserved: reserved=%d, held=%d, release=%d", s.Reserved, s.Holds[orderID], n)
	}
	next := s.clone()
	next.Reserved -= n
	next.dropHold(orderID, n)
	return next, InventoryReleased{ProductID: productID, Quantity: n, OrderID: orderID}, nil
}

func commitStock(productID string, s InventoryState, orderID string, n int) (InventoryState, Event, error) {
	const op = "entity.Inventory.Commit"
	if n <= 0 {
		return s, nil, NewError(CodeInvalidArgument, op, "commit amount must be positive", nil)
	}
	if s.Reserved < n || s.Holds[orderID] < n {
		return s, nil, Errorf(CodeOverCommit, op, "cannot commit more than reserved: reserved=%d, held=%d, commit=%d", s.Reserved, s.Holds[orderID], n)
	}
	next := s.clone()
	next.Reserved -= n
	next.Quantity -= n
	next.dropHold(orderID, n)
	return next, InventoryCommitted{ProductID: productID, Quantity: n, OrderID: orderID}, nil
}

func restockStock(productID string, s InventoryState, n int) (InventoryState, Event, error) {
	if n <= 0 {
		return s, nil, NewError(CodeInvalidArgument, "entity.Inventory.Restock", "restock amount must be positive", nil)
	}
	next := s.clone()
	next.Quantity += n
	return next, InventoryRestocked{ProductID: productID, Quantity: n}, nil
}

func (s *InventoryState) dropHold(orderID string, n int) {
	left := s.Holds[orderID] - n
	if left <= 0 {
		delete(s.Holds, orderID)
		return
	}
	s.Holds[orderID] = left
}
