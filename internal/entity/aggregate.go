package entity

import "time"

// now is the clock used by aggregates that are not handed an explicit time.
var now = func() time.Time { return time.Now().UTC() }

// Aggregate represents a domain aggregate root.
type Aggregate interface {
	GetAggregateID() string
	AggregateType() string
	GetVersion() int
	PersistedVersion() int
	DomainEvents() []DomainEvent
	ClearDomainEvents()
}

// AggregateBase provides identity, versioning and the pending event buffer.
// Version counts every event the aggregate has ever raised, including the
// ones still buffered.
type AggregateBase struct {
	ID      string
	Version int

	events []DomainEvent
}

func (a *AggregateBase) GetAggregateID() string {
	return a.ID
}

func (a *AggregateBase) GetVersion() int {
	return a.Version
}

// PersistedVersion is the version the aggregate had before the buffered
// events were raised, i.e. the version a repository expects to find stored.
func (a *AggregateBase) PersistedVersion() int {
	return a.Version - len(a.events)
}

// DomainEvents returns a copy of the pending events in the order they were raised.
func (a *AggregateBase) DomainEvents() []DomainEvent {
	if len(a.events) == 0 {
		return nil
	}
	out := make([]DomainEvent, len(a.events))
	copy(out, a.events)
	return out
}

func (a *AggregateBase) HasDomainEvents() bool {
	return len(a.events) > 0
}

// ClearDomainEvents empties the buffer. Clearing an empty buffer is a no-op.
func (a *AggregateBase) ClearDomainEvents() {
	a.events = nil
}

// raise builds envelopes for every payload and appends them only if all of
// them could be built, so a failed mutator never leaves a partial buffer.
func (a *AggregateBase) raise(aggregateType string, payloads ...Event) error {
	at := now()
	built := make([]DomainEvent, 0, len(payloads))
	for i, p := range payloads {
		e, err := NewDomainEvent(aggregateType, a.ID, a.Version+i+1, p, at)
		if err != nil {
			return Wrap(CodeInternal, "entity.raise", err)
		}
		built = append(built, e)
	}
	a.events = append(a.events, built...)
	a.Version += len(built)
	return nil
}

// SameAggregate reports whether a and b are the same aggregate by identity.
func SameAggregate(a, b Aggregate) bool {
	if a == nil || b == nil {
		return false
	}
	return a.AggregateType() == b.AggregateType() && a.GetAggregateID() == b.GetAggregateID()
}

// Aggregate type names used on event envelopes.
const (
	ProductAggregateType   = "Product"
	CategoryAggregateType  = "Category"
	InventoryAggregateType = "Inventory"
	CartAggregateType      = "Cart"
	OrderAggregateType     = "Order"
	PaymentAggregateType   = "Payment"
	UserAggregateType      = "User"
)
