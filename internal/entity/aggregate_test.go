package entity

import (
	"testing"
	"time"
)

func mustMoney(t *testing.T, amount float64, ccy string) Money {
	t.Helper()
	m, err := NewPrice(amount, ccy)
	if err != nil {
		t.Fatalf("NewPrice(%v, %s): %v", amount, ccy, err)
	}
	return m
}

func TestProductScenario(t *testing.T) {
	sku, err := NewSKU("ABC-123")
	if err != nil {
		t.Fatalf("NewSKU: %v", err)
	}
	p, err := NewProduct(sku, "Coffee mug", "coffee-mug", "", mustMoney(t, 19.99, "EUR"), "")
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	if p.SKU().String() != "ABC-123" {
		t.Fatalf("sku: want=ABC-123 got=%s", p.SKU())
	}
	if p.Price().String() != "19.99 EUR" {
		t.Fatalf("price: want=19.99 EUR got=%s", p.Price())
	}
	if p.Status() != ProductActive {
		t.Fatalf("status: want=%s got=%s", ProductActive, p.Status())
	}
	events := p.DomainEvents()
	if len(events) != 1 || events[0].EventType != EventProductCreated {
		t.Fatalf("events: want [ProductCreated] got %v", events)
	}
	if events[0].Sequence != 1 || p.GetVersion() != 1 || p.PersistedVersion() != 0 {
		t.Fatalf("versions: seq=%d version=%d persisted=%d", events[0].Sequence, p.GetVersion(), p.PersistedVersion())
	}

	if err := p.UpdateStatus("discontinued"); !IsCode(err, CodeValidation) {
		t.Fatalf("unknown status: want validation got %v", err)
	}
	if err := p.UpdateStatus(ProductActive); err != nil || len(p.DomainEvents()) != 1 {
		t.Fatalf("same status must be a no-op, err=%v events=%d", err, len(p.DomainEvents()))
	}
	if err := p.UpdatePrice(mustMoney(t, 24.5, "EUR")); err != nil {
		t.Fatalf("UpdatePrice: %v", err)
	}
	changed, err := PayloadAs[ProductPriceChanged](p.DomainEvents()[1])
	if err != nil {
		t.Fatalf("PayloadAs: %v", err)
	}
	if changed.OldPrice.Decimal() != "19.99" || changed.NewPrice.Decimal() != "24.50" {
		t.Fatalf("price change payload: %+v", changed)
	}
}

func TestBufferDrainIsIdempotent(t *testing.T) {
	inv, err := NewInventory("p-1", 10)
	if err != nil {
		t.Fatalf("NewInventory: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := inv.Restock(1); err != nil {
			t.Fatalf("Restock: %v", err)
		}
	}
	if got := len(inv.DomainEvents()); got != 4 {
		t.Fatalf("buffered: want=4 got=%d", got)
	}

	inv.ClearDomainEvents()
	if got := inv.DomainEvents(); len(got) != 0 {
		t.Fatalf("after clear: want empty got %v", got)
	}
	inv.ClearDomainEvents()
	if inv.HasDomainEvents() {
		t.Fatalf("second clear: buffer should stay empty")
	}
	if inv.PersistedVersion() != 4 {
		t.Fatalf("persisted version: want=4 got=%d", inv.PersistedVersion())
	}
}

func TestDomainEventsReturnsCopy(t *testing.T) {
	inv, _ := NewInventory("p-1", 1)
	events := inv.DomainEvents()
	events[0].EventType = "Tampered"
	if inv.DomainEvents()[0].EventType != EventInventoryCreated {
		t.Fatalf("DomainEvents must not expose the internal buffer")
	}
}

func TestSameAggregate(t *testing.T) {
	a := RestoreInventory("p-1", 3, InventoryState{Quantity: 1})
	b := RestoreInventory("p-1", 7, InventoryState{Quantity: 99})
	c := RestoreInventory("p-2", 3, InventoryState{Quantity: 1})
	if !SameAggregate(a, b) || !a.Equals(b) {
		t.Fatalf("same id must be equal regardless of state")
	}
	if SameAggregate(a, c) {
		t.Fatalf("different ids must not be equal")
	}
	cart := RestoreCart("p-1", 1, CartState{})
	if SameAggregate(a, cart) || cart.Equals(a) {
		t.Fatalf("different aggregate types must not be equal")
	}
}

func TestInventoryReserveScenario(t *testing.T) {
	inv := RestoreInventory("p-1", 1, InventoryState{Quantity: 5})

	if err := inv.Reserve("order-1", 3); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if inv.Reserved() != 3 || inv.Available() != 2 {
		t.Fatalf("after reserve: reserved=%d available=%d", inv.Reserved(), inv.Available())
	}
	events := inv.DomainEvents()
	if len(events) != 1 || events[0].EventType != EventInventoryReduced {
		t.Fatalf("events: want [InventoryReduced] got %v", events)
	}
	reduced, err := PayloadAs[InventoryReduced](events[0])
	if err != nil {
		t.Fatalf("PayloadAs: %v", err)
	}
	if reduced.ProductID != "p-1" || reduced.Quantity != 3 || reduced.OrderID != "order-1" {
		t.Fatalf("payload: %+v", reduced)
	}

	err = inv.Reserve("order-2", 3)
	if !IsCode(err, CodeInsufficientStock) {
		t.Fatalf("second reserve: want insufficient_stock got %v", err)
	}
	if inv.Reserved() != 3 || inv.Available() != 2 || len(inv.DomainEvents()) != 1 {
		t.Fatalf("failed reserve mutated state: reserved=%d events=%d", inv.Reserved(), len(inv.DomainEvents()))
	}
}

func TestInventoryNeverOverReserves(t *testing.T) {
	for quantity := 0; quantity <= 6; quantity++ {
		for reserved := 0; reserved <= quantity; reserved++ {
			for n := -1; n <= 7; n++ {
				inv := RestoreInventory("p", 1, InventoryState{Quantity: quantity, Reserved: reserved, Holds: map[string]int{"seed": reserved}})
				_ = inv.Reserve("o", n)
				if inv.Reserved() > inv.Quantity() || inv.Available() < 0 {
					t.Fatalf("q=%d r=%d n=%d: reserved=%d quantity=%d", quantity, reserved, n, inv.Reserved(), inv.Quantity())
				}
			}
		}
	}
}

func TestInventoryErrors(t *testing.T) {
	inv := RestoreInventory("p-1", 1, InventoryState{Quantity: 5})
	if err := inv.Reserve("o", 0); !IsCode(err, CodeInvalidArgument) {
		t.Fatalf("reserve 0: want invalid_argument got %v", err)
	}
	if err := inv.Commit("o", -2); !IsCode(err, CodeInvalidArgument) {
		t.Fatalf("commit -2: want invalid_argument got %v", err)
	}
	if err := inv.Commit("o", 1); !IsCode(err, CodeOverCommit) {
		t.Fatalf("commit unreserved: want over_commit got %v", err)
	}
	if err := inv.Release("o", 1); !IsCode(err, CodeInvariantViolation) {
		t.Fatalf("release unreserved: want invariant_violation got %v", err)
	}
	if err := inv.Restock(0); !IsCode(err, CodeInvalidArgument) {
		t.Fatalf("restock 0: want invalid_argument got %v", err)
	}
	if inv.HasDomainEvents() {
		t.Fatalf("failed operations must not raise events")
	}
}

func TestInventoryHoldLifecycle(t *testing.T) {
	inv := RestoreInventory("p-1", 1, InventoryState{Quantity: 10})
	_ = inv.Reserve("a", 4)
	_ = inv.Reserve("b", 2)
	if inv.HeldFor("a") != 4 || inv.HeldFor("b") != 2 {
		t.Fatalf("holds: a=%d b=%d", inv.HeldFor("a"), inv.HeldFor("b"))
	}
	if err := inv.Commit("a", 4); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if inv.Quantity() != 6 || inv.Reserved() != 2 || inv.HeldFor("a") != 0 {
		t.Fatalf("after commit: quantity=%d reserved=%d", inv.Quantity(), inv.Reserved())
	}
	if err := inv.Release("b", 2); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if inv.Available() != 6 {
		t.Fatalf("available: want=6 got=%d", inv.Available())
	}
	if err := inv.Release("b", 1); !IsCode(err, CodeInvariantViolation) {
		t.Fatalf("double release: want invariant_violation got %v", err)
	}
}

func TestCartTotalsScenario(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cart, err := NewCart("user-1", DefaultCartTTL, start)
	if err != nil {
		t.Fatalf("NewCart: %v", err)
	}
	price := mustMoney(t, 10, "EUR")
	if err := cart.AddItem("p-1", "Mug", 2, price, start); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if got := cart.Total().Decimal(); got != "20.00" {
		t.Fatalf("total: want=20.00 got=%s", got)
	}
	if err := cart.AddItem("p-1", "Mug", 1, price, start); err != nil {
		t.Fatalf("AddItem again: %v", err)
	}
	items := cart.Items()
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("merge: want one line qty 3 got %+v", items)
	}
	if got := cart.Total().Decimal(); got != "30.00" {
		t.Fatalf("total: want=30.00 got=%s", got)
	}
	if cart.ItemCount() != 3 {
		t.Fatalf("item count: want=3 got=%d", cart.ItemCount())
	}
}

func TestCartRejectsInvalidChanges(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cart, _ := NewCart("user-1", time.Hour, start)
	cart.ClearDomainEvents()
	eur := mustMoney(t, 5, "EUR")

	if err := cart.AddItem("p-1", "Mug", 0, eur, start); !IsCode(err, CodeInvalidArgument) {
		t.Fatalf("qty 0: want invalid_argument got %v", err)
	}
	_ = cart.AddItem("p-1", "Mug", 1, eur, start)
	if err := cart.AddItem("p-2", "Pen", 1, mustMoney(t, 1, "USD"), start); !IsCode(err, CodeValidation) {
		t.Fatalf("mixed currency: want validation got %v", err)
	}
	if err := cart.UpdateItemQuantity("p-1", 0, start); !IsCode(err, CodeInvalidArgument) {
		t.Fatalf("update to 0: want invalid_argument got %v", err)
	}
	if err := cart.UpdateItemQuantity("p-1", MaxLineQuantity+1, start); !IsCode(err, CodeInvalidArgument) {
		t.Fatalf("update over cap: want invalid_argument got %v", err)
	}
	if err := cart.AddItem("p-1", "Mug", MaxLineQuantity, eur, start); !IsCode(err, CodeInvalidArgument) {
		t.Fatalf("merge over cap: want invalid_argument got %v", err)
	}
	if _, err := NewOrderItem("p-1", "Mug", MaxLineQuantity+1, eur); !IsCode(err, CodeInvalidArgument) {
		t.Fatalf("order line over cap: want invalid_argument got %v", err)
	}
	if err := cart.RemoveItem("nope", start); !IsCode(err, CodeNotFound) {
		t.Fatalf("remove missing: want not_found got %v", err)
	}
	if err := cart.AddItem("p-1", "Mug", 1, eur, start.Add(2*time.Hour)); !IsCode(err, CodeInvalidStateTransition) {
		t.Fatalf("expired add: want invalid_state_transition got %v", err)
	}
	if got := len(cart.DomainEvents()); got != 1 {
		t.Fatalf("only the successful add should raise, got %d events", got)
	}
}

func TestCartDiscardIfExpired(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cart, _ := NewCart("user-1", time.Hour, start)
	_ = cart.AddItem("p-1", "Mug", 1, mustMoney(t, 5, "EUR"), start)
	cart.ClearDomainEvents()

	if expired, _ := cart.DiscardIfExpired(start.Add(30*time.Minute), time.Hour); expired {
		t.Fatalf("cart should not be expired yet")
	}
	later := start.Add(2 * time.Hour)
	expired, err := cart.DiscardIfExpired(later, time.Hour)
	if err != nil || !expired {
		t.Fatalf("DiscardIfExpired: expired=%v err=%v", expired, err)
	}
	if !cart.IsEmpty() || cart.IsExpired(later) {
		t.Fatalf("expired cart should be empty with a fresh window")
	}
	events := cart.DomainEvents()
	if len(events) != 1 || events[0].EventType != EventCartCleared {
		t.Fatalf("events: want [CartCleared] got %v", events)
	}
}

func TestOrderTransitionTable(t *testing.T) {
	all := []OrderStatus{
		OrderStatusPending, OrderStatusPaymentPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
	}
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusPaymentPending}:   true,
		{OrderStatusPending, OrderStatusCancelled}:        true,
		{OrderStatusPaymentPending, OrderStatusPaid}:      true,
		{OrderStatusPaymentPending, OrderStatusCancelled}: true,
		{OrderStatusPaid, OrderStatusProcessing}:          true,
		{OrderStatusPaid, OrderStatusCancelled}:           true,
		{OrderStatusProcessing, OrderStatusShipped}:       true,
		{OrderStatusProcessing, OrderStatusCancelled}:     true,
		{OrderStatusShipped, OrderStatusDelivered}:        true,
	}
	for _, from := range all {
		for _, to := range all {
			o := RestoreOrder("o-1", 1, OrderState{UserID: "u", Status: from, Items: []OrderItem{{ProductID: "p", Quantity: 1}}})
			err := o.UpdateStatus(to)
			want := allowed[[2]OrderStatus{from, to}]
			if want && err != nil {
				t.Fatalf("%s -> %s: unexpected err %v", from, to, err)
			}
			if !want {
				if !IsCode(err, CodeInvalidStateTransition) {
					t.Fatalf("%s -> %s: want invalid_state_transition got %v", from, to, err)
				}
				if o.Status() != from || o.HasDomainEvents() {
					t.Fatalf("%s -> %s: rejected transition mutated the order", from, to)
				}
			}
		}
	}
}

func TestOrderPaymentPath(t *testing.T) {
	item, _ := NewOrderItem("p-1", "Mug", 2, mustMoney(t, 10, "EUR"))
	o, err := NewOrder("user-1", []OrderItem{item}, nil)
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	if o.Status() != OrderStatusPending || o.Total().Decimal() != "20.00" {
		t.Fatalf("new order: status=%s total=%s", o.Status(), o.Total())
	}
	if err := o.UpdateStatus(OrderStatusPaid); !IsCode(err, CodeInvalidStateTransition) {
		t.Fatalf("PENDING -> PAID: want invalid_state_transition got %v", err)
	}
	if err := o.UpdateStatus(OrderStatusPaymentPending); err != nil {
		t.Fatalf("PENDING -> PAYMENT_PENDING: %v", err)
	}
	if err := o.MarkAsPaid("pay-1"); err != nil {
		t.Fatalf("PAYMENT_PENDING -> PAID: %v", err)
	}
	var types []string
	for _, e := range o.DomainEvents() {
		types = append(types, e.EventType)
	}
	want := []string{EventOrderCreated, EventOrderStatusChanged, EventOrderStatusChanged, EventOrderPaid}
	if len(types) != len(want) {
		t.Fatalf("events: want=%v got=%v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events[%d]: want=%s got=%s", i, want[i], types[i])
		}
	}
	for i, e := range o.DomainEvents() {
		if e.Sequence != i+1 {
			t.Fatalf("sequence[%d]: want=%d got=%d", i, i+1, e.Sequence)
		}
	}
}

func TestOrderCancelCarriesLines(t *testing.T) {
	item, _ := NewOrderItem("p-1", "Mug", 2, mustMoney(t, 10, "EUR"))
	o, _ := NewOrder("user-1", []OrderItem{item}, nil)
	o.ClearDomainEvents()
	if err := o.Cancel("changed my mind"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	cancelled, err := PayloadAs[OrderCancelled](o.DomainEvents()[1])
	if err != nil {
		t.Fatalf("PayloadAs: %v", err)
	}
	if len(cancelled.Items) != 1 || cancelled.Items[0].Quantity != 2 || cancelled.Reason != "changed my mind" {
		t.Fatalf("payload: %+v", cancelled)
	}
	if err := o.Cancel("again"); !IsCode(err, CodeInvalidStateTransition) {
		t.Fatalf("cancel twice: want invalid_state_transition got %v", err)
	}
}

func TestNewOrderRequiresItems(t *testing.T) {
	if _, err := NewOrder("user-1", nil, nil); !IsCode(err, CodeValidation) {
		t.Fatalf("empty order: want validation got %v", err)
	}
}

func TestPaymentStateMachine(t *testing.T) {
	amount := mustMoney(t, 20, "EUR")
	p, err := NewPayment("order-1", amount, "stripe")
	if err != nil {
		t.Fatalf("NewPayment: %v", err)
	}
	if err := p.MarkAsRefunded("nope"); !IsCode(err, CodeInvalidStateTransition) {
		t.Fatalf("refund pending: want invalid_state_transition got %v", err)
	}
	if err := p.MarkAsSucceeded("tx"); !IsCode(err, CodeInvalidStateTransition) {
		t.Fatalf("PENDING -> SUCCEEDED: want invalid_state_transition got %v", err)
	}
	if err := p.MarkAsProcessing("tx-1"); err != nil {
		t.Fatalf("MarkAsProcessing: %v", err)
	}
	if err := p.MarkAsSucceeded(""); err != nil {
		t.Fatalf("MarkAsSucceeded: %v", err)
	}
	if p.State().TransactionID != "tx-1" {
		t.Fatalf("transaction id: want=tx-1 got=%s", p.State().TransactionID)
	}
	if err := p.MarkAsFailed("late"); !IsCode(err, CodeInvalidStateTransition) {
		t.Fatalf("SUCCEEDED -> FAILED: want invalid_state_transition got %v", err)
	}
	if err := p.MarkAsRefunded("customer request"); err != nil {
		t.Fatalf("MarkAsRefunded: %v", err)
	}
	if p.Status() != PaymentStatusRefunded {
		t.Fatalf("status: want=REFUNDED got=%s", p.Status())
	}
	if _, err := NewPayment("order-1", ZeroMoney(EUR), "stripe"); !IsCode(err, CodeValidation) {
		t.Fatalf("zero amount: want validation got %v", err)
	}
}

func TestUserPromoteToAdmin(t *testing.T) {
	email, _ := NewEmail("a@b.co")
	u, err := NewUser(email, "Ada", "")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if u.Role() != RoleCustomer {
		t.Fatalf("role: want=customer got=%s", u.Role())
	}
	if err := u.PromoteToAdmin(); err != nil {
		t.Fatalf("PromoteToAdmin: %v", err)
	}
	if err := u.PromoteToAdmin(); !IsCode(err, CodeInvalidStateTransition) {
		t.Fatalf("promote admin: want invalid_state_transition got %v", err)
	}
	addr, _ := NewAddress("1 Main St", "Lisbon", "1000", "pt")
	if err := u.AddAddress(addr, false); err != nil {
		t.Fatalf("AddAddress: %v", err)
	}
	if got, ok := u.DefaultAddress(); !ok || got.Country != "PT" {
		t.Fatalf("first address should be default, got %+v ok=%v", got, ok)
	}
}
