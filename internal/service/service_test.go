package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/eventbus"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/outbox"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository/memory"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/saga"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []entity.DomainEvent
}

func (l *eventLog) Handle(_ context.Context, e entity.DomainEvent) error {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
	return nil
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.EventType)
	}
	return out
}

func (l *eventLog) has(eventType string) bool {
	for _, t := range l.types() {
		if t == eventType {
			return true
		}
	}
	return false
}

type app struct {
	store    repository.Store
	clock    *clock
	events   *eventLog
	catalog  *CatalogService
	carts    *CartService
	orders   *OrderService
	payments *PaymentService
	identity *IdentityService
}

func newApp(t *testing.T) *app {
	t.Helper()
	log := logger.ForTest(t)
	store := memory.NewStore()
	bus := eventbus.NewInProcessBus(log)
	if err := saga.Register(bus, saga.Deps{Inventory: store.Inventory, Orders: store.Orders, Events: store.Events, Log: log}); err != nil {
		t.Fatalf("saga.Register: %v", err)
	}
	events := &eventLog{}
	for _, et := range entity.KnownEventTypes() {
		_ = bus.Subscribe(et, events)
	}

	c := &clock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	flusher := outbox.NewFlusher(store.Events, bus, log)
	opts := []Option{WithClock(c.now)}
	return &app{
		store:    store,
		clock:    c,
		events:   events,
		catalog:  NewCatalogService(store.Products, store.Categories, store.Inventory, flusher, log),
		carts:    NewCartService(store.Carts, store.Products, flusher, log, opts...),
		orders:   NewOrderService(store.Orders, store.Carts, store.Users, flusher, log, opts...),
		payments: NewPaymentService(store.Payments, store.Orders, flusher, log, opts...),
		identity: NewIdentityService(store.Users, flusher, log),
	}
}

func (a *app) product(t *testing.T, sku string, price float64, stock int) *ProductDTO {
	t.Helper()
	p, err := a.catalog.CreateProduct(context.Background(), CreateProductInput{
		SKU: sku, Name: "Product " + sku, Slug: "product-" + sku[len(sku)-1:], Price: price, Currency: "EUR", InitialStock: stock,
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", sku, err)
	}
	return p
}

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	a := newApp(t)
	a.product(t, "ABC-123", 19.99, 0)
	_, err := a.catalog.CreateProduct(context.Background(), CreateProductInput{SKU: "ABC-123", Name: "Again", Slug: "again", Price: 1})
	if !entity.IsCode(err, entity.CodeConflict) {
		t.Fatalf("duplicate sku: want conflict got %v", err)
	}
	if _, err := a.catalog.CreateProduct(context.Background(), CreateProductInput{SKU: "abc 123", Name: "Bad", Slug: "bad", Price: 1}); !entity.IsCode(err, entity.CodeValidation) {
		t.Fatalf("invalid sku: want validation got %v", err)
	}
	got, err := a.catalog.GetProductBySKU(context.Background(), "ABC-123")
	if err != nil || got.Price.Amount != "19.99" || got.Price.Currency != "EUR" {
		t.Fatalf("GetProductBySKU: %+v %v", got, err)
	}
}

func TestSetInventoryCreatesThenRestocks(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	p := a.product(t, "MUG-1", 5, 0)

	if _, err := a.catalog.GetInventory(ctx, p.ID); !entity.IsCode(err, entity.CodeNotFound) {
		t.Fatalf("no inventory yet: want not found got %v", err)
	}
	inv, err := a.catalog.SetInventory(ctx, p.ID, 4)
	if err != nil || inv.Quantity != 4 || inv.Available != 4 {
		t.Fatalf("create: %+v %v", inv, err)
	}
	inv, err = a.catalog.SetInventory(ctx, p.ID, 10)
	if err != nil || inv.Quantity != 10 {
		t.Fatalf("restock: %+v %v", inv, err)
	}
	if _, err := a.catalog.SetInventory(ctx, p.ID, 3); !entity.IsCode(err, entity.CodeInvalidArgument) {
		t.Fatalf("lowering: want invalid argument got %v", err)
	}
	if !a.events.has(entity.EventInventoryRestocked) {
		t.Fatalf("InventoryRestocked not published: %v", a.events.types())
	}
	if _, err := a.catalog.SetInventory(ctx, "missing", 1); !entity.IsCode(err, entity.CodeNotFound) {
		t.Fatalf("unknown product: want not found got %v", err)
	}
}

func TestCartMergesQuantities(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	p := a.product(t, "PEN-1", 10, 0)

	if _, err := a.carts.AddToCart(ctx, "u-1", p.ID, 2); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	cart, err := a.carts.AddToCart(ctx, "u-1", p.ID, 1)
	if err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 || cart.Total.Amount != "30.00" || cart.ItemCount != 3 {
		t.Fatalf("cart: %+v", cart)
	}

	cart, err = a.carts.UpdateItemQuantity(ctx, "u-1", p.ID, 5)
	if err != nil || cart.Total.Amount != "50.00" {
		t.Fatalf("UpdateItemQuantity: %+v %v", cart, err)
	}
	cart, err = a.carts.RemoveItem(ctx, "u-1", p.ID)
	if err != nil || len(cart.Items) != 0 || cart.Total.Amount != "0.00" {
		t.Fatalf("RemoveItem: %+v %v", cart, err)
	}
	if _, err := a.carts.RemoveItem(ctx, "u-1", p.ID); !entity.IsCode(err, entity.CodeNotFound) {
		t.Fatalf("remove missing line: want not found got %v", err)
	}
	if _, err := a.carts.AddToCart(ctx, "u-1", "nope", 1); !entity.IsCode(err, entity.CodeNotFound) {
		t.Fatalf("unknown product: want not found got %v", err)
	}
}

func TestExpiredCartIsDiscarded(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	p := a.product(t, "CUP-1", 3, 0)
	if _, err := a.carts.AddToCart(ctx, "u-1", p.ID, 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	a.clock.advance(entity.DefaultCartTTL + time.Minute)
	if _, err := a.orders.PlaceOrder(ctx, "u-1", AddressInput{}); !entity.IsCode(err, entity.CodeInvalidStateTransition) {
		t.Fatalf("PlaceOrder on expired cart: want invalid state transition got %v", err)
	}
	cart, err := a.carts.GetCart(ctx, "u-1")
	if err != nil || len(cart.Items) != 0 {
		t.Fatalf("GetCart after expiry: %+v %v", cart, err)
	}
	cart, err = a.carts.AddToCart(ctx, "u-1", p.ID, 2)
	if err != nil || cart.ItemCount != 2 {
		t.Fatalf("AddToCart after expiry: %+v %v", cart, err)
	}
}

func TestPlaceOrderFromCart(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	mug := a.product(t, "MUG-1", 10, 5)

	if _, err := a.orders.PlaceOrder(ctx, "u-1", AddressInput{}); !entity.IsCode(err, entity.CodeValidation) {
		t.Fatalf("empty cart: want validation got %v", err)
	}
	if _, err := a.carts.AddToCart(ctx, "u-1", mug.ID, 3); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	order, err := a.orders.PlaceOrder(ctx, "u-1", AddressInput{Street: "1 Main St", City: "Lyon", PostalCode: "69001", Country: "fr"})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Status != string(entity.OrderStatusPending) || order.Total.Amount != "30.00" || order.ShippingAddress.Country != "FR" {
		t.Fatalf("order: %+v", order)
	}
	if !a.events.has(entity.EventOrderPlaced) || !a.events.has(entity.EventOrderCreated) || !a.events.has(entity.EventCartCleared) {
		t.Fatalf("events: %v", a.events.types())
	}

	cart, err := a.carts.GetCart(ctx, "u-1")
	if err != nil || len(cart.Items) != 0 {
		t.Fatalf("cart after order: %+v %v", cart, err)
	}
	inv, _ := a.catalog.GetInventory(ctx, mug.ID)
	if inv.Reserved != 3 || inv.Available != 2 {
		t.Fatalf("inventory: %+v", inv)
	}
	if pending, _ := a.store.Events.GetUnprocessed(ctx, 0); len(pending) != 0 {
		t.Fatalf("outbox: want every event processed, %d pending", len(pending))
	}

	if _, err := a.orders.GetOrder(ctx, "someone-else", order.ID); !entity.IsCode(err, entity.CodeNotFound) {
		t.Fatalf("foreign order: want not found got %v", err)
	}
	list, err := a.orders.ListOrders(ctx, "u-1")
	if err != nil || len(list) != 1 || list[0].ID != order.ID {
		t.Fatalf("ListOrders: %v %v", list, err)
	}
}

func TestPlaceOrderUsesDefaultAddress(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	user, err := a.identity.RegisterUser(ctx, RegisterUserInput{Email: "ada@example.com", Name: "Ada"})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := a.identity.AddAddress(ctx, user.ID, AddressInput{Street: "2 Rue", City: "Paris", PostalCode: "75001", Country: "FR"}, false); err != nil {
		t.Fatalf("AddAddress: %v", err)
	}
	p := a.product(t, "PEN-1", 2, 5)
	if _, err := a.carts.AddToCart(ctx, user.ID, p.ID, 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	order, err := a.orders.PlaceOrder(ctx, user.ID, AddressInput{})
	if err != nil || order.ShippingAddress == nil || order.ShippingAddress.City != "Paris" {
		t.Fatalf("PlaceOrder: %+v %v", order, err)
	}
}

func TestCheckoutLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	p := a.product(t, "MUG-1", 4, 5)
	_, _ = a.carts.AddToCart(ctx, "u-1", p.ID, 2)
	order, err := a.orders.PlaceOrder(ctx, "u-1", AddressInput{})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	intent, err := a.payments.CreatePaymentIntent(ctx, "u-1", order.ID)
	if err != nil || intent.Amount.Amount != "8.00" || intent.Status != string(entity.PaymentStatusPending) {
		t.Fatalf("CreatePaymentIntent: %+v %v", intent, err)
	}
	again, err := a.payments.CreatePaymentIntent(ctx, "u-1", order.ID)
	if err != nil || again.ID != intent.ID {
		t.Fatalf("second intent must return the first: %+v %v", again, err)
	}
	got, _ := a.orders.GetOrder(ctx, "u-1", order.ID)
	if got.Status != string(entity.OrderStatusPaymentPending) {
		t.Fatalf("after intent: want=%s got=%s", entity.OrderStatusPaymentPending, got.Status)
	}

	paid, err := a.payments.ProcessPayment(ctx, ProcessPaymentInput{PaymentID: intent.ID, Success: true, TransactionID: "tx-1"})
	if err != nil || paid.Status != string(entity.PaymentStatusSucceeded) || paid.TransactionID != "tx-1" {
		t.Fatalf("ProcessPayment: %+v %v", paid, err)
	}
	if _, err := a.payments.ProcessPayment(ctx, ProcessPaymentInput{PaymentID: intent.ID, Success: true}); err != nil {
		t.Fatalf("redelivered webhook: %v", err)
	}
	got, _ = a.orders.GetOrder(ctx, "u-1", order.ID)
	if got.Status != string(entity.OrderStatusPaid) || got.PaymentID != intent.ID {
		t.Fatalf("after payment: %+v", got)
	}

	if _, err := a.orders.StartProcessing(ctx, order.ID); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if _, err := a.orders.ShipOrder(ctx, order.ID, "TRK-9"); err != nil {
		t.Fatalf("ShipOrder: %v", err)
	}
	delivered, err := a.orders.DeliverOrder(ctx, order.ID)
	if err != nil || delivered.Status != string(entity.OrderStatusDelivered) || delivered.TrackingRef != "TRK-9" {
		t.Fatalf("DeliverOrder: %+v %v", delivered, err)
	}
	inv, _ := a.catalog.GetInventory(ctx, p.ID)
	if inv.Quantity != 3 || inv.Reserved != 0 {
		t.Fatalf("stock after shipping: %+v", inv)
	}
	if _, err := a.orders.CancelOrder(ctx, "u-1", order.ID, ""); !entity.IsCode(err, entity.CodeInvalidStateTransition) {
		t.Fatalf("cancel delivered: want invalid state transition got %v", err)
	}

	refunded, err := a.payments.RefundPayment(ctx, intent.ID, "damaged")
	if err != nil || refunded.Status != string(entity.PaymentStatusRefunded) {
		t.Fatalf("RefundPayment: %+v %v", refunded, err)
	}
}

func TestCancelOrderReleasesStock(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	p := a.product(t, "MUG-1", 4, 5)
	_, _ = a.carts.AddToCart(ctx, "u-1", p.ID, 2)
	order, _ := a.orders.PlaceOrder(ctx, "u-1", AddressInput{})

	cancelled, err := a.orders.CancelOrder(ctx, "u-1", order.ID, "")
	if err != nil || cancelled.Status != string(entity.OrderStatusCancelled) {
		t.Fatalf("CancelOrder: %+v %v", cancelled, err)
	}
	inv, _ := a.catalog.GetInventory(ctx, p.ID)
	if inv.Reserved != 0 || inv.Available != 5 {
		t.Fatalf("stock after cancel: %+v", inv)
	}
	if _, err := a.payments.CreatePaymentIntent(ctx, "u-1", order.ID); !entity.IsCode(err, entity.CodeInvalidStateTransition) {
		t.Fatalf("intent for cancelled order: want invalid state transition got %v", err)
	}
}

func TestFailedPayment(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	p := a.product(t, "MUG-1", 4, 5)
	_, _ = a.carts.AddToCart(ctx, "u-1", p.ID, 1)
	order, _ := a.orders.PlaceOrder(ctx, "u-1", AddressInput{})
	intent, _ := a.payments.CreatePaymentIntent(ctx, "u-1", order.ID)

	failed, err := a.payments.ProcessPayment(ctx, ProcessPaymentInput{PaymentID: intent.ID})
	if err != nil || failed.Status != string(entity.PaymentStatusFailed) || failed.FailureReason != "unknown error" {
		t.Fatalf("ProcessPayment: %+v %v", failed, err)
	}
	if _, err := a.payments.ProcessPayment(ctx, ProcessPaymentInput{PaymentID: intent.ID, Success: true}); !entity.IsCode(err, entity.CodeInvalidStateTransition) {
		t.Fatalf("success after failure: want invalid state transition got %v", err)
	}
	if _, err := a.payments.ProcessPayment(ctx, ProcessPaymentInput{PaymentID: "nope", Success: true}); !entity.IsCode(err, entity.CodeNotFound) {
		t.Fatalf("unknown payment: want not found got %v", err)
	}
}

func TestRegisterUserRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	if _, err := a.identity.RegisterUser(ctx, RegisterUserInput{Email: "ada@example.com", Name: "Ada"}); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	_, err := a.identity.RegisterUser(ctx, RegisterUserInput{Email: "ada@example.com", Name: "Ada"})
	if !entity.IsCode(err, entity.CodeConflict) {
		t.Fatalf("duplicate: want conflict got %v", err)
	}
	if _, err := a.identity.RegisterUser(ctx, RegisterUserInput{Email: "not-an-email", Name: "X"}); !entity.IsCode(err, entity.CodeValidation) {
		t.Fatalf("bad email: want validation got %v", err)
	}
}

func TestListProducts(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	cat, err := a.catalog.CreateCategory(ctx, CreateCategoryInput{Name: "Kitchen", Slug: "kitchen"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := a.catalog.CreateCategory(ctx, CreateCategoryInput{Name: "Kitchen 2", Slug: "kitchen"}); !entity.IsCode(err, entity.CodeConflict) {
		t.Fatalf("duplicate slug: want conflict got %v", err)
	}
	if _, err := a.catalog.CreateProduct(ctx, CreateProductInput{SKU: "MUG-1", Name: "Mug", Slug: "mug", Price: 3, CategoryID: cat.ID}); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if _, err := a.catalog.CreateProduct(ctx, CreateProductInput{SKU: "X-1", Name: "X", Slug: "x", Price: 3, CategoryID: "missing"}); !entity.IsCode(err, entity.CodeNotFound) {
		t.Fatalf("unknown category: want not found got %v", err)
	}
	a.product(t, "PEN-2", 1, 0)

	page, err := a.catalog.ListProducts(ctx, repository.ProductFilter{CategoryID: cat.ID})
	if err != nil || page.Total != 1 || len(page.Items) != 1 || page.Items[0].SKU != "MUG-1" || page.PageSize != 20 {
		t.Fatalf("ListProducts: %+v %v", page, err)
	}
	if _, err := a.catalog.ListProducts(ctx, repository.ProductFilter{Status: "weird"}); !entity.IsCode(err, entity.CodeValidation) {
		t.Fatalf("bad status: want validation got %v", err)
	}

	changed, err := a.catalog.ChangePrice(ctx, page.Items[0].ID, 4.5, "")
	if err != nil || changed.Price.Amount != "4.50" {
		t.Fatalf("ChangePrice: %+v %v", changed, err)
	}
}

type failingCarts struct {
	repository.CartRepository
	err error
}

func (f failingCarts) Save(context.Context, *entity.Cart) error { return f.err }

func TestPlaceOrderLeavesNoOrderWhenCartSaveFails(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	mug := a.product(t, "MUG-1", 10, 5)
	if _, err := a.carts.AddToCart(ctx, "u-1", mug.ID, 2); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	carts := failingCarts{CartRepository: a.store.Carts, err: repository.VersionConflict("test", entity.CartAggregateType, "c-1", 1)}
	orders := NewOrderService(a.store.Orders, carts, a.store.Users, outbox.NewFlusher(a.store.Events, eventbus.NewInProcessBus(logger.Nop()), logger.Nop()), logger.Nop(), WithClock(a.clock.now))
	if _, err := orders.PlaceOrder(ctx, "u-1", AddressInput{Street: "1 Main St", City: "Lyon", PostalCode: "69001", Country: "FR"}); !entity.IsCode(err, entity.CodeConflict) {
		t.Fatalf("PlaceOrder: want conflict got %v", err)
	}

	stored, err := a.store.Orders.FindByUserID(ctx, "u-1")
	if err != nil || len(stored) != 0 {
		t.Fatalf("orders after failed checkout: want none got %d (%v)", len(stored), err)
	}
	cart, err := a.carts.GetCart(ctx, "u-1")
	if err != nil || cart.ItemCount != 2 {
		t.Fatalf("cart after failed checkout: %+v %v", cart, err)
	}
	if a.events.has(entity.EventOrderPlaced) {
		t.Fatalf("OrderPlaced published for a checkout that failed")
	}
}
