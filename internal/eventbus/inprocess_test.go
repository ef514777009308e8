package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

func testEvent(t *testing.T, aggregateID string, payload entity.Event) entity.DomainEvent {
	t.Helper()
	e, err := entity.NewDomainEvent(entity.OrderAggregateType, aggregateID, 1, payload, time.Now())
	if err != nil {
		t.Fatalf("NewDomainEvent: %v", err)
	}
	return e
}

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) handler(name string, fail error) *FuncHandler {
	return Func(name, func(_ context.Context, e entity.DomainEvent) error {
		r.mu.Lock()
		r.seen = append(r.seen, name+":"+e.AggregateID)
		r.mu.Unlock()
		return fail
	})
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestInProcessPublishWithoutHandlersIsNoop(t *testing.T) {
	bus := NewInProcessBus(logger.ForTest(t))
	if err := bus.Publish(context.Background(), testEvent(t, "o-1", entity.OrderPaid{OrderID: "o-1"})); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := bus.PublishAll(context.Background(), nil); err != nil {
		t.Fatalf("PublishAll(nil): %v", err)
	}
}

func TestInProcessHandlerFailureIsIsolated(t *testing.T) {
	bus := NewInProcessBus(logger.ForTest(t))
	rec := &recorder{}
	_ = bus.Subscribe(entity.EventOrderPaid, rec.handler("h1", errors.New("boom")))
	_ = bus.Subscribe(entity.EventOrderPaid, Func("panicky", func(context.Context, entity.DomainEvent) error {
		panic("kaboom")
	}))
	_ = bus.Subscribe(entity.EventOrderPaid, rec.handler("h2", nil))

	err := bus.Publish(context.Background(), testEvent(t, "o-1", entity.OrderPaid{OrderID: "o-1"}))
	if err != nil {
		t.Fatalf("Publish must not surface handler errors, got %v", err)
	}
	got := rec.calls()
	if len(got) != 2 {
		t.Fatalf("both handlers must run before Publish returns, got %v", got)
	}
}

func TestInProcessPublishAllKeepsOrder(t *testing.T) {
	bus := NewInProcessBus(logger.ForTest(t))
	rec := &recorder{}
	_ = bus.Subscribe(entity.EventOrderPaid, rec.handler("paid", errors.New("fails every time")))
	_ = bus.Subscribe(entity.EventOrderDelivered, rec.handler("delivered", nil))

	events := []entity.DomainEvent{
		testEvent(t, "1", entity.OrderPaid{OrderID: "1"}),
		testEvent(t, "2", entity.OrderDelivered{OrderID: "2"}),
		testEvent(t, "3", entity.OrderPaid{OrderID: "3"}),
		testEvent(t, "4", entity.OrderDelivered{OrderID: "4"}),
	}
	if err := bus.PublishAll(context.Background(), events); err != nil {
		t.Fatalf("PublishAll: %v", err)
	}
	want := []string{"paid:1", "delivered:2", "paid:3", "delivered:4"}
	got := rec.calls()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("order: want=%v got=%v", want, got)
	}
}

func TestInProcessUnsubscribe(t *testing.T) {
	bus := NewInProcessBus(logger.ForTest(t))
	rec := &recorder{}
	h := rec.handler("h", nil)
	_ = bus.Subscribe(entity.EventOrderPaid, h)
	_ = bus.Subscribe(entity.EventOrderPaid, h)
	if bus.HandlerCount(entity.EventOrderPaid) != 1 {
		t.Fatalf("duplicate subscribe: want=1 got=%d", bus.HandlerCount(entity.EventOrderPaid))
	}
	_ = bus.Unsubscribe(entity.EventOrderPaid, h)
	_ = bus.Unsubscribe(entity.EventOrderPaid, h)
	_ = bus.Publish(context.Background(), testEvent(t, "o-1", entity.OrderPaid{OrderID: "o-1"}))
	if len(rec.calls()) != 0 {
		t.Fatalf("unsubscribed handler was called: %v", rec.calls())
	}
	if err := bus.Subscribe("", h); !entity.IsCode(err, entity.CodeInvalidArgument) {
		t.Fatalf("empty event type: want invalid_argument got %v", err)
	}
}

func TestInProcessConcurrentSubscribeAndPublish(t *testing.T) {
	bus := NewInProcessBus(logger.Nop())
	e := testEvent(t, "o-1", entity.OrderPaid{OrderID: "o-1"})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h := Func(fmt.Sprintf("h-%d-%d", i, j), func(context.Context, entity.DomainEvent) error { return nil })
				_ = bus.Subscribe(entity.EventOrderPaid, h)
				_ = bus.Unsubscribe(entity.EventOrderPaid, h)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = bus.Publish(context.Background(), e)
			}
		}()
	}
	wg.Wait()
	if n := bus.HandlerCount(entity.EventOrderPaid); n != 0 {
		t.Fatalf("handlers left: want=0 got=%d", n)
	}
}
