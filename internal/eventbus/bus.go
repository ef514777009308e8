// Package eventbus delivers domain events to subscribed handlers, either
// in-process or through a message broker.
package eventbus

import (
	"context"
	"fmt"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
)

// Handler reacts to a domain event. Handlers are told apart by interface
// equality, so they must be comparable; pointer handlers always are.
type Handler interface {
	Handle(ctx context.Context, e entity.DomainEvent) error
}

// Bus is the contract shared by every bus implementation.
type Bus interface {
	Publish(ctx context.Context, e entity.DomainEvent) error
	PublishAll(ctx context.Context, events []entity.DomainEvent) error
	Subscribe(eventType string, h Handler) error
	Unsubscribe(eventType string, h Handler) error
}

// FuncHandler adapts a function to Handler. Keep the returned pointer to
// unsubscribe it later.
type FuncHandler struct {
	name string
	fn   func(ctx context.Context, e entity.DomainEvent) error
}

func Func(name string, fn func(ctx context.Context, e entity.DomainEvent) error) *FuncHandler {
	return &FuncHandler{name: name, fn: fn}
}

func (h *FuncHandler) Handle(ctx context.Context, e entity.DomainEvent) error {
	return h.fn(ctx, e)
}

func (h *FuncHandler) String() string { return h.name }

// HandlerName is the name used for h in logs and metrics.
func HandlerName(h Handler) string {
	if s, ok := h.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", h)
}
