package eventbus

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

// invoke runs one handler for one event. Errors and panics are logged and
// reported to the observer; they never reach the caller.
func invoke(ctx context.Context, log *logger.Logger, obs Observer, h Handler, e entity.DomainEvent) {
	name := HandlerName(h)
	start := time.Now()
	err := safeHandle(ctx, h, e)
	took := time.Since(start)
	if err != nil {
		obs.HandlerFailed(e.EventType, name, took)
		log.Error("Event handler failed",
			"event_type", e.EventType,
			"event_id", e.EventID,
			"aggregate_id", e.AggregateID,
			"handler", name,
			"err", err,
		)
		return
	}
	obs.HandlerSucceeded(e.EventType, name, took)
}

func safeHandle(ctx context.Context, h Handler, e entity.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return h.Handle(ctx, e)
}
