package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

// Set TEST_POSTGRES_DSN to run these against a disposable database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := InitDB(ctx, logger.ForTest(t), dsn)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if _, err := db.ExecContext(ctx, "TRUNCATE domain_events, processed_events"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEventStoreOutbox(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewEventStore(db)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mk := func(offset time.Duration, seq int) entity.DomainEvent {
		e, err := entity.NewDomainEvent(entity.InventoryAggregateType, "p-1", seq, entity.InventoryRestocked{ProductID: "p-1", Quantity: seq}, base.Add(offset))
		if err != nil {
			t.Fatalf("NewDomainEvent: %v", err)
		}
		return e
	}
	second, first := mk(time.Second, 2), mk(0, 1)
	if err := store.SaveAll(ctx, []entity.DomainEvent{second, first}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("duplicate Save must be ignored: %v", err)
	}

	pending, err := store.GetUnprocessed(ctx, 0)
	if err != nil {
		t.Fatalf("GetUnprocessed: %v", err)
	}
	if len(pending) != 2 || pending[0].EventID != first.EventID || pending[1].EventID != second.EventID {
		t.Fatalf("pending order: %+v", pending)
	}
	if got, err := entity.PayloadAs[entity.InventoryRestocked](pending[1]); err != nil || got.Quantity != 2 {
		t.Fatalf("payload: %+v %v", got, err)
	}

	if err := store.MarkProcessed(ctx, first.EventID); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	pending, _ = store.GetUnprocessed(ctx, 1)
	if len(pending) != 1 || pending[0].EventID != second.EventID {
		t.Fatalf("after mark: %+v", pending)
	}
}

func TestInboxClaimsOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inbox := NewInbox(db)
	key := "reserve-stock:" + uuid.NewString()

	if ok, err := inbox.Claim(ctx, key); err != nil || !ok {
		t.Fatalf("first claim: want=true got=%v (%v)", ok, err)
	}
	if ok, err := inbox.Claim(ctx, key); err != nil || ok {
		t.Fatalf("second claim: want=false got=%v (%v)", ok, err)
	}
	if err := inbox.Forget(ctx, key); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if ok, _ := inbox.Claim(ctx, key); !ok {
		t.Fatalf("claim after forget: want=true")
	}
}
