// Package repository declares the persistence ports of every aggregate.
// Lookups return (nil, nil) when nothing matches. Save is optimistic: it
// inserts aggregates whose PersistedVersion is 0 and otherwise updates the
// stored row only if it still holds PersistedVersion, failing with
// entity.CodeConflict when another writer got there first.
package repository

import (
	"context"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
)

// ProductFilter narrows product listings. Page is 1-based.
type ProductFilter struct {
	CategoryID string
	Search     string
	Status     entity.ProductStatus
	Page       int
	PageSize   int
}

// Normalize applies the default paging.
func (f ProductFilter) Normalize() ProductFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	return f
}

func (f ProductFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	Save(ctx context.Context, p *entity.Product) error
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	FindBySKU(ctx context.Context, sku entity.SKU) (*entity.Product, error)
	FindMany(ctx context.Context, filter ProductFilter) ([]*entity.Product, error)
	Count(ctx context.Context, filter ProductFilter) (int, error)
}

type CategoryRepository interface {
	Save(ctx context.Context, c *entity.Category) error
	FindByID(ctx context.Context, id string) (*entity.Category, error)
	FindBySlug(ctx context.Context, slug string) (*entity.Category, error)
}

type InventoryRepository interface {
	Save(ctx context.Context, inv *entity.Inventory) error
	FindByProductID(ctx context.Context, productID string) (*entity.Inventory, error)
}

type CartRepository interface {
	Save(ctx context.Context, c *entity.Cart) error
	FindByID(ctx context.Context, id string) (*entity.Cart, error)
	FindByUserID(ctx context.Context, userID string) (*entity.Cart, error)
}

// OrderRepository handles persistence for Orders.
type OrderRepository interface {
	Save(ctx context.Context, o *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	FindByUserID(ctx context.Context, userID string) ([]*entity.Order, error)
}

type PaymentRepository interface {
	Save(ctx context.Context, p *entity.Payment) error
	FindByID(ctx context.Context, id string) (*entity.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
}

type UserRepository interface {
	Save(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email entity.Email) (*entity.User, error)
}

// EventStore is the outbox: an append-only log of every flushed event.
type EventStore interface {
	Save(ctx context.Context, e entity.DomainEvent) error
	SaveAll(ctx context.Context, events []entity.DomainEvent) error
	// GetUnprocessed returns up to limit events not yet marked processed,
	// oldest first. limit <= 0 means no limit.
	GetUnprocessed(ctx context.Context, limit int) ([]entity.DomainEvent, error)
	MarkProcessed(ctx context.Context, eventIDs ...string) error
}

// Store bundles every repository of one backend.
type Store struct {
	Products   ProductRepository
	Categories CategoryRepository
	Inventory  InventoryRepository
	Carts      CartRepository
	Orders     OrderRepository
	Payments   PaymentRepository
	Users      UserRepository
	Events     EventStore
}

// VersionConflict is the error repositories return when an optimistic write loses.
func VersionConflict(op, aggregateType, id string, expected int) error {
	return entity.Errorf(entity.CodeConflict, op, "%s %s was modified concurrently (expected version %d)", aggregateType, id, expected)
}
