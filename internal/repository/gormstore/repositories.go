package gormstore

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

// NewStore wires every aggregate repository onto db. The outbox lives
// elsewhere and is passed in.
func NewStore(db *gorm.DB, events repository.EventStore) repository.Store {
	return repository.Store{
		Products:   &productRepository{db: db},
		Categories: &categoryRepository{db: db},
		Inventory:  &inventoryRepository{db: db},
		Carts:      &cartRepository{db: db},
		Orders:     &orderRepository{db: db},
		Payments:   &paymentRepository{db: db},
		Users:      &userRepository{db: db},
		Events:     events,
	}
}

type productRepository struct{ db *gorm.DB }

func (r *productRepository) Save(ctx context.Context, p *entity.Product) error {
	row := productToRow(p)
	return save(ctx, r.db, "gormstore.ProductRepository.Save", entity.ProductAggregateType, p.ID, p.PersistedVersion(), &row)
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.findOne(ctx, "gormstore.ProductRepository.FindByID", "id = ?", id)
}

func (r *productRepository) FindBySKU(ctx context.Context, sku entity.SKU) (*entity.Product, error) {
	return r.findOne(ctx, "gormstore.ProductRepository.FindBySKU", "sku = ?", sku.String())
}

func (r *productRepository) findOne(ctx context.Context, op, query string, args ...any) (*entity.Product, error) {
	var row productRow
	ok, err := first(ctx, r.db, op, &row, query, args...)
	if err != nil || !ok {
		return nil, err
	}
	return row.toEntity()
}

func (r *productRepository) FindMany(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error) {
	filter = filter.Normalize()
	var rows []productRow
	err := r.filtered(ctx, filter).
		Order("created_at DESC").Order("id ASC").
		Offset(filter.Offset()).Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, MapError("gormstore.ProductRepository.FindMany", err)
	}
	products := make([]*entity.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *productRepository) Count(ctx context.Context, filter repository.ProductFilter) (int, error) {
	var n int64
	if err := r.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, MapError("gormstore.ProductRepository.Count", err)
	}
	return int(n), nil
}

func (r *productRepository) filtered(ctx context.Context, f repository.ProductFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&productRow{})
	if f.CategoryID != "" {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + search + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	return q
}

type categoryRepository struct{ db *gorm.DB }

func (r *categoryRepository) Save(ctx context.Context, c *entity.Category) error {
	row := categoryToRow(c)
	return save(ctx, r.db, "gormstore.CategoryRepository.Save", entity.CategoryAggregateType, c.ID, c.PersistedVersion(), &row)
}

func (r *categoryRepository) FindByID(ctx context.Context, id string) (*entity.Category, error) {
	return r.findOne(ctx, "gormstore.CategoryRepository.FindByID", "id = ?", id)
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	return r.findOne(ctx, "gormstore.CategoryRepository.FindBySlug", "slug = ?", slug)
}

func (r *categoryRepository) findOne(ctx context.Context, op, query string, args ...any) (*entity.Category, error) {
	var row categoryRow
	ok, err := first(ctx, r.db, op, &row, query, args...)
	if err != nil || !ok {
		return nil, err
	}
	return row.toEntity(), nil
}

type inventoryRepository struct{ db *gorm.DB }

func (r *inventoryRepository) Save(ctx context.Context, inv *entity.Inventory) error {
	const op = "gormstore.InventoryRepository.Save"
	row, err := inventoryToRow(inv)
	if err != nil {
		return entity.Wrap(entity.CodeInternal, op, err)
	}
	return save(ctx, r.db, op, entity.InventoryAggregateType, inv.ID, inv.PersistedVersion(), &row)
}

func (r *inventoryRepository) FindByProductID(ctx context.Context, productID string) (*entity.Inventory, error) {
	var row inventoryRow
	ok, err := first(ctx, r.db, "gormstore.InventoryRepository.FindByProductID", &row, "id = ?", productID)
	if err != nil || !ok {
		return nil, err
	}
	return row.toEntity()
}

type cartRepository struct{ db *gorm.DB }

func (r *cartRepository) Save(ctx context.Context, c *entity.Cart) error {
	const op = "gormstore.CartRepository.Save"
	row, err := cartToRow(c)
	if err != nil {
		return entity.Wrap(entity.CodeInternal, op, err)
	}
	return save(ctx, r.db, op, entity.CartAggregateType, c.ID, c.PersistedVersion(), &row)
}

func (r *cartRepository) FindByID(ctx context.Context, id string) (*entity.Cart, error) {
	return r.findOne(ctx, "gormstore.CartRepository.FindByID", "id = ?", id)
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID string) (*entity.Cart, error) {
	return r.findOne(ctx, "gormstore.CartRepository.FindByUserID", "user_id = ?", userID)
}

func (r *cartRepository) findOne(ctx context.Context, op, query string, args ...any) (*entity.Cart, error) {
	var row cartRow
	ok, err := first(ctx, r.db, op, &row, query, args...)
	if err != nil || !ok {
		return nil, err
	}
	return row.toEntity()
}

type orderRepository struct{ db *gorm.DB }

func (r *orderRepository) Save(ctx context.Context, o *entity.Order) error {
	const op = "gormstore.OrderRepository.Save"
	row, err := orderToRow(o)
	if err != nil {
		return entity.Wrap(entity.CodeInternal, op, err)
	}
	return save(ctx, r.db, op, entity.OrderAggregateType, o.ID, o.PersistedVersion(), &row)
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var row orderRow
	ok, err := first(ctx, r.db, "gormstore.OrderRepository.FindByID", &row, "id = ?", id)
	if err != nil || !ok {
		return nil, err
	}
	return row.toEntity()
}

// FindByUserID returns the user's orders, newest first.
func (r *orderRepository) FindByUserID(ctx context.Context, userID string) ([]*entity.Order, error) {
	var rows []orderRow
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, MapError("gormstore.OrderRepository.FindByUserID", err)
	}
	orders := make([]*entity.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

type paymentRepository struct{ db *gorm.DB }

func (r *paymentRepository) Save(ctx context.Context, p *entity.Payment) error {
	row := paymentToRow(p)
	return save(ctx, r.db, "gormstore.PaymentRepository.Save", entity.PaymentAggregateType, p.ID, p.PersistedVersion(), &row)
}

func (r *paymentRepository) FindByID(ctx context.Context, id string) (*entity.Payment, error) {
	return r.findOne(ctx, "gormstore.PaymentRepository.FindByID", "id = ?", id)
}

func (r *paymentRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	return r.findOne(ctx, "gormstore.PaymentRepository.FindByOrderID", "order_id = ?", orderID)
}

func (r *paymentRepository) findOne(ctx context.Context, op, query string, args ...any) (*entity.Payment, error) {
	var row paymentRow
	ok, err := first(ctx, r.db, op, &row, query, args...)
	if err != nil || !ok {
		return nil, err
	}
	return row.toEntity()
}

type userRepository struct{ db *gorm.DB }

// Save relies on the unique email index to reject a second registration.
func (r *userRepository) Save(ctx context.Context, u *entity.User) error {
	const op = "gormstore.UserRepository.Save"
	row, err := userToRow(u)
	if err != nil {
		return entity.Wrap(entity.CodeInternal, op, err)
	}
	return save(ctx, r.db, op, entity.UserAggregateType, u.ID, u.PersistedVersion(), &row)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, "gormstore.UserRepository.FindByID", "id = ?", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email entity.Email) (*entity.User, error) {
	return r.findOne(ctx, "gormstore.UserRepository.FindByEmail", "email = ?", email.String())
}

func (r *userRepository) findOne(ctx context.Context, op, query string, args ...any) (*entity.User, error) {
	var row userRow
	ok, err := first(ctx, r.db, op, &row, query, args...)
	if err != nil || !ok {
		return nil, err
	}
	return row.toEntity()
}
