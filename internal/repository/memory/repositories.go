package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

// NewStore returns a store where every repository lives in memory.
func NewStore() repository.Store {
	return repository.Store{
		Products:   NewProductRepository(),
		Categories: NewCategoryRepository(),
		Inventory:  NewInventoryRepository(),
		Carts:      NewCartRepository(),
		Orders:     NewOrderRepository(),
		Payments:   NewPaymentRepository(),
		Users:      NewUserRepository(),
		Events:     NewEventStore(),
	}
}

type productRepository struct{ t *table[entity.ProductState] }

func NewProductRepository() repository.ProductRepository {
	return &productRepository{t: newTable[entity.ProductState]()}
}

func (r *productRepository) Save(_ context.Context, p *entity.Product) error {
	return r.t.save("memory.ProductRepository.Save", entity.ProductAggregateType, p.ID, p.PersistedVersion(), p.GetVersion(), p.State())
}

func (r *productRepository) FindByID(_ context.Context, id string) (*entity.Product, error) {
	if row, ok := r.t.get(id); ok {
		return entity.RestoreProduct(id, row.version, row.state), nil
	}
	return nil, nil
}

func (r *productRepository) FindBySKU(_ context.Context, sku entity.SKU) (*entity.Product, error) {
	id, row, ok := r.t.find(func(s entity.ProductState) bool { return s.SKU.Equals(sku) })
	if !ok {
		return nil, nil
	}
	return entity.RestoreProduct(id, row.version, row.state), nil
}

func (r *productRepository) FindMany(_ context.Context, filter repository.ProductFilter) ([]*entity.Product, error) {
	filter = filter.Normalize()
	rows := r.t.filter(productMatcher(filter))
	products := make([]*entity.Product, 0, len(rows))
	for id, row := range rows {
		products = append(products, entity.RestoreProduct(id, row.version, row.state))
	}
	// Newest first, id as tie breaker.
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i].State().CreatedAt, products[j].State().CreatedAt
		if a.Equal(b) {
			return products[i].ID < products[j].ID
		}
		return a.After(b)
	})
	start := filter.Offset()
	if start >= len(products) {
		return []*entity.Product{}, nil
	}
	end := start + filter.PageSize
	if end > len(products) {
		end = len(products)
	}
	return products[start:end], nil
}

func (r *productRepository) Count(_ context.Context, filter repository.ProductFilter) (int, error) {
	return len(r.t.filter(productMatcher(filter))), nil
}

func productMatcher(f repository.ProductFilter) func(entity.ProductState) bool {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	return func(s entity.ProductState) bool {
		if f.CategoryID != "" && s.CategoryID != f.CategoryID {
			return false
		}
		if f.Status != "" && s.Status != f.Status {
			return false
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Name), search) && !strings.Contains(strings.ToLower(s.Description), search) {
			return false
		}
		return true
	}
}

type categoryRepository struct{ t *table[entity.CategoryState] }

func NewCategoryRepository() repository.CategoryRepository {
	return &categoryRepository{t: newTable[entity.CategoryState]()}
}

func (r *categoryRepository) Save(_ context.Context, c *entity.Category) error {
	return r.t.save("memory.CategoryRepository.Save", entity.CategoryAggregateType, c.ID, c.PersistedVersion(), c.GetVersion(), c.State())
}

func (r *categoryRepository) FindByID(_ context.Context, id string) (*entity.Category, error) {
	if row, ok := r.t.get(id); ok {
		return entity.RestoreCategory(id, row.version, row.state), nil
	}
	return nil, nil
}

func (r *categoryRepository) FindBySlug(_ context.Context, slug string) (*entity.Category, error) {
	id, row, ok := r.t.find(func(s entity.CategoryState) bool { return s.Slug == slug })
	if !ok {
		return nil, nil
	}
	return entity.RestoreCategory(id, row.version, row.state), nil
}

type inventoryRepository struct{ t *table[entity.InventoryState] }

func NewInventoryRepository() repository.InventoryRepository {
	return &inventoryRepository{t: newTable[entity.InventoryState]()}
}

func (r *inventoryRepository) Save(_ context.Context, inv *entity.Inventory) error {
	return r.t.save("memory.InventoryRepository.Save", entity.InventoryAggregateType, inv.ID, inv.PersistedVersion(), inv.GetVersion(), inv.State())
}

func (r *inventoryRepository) FindByProductID(_ context.Context, productID string) (*entity.Inventory, error) {
	if row, ok := r.t.get(productID); ok {
		return entity.RestoreInventory(productID, row.version, row.state), nil
	}
	return nil, nil
}

type cartRepository struct{ t *table[entity.CartState] }

func NewCartRepository() repository.CartRepository {
	return &cartRepository{t: newTable[entity.CartState]()}
}

func (r *cartRepository) Save(_ context.Context, c *entity.Cart) error {
	return r.t.save("memory.CartRepository.Save", entity.CartAggregateType, c.ID, c.PersistedVersion(), c.GetVersion(), c.State())
}

func (r *cartRepository) FindByID(_ context.Context, id string) (*entity.Cart, error) {
	if row, ok := r.t.get(id); ok {
		return entity.RestoreCart(id, row.version, row.state), nil
	}
	return nil, nil
}

func (r *cartRepository) FindByUserID(_ context.Context, userID string) (*entity.Cart, error) {
	id, row, ok := r.t.find(func(s entity.CartState) bool { return s.UserID == userID })
	if !ok {
		return nil, nil
	}
	return entity.RestoreCart(id, row.version, row.state), nil
}

type orderRepository struct{ t *table[entity.OrderState] }

func NewOrderRepository() repository.OrderRepository {
	return &orderRepository{t: newTable[entity.OrderState]()}
}

func (r *orderRepository) Save(_ context.Context, o *entity.Order) error {
	return r.t.save("memory.OrderRepository.Save", entity.OrderAggregateType, o.ID, o.PersistedVersion(), o.GetVersion(), o.State())
}

func (r *orderRepository) FindByID(_ context.Context, id string) (*entity.Order, error) {
	if row, ok := r.t.get(id); ok {
		return entity.RestoreOrder(id, row.version, row.state), nil
	}
	return nil, nil
}

// FindByUserID returns the user's orders, newest first.
func (r *orderRepository) FindByUserID(_ context.Context, userID string) ([]*entity.Order, error) {
	rows := r.t.filter(func(s entity.OrderState) bool { return s.UserID == userID })
	orders := make([]*entity.Order, 0, len(rows))
	for id, row := range rows {
		orders = append(orders, entity.RestoreOrder(id, row.version, row.state))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].State().CreatedAt.After(orders[j].State().CreatedAt) })
	return orders, nil
}

type paymentRepository struct{ t *table[entity.PaymentState] }

func NewPaymentRepository() repository.PaymentRepository {
	return &paymentRepository{t: newTable[entity.PaymentState]()}
}

func (r *paymentRepository) Save(_ context.Context, p *entity.Payment) error {
	return r.t.save("memory.PaymentRepository.Save", entity.PaymentAggregateType, p.ID, p.PersistedVersion(), p.GetVersion(), p.State())
}

func (r *paymentRepository) FindByID(_ context.Context, id string) (*entity.Payment, error) {
	if row, ok := r.t.get(id); ok {
		return entity.RestorePayment(id, row.version, row.state), nil
	}
	return nil, nil
}

func (r *paymentRepository) FindByOrderID(_ context.Context, orderID string) (*entity.Payment, error) {
	id, row, ok := r.t.find(func(s entity.PaymentState) bool { return s.OrderID == orderID })
	if !ok {
		return nil, nil
	}
	return entity.RestorePayment(id, row.version, row.state), nil
}

type userRepository struct{ t *table[entity.UserState] }

func NewUserRepository() repository.UserRepository {
	return &userRepository{t: newTable[entity.UserState]()}
}

func (r *userRepository) Save(_ context.Context, u *entity.User) error {
	if u.PersistedVersion() == 0 {
		if _, _, taken := r.t.find(func(s entity.UserState) bool { return s.Email.Equals(u.Email()) }); taken {
			return entity.Errorf(entity.CodeConflict, "memory.UserRepository.Save", "email %s is already registered", u.Email())
		}
	}
	return r.t.save("memory.UserRepository.Save", entity.UserAggregateType, u.ID, u.PersistedVersion(), u.GetVersion(), u.State())
}

func (r *userRepository) FindByID(_ context.Context, id string) (*entity.User, error) {
	if row, ok := r.t.get(id); ok {
		return entity.RestoreUser(id, row.version, row.state), nil
	}
	return nil, nil
}

func (r *userRepository) FindByEmail(_ context.Context, email entity.Email) (*entity.User, error) {
	id, row, ok := r.t.find(func(s entity.UserState) bool { return s.Email.Equals(email) })
	if !ok {
		return nil, nil
	}
	return entity.RestoreUser(id, row.version, row.state), nil
}
