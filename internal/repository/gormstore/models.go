package gormstore

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
)

type productRow struct {
	ID          string `gorm:"primaryKey"`
	Version     int
	SKU         string `gorm:"uniqueIndex"`
	Name        string
	Slug        string `gorm:"index"`
	Description string
	PriceMinor  int64
	Currency    string
	CategoryID  string    `gorm:"index"`
	Status      string    `gorm:"index"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func (productRow) TableName() string { return "products" }

func productToRow(p *entity.Product) productRow {
	s := p.State()
	return productRow{
		ID:          p.ID,
		Version:     p.GetVersion(),
		SKU:         s.SKU.String(),
		Name:        s.Name,
		Slug:        s.Slug,
		Description: s.Description,
		PriceMinor:  s.Price.Minor(),
		Currency:    string(s.Price.Currency()),
		CategoryID:  s.CategoryID,
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r productRow) toEntity() (*entity.Product, error) {
	sku, err := entity.NewSKU(r.SKU)
	if err != nil {
		return nil, err
	}
	price, err := entity.NewMoney(r.PriceMinor, r.Currency)
	if err != nil {
		return nil, err
	}
	return entity.RestoreProduct(r.ID, r.Version, entity.ProductState{
		SKU:         sku,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Price:       price,
		CategoryID:  r.CategoryID,
		Status:      entity.ProductStatus(r.Status),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}), nil
}

type categoryRow struct {
	ID          string `gorm:"primaryKey"`
	Version     int
	Name        string
	Slug        string `gorm:"uniqueIndex"`
	Description string
	ParentID    string
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func (categoryRow) TableName() string { return "categories" }

func categoryToRow(c *entity.Category) categoryRow {
	s := c.State()
	return categoryRow{
		ID:          c.ID,
		Version:     c.GetVersion(),
		Name:        s.Name,
		Slug:        s.Slug,
		Description: s.Description,
		ParentID:    s.ParentID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r categoryRow) toEntity() *entity.Category {
	return entity.RestoreCategory(r.ID, r.Version, entity.CategoryState{
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		ParentID:    r.ParentID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	})
}

type inventoryRow struct {
	ID        string `gorm:"primaryKey"` // product id
	Version   int
	Quantity  int
	Reserved  int
	Holds     datatypes.JSON
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (inventoryRow) TableName() string { return "inventory" }

func inventoryToRow(inv *entity.Inventory) (inventoryRow, error) {
	s := inv.State()
	holds, err := json.Marshal(s.Holds)
	if err != nil {
		return inventoryRow{}, fmt.Errorf("failed to marshal holds: %w", err)
	}
	return inventoryRow{
		ID:        inv.ID,
		Version:   inv.GetVersion(),
		Quantity:  s.Quantity,
		Reserved:  s.Reserved,
		Holds:     datatypes.JSON(holds),
		UpdatedAt: s.UpdatedAt,
	}, nil
}

func (r inventoryRow) toEntity() (*entity.Inventory, error) {
	holds := map[string]int{}
	if len(r.Holds) > 0 {
		if err := json.Unmarshal(r.Holds, &holds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal holds: %w", err)
		}
	}
	return entity.RestoreInventory(r.ID, r.Version, entity.InventoryState{
		Quantity:  r.Quantity,
		Reserved:  r.Reserved,
		Holds:     holds,
		UpdatedAt: r.UpdatedAt.UTC(),
	}), nil
}

type cartRow struct {
	ID        string `gorm:"primaryKey"`
	Version   int
	UserID    string `gorm:"uniqueIndex"`
	Items     datatypes.JSON
	ExpiresAt time.Time
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (cartRow) TableName() string { return "carts" }

func cartToRow(c *entity.Cart) (cartRow, error) {
	s := c.State()
	items, err := json.Marshal(s.Items)
	if err != nil {
		return cartRow{}, fmt.Errorf("failed to marshal cart items: %w", err)
	}
	return cartRow{
		ID:        c.ID,
		Version:   c.GetVersion(),
		UserID:    s.UserID,
		Items:     datatypes.JSON(items),
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}, nil
}

func (r cartRow) toEntity() (*entity.Cart, error) {
	var items []entity.CartItem
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cart items: %w", err)
		}
	}
	return entity.RestoreCart(r.ID, r.Version, entity.CartState{
		UserID:    r.UserID,
		Items:     items,
		ExpiresAt: r.ExpiresAt.UTC(),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}), nil
}

type orderRow struct {
	ID              string `gorm:"primaryKey"`
	Version         int
	UserID          string `gorm:"index"`
	Items           datatypes.JSON
	TotalMinor      int64
	Currency        string
	Status          string `gorm:"index"`
	ShippingAddress datatypes.JSON
	PaymentID       string
	TrackingRef     string
	CancelReason    string
	CreatedAt       time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false"`
}

func (orderRow) TableName() string { return "orders" }

func orderToRow(o *entity.Order) (orderRow, error) {
	s := o.State()
	items, err := json.Marshal(s.Items)
	if err != nil {
		return orderRow{}, fmt.Errorf("failed to marshal order items: %w", err)
	}
	var address datatypes.JSON
	if s.ShippingAddress != nil {
		raw, err := json.Marshal(s.ShippingAddress)
		if err != nil {
			return orderRow{}, fmt.Errorf("failed to marshal shipping address: %w", err)
		}
		address = datatypes.JSON(raw)
	}
	return orderRow{
		ID:              o.ID,
		Version:         o.GetVersion(),
		UserID:          s.UserID,
		Items:           datatypes.JSON(items),
		TotalMinor:      s.Total.Minor(),
		Currency:        string(s.Total.Currency()),
		Status:          string(s.Status),
		ShippingAddress: address,
		PaymentID:       s.PaymentID,
		TrackingRef:     s.TrackingRef,
		CancelReason:    s.CancelReason,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}, nil
}

func (r orderRow) toEntity() (*entity.Order, error) {
	var items []entity.OrderItem
	if err := json.Unmarshal(r.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	total, err := entity.NewMoney(r.TotalMinor, r.Currency)
	if err != nil {
		return nil, err
	}
	var address *entity.Address
	if len(r.ShippingAddress) > 0 && string(r.ShippingAddress) != "null" {
		address = &entity.Address{}
		if err := json.Unmarshal(r.ShippingAddress, address); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
		}
	}
	return entity.RestoreOrder(r.ID, r.Version, entity.OrderState{
		UserID:          r.UserID,
		Items:           items,
		Total:           total,
		Status:          entity.OrderStatus(r.Status),
		ShippingAddress: address,
		PaymentID:       r.PaymentID,
		TrackingRef:     r.TrackingRef,
		CancelReason:    r.CancelReason,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}), nil
}

type paymentRow struct {
	ID            string `gorm:"primaryKey"`
	Version       int
	OrderID       string `gorm:"uniqueIndex"`
	AmountMinor   int64
	Currency      string
	Provider      string
	Status        string
	TransactionID string
	FailureReason string
	CreatedAt     time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime:false"`
}

func (paymentRow) TableName() string { return "payments" }

func paymentToRow(p *entity.Payment) paymentRow {
	s := p.State()
	return paymentRow{
		ID:            p.ID,
		Version:       p.GetVersion(),
		OrderID:       s.OrderID,
		AmountMinor:   s.Amount.Minor(),
		Currency:      string(s.Amount.Currency()),
		Provider:      s.Provider,
		Status:        string(s.Status),
		TransactionID: s.TransactionID,
		FailureReason: s.FailureReason,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (r paymentRow) toEntity() (*entity.Payment, error) {
	amount, err := entity.NewMoney(r.AmountMinor, r.Currency)
	if err != nil {
		return nil, err
	}
	return entity.RestorePayment(r.ID, r.Version, entity.PaymentState{
		OrderID:       r.OrderID,
		Amount:        amount,
		Provider:      r.Provider,
		Status:        entity.PaymentStatus(r.Status),
		TransactionID: r.TransactionID,
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}), nil
}

type userRow struct {
	ID             string `gorm:"primaryKey"`
	Version        int
	Email          string `gorm:"uniqueIndex"`
	Name           string
	Role           string
	Addresses      datatypes.JSON
	DefaultAddress int
	CreatedAt      time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false"`
}

func (userRow) TableName() string { return "users" }

func userToRow(u *entity.User) (userRow, error) {
	s := u.State()
	addresses, err := json.Marshal(s.Addresses)
	if err != nil {
		return userRow{}, fmt.Errorf("failed to marshal addresses: %w", err)
	}
	return userRow{
		ID:             u.ID,
		Version:        u.GetVersion(),
		Email:          s.Email.String(),
		Name:           s.Name,
		Role:           string(s.Role),
		Addresses:      datatypes.JSON(addresses),
		DefaultAddress: s.DefaultAddress,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}, nil
}

func (r userRow) toEntity() (*entity.User, error) {
	email, err := entity.NewEmail(r.Email)
	if err != nil {
		return nil, err
	}
	var addresses []entity.Address
	if len(r.Addresses) > 0 {
		if err := json.Unmarshal(r.Addresses, &addresses); err != nil {
			return nil, fmt.Errorf("failed to unmarshal addresses: %w", err)
		}
	}
	return entity.RestoreUser(r.ID, r.Version, entity.UserState{
		Email:          email,
		Name:           r.Name,
		Role:           entity.UserRole(r.Role),
		Addresses:      addresses,
		DefaultAddress: r.DefaultAddress,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}), nil
}
