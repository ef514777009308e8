package service

import (
	"time"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
)

// MoneyDTO is a decimal amount such as "19.99" with its currency.
type MoneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func toMoneyDTO(m entity.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Decimal(), Currency: string(m.Currency())}
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type ProductDTO struct {
	ID          string   `json:"id"`
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Price       MoneyDTO `json:"price"`
	CategoryID  string   `json:"categoryId,omitempty"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

func toProductDTO(p *entity.Product) *ProductDTO {
	s := p.State()
	return &ProductDTO{
		ID:          p.ID,
		SKU:         s.SKU.String(),
		Name:        s.Name,
		Slug:        s.Slug,
		Description: s.Description,
		Price:       toMoneyDTO(s.Price),
		CategoryID:  s.CategoryID,
		Status:      string(s.Status),
		CreatedAt:   isoTime(s.CreatedAt),
		UpdatedAt:   isoTime(s.UpdatedAt),
	}
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Items    []*ProductDTO `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

type CategoryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ParentID    string `json:"parentId,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

func toCategoryDTO(c *entity.Category) *CategoryDTO {
	s := c.State()
	return &CategoryDTO{
		ID:          c.ID,
		Name:        s.Name,
		Slug:        s.Slug,
		Description: s.Description,
		ParentID:    s.ParentID,
		CreatedAt:   isoTime(s.CreatedAt),
	}
}

type InventoryDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
	UpdatedAt string `json:"updatedAt"`
}

func toInventoryDTO(inv *entity.Inventory) *InventoryDTO {
	return &InventoryDTO{
		ProductID: inv.ProductID(),
		Quantity:  inv.Quantity(),
		Reserved:  inv.Reserved(),
		Available: inv.Available(),
		UpdatedAt: isoTime(inv.State().UpdatedAt),
	}
}

// LineDTO is a cart or order line.
type LineDTO struct {
	ProductID   string   `json:"productId"`
	ProductName string   `json:"productName"`
	Quantity    int      `json:"quantity"`
	Price       MoneyDTO `json:"priceAtOrder"`
	Subtotal    MoneyDTO `json:"subtotal"`
}

type CartDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Items     []LineDTO `json:"items"`
	Total     MoneyDTO  `json:"total"`
	ItemCount int       `json:"itemCount"`
	ExpiresAt string    `json:"expiresAt"`
}

func toCartDTO(c *entity.Cart) *CartDTO {
	items := make([]LineDTO, 0, len(c.Items()))
	for _, it := range c.Items() {
		items = append(items, LineDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       toMoneyDTO(it.Price),
			Subtotal:    toMoneyDTO(it.Subtotal()),
		})
	}
	return &CartDTO{
		ID:        c.ID,
		UserID:    c.UserID(),
		Items:     items,
		Total:     toMoneyDTO(c.Total()),
		ItemCount: c.ItemCount(),
		ExpiresAt: isoTime(c.ExpiresAt()),
	}
}

type OrderDTO struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []LineDTO       `json:"items"`
	Status          string          `json:"status"`
	Total           MoneyDTO        `json:"total"`
	ShippingAddress *entity.Address `json:"shippingAddress,omitempty"`
	PaymentID       string          `json:"paymentId,omitempty"`
	TrackingRef     string          `json:"trackingRef,omitempty"`
	CancelReason    string          `json:"cancelReason,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

func toOrderDTO(o *entity.Order) *OrderDTO {
	s := o.State()
	items := make([]LineDTO, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, LineDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       toMoneyDTO(it.Price),
			Subtotal:    toMoneyDTO(it.Subtotal()),
		})
	}
	return &OrderDTO{
		ID:              o.ID,
		UserID:          s.UserID,
		Items:           items,
		Status:          string(s.Status),
		Total:           toMoneyDTO(s.Total),
		ShippingAddress: s.ShippingAddress,
		PaymentID:       s.PaymentID,
		TrackingRef:     s.TrackingRef,
		CancelReason:    s.CancelReason,
		CreatedAt:       isoTime(s.CreatedAt),
		UpdatedAt:       isoTime(s.UpdatedAt),
	}
}

type PaymentDTO struct {
	ID            string   `json:"id"`
	OrderID       string   `json:"orderId"`
	Amount        MoneyDTO `json:"amount"`
	Status        string   `json:"status"`
	Provider      string   `json:"provider"`
	TransactionID string   `json:"transactionId,omitempty"`
	FailureReason string   `json:"failureReason,omitempty"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

func toPaymentDTO(p *entity.Payment) *PaymentDTO {
	s := p.State()
	return &PaymentDTO{
		ID:            p.ID,
		OrderID:       s.OrderID,
		Amount:        toMoneyDTO(s.Amount),
		Status:        string(s.Status),
		Provider:      s.Provider,
		TransactionID: s.TransactionID,
		FailureReason: s.FailureReason,
		CreatedAt:     isoTime(s.CreatedAt),
		UpdatedAt:     isoTime(s.UpdatedAt),
	}
}

type UserDTO struct {
	ID             string           `json:"id"`
	Email          string           `json:"email"`
	Name           string           `json:"name"`
	Role           string           `json:"role"`
	Addresses      []entity.Address `json:"addresses"`
	DefaultAddress *entity.Address  `json:"defaultAddress,omitempty"`
	CreatedAt      string           `json:"createdAt"`
}

func toUserDTO(u *entity.User) *UserDTO {
	s := u.State()
	dto := &UserDTO{
		ID:        u.ID,
		Email:     s.Email.String(),
		Name:      s.Name,
		Role:      string(s.Role),
		Addresses: append([]entity.Address{}, s.Addresses...),
		CreatedAt: isoTime(s.CreatedAt),
	}
	if addr, ok := u.DefaultAddress(); ok {
		dto.DefaultAddress = &addr
	}
	return dto
}
