package entity

import "time"

// Event type names.
const (
	EventProductCreated             = "ProductCreated"
	EventProductPriceChanged        = "ProductPriceChanged"
	EventProductStatusChanged       = "ProductStatusChanged"
	EventCategoryCreated            = "CategoryCreated"
	EventCategoryUpdated            = "CategoryUpdated"
	EventInventoryCreated           = "InventoryCreated"
	EventInventoryReduced           = "InventoryReduced"
	EventInventoryReleased          = "InventoryReleased"
	EventInventoryCommitted         = "InventoryCommitted"
	EventInventoryRestocked         = "InventoryRestocked"
	EventInventoryReservationFailed = "InventoryReservationFailed"

	EventCartCreated     = "CartCreated"
	EventCartItemAdded   = "CartItemAdded"
	EventCartItemUpdated = "CartItemUpdated"
	EventCartItemRemoved = "CartItemRemoved"
	EventCartCleared     = "CartCleared"

	EventOrderCreated       = "OrderCreated"
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderPaid          = "OrderPaid"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderShipped       = "OrderShipped"
	EventOrderDelivered     = "OrderDelivered"

	EventPaymentInitiated  = "PaymentInitiated"
	EventPaymentProcessing = "PaymentProcessing"
	EventPaymentSucceeded  = "PaymentSucceeded"
	EventPaymentFailed     = "PaymentFailed"
	EventPaymentRefunded   = "PaymentRefunded"

	EventUserRegistered     = "UserRegistered"
	EventUserProfileUpdated = "UserProfileUpdated"
	EventUserRoleChanged    = "UserRoleChanged"
	EventUserAddressAdded   = "UserAddressAdded"
)

// --- Catalog ---

type ProductCreated struct {
	ProductID  string `json:"productId"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Price      Money  `json:"price"`
	CategoryID string `json:"categoryId,omitempty"`
}

func (ProductCreated) EventType() string { return EventProductCreated }
func (ProductCreated) SchemaVersion() int { return 1 }

type ProductPriceChanged struct {
	ProductID string `json:"productId"`
	OldPrice  Money  `json:"oldPrice"`
	NewPrice  Money  `json:"newPrice"`
}

func (ProductPriceChanged) EventType() string { return EventProductPriceChanged }
func (ProductPriceChanged) SchemaVersion() int { return 1 }

type ProductStatusChanged struct {
	ProductID string        `json:"productId"`
	OldStatus ProductStatus `json:"oldStatus"`
	Status    ProductStatus `json:"status"`
}

func (ProductStatusChanged) EventType() string { return EventProductStatusChanged }
func (ProductStatusChanged) SchemaVersion() int { return 1 }

type CategoryCreated struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	ParentID   string `json:"parentId,omitempty"`
}

func (CategoryCreated) EventType() string { return EventCategoryCreated }
func (CategoryCreated) SchemaVersion() int { return 1 }

type CategoryUpdated struct {
	CategoryID  string `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (CategoryUpdated) EventType() string { return EventCategoryUpdated }
func (CategoryUpdated) SchemaVersion() int { return 1 }

type InventoryCreated struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (InventoryCreated) EventType() string { return EventInventoryCreated }
func (InventoryCreated) SchemaVersion() int { return 1 }

// InventoryReduced is raised when stock is reserved for an order.
type InventoryReduced struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	OrderID   string `json:"orderId"`
}

func (InventoryReduced) EventType() string { return EventInventoryReduced }
func (InventoryReduced) SchemaVersion() int { return 1 }

type InventoryReleased struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	OrderID   string `json:"orderId"`
}

func (InventoryReleased) EventType() string { return EventInventoryReleased }
func (InventoryReleased) SchemaVersion() int { return 1 }

type InventoryCommitted struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	OrderID   string `json:"orderId"`
}

func (InventoryCommitted) EventType() string { return EventInventoryCommitted }
func (InventoryCommitted) SchemaVersion() int { return 1 }

type InventoryRestocked struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (InventoryRestocked) EventType() string { return EventInventoryRestocked }
func (InventoryRestocked) SchemaVersion() int { return 1 }

// InventoryReservationFailed is raised by the Catalog context when an order
// line could not be reserved. It drives order cancellation.
type InventoryReservationFailed struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (InventoryReservationFailed) EventType() string { return EventInventoryReservationFailed }
func (InventoryReservationFailed) SchemaVersion() int { return 1 }

// --- Orders ---

type CartCreated struct {
	CartID    string    `json:"cartId"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (CartCreated) EventType() string { return EventCartCreated }
func (CartCreated) SchemaVersion() int { return 1 }

type CartItemAdded struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (CartItemAdded) EventType() string { return EventCartItemAdded }
func (CartItemAdded) SchemaVersion() int { return 1 }

type CartItemUpdated struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (CartItemUpdated) EventType() string { return EventCartItemUpdated }
func (CartItemUpdated) SchemaVersion() int { return 1 }

type CartItemRemoved struct {
	ProductID string `json:"productId"`
}

func (CartItemRemoved) EventType() string { return EventCartItemRemoved }
func (CartItemRemoved) SchemaVersion() int { return 1 }

type CartCleared struct {
	CartID string `json:"cartId"`
}

func (CartCleared) EventType() string { return EventCartCleared }
func (CartCleared) SchemaVersion() int { return 1 }

type OrderCreated struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Total   Money  `json:"total"`
}

func (OrderCreated) EventType() string { return EventOrderCreated }
func (OrderCreated) SchemaVersion() int { return 1 }

// OrderLine is the part of an order line other contexts care about.
type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderPlaced is the integration event published once a cart became an order.
type OrderPlaced struct {
	OrderID string      `json:"orderId"`
	UserID  string      `json:"userId"`
	Items   []OrderLine `json:"items"`
	Total   Money       `json:"total"`
}

func (OrderPlaced) EventType() string { return EventOrderPlaced }
func (OrderPlaced) SchemaVersion() int { return 1 }

type OrderStatusChanged struct {
	OrderID string      `json:"orderId"`
	From    OrderStatus `json:"from"`
	Status  OrderStatus `json:"status"`
}

func (OrderStatusChanged) EventType() string { return EventOrderStatusChanged }
func (OrderStatusChanged) SchemaVersion() int { return 1 }

type OrderPaid struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId,omitempty"`
}

func (OrderPaid) EventType() string { return EventOrderPaid }
func (OrderPaid) SchemaVersion() int { return 1 }

type OrderCancelled struct {
	OrderID string      `json:"orderId"`
	Reason  string      `json:"reason,omitempty"`
	Items   []OrderLine `json:"items"`
}

func (OrderCancelled) EventType() string { return EventOrderCancelled }
func (OrderCancelled) SchemaVersion() int { return 1 }

type OrderShipped struct {
	OrderID     string      `json:"orderId"`
	TrackingRef string      `json:"trackingRef,omitempty"`
	Items       []OrderLine `json:"items"`
}

func (OrderShipped) EventType() string { return EventOrderShipped }
func (OrderShipped) SchemaVersion() int { return 1 }

type OrderDelivered struct {
	OrderID string `json:"orderId"`
}

func (OrderDelivered) EventType() string { return EventOrderDelivered }
func (OrderDelivered) SchemaVersion() int { return 1 }

// --- Payments ---

type PaymentInitiated struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Amount    Money  `json:"amount"`
	Provider  string `json:"provider"`
}

func (PaymentInitiated) EventType() string { return EventPaymentInitiated }
func (PaymentInitiated) SchemaVersion() int { return 1 }

type PaymentProcessing struct {
	PaymentID     string `json:"paymentId"`
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId,omitempty"`
}

func (PaymentProcessing) EventType() string { return EventPaymentProcessing }
func (PaymentProcessing) SchemaVersion() int { return 1 }

type PaymentSucceeded struct {
	PaymentID     string `json:"paymentId"`
	OrderID       string `json:"orderId"`
	Amount        Money  `json:"amount"`
	TransactionID string `json:"transactionId,omitempty"`
}

func (PaymentSucceeded) EventType() string { return EventPaymentSucceeded }
func (PaymentSucceeded) SchemaVersion() int { return 1 }

type PaymentFailed struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Reason    string `json:"reason"`
}

func (PaymentFailed) EventType() string { return EventPaymentFailed }
func (PaymentFailed) SchemaVersion() int { return 1 }

type PaymentRefunded struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Amount    Money  `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

func (PaymentRefunded) EventType() string { return EventPaymentRefunded }
func (PaymentRefunded) SchemaVersion() int { return 1 }

// --- Identity ---

type UserRegistered struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Role   UserRole `json:"role"`
}

func (UserRegistered) EventType() string { return EventUserRegistered }
func (UserRegistered) SchemaVersion() int { return 1 }

type UserProfileUpdated struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

func (UserProfileUpdated) EventType() string { return EventUserProfileUpdated }
func (UserProfileUpdated) SchemaVersion() int { return 1 }

type UserRoleChanged struct {
	UserID string   `json:"userId"`
	Role   UserRole `json:"role"`
}

func (UserRoleChanged) EventType() string { return EventUserRoleChanged }
func (UserRoleChanged) SchemaVersion() int { return 1 }

type UserAddressAdded struct {
	UserID    string  `json:"userId"`
	Address   Address `json:"address"`
	IsDefault bool    `json:"isDefault"`
}

func (UserAddressAdded) EventType() string { return EventUserAddressAdded }
func (UserAddressAdded) SchemaVersion() int { return 1 }
