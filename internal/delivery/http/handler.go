package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/service"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	catalog  *service.CatalogService
	carts    *service.CartService
	orders   *service.OrderService
	payments *service.PaymentService
	users    *service.IdentityService
}

func NewHandler(
	catalog *service.CatalogService,
	carts *service.CartService,
	orders *service.OrderService,
	payments *service.PaymentService,
	users *service.IdentityService,
) *Handler {
	return &Handler{
		catalog:  catalog,
		carts:    carts,
		orders:   orders,
		payments: payments,
		users:    users,
	}
}

func HealthCheck(c *gin.Context) {
	RespondOK(c, gin.H{"status": "ok"})
}

// bind decodes the JSON body into dst and answers 400 on failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, string(entity.CodeValidation), err)
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		RespondError(c, http.StatusBadRequest, string(entity.CodeValidation), err)
		return 0, false
	}
	return n, true
}

// ---- catalog ----

func (h *Handler) CreateProduct(c *gin.Context) {
	var req service.CreateProductInput
	if !bind(c, &req) {
		return
	}
	product, err := h.catalog.CreateProduct(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, product)
}

func (h *Handler) ListProducts(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "pageSize")
	if !ok {
		return
	}
	result, err := h.catalog.ListProducts(c.Request.Context(), repository.ProductFilter{
		CategoryID: c.Query("category"),
		Search:     c.Query("search"),
		Status:     entity.ProductStatus(c.Query("status")),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, result)
}

func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.catalog.GetProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, product)
}

type changePriceRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (h *Handler) ChangePrice(c *gin.Context) {
	var req changePriceRequest
	if !bind(c, &req) {
		return
	}
	product, err := h.catalog.ChangePrice(c.Request.Context(), c.Param("id"), req.Amount, req.Currency)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, product)
}

type inventoryRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) SetInventory(c *gin.Context) {
	var req inventoryRequest
	if !bind(c, &req) {
		return
	}
	inv, err := h.catalog.SetInventory(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, inv)
}

func (h *Handler) GetInventory(c *gin.Context) {
	inv, err := h.catalog.GetInventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, inv)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req service.CreateCategoryInput
	if !bind(c, &req) {
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, category)
}

// ---- cart ----

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.carts.GetCart(c.Request.Context(), userID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, cart)
}

func (h *Handler) AddToCart(c *gin.Context) {
	var req cartItemRequest
	if !bind(c, &req) {
		return
	}
	cart, err := h.carts.AddToCart(c.Request.Context(), userID(c), req.ProductID, req.Quantity)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, cart)
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req cartItemRequest
	if !bind(c, &req) {
		return
	}
	cart, err := h.carts.UpdateItemQuantity(c.Request.Context(), userID(c), c.Param("productId"), req.Quantity)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, cart)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	cart, err := h.carts.RemoveItem(c.Request.Context(), userID(c), c.Param("productId"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, cart)
}

// ---- orders ----

type placeOrderRequest struct {
	ShippingAddress service.AddressInput `json:"shippingAddress"`
}

func (h *Handler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	// An empty body falls back to the user's default address.
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	order, err := h.orders.PlaceOrder(c.Request.Context(), userID(c), req.ShippingAddress)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, order)
}

func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), userID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"orders": orders})
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, order)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelOrder(c *gin.Context) {
	var req reasonRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	order, err := h.orders.CancelOrder(c.Request.Context(), userID(c), c.Param("id"), req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, order)
}

func (h *Handler) StartProcessing(c *gin.Context) {
	order, err := h.orders.StartProcessing(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, order)
}

type shipRequest struct {
	TrackingRef string `json:"trackingRef"`
}

func (h *Handler) ShipOrder(c *gin.Context) {
	var req shipRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.orders.ShipOrder(c.Request.Context(), c.Param("id"), req.TrackingRef)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, order)
}

func (h *Handler) DeliverOrder(c *gin.Context) {
	order, err := h.orders.DeliverOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, order)
}

// ---- payments ----

type paymentIntentRequest struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var req paymentIntentRequest
	if !bind(c, &req) {
		return
	}
	payment, err := h.payments.CreatePaymentIntent(c.Request.Context(), userID(c), req.OrderID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, payment)
}

func (h *Handler) PaymentWebhook(c *gin.Context) {
	var req service.ProcessPaymentInput
	if !bind(c, &req) {
		return
	}
	payment, err := h.payments.ProcessPayment(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, payment)
}

func (h *Handler) GetPayment(c *gin.Context) {
	payment, err := h.payments.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, payment)
}

func (h *Handler) RefundPayment(c *gin.Context) {
	var req reasonRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	payment, err := h.payments.RefundPayment(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, payment)
}

// ---- users ----

func (h *Handler) RegisterUser(c *gin.Context) {
	var req service.RegisterUserInput
	if !bind(c, &req) {
		return
	}
	user, err := h.users.RegisterUser(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, user)
}

func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), userID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, user)
}

type addressRequest struct {
	service.AddressInput
	MakeDefault bool `json:"makeDefault"`
}

func (h *Handler) AddAddress(c *gin.Context) {
	var req addressRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.users.AddAddress(c.Request.Context(), userID(c), req.AddressInput, req.MakeDefault)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, user)
}
