package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/metrics"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

type RouterConfig struct {
	Handler     *Handler
	Log         *logger.Logger
	Metrics     *metrics.ServerMetrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORS(cfg.CORSOrigins))
	if cfg.Log != nil {
		router.Use(LogErrors(cfg.Log))
	}
	if cfg.Metrics != nil {
		router.Use(Instrument(cfg.Metrics))
	}

	router.GET("/healthcheck", HealthCheck)
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(cfg.Gatherer)))
	}

	h := cfg.Handler
	api := router.Group("/api")

	// Catalog
	api.POST("/catalog/products", h.CreateProduct)
	api.GET("/catalog/products", h.ListProducts)
	api.GET("/catalog/products/:id", h.GetProduct)
	api.PUT("/catalog/products/:id/price", h.ChangePrice)
	api.GET("/catalog/products/:id/inventory", h.GetInventory)
	api.PUT("/catalog/products/:id/inventory", h.SetInventory)
	api.POST("/catalog/categories", h.CreateCategory)

	// Fulfilment and provider callbacks
	api.POST("/orders/:id/process", h.StartProcessing)
	api.POST("/orders/:id/ship", h.ShipOrder)
	api.POST("/orders/:id/deliver", h.DeliverOrder)
	api.POST("/payments/webhook", h.PaymentWebhook)
	api.GET("/payments/:id", h.GetPayment)
	api.POST("/payments/:id/refund", h.RefundPayment)

	api.POST("/users", h.RegisterUser)

	protected := api.Group("/")
	protected.Use(RequireUser())
	// Cart
	protected.GET("/cart", h.GetCart)
	protected.POST("/cart/items", h.AddToCart)
	protected.PATCH("/cart/items/:productId", h.UpdateCartItem)
	protected.DELETE("/cart/items/:productId", h.RemoveCartItem)
	// Orders
	protected.POST("/orders", h.PlaceOrder)
	protected.GET("/orders", h.ListOrders)
	protected.GET("/orders/:id", h.GetOrder)
	protected.POST("/orders/:id/cancel", h.CancelOrder)
	// Payments
	protected.POST("/payments", h.CreatePaymentIntent)
	// User
	protected.GET("/users/me", h.GetMe)
	protected.POST("/users/me/addresses", h.AddAddress)

	return router
}
