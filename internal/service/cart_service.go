package service

import (
	"context"
	"fmt"
	"time"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/outbox"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

// CartService orchestrates shopping cart logic. Each user has at most one cart.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	flusher  *outbox.Flusher
	log      *logger.Logger
	opts     options
}

func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	flusher *outbox.Flusher,
	log *logger.Logger,
	opts ...Option,
) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		flusher:  flusher,
		log:      log.With("component", "CartService"),
		opts:     buildOptions(opts),
	}
}

// AddToCart adds quantity of a product to the user's cart at the product's
// current price, creating the cart or reopening an expired one as needed.
func (s *CartService) AddToCart(ctx context.Context, userID, productID string, quantity int) (*CartDTO, error) {
	const op = "service.CartService.AddToCart"
	s.log.Info("Adding item to cart", "user_id", userID, "product_id", productID)

	// 1. Price the item from the catalog
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return nil, notFound(op, "product", productID)
	}
	if product.Status() != entity.ProductActive {
		return nil, entity.Errorf(entity.CodeValidation, op, "product %s is %s", productID, product.Status())
	}

	// 2. Load or create the cart
	at := s.opts.now()
	cart, err := s.loadCart(ctx, userID, at, true)
	if err != nil {
		return nil, err
	}

	// 3. Decide
	if err := cart.AddItem(product.ID, product.Name(), quantity, product.Price(), at); err != nil {
		return nil, err
	}

	// 4. Persist and publish
	return s.commit(ctx, cart)
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*CartDTO, error) {
	at := s.opts.now()
	cart, err := s.existingCart(ctx, "service.CartService.UpdateItemQuantity", userID, at)
	if err != nil {
		return nil, err
	}
	if err := cart.UpdateItemQuantity(productID, quantity, at); err != nil {
		return nil, err
	}
	return s.commit(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*CartDTO, error) {
	at := s.opts.now()
	cart, err := s.existingCart(ctx, "service.CartService.RemoveItem", userID, at)
	if err != nil {
		return nil, err
	}
	if err := cart.RemoveItem(productID, at); err != nil {
		return nil, err
	}
	return s.commit(ctx, cart)
}

// GetCart returns the user's cart. An expired cart is emptied on the way out;
// a user without a cart gets an empty one that is not stored.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartDTO, error) {
	at := s.opts.now()
	cart, err := s.loadCart(ctx, userID, at, false)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		empty, err := entity.NewCart(userID, s.opts.cartTTL, at)
		if err != nil {
			return nil, err
		}
		return toCartDTO(empty), nil
	}
	if cart.HasDomainEvents() {
		return s.commit(ctx, cart)
	}
	return toCartDTO(cart), nil
}

// loadCart finds the user's cart and disposes of an expired one. With create
// set, a missing cart is created.
func (s *CartService) loadCart(ctx context.Context, userID string, at time.Time, create bool) (*entity.Cart, error) {
	if userID == "" {
		return nil, entity.NewError(entity.CodeValidation, "service.CartService", "user id is required", nil)
	}
	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		if !create {
			return nil, nil
		}
		return entity.NewCart(userID, s.opts.cartTTL, at)
	}
	expired, err := cart.DiscardIfExpired(at, s.opts.cartTTL)
	if err != nil {
		return nil, err
	}
	if expired {
		s.log.Info("Discarded expired cart", "cart_id", cart.ID, "user_id", userID)
	}
	return cart, nil
}

func (s *CartService) existingCart(ctx context.Context, op, userID string, at time.Time) (*entity.Cart, error) {
	cart, err := s.loadCart(ctx, userID, at, false)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, notFound(op, "cart for user", userID)
	}
	return cart, nil
}

func (s *CartService) commit(ctx context.Context, cart *entity.Cart) (*CartDTO, error) {
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	dto := toCartDTO(cart)
	if err := s.flusher.Flush(ctx, cart); err != nil {
		return nil, err
	}
	return dto, nil
}
