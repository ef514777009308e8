package service

import (
	"context"
	"fmt"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/outbox"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

// CatalogService manages products, categories and stock levels.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	inventory  repository.InventoryRepository
	flusher    *outbox.Flusher
	log        *logger.Logger
}

func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	inventory repository.InventoryRepository,
	flusher *outbox.Flusher,
	log *logger.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		inventory:  inventory,
		flusher:    flusher,
		log:        log.With("component", "CatalogService"),
	}
}

type CreateProductInput struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	CategoryID  string  `json:"categoryId"`
	// InitialStock creates the inventory along with the product when > 0.
	InitialStock int `json:"initialStock"`
}

func (s *CatalogService) CreateProduct(ctx context.Context, in CreateProductInput) (*ProductDTO, error) {
	const op = "service.CatalogService.CreateProduct"
	s.log.Info("Creating product", "sku", in.SKU)

	// 1. Value objects
	sku, err := entity.NewSKU(in.SKU)
	if err != nil {
		return nil, err
	}
	if in.Currency == "" {
		in.Currency = string(entity.EUR)
	}
	price, err := entity.NewPrice(in.Price, in.Currency)
	if err != nil {
		return nil, err
	}

	// 2. Uniqueness and references
	existing, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to look up sku: %w", err)
	}
	if existing != nil {
		return nil, entity.Errorf(entity.CodeConflict, op, "sku %s already exists", sku)
	}
	if in.CategoryID != "" {
		category, err := s.categories.FindByID(ctx, in.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to load category: %w", err)
		}
		if category == nil {
			return nil, notFound(op, "category", in.CategoryID)
		}
	}

	// 3. Aggregates
	product, err := entity.NewProduct(sku, in.Name, in.Slug, in.Description, price, in.CategoryID)
	if err != nil {
		return nil, err
	}
	aggs := []entity.Aggregate{product}
	var inv *entity.Inventory
	if in.InitialStock > 0 {
		if inv, err = entity.NewInventory(product.ID, in.InitialStock); err != nil {
			return nil, err
		}
		aggs = append(aggs, inv)
	}

	// 4. Persist
	if err := s.products.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	if inv != nil {
		if err := s.inventory.Save(ctx, inv); err != nil {
			return nil, fmt.Errorf("failed to save inventory: %w", err)
		}
	}

	// 5. Publish
	dto := toProductDTO(product)
	if err := s.flusher.Flush(ctx, aggs...); err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *CatalogService) GetProductByID(ctx context.Context, id string) (*ProductDTO, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if p == nil {
		return nil, notFound("service.CatalogService.GetProductByID", "product", id)
	}
	return toProductDTO(p), nil
}

func (s *CatalogService) GetProductBySKU(ctx context.Context, raw string) (*ProductDTO, error) {
	sku, err := entity.NewSKU(raw)
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if p == nil {
		return nil, notFound("service.CatalogService.GetProductBySKU", "product", raw)
	}
	return toProductDTO(p), nil
}

func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	filter = filter.Normalize()
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, entity.Errorf(entity.CodeValidation, "service.CatalogService.ListProducts", "unknown product status %q", filter.Status)
	}
	products, err := s.products.FindMany(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	total, err := s.products.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	page := &ProductPage{Items: make([]*ProductDTO, 0, len(products)), Total: total, Page: filter.Page, PageSize: filter.PageSize}
	for _, p := range products {
		page.Items = append(page.Items, toProductDTO(p))
	}
	return page, nil
}

func (s *CatalogService) ChangePrice(ctx context.Context, productID string, amount float64, currency string) (*ProductDTO, error) {
	const op = "service.CatalogService.ChangePrice"
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if p == nil {
		return nil, notFound(op, "product", productID)
	}
	if currency == "" {
		currency = string(p.Price().Currency())
	}
	price, err := entity.NewPrice(amount, currency)
	if err != nil {
		return nil, err
	}
	if err := p.UpdatePrice(price); err != nil {
		return nil, err
	}
	if !p.HasDomainEvents() {
		return toProductDTO(p), nil
	}
	if err := s.products.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	dto := toProductDTO(p)
	if err := s.flusher.Flush(ctx, p); err != nil {
		return nil, err
	}
	return dto, nil
}

type CreateCategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ParentID    string `json:"parentId"`
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*CategoryDTO, error) {
	const op = "service.CatalogService.CreateCategory"
	existing, err := s.categories.FindBySlug(ctx, in.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to look up slug: %w", err)
	}
	if existing != nil {
		return nil, entity.Errorf(entity.CodeConflict, op, "category slug %s already exists", in.Slug)
	}
	if in.ParentID != "" {
		parent, err := s.categories.FindByID(ctx, in.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent category: %w", err)
		}
		if parent == nil {
			return nil, notFound(op, "category", in.ParentID)
		}
	}

	c, err := entity.NewCategory(in.Name, in.Slug, in.Description, in.ParentID)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save category: %w", err)
	}
	dto := toCategoryDTO(c)
	if err := s.flusher.Flush(ctx, c); err != nil {
		return nil, err
	}
	return dto, nil
}

// SetInventory sets the on-hand quantity of a product, creating its inventory
// on first use. Quantities can only grow here; stock leaves through orders.
func (s *CatalogService) SetInventory(ctx context.Context, productID string, quantity int) (*InventoryDTO, error) {
	const op = "service.CatalogService.SetInventory"
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if p == nil {
		return nil, notFound(op, "product", productID)
	}

	inv, err := s.inventory.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	switch {
	case inv == nil:
		if inv, err = entity.NewInventory(productID, quantity); err != nil {
			return nil, err
		}
	case quantity < inv.Quantity():
		return nil, entity.Errorf(entity.CodeInvalidArgument, op, "quantity %d is below the current %d", quantity, inv.Quantity())
	case quantity == inv.Quantity():
		return toInventoryDTO(inv), nil
	default:
		if err := inv.Restock(quantity - inv.Quantity()); err != nil {
			return nil, err
		}
	}

	if err := s.inventory.Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to save inventory: %w", err)
	}
	s.log.Info("Inventory updated", "product_id", productID, "quantity", inv.Quantity())
	dto := toInventoryDTO(inv)
	if err := s.flusher.Flush(ctx, inv); err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *CatalogService) GetInventory(ctx context.Context, productID string) (*InventoryDTO, error) {
	inv, err := s.inventory.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	if inv == nil {
		return nil, notFound("service.CatalogService.GetInventory", "inventory for product", productID)
	}
	return toInventoryDTO(inv), nil
}
