package entity

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProductStatus string

const (
	ProductActive     ProductStatus = "active"
	ProductInactive   ProductStatus = "inactive"
	ProductOutOfStock ProductStatus = "out_of_stock"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductActive, ProductInactive, ProductOutOfStock:
		return true
	}
	return false
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ProductState is the persisted state of a Product.
type ProductState struct {
	SKU         SKU
	Name        string
	Slug        string
	Description string
	Price       Money
	CategoryID  string
	Status      ProductStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Product is the catalog aggregate root for a sellable item.
type Product struct {
	AggregateBase
	state ProductState
}

// NewProduct creates an active product and raises ProductCreated.
func NewProduct(sku SKU, name, slug, description string, price Money, categoryID string) (*Product, error) {
	const op = "entity.NewProduct"
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	switch {
	case sku.IsZero():
		return nil, NewError(CodeValidation, op, "sku is required", nil)
	case name == "":
		return nil, NewError(CodeValidation, op, "name is required", nil)
	case !slugPattern.MatchString(slug):
		return nil, Errorf(CodeValidation, op, "invalid slug %q", slug)
	case price.Currency() == "":
		return nil, NewError(CodeValidation, op, "price is required", nil)
	}

	at := now()
	p := &Product{
		AggregateBase: AggregateBase{ID: uuid.NewString()},
		state: ProductState{
			SKU:         sku,
			Name:        name,
			Slug:        slug,
			Description: strings.TrimSpace(description),
			Price:       price,
			CategoryID:  categoryID,
			Status:      ProductActive,
			CreatedAt:   at,
			UpdatedAt:   at,
		},
	}
	err := p.raise(ProductAggregateType, ProductCreated{
		ProductID:  p.ID,
		SKU:        sku.String(),
		Name:       name,
		Slug:       slug,
		Price:      price,
		CategoryID: categoryID,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RestoreProduct rebuilds a product loaded from storage. The buffer is empty.
func RestoreProduct(id string, version int, state ProductState) *Product {
	return &Product{AggregateBase: AggregateBase{ID: id, Version: version}, state: state}
}

func (p *Product) AggregateType() string { return ProductAggregateType }
func (p *Product) Equals(other Aggregate) bool { return SameAggregate(p, other) }
func (p *Product) State() ProductState { return p.state }
func (p *Product) SKU() SKU { return p.state.SKU }
func (p *Product) Name() string { return p.state.Name }
func (p *Product) Price() Money { return p.state.Price }
func (p *Product) Status() ProductStatus { return p.state.Status }

// UpdatePrice changes the list price. The currency may change with it.
func (p *Product) UpdatePrice(price Money) error {
	if price.Currency() == "" {
		return NewError(CodeValidation, "entity.Product.UpdatePrice", "price is required", nil)
	}
	if price.Equals(p.state.Price) {
		return nil
	}
	next := p.state
	next.Price = price
	next.UpdatedAt = now()
	err := p.raise(ProductAggregateType, ProductPriceChanged{ProductID: p.ID, OldPrice: p.state.Price, NewPrice: price})
	if err != nil {
		return err
	}
	p.state = next
	return nil
}

// UpdateStatus moves the product between active, inactive and out_of_stock.
// Setting the current status again is a no-op.
func (p *Product) UpdateStatus(status ProductStatus) error {
	if !status.Valid() {
		return Errorf(CodeValidation, "entity.Product.UpdateStatus", "unknown product status %q", status)
	}
	if status == p.state.Status {
		return nil
	}
	next := p.state
	next.Status = status
	next.UpdatedAt = now()
	err := p.raise(ProductAggregateType, ProductStatusChanged{ProductID: p.ID, OldStatus: p.state.Status, Status: status})
	if err != nil {
		return err
	}
	p.state = next
	return nil
}
