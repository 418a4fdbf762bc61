// Package order holds the order domain model and the in-memory order store.
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/vision-order-api/internal/classify"
)

// Defaults for products created from classified images.
var (
	inferenceProductName  = "inference_image_product"
	inferenceProductPrice = decimal.NewFromInt(100)
)

// Product is a single line item. Manually priced products carry no
// classification result; inference products carry the prediction list that
// produced them.
type Product struct {
	ID     uuid.UUID
	Name   string
	Price  decimal.Decimal
	Result []classify.Prediction
}

// NewProduct creates a manually priced product. The ID is always freshly
// generated; callers never supply one.
func NewProduct(name string, price decimal.Decimal) Product {
	return Product{
		ID:    uuid.New(),
		Name:  name,
		Price: price,
	}
}

// NewInferenceProduct wraps a classification result in a product with the
// fixed placeholder name and price.
func NewInferenceProduct(result []classify.Prediction) Product {
	p := NewProduct(inferenceProductName, inferenceProductPrice)
	p.Result = result
	return p
}

// Order groups products for a single customer transaction. Products keep
// insertion order and are unique by ID within the order.
type Order struct {
	ID        uuid.UUID
	Products  []Product
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder creates an order holding the given products. ID and both
// timestamps are freshly generated.
func NewOrder(products ...Product) *Order {
	now := time.Now()
	return &Order{
		ID:        uuid.New(),
		Products:  products,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddProduct appends p to the order unless a product with the same ID is
// already present. UpdatedAt is bumped only when the order actually changes.
// It reports whether p was added.
func (o *Order) AddProduct(p Product) bool {
	for _, existing := range o.Products {
		if existing.ID == p.ID {
			return false
		}
	}
	o.Products = append(o.Products, p)
	o.UpdatedAt = time.Now()
	return true
}

// snapshot returns a copy of the order with its own products slice, safe to
// read after the store lock is released. Prediction slices are shared: they
// are never mutated after the product is built.
func (o *Order) snapshot() *Order {
	c := *o
	c.Products = append([]Product(nil), o.Products...)
	return &c
}

// Bill is the sum of all product prices. It is recomputed on every call and
// never cached, so it cannot go stale after a mutation.
func (o *Order) Bill() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Products {
		total = total.Add(p.Price)
	}
	return total
}
