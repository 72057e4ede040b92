package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a product, variant, or size does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when a conditional stock decrement
	// cannot be satisfied.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is a catalog item. Each variant carries its own set of sizes with
// independent pricing and stock.
type Product struct {
	ID       string
	Name     string
	Image    string
	Variants []Variant
}

// Variant is a named variation of a product (colour, flavour, material).
type Variant struct {
	Name  string
	Sizes []Size
}

// Size is the purchasable unit: a (product, variant, size) triple with its
// selling price, pre-discount MRP, and current stock.
type Size struct {
	Name          string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Stock         int
}

// SKU identifies a purchasable unit for stock operations.
type SKU struct {
	ProductID   string
	VariantName string
	Size        string
}

// StockChange pairs a SKU with a quantity for reserve/release operations.
type StockChange struct {
	SKU      SKU
	Quantity int
}

// Repository defines catalog reads and atomic stock mutation.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)

	// ReserveStock decrements stock for every change in a single transaction.
	// Each decrement is conditional on sufficient stock; if any line cannot be
	// satisfied the whole batch is rolled back and ErrInsufficientStock is
	// returned. Two concurrent reservations of the last unit must not both
	// succeed.
	ReserveStock(ctx context.Context, changes []StockChange) error

	// ReleaseStock returns previously reserved stock, e.g. on cancellation or
	// draft expiry.
	ReleaseStock(ctx context.Context, changes []StockChange) error
}

// FindSize resolves a variant/size pair on the product.
func (p *Product) FindSize(variantName, sizeName string) (*Size, bool) {
	for vi := range p.Variants {
		if p.Variants[vi].Name != variantName {
			continue
		}
		for si := range p.Variants[vi].Sizes {
			if p.Variants[vi].Sizes[si].Name == sizeName {
				return &p.Variants[vi].Sizes[si], true
			}
		}
	}
	return nil, false
}
