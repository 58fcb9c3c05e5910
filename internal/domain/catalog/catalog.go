package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no product exists for a requested slug.
var ErrNotFound = errors.New("product not found")

// Product is the authoritative catalog record for a single product, fetched
// fresh at validation time. Available is the stock on hand at fetch time; it
// is a read-only check, never a reservation.
type Product struct {
	ProductID string
	Slug      string
	Price     decimal.Decimal
	Available int
}

// HasPrice reports whether the record carries a usable price.
func (p Product) HasPrice() bool {
	return p.Price.IsPositive()
}

// Lookup defines the single read operation the cart consumes from the
// product catalog collaborator.
type Lookup interface {
	BySlug(ctx context.Context, slug string) (*Product, error)
}
