package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-cart/internal/domain/catalog"
)

// ItemNotFoundError indicates the catalog has no product for a slug.
type ItemNotFoundError struct {
	Slug string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("product %q not found", e.Slug)
}

// PriceUnavailableError indicates the catalog record carries no usable price.
type PriceUnavailableError struct {
	Slug string
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("no price available for product %q", e.Slug)
}

// InsufficientInventoryError indicates the desired quantity exceeds the stock
// on hand at validation time.
type InsufficientInventoryError struct {
	Slug      string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for product %q: requested %d, available %d",
		e.Slug, e.Requested, e.Available)
}

// TransportError wraps any catalog failure that is not a typed validation
// outcome (network errors, bad responses). Its message is the underlying
// error's message, unchanged, because it is surfaced to the user verbatim.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Validator checks a desired quantity against the authoritative catalog
// record. It holds no state and never caches: every call is a fresh fetch.
type Validator struct {
	catalog catalog.Lookup
}

// NewValidator creates a Validator backed by the given catalog lookup.
func NewValidator(lookup catalog.Lookup) *Validator {
	return &Validator{catalog: lookup}
}

// Validate fetches the product record for slug and checks that desired units
// can be purchased. On success the returned snapshot carries the price and
// product ID verbatim from the fetched record. Failures are typed:
// ItemNotFoundError, PriceUnavailableError, InsufficientInventoryError, or
// TransportError for anything else.
func (v *Validator) Validate(ctx context.Context, slug string, desired int) (*catalog.Product, error) {
	p, err := v.catalog.BySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &ItemNotFoundError{Slug: slug}
		}
		return nil, &TransportError{Err: err}
	}
	if p == nil {
		return nil, &ItemNotFoundError{Slug: slug}
	}
	if !p.HasPrice() {
		return nil, &PriceUnavailableError{Slug: slug}
	}
	if desired > p.Available {
		return nil, &InsufficientInventoryError{
			Slug:      slug,
			Requested: desired,
			Available: p.Available,
		}
	}
	return p, nil
}
