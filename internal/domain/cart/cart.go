package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// LineItem is the quantity/price/productID triple stored per slug. Price is a
// snapshot taken from the most recent successful inventory validation, never
// a client-held or user-supplied value.
type LineItem struct {
	Quantity  int
	Price     decimal.Decimal
	ProductID string
}

// Cart maps a product slug to its line item. Every present slug holds a
// quantity of at least 1; transitions that would produce a lower quantity
// remove the key instead.
type Cart map[string]LineItem

// Clone returns an independent copy of the cart.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for slug, item := range c {
		out[slug] = item
	}
	return out
}

// Quantity returns the stored quantity for slug, or 0 when absent.
func (c Cart) Quantity(slug string) int {
	return c[slug].Quantity
}

// Repository defines persistence operations for per-identity carts.
// Load returns an empty cart and a nil error for an unknown key; malformed
// stored payloads yield an error wrapping ErrCorruptPayload.
type Repository interface {
	Load(ctx context.Context, key string) (Cart, error)
	Save(ctx context.Context, key string, c Cart) error
}

// Action is a single cart state transition request, applied by Reduce.
type Action interface {
	isAction()
}

// SetCart replaces the whole state. Used only at hydration.
type SetCart struct {
	Cart Cart
}

// AddItem increments the quantity for a slug by 1, refreshing the stored
// price and product ID from the latest snapshot, or inserts the slug with
// quantity 1 when absent.
type AddItem struct {
	Slug      string
	Price     decimal.Decimal
	ProductID string
}

// RemoveItem deletes a slug unconditionally. Absent slug is a no-op.
type RemoveItem struct {
	Slug string
}

// SetQuantity replaces the line item for a slug with the given quantity,
// price, and product ID. A quantity of 0 or less deletes the slug.
type SetQuantity struct {
	Slug      string
	Quantity  int
	Price     decimal.Decimal
	ProductID string
}

// Clear resets the cart to an empty mapping.
type Clear struct{}

func (SetCart) isAction()     {}
func (AddItem) isAction()     {}
func (RemoveItem) isAction()  {}
func (SetQuantity) isAction() {}
func (Clear) isAction()       {}

// EventKind enumerates the outcomes a transition can produce.
type EventKind uint8

const (
	// EventNone means the action did not change the state.
	EventNone EventKind = iota
	// EventHydrated means the whole state was replaced from storage.
	EventHydrated
	// EventItemAdded means a slug's quantity grew by one.
	EventItemAdded
	// EventItemRemoved means a slug was deleted.
	EventItemRemoved
	// EventQuantityChanged means a slug's line item was replaced.
	EventQuantityChanged
	// EventCleared means the cart was emptied.
	EventCleared
)

// Event describes what a transition did. The operations layer turns events
// into user-facing notifications; Reduce itself performs no side effects.
type Event struct {
	Kind     EventKind
	Slug     string
	Quantity int
}

// Reduce is the pure cart transition function. It never mutates its input and
// returns the next state together with an event describing the transition.
func Reduce(state Cart, action Action) (Cart, Event) {
	switch a := action.(type) {
	case SetCart:
		return a.Cart.Clone(), Event{Kind: EventHydrated}

	case AddItem:
		next := state.Clone()
		item := next[a.Slug]
		item.Quantity++
		item.Price = a.Price
		item.ProductID = a.ProductID
		next[a.Slug] = item
		return next, Event{Kind: EventItemAdded, Slug: a.Slug, Quantity: item.Quantity}

	case RemoveItem:
		if _, ok := state[a.Slug]; !ok {
			return state, Event{Kind: EventNone, Slug: a.Slug}
		}
		next := state.Clone()
		delete(next, a.Slug)
		return next, Event{Kind: EventItemRemoved, Slug: a.Slug}

	case SetQuantity:
		if a.Quantity <= 0 {
			return Reduce(state, RemoveItem{Slug: a.Slug})
		}
		next := state.Clone()
		next[a.Slug] = LineItem{
			Quantity:  a.Quantity,
			Price:     a.Price,
			ProductID: a.ProductID,
		}
		return next, Event{Kind: EventQuantityChanged, Slug: a.Slug, Quantity: a.Quantity}

	case Clear:
		return Cart{}, Event{Kind: EventCleared}

	default:
		return state, Event{Kind: EventNone}
	}
}
