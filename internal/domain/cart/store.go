package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/identity"
	"github.com/xenking/storefront-cart/internal/notify"
)

// Operation names attached to notifications.
const (
	opAdd     = "add_to_cart"
	opRemove  = "remove_from_cart"
	opUpdate  = "update_quantity"
	opClear   = "clear_cart"
	opHydrate = "hydrate"
)

// Store owns the in-memory cart and exposes the four public mutators. All
// state changes go through Reduce; every successful mutation persists the
// whole cart under the identity key current at write time.
//
// Mutations on the same slug are serialized by a per-slug lock, so two
// near-simultaneous adds validate sequentially instead of both reading the
// same pre-mutation quantity. Mutations on different slugs proceed
// independently.
type Store struct {
	validator *Validator
	repo      Repository
	identity  identity.Provider
	notifier  notify.Notifier
	lg        *zap.Logger

	// mu guards state and keeps dispatch+persist atomic so persisted
	// snapshots are always consistent with a single transition.
	mu    sync.Mutex
	state Cart

	slugMu    sync.Mutex
	slugLocks map[string]*sync.Mutex
}

// NewStore creates an empty Store with the required collaborators. Call
// Hydrate before the first mutation to load the persisted cart.
func NewStore(
	validator *Validator,
	repo Repository,
	provider identity.Provider,
	notifier notify.Notifier,
	lg *zap.Logger,
) *Store {
	return &Store{
		validator: validator,
		repo:      repo,
		identity:  provider,
		notifier:  notifier,
		lg:        lg,
		state:     Cart{},
		slugLocks: make(map[string]*sync.Mutex),
	}
}

// Hydrate replaces the in-memory cart with whatever is persisted under the
// current identity key, or an empty cart when nothing is stored. Call it once
// at startup and again whenever the identity changes (login/logout); carts
// are never merged across identities. A corrupt stored payload is discarded
// with a warning rather than surfaced as a failure.
func (s *Store) Hydrate(ctx context.Context) error {
	key := s.identity.Current().Key()
	loaded, err := s.repo.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCorruptPayload) {
			return errors.Wrap(err, "load cart")
		}
		s.lg.Warn("Discarding corrupt stored cart",
			zap.String("key", key),
			zap.Error(err),
		)
		s.notifier.Notify(notify.Notification{
			Severity:  notify.SeverityWarn,
			Operation: opHydrate,
			Message:   "Your saved cart could not be read and was reset",
		})
		loaded = Cart{}
	}

	s.mu.Lock()
	s.state, _ = Reduce(s.state, SetCart{Cart: loaded})
	s.mu.Unlock()
	return nil
}

// Items returns a snapshot of the current cart.
func (s *Store) Items() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// AddToCart validates that one more unit of slug can be purchased and, on
// success, increments its quantity (inserting with quantity 1 when absent)
// with the price and product ID refreshed from the fetched record. On
// validation failure the cart is left completely unchanged and a typed error
// is returned after an error notification is emitted.
func (s *Store) AddToCart(ctx context.Context, slug string) error {
	unlock := s.lockSlug(slug)
	defer unlock()

	s.mu.Lock()
	desired := s.state.Quantity(slug) + 1
	s.mu.Unlock()

	snap, err := s.validator.Validate(ctx, slug, desired)
	if err != nil {
		s.notifyFailure(opAdd, slug, addFailureMessage(slug, err))
		return err
	}
	// The lookup may resolve after the owning context is gone; never apply
	// a dispatch for a cancelled operation.
	if err := ctx.Err(); err != nil {
		return err
	}

	ev, err := s.dispatch(ctx, AddItem{Slug: slug, Price: snap.Price, ProductID: snap.ProductID})
	if err != nil {
		return err
	}
	s.notifyEvent(opAdd, ev)
	return nil
}

// RemoveFromCart deletes slug from the cart. It performs no validation and
// removing an absent slug is a no-op.
func (s *Store) RemoveFromCart(ctx context.Context, slug string) error {
	unlock := s.lockSlug(slug)
	defer unlock()

	ev, err := s.dispatch(ctx, RemoveItem{Slug: slug})
	if err != nil {
		return err
	}
	s.notifyEvent(opRemove, ev)
	return nil
}

// UpdateQuantity sets the quantity for slug to exactly quantity. A quantity
// of 0 or less removes the slug directly, skipping the inventory round trip:
// a removal can never be blocked by stock. Positive quantities are validated
// against the fetched record before dispatch; on failure the cart is left
// unchanged.
func (s *Store) UpdateQuantity(ctx context.Context, slug string, quantity int) error {
	unlock := s.lockSlug(slug)
	defer unlock()

	if quantity <= 0 {
		ev, err := s.dispatch(ctx, RemoveItem{Slug: slug})
		if err != nil {
			return err
		}
		s.notifyEvent(opUpdate, ev)
		return nil
	}

	snap, err := s.validator.Validate(ctx, slug, quantity)
	if err != nil {
		s.notifyFailure(opUpdate, slug, updateFailureMessage(slug, quantity, err))
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ev, err := s.dispatch(ctx, SetQuantity{
		Slug:      slug,
		Quantity:  quantity,
		Price:     snap.Price,
		ProductID: snap.ProductID,
	})
	if err != nil {
		return err
	}
	s.notifyEvent(opUpdate, ev)
	return nil
}

// ClearCart empties the cart. No validation.
func (s *Store) ClearCart(ctx context.Context) error {
	ev, err := s.dispatch(ctx, Clear{})
	if err != nil {
		return err
	}
	s.notifyEvent(opClear, ev)
	return nil
}

// dispatch applies the action and writes the resulting cart under the current
// identity key. Persistence failures surface to the caller unmodified in
// meaning; the in-memory transition is not rolled back, matching the
// write-behind semantics of the storage layer.
func (s *Store) dispatch(ctx context.Context, action Action) (Event, error) {
	s.mu.Lock()
	next, ev := Reduce(s.state, action)
	s.state = next
	snapshot := next.Clone()
	s.mu.Unlock()

	key := s.identity.Current().Key()
	if err := s.repo.Save(ctx, key, snapshot); err != nil {
		return ev, errors.Wrap(err, "save cart")
	}
	return ev, nil
}

// lockSlug acquires the mutation lock for slug, creating it on first use,
// and returns the corresponding unlock.
func (s *Store) lockSlug(slug string) func() {
	s.slugMu.Lock()
	m, ok := s.slugLocks[slug]
	if !ok {
		m = &sync.Mutex{}
		s.slugLocks[slug] = m
	}
	s.slugMu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *Store) notifyEvent(op string, ev Event) {
	msg := ""
	switch ev.Kind {
	case EventItemAdded:
		msg = fmt.Sprintf("Added %q to your cart", ev.Slug)
	case EventItemRemoved:
		msg = fmt.Sprintf("Removed %q from your cart", ev.Slug)
	case EventQuantityChanged:
		msg = fmt.Sprintf("Updated %q quantity to %d", ev.Slug, ev.Quantity)
	case EventCleared:
		msg = "Cart cleared"
	default:
		return
	}
	s.notifier.Notify(notify.Notification{
		Severity:  notify.SeverityInfo,
		Operation: op,
		Slug:      ev.Slug,
		Message:   msg,
	})
}

func (s *Store) notifyFailure(op, slug, msg string) {
	s.notifier.Notify(notify.Notification{
		Severity:  notify.SeverityError,
		Operation: op,
		Slug:      slug,
		Message:   msg,
	})
}

// addFailureMessage maps a validation failure during AddToCart to its
// user-facing copy. Transport errors pass through with their raw message.
func addFailureMessage(slug string, err error) string {
	var (
		notFound     *ItemNotFoundError
		noPrice      *PriceUnavailableError
		insufficient *InsufficientInventoryError
	)
	switch {
	case errors.As(err, &insufficient):
		return fmt.Sprintf("Cannot add another %q: only %d in stock", slug, insufficient.Available)
	case errors.As(err, &notFound):
		return fmt.Sprintf("Sorry, %q is no longer available", slug)
	case errors.As(err, &noPrice):
		return fmt.Sprintf("%q cannot be added right now: price unavailable", slug)
	default:
		return err.Error()
	}
}

// updateFailureMessage maps a validation failure during UpdateQuantity to its
// user-facing copy, distinct from the AddToCart copy for the same failure.
func updateFailureMessage(slug string, quantity int, err error) string {
	var (
		notFound     *ItemNotFoundError
		noPrice      *PriceUnavailableError
		insufficient *InsufficientInventoryError
	)
	switch {
	case errors.As(err, &insufficient):
		return fmt.Sprintf("Cannot set %q quantity to %d: only %d in stock",
			slug, quantity, insufficient.Available)
	case errors.As(err, &notFound):
		return fmt.Sprintf("Cannot update %q: item is no longer available", slug)
	case errors.As(err, &noPrice):
		return fmt.Sprintf("%q cannot be updated right now: price unavailable", slug)
	default:
		return err.Error()
	}
}
