package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/catalog"
	"github.com/xenking/storefront-cart/internal/domain/identity"
	"github.com/xenking/storefront-cart/internal/notify"
)

// --- Mock implementations ---

type stubLookup struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	err      error
	delay    time.Duration
	onCall   func()
	calls    int
}

func (m *stubLookup) BySlug(_ context.Context, slug string) (*catalog.Product, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.onCall != nil {
		m.onCall()
	}
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[slug]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (m *stubLookup) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type memRepo struct {
	mu      sync.Mutex
	carts   map[string]Cart
	loadErr error
	saves   int
}

func newMemRepo() *memRepo {
	return &memRepo{carts: make(map[string]Cart)}
}

func (r *memRepo) Load(_ context.Context, key string) (Cart, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[key]
	if !ok {
		return Cart{}, nil
	}
	return c.Clone(), nil
}

func (r *memRepo) Save(_ context.Context, key string, c Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[key] = c.Clone()
	r.saves++
	return nil
}

func (r *memRepo) stored(key string) Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.carts[key].Clone()
}

func (r *memRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type captureNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (n *captureNotifier) Notify(msg notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, msg)
}

func (n *captureNotifier) last() notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notes) == 0 {
		return notify.Notification{}
	}
	return n.notes[len(n.notes)-1]
}

// --- Helpers ---

type testEnv struct {
	store    *Store
	lookup   *stubLookup
	repo     *memRepo
	notifier *captureNotifier
	name     string // mutable identity name, "" = guest
}

func newTestEnv(products map[string]catalog.Product) *testEnv {
	env := &testEnv{
		lookup:   &stubLookup{products: products},
		repo:     newMemRepo(),
		notifier: &captureNotifier{},
	}
	provider := identity.ProviderFunc(func() identity.Identity {
		return identity.Identity{Name: env.name}
	})
	env.store = NewStore(NewValidator(env.lookup), env.repo, provider, env.notifier, zap.NewNop())
	return env
}

func snapshot(id string, priceStr string, available int) catalog.Product {
	return catalog.Product{ProductID: id, Price: price(priceStr), Available: available}
}

// --- Tests ---

func TestAddToCart_EmptyCart(t *testing.T) {
	env := newTestEnv(map[string]catalog.Product{
		"sku1": snapshot("123", "100", 10),
	})
	ctx := context.Background()
	require.NoError(t, env.store.Hydrate(ctx))

	require.NoError(t, env.store.AddToCart(ctx, "sku1"))

	items := env.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items["sku1"].Quantity)
	assert.True(t, items["sku1"].Price.Equal(price("100")))
	assert.Equal(t, "123", items["sku1"].ProductID)

	// Persisted under the guest key after the mutation.
	assert.Equal(t, items, env.repo.stored("cart-guest"))
	assert.Equal(t, `Added "sku1" to your cart`, env.notifier.last().Message)
}

func TestAddToCart_InsufficientInventoryLeavesCartUnchanged(t *testing.T) {
	env := newTestEnv(map[string]catalog.Product{
		"sku1": snapshot("123", "100", 9),
	})
	ctx := context.Background()
	env.repo.carts["cart-guest"] = Cart{"sku1": {Quantity: 9, Price: price("100"), ProductID: "123"}}
	require.NoError(t, env.store.Hydrate(ctx))
	before := env.store.Items()

	err := env.store.AddToCart(ctx, "sku1")

	var invErr *InsufficientInventoryError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, before, env.store.Items(), "failed operation must not mutate the cart")

	note := env.notifier.last()
	assert.Equal(t, notify.SeverityError, note.Severity)
	assert.Equal(t, `Cannot add another "sku1": only 9 in stock`, note.Message)
}

func TestAddToCart_BoundaryStock(t *testing.T) {
	env := newTestEnv(map[string]catalog.Product{
		"sku1": snapshot("123", "100", 10),
	})
	ctx := context.Background()
	env.repo.carts["cart-guest"] = Cart{"sku1": {Quantity: 9, Price: price("100"), ProductID: "123"}}
	require.NoError(t, env.store.Hydrate(ctx))

	// available(10) >= current(9)+1 succeeds.
	require.NoError(t, env.store.AddToCart(ctx, "sku1"))
	assert.Equal(t, 10, env.store.Items()["sku1"].Quantity)

	// available(10) == current(10) fails.
	err := env.store.AddToCart(ctx, "sku1")
	var invErr *InsufficientInventoryError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, 10, env.store.Items()["sku1"].Quantity)
}

func TestAddToCart_ItemNotFound(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()
	require.NoError(t, env.store.Hydrate(ctx))

	err := env.store.AddToCart(ctx, "ghost")

	var nfErr *ItemNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Empty(t, env.store.Items())
	assert.Equal(t, `Sorry, "ghost" is no longer available`, env.notifier.last().Message)
}

func TestAddToCart_TransportErrorPassesRawMessage(t *testing.T) {
	env := newTestEnv(nil)
	env.lookup.err = errors.New("dial tcp: connection refused")
	ctx := context.Background()
	require.NoError(t, env.store.Hydrate(ctx))

	err := env.store.AddToCart(ctx, "sku1")

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "dial tcp: connection refused", env.notifier.last().Message)
}

func TestRemoveFromCart_AbsentIsIdempotent(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()
	require.NoError(t, env.store.Hydrate(ctx))

	require.NoError(t, env.store.RemoveFromCart(ctx, "missing"))
	assert.Empty(t, env.store.Items())
	assert.Zero(t, env.lookup.callCount(), "remove never validates")
}

func TestUpdateQuantity_ZeroRemovesWithoutLookup(t *testing.T) {
	env := newTestEnv(map[string]catalog.Product{
		"sku1": snapshot("123", "100", 10),
	})
	ctx := context.Background()
	env.repo.carts["cart-guest"] = Cart{"sku1": {Quantity: 2, Price: price("100"), ProductID: "123"}}
	require.NoError(t, env.store.Hydrate(ctx))

	require.NoError(t, env.store.UpdateQuantity(ctx, "sku1", 0))

	assert.Empty(t, env.store.Items())
	assert.Empty(t, env.repo.stored("cart-guest"))
	assert.Zero(t, env.lookup.callCount(), "removal must not round-trip to the catalog")
}

func TestUpdateQuantity_SetsExactLine(t *testing.T) {
	env := newTestEnv(map[string]catalog.Product{
		"sku1": snapshot("123", "110", 10),
	})
	ctx := context.Background()
	env.repo.carts["cart-guest"] = Cart{"sku1": {Quantity: 2, Price: price("100"), ProductID: "123"}}
	require.NoError(t, env.store.Hydrate(ctx))

	require.NoError(t, env.store.UpdateQuantity(ctx, "sku1", 7))

	item := env.store.Items()["sku1"]
	assert.Equal(t, 7, item.Quantity)
	assert.True(t, item.Price.Equal(price("110")), "price refreshed from the latest snapshot")
	assert.Equal(t, `Updated "sku1" quantity to 7`, env.notifier.last().Message)
}

func TestUpdateQuantity_InsufficientInventoryMessageDiffersFromAdd(t *testing.T) {
	env := newTestEnv(map[string]catalog.Product{
		"sku1": snapshot("123", "100", 3),
	})
	ctx := context.Background()
	require.NoError(t, env.store.Hydrate(ctx))

	err := env.store.UpdateQuantity(ctx, "sku1", 5)

	var invErr *InsufficientInventoryError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, `Cannot set "sku1" quantity to 5: only 3 in stock`, env.notifier.last().Message)
}

func TestClearCart(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()
	env.repo.carts["cart-guest"] = Cart{
		"sku1": {Quantity: 2, Price: price("100"), ProductID: "123"},
		"sku2": {Quantity: 1, Price: price("50"), ProductID: "456"},
	}
	require.NoError(t, env.store.Hydrate(ctx))

	require.NoError(t, env.store.ClearCart(ctx))

	assert.Empty(t, env.store.Items())
	assert.Empty(t, env.repo.stored("cart-guest"))
	assert.Zero(t, env.lookup.callCount())
	assert.Equal(t, "Cart cleared", env.notifier.last().Message)
}

func TestHydrate_IdentitySwitchReplacesCart(t *testing.T) {
	env := newTestEnv(map[string]catalog.Product{
		"sku1": snapshot("123", "100", 10),
		"sku2": snapshot("456", "50", 5),
	})
	ctx := context.Background()
	require.NoError(t, env.store.Hydrate(ctx))
	require.NoError(t, env.store.AddToCart(ctx, "sku1"))

	// Login: subsequent loads and saves use the new identity key.
	env.name = "alice"
	require.NoError(t, env.store.Hydrate(ctx))
	assert.Empty(t, env.store.Items(), "no merge across identities")

	require.NoError(t, env.store.AddToCart(ctx, "sku2"))
	assert.Len(t, env.repo.stored("cart-alice"), 1)

	// The guest cart stays stored, just not visible.
	guest := env.repo.stored("cart-guest")
	assert.Equal(t, 1, guest["sku1"].Quantity)
	assert.NotContains(t, guest, "sku2")
}

func TestHydrate_CorruptPayloadResetsWithWarning(t *testing.T) {
	env := newTestEnv(nil)
	env.repo.loadErr = fmt.Errorf("loading cart: %w", ErrCorruptPayload)

	require.NoError(t, env.store.Hydrate(context.Background()))

	assert.Empty(t, env.store.Items())
	note := env.notifier.last()
	assert.Equal(t, notify.SeverityWarn, note.Severity)
	assert.Equal(t, "Your saved cart could not be read and was reset", note.Message)
}

func TestHydrate_OtherLoadErrorsSurface(t *testing.T) {
	env := newTestEnv(nil)
	env.repo.loadErr = errors.New("disk on fire")

	err := env.store.Hydrate(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk on fire")
}

func TestAddToCart_CancelledBeforeDispatch(t *testing.T) {
	env := newTestEnv(map[string]catalog.Product{
		"sku1": snapshot("123", "100", 10),
	})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, env.store.Hydrate(ctx))
	savesBefore := env.repo.saveCount()

	// The lookup resolves after the owning context is torn down.
	env.lookup.onCall = cancel

	err := env.store.AddToCart(ctx, "sku1")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, env.store.Items(), "cancelled operation must not dispatch")
	assert.Equal(t, savesBefore, env.repo.saveCount())
}

func TestAddToCart_SameSlugConcurrentAddsSerialize(t *testing.T) {
	env := newTestEnv(map[string]catalog.Product{
		"sku1": snapshot("123", "100", 1),
	})
	ctx := context.Background()
	require.NoError(t, env.store.Hydrate(ctx))
	env.lookup.delay = 10 * time.Millisecond

	errs := make(chan error, 2)
	for range 2 {
		go func() {
			errs <- env.store.AddToCart(ctx, "sku1")
		}()
	}

	var failures int
	for range 2 {
		if err := <-errs; err != nil {
			var invErr *InsufficientInventoryError
			require.ErrorAs(t, err, &invErr)
			failures++
		}
	}

	// With only one unit in stock, serialized validation admits exactly one add.
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, env.store.Items()["sku1"].Quantity)
	assert.Equal(t, 2, env.lookup.callCount())
}

func TestOperations_PersistEveryMutation(t *testing.T) {
	env := newTestEnv(map[string]catalog.Product{
		"sku1": snapshot("123", "100", 10),
	})
	ctx := context.Background()
	require.NoError(t, env.store.Hydrate(ctx))

	require.NoError(t, env.store.AddToCart(ctx, "sku1"))
	require.NoError(t, env.store.UpdateQuantity(ctx, "sku1", 3))
	require.NoError(t, env.store.RemoveFromCart(ctx, "sku1"))
	require.NoError(t, env.store.ClearCart(ctx))

	assert.Equal(t, 4, env.repo.saveCount())
}
