package identity

// guestName is the display name substituted when no shopper is signed in.
const guestName = "guest"

// Identity describes the current shopper as far as the cart subsystem cares:
// only the display name is read, and only to derive a storage key.
type Identity struct {
	// Name is the shopper's display name. Empty when unauthenticated.
	Name string
}

// Guest returns the unauthenticated identity.
func Guest() Identity { return Identity{} }

// Key derives the storage key isolating this identity's cart from other
// shoppers' carts in the same store: "cart-" plus the display name, with
// "guest" substituted when unauthenticated.
func (i Identity) Key() string {
	name := i.Name
	if name == "" {
		name = guestName
	}
	return "cart-" + name
}

// Provider supplies the identity effective at call time. The cart reads it
// on every hydration and persistence write, so a login or logout between
// operations takes effect immediately.
type Provider interface {
	Current() Identity
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func() Identity

func (f ProviderFunc) Current() Identity { return f() }
