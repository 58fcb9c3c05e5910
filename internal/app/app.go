package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/go-faster/errors"
	sdkapp "github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/httpcatalog"
	"github.com/xenking/storefront-cart/internal/notify"
	"github.com/xenking/storefront-cart/internal/session"
	"github.com/xenking/storefront-cart/internal/storage/sqlite"
	"github.com/xenking/storefront-cart/pkg/httpclient"
)

// Run wires the cart subsystem (catalog client, local store, session
// provider, notifier) and executes a single CLI command against it. It is the
// single wiring point for the client.
func Run(ctx context.Context, lg *zap.Logger, m *sdkapp.Telemetry, cfg *Config, args []string) error {
	repo, err := sqlite.Open(cfg.StoragePath)
	if err != nil {
		return errors.Wrap(err, "open cart store")
	}
	defer func() { _ = repo.Close() }()

	transport := httpclient.Wrap(nil,
		httpclient.Instrument(m.TracerProvider(), m.MeterProvider()),
		httpclient.RequestID(),
		httpclient.LogRequests(),
	)
	lookup := httpcatalog.NewClient(cfg.CatalogURL, transport)
	provider := session.NewFileProvider(cfg.SessionPath, lg)
	notifier := notify.NewWriterNotifier(os.Stdout)

	store := cart.NewStore(cart.NewValidator(lookup), repo, provider, notifier, lg)

	// Outbound request logging reads the logger from the context.
	ctx = zctx.Base(ctx, lg)

	if err := store.Hydrate(ctx); err != nil {
		return err
	}
	return runCommand(ctx, store, args)
}

func runCommand(ctx context.Context, store *cart.Store, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: cart <show|add|remove|update|clear> [slug] [quantity]")
	}

	switch command := args[0]; command {
	case "show":
		printCart(store.Items())
		return nil

	case "add":
		if len(args) < 2 {
			return errors.New("usage: cart add <slug>")
		}
		return store.AddToCart(ctx, args[1])

	case "remove":
		if len(args) < 2 {
			return errors.New("usage: cart remove <slug>")
		}
		return store.RemoveFromCart(ctx, args[1])

	case "update":
		if len(args) < 3 {
			return errors.New("usage: cart update <slug> <quantity>")
		}
		quantity, err := strconv.Atoi(args[2])
		if err != nil {
			return errors.Wrapf(err, "parse quantity %q", args[2])
		}
		return store.UpdateQuantity(ctx, args[1], quantity)

	case "clear":
		return store.ClearCart(ctx)

	default:
		return errors.Errorf("unknown command %q", command)
	}
}

func printCart(items cart.Cart) {
	if len(items) == 0 {
		fmt.Println("Your cart is empty")
		return
	}

	slugs := make([]string, 0, len(items))
	for slug := range items {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	total := decimal.Zero
	for _, slug := range slugs {
		item := items[slug]
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
		fmt.Printf("%-30s x%-4d %10s %12s\n", slug, item.Quantity, item.Price.StringFixed(2), line.StringFixed(2))
	}
	fmt.Printf("%-30s %17s %12s\n", "total", "", total.StringFixed(2))
}
