// Command catalog-stub is a development stand-in for the product catalog
// collaborator. It loads product records from one or more seed files (JSON,
// optionally gzip-compressed) and serves the single lookup endpoint the cart
// consumes: GET /api/products/{slug}.
package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-cart/pkg/health"
	"github.com/xenking/storefront-cart/pkg/httpmiddleware"
)

// Config holds the stub configuration (STUB_ env prefix or YAML file).
type Config struct {
	Addr            string        `default:"0.0.0.0:8081" usage:"Listen address"`
	Seeds           []string      `default:"products.json" usage:"Product seed files (.json or .json.gz)"`
	CORSOrigins     []string      `default:"*" usage:"Allowed CORS origins"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration"`
}

// seedProduct is one catalog record in a seed file and on the wire.
type seedProduct struct {
	Slug      string          `json:"slug"`
	ProductID string          `json:"productId"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		var cfg Config
		loader := aconfig.LoaderFor(&cfg, aconfig.Config{
			SkipFlags: true,
			EnvPrefix: "STUB",
			Files:     []string{"catalog-stub.yaml"},
			FileDecoders: map[string]aconfig.FileDecoder{
				".yaml": aconfigyaml.New(),
			},
		})
		if err := loader.Load(); err != nil {
			return errors.Wrap(err, "load config")
		}
		return run(ctx, lg, cfg)
	})
}

func run(ctx context.Context, lg *zap.Logger, cfg Config) error {
	products, err := loadSeeds(ctx, cfg.Seeds)
	if err != nil {
		return err
	}

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("GET /api/products/{slug}", lookupHandler(products))

	server := &http.Server{
		Addr:              cfg.Addr,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(cfg.CORSOrigins),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.LogRequests(),
		),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Catalog stub listening",
			zap.String("addr", cfg.Addr),
			zap.Int("products", len(products)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		healthSvc.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// lookupHandler serves {"product": {...}} for known slugs and
// {"product": null} otherwise, matching the collaborator's wire contract.
func lookupHandler(products map[string]seedProduct) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")

		var resp struct {
			Product *seedProduct `json:"product"`
		}
		if p, ok := products[slug]; ok {
			resp.Product = &p
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
}

// loadSeeds reads all seed files concurrently and merges them into one slug
// index. Later files win on slug collisions.
func loadSeeds(ctx context.Context, paths []string) (map[string]seedProduct, error) {
	results := make([][]seedProduct, len(paths))

	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			ps, err := readSeedFile(path)
			if err != nil {
				return errors.Wrapf(err, "seed %s", path)
			}
			results[i] = ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]seedProduct)
	for _, ps := range results {
		for _, p := range ps {
			merged[p.Slug] = p
		}
	}
	return merged, nil
}

func readSeedFile(path string) ([]seedProduct, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	var ps []seedProduct
	if err := json.NewDecoder(r).Decode(&ps); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return ps, nil
}
