package app

import (
	"os"
	"path/filepath"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the cart client configuration, loadable from environment
// variables (CART_ prefix) or YAML config files.
type Config struct {
	CatalogURL  string `default:"http://localhost:8081" usage:"Base URL of the product catalog API"`
	StoragePath string `usage:"Path to the local cart database (defaults to the user config dir)"`
	SessionPath string `usage:"Path to the auth session file (defaults to the user config dir)"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then fills in per-user default paths.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "CART",
		Files:     []string{"config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.applyDefaultPaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaultPaths places the cart database and session file under the
// user's config directory when not configured explicitly.
func (c *Config) applyDefaultPaths() error {
	if c.StoragePath != "" && c.SessionPath != "" {
		return nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return errors.Wrap(err, "resolve user config dir")
	}
	base := filepath.Join(dir, "storefront")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	if c.StoragePath == "" {
		c.StoragePath = filepath.Join(base, "cart.db")
	}
	if c.SessionPath == "" {
		c.SessionPath = filepath.Join(base, "session.json")
	}
	return nil
}
