// Package sqlite implements the cart persistence contract on a local SQLite
// file. This is the durable per-identity store: one row per identity key,
// holding the JSON-serialized cart.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	_ "modernc.org/sqlite"

	"github.com/xenking/storefront-cart/db"
	"github.com/xenking/storefront-cart/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

const (
	loadCartSQL = `SELECT payload FROM carts WHERE key = ?`

	saveCartSQL = `INSERT INTO carts (key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
)

// CartRepository implements cart.Repository backed by SQLite.
type CartRepository struct {
	sqlDB *sql.DB

	now func() time.Time
}

// Open opens (or creates) the cart store at path and applies the embedded
// schema.
func Open(path string) (*CartRepository, error) {
	if path == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cart store: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging cart store: %w", err)
	}
	if _, err := sqlDB.Exec(db.Schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &CartRepository{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the underlying database handle.
func (r *CartRepository) Close() error {
	return r.sqlDB.Close()
}

// Load reads and validates the cart stored under key. An unknown key yields
// an empty cart; a payload that fails schema validation yields an error
// wrapping cart.ErrCorruptPayload.
func (r *CartRepository) Load(ctx context.Context, key string) (cart.Cart, error) {
	var payload []byte
	err := r.sqlDB.QueryRowContext(ctx, loadCartSQL, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return cart.Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart %q: %w", key, err)
	}

	c, err := cart.DecodeCart(payload)
	if err != nil {
		return nil, fmt.Errorf("loading cart %q: %w", key, err)
	}
	return c, nil
}

// Save upserts the whole cart under key.
func (r *CartRepository) Save(ctx context.Context, key string, c cart.Cart) error {
	payload := cart.EncodeCart(c)
	_, err := r.sqlDB.ExecContext(ctx, saveCartSQL, key, payload, r.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("saving cart %q: %w", key, err)
	}
	return nil
}
