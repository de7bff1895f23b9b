// Package sqlite mirrors the current identity into a device-local SQLite file.
// The mirror is never authoritative: the user store always wins.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/nhangara/identity-server/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	migrationsDir = "migrations"
	currentSlot   = "current"
)

var _ model.LocalCache = (*Cache)(nil)

// Cache implements model.LocalCache on a single-row table.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the SQLite database at dsn and applies the cache schema.
func Open(ctx context.Context, dsn string) (*Cache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// SQLite allows one writer, and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// Migrate applies the embedded cache schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to open embedded cache migrations: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys, goose.WithDisableGlobalRegistry(true))
	if err != nil {
		return fmt.Errorf("failed to create cache migration provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply cache migrations: %w", err)
	}
	return nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Cache {
	return &Cache{db: db, now: time.Now}
}

func (c *Cache) Load(ctx context.Context) (model.CachedIdentity, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM identity_cache WHERE slot = ?`, currentSlot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CachedIdentity{}, model.ErrNotFound
	}
	if err != nil {
		return model.CachedIdentity{}, fmt.Errorf("failed to load cached identity: %w", err)
	}

	var identity model.CachedIdentity
	if err := json.Unmarshal(payload, &identity); err != nil {
		return model.CachedIdentity{}, fmt.Errorf("failed to decode cached identity: %w", err)
	}
	return identity, nil
}

func (c *Cache) Save(ctx context.Context, identity model.CachedIdentity) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode cached identity: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO identity_cache (slot, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, currentSlot, payload, c.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save cached identity: %w", err)
	}
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM identity_cache WHERE slot = ?`, currentSlot); err != nil {
		return fmt.Errorf("failed to clear cached identity: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
