// Package database owns the PostgreSQL schema and applies it with goose.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// upProvider is a seam for testing Provider.Up.
var upProvider = func(ctx context.Context, p *goose.Provider) ([]*goose.MigrationResult, error) {
	return p.Up(ctx)
}

// Migrate opens a short-lived connection to dsn and applies all pending migrations.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	return MigrateDB(ctx, db)
}

// NewProvider builds a goose provider for the embedded schema. Replicas
// starting together serialize on a Postgres advisory lock.
func NewProvider(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, fmt.Errorf("failed to create migration lock: %w", err)
	}

	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys,
		goose.WithSessionLocker(locker),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return p, nil
}

// MigrateDB applies all pending migrations using db.
func MigrateDB(ctx context.Context, db *sql.DB) error {
	p, err := NewProvider(db)
	if err != nil {
		return err
	}
	if _, err := upProvider(ctx, p); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
