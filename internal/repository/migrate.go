package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq" // postgres driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Seams over goose for tests.
var (
	gooseUpContext     = goose.UpContext
	gooseDownContext   = goose.DownContext
	gooseDownToContext = goose.DownToContext
	gooseStatusContext = goose.StatusContext
)

// Migrator applies the embedded schema migrations.
type Migrator struct {
	db *sql.DB
}

// OpenMigrator opens a database/sql handle dedicated to migrations.
func OpenMigrator(ctx context.Context, databaseURL string) (*Migrator, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewMigrator(db)
}

// NewMigrator configures goose to read migrations from the embedded FS.
func NewMigrator(db *sql.DB) (*Migrator, error) {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return &Migrator{db: db}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	if err := gooseUpContext(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := gooseDownContext(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Status logs the applied state of every migration.
func (m *Migrator) Status(ctx context.Context) error {
	if err := gooseStatusContext(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("migrate status: %w", err)
	}
	return nil
}

// Reset rolls back every migration and re-applies them, leaving empty tables.
func (m *Migrator) Reset(ctx context.Context) error {
	if err := gooseDownToContext(ctx, m.db, migrationsDir, 0); err != nil {
		return fmt.Errorf("migrate reset: %w", err)
	}
	return m.Up(ctx)
}

// Close releases the underlying database handle.
func (m *Migrator) Close() error {
	return m.db.Close()
}
