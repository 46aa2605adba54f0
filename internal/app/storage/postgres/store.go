// Package postgres implements the storage interfaces on PostgreSQL via
// sqlx. Schema management is embedded: Migrate applies the bundled
// migrations with golang-migrate.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/opsdeck/backoffice/internal/app/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config carries the connection settings the store needs.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var (
	_ storage.UserStore     = (*Store)(nil)
	_ storage.RoleStore     = (*Store)(nil)
	_ storage.MenuStore     = (*Store)(nil)
	_ storage.ApiStore      = (*Store)(nil)
	_ storage.DeptStore     = (*Store)(nil)
	_ storage.AuditLogStore = (*Store)(nil)
	_ storage.ProductStore  = (*Store)(nil)
)

// New wraps an existing database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Connect opens and pings the database, applying the pool settings.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate applies any pending embedded migrations.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(s.db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// mapErr folds driver errors into the storage sentinels: no rows becomes
// ErrNotFound, unique violations ErrConflict, foreign key violations
// ErrNotFound on the referenced entity.
func mapErr(err error, entity string, key any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", entity, key, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s %v: %w", entity, key, storage.ErrConflict)
		case "23503":
			return fmt.Errorf("%s %v references a missing row: %w", entity, key, storage.ErrNotFound)
		}
	}
	return err
}

// nullStr maps empty strings to NULL for nullable unique columns.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullJSON maps empty raw messages to NULL for jsonb columns.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// inTx runs fn inside a transaction, committing on nil error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
