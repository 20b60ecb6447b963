// Package database opens the store selected by the service configuration.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/youssefsiam38/memorykeep/driver/databasesql"
	"github.com/youssefsiam38/memorykeep/driver/pgxv5"
	"github.com/youssefsiam38/memorykeep/internal/config"
	"github.com/youssefsiam38/memorykeep/storage"
	"github.com/youssefsiam38/memorykeep/storage/memstore"
)

// DB is an open store with its lifecycle.
type DB struct {
	Store storage.Store

	migrate func(ctx context.Context) error
	close   func()
}

// Migrate creates the memorykeep tables if they do not exist.
// It is a no-op for the memory driver.
func (db *DB) Migrate(ctx context.Context) error {
	if db.migrate == nil {
		return nil
	}
	return db.migrate(ctx)
}

// Close releases the underlying connections.
func (db *DB) Close() {
	if db.close != nil {
		db.close()
	}
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return &DB{Store: memstore.New()}, nil

	case config.DriverPgx:
		pool, err := pgxpool.New(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		drv := pgxv5.New(pool)
		return &DB{Store: drv.GetStore(), migrate: drv.Migrate, close: pool.Close}, nil

	case config.DriverPostgres:
		return openSQL(ctx, "postgres", cfg.URL, storage.DialectPostgres)

	case config.DriverSQLite:
		return openSQL(ctx, "sqlite", cfg.URL, storage.DialectSQLite)

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func openSQL(ctx context.Context, driverName, url string, dialect storage.Dialect) (*DB, error) {
	db, err := sql.Open(driverName, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == storage.DialectSQLite {
		// SQLite allows one writer; a single connection serializes
		// transactions instead of failing them with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	drv := databasesql.New(db, dialect)
	return &DB{
		Store:   drv.GetStore(),
		migrate: drv.Migrate,
		close:   func() { _ = db.Close() },
	}, nil
}
