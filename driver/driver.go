// Package driver provides database driver abstractions for memorykeep.
//
// This package defines the interfaces that database drivers must implement
// to back the memory engine. It enables support for multiple database
// backends (pgx/v5, database/sql with Postgres or SQLite) through a generic
// driver pattern.
package driver

import (
	"context"

	"github.com/youssefsiam38/memorykeep/storage"
)

// Driver provides database operations for memorykeep.
// TTx is the native transaction type (e.g., pgx.Tx for pgx/v5, *sql.Tx for database/sql).
//
// Implementations should be created using the driver-specific New() functions:
//   - github.com/youssefsiam38/memorykeep/driver/pgxv5.New(pool)
//   - github.com/youssefsiam38/memorykeep/driver/databasesql.New(db, dialect)
type Driver[TTx any] interface {
	// GetExecutor returns an executor for non-transactional operations.
	GetExecutor() Executor

	// UnwrapExecutor converts a native transaction to an ExecutorTx.
	// This lets callers run store operations inside their own transaction:
	//
	//	ctx = driver.WithExecutor(ctx, drv.UnwrapExecutor(tx))
	UnwrapExecutor(tx TTx) ExecutorTx

	// Begin starts a new transaction and returns an ExecutorTx.
	Begin(ctx context.Context) (ExecutorTx, error)

	// PoolIsSet returns true if the driver has a database pool configured.
	PoolIsSet() bool

	// GetStore returns a Store implementation using this driver.
	GetStore() storage.Store

	// Migrate creates the memorykeep tables if they do not exist.
	Migrate(ctx context.Context) error
}

// Beginner is an interface for types that can begin transactions.
// This is used internally to handle driver abstraction in non-generic contexts.
type Beginner interface {
	Begin(ctx context.Context) (ExecutorTx, error)
}

// RunInTx runs fn in a transaction started from b. If ctx already carries a
// transaction, fn joins it and the outer owner decides commit or rollback.
func RunInTx(ctx context.Context, b Beginner, fn func(ctx context.Context) error) (err error) {
	if ExecutorFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := b.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(WithExecutor(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Migrate runs the dialect's schema statements through exec.
func Migrate(ctx context.Context, exec Executor, dialect storage.Dialect) error {
	stmts, err := storage.SchemaStatements(dialect)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
