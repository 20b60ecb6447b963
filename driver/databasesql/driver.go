// Package databasesql provides a database/sql driver implementation for memorykeep.
//
// It works with any database/sql connection whose dialect is supported by
// storage.SchemaStatements: Postgres through github.com/lib/pq and SQLite
// through modernc.org/sqlite.
//
// Usage:
//
//	db, _ := sql.Open("sqlite", "file:memorykeep.db")
//	drv := databasesql.New(db, storage.DialectSQLite)
//	if err := drv.Migrate(ctx); err != nil { ... }
package databasesql

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/youssefsiam38/memorykeep/driver"
	"github.com/youssefsiam38/memorykeep/driver/sqlstore"
	"github.com/youssefsiam38/memorykeep/storage"
)

// Driver implements driver.Driver using database/sql.
type Driver struct {
	db      *sql.DB
	dialect storage.Dialect
}

// New creates a new database/sql driver using the provided connection.
func New(db *sql.DB, dialect storage.Dialect) *Driver {
	return &Driver{db: db, dialect: dialect}
}

var _ driver.Driver[*sql.Tx] = (*Driver)(nil)

// GetExecutor returns an executor for non-transactional operations.
func (d *Driver) GetExecutor() driver.Executor {
	return &Executor{db: d.db}
}

// UnwrapExecutor converts a *sql.Tx to an ExecutorTx.
func (d *Driver) UnwrapExecutor(tx *sql.Tx) driver.ExecutorTx {
	return &ExecutorTx{tx: tx}
}

// Begin starts a new transaction.
func (d *Driver) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &ExecutorTx{tx: tx}, nil
}

// PoolIsSet returns true if the driver has a database connection configured.
func (d *Driver) PoolIsSet() bool {
	return d.db != nil
}

// GetStore returns a Store implementation using this driver.
func (d *Driver) GetStore() storage.Store {
	return sqlstore.New(d.GetExecutor())
}

// Migrate creates the memorykeep tables if they do not exist.
func (d *Driver) Migrate(ctx context.Context) error {
	return driver.Migrate(ctx, d.GetExecutor(), d.dialect)
}

// Dialect returns the SQL dialect of the underlying connection.
func (d *Driver) Dialect() storage.Dialect {
	return d.dialect
}

// DB returns the underlying database connection.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Executor wraps *sql.DB for non-transactional operations.
type Executor struct {
	db *sql.DB
}

// Begin starts a new transaction.
func (e *Executor) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &ExecutorTx{tx: tx}, nil
}

// Exec executes a query that doesn't return rows.
func (e *Executor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Query executes a query that returns rows.
func (e *Executor) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

// QueryRow executes a query that returns at most one row.
func (e *Executor) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return e.db.QueryRowContext(ctx, query, args...)
}

// savepointSeq names savepoints uniquely across nested transactions.
var savepointSeq atomic.Int64

// ExecutorTx wraps *sql.Tx for transactional operations.
// A non-empty savepoint means this value is a nested transaction.
type ExecutorTx struct {
	tx        *sql.Tx
	savepoint string
}

// Begin starts a nested transaction using a savepoint.
func (e *ExecutorTx) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	name := fmt.Sprintf("memorykeep_sp_%d", savepointSeq.Add(1))
	if _, err := e.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, err
	}
	return &ExecutorTx{tx: e.tx, savepoint: name}, nil
}

// Exec executes a query that doesn't return rows within the transaction.
func (e *ExecutorTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := e.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Query executes a query that returns rows within the transaction.
func (e *ExecutorTx) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	rows, err := e.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

// QueryRow executes a query that returns at most one row within the transaction.
func (e *ExecutorTx) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return e.tx.QueryRowContext(ctx, query, args...)
}

// Commit commits the transaction or releases the savepoint.
func (e *ExecutorTx) Commit(ctx context.Context) error {
	if e.savepoint != "" {
		_, err := e.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+e.savepoint)
		return err
	}
	return e.tx.Commit()
}

// Rollback rolls back the transaction or rolls back to the savepoint.
func (e *ExecutorTx) Rollback(ctx context.Context) error {
	if e.savepoint != "" {
		_, err := e.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+e.savepoint)
		return err
	}
	return e.tx.Rollback()
}

// rowsWrapper adapts *sql.Rows to driver.Rows.
type rowsWrapper struct {
	rows *sql.Rows
}

func (r *rowsWrapper) Close()                 { _ = r.rows.Close() }
func (r *rowsWrapper) Err() error             { return r.rows.Err() }
func (r *rowsWrapper) Next() bool             { return r.rows.Next() }
func (r *rowsWrapper) Scan(dest ...any) error { return r.rows.Scan(dest...) }
