// Package pgxv5 provides a pgx/v5 driver implementation for memorykeep.
//
// This is the recommended driver for Postgres deployments. Nested
// transactions are supported through pgx savepoints.
//
// Usage:
//
//	pool, _ := pgxpool.New(ctx, databaseURL)
//	drv := pgxv5.New(pool)
//	if err := drv.Migrate(ctx); err != nil { ... }
//	engine, _ := memorykeep.New(drv.GetStore(), authority, sidecar, nil)
package pgxv5

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/youssefsiam38/memorykeep/driver"
	"github.com/youssefsiam38/memorykeep/driver/sqlstore"
	"github.com/youssefsiam38/memorykeep/storage"
)

// Driver implements driver.Driver for pgx/v5.
type Driver struct {
	pool *pgxpool.Pool
}

// New creates a new pgx/v5 driver with the given connection pool.
func New(pool *pgxpool.Pool) *Driver {
	return &Driver{pool: pool}
}

var _ driver.Driver[pgx.Tx] = (*Driver)(nil)

// GetExecutor returns an executor for non-transactional operations.
func (d *Driver) GetExecutor() driver.Executor {
	return &Executor{executor{d.pool}}
}

// UnwrapExecutor converts a pgx.Tx to an ExecutorTx.
func (d *Driver) UnwrapExecutor(tx pgx.Tx) driver.ExecutorTx {
	return newExecutorTx(tx)
}

// Begin starts a new transaction and returns an ExecutorTx.
func (d *Driver) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	return d.GetExecutor().Begin(ctx)
}

// PoolIsSet returns true if the driver has a database pool configured.
func (d *Driver) PoolIsSet() bool {
	return d.pool != nil
}

// GetStore returns a Store implementation using this driver.
func (d *Driver) GetStore() storage.Store {
	return sqlstore.New(d.GetExecutor())
}

// Migrate creates the memorykeep tables if they do not exist.
func (d *Driver) Migrate(ctx context.Context) error {
	return driver.Migrate(ctx, d.GetExecutor(), storage.DialectPostgres)
}

// Pool returns the underlying pgxpool.Pool for advanced usage.
func (d *Driver) Pool() *pgxpool.Pool {
	return d.pool
}

// querier is the statement surface shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// executor implements the statement methods of driver.Executor on a querier.
type executor struct {
	q querier
}

// Begin starts a transaction, or a savepoint when q is itself a transaction.
func (e executor) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	tx, err := e.q.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return newExecutorTx(tx), nil
}

func (e executor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := e.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (e executor) Query(ctx context.Context, sql string, args ...any) (driver.Rows, error) {
	rows, err := e.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

func (e executor) QueryRow(ctx context.Context, sql string, args ...any) driver.Row {
	return e.q.QueryRow(ctx, sql, args...)
}

// Executor runs statements on the pool.
type Executor struct {
	executor
}

// ExecutorTx runs statements inside a pgx transaction.
type ExecutorTx struct {
	executor
	tx pgx.Tx
}

func newExecutorTx(tx pgx.Tx) *ExecutorTx {
	return &ExecutorTx{executor: executor{tx}, tx: tx}
}

// Commit commits the transaction or releases the savepoint.
func (e *ExecutorTx) Commit(ctx context.Context) error {
	return e.tx.Commit(ctx)
}

// Rollback rolls back the transaction or to the savepoint.
func (e *ExecutorTx) Rollback(ctx context.Context) error {
	return e.tx.Rollback(ctx)
}

// rowsWrapper adapts pgx.Rows to driver.Rows.
type rowsWrapper struct {
	pgx.Rows
}

func (r *rowsWrapper) Close() {
	r.Rows.Close()
}
