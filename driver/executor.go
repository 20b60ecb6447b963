package driver

import "context"

// Row is a single result row. Both pgx.Row and *sql.Row satisfy it.
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set. Drivers wrap pgx.Rows and *sql.Rows to match it.
type Rows interface {
	Close()
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// Executor runs statements against either a connection pool or a transaction.
type Executor interface {
	// Begin starts a new transaction, or a savepoint when called on a transaction.
	Begin(ctx context.Context) (ExecutorTx, error)

	// Exec executes a statement and returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// ExecutorTx is an Executor bound to an open transaction.
type ExecutorTx interface {
	Executor

	// Commit commits the transaction, or releases the savepoint.
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction, or rolls back to the savepoint.
	Rollback(ctx context.Context) error
}
