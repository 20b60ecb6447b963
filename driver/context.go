package driver

import "context"

// executorTxContextKey is the context key for storing ExecutorTx.
type executorTxContextKey struct{}

// WithExecutor returns a new context carrying the given transaction.
// Store operations called with the returned context run inside it.
//
// Example:
//
//	tx, _ := drv.Begin(ctx)
//	txCtx := driver.WithExecutor(ctx, tx)
//	_, _ = store.DeleteEntries(txCtx, conversationID)
//	_, _ = store.AppendEntry(txCtx, params)
//	_ = tx.Commit(ctx)
func WithExecutor(ctx context.Context, exec ExecutorTx) context.Context {
	return context.WithValue(ctx, executorTxContextKey{}, exec)
}

// ExecutorFromContext retrieves the transaction from context, or nil if not present.
func ExecutorFromContext(ctx context.Context) ExecutorTx {
	if exec, ok := ctx.Value(executorTxContextKey{}).(ExecutorTx); ok {
		return exec
	}
	return nil
}
