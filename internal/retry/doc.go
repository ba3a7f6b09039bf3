// Package retry re-runs operations that failed on a transaction conflict.
//
// Only lock-not-available, serialization-failure and deadlock errors are
// retried. Connectivity errors are never retried: an unreachable endpoint
// aborts the command.
//
//	executor := retry.NewConflictExecutor(logger)
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return applyPublicationDelta(ctx, conn)
//	})
package retry
