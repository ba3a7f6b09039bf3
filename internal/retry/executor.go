package retry

import (
	"context"
	"time"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Executor runs an operation, retrying transient failures with backoff.
//
// Thread Safety: Execute is safe for concurrent use. WithOnRetry returns a
// copy and leaves the receiver unchanged.
type Executor struct {
	classifier ErrorClassifier
	strategy   BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor panics if classifier or strategy is nil.
func NewExecutor(classifier ErrorClassifier, strategy BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// NewConflictExecutor retries transaction conflicts with the default backoff
// and logs each retry.
func NewConflictExecutor(logger dbobj.Logger) *Executor {
	strategy := NewExponentialBackoff(dbobj.DefaultRetryMaxAttempts,
		WithInitialDelay(dbobj.DefaultRetryInitialDelay),
		WithMaxDelay(dbobj.DefaultRetryMaxDelay),
	)
	return NewExecutor(NewConflictClassifier(), strategy).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Warn("transaction conflict, retry %d in %v: %v", attempt+1, delay.Round(time.Millisecond), err)
		})
}

// WithOnRetry returns a copy of e that calls callback before each retry.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute returns nil on the first success, the first fatal error, or the
// last error once retries are exhausted. Cancellation of ctx ends the wait.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	lastErr := operation(ctx)
	if lastErr == nil || !e.classifier.IsTransient(lastErr) {
		return lastErr
	}

	maxAttempts := e.strategy.MaxAttempts()
	for attempt := 0; maxAttempts < 0 || attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		lastErr = operation(ctx)
		if lastErr == nil || !e.classifier.IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
