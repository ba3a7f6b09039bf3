package dbobj

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBConnection abstracts the database operations the replication configurator needs.
// It decouples the engine from pgx pool types so tests can substitute a fake.
//
// Thread-Safety: Implementations follow their underlying connection's
// guarantees. Pool-backed implementations are safe for concurrent use.
type DBConnection interface {
	// Exec executes a statement without returning any rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// QueryRow executes a query that is expected to return at most one row.
	// Errors are deferred until Row's Scan method is called.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// QueryStrings runs a query returning a single text column and collects it.
	QueryStrings(ctx context.Context, sql string, args ...any) ([]string, error)

	// Begin starts a transaction. The caller must Commit or Rollback it.
	Begin(ctx context.Context) (Tx, error)

	// Ping verifies the endpoint is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close()
}

// Tx is a database transaction.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Row represents a single row returned by QueryRow.
type Row interface {
	// Scan reads the values from the row into dest values.
	Scan(dest ...any) error
}
