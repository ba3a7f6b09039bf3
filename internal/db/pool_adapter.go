package db

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// PoolAdapter adapts *pgxpool.Pool to the dbobj.DBConnection interface so the
// replication engine never handles pgx types directly.
//
// Thread-Safety: Safe for concurrent use (pgxpool.Pool is thread-safe).
type PoolAdapter struct {
	pool   *pgxpool.Pool
	closer io.Closer
}

// NewPoolAdapter wraps pool. closer, when non-nil, is closed after the pool;
// connectors holding dialers pass themselves here.
func NewPoolAdapter(pool *pgxpool.Pool, closer io.Closer) *PoolAdapter {
	return &PoolAdapter{pool: pool, closer: closer}
}

// Open connects to the endpoint described by config using the connector for
// its auth method.
func Open(ctx context.Context, config *dbobj.ConnectionConfig, logger dbobj.Logger) (*PoolAdapter, error) {
	connector, err := NewConnector(config, logger)
	if err != nil {
		return nil, err
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		if c, ok := connector.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	closer, _ := connector.(io.Closer)
	return NewPoolAdapter(pool, closer), nil
}

func (p *PoolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

func (p *PoolAdapter) QueryRow(ctx context.Context, sql string, args ...any) dbobj.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// QueryStrings collects the first column of every row as text.
func (p *PoolAdapter) QueryStrings(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read query result: %w", err)
	}
	return values, nil
}

func (p *PoolAdapter) Begin(ctx context.Context) (dbobj.Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (p *PoolAdapter) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the pool and then any connector resources.
func (p *PoolAdapter) Close() {
	p.pool.Close()
	if p.closer != nil {
		_ = p.closer.Close()
	}
}

// Verify PoolAdapter implements DBConnection at compile time
var _ dbobj.DBConnection = (*PoolAdapter)(nil)
