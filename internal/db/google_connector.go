package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// GoogleCloudSQLConnector dials a Cloud SQL instance with IAM database
// authentication. Close must be called after the returned pool is closed.
type GoogleCloudSQLConnector struct {
	config   *dbobj.ConnectionConfig
	instance string
	logger   dbobj.Logger
	dialer   *cloudsqlconn.Dialer
}

// NewGoogleCloudSQLConnector takes the instance connection name as project:region:instance.
func NewGoogleCloudSQLConnector(config *dbobj.ConnectionConfig, instance string, logger dbobj.Logger) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{config: config, instance: instance, logger: logger}
}

func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("cloud sql dialer for %s: %w: %w", c.instance, dbobj.ErrConnectionFailed, err)
	}

	pool, err := c.open(ctx, dialer)
	if err != nil {
		dialer.Close()
		return nil, err
	}
	c.dialer = dialer
	return pool, nil
}

func (c *GoogleCloudSQLConnector) open(ctx context.Context, dialer *cloudsqlconn.Dialer) (*pgxpool.Pool, error) {
	// The host is never resolved; DialFunc routes every connection through the dialer.
	poolConfig, err := pgxpool.ParseConfig(fmt.Sprintf("user=%s dbname=%s sslmode=disable", c.config.Username, c.config.Database))
	if err != nil {
		return nil, fmt.Errorf("cloud sql config for %s: %w", c.instance, err)
	}
	poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, c.instance)
	}
	configurePool(poolConfig, c.logger)

	c.logger.Verbose("Connecting to Cloud SQL instance %s as %s", c.instance, c.config.Username)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("cloud sql instance %s: %w: %w", c.instance, dbobj.ErrConnectionFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cloud sql instance %s: %w: %w", c.instance, dbobj.ErrConnectionFailed, err)
	}
	return pool, nil
}

// Close releases the dialer. It is safe to call more than once.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer == nil {
		return nil
	}
	err := c.dialer.Close()
	c.dialer = nil
	return err
}
