package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns is small: a replication route holds one transaction and
	// a handful of catalog queries per endpoint.
	DefaultMaxConns = 2

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime bounds idle connections for the lifetime of a command.
	DefaultMaxConnIdleTime = 5 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger dbobj.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("NOTICE: %s", notice.Message)
	}
}

// StandardConnector implements the Connector interface for username/password
// and certificate authentication. It makes exactly one attempt: an endpoint
// that cannot be reached is fatal for the command.
type StandardConnector struct {
	config *dbobj.ConnectionConfig
	logger dbobj.Logger
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
func NewStandardConnector(config *dbobj.ConnectionConfig, logger dbobj.Logger) *StandardConnector {
	return &StandardConnector{config: config, logger: logger}
}

// Connect establishes a connection pool and verifies it with a ping.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return openPool(ctx, c.config, BuildConnectionString(c.config), c.logger)
}

func openPool(ctx context.Context, config *dbobj.ConnectionConfig, connStr string, logger dbobj.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	configurePool(poolConfig, logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}
	return pool, nil
}

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's AuthMethod.
func NewConnector(config *dbobj.ConnectionConfig, logger dbobj.Logger) (dbobj.Connector, error) {
	if config == nil {
		return nil, fmt.Errorf("connection config is nil: %w", dbobj.ErrInvalidConfig)
	}
	switch config.AuthMethod {
	case dbobj.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case dbobj.AuthMethodCertificate:
		if config.SSLCert == "" || config.SSLKey == "" {
			return nil, fmt.Errorf("certificate auth requires sslcert and sslkey: %w", dbobj.ErrInvalidConfig)
		}
		return NewStandardConnector(config, logger), nil
	case dbobj.AuthMethodAWSIAM:
		provider, err := NewAWSIAMTokenProvider(fmt.Sprintf("%s:%d", config.Host, config.Port), config.AWSRegion, config.Username)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, dbobj.ErrInvalidConfig)
		}
		return NewTokenBasedConnector(config, provider, "AWS IAM", logger), nil
	case dbobj.AuthMethodGoogleIAM:
		if config.GoogleInstance == "" {
			return nil, fmt.Errorf("Google Cloud SQL IAM auth requires google_instance (project:region:instance): %w", dbobj.ErrInvalidConfig)
		}
		if config.Username == "" {
			return nil, fmt.Errorf("Google Cloud SQL IAM auth requires a username: %w", dbobj.ErrInvalidConfig)
		}
		return NewGoogleCloudSQLConnector(config, config.GoogleInstance, logger), nil
	case dbobj.AuthMethodAzureEntraID:
		provider, err := NewAzureTokenProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
		if err != nil {
			return nil, err
		}
		return NewTokenBasedConnector(config, provider, "Azure", logger), nil
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, dbobj.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError adds actionable guidance to raw pgx connection errors.
// The result always unwraps to ErrConnectionFailed.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	var hint string
	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		hint = fmt.Sprintf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port in the endpoint definition
  - Firewall blocking the connection`, addr, host, port)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		hint = fmt.Sprintf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled in dbobj.yaml
  - DNS is not configured or reachable`, host)

	case strings.Contains(errStr, "password authentication failed"):
		hint = fmt.Sprintf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or ~/.pgpass)
  - Wrong username
  - User does not have access to the database`, database)

	case strings.Contains(errStr, "does not exist"):
		hint = fmt.Sprintf(`database "%s" does not exist

Replication endpoints must name an existing database:
  createdb %s`, database, database)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		hint = fmt.Sprintf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)`, addr)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		hint = `SSL/TLS connection error

Possible causes:
  - Server requires SSL but sslmode is wrong
  - Certificate verification failed (try sslmode: require)
  - Client certificates missing (check sslcert, sslkey)`

	case strings.Contains(errStr, "too many connections"):
		hint = fmt.Sprintf(`too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - Replication workers holding slots on the server`, database)

	default:
		hint = fmt.Sprintf("failed to connect to %s", addr)
	}
	return fmt.Errorf("%w: %s\n\nOriginal error: %w", dbobj.ErrConnectionFailed, hint, err)
}
