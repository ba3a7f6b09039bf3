package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// tokenExpiryWarning is the remaining token lifetime below which a warning is logged.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (AWS IAM, Azure Entra ID).
// The token is acquired from a TokenProvider and used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *dbobj.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
	logger        dbobj.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error and warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *dbobj.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger dbobj.Logger) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		logger:        logger,
	}
}

// Connect acquires a token and opens a pool with it. A token failure is a
// connection failure: the endpoint is unusable for this command.
func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	token, expiresOn, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s token via %s: %w: %w", c.providerName, c.tokenProvider, dbobj.ErrConnectionFailed, err)
	}
	if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
		c.logger.Warn("%s token expires in %v", c.providerName, remaining.Round(time.Second))
	}

	withToken := *c.config
	withToken.Password = token
	return openPool(ctx, c.config, BuildConnectionString(&withToken), c.logger)
}
