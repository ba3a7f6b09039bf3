// Package testinfra starts disposable PostgreSQL servers for integration tests.
package testinfra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage    = "postgres:17-alpine"
	PostgresUser     = "postgres"
	PostgresPassword = "postgres"
	PostgresDB       = "shop"

	// ContainerPort is the port servers listen on inside the test network.
	ContainerPort = 5432
)

// PostgresContainer is a running server. ConnString reaches it from the
// host; Alias and ContainerPort reach it from other containers on the
// same network.
type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnString string
	Alias      string
}

// RequireDocker skips t in short mode or when no container runtime is available.
func RequireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// NewNetwork creates a bridge network so servers can reach each other by alias.
func NewNetwork(ctx context.Context) (*testcontainers.DockerNetwork, error) {
	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create network: %w", err)
	}
	return nw, nil
}

// StartLogicalPostgres starts a server with wal_level=logical attached to nw
// under alias. dir receives the generated postgresql.conf.
func StartLogicalPostgres(ctx context.Context, dir string, nw *testcontainers.DockerNetwork, alias string) (*PostgresContainer, error) {
	confPath, err := writeLogicalConfig(dir, alias)
	if err != nil {
		return nil, err
	}

	ctr, err := postgres.Run(ctx,
		PostgresImage,
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		postgres.WithDatabase(PostgresDB),
		postgres.WithConfigFile(confPath),
		network.WithNetwork([]string{alias}, nw),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres %s: %w", alias, err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: ctr, ConnString: connStr, Alias: alias}, nil
}

func writeLogicalConfig(dir, alias string) (string, error) {
	conf := `listen_addresses = '*'
wal_level = logical
max_replication_slots = 10
max_wal_senders = 10
max_logical_replication_workers = 4
`
	path := filepath.Join(dir, alias+"-postgresql.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		return "", fmt.Errorf("write postgresql.conf: %w", err)
	}
	return path, nil
}
