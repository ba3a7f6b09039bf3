package cli

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dbobj/internal/config"
	"github.com/vvka-141/dbobj/internal/db"
	"github.com/vvka-141/dbobj/internal/logging"
	"github.com/vvka-141/dbobj/internal/replication"
	"github.com/vvka-141/dbobj/internal/ui"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

func replicationWorkspace(t *testing.T) *workspace {
	t.Helper()
	setupProject(t, projectFiles)
	globals.params = []string{"REPLICA_HOST=replica.internal"}
	ws, err := loadWorkspaceWith(globals, logging.NewNullLogger())
	require.NoError(t, err)
	return ws
}

func TestBuildRoute_Directions(t *testing.T) {
	ws := replicationWorkspace(t)
	scan, err := ws.scan()
	require.NoError(t, err)

	to, err := buildRoute(ws, scan.Registry, dbobj.DirectionTo, replicationFlagValues{target: "replica", tables: []string{"users"}})
	require.NoError(t, err)
	assert.Equal(t, "primary", to.Source.Name)
	assert.Equal(t, "replica", to.Target.Name)
	assert.Equal(t, "replica.internal", to.Target.Config.Host)
	assert.Equal(t, "dbobj_pub_shop_replica", to.Publication)
	assert.Equal(t, "dbobj_sub_shop_primary", to.Subscription)

	from, err := buildRoute(ws, scan.Registry, dbobj.DirectionFrom, replicationFlagValues{source: "replica", tables: []string{"users"}})
	require.NoError(t, err)
	assert.Equal(t, "replica", from.Source.Name)
	assert.Equal(t, "primary", from.Target.Name)
}

func TestBuildRoute_DefaultsToTaggedTables(t *testing.T) {
	ws := replicationWorkspace(t)
	scan, err := ws.scan()
	require.NoError(t, err)

	route, err := buildRoute(ws, scan.Registry, dbobj.DirectionTo, replicationFlagValues{target: "replica"})
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, route.Tables)
}

func TestBuildRoute_RawConnectionString(t *testing.T) {
	ws := replicationWorkspace(t)
	scan, err := ws.scan()
	require.NoError(t, err)

	route, err := buildRoute(ws, scan.Registry, dbobj.DirectionFrom,
		replicationFlagValues{source: "postgresql://repl:pw@catalog.internal:5433/catalog", tables: []string{"users"}})
	require.NoError(t, err)
	assert.Equal(t, "catalog.internal_catalog", route.Source.Name)
	assert.Equal(t, 5433, route.Source.Config.Port)
	assert.Equal(t, "dbobj_sub_shop_catalog_internal_catalog", route.Subscription)
}

func TestBuildRoute_UnresolvedEndpoint(t *testing.T) {
	ws := replicationWorkspace(t)
	scan, err := ws.scan()
	require.NoError(t, err)

	_, err = buildRoute(ws, scan.Registry, dbobj.DirectionTo, replicationFlagValues{target: "nowhere", tables: []string{"users"}})
	require.ErrorIs(t, err, dbobj.ErrInvalidConfig)

	ws.flags.params = nil
	_, err = buildRoute(ws, scan.Registry, dbobj.DirectionTo, replicationFlagValues{target: "replica", tables: []string{"users"}})
	assert.Error(t, err)
}

func TestRunReplication_UnreachableEndpointIsFatal(t *testing.T) {
	replicationWorkspace(t)
	capture(t, replicationToCmd)

	var dials []string
	saved := newDialer
	t.Cleanup(func() { newDialer = saved })
	newDialer = func(dbobj.Logger) replication.Dialer {
		return replication.DialerFunc(func(ctx context.Context, ep dbobj.Endpoint) (dbobj.DBConnection, error) {
			dials = append(dials, ep.Name)
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, 5*time.Second)
			return nil, fmt.Errorf("dial %s: %w", ep.Name, dbobj.ErrConnectionFailed)
		})
	}

	err := runReplication(replicationToCmd, dbobj.DirectionTo, replicationFlagValues{target: "replica", tables: []string{"users"}})
	require.ErrorIs(t, err, dbobj.ErrConnectionFailed)
	assert.ErrorIs(t, err, dbobj.ErrReplicationConfig)
	assert.Equal(t, dbobj.ExitReplicationConfig, dbobj.ExitCodeForError(err))
	assert.Equal(t, []string{"primary"}, dials)
}

func TestRunReplication_UnknownTablesFailBeforeDialing(t *testing.T) {
	replicationWorkspace(t)
	capture(t, replicationToCmd)

	saved := newDialer
	t.Cleanup(func() { newDialer = saved })
	newDialer = func(dbobj.Logger) replication.Dialer {
		return replication.DialerFunc(func(context.Context, dbobj.Endpoint) (dbobj.DBConnection, error) {
			t.Fatal("no endpoint should be dialed")
			return nil, nil
		})
	}

	err := runReplication(replicationToCmd, dbobj.DirectionTo,
		replicationFlagValues{target: "replica", tables: []string{"users", "ghosts", "answer"}})
	require.ErrorIs(t, err, dbobj.ErrReplicationConfig)
	assert.Contains(t, err.Error(), "answer, ghosts")
}

func TestSelectApprover(t *testing.T) {
	setupProject(t, nil)

	assert.IsType(t, ui.AutoApprover{}, selectApprover(replicationFlagValues{dryRun: true, force: true}))
	assert.IsType(t, &ui.ForcedApprover{}, selectApprover(replicationFlagValues{force: true}))
	assert.IsType(t, refusingApprover{}, selectApprover(replicationFlagValues{}))

	isInteractive = func() bool { return true }
	assert.IsType(t, &ui.InteractiveApprover{}, selectApprover(replicationFlagValues{}))

	approved, err := refusingApprover{}.RequestApproval(context.Background(), "pub", []string{"DROP TABLE x"})
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestResolveEndpoint_NamedEndpointKeepsName(t *testing.T) {
	setupProject(t, nil)
	env := config.EnvironmentConfig{
		DefaultEndpoint: "primary",
		Endpoints:       map[string]config.EndpointConfig{"primary": {Host: "primary.internal"}},
	}
	resolver := db.NewResolver(env, &db.EnvVars{}, nil)

	ep, err := resolveEndpoint(resolver, "")
	require.NoError(t, err)
	assert.Equal(t, "primary", ep.Name)
	assert.Equal(t, "primary.internal", ep.Config.Host)
}
