package replication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dbobj/internal/logging"
	"github.com/vvka-141/dbobj/internal/registry"
	"github.com/vvka-141/dbobj/internal/retry"
	"github.com/vvka-141/dbobj/internal/tags"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

var schemaFiles = map[string]string{
	"tables/users.sql":  "create table users (pk_id serial primary key, name text not null);",
	"tables/orders.sql": "create table orders (pk_id bigserial primary key, user_id integer references users); /* #replicate */",
	"tables/audit.sql": `create table audit (
    event_id uuid not null unique, /* #replica-identity */
    payload  jsonb
);`,
	"tables/logs.sql":       "create table logs (msg text, at timestamptz);",
	"tables/snapshots.sql":  "create table snapshots (taken_at timestamptz, body text); /* #replica-identity=full #replicate */",
	"functions/answer.sql":  "create function answer() returns int as $$ select 42 $$ language sql;",
	"tables/loose_keys.sql": "create table loose_keys (code text unique /* #replica-identity */, v int);",
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	var objs []*dbobj.SchemaObject
	for p, src := range schemaFiles {
		obj, err := tags.Parse(p, src)
		require.NoError(t, err, p)
		objs = append(objs, obj)
	}
	reg, report := registry.Populate(objs)
	require.True(t, report.OK(), "%v", report.Err())
	return reg
}

type harness struct {
	source   *fakeServer
	target   *fakeServer
	dialer   *fakeDialer
	approver *stubApprover
	config   *Configurator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		source:   newFakeServer(),
		target:   newFakeServer(),
		approver: &stubApprover{approve: true},
	}
	h.dialer = newFakeDialer(map[string]*fakeServer{"primary": h.source, "replica": h.target})
	executor := retry.NewExecutor(retry.NewConflictClassifier(),
		retry.NewExponentialBackoff(3, retry.WithInitialDelay(time.Millisecond), retry.WithMaxDelay(time.Millisecond)))
	h.config = NewConfigurator(testRegistry(t), h.dialer, h.approver, executor, logging.NewNullLogger())
	return h
}

func endpoint(name string) dbobj.Endpoint {
	return dbobj.Endpoint{Name: name, Config: &dbobj.ConnectionConfig{
		Host: name + ".internal", Port: 5432, Database: "shop", Username: "repl", Password: "s3cret", SSLMode: "require",
	}}
}

func route(t *testing.T, tables ...string) *dbobj.ReplicationRoute {
	t.Helper()
	r, err := NewRoute("shop", dbobj.DirectionTo, endpoint("primary"), endpoint("replica"), tables, Naming{})
	require.NoError(t, err)
	return r
}

func TestConfigure_FirstRunCreatesPublicationAndSubscription(t *testing.T) {
	h := newHarness(t)

	plan, err := h.config.Configure(context.Background(), route(t, "users", "orders"), false)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CREATE PUBLICATION dbobj_pub_shop_replica",
		"ALTER PUBLICATION dbobj_pub_shop_replica ADD TABLE public.orders, public.users",
	}, h.source.executed)
	assert.Equal(t, 1, h.source.commits)
	assert.Equal(t, []string{"public.orders", "public.users"}, h.source.publications["dbobj_pub_shop_replica"])

	require.Len(t, h.target.executed, 1)
	assert.Contains(t, h.target.executed[0], "CREATE SUBSCRIPTION dbobj_sub_shop_primary CONNECTION '")
	assert.Contains(t, h.target.executed[0], "host=primary.internal")
	assert.Contains(t, h.target.executed[0], "PUBLICATION dbobj_pub_shop_replica")
	assert.True(t, h.target.subscriptions["dbobj_sub_shop_primary"])

	assert.Equal(t, []string{"public.orders", "public.users"}, plan.Add)
	assert.Empty(t, h.approver.subjects)
	assert.Equal(t, 1, h.source.closed)
	assert.Equal(t, 1, h.target.closed)
}

func TestConfigure_UnchangedTableListIssuesNoAlter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.config.Configure(ctx, route(t, "users", "orders"), false)
	require.NoError(t, err)
	h.source.reset()
	h.target.reset()

	r := route(t, "orders", "users")
	plan, err := h.config.Configure(ctx, r, false)
	require.NoError(t, err)

	assert.True(t, plan.Empty())
	assert.Empty(t, h.source.statements("ALTER"))
	assert.Empty(t, h.target.statements("ALTER"))
	assert.Empty(t, h.source.executed)
	assert.Empty(t, h.target.executed)
	assert.Zero(t, h.source.commits)
	assert.Equal(t, []string{"public.orders", "public.users"}, r.Applied)
}

func TestConfigure_AddingOneTableIssuesOneAddTable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.config.Configure(ctx, route(t, "users"), false)
	require.NoError(t, err)
	h.source.reset()
	h.target.reset()

	_, err = h.config.Configure(ctx, route(t, "users", "orders"), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"ALTER PUBLICATION dbobj_pub_shop_replica ADD TABLE public.orders"}, h.source.statements("ADD TABLE"))
	assert.Empty(t, h.source.statements("CREATE"))
	assert.Empty(t, h.source.statements("DROP"))
	assert.Equal(t, []string{"ALTER SUBSCRIPTION dbobj_sub_shop_primary REFRESH PUBLICATION"}, h.target.executed)
}

func TestConfigure_DropRequiresApproval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.config.Configure(ctx, route(t, "users", "orders"), false)
	require.NoError(t, err)
	h.source.reset()
	h.target.reset()

	h.approver.approve = false
	_, err = h.config.Configure(ctx, route(t, "users"), false)
	require.ErrorIs(t, err, dbobj.ErrApprovalDenied)
	assert.Equal(t, dbobj.ExitApprovalDenied, dbobj.ExitCodeForError(err))
	assert.Empty(t, h.source.executed)
	assert.Empty(t, h.target.executed)
	assert.Equal(t, []string{"dbobj_pub_shop_replica"}, h.approver.subjects)
	assert.Equal(t, []string{"DROP TABLE public.orders from publication dbobj_pub_shop_replica"}, h.approver.details[0])

	h.approver.approve = true
	_, err = h.config.Configure(ctx, route(t, "users"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALTER PUBLICATION dbobj_pub_shop_replica DROP TABLE public.orders"}, h.source.executed)
	assert.Equal(t, []string{"public.users"}, h.source.publications["dbobj_pub_shop_replica"])
}

func TestConfigure_FailureRollsBackPublicationChanges(t *testing.T) {
	h := newHarness(t)
	h.source.failOn = "ADD TABLE"
	h.source.failErr = &pgconn.PgError{Code: "42P01", Message: `relation "public.orders" does not exist`}
	h.source.failTimes = 1

	_, err := h.config.Configure(context.Background(), route(t, "users", "orders"), false)

	var rcErr *dbobj.ReplicationConfigError
	require.ErrorAs(t, err, &rcErr)
	assert.Equal(t, "primary", rcErr.Endpoint)
	assert.Equal(t, 1, h.source.rollbacks)
	assert.Zero(t, h.source.commits)
	assert.Empty(t, h.source.publications)
	assert.Empty(t, h.target.executed)
}

func TestConfigure_RetriesTransactionConflicts(t *testing.T) {
	h := newHarness(t)
	h.source.failOn = "ADD TABLE"
	h.source.failErr = &pgconn.PgError{Code: retry.PgCodeLockNotAvailable, Message: "could not obtain lock"}
	h.source.failTimes = 1

	_, err := h.config.Configure(context.Background(), route(t, "users"), false)
	require.NoError(t, err)
	assert.Equal(t, 1, h.source.rollbacks)
	assert.Equal(t, 1, h.source.commits)
	assert.Len(t, h.source.statements("ADD TABLE"), 1)
}

func TestConfigure_UnreachableEndpointIsFatal(t *testing.T) {
	h := newHarness(t)
	h.dialer.failing["replica"] = errors.New("dial tcp: connection refused")

	_, err := h.config.Configure(context.Background(), route(t, "users"), false)

	require.ErrorIs(t, err, dbobj.ErrConnectionFailed)
	require.ErrorIs(t, err, dbobj.ErrReplicationConfig)
	assert.Contains(t, err.Error(), "endpoint replica")
	assert.Equal(t, 1, h.dialer.dials["replica"])
	assert.Equal(t, 1, h.source.closed)
	assert.Empty(t, h.source.executed)
}

func TestConfigure_RequiresLogicalWalLevel(t *testing.T) {
	h := newHarness(t)
	h.source.walLevel = "replica"

	_, err := h.config.Configure(context.Background(), route(t, "users"), false)
	require.ErrorIs(t, err, dbobj.ErrReplicationConfig)
	assert.Contains(t, err.Error(), `wal_level is "replica"`)
	assert.Empty(t, h.source.executed)
}

func TestConfigure_DryRunExecutesNothing(t *testing.T) {
	h := newHarness(t)

	plan, err := h.config.Configure(context.Background(), route(t, "users"), true)
	require.NoError(t, err)

	assert.Empty(t, h.source.executed)
	assert.Empty(t, h.target.executed)
	assert.Len(t, plan.Statements(), 3)

	out := plan.String()
	assert.Contains(t, out, "+ public.users")
	assert.Contains(t, out, "CREATE PUBLICATION dbobj_pub_shop_replica;")
	assert.Contains(t, out, "password=xxxxx")
	assert.NotContains(t, out, "s3cret")
}

func TestConfigure_TaggedIdentityAltersTableBeforeAdding(t *testing.T) {
	h := newHarness(t)

	_, err := h.config.Configure(context.Background(), route(t, "audit", "snapshots"), false)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CREATE PUBLICATION dbobj_pub_shop_replica",
		"ALTER TABLE public.audit REPLICA IDENTITY USING INDEX audit_event_id_key",
		"ALTER TABLE public.snapshots REPLICA IDENTITY FULL",
		"ALTER PUBLICATION dbobj_pub_shop_replica ADD TABLE public.audit, public.snapshots",
	}, h.source.executed)
}

func TestConfigure_TokenAuthCannotBackSubscription(t *testing.T) {
	h := newHarness(t)
	r := route(t, "users")
	r.Source.Config.AuthMethod = dbobj.AuthMethodAWSIAM

	_, err := h.config.Configure(context.Background(), r, false)
	require.ErrorIs(t, err, dbobj.ErrInvalidConfig)
	require.ErrorIs(t, err, dbobj.ErrReplicationConfig)
	assert.Empty(t, h.source.executed)
}

func TestPlan_DoesNotTouchEndpoints(t *testing.T) {
	h := newHarness(t)
	h.source.publications["dbobj_pub_shop_replica"] = []string{"public.logs_old", "public.users"}
	h.target.subscriptions["dbobj_sub_shop_primary"] = true

	plan, err := h.config.Plan(context.Background(), route(t, "users", "orders"))
	require.NoError(t, err)

	assert.Equal(t, []string{"public.orders"}, plan.Add)
	assert.Equal(t, []string{"public.logs_old"}, plan.Drop)
	assert.True(t, plan.Destructive())
	assert.Equal(t, "ALTER SUBSCRIPTION dbobj_sub_shop_primary REFRESH PUBLICATION", plan.SubscriptionStatement)
	assert.Empty(t, h.source.executed)
	assert.Empty(t, h.approver.subjects)
}

func TestResolveTables_ReportsAllOffendersTogether(t *testing.T) {
	reg := testRegistry(t)
	r := route(t, "users", "logs", "loose_keys", "missing", "answer")

	_, err := ResolveTables(reg, r)
	require.ErrorIs(t, err, dbobj.ErrReplicationConfig)
	msg := err.Error()
	assert.Contains(t, msg, "answer, missing")
	assert.Contains(t, msg, "loose_keys, logs")
	assert.NotContains(t, msg, "users")
}

func TestResolveTables_IdentityPrecedence(t *testing.T) {
	reg := testRegistry(t)

	ids, err := ResolveTables(reg, route(t, "users", "audit", "snapshots"))
	require.NoError(t, err)

	assert.Equal(t, Identity{Table: "public.users"}, ids["public.users"])
	assert.False(t, ids["public.users"].Tagged())
	assert.Equal(t, Identity{Table: "public.audit", Index: "audit_event_id_key"}, ids["public.audit"])
	assert.Equal(t, Identity{Table: "public.snapshots", Full: true}, ids["public.snapshots"])
}

func TestTaggedTables(t *testing.T) {
	assert.Equal(t, []string{"orders", "snapshots"}, TaggedTables(testRegistry(t)))
}

func TestNewRoute(t *testing.T) {
	local, remote := endpoint("primary"), endpoint("Reporting-EU")

	to, err := NewRoute("shop", dbobj.DirectionTo, local, remote, []string{"b", "a", "b"}, Naming{})
	require.NoError(t, err)
	assert.Equal(t, "primary", to.Source.Name)
	assert.Equal(t, "Reporting-EU", to.Target.Name)
	assert.Equal(t, []string{"a", "b"}, to.Tables)
	assert.Equal(t, "dbobj_pub_shop_reporting_eu", to.Publication)
	assert.Equal(t, "dbobj_sub_shop_primary", to.Subscription)

	from, err := NewRoute("shop", dbobj.DirectionFrom, local, remote, nil, Naming{PublicationPrefix: "pub_", SubscriptionPrefix: "sub_"})
	require.NoError(t, err)
	assert.Equal(t, "Reporting-EU", from.Source.Name)
	assert.Equal(t, "primary", from.Target.Name)
	assert.Equal(t, "pub_shop_primary", from.Publication)
	assert.Equal(t, "sub_shop_reporting_eu", from.Subscription)

	_, err = NewRoute("shop", "sideways", local, remote, nil, Naming{})
	assert.ErrorIs(t, err, dbobj.ErrInvalidConfig)
}

func TestConnInfo(t *testing.T) {
	info := ConnInfo(&dbobj.ConnectionConfig{
		Host: "db.internal", Port: 5433, Database: "shop", Username: "repl", Password: "it's secret", SSLMode: "verify-full",
	})
	assert.Equal(t, `dbname=shop host=db.internal password='it\'s secret' port=5433 sslmode=verify-full user=repl`, info)
}
