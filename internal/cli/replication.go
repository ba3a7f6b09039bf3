package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/dbobj/internal/db"
	"github.com/vvka-141/dbobj/internal/registry"
	"github.com/vvka-141/dbobj/internal/replication"
	"github.com/vvka-141/dbobj/internal/retry"
	"github.com/vvka-141/dbobj/internal/ui"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// replicationFlagValues holds the flags shared by replication-from and
// replication-to. The remote side is required; the local side defaults to
// the environment's default_endpoint.
type replicationFlagValues struct {
	source  string
	target  string
	tables  []string
	force   bool
	dryRun  bool
	timeout time.Duration
}

var (
	replicationFromFlags replicationFlagValues
	replicationToFlags   replicationFlagValues
)

// Replaced in tests.
var newDialer = func(logger dbobj.Logger) replication.Dialer {
	return replication.DialerFunc(func(ctx context.Context, ep dbobj.Endpoint) (dbobj.DBConnection, error) {
		return db.Open(ctx, ep.Config, logger)
	})
}

const replicationExamples = `
Endpoints are names from the environment's endpoints in dbobj.yaml, or raw
connection strings (URI or ADO.NET). Without --tables, the tables tagged
#replicate are used. Removing tables from an existing publication asks for
approval unless --force is given.

Re-running with an unchanged table list changes nothing; adding a table
issues a single ALTER PUBLICATION ... ADD TABLE.`

var replicationFromCmd = &cobra.Command{
	Use:   "replication-from",
	Short: "Subscribe the application database to tables of a source",
	Long: `Publish the selected tables on --source and subscribe --target (the
application database by default) to them.
` + replicationExamples + `

Examples:
  dbobj replication-from --source catalog --tables products,prices
  dbobj replication-from --source "postgresql://repl@catalog.internal/catalog" --tables products --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplication(cmd, dbobj.DirectionFrom, replicationFromFlags)
	},
}

var replicationToCmd = &cobra.Command{
	Use:   "replication-to",
	Short: "Publish tables of the application database to a target",
	Long: `Publish the selected tables on --source (the application database by
default) and subscribe --target to them.
` + replicationExamples + `

Examples:
  dbobj replication-to --target reporting --tables users,orders
  dbobj replication-to --target reporting --force --timeout 5m`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplication(cmd, dbobj.DirectionTo, replicationToFlags)
	},
}

func init() {
	rootCmd.AddCommand(replicationFromCmd)
	rootCmd.AddCommand(replicationToCmd)

	registerReplicationFlags(replicationFromCmd, &replicationFromFlags, "source")
	registerReplicationFlags(replicationToCmd, &replicationToFlags, "target")
}

func registerReplicationFlags(cmd *cobra.Command, v *replicationFlagValues, remote string) {
	f := cmd.Flags()
	f.StringVar(&v.source, "source", "", "Publishing endpoint")
	f.StringVar(&v.target, "target", "", "Subscribing endpoint")
	f.StringSliceVar(&v.tables, "tables", nil, "Comma-separated tables to replicate (default: tables tagged #replicate)")
	f.BoolVar(&v.force, "force", false, "Approve removing tables from the publication without prompting")
	f.BoolVar(&v.dryRun, "dry-run", false, "Print the plan without changing anything")
	f.DurationVar(&v.timeout, "timeout", 0, fmt.Sprintf("Time limit for the whole route (default: replication.timeout or %s)", dbobj.DefaultReplicationTimeout))

	_ = cmd.MarkFlagRequired(remote)
	_ = cmd.RegisterFlagCompletionFunc("source", completeEndpoints)
	_ = cmd.RegisterFlagCompletionFunc("target", completeEndpoints)
	_ = cmd.RegisterFlagCompletionFunc("tables", completeTableNames)
}

func runReplication(cmd *cobra.Command, direction dbobj.Direction, flags replicationFlagValues) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	scan, err := ws.scan()
	if err != nil {
		return err
	}
	if !scan.Report.OK() {
		return fmt.Errorf("cannot configure replication: %w", scan.Report.Err())
	}

	route, err := buildRoute(ws, scan.Registry, direction, flags)
	if err != nil {
		return err
	}

	timeout := flags.timeout
	if timeout <= 0 {
		timeout = ws.config.ReplicationTimeout(dbobj.DefaultReplicationTimeout)
	}
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	configurator := replication.NewConfigurator(scan.Registry, newDialer(ws.logger), selectApprover(flags),
		retry.NewConflictExecutor(ws.logger), ws.logger)

	ws.logger.Info("Configuring replication %s (%s)", route.Publication, route)
	plan, err := configurator.Configure(ctx, route, flags.dryRun)
	if plan != nil {
		fmt.Fprintln(cmd.OutOrStdout(), plan.String())
	}
	if err != nil {
		return err
	}

	if flags.dryRun {
		ws.logger.Info("Dry run, nothing was changed")
	}
	return nil
}

// buildRoute resolves both endpoints and the table list. The application
// database is the target of replication-from and the source of
// replication-to.
func buildRoute(ws *workspace, reg *registry.Registry, direction dbobj.Direction, flags replicationFlagValues) (*dbobj.ReplicationRoute, error) {
	parameters, err := ws.parameters()
	if err != nil {
		return nil, err
	}
	_, env, err := ws.environment()
	if err != nil {
		return nil, err
	}
	resolver := db.NewResolver(env, db.LoadFromEnvironment(), parameters)

	localRef, remoteRef := flags.target, flags.source
	if direction == dbobj.DirectionTo {
		localRef, remoteRef = flags.source, flags.target
	}
	local, err := resolveEndpoint(resolver, localRef)
	if err != nil {
		return nil, err
	}
	remote, err := resolveEndpoint(resolver, remoteRef)
	if err != nil {
		return nil, err
	}

	tables := flags.tables
	if len(tables) == 0 {
		tables = replication.TaggedTables(reg)
		ws.logger.Verbose("Tables tagged #%s: %v", replication.TagReplicate, tables)
	}

	cfg := ws.config.Replication
	return replication.NewRoute(ws.app, direction, local, remote, tables, replication.Naming{
		PublicationPrefix:  cfg.PublicationPrefix,
		SubscriptionPrefix: cfg.SubscriptionPrefix,
	})
}

// resolveEndpoint names raw connection strings after their host and
// database so publication names stay stable.
func resolveEndpoint(resolver *db.Resolver, ref string) (dbobj.Endpoint, error) {
	ep, err := resolver.Resolve(ref)
	if err != nil {
		return dbobj.Endpoint{}, err
	}
	if ep.Name == "" && ep.Config != nil {
		ep.Name = ep.Config.Host + "_" + ep.Config.Database
	}
	return ep, nil
}

func selectApprover(flags replicationFlagValues) dbobj.Approver {
	switch {
	case flags.dryRun:
		return ui.AutoApprover{}
	case flags.force:
		return ui.NewForcedApprover()
	case isInteractive():
		return ui.NewInteractiveApprover()
	default:
		return refusingApprover{}
	}
}

// refusingApprover denies every request. Without a terminal and without
// --force nobody can confirm a destructive change.
type refusingApprover struct{}

func (refusingApprover) RequestApproval(context.Context, string, []string) (bool, error) {
	return false, nil
}

var _ dbobj.Approver = refusingApprover{}
