package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flag values shared by every command.
type globalFlags struct {
	root        string
	app         string
	env         string
	verbose     bool
	params      []string
	paramsFiles []string
}

var globals globalFlags

var rootCmd = &cobra.Command{
	Use:   "dbobj",
	Short: "Manage PostgreSQL schema objects as versioned files",
	Long: `dbobj keeps every table and function of an application in its own SQL
file, snapshots the object set into versions, checks the files for
consistency, generates CRUD functions from tagged tables and configures
logical replication between databases.

Layout:
  <root>/dbobj.yaml
  <root>/<app>/tables/<table>.sql
  <root>/<app>/functions/<function>.sql
  <root>/<app>/versions/<version>/manifest.yaml

The application and environment come from --app/--env, then DBOBJ_APP and
DBOBJ_ENV, then default_app/default_env in dbobj.yaml.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  12 - User denied approval
  20 - Object definitions failed to parse
  21 - Discrepancies between manifests, files and names
  22 - Replication route could not be configured`,
	SilenceUsage: true,
}

// Execute runs the root command. Interrupts cancel the command context so
// open database work is rolled back.
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout, os.Stderr)
		return nil
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globals.root, "root", ".", "Project root containing dbobj.yaml")
	pf.StringVarP(&globals.app, "app", "a", "", "Application to operate on (env: DBOBJ_APP)")
	pf.StringVarP(&globals.env, "env", "e", "", "Environment whose endpoints are used (env: DBOBJ_ENV)")
	pf.BoolVarP(&globals.verbose, "verbose", "v", false, "Enable verbose output for all commands")
	pf.StringArrayVar(&globals.params, "param", nil, "Parameter as key=value, expanded into ${key} in endpoints (repeatable)")
	pf.StringArrayVar(&globals.paramsFiles, "params-file", nil, "Load parameters from a .env file (repeatable)")

	_ = rootCmd.RegisterFlagCompletionFunc("app", completeApplications)
	_ = rootCmd.RegisterFlagCompletionFunc("env", completeEnvironments)
	_ = rootCmd.MarkPersistentFlagDirname("root")
}

// commandContext returns the context of cmd, or a background context when
// cmd runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
