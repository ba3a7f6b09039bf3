package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var newVersionForce bool

var newVersionCmd = &cobra.Command{
	Use:   "new-version <version>",
	Short: "Snapshot the current object set into a version manifest",
	Long: `Write versions/<version>/manifest.yaml listing every object of the
application with its file and checksum. The snapshot is refused while any
file fails to parse or two files declare the same object.

An existing manifest is replaced only with --force; a manifest locked by a
passing check-version is never replaced.

Examples:
  dbobj new-version 1.4.0
  dbobj new-version 1.4.0 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runNewVersion,
}

var checkVersionJSON bool

var checkVersionCmd = &cobra.Command{
	Use:   "check-version <version>",
	Short: "Compare a version manifest with the object files",
	Long: `Check that every object declared by the manifest still exists and that
every object file is declared by it. All discrepancies are reported
together; changed checksums are reported as warnings. A passing check locks
the manifest.

Examples:
  dbobj check-version 1.4.0
  dbobj check-version 1.4.0 --json`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeVersions,
	RunE:              runCheckVersion,
}

var listVersionsCmd = &cobra.Command{
	Use:   "list-versions",
	Short: "List the version manifests of the application",
	Args:  cobra.NoArgs,
	RunE:  runListVersions,
}

func init() {
	rootCmd.AddCommand(newVersionCmd)
	rootCmd.AddCommand(checkVersionCmd)
	rootCmd.AddCommand(listVersionsCmd)

	newVersionCmd.Flags().BoolVar(&newVersionForce, "force", false, "Replace an existing, unlocked manifest")
	checkVersionCmd.Flags().BoolVar(&checkVersionJSON, "json", false, "Print the report as JSON")
}

func runNewVersion(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	mgr := ws.manifests()
	m, err := mgr.NewVersion(args[0], newVersionForce)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%d objects)\n", mgr.ManifestPath(m.Version), len(m.Objects))
	return nil
}

func runCheckVersion(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	res, err := ws.manifests().CheckVersion(args[0])
	if err != nil {
		return err
	}

	report := newCheckReport("check-version", ws.app, len(res.Manifest.Objects), res.Report)
	report.Version = args[0]
	if err := report.write(cmd.OutOrStdout(), checkVersionJSON); err != nil {
		return err
	}
	if report.OK && res.Manifest.Locked {
		ws.logger.Verbose("Version %s is locked", args[0])
	}
	return report.failure()
}

func runListVersions(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	manifests, err := ws.manifests().List()
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "No versions in %s\n", ws.appDir)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tCREATED\tOBJECTS\tSTATE")
	for _, m := range manifests {
		state := "open"
		if m.Locked {
			state = "locked"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.Version, m.CreatedAt.Format(time.RFC3339), len(m.Objects), state)
	}
	return tw.Flush()
}
