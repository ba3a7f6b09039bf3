package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/dbobj/internal/files/filesystem"
	"github.com/vvka-141/dbobj/internal/logging"
	"github.com/vvka-141/dbobj/internal/scaffold"
)

var initCmd = &cobra.Command{
	Use:   "init <app>",
	Short: "Create dbobj.yaml and the directory layout of an application",
	Long: `Initialize a dbobj project below --root.

Creates:
- dbobj.yaml with <app> as default_app and a local environment
- <app>/tables, <app>/functions and <app>/versions

Existing files are never overwritten, so init can be re-run to add the
directories of a second application.

Examples:
  dbobj init shop
  dbobj init billing --root ./db`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := logging.NewConsoleLogger(globals.verbose)
	root := globals.root
	if root == "" {
		root = "."
	}

	created, err := scaffold.InitProject(filesystem.NewOSFileSystem(), root, args[0])
	if err != nil {
		return err
	}
	if len(created) == 0 {
		logger.Info("Nothing to do, %s is already initialized in %s", args[0], root)
		return nil
	}
	for _, rel := range created {
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", rel)
	}
	return nil
}
