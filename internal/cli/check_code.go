package cli

import (
	"github.com/spf13/cobra"

	"github.com/vvka-141/dbobj/internal/naming"
)

var checkCodeJSON bool

var checkCodeCmd = &cobra.Command{
	Use:   "check-code",
	Short: "Check object files for parse, naming and reference problems",
	Long: `Parse every object file of the application and report, all at once:
- files that fail to parse or carry malformed tags
- object names declared by more than one file
- files whose name does not match the object they declare
- foreign keys that point at unknown tables or columns

Examples:
  dbobj check-code
  dbobj check-code --app billing --json`,
	Args: cobra.NoArgs,
	RunE: runCheckCode,
}

func init() {
	rootCmd.AddCommand(checkCodeCmd)
	checkCodeCmd.Flags().BoolVar(&checkCodeJSON, "json", false, "Print the report as JSON")
}

func runCheckCode(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	scan, err := ws.scan()
	if err != nil {
		return err
	}
	scan.Report.Merge(naming.Check(scan.Registry))

	report := newCheckReport("check-code", ws.app, len(scan.Files), scan.Report)
	if err := report.write(cmd.OutOrStdout(), checkCodeJSON); err != nil {
		return err
	}
	return report.failure()
}
