package cli

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/vvka-141/dbobj/internal/codegen"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

type generateFlagValues struct {
	filter string
	tag    string
	dryRun bool
}

var generateFlags generateFlagValues

var generateCmd = &cobra.Command{
	Use:   "generate-functions",
	Short: "Generate CRUD functions and descriptors for tagged tables",
	Long: `Generate create, read, update, delete and list functions for every
selected table into functions/, and a JSON descriptor per table into
descriptors/.

Tags steer the output:
  #list          field is projected by the list function
  #list-filter   field becomes an optional filter parameter of list
  #editable      field stays editable despite a default
  #label=x       display label of the field in the descriptor
  #short-name=x  table name used in generated function names
  #no-codegen    table is skipped

Examples:
  dbobj generate-functions
  dbobj generate-functions --filter '^order' --dry-run
  dbobj generate-functions --tag api`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateFlags.filter, "filter", "", "Only tables whose name matches this regular expression")
	generateCmd.Flags().StringVar(&generateFlags.tag, "tag", "", "Only tables carrying this tag")
	generateCmd.Flags().BoolVar(&generateFlags.dryRun, "dry-run", false, "Print the generated SQL instead of writing files")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	filter := codegen.Filter{Tag: generateFlags.tag}
	if generateFlags.filter != "" {
		re, err := regexp.Compile(generateFlags.filter)
		if err != nil {
			return fmt.Errorf("invalid --filter %q: %v: %w", generateFlags.filter, err, dbobj.ErrInvalidConfig)
		}
		filter.Pattern = re
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	scan, err := ws.scan()
	if err != nil {
		return err
	}
	if !scan.Report.OK() {
		return fmt.Errorf("cannot generate functions: %w", scan.Report.Err())
	}

	out, err := codegen.GenerateFunctions(scan.Registry, filter, codegen.Options{TablePrefix: ws.appConfig.TablePrefix})
	if err != nil {
		return err
	}
	for _, w := range out.Warnings {
		ws.logger.Warn("%s", w)
	}
	if len(out.Functions) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No tables selected")
		return nil
	}

	if generateFlags.dryRun {
		for _, fn := range out.Functions {
			fmt.Fprintf(cmd.OutOrStdout(), "-- %s\n%s\n", fn.Path, fn.SQL)
		}
		return nil
	}

	if err := codegen.Write(ws.fs, ws.appDir, out, ws.logger); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generated %d functions and %d descriptors in %s\n",
		len(out.Functions), len(out.Descriptors), ws.appDir)
	return nil
}
