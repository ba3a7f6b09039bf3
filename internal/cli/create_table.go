package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/dbobj/internal/scaffold"
	"github.com/vvka-141/dbobj/internal/tui"
	"github.com/vvka-141/dbobj/internal/tui/wizards"
)

type createTableFlagValues struct {
	fields []string
	schema string
	force  bool
}

var createTableFlags createTableFlagValues

// Replaced in tests.
var (
	isInteractive  = tui.IsInteractive
	runTableWizard = wizards.RunTableWizard
)

var createTableCmd = &cobra.Command{
	Use:   "create-table <name>",
	Short: "Write a new table definition file",
	Long: `Write tables/<name>.sql of the selected application.

Each --field is a column definition: a name, a type and optional
constraints. Without --field on an interactive terminal a wizard collects
the columns. The generated definition is parsed before it is written, so
an invalid column never reaches disk.

Examples:
  dbobj create-table users --field "pk_id serial PRIMARY KEY" --field "email text NOT NULL UNIQUE"
  dbobj create-table orders --field "pk_id bigserial PRIMARY KEY" --field "user_id integer REFERENCES users"
  dbobj create-table users            # interactive wizard`,
	Args: cobra.ExactArgs(1),
	RunE: runCreateTable,
}

func init() {
	rootCmd.AddCommand(createTableCmd)

	createTableCmd.Flags().StringArrayVarP(&createTableFlags.fields, "field", "f", nil, `Column definition "name type [constraints]" (repeatable)`)
	createTableCmd.Flags().StringVar(&createTableFlags.schema, "schema", "", "Schema of the table (default: the application's schema)")
	createTableCmd.Flags().BoolVar(&createTableFlags.force, "force", false, "Overwrite an existing definition file")
}

func runCreateTable(cmd *cobra.Command, args []string) error {
	name := args[0]
	fields := createTableFlags.fields
	if len(fields) == 0 {
		if !isInteractive() {
			return fmt.Errorf(`required flag "field" not set; pass at least one --field or run on a terminal to use the wizard`)
		}
		res, err := runTableWizard(name)
		if err != nil {
			return err
		}
		if res.Cancelled {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled")
			return nil
		}
		fields = res.Fields
	}

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	spec := scaffold.TableSpec{Schema: ws.appConfig.Schema, Name: name}
	if createTableFlags.schema != "" {
		spec.Schema = createTableFlags.schema
	}
	for _, f := range fields {
		col, err := scaffold.ParseColumn(f)
		if err != nil {
			return err
		}
		spec.Columns = append(spec.Columns, col)
	}

	target, obj, err := scaffold.CreateTable(ws.fs, ws.appDir, spec, createTableFlags.force)
	if err != nil {
		return err
	}
	ws.logger.Verbose("Table %s has %d fields", obj.QualifiedName(), len(obj.Fields))
	fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", target)
	return nil
}
