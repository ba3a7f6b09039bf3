package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vvka-141/dbobj/internal/tags"
)

type tagFlagValues struct {
	tags  []string
	field string
}

var tagFlags tagFlagValues

var tagCmd = &cobra.Command{
	Use:   "tag <object>",
	Short: "Attach a metadata tag to an object or one of its fields",
	Long: `Insert an inline /* #tag */ comment into the definition file of an
object. With --field the tag follows that field's definition, otherwise it
follows the CREATE statement. Applying a tag that is already present with
the same value leaves the file untouched.

Examples:
  dbobj tag users --tag list --field name
  dbobj tag users --tag list-filter --field email
  dbobj tag audit --tag replica-identity=full
  dbobj tag users --tag short-name=usr`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeObjectNames,
	RunE:              runTag,
}

func init() {
	rootCmd.AddCommand(tagCmd)

	tagCmd.Flags().StringArrayVarP(&tagFlags.tags, "tag", "t", nil, "Tag as name or name=value (repeatable)")
	tagCmd.Flags().StringVar(&tagFlags.field, "field", "", "Field of the object to tag")
	_ = tagCmd.MarkFlagRequired("tag")
	_ = tagCmd.RegisterFlagCompletionFunc("field", completeFieldNames)
}

func runTag(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	scan, err := ws.scan()
	if err != nil {
		return err
	}
	obj, err := scan.Registry.MustLookup(args[0])
	if err != nil {
		return err
	}

	source := obj.Source
	for _, arg := range tagFlags.tags {
		tag, err := tags.ParseArg(arg)
		if err != nil {
			return err
		}
		tag.Field = tagFlags.field

		updated, err := tags.Apply(obj, tag)
		if err != nil {
			return err
		}
		if updated == obj.Source {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s already carries %s\n", obj.Name, tag)
			continue
		}
		// Re-parse so the next tag sees the shifted spans.
		if obj, err = tags.Parse(obj.Path, updated); err != nil {
			return err
		}
	}
	if obj.Source == source {
		return nil
	}

	target := filepath.Join(ws.appDir, filepath.FromSlash(obj.Path))
	if err := ws.fs.WriteFile(target, []byte(obj.Source)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "tagged %s in %s\n", obj.Name, target)
	return nil
}
