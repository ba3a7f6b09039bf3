// Package codegen derives CRUD functions and front-end descriptors from
// parsed tables.
//
// For every selected table five SQL functions are rendered from embedded
// templates, named <verb>_<short-name> for the verbs get, create, update,
// delete and list. A JSON descriptor per table carries what a UI scaffolder
// needs to build forms and lists. The generator never renders UI itself.
package codegen

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"regexp"
	"strings"
	"text/template"

	"github.com/vvka-141/dbobj/internal/registry"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Tags interpreted by the generator. Other tags are ignored.
const (
	TagShortName  = "short-name"
	TagNoCodegen  = "no-codegen"
	TagList       = "list"
	TagListFilter = "list-filter"
	TagEditable   = "editable"
	TagLabel      = "label"
)

// InterpretedTags lists the tag names this package gives meaning to.
var InterpretedTags = []string{TagShortName, TagNoCodegen, TagList, TagListFilter, TagEditable, TagLabel}

// Verbs in generation order.
var Verbs = []string{"get", "create", "update", "delete", "list"}

//go:embed templates/*.sql.tmpl
var templatesFS embed.FS

var templates = template.Must(
	template.New("codegen").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templatesFS, "templates/*.sql.tmpl"),
)

// Filter selects tables. A nil Pattern and empty Tag select every table.
type Filter struct {
	Pattern *regexp.Regexp
	Tag     string
}

func (f Filter) match(obj *dbobj.SchemaObject) bool {
	if f.Pattern != nil && !f.Pattern.MatchString(obj.Name) {
		return false
	}
	return f.Tag == "" || obj.Tags.Has(f.Tag)
}

// Options configures name derivation.
type Options struct {
	// TablePrefix is removed from table names when deriving short names.
	TablePrefix string
}

// Function is one generated SQL function.
type Function struct {
	Verb  string
	Name  string
	Table string
	Path  string
	SQL   string
}

// Output is everything generated for one run.
type Output struct {
	Functions   []Function
	Descriptors []Descriptor
	Warnings    []string
}

// GenerateFunctions renders functions and descriptors for every table of reg
// selected by filter. Tables tagged no-codegen are skipped. A generated name
// that collides with a hand-written object from another file is reported as a
// DuplicateObjectError and nothing is generated for that table.
func GenerateFunctions(reg *registry.Registry, filter Filter, opts Options) (*Output, error) {
	out := &Output{}
	report := &dbobj.Report{}

	for _, table := range reg.Tables() {
		if table.Tags.Has(TagNoCodegen) || !filter.match(table) {
			continue
		}
		short := ShortName(table, opts.TablePrefix)

		fns, warnings, err := generateTable(reg, table, short)
		if err != nil {
			return nil, err
		}
		if conflicts := collisions(reg, fns); len(conflicts) > 0 {
			for _, c := range conflicts {
				report.Add(c)
			}
			continue
		}
		out.Functions = append(out.Functions, fns...)
		out.Warnings = append(out.Warnings, warnings...)
		out.Descriptors = append(out.Descriptors, BuildDescriptor(reg, table, short, fns))
	}
	if !report.OK() {
		return out, report.Err()
	}
	return out, nil
}

// ShortName returns the name used in generated function names: the value of
// a short-name tag, or the table name without prefix.
func ShortName(table *dbobj.SchemaObject, prefix string) string {
	if v := table.Tags.Value(TagShortName); v != "" {
		return v
	}
	if prefix != "" && strings.HasPrefix(table.Name, prefix) && len(table.Name) > len(prefix) {
		return strings.TrimLeft(table.Name[len(prefix):], "_")
	}
	return table.Name
}

// FunctionName returns the generated function name for verb.
func FunctionName(verb, short string) string {
	return verb + "_" + short
}

func generateTable(reg *registry.Registry, table *dbobj.SchemaObject, short string) ([]Function, []string, error) {
	var (
		fns      []Function
		warnings []string
	)
	pk := table.PrimaryKey()

	for _, verb := range Verbs {
		data, skip := buildData(verb, table, pk)
		if skip != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s not generated: %s", table.Name, FunctionName(verb, short), skip))
			continue
		}
		name := FunctionName(verb, short)
		data.Function = qualify(table.Schema, name)

		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, verb+".sql.tmpl", data); err != nil {
			return nil, nil, fmt.Errorf("failed to render %s for %s: %w", verb, table.Name, err)
		}
		fns = append(fns, Function{
			Verb:  verb,
			Name:  name,
			Table: table.Name,
			Path:  path.Join(dbobj.FunctionsDir, name+dbobj.SQLExtension),
			SQL:   buf.String(),
		})
	}
	return fns, warnings, nil
}

func collisions(reg *registry.Registry, fns []Function) []error {
	var errs []error
	for _, fn := range fns {
		existing, ok := reg.Lookup(fn.Name)
		if ok && existing.Path != fn.Path {
			errs = append(errs, &dbobj.DuplicateObjectError{Name: fn.Name, Files: sortedPair(existing.Path, fn.Path)})
		}
	}
	return errs
}

func sortedPair(a, b string) []string {
	if a > b {
		a, b = b, a
	}
	return []string{a, b}
}
