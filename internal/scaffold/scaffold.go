// Package scaffold renders new table definitions and project skeletons from
// embedded templates.
package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"text/template"

	"github.com/vvka-141/dbobj/internal/files/filesystem"
	"github.com/vvka-141/dbobj/internal/naming"
	"github.com/vvka-141/dbobj/internal/tags"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Column is one column of a new table.
type Column struct {
	Name        string
	Type        string
	Constraints string
}

// Definition renders the column as it appears in CREATE TABLE.
func (c Column) Definition() string {
	if c.Constraints == "" {
		return c.Name + " " + c.Type
	}
	return c.Name + " " + c.Type + " " + c.Constraints
}

// ParseColumn parses "name type [constraints]". A parenthesized type such
// as numeric(10, 2) may contain spaces.
func ParseColumn(spec string) (Column, error) {
	words := strings.Fields(spec)
	if len(words) < 2 {
		return Column{}, fmt.Errorf("field %q: expected \"name type [constraints]\": %w", spec, dbobj.ErrInvalidConfig)
	}
	if !identifier.MatchString(words[0]) {
		return Column{}, fmt.Errorf("field %q: %q is not a valid column name: %w", spec, words[0], dbobj.ErrInvalidConfig)
	}

	typ := words[1]
	rest := words[2:]
	for strings.Count(typ, "(") > strings.Count(typ, ")") && len(rest) > 0 {
		typ += " " + rest[0]
		rest = rest[1:]
	}
	if strings.Count(typ, "(") != strings.Count(typ, ")") {
		return Column{}, fmt.Errorf("field %q: unbalanced parentheses in type: %w", spec, dbobj.ErrInvalidConfig)
	}
	return Column{Name: words[0], Type: typ, Constraints: strings.Join(rest, " ")}, nil
}

// TableSpec describes a table to scaffold.
type TableSpec struct {
	Schema  string
	Name    string
	Columns []Column
}

// Qualified returns the table name with its schema, if any.
func (t TableSpec) Qualified() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// RenderTable renders the CREATE TABLE statement for spec.
func RenderTable(spec TableSpec) (string, error) {
	if !identifier.MatchString(spec.Name) {
		return "", fmt.Errorf("%q is not a valid table name: %w", spec.Name, dbobj.ErrInvalidConfig)
	}
	if len(spec.Columns) == 0 {
		return "", fmt.Errorf("table %s needs at least one column: %w", spec.Name, dbobj.ErrInvalidConfig)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "table.sql.tmpl", spec); err != nil {
		return "", fmt.Errorf("failed to render table %s: %w", spec.Name, err)
	}
	return buf.String(), nil
}

// CreateTable writes appDir/tables/<name>.sql. The rendered text is parsed
// back before writing, so an invalid column definition never reaches disk.
// An existing file is replaced only with force.
func CreateTable(fsys filesystem.FileSystemProvider, appDir string, spec TableSpec, force bool) (string, *dbobj.SchemaObject, error) {
	sql, err := RenderTable(spec)
	if err != nil {
		return "", nil, err
	}
	rel := naming.ExpectedPath(dbobj.KindTable, spec.Name)
	obj, err := tags.Parse(rel, sql)
	if err != nil {
		return "", nil, fmt.Errorf("generated definition for %s does not parse: %w", spec.Name, err)
	}

	target := filepath.Join(appDir, filepath.FromSlash(rel))
	if !force {
		if _, err := fsys.Stat(target); err == nil {
			return "", nil, fmt.Errorf("%s (use --force to overwrite): %w", target, dbobj.ErrObjectExists)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", nil, err
		}
	}
	if err := fsys.WriteFile(target, []byte(sql)); err != nil {
		return "", nil, fmt.Errorf("failed to write %s: %w", target, err)
	}
	return target, obj, nil
}

// placeholder keeps otherwise empty directories in version control.
const placeholder = ".gitkeep"

// InitProject creates dbobj.yaml and the directory layout of app below root.
// Existing files are left untouched. It returns the paths it created,
// relative to root.
func InitProject(fsys filesystem.FileSystemProvider, root, app string) ([]string, error) {
	if !identifier.MatchString(app) {
		return nil, fmt.Errorf("%q is not a valid application name: %w", app, dbobj.ErrInvalidConfig)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "dbobj.yaml.tmpl", struct{ App string }{app}); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", dbobj.ConfigFileName, err)
	}

	files := map[string][]byte{dbobj.ConfigFileName: buf.Bytes()}
	for _, dir := range []string{dbobj.TablesDir, dbobj.FunctionsDir, dbobj.VersionsDir} {
		files[path.Join(app, dir, placeholder)] = nil
	}

	var created []string
	for _, rel := range slices.Sorted(maps.Keys(files)) {
		target := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := fsys.Stat(target); err == nil {
			continue
		}
		if err := fsys.WriteFile(target, files[rel]); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", target, err)
		}
		created = append(created, rel)
	}
	return created, nil
}
