package codegen

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vvka-141/dbobj/internal/files/filesystem"
	"github.com/vvka-141/dbobj/internal/registry"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Descriptor is the front-end scaffolding metadata of one table.
type Descriptor struct {
	Table     string            `json:"table"`
	Schema    string            `json:"schema,omitempty"`
	ShortName string            `json:"short_name"`
	Source    string            `json:"source"`
	Functions map[string]string `json:"functions"`
	Fields    []FieldDescriptor `json:"fields"`
}

// FieldDescriptor describes one column for a form or list view.
type FieldDescriptor struct {
	Name       string     `json:"name"`
	Label      string     `json:"label"`
	Type       string     `json:"type"`
	Nullable   bool       `json:"nullable"`
	PrimaryKey bool       `json:"primary_key"`
	Editable   bool       `json:"editable"`
	List       bool       `json:"list"`
	Filter     bool       `json:"filter"`
	References *Reference `json:"references,omitempty"`
}

// Reference is a resolved foreign key.
type Reference struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Path returns the descriptor file relative to the application root.
func (d Descriptor) Path() string {
	return path.Join(dbobj.DescriptorsDir, d.Table+".json")
}

// JSON renders the descriptor with stable indentation.
func (d Descriptor) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode descriptor for %s: %w", d.Table, err)
	}
	return append(data, '\n'), nil
}

// Label turns a field name into a display label: user_email becomes
// "User Email". A label tag overrides the derived value.
func Label(f dbobj.Field) string {
	if v := f.Tags.Value(TagLabel); v != "" {
		return v
	}
	words := strings.FieldsFunc(f.Name, func(r rune) bool { return r == '_' || r == '-' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// Editable is false only for a field with a non-null default that is not
// explicitly tagged editable.
func Editable(f dbobj.Field) bool {
	if f.Tags.Has(TagEditable) {
		return true
	}
	return !f.HasNonNullDefault()
}

// BuildDescriptor assembles the descriptor of table.
func BuildDescriptor(reg *registry.Registry, table *dbobj.SchemaObject, short string, fns []Function) Descriptor {
	listed := make(map[string]bool)
	for _, f := range listedFields(table) {
		listed[f.Name] = true
	}

	d := Descriptor{
		Table:     table.Name,
		Schema:    table.Schema,
		ShortName: short,
		Source:    table.Path,
		Functions: make(map[string]string, len(fns)),
	}
	for _, fn := range fns {
		d.Functions[fn.Verb] = fn.Name
	}
	for _, f := range table.Fields {
		fd := FieldDescriptor{
			Name:       f.Name,
			Label:      Label(f),
			Type:       f.Type,
			Nullable:   f.Nullable,
			PrimaryKey: f.PrimaryKey,
			Editable:   Editable(f),
			List:       listed[f.Name],
			Filter:     f.Tags.Has(TagListFilter),
		}
		if f.References != nil {
			col, _ := reg.ResolveReference(f.References)
			fd.References = &Reference{Table: f.References.Table, Column: col}
		}
		d.Fields = append(d.Fields, fd)
	}
	return d
}

// Write stores every generated function and descriptor below appDir.
// Each file is replaced atomically.
func Write(fsProvider filesystem.FileSystemProvider, appDir string, out *Output, logger dbobj.Logger) error {
	for _, fn := range out.Functions {
		target := filepath.Join(appDir, filepath.FromSlash(fn.Path))
		if err := fsProvider.WriteFile(target, []byte(fn.SQL)); err != nil {
			return err
		}
		logger.Verbose("Wrote %s", target)
	}
	for _, d := range out.Descriptors {
		data, err := d.JSON()
		if err != nil {
			return err
		}
		target := filepath.Join(appDir, filepath.FromSlash(d.Path()))
		if err := fsProvider.WriteFile(target, data); err != nil {
			return err
		}
		logger.Verbose("Wrote %s", target)
	}
	return nil
}
