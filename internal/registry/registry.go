// Package registry holds the parsed schema objects of one command invocation.
//
// A Registry is built once from a directory scan and then only read. It is
// not persisted and there is no process-wide instance: callers construct one
// and pass it explicitly.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Registry indexes schema objects by name.
// It is not safe for concurrent mutation; reads after population are safe.
type Registry struct {
	objects map[string]*dbobj.SchemaObject
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{objects: make(map[string]*dbobj.SchemaObject)}
}

// Register adds obj. Registering a name already taken by an object from a
// different file fails with *dbobj.DuplicateObjectError; registering again
// from the same file replaces the previous object wholesale.
func (r *Registry) Register(obj *dbobj.SchemaObject) error {
	if existing, ok := r.objects[obj.Name]; ok && existing.Path != obj.Path {
		files := []string{existing.Path, obj.Path}
		sort.Strings(files)
		return &dbobj.DuplicateObjectError{Name: obj.Name, Files: files}
	}
	r.objects[obj.Name] = obj
	return nil
}

// Lookup returns the object with the given name.
func (r *Registry) Lookup(name string) (*dbobj.SchemaObject, bool) {
	obj, ok := r.objects[name]
	return obj, ok
}

// MustLookup is Lookup returning dbobj.ErrObjectNotFound for unknown names.
func (r *Registry) MustLookup(name string) (*dbobj.SchemaObject, error) {
	obj, ok := r.objects[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, dbobj.ErrObjectNotFound)
	}
	return obj, nil
}

// Remove deletes the named object. Removing an unknown name is a no-op.
func (r *Registry) Remove(name string) {
	delete(r.objects, name)
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	return len(r.objects)
}

// All returns every object sorted by name.
func (r *Registry) All() []*dbobj.SchemaObject {
	out := make([]*dbobj.SchemaObject, 0, len(r.objects))
	for _, obj := range r.objects {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Tables returns every table sorted by name.
func (r *Registry) Tables() []*dbobj.SchemaObject {
	return r.ofKind(dbobj.KindTable)
}

// Functions returns every function sorted by name.
func (r *Registry) Functions() []*dbobj.SchemaObject {
	return r.ofKind(dbobj.KindFunction)
}

func (r *Registry) ofKind(kind dbobj.ObjectKind) []*dbobj.SchemaObject {
	var out []*dbobj.SchemaObject
	for _, obj := range r.All() {
		if obj.Kind == kind {
			out = append(out, obj)
		}
	}
	return out
}

// Names returns all object names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.objects))
	for n := range r.objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ValidateReferences checks that every foreign key resolves to an existing
// table and to a column of that table carrying a primary key. A reference
// without a column resolves to the target's primary key, which must consist
// of exactly one column.
func (r *Registry) ValidateReferences() *dbobj.Report {
	report := &dbobj.Report{}
	for _, obj := range r.Tables() {
		for _, f := range obj.Fields {
			if f.References == nil {
				continue
			}
			if err := r.checkReference(obj, f); err != nil {
				report.Add(err)
			}
		}
	}
	return report
}

func (r *Registry) checkReference(obj *dbobj.SchemaObject, f dbobj.Field) error {
	ref := f.References
	dangling := func(reason string) error {
		return &dbobj.DanglingReferenceError{
			File:      obj.Path,
			Object:    obj.Name,
			Field:     f.Name,
			RefTable:  ref.Table,
			RefColumn: ref.Column,
			Reason:    reason,
		}
	}

	target, ok := r.objects[ref.Table]
	if !ok || target.Kind != dbobj.KindTable {
		return dangling("no such table")
	}

	if ref.Column == "" {
		if len(target.PrimaryKey()) != 1 {
			return dangling("target has no single-column primary key")
		}
		return nil
	}

	col, ok := target.Field(ref.Column)
	if !ok {
		return dangling("no such column")
	}
	if !col.PrimaryKey {
		return dangling("column is not a primary key")
	}
	return nil
}

// ResolveReference returns the column a foreign key points at, filling in the
// target's primary key when the reference names only a table.
func (r *Registry) ResolveReference(ref *dbobj.ForeignKey) (string, bool) {
	if ref == nil {
		return "", false
	}
	if ref.Column != "" {
		return ref.Column, true
	}
	target, ok := r.objects[ref.Table]
	if !ok {
		return "", false
	}
	pk := target.PrimaryKey()
	if len(pk) != 1 {
		return "", false
	}
	return pk[0].Name, true
}

// Populate builds a registry from fully parsed objects. It runs only after
// every file has been read, so a duplicate is reported once, naming every
// file that declares the name, whatever order the files were scanned in.
// The object from the lexically first file stays registered.
func Populate(objects []*dbobj.SchemaObject) (*Registry, *dbobj.Report) {
	sorted := append([]*dbobj.SchemaObject(nil), objects...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	reg := New()
	clashes := make(map[string][]string)
	for _, obj := range sorted {
		var dup *dbobj.DuplicateObjectError
		if err := reg.Register(obj); errors.As(err, &dup) {
			clashes[dup.Name] = append(clashes[dup.Name], dup.Files...)
		}
	}

	report := &dbobj.Report{}
	names := make([]string, 0, len(clashes))
	for name := range clashes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.Add(&dbobj.DuplicateObjectError{Name: name, Files: uniqueSorted(clashes[name])})
	}
	return reg, report
}

func uniqueSorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 0
	for i, s := range out {
		if i == 0 || s != out[n-1] {
			out[n] = s
			n++
		}
	}
	return out[:n]
}
