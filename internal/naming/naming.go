// Package naming checks that every object lives in the file its name implies.
//
// The check only reports. It never renames files, because the fix may belong
// on either side: the file name or the declared object name.
package naming

import (
	"path"
	"strings"

	"github.com/vvka-141/dbobj/internal/registry"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// ExpectedPath maps an object to its relative file path, e.g. tables/users.sql.
func ExpectedPath(kind dbobj.ObjectKind, name string) string {
	return path.Join(kind.Dir(), name+dbobj.SQLExtension)
}

// NameFromFile returns the object name a file implies: its base name without
// the .sql extension.
func NameFromFile(file string) string {
	base := path.Base(strings.ReplaceAll(file, "\\", "/"))
	if strings.EqualFold(path.Ext(base), dbobj.SQLExtension) {
		base = base[:len(base)-len(dbobj.SQLExtension)]
	}
	return base
}

// Matches reports whether file is an acceptable home for an object called
// name. Comparison ignores case, the .sql extension, and the difference
// between '-' and '_'.
func Matches(name, file string) bool {
	return canonical(name) == canonical(NameFromFile(file))
}

func canonical(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "-", "_"))
}

// Check reports a NamingMismatchError for every object whose file name does
// not match its declared name or whose file sits in the wrong kind directory,
// followed by any dangling foreign-key references.
func Check(reg *registry.Registry) *dbobj.Report {
	report := &dbobj.Report{}
	for _, obj := range reg.All() {
		if err := checkObject(obj); err != nil {
			report.Add(err)
		}
	}
	report.Merge(reg.ValidateReferences())
	return report
}

func checkObject(obj *dbobj.SchemaObject) error {
	dir := path.Dir(strings.ReplaceAll(obj.Path, "\\", "/"))
	inKindDir := dir == obj.Kind.Dir() || strings.HasSuffix(dir, "/"+obj.Kind.Dir())
	if Matches(obj.Name, obj.Path) && inKindDir {
		return nil
	}
	return &dbobj.NamingMismatchError{
		File:         obj.Path,
		ExpectedName: NameFromFile(obj.Path),
		ActualName:   obj.Name,
		ExpectedFile: ExpectedPath(obj.Kind, obj.Name),
	}
}
