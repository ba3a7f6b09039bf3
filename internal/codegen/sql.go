package codegen

import (
	"regexp"
	"strings"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

type param struct {
	Name     string
	Type     string
	Optional bool
}

func (p param) String() string {
	if p.Optional {
		return p.Name + " " + p.Type + " DEFAULT NULL"
	}
	return p.Name + " " + p.Type
}

type templateData struct {
	Source      string
	Function    string
	Table       string
	Params      []string
	Returns     []string
	Columns     []string
	Values      []string
	Assignments []string
	Key         []string
	Filters     []string
	OrderBy     []string
}

// buildData assembles the template input for verb. A non-empty skip reason
// means the verb cannot be generated for this table.
func buildData(verb string, table *dbobj.SchemaObject, pk []dbobj.Field) (templateData, string) {
	data := templateData{Source: table.Path, Table: qualify(table.Schema, table.Name)}

	keyParams := func() {
		var ps []param
		for _, f := range pk {
			ps = append(ps, param{Name: paramName(f.Name), Type: paramType(f)})
			data.Key = append(data.Key, "src."+quoteIdent(f.Name)+" = "+paramName(f.Name))
		}
		data.Params = renderParams(ps)
	}

	switch verb {
	case "get", "delete":
		if len(pk) == 0 {
			return data, "table has no primary key"
		}
		keyParams()

	case "create":
		var ps []param
		for _, f := range table.Fields {
			if f.Generated || (f.PrimaryKey && (f.HasDefault || f.IsSerial())) {
				continue
			}
			optional := !f.PrimaryKey && (f.Nullable || f.HasDefault)
			ps = append(ps, param{Name: paramName(f.Name), Type: paramType(f), Optional: optional})
			data.Columns = append(data.Columns, quoteIdent(f.Name))
			if f.HasNonNullDefault() {
				data.Values = append(data.Values, "COALESCE("+paramName(f.Name)+", "+f.Default+")")
			} else {
				data.Values = append(data.Values, paramName(f.Name))
			}
		}
		data.Params = renderParams(ps)

	case "update":
		if len(pk) == 0 {
			return data, "table has no primary key"
		}
		keyParams()
		ps := pkParams(pk)
		for _, f := range table.Fields {
			if f.PrimaryKey || f.Generated {
				continue
			}
			ps = append(ps, param{Name: paramName(f.Name), Type: paramType(f)})
			data.Assignments = append(data.Assignments, quoteIdent(f.Name)+" = "+paramName(f.Name))
		}
		if len(data.Assignments) == 0 {
			return data, "table has no updatable columns"
		}
		data.Params = renderParams(ps)

	case "list":
		listed := listedFields(table)
		var ps []param
		for _, f := range listed {
			data.Columns = append(data.Columns, "src."+quoteIdent(f.Name))
			data.Returns = append(data.Returns, quoteIdent(f.Name)+" "+paramType(f))
		}
		for _, f := range table.Fields {
			if !f.Tags.Has(TagListFilter) {
				continue
			}
			ps = append(ps, param{Name: paramName(f.Name), Type: paramType(f), Optional: true})
			data.Filters = append(data.Filters,
				"("+paramName(f.Name)+" IS NULL OR src."+quoteIdent(f.Name)+" = "+paramName(f.Name)+")")
		}
		for _, f := range pk {
			data.OrderBy = append(data.OrderBy, "src."+quoteIdent(f.Name))
		}
		data.Params = renderParams(ps)
	}
	return data, ""
}

func pkParams(pk []dbobj.Field) []param {
	ps := make([]param, 0, len(pk))
	for _, f := range pk {
		ps = append(ps, param{Name: paramName(f.Name), Type: paramType(f)})
	}
	return ps
}

// listedFields returns the projection of the list function: primary-key
// fields plus fields tagged list, or every field when none is tagged.
func listedFields(table *dbobj.SchemaObject) []dbobj.Field {
	anyTagged := false
	for _, f := range table.Fields {
		if f.Tags.Has(TagList) {
			anyTagged = true
			break
		}
	}
	if !anyTagged {
		return table.Fields
	}
	var out []dbobj.Field
	for _, f := range table.Fields {
		if f.PrimaryKey || f.Tags.Has(TagList) {
			out = append(out, f)
		}
	}
	return out
}

// renderParams keeps declaration order. PostgreSQL requires every parameter
// after one with a default to have a default too, so only the trailing run of
// optional parameters gets DEFAULT NULL; earlier optional ones stay
// positional and still accept NULL.
func renderParams(ps []param) []string {
	trailing := len(ps)
	for trailing > 0 && ps[trailing-1].Optional {
		trailing--
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		p.Optional = i >= trailing
		out[i] = p.String()
	}
	return out
}

func paramName(field string) string {
	return "p_" + nonIdent.ReplaceAllString(strings.ToLower(field), "_")
}

// paramType maps a column type to the type of a parameter carrying its value.
func paramType(f dbobj.Field) string {
	switch strings.ToLower(f.Type) {
	case "serial", "serial4":
		return "integer"
	case "bigserial", "serial8":
		return "bigint"
	case "smallserial", "serial2":
		return "smallint"
	}
	return f.Type
}

var (
	nonIdent   = regexp.MustCompile(`[^a-z0-9_]`)
	plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)
)

// keywords cannot appear unquoted as column or parameter names: PostgreSQL's
// reserved, type/function-name and column-name keywords.
var keywords = toSet(
	// reserved
	"all", "analyse", "analyze", "and", "any", "array", "as", "asc", "asymmetric",
	"both", "case", "cast", "check", "collate", "column", "constraint", "create",
	"current_catalog", "current_date", "current_role", "current_time",
	"current_timestamp", "current_user", "default", "deferrable", "desc",
	"distinct", "do", "else", "end", "except", "false", "fetch", "for", "foreign",
	"from", "grant", "group", "having", "in", "initially", "intersect", "into",
	"lateral", "leading", "limit", "localtime", "localtimestamp", "not", "null",
	"offset", "on", "only", "or", "order", "placing", "primary", "references",
	"returning", "select", "session_user", "some", "symmetric", "system_user",
	"table", "then", "to", "trailing", "true", "union", "unique", "user", "using",
	"variadic", "when", "where", "window", "with",
	// type and function names
	"authorization", "binary", "collation", "concurrently", "cross",
	"current_schema", "freeze", "full", "ilike", "inner", "is", "isnull", "join",
	"left", "like", "natural", "notnull", "outer", "overlaps", "right", "similar",
	"tablesample", "verbose",
	// column names
	"between", "bigint", "bit", "boolean", "char", "character", "coalesce", "dec",
	"decimal", "exists", "extract", "float", "greatest", "grouping", "inout", "int",
	"integer", "interval", "json", "least", "national", "nchar", "none",
	"normalize", "nullif", "numeric", "out", "overlay", "position", "precision",
	"real", "row", "setof", "smallint", "substring", "time", "timestamp", "treat",
	"trim", "values", "varchar",
)

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func quoteIdent(name string) string {
	if plainIdent.MatchString(name) && !keywords[name] {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func qualify(schema, name string) string {
	if schema == "" {
		return quoteIdent(name)
	}
	return quoteIdent(schema) + "." + quoteIdent(name)
}
