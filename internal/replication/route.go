package replication

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/vvka-141/dbobj/internal/registry"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Tags interpreted by the configurator.
const (
	// TagReplicaIdentity marks the field(s) used as replica identity. On a
	// table the value "full" selects REPLICA IDENTITY FULL.
	TagReplicaIdentity = "replica-identity"
	// TagReplicate marks a table as a replication candidate; it selects
	// tables when no explicit list is given.
	TagReplicate = "replicate"
)

// InterpretedTags lists the tag names this package gives meaning to.
var InterpretedTags = []string{TagReplicaIdentity, TagReplicate}

// Default object name prefixes.
const (
	DefaultPublicationPrefix  = "dbobj_pub_"
	DefaultSubscriptionPrefix = "dbobj_sub_"
)

const defaultSchema = "public"

// Naming controls how publication and subscription names are derived.
type Naming struct {
	PublicationPrefix  string
	SubscriptionPrefix string
}

func (n Naming) withDefaults() Naming {
	if n.PublicationPrefix == "" {
		n.PublicationPrefix = DefaultPublicationPrefix
	}
	if n.SubscriptionPrefix == "" {
		n.SubscriptionPrefix = DefaultSubscriptionPrefix
	}
	return n
}

// NewRoute builds the route for app. local is the application database and
// remote the named peer; direction decides which side publishes.
func NewRoute(app string, direction dbobj.Direction, local, remote dbobj.Endpoint, tables []string, naming Naming) (*dbobj.ReplicationRoute, error) {
	route := &dbobj.ReplicationRoute{
		Application: app,
		Direction:   direction,
		Tables:      uniqueSorted(tables),
	}
	switch direction {
	case dbobj.DirectionFrom:
		route.Source, route.Target = remote, local
	case dbobj.DirectionTo:
		route.Source, route.Target = local, remote
	default:
		return nil, fmt.Errorf("unknown replication direction %q: %w", direction, dbobj.ErrInvalidConfig)
	}
	naming = naming.withDefaults()
	route.Publication = objectName(naming.PublicationPrefix, app, route.Target.Name)
	route.Subscription = objectName(naming.SubscriptionPrefix, app, route.Source.Name)
	return route, nil
}

var nonName = regexp.MustCompile(`[^a-z0-9_]+`)

// objectName lowercases and joins the parts into a valid unquoted identifier
// of at most 63 bytes.
func objectName(prefix string, parts ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		p = strings.Trim(nonName.ReplaceAllString(strings.ToLower(p), "_"), "_")
		if p == "" {
			continue
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
		b.WriteString(p)
	}
	name := nonName.ReplaceAllString(strings.ToLower(b.String()), "_")
	if len(name) > 63 {
		name = name[:63]
	}
	return strings.TrimRight(name, "_")
}

// Identity is the replica identity of one table.
type Identity struct {
	Table string
	// Index is the unique index used with REPLICA IDENTITY USING INDEX.
	// Empty with Full unset means the primary key (PostgreSQL's default).
	Index string
	Full  bool
}

// Tagged reports whether the identity comes from a replica-identity tag and
// therefore needs an ALTER TABLE.
func (i Identity) Tagged() bool { return i.Full || i.Index != "" }

// Statement renders the ALTER TABLE for a tagged identity.
func (i Identity) Statement() string {
	if i.Full {
		return fmt.Sprintf("ALTER TABLE %s REPLICA IDENTITY FULL", quoteQualified(i.Table))
	}
	return fmt.Sprintf("ALTER TABLE %s REPLICA IDENTITY USING INDEX %s", quoteQualified(i.Table), quoteIdent(i.Index))
}

// ResolveTables validates the route's tables against reg and returns the
// replica identity of each, keyed by the schema-qualified table name. Every
// offending table is reported in one ReplicationConfigError.
func ResolveTables(reg *registry.Registry, route *dbobj.ReplicationRoute) (map[string]Identity, error) {
	if len(route.Tables) == 0 {
		return nil, &dbobj.ReplicationConfigError{Route: route.String(), Reason: "no tables selected"}
	}

	report := &dbobj.Report{}
	var unknown, noIdentity []string
	identities := make(map[string]Identity, len(route.Tables))

	for _, name := range route.Tables {
		obj, ok := reg.Lookup(name)
		if !ok || obj.Kind != dbobj.KindTable {
			unknown = append(unknown, name)
			continue
		}
		id, ok := identityOf(obj)
		if !ok {
			noIdentity = append(noIdentity, name)
			continue
		}
		identities[id.Table] = id
	}

	if len(unknown) > 0 {
		report.Add(&dbobj.ReplicationConfigError{
			Route:  route.String(),
			Tables: unknown,
			Reason: "tables are not defined in application " + route.Application,
		})
	}
	if len(noIdentity) > 0 {
		report.Add(&dbobj.ReplicationConfigError{
			Route:  route.String(),
			Tables: noIdentity,
			Reason: "tables have no primary key and no usable #" + TagReplicaIdentity + " field",
		})
	}
	if !report.OK() {
		return nil, report.Err()
	}
	return identities, nil
}

// TaggedTables returns the tables marked #replicate, sorted by name. It
// selects the tables of a route given no explicit list.
func TaggedTables(reg *registry.Registry) []string {
	var names []string
	for _, t := range reg.Tables() {
		if t.Tags.Has(TagReplicate) {
			names = append(names, t.Name)
		}
	}
	return names
}

// identityOf prefers an explicit replica-identity tag over the primary key.
// Tagged fields must match a unique constraint over NOT NULL columns.
func identityOf(obj *dbobj.SchemaObject) (Identity, bool) {
	table := qualifiedTable(obj)

	if strings.EqualFold(obj.Tags.Value(TagReplicaIdentity), "full") {
		return Identity{Table: table, Full: true}, true
	}

	var tagged []string
	explicitIndex := ""
	for _, f := range obj.Fields {
		if t, ok := f.Tags.Lookup(TagReplicaIdentity); ok {
			tagged = append(tagged, f.Name)
			if t.Value != "" {
				explicitIndex = t.Value
			}
		}
	}
	if len(tagged) > 0 {
		index, ok := uniqueIndex(obj, tagged)
		if !ok {
			return Identity{}, false
		}
		if explicitIndex != "" {
			index = explicitIndex
		}
		return Identity{Table: table, Index: index}, true
	}

	if len(obj.PrimaryKey()) > 0 {
		return Identity{Table: table}, true
	}
	return Identity{}, false
}

// uniqueIndex finds the unique constraint covering exactly fields and returns
// the name PostgreSQL gives its index.
func uniqueIndex(obj *dbobj.SchemaObject, fields []string) (string, bool) {
	for _, name := range fields {
		f, _ := obj.Field(name)
		if f.Nullable && !f.PrimaryKey {
			return "", false
		}
	}
	want := strings.Join(uniqueSorted(fields), ",")
	for _, c := range obj.Constraints {
		if c.Kind != dbobj.ConstraintUnique && c.Kind != dbobj.ConstraintPrimaryKey {
			continue
		}
		if strings.Join(uniqueSorted(c.Fields), ",") != want {
			continue
		}
		if c.Name != "" {
			return c.Name, true
		}
		suffix := "key"
		if c.Kind == dbobj.ConstraintPrimaryKey {
			suffix = "pkey"
			return objectName("", obj.Name, suffix), true
		}
		return objectName("", append([]string{obj.Name}, c.Fields...)...) + "_" + suffix, true
	}
	return "", false
}

func qualifiedTable(obj *dbobj.SchemaObject) string {
	schema := obj.Schema
	if schema == "" {
		schema = defaultSchema
	}
	return schema + "." + obj.Name
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

func quoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteQualified quotes a schema.table name produced by qualifiedTable.
func quoteQualified(name string) string {
	schema, table, _ := strings.Cut(name, ".")
	return quoteIdent(schema) + "." + quoteIdent(table)
}
