package dbobj

import (
	"fmt"
	"strings"
	"time"
)

// ObjectKind distinguishes the kinds of schema objects a definition file may declare.
type ObjectKind string

const (
	KindTable    ObjectKind = "table"
	KindFunction ObjectKind = "function"
)

// Dir returns the directory, relative to an application root, holding objects of this kind.
func (k ObjectKind) Dir() string {
	if k == KindFunction {
		return FunctionsDir
	}
	return TablesDir
}

// Span locates a piece of source text. Start and End are byte offsets into the
// normalized source; End is exclusive.
type Span struct {
	Line   int
	Column int
	Start  int
	End    int
}

// Tag is a piece of inline metadata. Field is empty for table-level tags.
type Tag struct {
	Name  string
	Value string
	Field string
}

// String renders the tag in its source form, e.g. "#short-name=user".
func (t Tag) String() string {
	if t.Value == "" {
		return "#" + t.Name
	}
	return "#" + t.Name + "=" + t.Value
}

// Tags is an ordered collection of tags on one target.
type Tags []Tag

// Has reports whether a tag with the given name is present.
func (ts Tags) Has(name string) bool {
	_, ok := ts.Lookup(name)
	return ok
}

// Lookup returns the first tag with the given name.
func (ts Tags) Lookup(name string) (Tag, bool) {
	for _, t := range ts {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}

// Value returns the value of the first tag with the given name, or "".
func (ts Tags) Value(name string) string {
	t, _ := ts.Lookup(name)
	return t.Value
}

// ForeignKey is the target of a REFERENCES clause. Column is empty when the
// clause names only a table, in which case the table's primary key is implied.
type ForeignKey struct {
	Table  string
	Column string
}

// Field is a table column or a function parameter.
type Field struct {
	Name       string
	Type       string
	Nullable   bool
	Default    string
	HasDefault bool
	Generated  bool
	PrimaryKey bool
	Unique     bool
	References *ForeignKey
	Tags       Tags
	Span       Span
}

// HasNonNullDefault reports whether the field declares a default other than NULL.
func (f *Field) HasNonNullDefault() bool {
	return f.HasDefault && !strings.EqualFold(strings.TrimSpace(f.Default), "null")
}

// IsSerial reports whether the field uses one of the auto-incrementing pseudo-types.
func (f *Field) IsSerial() bool {
	switch strings.ToLower(f.Type) {
	case "serial", "serial4", "bigserial", "serial8", "smallserial", "serial2":
		return true
	}
	return false
}

// ConstraintKind enumerates table constraint kinds.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "primary-key"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign-key"
	ConstraintCheck      ConstraintKind = "check"
)

// Constraint is a column-level or table-level constraint.
type Constraint struct {
	Kind       ConstraintKind
	Name       string
	Fields     []string
	RefTable   string
	RefColumns []string
	Expression string
}

// SchemaObject is a parsed table or function definition.
type SchemaObject struct {
	Kind        ObjectKind
	Schema      string
	Name        string
	Path        string
	Source      string
	Fields      []Field
	Constraints []Constraint
	Tags        Tags

	// Returns and Language are set for functions only.
	Returns  string
	Language string

	// Span covers the whole CREATE statement including its terminator.
	Span Span
}

// QualifiedName returns schema.name, or name when no schema was declared.
func (o *SchemaObject) QualifiedName() string {
	if o.Schema == "" {
		return o.Name
	}
	return o.Schema + "." + o.Name
}

// Field returns the field with the given name.
func (o *SchemaObject) Field(name string) (*Field, bool) {
	for i := range o.Fields {
		if o.Fields[i].Name == name {
			return &o.Fields[i], true
		}
	}
	return nil, false
}

// PrimaryKey returns the primary-key fields in declaration order.
func (o *SchemaObject) PrimaryKey() []Field {
	var pk []Field
	for _, f := range o.Fields {
		if f.PrimaryKey {
			pk = append(pk, f)
		}
	}
	return pk
}

// AllTags returns table-level tags followed by field tags in declaration order.
func (o *SchemaObject) AllTags() Tags {
	all := append(Tags{}, o.Tags...)
	for _, f := range o.Fields {
		all = append(all, f.Tags...)
	}
	return all
}

// ManifestEntry is one object captured by a version snapshot.
type ManifestEntry struct {
	Name     string     `yaml:"name" json:"name"`
	Kind     ObjectKind `yaml:"kind" json:"kind"`
	Path     string     `yaml:"path" json:"path"`
	Checksum string     `yaml:"checksum" json:"checksum"`
	ID       string     `yaml:"id" json:"id"`
}

// VersionManifest is a named snapshot of the objects belonging to a version.
// It becomes immutable once Locked is set by a passing check.
type VersionManifest struct {
	Version     string          `yaml:"version" json:"version"`
	ID          string          `yaml:"id" json:"id"`
	Application string          `yaml:"application" json:"application"`
	CreatedAt   time.Time       `yaml:"created_at" json:"created_at"`
	Locked      bool            `yaml:"locked" json:"locked"`
	CheckedAt   *time.Time      `yaml:"checked_at,omitempty" json:"checked_at,omitempty"`
	Objects     []ManifestEntry `yaml:"objects" json:"objects"`
}

// Entry returns the entry for the named object.
func (m *VersionManifest) Entry(name string) (ManifestEntry, bool) {
	for _, e := range m.Objects {
		if e.Name == name {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

// Direction says which side of a replication route the application database is on.
type Direction string

const (
	// DirectionFrom: the application database subscribes to a remote source.
	DirectionFrom Direction = "from"
	// DirectionTo: the application database publishes to a remote target.
	DirectionTo Direction = "to"
)

// Endpoint is a named database connection used by replication.
type Endpoint struct {
	Name   string
	Config *ConnectionConfig
}

func (e Endpoint) String() string {
	if e.Name != "" {
		return e.Name
	}
	if e.Config == nil {
		return "<unset>"
	}
	return fmt.Sprintf("%s:%d/%s", e.Config.Host, e.Config.Port, e.Config.Database)
}

// ReplicationRoute describes one publication/subscription pair. The publication
// always lives on Source and the subscription on Target.
type ReplicationRoute struct {
	Application  string
	Direction    Direction
	Source       Endpoint
	Target       Endpoint
	Tables       []string
	Applied      []string
	Publication  string
	Subscription string
}

// String names the route for messages.
func (r *ReplicationRoute) String() string {
	return fmt.Sprintf("%s -> %s", r.Source, r.Target)
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	SSLCert     string
	SSLKey      string
	SSLRootCert string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID parameters. With all three set, Service Principal
	// authentication is used; otherwise the DefaultAzureCredential chain.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	AWSRegion      string
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodCertificate                    // mTLS
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodCertificate:
		return "Certificate"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps a configuration value such as "aws-iam" to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "certificate", "cert", "mtls":
		return AuthMethodCertificate, nil
	case "aws", "aws-iam", "awsiam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra", "entra":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("%q: %w", s, ErrUnsupportedAuthMethod)
	}
}
