package dbobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMethod_String(t *testing.T) {
	tests := []struct {
		method AuthMethod
		want   string
	}{
		{AuthMethodStandard, "Standard"},
		{AuthMethodCertificate, "Certificate"},
		{AuthMethodAWSIAM, "AWS IAM"},
		{AuthMethodGoogleIAM, "Google IAM"},
		{AuthMethodAzureEntraID, "Azure Entra ID"},
		{AuthMethod(99), "Unknown(99)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.method.String())
		})
	}
}

func TestParseAuthMethod(t *testing.T) {
	m, err := ParseAuthMethod("aws-iam")
	require.NoError(t, err)
	assert.Equal(t, AuthMethodAWSIAM, m)

	m, err = ParseAuthMethod("")
	require.NoError(t, err)
	assert.Equal(t, AuthMethodStandard, m)

	_, err = ParseAuthMethod("kerberos")
	assert.ErrorIs(t, err, ErrUnsupportedAuthMethod)
}

func TestField_HasNonNullDefault(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		want  bool
	}{
		{"no default", Field{}, false},
		{"null default", Field{HasDefault: true, Default: "NULL"}, false},
		{"now()", Field{HasDefault: true, Default: "now()"}, true},
		{"literal", Field{HasDefault: true, Default: "'active'"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.field.HasNonNullDefault())
		})
	}
}

func TestSchemaObject_Accessors(t *testing.T) {
	obj := &SchemaObject{
		Kind:   KindTable,
		Schema: "app",
		Name:   "users",
		Fields: []Field{
			{Name: "pk_id", Type: "serial", PrimaryKey: true},
			{Name: "name", Type: "text", Tags: Tags{{Name: "list", Field: "name"}}},
		},
		Tags: Tags{{Name: "short-name", Value: "user"}},
	}

	assert.Equal(t, "app.users", obj.QualifiedName())
	pk := obj.PrimaryKey()
	require.Len(t, pk, 1)
	assert.Equal(t, "pk_id", pk[0].Name)
	assert.True(t, pk[0].IsSerial())

	f, ok := obj.Field("name")
	require.True(t, ok)
	assert.True(t, f.Tags.Has("list"))

	_, ok = obj.Field("missing")
	assert.False(t, ok)

	assert.Equal(t, "user", obj.Tags.Value("short-name"))
	assert.Len(t, obj.AllTags(), 2)
	assert.Equal(t, "#short-name=user", obj.Tags[0].String())
}

func TestObjectKind_Dir(t *testing.T) {
	assert.Equal(t, TablesDir, KindTable.Dir())
	assert.Equal(t, FunctionsDir, KindFunction.Dir())
}
