package scaffold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dbobj/internal/config"
	"github.com/vvka-141/dbobj/internal/files/filesystem"
	"github.com/vvka-141/dbobj/pkg/dbobj"
	"gopkg.in/yaml.v3"
)

func TestParseColumn(t *testing.T) {
	tests := []struct {
		spec    string
		want    Column
		wantErr bool
	}{
		{spec: "pk_id serial PRIMARY KEY", want: Column{Name: "pk_id", Type: "serial", Constraints: "PRIMARY KEY"}},
		{spec: "  email   text  ", want: Column{Name: "email", Type: "text"}},
		{spec: "total numeric(10, 2) NOT NULL DEFAULT 0", want: Column{Name: "total", Type: "numeric(10, 2)", Constraints: "NOT NULL DEFAULT 0"}},
		{spec: "user_id integer REFERENCES users", want: Column{Name: "user_id", Type: "integer", Constraints: "REFERENCES users"}},
		{spec: "lonely", wantErr: true},
		{spec: "1st text", wantErr: true},
		{spec: "total numeric(10, 2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseColumn(tt.spec)
			if tt.wantErr {
				assert.ErrorIs(t, err, dbobj.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func usersSpec() TableSpec {
	return TableSpec{Name: "users", Columns: []Column{
		{Name: "pk_id", Type: "serial", Constraints: "PRIMARY KEY"},
		{Name: "email", Type: "text", Constraints: "NOT NULL UNIQUE"},
	}}
}

func TestRenderTable(t *testing.T) {
	sql, err := RenderTable(usersSpec())
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE users (
    pk_id serial PRIMARY KEY,
    email text NOT NULL UNIQUE
);
`, sql)

	spec := usersSpec()
	spec.Schema = "app"
	sql, err = RenderTable(spec)
	require.NoError(t, err)
	assert.Contains(t, sql, "CREATE TABLE app.users (")

	_, err = RenderTable(TableSpec{Name: "empty"})
	assert.ErrorIs(t, err, dbobj.ErrInvalidConfig)
	_, err = RenderTable(TableSpec{Name: "bad name", Columns: usersSpec().Columns})
	assert.ErrorIs(t, err, dbobj.ErrInvalidConfig)
}

func TestCreateTable(t *testing.T) {
	fsys := filesystem.NewMemoryFileSystem("/root")

	target, obj, err := CreateTable(fsys, "shop", usersSpec(), false)
	require.NoError(t, err)
	assert.Equal(t, "shop/tables/users.sql", target)
	assert.Equal(t, "users", obj.Name)
	require.Len(t, obj.Fields, 2)
	assert.True(t, obj.Fields[0].PrimaryKey)
	assert.True(t, obj.Fields[1].Unique)

	data, err := fsys.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE users (")

	_, _, err = CreateTable(fsys, "shop", usersSpec(), false)
	assert.ErrorIs(t, err, dbobj.ErrObjectExists)

	_, _, err = CreateTable(fsys, "shop", usersSpec(), true)
	assert.NoError(t, err)
}

func TestCreateTable_RejectsUnparsableDefinition(t *testing.T) {
	fsys := filesystem.NewMemoryFileSystem("/root")
	spec := TableSpec{Name: "broken", Columns: []Column{{Name: "id", Type: "int", Constraints: "DEFAULT ("}}}

	_, _, err := CreateTable(fsys, "shop", spec, false)
	require.ErrorIs(t, err, dbobj.ErrParse)

	_, statErr := fsys.Stat("shop/tables/broken.sql")
	assert.Error(t, statErr)
}

func TestInitProject(t *testing.T) {
	fsys := filesystem.NewMemoryFileSystem("/root")

	created, err := InitProject(fsys, ".", "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"dbobj.yaml",
		"shop/functions/.gitkeep",
		"shop/tables/.gitkeep",
		"shop/versions/.gitkeep",
	}, created)

	data, err := fsys.ReadFile("dbobj.yaml")
	require.NoError(t, err)
	var cfg config.ProjectConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "shop", cfg.DefaultApp)
	assert.Equal(t, "primary", cfg.Environments["local"].DefaultEndpoint)

	created, err = InitProject(fsys, ".", "shop")
	require.NoError(t, err)
	assert.Empty(t, created)

	_, err = InitProject(fsys, ".", "no good")
	assert.ErrorIs(t, err, dbobj.ErrInvalidConfig)
}
