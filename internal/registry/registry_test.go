package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

func table(name, path string, fields ...dbobj.Field) *dbobj.SchemaObject {
	return &dbobj.SchemaObject{Kind: dbobj.KindTable, Name: name, Path: path, Fields: fields}
}

func TestRegister_DuplicateFromDifferentFile(t *testing.T) {
	for _, order := range [][2]string{{"tables/a.sql", "tables/b.sql"}, {"tables/b.sql", "tables/a.sql"}} {
		reg := New()
		require.NoError(t, reg.Register(table("users", order[0])))
		err := reg.Register(table("users", order[1]))

		var dup *dbobj.DuplicateObjectError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "users", dup.Name)
		assert.Equal(t, []string{"tables/a.sql", "tables/b.sql"}, dup.Files)
	}
}

func TestRegister_SameFileReplaces(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(table("users", "tables/users.sql")))
	replacement := table("users", "tables/users.sql", dbobj.Field{Name: "id"})
	require.NoError(t, reg.Register(replacement))

	got, ok := reg.Lookup("users")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Equal(t, 1, reg.Len())
}

func TestLookupAllRemove(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(table("orders", "tables/orders.sql")))
	require.NoError(t, reg.Register(table("accounts", "tables/accounts.sql")))
	require.NoError(t, reg.Register(&dbobj.SchemaObject{Kind: dbobj.KindFunction, Name: "get_orders", Path: "functions/get_orders.sql"}))

	assert.Equal(t, []string{"accounts", "get_orders", "orders"}, reg.Names())
	assert.Len(t, reg.Tables(), 2)
	assert.Len(t, reg.Functions(), 1)

	all := reg.All()
	assert.Equal(t, "accounts", all[0].Name)

	reg.Remove("orders")
	_, ok := reg.Lookup("orders")
	assert.False(t, ok)

	_, err := reg.MustLookup("orders")
	assert.ErrorIs(t, err, dbobj.ErrObjectNotFound)
}

func TestPopulate_DuplicateIndependentOfOrder(t *testing.T) {
	a := table("users", "tables/users.sql")
	b := table("users", "tables/people.sql")
	c := table("orders", "tables/orders.sql")

	for _, input := range [][]*dbobj.SchemaObject{{a, b, c}, {c, b, a}} {
		reg, report := Populate(input)
		require.Equal(t, 1, report.Len())

		var dup *dbobj.DuplicateObjectError
		require.True(t, errors.As(report.Errors()[0], &dup))
		assert.Equal(t, []string{"tables/people.sql", "tables/users.sql"}, dup.Files)

		got, _ := reg.Lookup("users")
		assert.Equal(t, "tables/people.sql", got.Path)
		assert.Equal(t, 2, reg.Len())
	}
}

func TestPopulate_FollowsRegisterRules(t *testing.T) {
	first := &dbobj.SchemaObject{Kind: dbobj.KindFunction, Name: "total", Path: "functions/total.sql"}
	overload := &dbobj.SchemaObject{Kind: dbobj.KindFunction, Name: "total", Path: "functions/total.sql"}
	reg, report := Populate([]*dbobj.SchemaObject{
		table("users", "tables/users.sql"),
		table("users", "tables/people.sql"),
		table("users", "tables/accounts.sql"),
		first,
		overload,
	})

	require.Equal(t, 1, report.Len())
	var dup *dbobj.DuplicateObjectError
	require.True(t, errors.As(report.Errors()[0], &dup))
	assert.Equal(t, []string{"tables/accounts.sql", "tables/people.sql", "tables/users.sql"}, dup.Files)

	users, _ := reg.Lookup("users")
	assert.Equal(t, "tables/accounts.sql", users.Path)

	got, _ := reg.Lookup("total")
	assert.Same(t, overload, got, "a later object from the same file replaces the earlier one")

	err := reg.Register(table("users", "tables/users.sql"))
	assert.ErrorIs(t, err, dbobj.ErrDuplicateObject)
}

func TestValidateReferences(t *testing.T) {
	teams := table("teams", "tables/teams.sql",
		dbobj.Field{Name: "pk_id", PrimaryKey: true},
		dbobj.Field{Name: "title"},
	)
	users := table("users", "tables/users.sql",
		dbobj.Field{Name: "pk_id", PrimaryKey: true},
		dbobj.Field{Name: "team_id", References: &dbobj.ForeignKey{Table: "teams"}},
		dbobj.Field{Name: "team_pk", References: &dbobj.ForeignKey{Table: "teams", Column: "pk_id"}},
		dbobj.Field{Name: "team_title", References: &dbobj.ForeignKey{Table: "teams", Column: "title"}},
		dbobj.Field{Name: "ghost_id", References: &dbobj.ForeignKey{Table: "ghosts"}},
	)

	reg, report := Populate([]*dbobj.SchemaObject{teams, users})
	require.True(t, report.OK())

	refs := reg.ValidateReferences()
	require.Equal(t, 2, refs.Len())

	var first, second *dbobj.DanglingReferenceError
	require.True(t, errors.As(refs.Errors()[0], &first))
	require.True(t, errors.As(refs.Errors()[1], &second))
	assert.Equal(t, "team_title", first.Field)
	assert.Equal(t, "column is not a primary key", first.Reason)
	assert.Equal(t, "ghost_id", second.Field)
	assert.Equal(t, "no such table", second.Reason)

	col, ok := reg.ResolveReference(&dbobj.ForeignKey{Table: "teams"})
	require.True(t, ok)
	assert.Equal(t, "pk_id", col)
}
