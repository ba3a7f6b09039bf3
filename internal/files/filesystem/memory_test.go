package filesystem

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystem_WalkOrder(t *testing.T) {
	mfs := NewMemoryFileSystem("/project")
	mfs.AddFile("shop/tables/users.sql", "create table users (id int);")
	mfs.AddFile("shop/functions/get_user.sql", "create function get_user() returns void as $$ $$ language sql;")
	mfs.AddFile("shop/tables/orders.sql", "create table orders (id int);")

	dir, err := mfs.Open("shop")
	require.NoError(t, err)

	var files, dirs []string
	err = dir.Walk(func(f File, err error) error {
		require.NoError(t, err)
		if f.Info().IsDir() {
			dirs = append(dirs, f.RelativePath())
		} else {
			files = append(files, f.RelativePath())
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"functions", "tables"}, dirs)
	assert.Equal(t, []string{"functions/get_user.sql", "tables/orders.sql", "tables/users.sql"}, files)
}

func TestMemoryFileSystem_ReadWriteRemove(t *testing.T) {
	mfs := NewMemoryFileSystem("/project")
	require.NoError(t, mfs.WriteFile("a/b.txt", []byte("one")))
	require.NoError(t, mfs.WriteFile("/project/a/b.txt", []byte("two")))

	data, err := mfs.ReadFile("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	info, err := mfs.Stat("a")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, mfs.Remove("a/b.txt"))
	_, err = mfs.ReadFile("a/b.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = mfs.Stat("a")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem("/r")
	mfs.AddFile("shop/versions/v1/manifest.yaml", "version: v1")
	mfs.AddFile("shop/versions/v2/manifest.yaml", "version: v2")
	mfs.AddFile("shop/versions/notes.txt", "x")

	entries, err := mfs.ReadDir("shop/versions")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "notes.txt", entries[0].Name())
	assert.False(t, entries[0].IsDir())
	assert.Equal(t, "v1", entries[1].Name())
	assert.True(t, entries[1].IsDir())

	_, err = mfs.ReadDir("missing")
	assert.Error(t, err)
}

func TestMemoryFileSystem_OpenErrors(t *testing.T) {
	mfs := NewMemoryFileSystem("/r")
	mfs.AddFile("file.sql", "x")

	_, err := mfs.Open("file.sql")
	assert.Error(t, err)

	_, err = mfs.Open("nope")
	assert.Error(t, err)

	_, err = mfs.Open(".")
	assert.NoError(t, err)
}
