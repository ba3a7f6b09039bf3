package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_Open(t *testing.T) {
	dir := t.TempDir()
	p := NewOSFileSystem()

	d, err := p.Open(dir)
	require.NoError(t, err)
	absDir, _ := filepath.Abs(dir)
	assert.Equal(t, absDir, d.Path())

	_, err = p.Open(filepath.Join(dir, "nonexistent"))
	assert.Error(t, err)

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0o644))
	_, err = p.Open(file)
	assert.Error(t, err)
}

func TestOSFileSystem_WalkUsesSlashRelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tables"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables", "users.sql"), []byte("x"), 0o644))

	d, err := NewOSFileSystem().Open(dir)
	require.NoError(t, err)

	var rels []string
	require.NoError(t, d.Walk(func(f File, err error) error {
		require.NoError(t, err)
		rels = append(rels, f.RelativePath())
		return nil
	}))
	assert.Equal(t, []string{"tables", "tables/users.sql"}, rels)
}

func TestOSFileSystem_WriteFileIsAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "manifest.yaml")
	p := NewOSFileSystem()

	require.NoError(t, p.WriteFile(target, []byte("first")))
	require.NoError(t, p.WriteFile(target, []byte("second")))

	data, err := p.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")

	info, err := p.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestOSFileSystem_ReadDirAndRemove(t *testing.T) {
	dir := t.TempDir()
	p := NewOSFileSystem()
	require.NoError(t, p.WriteFile(filepath.Join(dir, "a.sql"), []byte("a")))
	require.NoError(t, p.WriteFile(filepath.Join(dir, "b.sql"), []byte("b")))

	entries, err := p.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, p.Remove(filepath.Join(dir, "a.sql")))
	entries, err = p.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
