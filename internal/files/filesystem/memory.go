package filesystem

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return f.isDir }
func (f *memoryFileInfo) Sys() any           { return nil }

func (f *memoryFileInfo) Mode() fs.FileMode {
	if f.isDir {
		return 0o755 | fs.ModeDir
	}
	return 0o644
}

type memoryEntry struct {
	absPath string
	relPath string
	content []byte
	info    *memoryFileInfo
}

func (e *memoryEntry) Path() string         { return e.absPath }
func (e *memoryEntry) RelativePath() string { return e.relPath }
func (e *memoryEntry) Info() FileInfo       { return e.info }

func (e *memoryEntry) ReadContent() ([]byte, error) {
	return append([]byte(nil), e.content...), nil
}

type memoryDirectory struct {
	absPath string
	fs      *MemoryFileSystem
}

func (d *memoryDirectory) Path() string { return d.absPath }

func (d *memoryDirectory) Walk(fn func(File, error) error) error {
	for _, entry := range d.fs.entriesUnder(d.absPath) {
		if err := fn(entry, nil); err != nil {
			return err
		}
	}
	return nil
}

// MemoryFileSystem is an in-memory FileSystemProvider. Directories exist
// implicitly whenever a file lives below them. It is safe for concurrent use.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string]*memoryEntry
	root  string
}

// NewMemoryFileSystem creates an empty tree. Relative paths passed to any
// method resolve against root.
func NewMemoryFileSystem(root string) *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string]*memoryEntry),
		root:  path.Clean(filepath.ToSlash(root)),
	}
}

// AddFile stores content at p.
func (m *MemoryFileSystem) AddFile(p string, content string) {
	_ = m.WriteFile(p, []byte(content))
}

func (m *MemoryFileSystem) abs(p string) string {
	p = filepath.ToSlash(p)
	if p == "" || p == "." {
		return m.root
	}
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(m.root, p)
}

func (m *MemoryFileSystem) isDir(abs string) bool {
	prefix := strings.TrimSuffix(abs, "/") + "/"
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (m *MemoryFileSystem) entriesUnder(base string) []*memoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := strings.TrimSuffix(base, "/") + "/"
	dirs := make(map[string]bool)
	var out []*memoryEntry
	for p, e := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rel := strings.TrimPrefix(p, prefix)
		out = append(out, &memoryEntry{absPath: p, relPath: rel, content: e.content, info: e.info})
		for dir := path.Dir(rel); dir != "."; dir = path.Dir(dir) {
			dirs[dir] = true
		}
	}
	for dir := range dirs {
		out = append(out, &memoryEntry{
			absPath: prefix + dir,
			relPath: dir,
			info:    &memoryFileInfo{name: path.Base(dir), isDir: true},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].relPath < out[j].relPath })
	return out
}

func (m *MemoryFileSystem) Open(p string) (Directory, error) {
	abs := m.abs(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[abs]; ok {
		return nil, fmt.Errorf("path is not a directory: %s", p)
	}
	if abs != m.root && !m.isDir(abs) {
		return nil, fmt.Errorf("directory not found: %s", p)
	}
	return &memoryDirectory{absPath: abs, fs: m}, nil
}

func (m *MemoryFileSystem) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.files[m.abs(p)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), e.content...), nil
}

// ReadDir lists the direct children of p sorted by name.
func (m *MemoryFileSystem) ReadDir(p string) ([]FileInfo, error) {
	abs := m.abs(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if abs != m.root && !m.isDir(abs) {
		return nil, &fs.PathError{Op: "readdir", Path: p, Err: fs.ErrNotExist}
	}

	prefix := strings.TrimSuffix(abs, "/") + "/"
	seen := make(map[string]FileInfo)
	for fp, e := range m.files {
		if !strings.HasPrefix(fp, prefix) {
			continue
		}
		rel := strings.TrimPrefix(fp, prefix)
		if first, _, nested := strings.Cut(rel, "/"); nested {
			seen[first] = &memoryFileInfo{name: first, isDir: true}
		} else {
			seen[rel] = e.info
		}
	}
	out := make([]FileInfo, 0, len(seen))
	for _, info := range seen {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (m *MemoryFileSystem) Stat(p string) (FileInfo, error) {
	abs := m.abs(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.files[abs]; ok {
		return e.info, nil
	}
	if abs == m.root || m.isDir(abs) {
		return &memoryFileInfo{name: path.Base(abs), isDir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

func (m *MemoryFileSystem) WriteFile(p string, data []byte) error {
	abs := m.abs(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isDir(abs) {
		return fmt.Errorf("path is a directory: %s", p)
	}
	m.files[abs] = &memoryEntry{
		absPath: abs,
		content: append([]byte(nil), data...),
		info:    &memoryFileInfo{name: path.Base(abs), size: int64(len(data)), modTime: time.Now()},
	}
	return nil
}

func (m *MemoryFileSystem) Remove(p string) error {
	abs := m.abs(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[abs]; !ok {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
	}
	delete(m.files, abs)
	return nil
}

var _ FileSystemProvider = (*MemoryFileSystem)(nil)
