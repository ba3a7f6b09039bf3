package filesystem

import (
	"io/fs"
)

// FileInfo aliases fs.FileInfo so callers need not import io/fs.
type FileInfo = fs.FileInfo

// File is one regular file or directory found while walking.
type File interface {
	// Path returns the provider-level path of the file.
	Path() string

	// RelativePath returns the slash-separated path relative to the walked directory.
	RelativePath() string

	Info() FileInfo

	ReadContent() ([]byte, error)
}

// Directory is an opened directory tree.
type Directory interface {
	Path() string

	// Walk visits every entry below the directory in lexical order.
	// A non-nil error from fn stops the walk and is returned.
	Walk(fn func(File, error) error) error
}

// FileSystemProvider abstracts the object tree so commands can run against
// the OS or against an in-memory tree in tests.
type FileSystemProvider interface {
	Open(path string) (Directory, error)
	ReadFile(path string) ([]byte, error)
	ReadDir(path string) ([]FileInfo, error)
	Stat(path string) (FileInfo, error)

	// WriteFile replaces the file at path with data, creating parent
	// directories. Readers observe either the old or the new content.
	WriteFile(path string, data []byte) error

	Remove(path string) error
}
