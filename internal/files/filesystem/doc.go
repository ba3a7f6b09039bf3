// Package filesystem abstracts reads and writes of the object tree.
//
// OSFileSystem is used by the commands; MemoryFileSystem backs unit tests.
// Writes are atomic in both: the OS implementation writes a temporary file in
// the target directory and renames it into place, so an interrupted command
// never leaves a truncated manifest, descriptor or SQL file behind.
package filesystem
