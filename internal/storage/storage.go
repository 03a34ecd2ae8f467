// Package storage defines the backing-store capability interface consumed by
// the managed filesystem driver. A backing store exposes raw byte streams and
// directory listings only; it has no notion of ownership, permissions, or
// timestamps beyond last-modified. The driver layers those on top.
package storage

import (
	"io"
	"time"
)

// Open mode strings accepted by Store.Open.
const (
	ModeRead      = "r"  // read-only, target must exist
	ModeWrite     = "w"  // create or truncate
	ModeAppend    = "a"  // create if absent, writes go to the end
	ModeReadWrite = "r+" // read and write, target must exist
)

// File is an open byte stream within a store.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// Store is the raw backing store the managed driver wraps.
type Store interface {
	// Open opens the file at path with one of the Mode* strings. A path
	// that cannot be opened in the requested mode yields a nil File and
	// an error.
	Open(path, mode string) (File, error)

	// Exists reports whether path names a file or directory.
	Exists(path string) bool

	// IsDir reports whether path names a directory.
	IsDir(path string) bool

	// ModTime returns the last-modified timestamp, or the zero time when
	// the path does not exist.
	ModTime(path string) time.Time

	// Size returns the byte size of the file at path, 0 for directories
	// and missing paths.
	Size(path string) int64

	// List returns the ordered child names of the directory at path.
	List(path string) ([]string, error)

	// Remove deletes the file or empty directory at path, reporting
	// whether anything was removed.
	Remove(path string) bool

	// MkDir creates a directory at path, reporting success.
	MkDir(path string) bool
}
