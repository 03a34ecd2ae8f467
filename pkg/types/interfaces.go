package types

// Handle is a provider-private file token. The descriptor layer carries
// handles through untouched; only the provider that issued a handle may
// inspect it.
type Handle interface{}

// Provider is a scheme provider capability object. Every concrete capability
// is an optional interface below: the dispatch layer type-asserts for the
// capability it needs and reports OP_NOT_SUPPORTED when the assertion fails.
// "Capability absent" is therefore always distinct from "capability failed".
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string
}

// Opener opens a resource and returns a provider-private handle.
type Opener interface {
	Open(resource string, flags int) (Handle, error)
}

// HandleReader reads from an open handle according to the request.
type HandleReader interface {
	Read(h Handle, req ReadRequest) ([]byte, error)
}

// HandleWriter writes to an open handle.
type HandleWriter interface {
	Write(h Handle, p []byte) (int, error)
}

// HandleSeeker repositions an open handle and returns the new offset.
// Whence follows the io.Seek* constants.
type HandleSeeker interface {
	Seek(h Handle, whence int, offset int64) (int64, error)
}

// HandleFlusher flushes buffered state for an open handle.
type HandleFlusher interface {
	Flush(h Handle) error
}

// HandleCloser releases an open handle.
type HandleCloser interface {
	Close(h Handle) error
}

// Statter produces the merged stat record for a resource.
type Statter interface {
	Stat(resource string) (Stat, error)
}

// Exister checks resource existence.
type Exister interface {
	Exists(resource string) bool
}

// Mkdirer creates a directory.
type Mkdirer interface {
	Mkdir(resource string) error
}

// DirOpener snapshots a directory listing into a cursor.
type DirOpener interface {
	Opendir(resource string) (DirCursor, error)
}

// Unlinker removes a resource.
type Unlinker interface {
	Unlink(resource string) error
}

// Chmoder replaces the permission bits of a resource.
type Chmoder interface {
	Chmod(resource string, mode uint32) error
}

// Chowner replaces the owner and group of a resource.
type Chowner interface {
	Chown(resource string, uid, gid uint32) error
}

// Linker creates a link between two resources.
type Linker interface {
	Link(oldpath, newpath string) error
}

// DirCursor is a positional iterator over a point-in-time directory
// snapshot. It is single-pass and not restartable.
type DirCursor interface {
	// Next returns the next entry, or ok=false once the snapshot is
	// exhausted.
	Next() (entry DirEntry, ok bool)
}
