package managedfs

import (
	"io"
	"log/slog"
	"sync"

	"github.com/schemefs/schemefs/internal/storage"
	"github.com/schemefs/schemefs/pkg/errors"
	"github.com/schemefs/schemefs/pkg/types"
)

// TypeName is the filesystem type this driver registers under.
const TypeName = "managed"

// Driver emulates ownership and permission metadata on top of a raw
// backing store by keeping a hidden sidecar file next to each path. The
// store itself only knows bytes, directories, and modification times;
// everything POSIX-shaped lives in the sidecars.
type Driver struct {
	store  storage.Store
	logger *slog.Logger

	// attrMu serializes read-modify-write cycles on sidecars so
	// concurrent chmod/chown calls cannot interleave their updates.
	attrMu sync.Mutex
}

// New returns a managed filesystem driver over the given store.
func New(store storage.Store, logger *slog.Logger) *Driver {
	if store == nil {
		panic("managedfs: nil backing store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{store: store, logger: logger}
}

func (d *Driver) Name() string { return TypeName }

// fileHandle is the driver's private handle type. The descriptor layer
// treats it as opaque and hands it back on every per-handle call.
type fileHandle struct {
	f    storage.File
	path string
}

// file recovers the private handle. A handle minted by another provider
// reaching this driver is a routing bug, not an I/O failure.
func (d *Driver) file(h types.Handle) *fileHandle {
	fh, ok := h.(*fileHandle)
	if !ok || fh == nil {
		panic("managedfs: foreign or nil handle")
	}
	return fh
}

// openMode translates descriptor open flags into a store mode string.
func openMode(flags int) string {
	switch {
	case flags&types.OpenAppend != 0:
		return storage.ModeAppend
	case flags&types.OpenWrite != 0 && flags&(types.OpenCreate|types.OpenTrunc) != 0:
		return storage.ModeWrite
	case flags&types.OpenWrite != 0:
		return storage.ModeReadWrite
	default:
		return storage.ModeRead
	}
}

// Open opens a resource for I/O. Attribute sidecars are not reachable
// through the public surface.
func (d *Driver) Open(resource string, flags int) (types.Handle, error) {
	if IsAttrPath(resource) {
		return nil, errors.AccessDenied(resource).WithOp("open")
	}
	f, err := d.store.Open(resource, openMode(flags))
	if err != nil || f == nil {
		return nil, errors.NotFound(resource).WithOp("open").WithCause(err)
	}
	return &fileHandle{f: f, path: resource}, nil
}

// Read reads from an open handle according to the request mode: a byte
// count, a single line including its terminator, or everything remaining.
func (d *Driver) Read(h types.Handle, req types.ReadRequest) ([]byte, error) {
	fh := d.file(h)
	switch req.Mode {
	case types.ReadAll:
		return io.ReadAll(fh.f)
	case types.ReadLine:
		return readLine(fh.f)
	default:
		if req.Count < 0 {
			panic("managedfs: negative read count")
		}
		buf := make([]byte, req.Count)
		n, err := io.ReadFull(fh.f, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = nil
		}
		return buf[:n], err
	}
}

// readLine consumes bytes up to and including the next newline. EOF before
// a newline yields whatever was read with no error; the empty result at
// EOF is the end-of-stream signal.
func readLine(r io.Reader) ([]byte, error) {
	var line []byte
	one := make([]byte, 1)
	for {
		n, err := r.Read(one)
		if n > 0 {
			line = append(line, one[0])
			if one[0] == '\n' {
				return line, nil
			}
		}
		if err == io.EOF {
			return line, nil
		}
		if err != nil {
			return line, err
		}
	}
}

func (d *Driver) Write(h types.Handle, p []byte) (int, error) {
	fh := d.file(h)
	n, err := fh.f.Write(p)
	if err != nil {
		return n, errors.ReadOnly(fh.path).WithOp("write").WithCause(err)
	}
	return n, nil
}

func (d *Driver) Seek(h types.Handle, whence int, offset int64) (int64, error) {
	fh := d.file(h)
	return fh.f.Seek(offset, whence)
}

// Flush is a no-op: the store commits on Close and keeps no intermediate
// buffering the driver could push.
func (d *Driver) Flush(h types.Handle) error {
	d.file(h)
	return nil
}

func (d *Driver) Close(h types.Handle) error {
	return d.file(h).f.Close()
}

// Exists reports whether a path is visible through the public surface.
// Sidecars exist in the store but not in the filesystem.
func (d *Driver) Exists(resource string) bool {
	if IsAttrPath(resource) {
		return false
	}
	return d.store.Exists(resource)
}

// defaultAttributes builds the record implied for a path that has no
// sidecar: owned by root, fully permissive, created when the store last
// touched it.
func (d *Driver) defaultAttributes(p string) types.Attributes {
	mode := uint32(types.DefaultFileMode)
	if d.store.IsDir(p) {
		mode = types.DefaultDirMode
	}
	a := types.Attributes{Mode: mode}
	if mt := d.store.ModTime(p); !mt.IsZero() {
		a.Created = mt.Unix()
	}
	return a
}

// GetAttributes returns the metadata record for a path. A missing or
// unreadable sidecar is not an error; the defaults stand in for it.
func (d *Driver) GetAttributes(resource string) (types.Attributes, error) {
	if IsAttrPath(resource) {
		return types.Attributes{}, errors.AccessDenied(resource).WithOp("getattr")
	}
	defaults := d.defaultAttributes(resource)
	side := AttrPath(resource)
	if !d.store.Exists(side) {
		return defaults, nil
	}
	f, err := d.store.Open(side, storage.ModeRead)
	if err != nil || f == nil {
		return defaults, nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return defaults, nil
	}
	return parseAttributes(data, defaults), nil
}

// SetAttributes writes the full metadata record for a path, creating the
// sidecar if needed. Seeding attributes before the data file exists is
// allowed; device nodes are created exactly that way.
func (d *Driver) SetAttributes(resource string, a types.Attributes) error {
	if IsAttrPath(resource) {
		return errors.AccessDenied(resource).WithOp("setattr")
	}
	side := AttrPath(resource)
	f, err := d.store.Open(side, storage.ModeWrite)
	if err != nil || f == nil {
		return errors.ReadOnly(resource).WithOp("setattr").WithCause(err)
	}
	if _, err := f.Write(encodeAttributes(a)); err != nil {
		f.Close()
		return errors.ReadOnly(resource).WithOp("setattr").WithCause(err)
	}
	if err := f.Close(); err != nil {
		return errors.ReadOnly(resource).WithOp("setattr").WithCause(err)
	}
	return nil
}

// Stat combines store facts (size, mtime) with the sidecar record.
func (d *Driver) Stat(resource string) (types.Stat, error) {
	if IsAttrPath(resource) {
		return types.Stat{}, errors.AccessDenied(resource).WithOp("stat")
	}
	if !d.store.Exists(resource) {
		return types.Stat{}, errors.NotFound(resource).WithOp("stat")
	}
	a, err := d.GetAttributes(resource)
	if err != nil {
		return types.Stat{}, err
	}
	size := d.store.Size(resource)
	return types.Stat{
		Attributes: a,
		Size:       size,
		Blocks:     (size + types.StatBlockUnit - 1) / types.StatBlockUnit,
		BlockSize:  types.StatBlockSize,
		ModTime:    d.store.ModTime(resource),
	}, nil
}

// Chmod replaces the permission bits of a path, keeping the type bits in
// the top nibble intact. The read-modify-write runs under attrMu so two
// racing updates cannot lose each other's fields.
func (d *Driver) Chmod(resource string, mode uint32) error {
	if IsAttrPath(resource) {
		return errors.AccessDenied(resource).WithOp("chmod")
	}
	if !d.store.Exists(resource) {
		return errors.NotFound(resource).WithOp("chmod")
	}
	d.attrMu.Lock()
	defer d.attrMu.Unlock()
	a, err := d.GetAttributes(resource)
	if err != nil {
		return err
	}
	a.Mode = (a.Mode & types.ModeTypeMask) | (mode & types.ModePermMask)
	return d.SetAttributes(resource, a)
}

// Chown replaces the owner and group of a path, preserving every other
// field of the record.
func (d *Driver) Chown(resource string, uid, gid uint32) error {
	if IsAttrPath(resource) {
		return errors.AccessDenied(resource).WithOp("chown")
	}
	if !d.store.Exists(resource) {
		return errors.NotFound(resource).WithOp("chown")
	}
	d.attrMu.Lock()
	defer d.attrMu.Unlock()
	a, err := d.GetAttributes(resource)
	if err != nil {
		return err
	}
	a.UID = uid
	a.GID = gid
	return d.SetAttributes(resource, a)
}

// Mkdir creates a directory. The store refusing (existing entry, missing
// parent, immutable medium) surfaces as READ_ONLY.
func (d *Driver) Mkdir(resource string) error {
	if IsAttrPath(resource) {
		return errors.AccessDenied(resource).WithOp("mkdir")
	}
	if !d.store.MkDir(resource) {
		return errors.ReadOnly(resource).WithOp("mkdir")
	}
	return nil
}

// Unlink removes a path and its sidecar. The sidecar removal is
// best-effort; a file without metadata is handled by defaults, an orphan
// sidecar would leak stale metadata onto a future file of the same name.
func (d *Driver) Unlink(resource string) error {
	if IsAttrPath(resource) {
		return errors.AccessDenied(resource).WithOp("unlink")
	}
	if !d.store.Exists(resource) {
		return errors.NotFound(resource).WithOp("unlink")
	}
	if !d.store.Remove(resource) {
		return errors.ReadOnly(resource).WithOp("unlink")
	}
	d.store.Remove(AttrPath(resource))
	return nil
}

// Link is not provided: sidecar metadata is keyed by path, so two names
// for one object would disagree about its attributes.
func (d *Driver) Link(oldpath, newpath string) error {
	return errors.NotSupported("link").WithPath(newpath)
}

// Opendir snapshots the directory listing. Sidecar names are filtered out
// so the emulation layer stays invisible to readers.
func (d *Driver) Opendir(resource string) (types.DirCursor, error) {
	if IsAttrPath(resource) {
		return nil, errors.AccessDenied(resource).WithOp("opendir")
	}
	if !d.store.Exists(resource) {
		return nil, errors.NotFound(resource).WithOp("opendir")
	}
	if !d.store.IsDir(resource) {
		return nil, errors.NotDirectory(resource).WithOp("opendir")
	}
	names, err := d.store.List(resource)
	if err != nil {
		return nil, errors.NotFound(resource).WithOp("opendir").WithCause(err)
	}
	visible := names[:0]
	for _, name := range names {
		if !IsAttrPath(name) {
			visible = append(visible, name)
		}
	}
	return &Cursor{names: visible}, nil
}
