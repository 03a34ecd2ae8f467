// Package fd implements the caller-facing file-descriptor layer. It resolves
// URLs through the scheme registry, forwards I/O to whichever provider a URL
// names, and owns descriptor lifetime via reference counts.
//
// Two distinct failure classes cross this layer: operational errors (missing
// file, unsupported capability) return error codes; a malformed descriptor
// shape is a programming error and panics.
package fd

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/schemefs/schemefs/internal/registry"
	"github.com/schemefs/schemefs/pkg/errors"
	"github.com/schemefs/schemefs/pkg/types"
)

// Recorder receives operation metrics. A nil Recorder disables recording.
type Recorder interface {
	RecordOperation(operation string, duration time.Duration, size int64, success bool)
	DescriptorOpened()
	DescriptorClosed()
}

// Descriptor wraps a provider-private handle with a back-reference to the
// provider that issued it. The reference count starts at 1 and the handle is
// released when it reaches zero.
type Descriptor struct {
	handle   types.Handle
	provider types.Provider
	refs     int32
}

// Provider returns the provider that issued the descriptor.
func (d *Descriptor) Provider() types.Provider { return d.provider }

// Refs returns the current reference count.
func (d *Descriptor) Refs() int32 { return atomic.LoadInt32(&d.refs) }

// Retain adds a reference. Each Retain requires a matching Close before the
// underlying handle is released. Callers that never share a descriptor never
// call this; the count stays at 1 from Open to Close.
func (d *Descriptor) Retain() {
	if atomic.AddInt32(&d.refs, 1) <= 1 {
		panic("fd: Retain on released descriptor")
	}
}

// Layer dispatches descriptor operations to providers resolved from URLs.
type Layer struct {
	registry *registry.Registry
	logger   *slog.Logger
	recorder Recorder
}

// New creates a descriptor layer over a scheme registry.
func New(reg *registry.Registry, logger *slog.Logger, rec Recorder) *Layer {
	if reg == nil {
		panic("fd: nil registry")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{registry: reg, logger: logger, recorder: rec}
}

// errorRecorder is an optional extension of Recorder for implementations
// that break failures down by error code.
type errorRecorder interface {
	RecordError(operation string, err error)
}

func (l *Layer) record(op string, start time.Time, size int64, err error) {
	if l.recorder == nil {
		return
	}
	l.recorder.RecordOperation(op, time.Since(start), size, err == nil)
	if err != nil {
		if er, ok := l.recorder.(errorRecorder); ok {
			er.RecordError(op, err)
		}
	}
}

// Open resolves a URL and opens the named resource. Failure is two-stage:
// resolution errors surface as-is, and a provider open failure surfaces the
// provider's error with no partial descriptor.
func (l *Layer) Open(url string, flags int) (*Descriptor, error) {
	start := time.Now()

	provider, resource, err := l.registry.Resolve(url)
	if err != nil {
		l.record("open", start, 0, err)
		return nil, err
	}

	opener, ok := provider.(types.Opener)
	if !ok {
		err = errors.OpNotSupported("open").WithPath(url)
		l.record("open", start, 0, err)
		return nil, err
	}

	handle, err := opener.Open(resource, flags)
	if err != nil {
		l.record("open", start, 0, err)
		return nil, err
	}
	if handle == nil {
		err = errors.NotFound(resource).WithOp("open")
		l.record("open", start, 0, err)
		return nil, err
	}

	l.record("open", start, 0, nil)
	if l.recorder != nil {
		l.recorder.DescriptorOpened()
	}
	l.logger.Debug("descriptor opened", "url", url, "provider", provider.Name())
	return &Descriptor{handle: handle, provider: provider, refs: 1}, nil
}

// Read reads from a descriptor according to the request: a byte count or a
// symbolic mode such as read-line or read-all.
func (l *Layer) Read(d *Descriptor, req types.ReadRequest) ([]byte, error) {
	l.validate(d)
	start := time.Now()

	reader, ok := d.provider.(types.HandleReader)
	if !ok {
		err := errors.OpNotSupported("read")
		l.record("read", start, 0, err)
		return nil, err
	}
	data, err := reader.Read(d.handle, req)
	l.record("read", start, int64(len(data)), err)
	return data, err
}

// Write writes to a descriptor and returns the number of bytes written.
func (l *Layer) Write(d *Descriptor, p []byte) (int, error) {
	l.validate(d)
	start := time.Now()

	writer, ok := d.provider.(types.HandleWriter)
	if !ok {
		err := errors.OpNotSupported("write")
		l.record("write", start, 0, err)
		return 0, err
	}
	n, err := writer.Write(d.handle, p)
	l.record("write", start, int64(n), err)
	return n, err
}

// Seek repositions a descriptor and returns the new offset.
func (l *Layer) Seek(d *Descriptor, whence int, offset int64) (int64, error) {
	l.validate(d)
	start := time.Now()

	seeker, ok := d.provider.(types.HandleSeeker)
	if !ok {
		err := errors.OpNotSupported("seek")
		l.record("seek", start, 0, err)
		return 0, err
	}
	pos, err := seeker.Seek(d.handle, whence, offset)
	l.record("seek", start, 0, err)
	return pos, err
}

// Flush flushes buffered state for a descriptor.
func (l *Layer) Flush(d *Descriptor) error {
	l.validate(d)
	start := time.Now()

	flusher, ok := d.provider.(types.HandleFlusher)
	if !ok {
		err := errors.OpNotSupported("flush")
		l.record("flush", start, 0, err)
		return err
	}
	err := flusher.Flush(d.handle)
	l.record("flush", start, 0, err)
	return err
}

// Close drops one reference. The provider handle is released when the last
// reference goes; a surplus Close is a programming error.
func (l *Layer) Close(d *Descriptor) error {
	l.validate(d)
	start := time.Now()

	refs := atomic.AddInt32(&d.refs, -1)
	if refs > 0 {
		l.record("close", start, 0, nil)
		return nil
	}
	if refs < 0 {
		panic("fd: close of released descriptor")
	}

	closer, ok := d.provider.(types.HandleCloser)
	if !ok {
		err := errors.OpNotSupported("close")
		l.record("close", start, 0, err)
		return err
	}
	err := closer.Close(d.handle)
	d.handle = nil
	l.record("close", start, 0, err)
	if l.recorder != nil {
		l.recorder.DescriptorClosed()
	}
	return err
}

// validate is the hard precondition check on descriptor shape. A descriptor
// without a handle, without a provider, or with a non-positive reference
// count did not come from Open (or was already released); continuing would
// corrupt provider state, so this halts the call path.
func (l *Layer) validate(d *Descriptor) {
	if d == nil {
		panic("fd: nil descriptor")
	}
	if d.handle == nil {
		panic("fd: descriptor has no provider handle")
	}
	if d.provider == nil {
		panic("fd: descriptor has no owning provider")
	}
	if refs := atomic.LoadInt32(&d.refs); refs <= 0 {
		panic(fmt.Sprintf("fd: descriptor reference count %d", refs))
	}
}
