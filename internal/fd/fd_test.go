package fd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemefs/schemefs/internal/registry"
	"github.com/schemefs/schemefs/pkg/errors"
	"github.com/schemefs/schemefs/pkg/types"
)

// fakeProvider implements the full capability set over a single in-memory
// buffer per handle.
type fakeProvider struct {
	openErr   error
	nilHandle bool
	closed    int
}

type fakeHandle struct {
	data []byte
	off  int64
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Open(resource string, flags int) (types.Handle, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	if p.nilHandle {
		return nil, nil
	}
	return &fakeHandle{data: []byte("contents of " + resource)}, nil
}

func (p *fakeProvider) Read(h types.Handle, req types.ReadRequest) ([]byte, error) {
	fh := h.(*fakeHandle)
	rest := fh.data[fh.off:]
	if req.Mode == types.ReadCount && req.Count < int64(len(rest)) {
		rest = rest[:req.Count]
	}
	fh.off += int64(len(rest))
	return append([]byte(nil), rest...), nil
}

func (p *fakeProvider) Write(h types.Handle, b []byte) (int, error) {
	fh := h.(*fakeHandle)
	fh.data = append(fh.data[:fh.off], b...)
	fh.off += int64(len(b))
	return len(b), nil
}

func (p *fakeProvider) Seek(h types.Handle, whence int, offset int64) (int64, error) {
	fh := h.(*fakeHandle)
	fh.off = offset
	return fh.off, nil
}

func (p *fakeProvider) Close(h types.Handle) error {
	p.closed++
	return nil
}

// minimalProvider keeps only open, read, and close capabilities. It holds
// the fake by value and forwards explicitly; embedding would leak the rest.
type minimalProvider struct{ inner fakeProvider }

func (p *minimalProvider) Name() string { return "minimal" }
func (p *minimalProvider) Open(resource string, flags int) (types.Handle, error) {
	return p.inner.Open(resource, flags)
}
func (p *minimalProvider) Read(h types.Handle, req types.ReadRequest) ([]byte, error) {
	return p.inner.Read(h, req)
}
func (p *minimalProvider) Close(h types.Handle) error { return p.inner.Close(h) }

type countingRecorder struct {
	ops    []string
	opened int
	closed int
}

func (r *countingRecorder) RecordOperation(op string, d time.Duration, size int64, success bool) {
	r.ops = append(r.ops, op)
}
func (r *countingRecorder) DescriptorOpened() { r.opened++ }
func (r *countingRecorder) DescriptorClosed() { r.closed++ }

type errorCountingRecorder struct {
	countingRecorder
	errs []string
}

func (r *errorCountingRecorder) RecordError(op string, err error) {
	r.errs = append(r.errs, op)
}

func newLayer(t *testing.T, p types.Provider) *Layer {
	t.Helper()
	reg := registry.New(nil)
	reg.Register("file", p)
	return New(reg, nil, nil)
}

func TestOpenReadClose(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	l := newLayer(t, p)

	d, err := l.Open("file:///etc/motd", types.OpenRead)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, int32(1), d.Refs())

	data, err := l.Read(d, types.ReadAllRequest())
	require.NoError(t, err)
	assert.Equal(t, "contents of /etc/motd", string(data))

	require.NoError(t, l.Close(d))
	assert.Equal(t, 1, p.closed)
}

func TestOpen_ResolverErrorSurfaces(t *testing.T) {
	t.Parallel()

	l := newLayer(t, &fakeProvider{})
	d, err := l.Open("bogus://x", types.OpenRead)
	assert.Nil(t, d)
	assert.True(t, errors.IsNoSuchDevice(err))
}

func TestOpen_ProviderErrorGivesNoPartialDescriptor(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{openErr: errors.NotFound("/missing")}
	l := newLayer(t, p)

	d, err := l.Open("/missing", types.OpenRead)
	assert.Nil(t, d)
	assert.True(t, errors.IsNotFound(err))
}

func TestOpen_NilHandleBecomesNotFound(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{nilHandle: true}
	l := newLayer(t, p)

	d, err := l.Open("/ghost", types.OpenRead)
	assert.Nil(t, d)
	assert.True(t, errors.IsNotFound(err))
}

func TestUnsupportedCapabilities(t *testing.T) {
	t.Parallel()

	l := newLayer(t, &minimalProvider{})
	d, err := l.Open("/x", types.OpenRead)
	require.NoError(t, err)

	_, err = l.Write(d, []byte("nope"))
	assert.True(t, errors.IsOpNotSupported(err))

	_, err = l.Seek(d, 0, 10)
	assert.True(t, errors.IsOpNotSupported(err))

	err = l.Flush(d)
	assert.True(t, errors.IsOpNotSupported(err))

	// Read and Close are present and still work.
	_, err = l.Read(d, types.ReadN(4))
	assert.NoError(t, err)
	assert.NoError(t, l.Close(d))
}

func TestWriteSeek(t *testing.T) {
	t.Parallel()

	l := newLayer(t, &fakeProvider{})
	d, err := l.Open("/f", types.OpenRead|types.OpenWrite)
	require.NoError(t, err)

	pos, err := l.Seek(d, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)

	n, err := l.Write(d, []byte("xyz"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = l.Seek(d, 0, 0)
	require.NoError(t, err)
	data, err := l.Read(d, types.ReadAllRequest())
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(data))

	require.NoError(t, l.Close(d))
}

func TestRetainDefersRelease(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	l := newLayer(t, p)
	d, err := l.Open("/f", types.OpenRead)
	require.NoError(t, err)

	d.Retain()
	assert.Equal(t, int32(2), d.Refs())

	require.NoError(t, l.Close(d))
	assert.Equal(t, 0, p.closed, "handle survives while references remain")

	require.NoError(t, l.Close(d))
	assert.Equal(t, 1, p.closed)
}

func TestInvalidDescriptorShapePanics(t *testing.T) {
	t.Parallel()

	l := newLayer(t, &fakeProvider{})

	assert.Panics(t, func() { _, _ = l.Read(nil, types.ReadAllRequest()) })
	assert.Panics(t, func() { _, _ = l.Read(&Descriptor{}, types.ReadAllRequest()) })
	assert.Panics(t, func() {
		_, _ = l.Read(&Descriptor{handle: struct{}{}, provider: &fakeProvider{}, refs: 0}, types.ReadAllRequest())
	})
}

func TestUseAfterClosePanics(t *testing.T) {
	t.Parallel()

	l := newLayer(t, &fakeProvider{})
	d, err := l.Open("/f", types.OpenRead)
	require.NoError(t, err)
	require.NoError(t, l.Close(d))

	assert.Panics(t, func() { _, _ = l.Read(d, types.ReadAllRequest()) })
	assert.Panics(t, func() { _ = l.Close(d) })
}

func TestMetricsRecorded(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	reg := registry.New(nil)
	reg.Register("file", &fakeProvider{})
	l := New(reg, nil, rec)

	d, err := l.Open("/f", types.OpenRead)
	require.NoError(t, err)
	_, _ = l.Read(d, types.ReadAllRequest())
	require.NoError(t, l.Close(d))

	assert.Equal(t, []string{"open", "read", "close"}, rec.ops)
	assert.Equal(t, 1, rec.opened)
	assert.Equal(t, 1, rec.closed)
}

func TestErrorsRecordedByOp(t *testing.T) {
	t.Parallel()

	rec := &errorCountingRecorder{}
	reg := registry.New(nil)
	reg.Register("file", &fakeProvider{})
	l := New(reg, nil, rec)

	_, err := l.Open("tape:///x", types.OpenRead)
	require.Error(t, err)

	d, err := l.Open("/f", types.OpenRead)
	require.NoError(t, err)
	require.NoError(t, l.Close(d))

	assert.Equal(t, []string{"open"}, rec.errs)
}
