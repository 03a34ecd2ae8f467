package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemefs/schemefs/pkg/errors"
	"github.com/schemefs/schemefs/pkg/types"
)

type stubProvider struct{ name string }

func (p *stubProvider) Name() string { return p.name }

func TestSplitURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		scheme   string
		resource string
	}{
		{"explicit file scheme", "file:///etc/passwd", "file", "/etc/passwd"},
		{"bare path", "/etc/passwd", "file", "/etc/passwd"},
		{"relative bare path", "etc/passwd", "file", "etc/passwd"},
		{"custom scheme", "tty://0", "tty", "0"},
		{"scheme without slashes", "tty:0", "tty", "0"},
		{"http style", "http://host/path", "http", "host/path"},
		{"empty resource", "exec://", "exec", ""},
		{"empty string", "", "file", ""},
		{"leading colon", ":oops", "file", ":oops"},
		{"colon after slash is path data", "/a:b", "file", "/a:b"},
		{"only two slashes stripped", "file:////x", "file", "//x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheme, resource := SplitURL(tt.url)
			assert.Equal(t, tt.scheme, scheme)
			assert.Equal(t, tt.resource, resource)
		})
	}
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	t.Parallel()

	r := New(nil)
	p := &stubProvider{name: "managed"}
	r.Register("file", p)

	got, resource, err := r.Resolve("file:///etc/passwd")
	require.NoError(t, err)
	assert.Same(t, p, got.(*stubProvider))
	assert.Equal(t, "/etc/passwd", resource)

	// Implicit file scheme resolves identically.
	got, resource, err = r.Resolve("/etc/passwd")
	require.NoError(t, err)
	assert.Same(t, p, got.(*stubProvider))
	assert.Equal(t, "/etc/passwd", resource)
}

func TestRegistry_UnknownSchemeIsNoSuchDevice(t *testing.T) {
	t.Parallel()

	r := New(nil)
	r.Register("file", &stubProvider{name: "managed"})

	_, _, err := r.Resolve("bogus://x")
	require.Error(t, err)
	assert.True(t, errors.IsNoSuchDevice(err))
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	r := New(nil)
	r.Register("file", &stubProvider{name: "a"})

	assert.Panics(t, func() {
		r.Register("file", &stubProvider{name: "b"})
	})
}

func TestRegistry_SameProviderTwoNames(t *testing.T) {
	t.Parallel()

	r := New(nil)
	p := &stubProvider{name: "shared"}
	assert.NotPanics(t, func() {
		r.Register("file", p)
		r.Register("legacy", p)
	})

	a, _ := r.Lookup("file")
	b, _ := r.Lookup("legacy")
	assert.Same(t, a.(*stubProvider), b.(*stubProvider))
}

func TestRegistry_RejectsBadArguments(t *testing.T) {
	t.Parallel()

	r := New(nil)
	assert.Panics(t, func() { r.Register("", &stubProvider{}) })
	assert.Panics(t, func() { r.Register("file", nil) })
}

func TestTypeRegistry(t *testing.T) {
	t.Parallel()

	tr := NewTypeRegistry(nil)
	tr.Register("managed", func(src Source) (types.Provider, error) {
		return &stubProvider{name: "managed"}, nil
	})

	p, err := tr.New("managed", Source{})
	require.NoError(t, err)
	assert.Equal(t, "managed", p.Name())

	_, err = tr.New("ext4", Source{})
	require.Error(t, err)
	assert.True(t, errors.IsNoSuchDevice(err))

	assert.Panics(t, func() {
		tr.Register("managed", func(src Source) (types.Provider, error) { return nil, nil })
	})
}
