package adapter

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemefs/schemefs/internal/config"
	"github.com/schemefs/schemefs/pkg/errors"
	"github.com/schemefs/schemefs/pkg/types"
)

func testConfig() *config.Configuration {
	cfg := config.NewDefault()
	cfg.Storage.Device = "mem://"
	cfg.Monitoring.MetricsEnabled = false
	return cfg
}

func startAdapter(t *testing.T) *Adapter {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(testConfig(), logger)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return a
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Device = "floppy://0"
	_, err := New(cfg, nil)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Global.LogLevel = "LOUD"
	_, err = New(cfg, nil)
	assert.Error(t, err)
}

func TestFullStackReadWrite(t *testing.T) {
	a := startAdapter(t)
	fds := a.Descriptors()

	d, err := fds.Open("file:///hello", types.OpenWrite|types.OpenCreate)
	require.NoError(t, err)
	_, err = fds.Write(d, []byte("kernel says hi\n"))
	require.NoError(t, err)
	require.NoError(t, fds.Close(d))

	d, err = fds.Open("/hello", types.OpenRead)
	require.NoError(t, err, "scheme-less URL defaults to file")
	data, err := fds.Read(d, types.ReadAllRequest())
	require.NoError(t, err)
	assert.Equal(t, "kernel says hi\n", string(data))
	require.NoError(t, fds.Close(d))
}

func TestFullStackAttributes(t *testing.T) {
	a := startAdapter(t)
	fds := a.Descriptors()

	d, err := fds.Open("file:///secret", types.OpenWrite|types.OpenCreate)
	require.NoError(t, err)
	require.NoError(t, fds.Close(d))

	_, resource, err := a.Schemes().Resolve("file:///secret")
	require.NoError(t, err)
	assert.Equal(t, "/secret", resource)

	require.NoError(t, fds.Chmod("file:///secret", 0o600))
	st, err := fds.Stat("file:///secret")
	require.NoError(t, err)
	assert.Equal(t, types.ModeTypeRegular|uint32(0o600), st.Mode)

	// The sidecar stays invisible at the descriptor layer.
	_, err = fds.Open("file:///.secret.attr", types.OpenRead)
	assert.True(t, errors.IsAccessDenied(err))
}

func TestFullStackUnknownScheme(t *testing.T) {
	a := startAdapter(t)
	_, err := a.Descriptors().Open("tape://0", types.OpenRead)
	assert.True(t, errors.IsNoSuchDevice(err))
}
