package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()
	assert.Equal(t, "INFO", cfg.Global.LogLevel)
	assert.Equal(t, "mem://", cfg.Storage.Device)
	assert.Equal(t, 9090, cfg.Monitoring.MetricsPort)
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "schemefs.yaml")

	cfg := NewDefault()
	cfg.Storage.Device = "s3://kernel-store"
	cfg.Storage.S3.Region = "eu-west-1"
	cfg.Global.LogLevel = "DEBUG"
	require.NoError(t, cfg.SaveToFile(path))

	loaded := NewDefault()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "s3://kernel-store", loaded.Storage.Device)
	assert.Equal(t, "eu-west-1", loaded.Storage.S3.Region)
	assert.Equal(t, "DEBUG", loaded.Global.LogLevel)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := NewDefault()
	assert.Error(t, cfg.LoadFromFile("/nonexistent/schemefs.yaml"))
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("global: [not a map"), 0600))
	assert.Error(t, NewDefault().LoadFromFile(path))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCHEMEFS_LOG_LEVEL", "WARN")
	t.Setenv("SCHEMEFS_DEVICE", "s3://env-bucket")
	t.Setenv("SCHEMEFS_S3_REGION", "us-west-2")
	t.Setenv("SCHEMEFS_S3_FORCE_PATH_STYLE", "TRUE")
	t.Setenv("SCHEMEFS_METRICS_PORT", "9191")
	t.Setenv("SCHEMEFS_RETRY_MAX_ATTEMPTS", "7")

	cfg := NewDefault()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, "WARN", cfg.Global.LogLevel)
	assert.Equal(t, "s3://env-bucket", cfg.Storage.Device)
	assert.Equal(t, "us-west-2", cfg.Storage.S3.Region)
	assert.True(t, cfg.Storage.S3.ForcePathStyle)
	assert.Equal(t, 9191, cfg.Monitoring.MetricsPort)
	assert.Equal(t, 7, cfg.Storage.Retry.MaxAttempts)
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("SCHEMEFS_METRICS_PORT", "not-a-number")
	cfg := NewDefault()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, 9090, cfg.Monitoring.MetricsPort, "unparseable values keep defaults")
}

func TestValidate(t *testing.T) {
	cfg := NewDefault()
	cfg.Storage.Device = ""
	assert.Error(t, cfg.Validate())

	cfg = NewDefault()
	cfg.Global.LogLevel = "LOUD"
	assert.Error(t, cfg.Validate())

	cfg = NewDefault()
	cfg.Monitoring.MetricsPort = -1
	assert.Error(t, cfg.Validate())

	cfg = NewDefault()
	cfg.Monitoring.MetricsEnabled = false
	cfg.Monitoring.MetricsPort = 0
	assert.NoError(t, cfg.Validate(), "port unchecked when metrics disabled")
}
