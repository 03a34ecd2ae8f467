package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/schemefs/schemefs/internal/config"
	"github.com/schemefs/schemefs/internal/fd"
	"github.com/schemefs/schemefs/internal/managedfs"
	"github.com/schemefs/schemefs/internal/metrics"
	"github.com/schemefs/schemefs/internal/registry"
	"github.com/schemefs/schemefs/internal/storage"
	"github.com/schemefs/schemefs/internal/storage/device"
	"github.com/schemefs/schemefs/internal/storage/memory"
	s3store "github.com/schemefs/schemefs/internal/storage/s3"
)

// Adapter assembles the filesystem stack: backing store, managed driver,
// scheme registry, descriptor layer, and metrics.
type Adapter struct {
	config *config.Configuration
	logger *slog.Logger

	store     storage.Store
	schemes   *registry.Registry
	fstypes   *registry.TypeRegistry
	fdlayer   *fd.Layer
	collector *metrics.Collector
}

// New validates the configuration and constructs an adapter. Nothing
// touches the network until Start.
func New(cfg *config.Configuration, logger *slog.Logger) (*Adapter, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := device.Validate(cfg.Storage.Device); err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, logger: logger}, nil
}

// Start opens the backing device and wires the stack together.
func (a *Adapter) Start(ctx context.Context) error {
	a.logger.Info("starting schemefs",
		"device", a.config.Storage.Device,
		"metrics", a.config.Monitoring.MetricsEnabled)

	store, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	a.store = store

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled: a.config.Monitoring.MetricsEnabled,
		Port:    a.config.Monitoring.MetricsPort,
	})
	if err != nil {
		return fmt.Errorf("failed to build metrics collector: %w", err)
	}
	a.collector = collector

	a.fstypes = registry.NewTypeRegistry(a.logger)
	managedfs.RegisterType(a.fstypes)

	rootfs, err := a.fstypes.New(managedfs.TypeName, registry.Source{
		Store:  store,
		Device: a.config.Storage.Device,
		Logger: a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build root filesystem: %w", err)
	}

	a.schemes = registry.New(a.logger)
	a.schemes.Register(registry.DefaultScheme, rootfs)

	a.fdlayer = fd.New(a.schemes, a.logger, collector)

	if err := collector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics: %w", err)
	}

	a.logger.Info("schemefs started")
	return nil
}

// Stop shuts the stack down.
func (a *Adapter) Stop(ctx context.Context) error {
	a.logger.Info("stopping schemefs")
	if a.collector != nil {
		if err := a.collector.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop metrics: %w", err)
		}
	}
	return nil
}

// openStore builds the backing store from the storage config. Memory
// devices carry no options; S3 devices take the config's client settings.
func (a *Adapter) openStore(ctx context.Context) (storage.Store, error) {
	uri := a.config.Storage.Device
	if uri == "mem://" {
		return memory.New(), nil
	}
	u, err := device.ParseS3(uri)
	if err != nil {
		return nil, err
	}
	return s3store.New(ctx, u, &a.config.Storage.S3, a.logger)
}

// Descriptors returns the descriptor layer. Valid after Start.
func (a *Adapter) Descriptors() *fd.Layer { return a.fdlayer }

// Schemes returns the scheme registry. Valid after Start.
func (a *Adapter) Schemes() *registry.Registry { return a.schemes }

// Metrics returns the metrics collector. Valid after Start.
func (a *Adapter) Metrics() *metrics.Collector { return a.collector }
