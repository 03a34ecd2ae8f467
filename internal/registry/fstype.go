package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/schemefs/schemefs/internal/storage"
	"github.com/schemefs/schemefs/pkg/errors"
	"github.com/schemefs/schemefs/pkg/types"
)

// Source names the backing store a filesystem-type constructor binds to:
// either an in-process store handle, or a device URI (mem://, s3://bucket)
// the constructor is expected to discover on its own.
type Source struct {
	Store  storage.Store
	Device string
	Logger *slog.Logger
}

// Constructor builds a provider instance bound to a backing source.
type Constructor func(src Source) (types.Provider, error)

// TypeRegistry maps filesystem-type names to driver constructors.
type TypeRegistry struct {
	mu     sync.RWMutex
	types  map[string]Constructor
	logger *slog.Logger
}

// NewTypeRegistry creates an empty filesystem-type registry.
func NewTypeRegistry(logger *slog.Logger) *TypeRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &TypeRegistry{
		types:  make(map[string]Constructor),
		logger: logger,
	}
}

// Register stores a constructor under a filesystem-type name. Double
// registration is a programming error and panics.
func (t *TypeRegistry) Register(name string, ctor Constructor) {
	if name == "" {
		panic("registry: empty filesystem type name")
	}
	if ctor == nil {
		panic(fmt.Sprintf("registry: nil constructor for filesystem type %q", name))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.types[name]; exists {
		panic(fmt.Sprintf("registry: filesystem type %q already registered", name))
	}
	t.types[name] = ctor
	t.logger.Debug("filesystem type registered", "type", name)
}

// New instantiates the named filesystem type against a backing source.
func (t *TypeRegistry) New(name string, src Source) (types.Provider, error) {
	t.mu.RLock()
	ctor, ok := t.types[name]
	t.mu.RUnlock()

	if !ok {
		return nil, errors.NoSuchDevice(name)
	}
	if src.Logger == nil {
		src.Logger = t.logger
	}
	return ctor(src)
}
