// Package registry holds the process-wide provider tables: the scheme
// registry that URL resolution dispatches through, and the filesystem-type
// registry that binds drivers to backing stores. Both are explicit objects
// passed by reference rather than ambient globals, so ownership stays with
// the kernel that created them.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/schemefs/schemefs/pkg/errors"
	"github.com/schemefs/schemefs/pkg/types"
)

// DefaultScheme is assumed when a URL carries no scheme prefix.
const DefaultScheme = "file"

// Registry maps scheme names to providers. Registration is mutually
// exclusive with lookup so a partially-registered table is never observed.
type Registry struct {
	mu      sync.RWMutex
	schemes map[string]types.Provider
	logger  *slog.Logger
}

// New creates an empty scheme registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		schemes: make(map[string]types.Provider),
		logger:  logger,
	}
}

// Register stores a provider under a scheme name. Double registration is a
// programming error and panics; registering the same provider under two
// distinct names is allowed.
func (r *Registry) Register(name string, p types.Provider) {
	if name == "" {
		panic("registry: empty scheme name")
	}
	if p == nil {
		panic(fmt.Sprintf("registry: nil provider for scheme %q", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemes[name]; exists {
		panic(fmt.Sprintf("registry: scheme %q already registered", name))
	}
	r.schemes[name] = p
	r.logger.Debug("scheme registered", "scheme", name, "provider", p.Name())
}

// Lookup returns the provider registered under a scheme name.
func (r *Registry) Lookup(name string) (types.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.schemes[name]
	return p, ok
}

// Resolve parses a URL into scheme and resource and looks up the provider.
func (r *Registry) Resolve(rawURL string) (types.Provider, string, error) {
	scheme, resource := SplitURL(rawURL)
	p, ok := r.Lookup(scheme)
	if !ok {
		return nil, "", errors.NoSuchDevice(scheme).WithPath(rawURL)
	}
	return p, resource, nil
}

// SplitURL splits a URL of the form scheme://resource or bare resource at
// the first ':' followed by an optional "//". A missing or slash-containing
// scheme segment defaults to "file" with the whole string as resource.
// Parsing is pure; it never consults the registry.
func SplitURL(rawURL string) (scheme, resource string) {
	for i := 0; i < len(rawURL); i++ {
		c := rawURL[i]
		if c == ':' {
			if i == 0 {
				break
			}
			rest := rawURL[i+1:]
			if len(rest) >= 2 && rest[0] == '/' && rest[1] == '/' {
				rest = rest[2:]
			}
			return rawURL[:i], rest
		}
		if c == '/' {
			// A '/' before any ':' means the prefix is a path
			// segment, not a scheme.
			break
		}
	}
	return DefaultScheme, rawURL
}
