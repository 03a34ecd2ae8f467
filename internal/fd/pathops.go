package fd

import (
	"time"

	"github.com/schemefs/schemefs/pkg/errors"
	"github.com/schemefs/schemefs/pkg/types"
)

// Path-level operations. Each resolves the URL, asserts the matching
// provider capability, and forwards; a provider without the capability
// yields operation-not-supported rather than a crash.

// Stat returns the metadata record for a URL.
func (l *Layer) Stat(url string) (types.Stat, error) {
	start := time.Now()
	provider, resource, err := l.registry.Resolve(url)
	if err != nil {
		l.record("stat", start, 0, err)
		return types.Stat{}, err
	}
	statter, ok := provider.(types.Statter)
	if !ok {
		err = errors.OpNotSupported("stat").WithPath(url)
		l.record("stat", start, 0, err)
		return types.Stat{}, err
	}
	st, err := statter.Stat(resource)
	l.record("stat", start, 0, err)
	return st, err
}

// Exists reports whether a URL names an existing resource. Resolution
// failures and missing capability both read as absent.
func (l *Layer) Exists(url string) bool {
	provider, resource, err := l.registry.Resolve(url)
	if err != nil {
		return false
	}
	exister, ok := provider.(types.Exister)
	if !ok {
		return false
	}
	return exister.Exists(resource)
}

// Mkdir creates a directory at the URL.
func (l *Layer) Mkdir(url string) error {
	start := time.Now()
	provider, resource, err := l.registry.Resolve(url)
	if err != nil {
		l.record("mkdir", start, 0, err)
		return err
	}
	mkdirer, ok := provider.(types.Mkdirer)
	if !ok {
		err = errors.OpNotSupported("mkdir").WithPath(url)
		l.record("mkdir", start, 0, err)
		return err
	}
	err = mkdirer.Mkdir(resource)
	l.record("mkdir", start, 0, err)
	return err
}

// Unlink removes the resource a URL names.
func (l *Layer) Unlink(url string) error {
	start := time.Now()
	provider, resource, err := l.registry.Resolve(url)
	if err != nil {
		l.record("unlink", start, 0, err)
		return err
	}
	unlinker, ok := provider.(types.Unlinker)
	if !ok {
		err = errors.OpNotSupported("unlink").WithPath(url)
		l.record("unlink", start, 0, err)
		return err
	}
	err = unlinker.Unlink(resource)
	l.record("unlink", start, 0, err)
	return err
}

// Chmod replaces the permission bits of the resource a URL names.
func (l *Layer) Chmod(url string, mode uint32) error {
	start := time.Now()
	provider, resource, err := l.registry.Resolve(url)
	if err != nil {
		l.record("chmod", start, 0, err)
		return err
	}
	chmoder, ok := provider.(types.Chmoder)
	if !ok {
		err = errors.OpNotSupported("chmod").WithPath(url)
		l.record("chmod", start, 0, err)
		return err
	}
	err = chmoder.Chmod(resource, mode)
	l.record("chmod", start, 0, err)
	return err
}

// Chown replaces the owner and group of the resource a URL names.
func (l *Layer) Chown(url string, uid, gid uint32) error {
	start := time.Now()
	provider, resource, err := l.registry.Resolve(url)
	if err != nil {
		l.record("chown", start, 0, err)
		return err
	}
	chowner, ok := provider.(types.Chowner)
	if !ok {
		err = errors.OpNotSupported("chown").WithPath(url)
		l.record("chown", start, 0, err)
		return err
	}
	err = chowner.Chown(resource, uid, gid)
	l.record("chown", start, 0, err)
	return err
}

// Link creates a second name for a resource. Both URLs must resolve to
// the same provider.
func (l *Layer) Link(oldURL, newURL string) error {
	start := time.Now()
	provider, oldRes, err := l.registry.Resolve(oldURL)
	if err != nil {
		l.record("link", start, 0, err)
		return err
	}
	newProvider, newRes, err := l.registry.Resolve(newURL)
	if err != nil {
		l.record("link", start, 0, err)
		return err
	}
	if provider != newProvider {
		err = errors.NotSupported("link").WithPath(newURL)
		l.record("link", start, 0, err)
		return err
	}
	linker, ok := provider.(types.Linker)
	if !ok {
		err = errors.OpNotSupported("link").WithPath(oldURL)
		l.record("link", start, 0, err)
		return err
	}
	err = linker.Link(oldRes, newRes)
	l.record("link", start, 0, err)
	return err
}

// Opendir snapshots the directory listing behind a URL into a cursor.
// Entries come back one at a time through the cursor's Next.
func (l *Layer) Opendir(url string) (types.DirCursor, error) {
	start := time.Now()
	provider, resource, err := l.registry.Resolve(url)
	if err != nil {
		l.record("opendir", start, 0, err)
		return nil, err
	}
	opener, ok := provider.(types.DirOpener)
	if !ok {
		err = errors.OpNotSupported("opendir").WithPath(url)
		l.record("opendir", start, 0, err)
		return nil, err
	}
	cur, err := opener.Opendir(resource)
	l.record("opendir", start, 0, err)
	return cur, err
}
