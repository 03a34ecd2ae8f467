// Package memory implements an in-process backing store. It backs the
// mem:// device and the test suites; it is also the reference semantics the
// S3 store mirrors.
package memory

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schemefs/schemefs/internal/storage"
)

type entry struct {
	data    []byte
	dir     bool
	modTime time.Time
}

// Store is a map-backed storage.Store. All methods are safe for concurrent
// use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// New creates an empty store containing only the root directory.
func New() *Store {
	s := &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	s.entries["/"] = &entry{dir: true, modTime: s.now()}
	return s
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Open opens the file at p with one of the storage.Mode* strings.
func (s *Store) Open(p, mode string) (storage.File, error) {
	p = clean(p)
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[p]
	switch mode {
	case storage.ModeRead, storage.ModeReadWrite:
		if e == nil {
			return nil, fmt.Errorf("memory: open %s: no such file", p)
		}
		if e.dir {
			return nil, fmt.Errorf("memory: open %s: is a directory", p)
		}
	case storage.ModeWrite, storage.ModeAppend:
		if e != nil && e.dir {
			return nil, fmt.Errorf("memory: open %s: is a directory", p)
		}
		if e == nil {
			parent := path.Dir(p)
			pe := s.entries[parent]
			if pe == nil || !pe.dir {
				return nil, fmt.Errorf("memory: open %s: no such directory %s", p, parent)
			}
		}
	default:
		return nil, fmt.Errorf("memory: open %s: bad mode %q", p, mode)
	}

	f := &file{store: s, path: p}
	switch mode {
	case storage.ModeRead:
		f.buf = append([]byte(nil), e.data...)
	case storage.ModeReadWrite:
		f.buf = append([]byte(nil), e.data...)
		f.writable = true
	case storage.ModeWrite:
		// Truncation is itself a mutation.
		f.writable = true
		f.dirty = e != nil
	case storage.ModeAppend:
		if e != nil {
			f.buf = append([]byte(nil), e.data...)
		}
		f.off = int64(len(f.buf))
		f.writable = true
	}
	return f, nil
}

// Exists reports whether p names a file or directory.
func (s *Store) Exists(p string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[clean(p)]
	return ok
}

// IsDir reports whether p names a directory.
func (s *Store) IsDir(p string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entries[clean(p)]
	return e != nil && e.dir
}

// ModTime returns the last-modified timestamp of p.
func (s *Store) ModTime(p string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.entries[clean(p)]; e != nil {
		return e.modTime
	}
	return time.Time{}
}

// Size returns the byte size of the file at p.
func (s *Store) Size(p string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.entries[clean(p)]; e != nil && !e.dir {
		return int64(len(e.data))
	}
	return 0
}

// List returns the sorted child names of the directory at p.
func (s *Store) List(p string) ([]string, error) {
	p = clean(p)
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.entries[p]
	if e == nil {
		return nil, fmt.Errorf("memory: list %s: no such directory", p)
	}
	if !e.dir {
		return nil, fmt.Errorf("memory: list %s: not a directory", p)
	}

	prefix := p
	if prefix != "/" {
		prefix += "/"
	}
	var names []string
	for k := range s.entries {
		if k == p || !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if strings.Contains(rest, "/") {
			continue
		}
		names = append(names, rest)
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the file or empty directory at p.
func (s *Store) Remove(p string) bool {
	p = clean(p)
	if p == "/" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[p]
	if e == nil {
		return false
	}
	if e.dir {
		prefix := p + "/"
		for k := range s.entries {
			if strings.HasPrefix(k, prefix) {
				return false
			}
		}
	}
	delete(s.entries, p)
	return true
}

// MkDir creates a directory at p. The parent must already exist.
func (s *Store) MkDir(p string) bool {
	p = clean(p)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[p]; ok {
		return false
	}
	pe := s.entries[path.Dir(p)]
	if pe == nil || !pe.dir {
		return false
	}
	s.entries[p] = &entry{dir: true, modTime: s.now()}
	return true
}

// commit writes a file buffer back into the store.
func (s *Store) commit(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[p] = &entry{data: data, modTime: s.now()}
}

// file is an open handle over a snapshot buffer. Writable handles commit
// their buffer back to the store on Close.
type file struct {
	store    *Store
	path     string
	buf      []byte
	off      int64
	writable bool
	dirty    bool
	closed   bool
}

func (f *file) Read(p []byte) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("memory: read %s: file closed", f.path)
	}
	if f.off >= int64(len(f.buf)) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[f.off:])
	f.off += int64(n)
	return n, nil
}

func (f *file) Write(p []byte) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("memory: write %s: file closed", f.path)
	}
	if !f.writable {
		return 0, fmt.Errorf("memory: write %s: read-only handle", f.path)
	}
	end := f.off + int64(len(p))
	if end > int64(len(f.buf)) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	copy(f.buf[f.off:end], p)
	f.off = end
	f.dirty = true
	return len(p), nil
}

func (f *file) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, fmt.Errorf("memory: seek %s: file closed", f.path)
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.off + offset
	case io.SeekEnd:
		abs = int64(len(f.buf)) + offset
	default:
		return 0, fmt.Errorf("memory: seek %s: invalid whence %d", f.path, whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("memory: seek %s: negative position", f.path)
	}
	f.off = abs
	return abs, nil
}

func (f *file) Close() error {
	if f.closed {
		return fmt.Errorf("memory: close %s: already closed", f.path)
	}
	f.closed = true
	if f.writable && (f.dirty || !f.store.Exists(f.path)) {
		f.store.commit(f.path, f.buf)
	}
	return nil
}
