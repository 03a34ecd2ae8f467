package managedfs

import "github.com/schemefs/schemefs/pkg/types"

// Cursor walks a directory snapshot taken at Opendir time. Entries added
// or removed afterwards are not reflected; iteration always terminates.
type Cursor struct {
	names []string
	pos   int
}

// Next returns the next entry, or false when the snapshot is exhausted.
// The store assigns no stable inode numbers, so every entry carries the
// unknown-inode sentinel.
func (c *Cursor) Next() (types.DirEntry, bool) {
	if c.pos >= len(c.names) {
		return types.DirEntry{}, false
	}
	name := c.names[c.pos]
	c.pos++
	return types.DirEntry{Inode: types.InodeUnknown, Name: name}, true
}

// Len reports the total number of entries in the snapshot.
func (c *Cursor) Len() int { return len(c.names) }
