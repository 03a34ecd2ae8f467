package types

import "time"

// Mode bit layout follows the conventional POSIX st_mode encoding: the top
// nibble carries the file type and the low 12 bits carry the permission bits.
const (
	ModeTypeMask uint32 = 0xF000
	ModePermMask uint32 = 0x0FFF

	ModeTypeRegular  uint32 = 0x8000
	ModeTypeDir      uint32 = 0x4000
	ModeTypeBlockDev uint32 = 0x6000
	ModeTypeCharDev  uint32 = 0x2000

	// Defaults synthesized for paths that never received explicit attributes.
	DefaultDirMode  uint32 = 0x41FF
	DefaultFileMode uint32 = 0x81FF
)

// Stat block accounting constants. Block count is reported in 512-byte
// units while the preferred I/O size is fixed at 2048.
const (
	StatBlockUnit int64 = 512
	StatBlockSize int64 = 2048
)

// Open flag bitmask understood by provider Open implementations.
const (
	OpenRead int = 1 << iota
	OpenWrite
	OpenCreate
	OpenTrunc
	OpenAppend
)

// Attributes is the per-file metadata record persisted in a sidecar file.
// DevMajor/DevMinor are meaningful only for block and character device nodes.
type Attributes struct {
	UID      uint32 `json:"uid"`
	GID      uint32 `json:"gid"`
	Mode     uint32 `json:"mode"`
	DevMajor uint32 `json:"devmaj,omitempty"`
	DevMinor uint32 `json:"devmin,omitempty"`
	Created  int64  `json:"created"`
}

// IsDir reports whether the mode encodes a directory.
func (a Attributes) IsDir() bool {
	return a.Mode&ModeTypeMask == ModeTypeDir
}

// IsDevice reports whether the mode encodes a block or character device node.
func (a Attributes) IsDevice() bool {
	t := a.Mode & ModeTypeMask
	return t == ModeTypeBlockDev || t == ModeTypeCharDev
}

// Perm returns the low permission bits of the mode.
func (a Attributes) Perm() uint32 {
	return a.Mode & ModePermMask
}

// Stat is the derived, read-only view merging backing-store facts with the
// attribute record.
type Stat struct {
	Attributes

	Size      int64     `json:"size"`
	Blocks    int64     `json:"blocks"`
	BlockSize int64     `json:"block_size"`
	ModTime   time.Time `json:"mtime"`
}

// DirEntry is a single directory-listing record. Inode numbers are not
// tracked; the field holds the InodeUnknown sentinel.
type DirEntry struct {
	Inode int64  `json:"inode"`
	Name  string `json:"name"`
}

// InodeUnknown is the inode sentinel for stores that do not track inodes.
const InodeUnknown int64 = -1

// ReadMode selects how a read request is interpreted.
type ReadMode int

const (
	// ReadCount reads up to Count bytes.
	ReadCount ReadMode = iota
	// ReadLine reads up to and including the next newline.
	ReadLine
	// ReadAll reads to end of file.
	ReadAll
)

// ReadRequest describes a read: either a byte count or a symbolic mode.
type ReadRequest struct {
	Mode  ReadMode
	Count int64
}

// ReadN builds a counted read request.
func ReadN(n int64) ReadRequest { return ReadRequest{Mode: ReadCount, Count: n} }

// ReadLineRequest builds a read-one-line request.
func ReadLineRequest() ReadRequest { return ReadRequest{Mode: ReadLine} }

// ReadAllRequest builds a read-to-end request.
func ReadAllRequest() ReadRequest { return ReadRequest{Mode: ReadAll} }
