package managedfs

import (
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/schemefs/schemefs/pkg/types"
)

// AttrSuffix is the extension carried by attribute sidecar files.
const AttrSuffix = ".attr"

// AttrPath derives the sidecar path for a file: /a/b/c -> /a/b/.c.attr.
// The derivation is collision-free for any valid non-attribute path and
// IsAttrPath is its inverse predicate.
func AttrPath(p string) string {
	p = path.Clean(p)
	return path.Join(path.Dir(p), "."+path.Base(p)+AttrSuffix)
}

// IsAttrPath reports whether the last path segment names an attribute
// sidecar: a dot prefix and the attr suffix. Sidecars are never valid
// targets of public filesystem operations.
func IsAttrPath(p string) bool {
	base := path.Base(path.Clean(p))
	return strings.HasPrefix(base, ".") && strings.HasSuffix(base, AttrSuffix)
}

// Sidecar file format: newline-separated key:integer records. Unknown keys
// are ignored on read so the format can grow without invalidating old
// sidecars.
const (
	attrKeyUID      = "uid"
	attrKeyGID      = "gid"
	attrKeyMode     = "mode"
	attrKeyCreated  = "created"
	attrKeyDevMajor = "devmaj"
	attrKeyDevMinor = "devmin"
)

// parseAttributes decodes sidecar content, filling any missing field from
// the defaults. Malformed lines are skipped.
func parseAttributes(data []byte, defaults types.Attributes) types.Attributes {
	a := defaults
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, val, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case attrKeyUID:
			a.UID = uint32(n)
		case attrKeyGID:
			a.GID = uint32(n)
		case attrKeyMode:
			a.Mode = uint32(n)
		case attrKeyCreated:
			a.Created = n
		case attrKeyDevMajor:
			a.DevMajor = uint32(n)
		case attrKeyDevMinor:
			a.DevMinor = uint32(n)
		}
	}
	return a
}

// encodeAttributes serializes a record as key:value lines. Device numbers
// are written only when meaningful, matching the on-disk format of existing
// emulated filesystems.
func encodeAttributes(a types.Attributes) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s:%d\n", attrKeyUID, a.UID)
	fmt.Fprintf(&buf, "%s:%d\n", attrKeyGID, a.GID)
	fmt.Fprintf(&buf, "%s:%d\n", attrKeyMode, a.Mode)
	fmt.Fprintf(&buf, "%s:%d\n", attrKeyCreated, a.Created)
	if a.IsDevice() || a.DevMajor != 0 || a.DevMinor != 0 {
		fmt.Fprintf(&buf, "%s:%d\n", attrKeyDevMajor, a.DevMajor)
		fmt.Fprintf(&buf, "%s:%d\n", attrKeyDevMinor, a.DevMinor)
	}
	return buf.Bytes()
}
