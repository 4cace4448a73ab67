package core

import (
	"sort"
)

// EntryKind identifies the filesystem kind of a FileMeta entry.
type EntryKind uint8

const (
	// EntryKindRegular indicates a regular file. Only regular entries
	// participate in hashing.
	EntryKindRegular EntryKind = iota
	// EntryKindSymlink indicates a symbolic link. Its Target field carries
	// the link's target string.
	EntryKindSymlink
	// EntryKindDirectory indicates a directory. It carries no data payload.
	EntryKindDirectory
)

// String provides a human-readable representation of an EntryKind.
func (k EntryKind) String() string {
	switch k {
	case EntryKindRegular:
		return "regular"
	case EntryKindSymlink:
		return "symlink"
	case EntryKindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Digest is a fixed-width content digest. Its width is determined by the
// hashing algorithm in effect for a given run (see hash.go).
type Digest []byte

// String returns the lowercase hexadecimal representation of the digest.
func (d Digest) String() string {
	return hexString(d)
}

// Equal reports whether two digests are byte-for-byte identical.
func (d Digest) Equal(other Digest) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// FileMeta is the inventory entry for one filesystem object.
type FileMeta struct {
	// RelPath is the path relative to the tree root, using forward-slash
	// canonical form. It never contains "." or ".." components and is
	// compared case-sensitively.
	RelPath string
	// Size is the file's byte count. It is zero for directories and
	// symlinks.
	Size uint64
	// ModTime is the modification timestamp in nanoseconds since the Unix
	// epoch, at nanosecond precision where the filesystem provides it and
	// second precision (i.e. a multiple of 1e9) otherwise. It is compared
	// only as an equality hint, never as a substitute for content identity.
	ModTime int64
	// Mode holds POSIX-style permission bits (owner/group/other rwx). It is
	// preserved where the platform supports it and ignored otherwise.
	Mode uint32
	// Kind identifies the entry's filesystem kind.
	Kind EntryKind
	// Target is the symlink target string. It is only meaningful when Kind
	// is EntryKindSymlink.
	Target string
	// Hash is the entry's content digest. It is only defined, and only
	// ever populated, for EntryKindRegular entries, and may be absent
	// (nil) until computed.
	Hash Digest
}

// IsRegular reports whether the entry is a regular file.
func (m *FileMeta) IsRegular() bool { return m.Kind == EntryKindRegular }

// Inventory is an ordered, frozen sequence of FileMeta covering one tree,
// sorted ascending by RelPath under byte-wise comparison. Once
// returned from Scan, an Inventory must not be mutated; it is safe to read
// concurrently from many goroutines.
type Inventory struct {
	// Root is the absolute path of the tree that was scanned.
	Root string
	// Entries is the sorted slice of FileMeta records.
	Entries []FileMeta
}

// sortInventory sorts entries ascending by RelPath using a byte-wise
// (ordinal) comparison, then freezes the result into an Inventory. The sort
// must be stable across runs to keep planning deterministic.
func sortInventory(root string, entries []FileMeta) Inventory {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelPath < entries[j].RelPath
	})
	return Inventory{Root: root, Entries: entries}
}

// ByPath returns a lookup map from RelPath to a pointer into the inventory's
// backing array. The returned pointers alias Inventory.Entries and must not
// be used after the inventory itself is discarded.
func (inv *Inventory) ByPath() map[string]*FileMeta {
	result := make(map[string]*FileMeta, len(inv.Entries))
	for i := range inv.Entries {
		result[inv.Entries[i].RelPath] = &inv.Entries[i]
	}
	return result
}
