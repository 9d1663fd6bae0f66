package inode

import "fmt"

import "github.com/aljce/umbrella/errs"

// Flags is a bitset that is used as a tag: an INode's Flags is
// expected to carry exactly one of the bits below at a time.
// Permissions is a placeholder for unimplemented permission bits;
// perms is persisted but never enforced per spec.
type Flags uint8

const (
	Free Flags = 1 << 7
	File Flags = 1 << 6
	Dir  Flags = 1 << 5
	Link Flags = 1 << 4
	Ptr  Flags = 1 << 3
	Data Flags = 1 << 2
)

// Contains reports whether f carries every bit set in o.
func (f Flags) Contains(o Flags) bool {
	return f&o == o
}

// ParseFlags recognizes the five-character alphabet accepted by the
// shell's alloc_inode command: '0' (free), 'f' (file), 's' (symlink),
// 'd' (indirect pointer block), 'D' (raw data block). Dir has no
// parse token; it is reserved for a future directory layer that is
// not implemented here.
func ParseFlags(s string) (Flags, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("inode flag %q: expected exactly one of [0fsdD]: %w", s, errs.ErrParse)
	}
	switch s[0] {
	case '0':
		return Free, nil
	case 'f':
		return File, nil
	case 's':
		return Link, nil
	case 'd':
		return Ptr, nil
	case 'D':
		return Data, nil
	default:
		return 0, fmt.Errorf("inode flag %q: expected one of [0fsdD]: %w", s, errs.ErrParse)
	}
}

// displayByte returns the single character used in Map.String for an
// inode carrying the given flags; this alphabet is distinct from
// ParseFlags's (it additionally distinguishes Dir from Ptr).
func displayByte(f Flags) byte {
	switch {
	case f.Contains(Free):
		return '0'
	case f.Contains(File):
		return 'f'
	case f.Contains(Dir):
		return 'd'
	case f.Contains(Link):
		return 's'
	case f.Contains(Ptr):
		return 'b'
	case f.Contains(Data):
		return 'D'
	default:
		return '0'
	}
}

// Permissions is reserved. The field is persisted but not enforced.
type Permissions uint16

// Unused is the zero value of Permissions.
const Unused Permissions = 0
