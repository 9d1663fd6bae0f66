// Package blockmap implements the bitmap-based free-space map used to
// allocate and free physical blocks.
package blockmap

import (
	"strings"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/errs"
	"github.com/aljce/umbrella/util/bitmap"
)

// Map is a bit vector of length Count; bit i set means block i is
// allocated. A doubly-linked free list would give O(1) alloc/free, but
// a bit vector was chosen for memory density and good constants, the
// same tradeoff the original implementation documents.
type Map struct {
	bits  *bitmap.Bitmap
	Count uint64
}

// New builds an all-free Map addressing count blocks.
func New(count uint64) *Map {
	return &Map{bits: bitmap.NewBits(int(count)), Count: count}
}

// FromBytes rebuilds a Map from a packed bitmap image, truncated to
// the bytes that hold count bits (the image may be padded out to a
// block boundary).
func FromBytes(b []byte, count uint64) *Map {
	if n := (count + 7) / 8; uint64(len(b)) > n {
		b = b[:n]
	}
	bm := bitmap.FromBytes(b)
	return &Map{bits: bm, Count: count}
}

// ToBytes returns the packed bit vector, byte-aligned; the caller is
// responsible for zero-padding it out to a block boundary on write.
func (m *Map) ToBytes() []byte {
	return m.bits.ToBytes()
}

// IsSet reports whether block n is allocated.
func (m *Map) IsSet(n block.Number) (bool, error) {
	return m.bits.IsSet(n.Index())
}

// Set marks block n allocated (v=true) or free (v=false).
func (m *Map) Set(n block.Number, v bool) error {
	if v {
		return m.bits.Set(n.Index())
	}
	return m.bits.Clear(n.Index())
}

// Alloc returns the lowest-indexed free block and marks it allocated.
// It fails with errs.ErrOutOfBlocks when the map is full.
func (m *Map) Alloc() (block.Number, error) {
	i := m.bits.FirstFree(0)
	if i < 0 || uint64(i) >= m.Count {
		return 0, errs.ErrOutOfBlocks
	}
	if err := m.bits.Set(i); err != nil {
		return 0, err
	}
	return block.Number(i), nil
}

// Free marks block n free.
func (m *Map) Free(n block.Number) error {
	return m.bits.Clear(n.Index())
}

// String renders the map as rows of 64 characters ('1' allocated, '0'
// free), with a '|' separator every 8 positions.
func (m *Map) String() string {
	var sb strings.Builder
	for i := uint64(0); i < m.Count; i++ {
		set, err := m.bits.IsSet(int(i))
		if err != nil {
			set = false
		}
		if set {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
		pos := i % 64
		switch {
		case pos == 63:
			sb.WriteByte('\n')
		case pos%8 == 7:
			sb.WriteByte('|')
		}
	}
	if m.Count%64 != 0 {
		sb.WriteByte('\n')
	}
	return sb.String()
}
