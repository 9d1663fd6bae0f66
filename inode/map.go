package inode

import (
	"strings"
	"time"
)

// Map is the fixed-size inode table, indexed by slot number.
type Map struct {
	nodes []INode
}

// New builds a table of count Free inodes, all stamped with now.
func New(count uint16, now time.Time) *Map {
	nodes := make([]INode, count)
	for i := range nodes {
		nodes[i] = newINode(now)
	}
	return &Map{nodes: nodes}
}

// FromNodes wraps an already-decoded slice of inodes, as produced
// while mounting an existing device.
func FromNodes(nodes []INode) *Map {
	return &Map{nodes: nodes}
}

// Len returns the number of inode slots.
func (m *Map) Len() int {
	return len(m.nodes)
}

// Nodes exposes the underlying slice, in slot order, for flushing.
func (m *Map) Nodes() []INode {
	return m.nodes
}

// Get returns a pointer to the inode at slot i, so callers can mutate
// it (grow its indirect tree, bump its length) in place.
func (m *Map) Get(i int) *INode {
	return &m.nodes[i]
}

// Alloc picks the first Free slot, tags it with flags, stamps its
// mdate, and returns its slot number. The second return is false when
// every slot is occupied.
func (m *Map) Alloc(flags Flags, now time.Time) (int, bool) {
	for i := range m.nodes {
		if m.nodes[i].Flags == Free {
			m.nodes[i].Flags = flags
			m.nodes[i].MDate = now
			return i, true
		}
	}
	return 0, false
}

// Free returns slot i to the Free state.
func (m *Map) Free(i int) {
	m.nodes[i].Flags = Free
}

// String renders the table as rows of 64 characters, one per slot,
// '|' every 8 positions, matching blockmap.Map's convention.
func (m *Map) String() string {
	var sb strings.Builder
	for i, n := range m.nodes {
		sb.WriteByte(displayByte(n.Flags))
		pos := i % 64
		switch {
		case pos == 63:
			sb.WriteByte('\n')
		case pos%8 == 7:
			sb.WriteByte('|')
		}
	}
	if len(m.nodes)%64 != 0 {
		sb.WriteByte('\n')
	}
	return sb.String()
}

// blockPtrsFanout returns bnpb raised to level: the number of logical
// offsets each of an inode's direct pointer slots covers at that level.
// Reach builds on it, so the arithmetic can be tested without
// constructing a FileSystem.
func blockPtrsFanout(bnpb uint64, level uint8) uint64 {
	total := uint64(1)
	for i := uint8(0); i < level; i++ {
		total *= bnpb
	}
	return total
}

// Reach reports the highest logical offset (exclusive) addressable by
// an inode's current indirect-pointer tree.
func Reach(bnpb uint64, level uint8) uint64 {
	return uint64(DirectPointers) * blockPtrsFanout(bnpb, level)
}
