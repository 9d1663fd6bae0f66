package filesystem

import (
	"fmt"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/errs"
	"github.com/aljce/umbrella/inode"
)

// LookupBlockNumFromOffset resolves the logical block at offset within
// the inode at slot idx to a physical block number. ok is false when
// the offset lands on an unallocated hole within the tree's current
// reach; a true error means the tree itself is inconsistent or offset
// exceeds the tree's reach entirely.
func (fs *FileSystem) LookupBlockNumFromOffset(idx int, offset block.Offset) (n block.Number, ok bool, err error) {
	node := fs.InodeMap.Get(idx)
	bnpb := uint64(fs.cache.Device().BlockNumbersPerBlock())
	reach := inode.Reach(bnpb, node.Level)
	if uint64(offset) >= reach {
		return 0, false, fmt.Errorf("offset %d is past the %d reach of inode %d at level %d: %w", offset, reach, idx, node.Level, errs.ErrOverflow)
	}
	return fs.lookupRec(node.BlockPtrs[:], node.Level, bnpb, offset)
}

// lookupRec descends one level of the indirect tree per call. ptrs is
// the direct-pointer array at the current node; level 0 means ptrs
// holds data block numbers directly.
func (fs *FileSystem) lookupRec(ptrs []block.Number, level uint8, bnpb uint64, offset block.Offset) (block.Number, bool, error) {
	bnpl := blockNumbersPerLevel(bnpb, level)
	child, rest := offset.DivMod(bnpl)
	i := child.Index()
	if i < 0 || i >= len(ptrs) {
		return 0, false, fmt.Errorf("child index %d out of range for %d pointers: %w", i, len(ptrs), errs.ErrOverflow)
	}
	next := ptrs[i]
	if level == 0 {
		if next == block.MasterBlockNumber {
			return 0, false, nil
		}
		return next, true, nil
	}
	if next == block.MasterBlockNumber {
		return 0, false, nil
	}
	childPtrs, err := fs.cache.ReadPointers(next)
	if err != nil {
		return 0, false, err
	}
	return fs.lookupRec(childPtrs, level-1, bnpb, rest)
}

// AllocBlockNumFromOffset resolves offset to a physical block number
// within the inode at slot idx, allocating the data block if the
// level-0 slot is empty, and first growing the tree by one level at
// the root if offset exceeds the tree's current reach. No other
// pointer-array block is allocated.
//
// This preserves the original implementation's indirect-tree growth
// behavior exactly: growth only ever happens once, at the root, in
// this call; if a later intermediate pointer slot is itself empty
// (MasterBlockNumber) mid-descent, no further growth is attempted and
// this returns ok=false, not an error. Callers must treat ok=false as
// "no block was allocated" and must not advance inode.Length in that
// case.
func (fs *FileSystem) AllocBlockNumFromOffset(idx int, offset block.Offset) (n block.Number, ok bool, err error) {
	node := fs.InodeMap.Get(idx)
	bnpb := uint64(fs.cache.Device().BlockNumbersPerBlock())
	reach := inode.Reach(bnpb, node.Level)
	if uint64(offset) >= reach {
		if err := fs.growTree(node, bnpb); err != nil {
			return 0, false, err
		}
	}
	n, ok, err = fs.allocRec(node.BlockPtrs[:], node.Level, bnpb, offset)
	if err != nil {
		return 0, false, err
	}
	if ok && uint64(offset)+1 > node.Length {
		node.Length = uint64(offset) + 1
	}
	return n, ok, nil
}

// growTree grows the indirect tree by exactly one level: it copies all
// DirectPointers of the existing root into a freshly allocated pointer
// block, reparents that block under slot 0, and increments node.Level.
// It runs at most once per call to AllocBlockNumFromOffset, even if one
// level is not enough to bring offset within reach — this mirrors the
// original implementation's single-level growth exactly, rather than
// looping until offset fits.
func (fs *FileSystem) growTree(node *inode.INode, bnpb uint64) error {
	root, err := fs.allocBlock()
	if err != nil {
		return err
	}
	pointers := make([]block.Number, bnpb)
	for i := 0; i < inode.DirectPointers; i++ {
		pointers[i] = node.BlockPtrs[i]
	}
	fs.cache.WritePointers(root, pointers)
	node.BlockPtrs[0] = root
	for i := 1; i < inode.DirectPointers; i++ {
		node.BlockPtrs[i] = block.MasterBlockNumber
	}
	node.Level++
	return nil
}

// allocRec mirrors lookupRec but allocates a data block whenever it
// finds a hole at level 0, instead of returning ok=false. A hole found
// at level > 0 (a missing intermediate pointer block) is left alone,
// matching the original implementation: only the root, via growTree,
// ever grows the tree.
func (fs *FileSystem) allocRec(ptrs []block.Number, level uint8, bnpb uint64, offset block.Offset) (block.Number, bool, error) {
	bnpl := blockNumbersPerLevel(bnpb, level)
	child, rest := offset.DivMod(bnpl)
	i := child.Index()
	if i < 0 || i >= len(ptrs) {
		return 0, false, fmt.Errorf("child index %d out of range for %d pointers: %w", i, len(ptrs), errs.ErrOverflow)
	}
	next := ptrs[i]
	if level == 0 {
		if next == block.MasterBlockNumber {
			allocated, err := fs.allocBlock()
			if err != nil {
				return 0, false, err
			}
			fs.cache.WriteBlock(allocated, nil)
			ptrs[i] = allocated
			return allocated, true, nil
		}
		return next, true, nil
	}
	if next == block.MasterBlockNumber {
		return 0, false, nil
	}
	childPtrs, err := fs.cache.ReadPointers(next)
	if err != nil {
		return 0, false, err
	}
	n, ok, err := fs.allocRec(childPtrs, level-1, bnpb, rest)
	if err != nil {
		return 0, false, err
	}
	if ok {
		fs.cache.WritePointers(next, childPtrs)
	}
	return n, ok, nil
}

// allocBlock claims the lowest free physical block on the device. The
// caller seeds its cache entry (WriteBlock or WritePointers) according
// to what the block will hold.
func (fs *FileSystem) allocBlock() (block.Number, error) {
	return fs.BlockMap.Alloc()
}

func blockNumbersPerLevel(bnpb uint64, level uint8) uint64 {
	total := uint64(1)
	for i := uint8(0); i < level; i++ {
		total *= bnpb
	}
	return total
}
