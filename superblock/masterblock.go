// Package superblock implements the MasterBlock, persisted at block 0
// of every device: sizes, counts, and the locations of the block map
// and inode table.
package superblock

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/errs"
)

// Flags holds the single persisted sync bit.
type Flags uint8

// Synced is set whenever the file system was most recently closed
// cleanly; it is the only crash-consistency signal this format keeps.
const Synced Flags = 1 << 7

// Contains reports whether f carries every bit set in o.
func (f Flags) Contains(o Flags) bool {
	return f&o == o
}

// MasterBlock is the on-disk superblock. Its layout (BlockMapStart,
// InodeMapStart) is computed once at format time and never
// repersisted: Write is only ever called by WriteSyncStatus (which also
// first persists block 0 when a freshly formatted file system is
// closed), so if the map positions ever changed after format,
// they would not be written back. Treat the layout as
// format-time-immutable.
type MasterBlock struct {
	BlockSize     uint16
	BlockCount    uint64
	InodeCount    uint16
	BlockMapStart block.Number
	InodeMapStart block.Number
	Flags         Flags
}

// New computes the layout for a freshly formatted device.
func New(blockSize uint16, blockCount uint64, inodeCount uint16) MasterBlock {
	return MasterBlock{
		BlockSize:     blockSize,
		BlockCount:    blockCount,
		InodeCount:    inodeCount,
		BlockMapStart: block.Number(1),
		InodeMapStart: block.Number(2 + (blockCount/uint64(blockSize))/8),
		Flags:         Synced,
	}
}

// BlockMapBlocks is the number of blocks the allocation bitmap spans,
// rounded up to cover BlockCount bits.
func (m MasterBlock) BlockMapBlocks() uint64 {
	return 1 + m.BlockCount/uint64(m.BlockSize)/8
}

// EncodedSize is the fixed on-disk size of a serialized MasterBlock.
const EncodedSize = 2 + 8 + 2 + 8 + 8 + 1

// Encode serializes m in declaration order: block_size, block_count,
// inode_count, block_map, inode_map, flags.
func (m MasterBlock) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, EncodedSize))
	fields := []interface{}{
		m.BlockSize, m.BlockCount, m.InodeCount,
		uint64(m.BlockMapStart), uint64(m.InodeMapStart), uint8(m.Flags),
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("encode master block: %w: %v", errs.ErrSerialization, err)
		}
	}
	return buf.Bytes(), nil
}

// Decode parses a MasterBlock previously produced by Encode.
func Decode(data []byte) (MasterBlock, error) {
	r := bytes.NewReader(data)
	var blockSize uint16
	var blockCount uint64
	var inodeCount uint16
	var blockMap uint64
	var inodeMap uint64
	var flags uint8
	for _, f := range []interface{}{&blockSize, &blockCount, &inodeCount, &blockMap, &inodeMap, &flags} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return MasterBlock{}, fmt.Errorf("decode master block: %w: %v", errs.ErrSerialization, err)
		}
	}
	return MasterBlock{
		BlockSize:     blockSize,
		BlockCount:    blockCount,
		InodeCount:    inodeCount,
		BlockMapStart: block.Number(blockMap),
		InodeMapStart: block.Number(inodeMap),
		Flags:         Flags(flags),
	}, nil
}

// Write serializes m into a single block-sized, zero-padded buffer and
// writes it to block 0.
func (m MasterBlock) Write(device *block.Device) error {
	buf := make([]byte, device.Config.BlockSize)
	encoded, err := m.Encode()
	if err != nil {
		return err
	}
	if len(encoded) > len(buf) {
		return fmt.Errorf("master block encodes to %d bytes, larger than block size %d: %w", len(encoded), len(buf), errs.ErrSize)
	}
	copy(buf, encoded)
	return device.Write(block.MasterBlockNumber, buf)
}

// WriteSyncStatus flips the Synced bit, persists the result, and only
// updates *m once the write succeeds. This is the sole crash-signaling
// persistence event in the file system.
func (m *MasterBlock) WriteSyncStatus(device *block.Device, synced bool) error {
	next := *m
	if synced {
		next.Flags |= Synced
	} else {
		next.Flags &^= Synced
	}
	if err := next.Write(device); err != nil {
		return err
	}
	*m = next
	return nil
}
