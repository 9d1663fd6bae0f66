package inode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/errs"
)

// DirectPointers is the width of an INode's pointer array. At level 0
// these are direct data block pointers; at higher levels, slot 0 is
// the root of a grown indirect tree (see fs/4.6 offset allocation).
const DirectPointers = 8

// INode is one file's metadata and the root of its indirect-pointer
// tree. If Flags is Free, the remaining fields are meaningless.
type INode struct {
	CDate     time.Time
	MDate     time.Time
	Flags     Flags
	Perms     Permissions
	Length    uint64
	Level     uint8
	BlockPtrs [DirectPointers]block.Number
}

// newINode builds a Free inode stamped with now.
func newINode(now time.Time) INode {
	return INode{CDate: now, MDate: now, Flags: Free, Perms: Unused}
}

// EncodedSize is the fixed on-disk size of one serialized INode.
const EncodedSize = 8 + 4 + 8 + 4 + 1 + 2 + 8 + 1 + DirectPointers*8

// Encode serializes n in the wire order from spec: cdate, mdate
// (each unix-seconds u64 + nanos u32), flags, perms, length, level,
// block_ptrs.
func (n INode) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, EncodedSize))
	if err := writeTime(buf, n.CDate); err != nil {
		return nil, err
	}
	if err := writeTime(buf, n.MDate); err != nil {
		return nil, err
	}
	fields := []interface{}{uint8(n.Flags), uint16(n.Perms), n.Length, n.Level}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("encode inode: %w: %v", errs.ErrSerialization, err)
		}
	}
	for _, p := range n.BlockPtrs {
		if err := binary.Write(buf, binary.LittleEndian, uint64(p)); err != nil {
			return nil, fmt.Errorf("encode inode: %w: %v", errs.ErrSerialization, err)
		}
	}
	return buf.Bytes(), nil
}

// Decode parses an INode previously produced by Encode. Trailing
// padding bytes (zero-fill out to the block size) are ignored.
func Decode(data []byte) (INode, error) {
	r := bytes.NewReader(data)
	cdate, err := readTime(r)
	if err != nil {
		return INode{}, err
	}
	mdate, err := readTime(r)
	if err != nil {
		return INode{}, err
	}
	var flags uint8
	var perms uint16
	var length uint64
	var level uint8
	var ptrs [DirectPointers]uint64
	for _, f := range []interface{}{&flags, &perms, &length, &level} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return INode{}, fmt.Errorf("decode inode: %w: %v", errs.ErrSerialization, err)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &ptrs); err != nil {
		return INode{}, fmt.Errorf("decode inode: %w: %v", errs.ErrSerialization, err)
	}
	n := INode{
		CDate:  cdate,
		MDate:  mdate,
		Flags:  Flags(flags),
		Perms:  Permissions(perms),
		Length: length,
		Level:  level,
	}
	for i, p := range ptrs {
		n.BlockPtrs[i] = block.Number(p)
	}
	return n, nil
}

func writeTime(buf *bytes.Buffer, t time.Time) error {
	if err := binary.Write(buf, binary.LittleEndian, uint64(t.Unix())); err != nil {
		return fmt.Errorf("encode inode timestamp: %w: %v", errs.ErrSerialization, err)
	}
	return binary.Write(buf, binary.LittleEndian, uint32(t.Nanosecond()))
}

func readTime(r *bytes.Reader) (time.Time, error) {
	var secs uint64
	var nanos uint32
	if err := binary.Read(r, binary.LittleEndian, &secs); err != nil {
		return time.Time{}, fmt.Errorf("decode inode timestamp: %w: %v", errs.ErrSerialization, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &nanos); err != nil {
		return time.Time{}, fmt.Errorf("decode inode timestamp: %w: %v", errs.ErrSerialization, err)
	}
	return time.Unix(int64(secs), int64(nanos)).UTC(), nil
}
