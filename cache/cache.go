// Package cache implements the typed, lazily-populated block cache
// that sits between the file system layer and the block device: each
// block is cached as either raw data or a decoded array of block
// numbers, never both.
package cache

import (
	"encoding/binary"
	"fmt"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/errs"
)

type kind int

const (
	kindBlock kind = iota
	kindPointers
)

// entry is a cached block, tagged with the shape it was first read or
// written as. A block accessed both as raw data and as a pointer
// array within one Cache is a bug; it surfaces as errs.ErrCacheInvalid.
type entry struct {
	kind     kind
	block    []byte
	pointers []block.Number
}

// Cache maps block numbers to at most one entry each, reading
// through a Device lazily and flushing back only on Flush.
type Cache struct {
	entries map[block.Number]entry
	device  *block.Device
}

// New wraps device in a fresh, empty Cache.
func New(device *block.Device) *Cache {
	return &Cache{entries: make(map[block.Number]entry), device: device}
}

// Device returns the underlying block device.
func (c *Cache) Device() *block.Device {
	return c.device
}

// Read returns a copy of block n's raw bytes, reading through the
// device on first access. It fails with errs.ErrCacheInvalid if n was
// already cached as a pointer array.
func (c *Cache) Read(n block.Number) ([]byte, error) {
	if e, ok := c.entries[n]; ok {
		if e.kind != kindBlock {
			return nil, fmt.Errorf("block %s already cached as pointers: %w", n, errs.ErrCacheInvalid)
		}
		return append([]byte(nil), e.block...), nil
	}
	buf := make([]byte, c.device.Config.BlockSize)
	if err := c.device.Read(n, buf); err != nil {
		return nil, err
	}
	c.entries[n] = entry{kind: kindBlock, block: buf}
	return append([]byte(nil), buf...), nil
}

// ReadPointers decodes block n as a tightly packed array of
// little-endian block numbers, reading through the device on first
// access. It fails with errs.ErrCacheInvalid if n was already cached
// as raw data.
func (c *Cache) ReadPointers(n block.Number) ([]block.Number, error) {
	if e, ok := c.entries[n]; ok {
		if e.kind != kindPointers {
			return nil, fmt.Errorf("block %s already cached as data: %w", n, errs.ErrCacheInvalid)
		}
		return append([]block.Number(nil), e.pointers...), nil
	}
	buf := make([]byte, c.device.Config.BlockSize)
	if err := c.device.Read(n, buf); err != nil {
		return nil, err
	}
	pointers := decodePointers(buf)
	c.entries[n] = entry{kind: kindPointers, pointers: pointers}
	return append([]block.Number(nil), pointers...), nil
}

// WritePointers replaces whatever is cached at n, unconditionally,
// with pointers.
func (c *Cache) WritePointers(n block.Number, pointers []block.Number) {
	c.entries[n] = entry{kind: kindPointers, pointers: append([]block.Number(nil), pointers...)}
}

// WriteBlock replaces whatever is cached at n, unconditionally, with
// raw data bytes, copying data and zero-padding out to block size.
func (c *Cache) WriteBlock(n block.Number, data []byte) {
	blockSize := int(c.device.Config.BlockSize)
	buf := make([]byte, blockSize)
	copy(buf, data)
	c.entries[n] = entry{kind: kindBlock, block: buf}
}

// Flush writes every cached entry back to its block on the device.
// There is no LRU or capacity bound: the cache grows until the
// session's FileSystem is closed, at which point Flush is called once.
func (c *Cache) Flush() error {
	blockSize := int(c.device.Config.BlockSize)
	for n, e := range c.entries {
		switch e.kind {
		case kindBlock:
			if err := c.device.Write(n, e.block); err != nil {
				return err
			}
		case kindPointers:
			if err := c.device.Write(n, encodePointers(e.pointers, blockSize)); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodePointers(buf []byte) []block.Number {
	count := len(buf) / 8
	out := make([]block.Number, count)
	for i := 0; i < count; i++ {
		out[i] = block.Number(binary.LittleEndian.Uint64(buf[i*8 : (i+1)*8]))
	}
	return out
}

func encodePointers(pointers []block.Number, size int) []byte {
	buf := make([]byte, size)
	for i, p := range pointers {
		if (i+1)*8 > size {
			break
		}
		binary.LittleEndian.PutUint64(buf[i*8:(i+1)*8], uint64(p))
	}
	return buf
}
