// Package errs defines the error taxonomy shared by the block device,
// cache, allocation maps, and file system layers. Callers wrap one of
// the sentinels below with fmt.Errorf("...: %w", ...) and recover the
// kind with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks a malformed device filename or INode flag token.
	ErrParse = errors.New("parse error")

	// ErrSerialization marks a corrupt on-disk image that failed to decode.
	ErrSerialization = errors.New("serialization error")

	// ErrSize marks a precondition violation: a zero count or size, a
	// buffer length mismatch, or a block number at or past block_count.
	ErrSize = errors.New("size error")

	// ErrOverflow marks a logical offset past the current reach of an
	// inode's indirect-pointer tree.
	ErrOverflow = errors.New("offset overflow")

	// ErrCacheInvalid marks a block accessed both as raw data and as a
	// pointer array within one cache.
	ErrCacheInvalid = errors.New("cache entry accessed as both data and pointers")

	// ErrOutOfBlocks marks a block map with no free bit left; surfaced as
	// an ErrSize per spec.
	ErrOutOfBlocks = fmt.Errorf("no room left on device: %w", ErrSize)
)
