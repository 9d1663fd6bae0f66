// Package shell implements the interactive command surface over a
// single mounted FileSystem: newfs, mount, unmount, the allocation
// commands, and directory navigation. It holds the one mountable slot
// the file system session model describes.
package shell

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/errs"
	"github.com/aljce/umbrella/filesystem"
	"github.com/aljce/umbrella/inode"
	"github.com/aljce/umbrella/util/timestamp"
)

// mounted bundles a live FileSystem with the host file handle its
// advisory lock was taken against.
type mounted struct {
	fs     *filesystem.FileSystem
	handle *os.File
}

// Session is the process-wide command dispatcher state: at most one
// mounted file system, plus the shell's current working directory
// (host-side; umbrella itself has no directory layer yet).
type Session struct {
	mount *mounted
	cwd   string
	log   logrus.FieldLogger
}

// New builds a Session rooted at the host's current working directory.
func New(log logrus.FieldLogger) *Session {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Session{cwd: cwd, log: log}
}

// ErrAlreadyMounted is returned by Mount when a file system is already
// mounted in this session.
var ErrAlreadyMounted = fmt.Errorf("a file system is already mounted: %w", errs.ErrSize)

// ErrNotMounted is returned by any command requiring a mounted file
// system when none is mounted.
var ErrNotMounted = fmt.Errorf("no file system is mounted: %w", errs.ErrSize)

// minBlockSize is the floor enforced by newfs.
const minBlockSize = 128

// Newfs builds a device at path with the given geometry, formats it,
// and immediately closes it: after Newfs returns, the device is ready
// to be mounted but is not itself mounted by this call.
func (s *Session) Newfs(path string, blockCount uint64, blockSize *uint16) error {
	if blockSize != nil && *blockSize < minBlockSize {
		return fmt.Errorf("block size %d is below the minimum of %d: %w", *blockSize, minBlockSize, errs.ErrSize)
	}
	device, err := block.Create(path, blockCount, blockSize)
	if err != nil {
		return err
	}
	fs, err := filesystem.New(device, s.log)
	if err != nil {
		_ = device.Close()
		return err
	}
	if err := fs.Close(); err != nil {
		_ = device.Close()
		return err
	}
	return device.Close()
}

// Mount opens path, reads its FileSystem, and installs it as the
// mounted slot. It fails if a file system is already mounted.
func (s *Session) Mount(path string) (cleanMount bool, err error) {
	if s.mount != nil {
		return false, ErrAlreadyMounted
	}
	device, err := block.Open(path)
	if err != nil {
		return false, err
	}
	handle, err := device.Sys()
	if err != nil {
		_ = device.Close()
		return false, err
	}
	if err := lockDevice(handle); err != nil {
		_ = device.Close()
		return false, fmt.Errorf("device %s is already in use: %w", path, err)
	}
	m, err := filesystem.Read(device, s.log)
	if err != nil {
		_ = unlockDevice(handle)
		_ = device.Close()
		return false, err
	}
	s.mount = &mounted{fs: m.FS, handle: handle}
	return m.CleanMount, nil
}

// Unmount closes the mounted file system and releases the slot.
func (s *Session) Unmount() error {
	if s.mount == nil {
		return ErrNotMounted
	}
	m := s.mount
	s.mount = nil
	defer unlockDevice(m.handle)
	if err := m.fs.Close(); err != nil {
		return err
	}
	return m.fs.Device().Close()
}

// Mounted reports whether a file system is currently mounted.
func (s *Session) Mounted() bool {
	return s.mount != nil
}

func (s *Session) fs() (*filesystem.FileSystem, error) {
	if s.mount == nil {
		return nil, ErrNotMounted
	}
	return s.mount.fs, nil
}

// Blockmap renders the mounted file system's allocation bitmap.
func (s *Session) Blockmap() (string, error) {
	fs, err := s.fs()
	if err != nil {
		return "", err
	}
	return fs.BlockMap.String(), nil
}

// AllocBlock allocates the lowest-numbered free block, returning its
// number. errs.ErrOutOfBlocks surfaces as "no room left on device."
func (s *Session) AllocBlock() (block.Number, error) {
	fs, err := s.fs()
	if err != nil {
		return 0, err
	}
	return fs.BlockMap.Alloc()
}

// FreeBlock frees a single block.
func (s *Session) FreeBlock(n block.Number) error {
	fs, err := s.fs()
	if err != nil {
		return err
	}
	return fs.BlockMap.Free(n)
}

// InodeMap renders the mounted file system's inode table.
func (s *Session) InodeMap() (string, error) {
	fs, err := s.fs()
	if err != nil {
		return "", err
	}
	return fs.InodeMap.String(), nil
}

// AllocInode allocates the first free inode slot tagged with flags,
// returning false if the table is full.
func (s *Session) AllocInode(flags inode.Flags) (int, bool, error) {
	fs, err := s.fs()
	if err != nil {
		return 0, false, err
	}
	idx, ok := fs.InodeMap.Alloc(flags, timestamp.GetTime())
	return idx, ok, nil
}

// FreeInode returns inode slot i to the Free state.
func (s *Session) FreeInode(i int) error {
	fs, err := s.fs()
	if err != nil {
		return err
	}
	if i < 0 || i >= fs.InodeMap.Len() {
		return fmt.Errorf("inode %d out of range [0,%d): %w", i, fs.InodeMap.Len(), errs.ErrSize)
	}
	fs.InodeMap.Free(i)
	return nil
}

// Cwd returns the shell's current host-side working directory.
func (s *Session) Cwd() string {
	return s.cwd
}

// Cd changes the shell's current host-side working directory.
func (s *Session) Cd(path string) error {
	if path == "" {
		path = "."
	}
	if err := os.Chdir(path); err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	s.cwd = cwd
	return nil
}

// Status reports a one-line mount summary, used by the supplemented
// "status" shell command.
func (s *Session) Status() string {
	if s.mount == nil {
		return "no file system mounted"
	}
	master := s.mount.fs.Master
	return fmt.Sprintf("mounted: %d blocks of %d bytes, %d inodes, session %s",
		master.BlockCount, master.BlockSize, master.InodeCount, s.mount.fs.SessionID())
}

// ParseBlockNumber parses a shell argument as a block number.
func ParseBlockNumber(s string) (block.Number, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a block number: %w", s, errs.ErrParse)
	}
	return block.Number(n), nil
}
