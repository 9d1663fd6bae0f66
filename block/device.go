package block

import (
	"fmt"
	"os"
	"regexp"

	"github.com/aljce/umbrella/backend"
	"github.com/aljce/umbrella/backend/file"
	"github.com/aljce/umbrella/errs"
)

// defaultBlockSize is used by Create when no explicit size is requested.
const defaultBlockSize uint16 = 1024

// devicePattern recognizes the canonical "<stem>.<block_size>.dev" name.
var devicePattern = regexp.MustCompile(`^(.*)\.([0-9]+)\.dev$`)

// DeviceConfig describes the shape of a device: where it lives on the
// host, and its block geometry.
type DeviceConfig struct {
	Path       string
	BlockSize  uint16
	BlockCount uint64
}

// FileName returns the canonical on-host name for this config:
// "<Path>.<BlockSize>.dev".
func (c DeviceConfig) FileName() string {
	return fmt.Sprintf("%s.%d.dev", c.Path, c.BlockSize)
}

// ParseDeviceConfig recovers a DeviceConfig from a canonical device
// file name. Any other form is rejected with errs.ErrParse.
func ParseDeviceConfig(name string) (DeviceConfig, error) {
	m := devicePattern.FindStringSubmatch(name)
	if m == nil {
		return DeviceConfig{}, fmt.Errorf("device name %q is not of the form <stem>.<block_size>.dev: %w", name, errs.ErrParse)
	}
	var size uint16
	if _, err := fmt.Sscanf(m[2], "%d", &size); err != nil {
		return DeviceConfig{}, fmt.Errorf("device name %q has an unparseable block size: %w", name, errs.ErrParse)
	}
	return DeviceConfig{Path: m[1], BlockSize: size}, nil
}

// Device treats a host file as a linear array of BlockCount fixed-size
// blocks. All I/O is block-aligned; callers never see a byte offset.
type Device struct {
	Config   DeviceConfig
	storage  backend.Storage
	writable backend.WritableFile
}

// Create formats a new, zero-filled device at the canonical filename
// derived from path, count, and size (size defaults to 1024 when nil).
// It fails with errs.ErrSize when count or size is zero.
func Create(path string, count uint64, size *uint16) (*Device, error) {
	blockSize := defaultBlockSize
	if size != nil {
		blockSize = *size
	}
	if count == 0 {
		return nil, fmt.Errorf("create: block_count is 0: %w", errs.ErrSize)
	}
	if blockSize == 0 {
		return nil, fmt.Errorf("create: block_size is 0: %w", errs.ErrSize)
	}
	config := DeviceConfig{Path: path, BlockSize: blockSize, BlockCount: count}
	total := int64(blockSize) * int64(count)
	storage, err := file.CreateFromPath(config.FileName(), total)
	if err != nil {
		return nil, err
	}
	writable, err := storage.Writable()
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	return &Device{Config: config, storage: storage, writable: writable}, nil
}

// Open opens an existing device, inferring BlockCount from the file's
// length on disk. path must be the canonical "<stem>.<block_size>.dev"
// name; any other form fails with errs.ErrParse.
func Open(path string) (*Device, error) {
	config, err := ParseDeviceConfig(path)
	if err != nil {
		return nil, err
	}
	storage, err := file.OpenFromPath(path, false)
	if err != nil {
		return nil, err
	}
	info, err := storage.Stat()
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	config.BlockCount = uint64(info.Size()) / uint64(config.BlockSize)
	writable, err := storage.Writable()
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	return &Device{Config: config, storage: storage, writable: writable}, nil
}

// checkBounds validates a block number and buffer length precondition
// shared by Read and Write.
func (d *Device) checkBounds(n Number, buf []byte) error {
	if uint64(n) >= d.Config.BlockCount {
		return fmt.Errorf("block number %s is not less than block count %d: %w", n, d.Config.BlockCount, errs.ErrSize)
	}
	if len(buf) != int(d.Config.BlockSize) {
		return fmt.Errorf("buffer length %d does not equal block size %d: %w", len(buf), d.Config.BlockSize, errs.ErrSize)
	}
	return nil
}

// Read reads exactly one block into buf, which must be BlockSize bytes.
func (d *Device) Read(n Number, buf []byte) error {
	if err := d.checkBounds(n, buf); err != nil {
		return err
	}
	_, err := d.storage.ReadAt(buf, int64(n)*int64(d.Config.BlockSize))
	return err
}

// Write writes exactly one block from buf, which must be BlockSize bytes.
func (d *Device) Write(n Number, buf []byte) error {
	if err := d.checkBounds(n, buf); err != nil {
		return err
	}
	_, err := d.writable.WriteAt(buf, int64(n)*int64(d.Config.BlockSize))
	return err
}

// BlockNumbersPerBlock is the fanout of one indirect block: how many
// 8-byte block numbers fit in BlockSize bytes.
func (d *Device) BlockNumbersPerBlock() int {
	return int(d.Config.BlockSize) / 8
}

// BlockNumbersPerLevel is the number of logical offsets addressable
// through an indirect-pointer tree of the given height.
func (d *Device) BlockNumbersPerLevel(level uint8) uint64 {
	bnpb := uint64(d.BlockNumbersPerBlock())
	total := uint64(1)
	for i := uint8(0); i < level; i++ {
		total *= bnpb
	}
	return total
}

// Close releases the underlying host file handle.
func (d *Device) Close() error {
	return d.storage.Close()
}

// Sys exposes the underlying *os.File, for callers (such as the
// shell's mount lock) that need raw fd access.
func (d *Device) Sys() (*os.File, error) {
	return d.storage.Sys()
}
