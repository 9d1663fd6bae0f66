// Package filesystem composes the block map, inode table, cache, and
// master block into the mountable umbrella file system: format, flush,
// and offset-to-block resolution through an inode's indirect-pointer
// tree.
package filesystem

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/blockmap"
	"github.com/aljce/umbrella/cache"
	"github.com/aljce/umbrella/inode"
	"github.com/aljce/umbrella/superblock"
	"github.com/aljce/umbrella/util/timestamp"
)

// InodeCount is the fixed size of every inode table this package
// formats. It is not configurable; spec treats it as a constant.
const InodeCount = 10

// FileSystem composes the allocation structures and cache for one
// mounted device. It exclusively owns the Cache, which exclusively
// owns the block.Device.
type FileSystem struct {
	Master    *superblock.MasterBlock
	BlockMap  *blockmap.Map
	InodeMap  *inode.Map
	cache     *cache.Cache
	sessionID uuid.UUID
	log       logrus.FieldLogger
}

// Mount is the result of reading an existing device: the live
// FileSystem plus whether the device reports a clean prior shutdown.
type Mount struct {
	FS         *FileSystem
	CleanMount bool
}

// SessionID identifies this mount in logs; it is never persisted.
func (fs *FileSystem) SessionID() uuid.UUID {
	return fs.sessionID
}

// Device exposes the underlying block device, for callers (such as
// the shell's mount lock) that need its path or to close it.
func (fs *FileSystem) Device() *block.Device {
	return fs.cache.Device()
}

// New formats device: it builds a fresh MasterBlock, marks the master
// block, bitmap blocks, and inode table blocks used in the block map,
// and fills the inode table with Free inodes timestamped now.
func New(device *block.Device, log logrus.FieldLogger) (*FileSystem, error) {
	blockSize := device.Config.BlockSize
	blockCount := device.Config.BlockCount
	blockMap := blockmap.New(blockCount)
	master := superblock.New(blockSize, blockCount, InodeCount)

	claimed := block.Number(uint64(master.InodeMapStart) + InodeCount)
	seq := block.NewSequence(block.MasterBlockNumber, claimed)
	for {
		n, ok := seq.Next()
		if !ok {
			break
		}
		if err := blockMap.Set(n, true); err != nil {
			return nil, err
		}
	}

	inodeMap := inode.New(InodeCount, timestamp.GetTime())
	fs := &FileSystem{
		Master:    &master,
		BlockMap:  blockMap,
		InodeMap:  inodeMap,
		cache:     cache.New(device),
		sessionID: uuid.New(),
		log:       log,
	}
	if log != nil {
		log.WithField("session", fs.sessionID).Infof("formatted %s: %d blocks of %d bytes, %d inodes", device.Config.FileName(), blockCount, blockSize, InodeCount)
	}
	return fs, nil
}

// Read mounts an existing device: it deserializes the master block,
// the allocation bitmap, and the inode table, then immediately flips
// the on-disk SYNCED flag to false for the duration of this session.
func Read(device *block.Device, log logrus.FieldLogger) (*Mount, error) {
	mbBuf := make([]byte, device.Config.BlockSize)
	if err := device.Read(block.MasterBlockNumber, mbBuf); err != nil {
		return nil, err
	}
	master, err := superblock.Decode(mbBuf)
	if err != nil {
		return nil, err
	}

	bits := make([]byte, 0, master.BlockMapBlocks()*uint64(master.BlockSize))
	n := master.BlockMapStart
	for i := uint64(0); i < master.BlockMapBlocks(); i++ {
		buf := make([]byte, master.BlockSize)
		if err := device.Read(n, buf); err != nil {
			return nil, err
		}
		bits = append(bits, buf...)
		n++
	}
	blockMap := blockmap.FromBytes(bits, master.BlockCount)

	nodes := make([]inode.INode, 0, master.InodeCount)
	n = master.InodeMapStart
	for i := uint16(0); i < master.InodeCount; i++ {
		buf := make([]byte, master.BlockSize)
		if err := device.Read(n, buf); err != nil {
			return nil, err
		}
		nd, err := inode.Decode(buf)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, nd)
		n++
	}
	inodeMap := inode.FromNodes(nodes)

	cleanMount := master.Flags.Contains(superblock.Synced)
	if err := master.WriteSyncStatus(device, false); err != nil {
		return nil, err
	}

	fs := &FileSystem{
		Master:    &master,
		BlockMap:  blockMap,
		InodeMap:  inodeMap,
		cache:     cache.New(device),
		sessionID: uuid.New(),
		log:       log,
	}
	if log != nil {
		entry := log.WithField("session", fs.sessionID)
		if !cleanMount {
			entry.Warnf("%s was not properly unmounted", device.Config.FileName())
		} else {
			entry.Infof("mounted %s cleanly", device.Config.FileName())
		}
	}
	return &Mount{FS: fs, CleanMount: cleanMount}, nil
}

// Write flushes the block map, the inode table, and every cached
// block back to the device. The master block itself is not rewritten
// here; only WriteSyncStatus ever touches block 0 after format.
func (fs *FileSystem) Write() error {
	device := fs.cache.Device()
	blockSize := int(fs.Master.BlockSize)

	bmBytes := fs.BlockMap.ToBytes()
	n := fs.Master.BlockMapStart
	for i := uint64(0); i < fs.Master.BlockMapBlocks(); i++ {
		chunk := make([]byte, blockSize)
		start := int(i) * blockSize
		if start < len(bmBytes) {
			end := start + blockSize
			if end > len(bmBytes) {
				end = len(bmBytes)
			}
			copy(chunk, bmBytes[start:end])
		}
		if err := device.Write(n, chunk); err != nil {
			return err
		}
		n++
	}
	if n != fs.Master.InodeMapStart {
		return fmt.Errorf("block map spans %d blocks but inode table starts at %s, not %s", fs.Master.BlockMapBlocks(), fs.Master.InodeMapStart, n)
	}

	for _, nd := range fs.InodeMap.Nodes() {
		encoded, err := nd.Encode()
		if err != nil {
			return err
		}
		chunk := make([]byte, blockSize)
		copy(chunk, encoded)
		if err := device.Write(n, chunk); err != nil {
			return err
		}
		n++
	}

	return fs.cache.Flush()
}

// Close flushes the file system and marks it cleanly unmounted. Any
// error from either step surfaces; the caller owns closing the
// underlying device afterward.
func (fs *FileSystem) Close() error {
	if err := fs.Write(); err != nil {
		return err
	}
	if err := fs.Master.WriteSyncStatus(fs.cache.Device(), true); err != nil {
		return err
	}
	if fs.log != nil {
		fs.log.WithField("session", fs.sessionID).Info("unmounted cleanly")
	}
	return nil
}
