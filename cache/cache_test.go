package cache_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/cache"
)

func newDevice(t *testing.T) *block.Device {
	t.Helper()
	size := uint16(128)
	device, err := block.Create(filepath.Join(t.TempDir(), "dev"), 8, &size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = device.Close() })
	return device
}

func TestWriteBlockThenFlush(t *testing.T) {
	device := newDevice(t)
	c := cache.New(device)

	buf := make([]byte, 128)
	buf[0] = 0xAB
	c.WriteBlock(block.Number(2), buf)
	require.NoError(t, c.Flush())

	out := make([]byte, 128)
	require.NoError(t, device.Read(block.Number(2), out))
	require.Equal(t, buf, out)
}

func TestPointersRoundTripThroughCache(t *testing.T) {
	device := newDevice(t)
	c := cache.New(device)

	pointers := []block.Number{1, 2, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	c.WritePointers(block.Number(3), pointers)
	got, err := c.ReadPointers(block.Number(3))
	require.NoError(t, err)
	require.Equal(t, pointers, got)

	require.NoError(t, c.Flush())
	c2 := cache.New(device)
	reread, err := c2.ReadPointers(block.Number(3))
	require.NoError(t, err)
	require.Equal(t, pointers, reread)
}

func TestMixedAccessIsCacheInvalid(t *testing.T) {
	device := newDevice(t)
	c := cache.New(device)

	c.WritePointers(block.Number(4), []block.Number{1})
	_, err := c.Read(block.Number(4))
	require.Error(t, err)

	c.WriteBlock(block.Number(5), nil)
	_, err = c.ReadPointers(block.Number(5))
	require.Error(t, err)
}
