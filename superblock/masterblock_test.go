package superblock_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/superblock"
)

func TestNewLayout(t *testing.T) {
	m := superblock.New(128, 16, 10)
	require.EqualValues(t, 1, m.BlockMapStart)
	require.EqualValues(t, 2, m.InodeMapStart)
	require.EqualValues(t, 1, m.BlockMapBlocks())
	require.True(t, m.Flags.Contains(superblock.Synced))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := superblock.New(4096, 1000000, 10)
	encoded, err := m.Encode()
	require.NoError(t, err)
	require.Len(t, encoded, superblock.EncodedSize)

	decoded, err := superblock.Decode(encoded)
	require.NoError(t, err)
	if diff := cmp.Diff(m, decoded); diff != "" {
		t.Errorf("decoded master block differs from original (-want +got):\n%s", diff)
	}
}

func TestWriteSyncStatusFlipsOnlyOnSuccess(t *testing.T) {
	size := uint16(128)
	device, err := block.Create(filepath.Join(t.TempDir(), "dev"), 16, &size)
	require.NoError(t, err)
	defer device.Close()

	m := superblock.New(128, 16, 10)
	require.NoError(t, m.WriteSyncStatus(device, false))
	require.False(t, m.Flags.Contains(superblock.Synced))

	buf := make([]byte, 128)
	require.NoError(t, device.Read(block.MasterBlockNumber, buf))
	reread, err := superblock.Decode(buf)
	require.NoError(t, err)
	require.False(t, reread.Flags.Contains(superblock.Synced))
}
