package inode_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/inode"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 123000000).UTC()
	n := inode.INode{
		CDate:  now,
		MDate:  now,
		Flags:  inode.File,
		Perms:  inode.Unused,
		Length: 42,
		Level:  1,
	}
	n.BlockPtrs[0] = block.Number(7)
	n.BlockPtrs[7] = block.Number(99)

	encoded, err := n.Encode()
	require.NoError(t, err)
	require.Len(t, encoded, inode.EncodedSize)

	decoded, err := inode.Decode(encoded)
	require.NoError(t, err)
	if diff := cmp.Diff(n, decoded); diff != "" {
		t.Errorf("decoded inode differs from original (-want +got):\n%s", diff)
	}
}

func TestParseFlagsTotalOverAlphabet(t *testing.T) {
	cases := map[string]inode.Flags{
		"0": inode.Free,
		"f": inode.File,
		"s": inode.Link,
		"d": inode.Ptr,
		"D": inode.Data,
	}
	for tok, want := range cases {
		got, err := inode.ParseFlags(tok)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestParseFlagsRejectsEverythingElse(t *testing.T) {
	for _, bad := range []string{"x", "FILE", "", "D0"} {
		_, err := inode.ParseFlags(bad)
		require.Error(t, err)
	}
}

func TestMapAllocFreeAndDisplay(t *testing.T) {
	m := inode.New(4, time.Unix(0, 0).UTC())
	idx, ok := m.Alloc(inode.File, time.Unix(1, 0).UTC())
	require.True(t, ok)
	require.Equal(t, inode.File, m.Get(idx).Flags)
	require.Equal(t, "f000\n", m.String())

	m.Free(idx)
	require.Equal(t, inode.Free, m.Get(idx).Flags)
	require.Equal(t, "0000\n", m.String())
}

func TestMapAllocFailsWhenFull(t *testing.T) {
	m := inode.New(2, time.Unix(0, 0).UTC())
	_, ok := m.Alloc(inode.File, time.Unix(0, 0).UTC())
	require.True(t, ok)
	_, ok = m.Alloc(inode.File, time.Unix(0, 0).UTC())
	require.True(t, ok)
	_, ok = m.Alloc(inode.File, time.Unix(0, 0).UTC())
	require.False(t, ok)
}

func TestReachGrowsWithLevel(t *testing.T) {
	// block_size=128 => 16 block numbers per block, 8 direct pointers.
	require.EqualValues(t, 8, inode.Reach(16, 0))
	require.EqualValues(t, 128, inode.Reach(16, 1))
}
