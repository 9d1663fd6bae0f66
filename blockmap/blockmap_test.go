package blockmap_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/aljce/umbrella/block"
	"github.com/aljce/umbrella/blockmap"
)

func TestAllocReturnsLowestFreeDistinctUntilExhausted(t *testing.T) {
	m := blockmap.New(4)
	seen := map[block.Number]bool{}
	for i := 0; i < 4; i++ {
		n, err := m.Alloc()
		require.NoError(t, err)
		require.EqualValues(t, i, n)
		require.False(t, seen[n])
		seen[n] = true
	}
	_, err := m.Alloc()
	require.Error(t, err)
}

func TestFreeThenAllocReturnsSameBlock(t *testing.T) {
	m := blockmap.New(16)
	for i := 0; i < 12; i++ {
		_, err := m.Alloc()
		require.NoError(t, err)
	}
	require.NoError(t, m.Free(block.Number(12-1)))
	n, err := m.Alloc()
	require.NoError(t, err)
	require.EqualValues(t, 11, n)
}

func TestToBytesFromBytesRoundTrip(t *testing.T) {
	m := blockmap.New(20)
	for _, b := range []block.Number{0, 1, 2, 19} {
		require.NoError(t, m.Set(b, true))
	}
	packed := m.ToBytes()
	reloaded := blockmap.FromBytes(packed, 20)
	if diff := cmp.Diff(packed, reloaded.ToBytes()); diff != "" {
		t.Errorf("repacked bitmap differs from original (-want +got):\n%s", diff)
	}
	for b := uint64(0); b < 20; b++ {
		want, err := m.IsSet(block.Number(b))
		require.NoError(t, err)
		got, err := reloaded.IsSet(block.Number(b))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestStringChunksRowsOfSixtyFourWithPipes(t *testing.T) {
	m := blockmap.New(16)
	for i := 0; i < 12; i++ {
		_, err := m.Alloc()
		require.NoError(t, err)
	}
	s := m.String()
	require.Equal(t, "11111111|11110000|\n", s)
}
