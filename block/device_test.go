package block_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aljce/umbrella/block"
)

func TestCreateSizesFileExactly(t *testing.T) {
	dir := t.TempDir()
	stem := filepath.Join(dir, "mydev")
	size := uint16(128)
	device, err := block.Create(stem, 16, &size)
	require.NoError(t, err)
	defer device.Close()

	require.Equal(t, "mydev.128.dev", filepath.Base(device.Config.FileName()))
	info, err := os.Stat(device.Config.FileName())
	require.NoError(t, err)
	require.EqualValues(t, 16*128, info.Size())
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	stem := filepath.Join(dir, "mydev")
	size := uint16(128)
	device, err := block.Create(stem, 4, &size)
	require.NoError(t, err)
	defer device.Close()

	for b := 0; b < 4; b++ {
		buf := bytes.Repeat([]byte{byte(b + 1)}, int(size))
		require.NoError(t, device.Write(block.Number(b), buf))
		out := make([]byte, size)
		require.NoError(t, device.Read(block.Number(b), out))
		require.Equal(t, buf, out)
	}
}

func TestCreateRejectsZeroCountOrSize(t *testing.T) {
	dir := t.TempDir()
	size := uint16(128)
	_, err := block.Create(filepath.Join(dir, "a"), 0, &size)
	require.Error(t, err)

	zero := uint16(0)
	_, err = block.Create(filepath.Join(dir, "b"), 16, &zero)
	require.Error(t, err)
}

func TestOpenRejectsNonCanonicalName(t *testing.T) {
	_, err := block.Open("not-canonical")
	require.Error(t, err)
}

func TestParseDeviceConfig(t *testing.T) {
	cfg, err := block.ParseDeviceConfig("mydev.128.dev")
	require.NoError(t, err)
	require.Equal(t, "mydev", cfg.Path)
	require.EqualValues(t, 128, cfg.BlockSize)
}

func TestSequence(t *testing.T) {
	seq := block.NewSequence(block.Number(2), block.Number(5))
	var got []block.Number
	for {
		n, ok := seq.Next()
		if !ok {
			break
		}
		got = append(got, n)
	}
	require.Equal(t, []block.Number{2, 3, 4}, got)
}
