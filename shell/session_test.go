package shell_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aljce/umbrella/shell"
)

func TestNewfsThenMountReportsCleanAndFirstAlloc(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mydev")

	s := shell.New(nil)
	size := uint16(128)
	require.NoError(t, s.Newfs(path, 16, &size))

	clean, err := s.Mount(path + ".128.dev")
	require.NoError(t, err)
	require.True(t, clean)

	n, err := s.AllocBlock()
	require.NoError(t, err)
	require.EqualValues(t, 12, n)

	require.NoError(t, s.Unmount())
}

func TestMountTwiceFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mydev")
	s := shell.New(nil)
	size := uint16(128)
	require.NoError(t, s.Newfs(path, 16, &size))

	_, err := s.Mount(path + ".128.dev")
	require.NoError(t, err)
	defer s.Unmount()

	_, err = s.Mount(path + ".128.dev")
	require.Error(t, err)
}

func TestAllocBlockExhaustionMessage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mydev")
	s := shell.New(nil)
	size := uint16(128)
	require.NoError(t, s.Newfs(path, 16, &size))
	_, err := s.Mount(path + ".128.dev")
	require.NoError(t, err)
	defer s.Unmount()

	for i := 0; i < 4; i++ {
		_, err := s.AllocBlock()
		require.NoError(t, err)
	}
	_, err = s.AllocBlock()
	require.Error(t, err)
}

func TestFreeThenAllocReturnsSameBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mydev")
	s := shell.New(nil)
	size := uint16(128)
	require.NoError(t, s.Newfs(path, 16, &size))
	_, err := s.Mount(path + ".128.dev")
	require.NoError(t, err)
	defer s.Unmount()

	n, err := s.AllocBlock()
	require.NoError(t, err)
	require.EqualValues(t, 12, n)
	require.NoError(t, s.FreeBlock(n))
	again, err := s.AllocBlock()
	require.NoError(t, err)
	require.Equal(t, n, again)
}

func TestNewfsRejectsSmallBlockSize(t *testing.T) {
	dir := t.TempDir()
	s := shell.New(nil)
	size := uint16(64)
	err := s.Newfs(filepath.Join(dir, "mydev"), 16, &size)
	require.Error(t, err)
}

func TestDispatchExit(t *testing.T) {
	s := shell.New(nil)
	_, err := s.Dispatch([]string{"exit"})
	require.ErrorIs(t, err, shell.ErrExit)
}

func TestDispatchUnknownCommand(t *testing.T) {
	s := shell.New(nil)
	_, err := s.Dispatch([]string{"frobnicate"})
	require.Error(t, err)
}
