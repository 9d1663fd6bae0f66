//go:build !windows

package shell

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockDevice takes an advisory exclusive flock on f, non-blocking. It
// fails fast if another process (or another mount in this one) already
// holds this lock on the device, enforcing the single-mounted-FS invariant
// even across process boundaries, not just within this session.
func lockDevice(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func unlockDevice(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
