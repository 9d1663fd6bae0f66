//go:build windows

package shell

import "os"

// lockDevice is a no-op on platforms without flock; the single-mount
// invariant still holds within one process via the session's mutable
// slot, just not across processes.
func lockDevice(f *os.File) error {
	return nil
}

func unlockDevice(f *os.File) error {
	return nil
}
