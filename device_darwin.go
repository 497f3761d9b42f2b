//go:build darwin

package simplefs

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockDevice takes an advisory, non-blocking exclusive flock on f. Same
// call as the Linux build (golang.org/x/sys/unix exposes BSD flock(2) here
// too), kept as a separate file to match the teacher's per-OS split.
func lockDevice(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return &os.PathError{Op: "flock", Path: f.Name(), Err: err}
	}
	return nil
}

func unlockDevice(f *os.File) {
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
