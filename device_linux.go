//go:build linux

package simplefs

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockDevice takes an advisory, non-blocking exclusive flock on f, matching
// spec.md §5's assumption that a volume has a single writer at a time. It
// mirrors the OS-specific split the teacher uses for inode attribute
// filling (inode_linux.go / inode_darwin.go), but for the block device
// rather than FUSE attributes.
func lockDevice(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return &os.PathError{Op: "flock", Path: f.Name(), Err: err}
	}
	return nil
}

func unlockDevice(f *os.File) {
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
