//go:build !linux && !darwin

package simplefs

import "os"

// lockDevice is a no-op outside Linux/Darwin; golang.org/x/sys/unix's flock
// wrapper isn't available there, and nothing in the spec depends on the
// lock beyond best-effort single-writer enforcement.
func lockDevice(f *os.File) error { return nil }

func unlockDevice(f *os.File) {}
