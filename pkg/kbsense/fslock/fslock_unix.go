//go:build unix

package fslock

import (
	"os"

	"golang.org/x/sys/unix"
)

// Exclusive blocks until an exclusive flock is held on f.
func Exclusive(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			return err
		}
	}
}

// Unlock releases the flock held on f.
func Unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
