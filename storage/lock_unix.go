//go:build unix

package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

// flock blocks until an exclusive advisory lock on f is held.
func flock(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			return err
		}
	}
}

func funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
