//go:build !unix

package fslock

import "os"

// Exclusive is a no-op on platforms without flock.
func Exclusive(_ *os.File) error { return nil }

// Unlock is a no-op on platforms without flock.
func Unlock(_ *os.File) error { return nil }
