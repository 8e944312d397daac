// Package fslock provides advisory whole-file locks shared by the state
// store and the log writer. On platforms without flock the locks are no-ops.
package fslock

import (
	"fmt"
	"os"
	"path/filepath"
)

// Lock is an advisory lock held on an open lock file.
type Lock struct {
	file *os.File
}

// Acquire opens (creating if needed) the lock file at path and blocks until
// an exclusive lock is held on it.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := Exclusive(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. The file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := Unlock(l.file)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
