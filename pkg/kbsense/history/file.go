package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/kbsense/pkg/kbsense/fslock"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// FileStore keeps the state in a single JSON document:
//
//	{"baseline_states": {...}, "change_history": [...]}
//
// Saves are atomic: the document is written to a temporary file in the same
// directory, synced and renamed over the target while an advisory lock on
// <path>.lock is held. Update holds the same lock from load to save. Load
// alone takes no lock; the rename means it never sees a partial document.
type FileStore struct {
	path       string
	maxRecords int
}

// NewFileStore creates a store for the JSON document at path.
// The file and its directory are created on first Save.
func NewFileStore(path string, maxRecords int) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("state path cannot be empty")
	}
	return &FileStore{path: path, maxRecords: maxRecords}, nil
}

// Path returns the location of the JSON document.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) (*types.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read(), nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, state *types.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock, err := fslock.Acquire(s.lockPath())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	return s.write(state)
}

// Update implements Updater.
func (s *FileStore) Update(ctx context.Context, fn func(*types.State) (*types.State, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock, err := fslock.Acquire(s.lockPath())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	next, err := fn(s.read())
	if err != nil || next == nil {
		return err
	}
	return s.write(next)
}

func (s *FileStore) lockPath() string {
	return s.path + ".lock"
}

// read decodes the document, degrading to an empty state when it is
// missing or unreadable.
func (s *FileStore) read() *types.State {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("no saved state, starting fresh", "path", s.path)
		return types.NewState()
	}
	if err != nil {
		return degrade(s.path, err)
	}

	state, err := decodeState(data)
	if err != nil {
		return degrade(s.path, err)
	}
	return state
}

func (s *FileStore) write(state *types.State) error {
	data, err := json.MarshalIndent(prepare(state, s.maxRecords), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return WriteAtomic(s.path, data)
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

// WriteAtomic replaces path with data using a synced temporary file in the
// same directory and a rename, creating parent directories. Readers see
// either the old content or the new, never a partial file.
func WriteAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}

	return nil
}

// Ensure FileStore implements Store and Updater.
var (
	_ Store   = (*FileStore)(nil)
	_ Updater = (*FileStore)(nil)
)
