package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/kbsense/pkg/kbsense/fslock"
)

// DefaultMaxSize is the log size that triggers rotation when none is configured.
const DefaultMaxSize = 10 * 1024 * 1024

// RotationConfig configures log file rotation behavior.
type RotationConfig struct {
	// MaxSize is the maximum size in bytes before rotation.
	// Zero uses DefaultMaxSize.
	MaxSize int64

	// MaxBackups is the maximum number of rotated files to keep.
	// Zero keeps all of them.
	MaxBackups int
}

// DefaultRotationConfig returns sensible defaults for rotation.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    DefaultMaxSize,
		MaxBackups: 5,
	}
}

// ParseRotation builds a RotationConfig from a human-readable size such as
// "10MB" or "512KiB". An empty size uses DefaultMaxSize.
func ParseRotation(maxSize string, maxBackups int) (RotationConfig, error) {
	cfg := RotationConfig{MaxSize: DefaultMaxSize, MaxBackups: maxBackups}
	if maxSize == "" {
		return cfg, nil
	}

	size, err := humanize.ParseBytes(maxSize)
	if err != nil {
		return RotationConfig{}, fmt.Errorf("parsing rotation max_size %q: %w", maxSize, err)
	}
	if size > 0 {
		cfg.MaxSize = int64(size)
	}
	return cfg, nil
}

// RotatingWriter implements io.WriteCloser with size-based rotation.
// It is safe for concurrent use from multiple goroutines and holds an
// advisory lock around each write for access from multiple processes.
type RotatingWriter struct {
	path string
	cfg  RotationConfig
	mu   sync.Mutex
	file *os.File
	size int64
}

// NewRotatingWriter creates a new rotating writer for the given log path.
// It creates parent directories if they don't exist.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{
		path: path,
		cfg:  cfg,
	}

	if err := w.openFile(); err != nil {
		return nil, err
	}

	w.cleanup()

	return w, nil
}

// Write writes data to the log file, rotating first if the write would
// exceed MaxSize.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if w.size > 0 && w.size+int64(len(p)) > w.cfg.MaxSize {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	if err := fslock.Exclusive(w.file); err != nil {
		return 0, fmt.Errorf("acquiring file lock: %w", err)
	}
	defer func() { _ = fslock.Unlock(w.file) }()

	n, err := w.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("writing to log file: %w", err)
	}

	w.size += int64(n)
	return n, nil
}

// Close closes the log file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		w.file = nil
		return fmt.Errorf("syncing log file: %w", err)
	}

	err := w.file.Close()
	w.file = nil
	return err
}

// openFile opens or creates the log file.
func (w *RotatingWriter) openFile() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		if closeErr := file.Close(); closeErr != nil {
			return fmt.Errorf("stat failed: %w; close failed: %w", err, closeErr)
		}
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = file
	w.size = info.Size()
	return nil
}

// rotate renames the current log file with a timestamp and opens a new one.
func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing current file: %w", err)
	}
	w.file = nil

	timestamp := time.Now().Format("2006-01-02-150405.000")
	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	rotatedPath := fmt.Sprintf("%s.%s%s", base, timestamp, ext)

	if err := os.Rename(w.path, rotatedPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}

	if err := w.openFile(); err != nil {
		return err
	}

	w.cleanup()
	return nil
}

// cleanup removes rotated files beyond MaxBackups, keeping the newest.
func (w *RotatingWriter) cleanup() {
	if w.cfg.MaxBackups <= 0 {
		return
	}

	rotated := w.rotatedFiles()
	for i := w.cfg.MaxBackups; i < len(rotated); i++ {
		_ = os.Remove(rotated[i]) // ignore errors during cleanup
	}
}

// rotatedFiles returns rotated log files, newest first.
func (w *RotatingWriter) rotatedFiles() []string {
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	// Match pattern: prefix.timestamp.ext (e.g., kbsense.2024-01-20-150405.000.log)
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == base {
			continue
		}
		if !strings.HasPrefix(name, prefix+".") || !strings.HasSuffix(name, ext) {
			continue
		}
		names = append(names, filepath.Join(dir, name))
	}

	// Timestamps sort lexicographically.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}
