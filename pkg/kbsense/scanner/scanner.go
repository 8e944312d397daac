package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/kbsense/pkg/kbsense/logging"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// logger is the package-level logger for scanning.
var logger = logging.Get("scanner")

// Result contains the snapshot produced by one scan and what was skipped.
type Result struct {
	// Snapshot maps relative paths to fingerprints of every readable file.
	Snapshot types.Snapshot

	// Errors lists files that matched but could not be fingerprinted.
	Errors []types.ScanError

	// FilesScanned is the number of files fingerprinted.
	FilesScanned int64

	// BytesScanned is the total size of the fingerprinted files.
	BytesScanned int64

	// Elapsed is the time taken by the scan.
	Elapsed time.Duration
}

// SkippedPaths returns the relative paths of the files in Errors.
func (r *Result) SkippedPaths() []string {
	paths := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		paths[i] = e.Path
	}
	return paths
}

// Scanner fingerprints the files of one or more namespaces.
type Scanner struct {
	opts Options
	root string
}

// New creates a Scanner. Options are validated and defaults are applied.
func New(opts Options) (*Scanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scanner options: %w", err)
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", opts.Root, err)
	}

	return &Scanner{opts: opts, root: root}, nil
}

// Scan fingerprints every matching file and returns a fresh snapshot.
// A missing namespace directory aborts the scan with an error wrapping
// types.ErrNamespaceNotFound. Per-file failures do not.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	startTime := time.Now()

	result := &Result{
		Snapshot: types.Snapshot{},
		Errors:   []types.ScanError{},
	}

	for _, ns := range s.opts.Namespaces {
		ext := s.opts.Extension
		if ext == "" {
			ext = ns.Ext
		}

		paths, err := s.opts.Lister.List(ctx, ns.Root(s.root), func(name string) bool {
			return strings.HasSuffix(name, ext) && !s.isExcluded(name)
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", ns.Dir, err)
		}

		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s.processFile(path, result)
		}
	}

	result.Elapsed = time.Since(startTime)
	logger.Debug("scan complete",
		"files", result.FilesScanned,
		"skipped", len(result.Errors),
		"elapsed", result.Elapsed)

	return result, nil
}

// processFile fingerprints one file and records it in the result.
func (s *Scanner) processFile(path string, result *Result) {
	key := s.relPath(path)

	fp, err := s.Fingerprint(path)
	if err != nil {
		logger.Warn("could not read file", "path", key, "error", err)
		result.Errors = append(result.Errors, types.ScanError{
			Path:  key,
			Error: err.Error(),
		})
		return
	}

	fp.Path = key
	result.Snapshot[key] = fp
	result.FilesScanned++
	result.BytesScanned += fp.Size
}

// Fingerprint computes the fingerprint of the file at path. The returned
// Path is the path as given.
func (s *Scanner) Fingerprint(path string) (types.Fingerprint, error) {
	info, err := s.opts.Reader.Stat(path)
	if err != nil {
		return types.Fingerprint{}, err
	}

	hash, err := s.hashFile(path)
	if err != nil {
		return types.Fingerprint{}, err
	}

	return types.Fingerprint{
		Path:        path,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentHash: hash,
		LastChecked: s.opts.Now(),
	}, nil
}

// hashFile streams the file through SHA-256. The handle is closed on every path.
func (s *Scanner) hashFile(path string) (hash string, err error) {
	f, err := s.opts.Reader.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return HashReader(f, s.opts.ChunkSize)
}

// HashReader returns the hex SHA-256 digest of everything read from r,
// reading chunkSize bytes at a time.
func HashReader(r io.Reader, chunkSize int) (string, error) {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}

	hasher := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(hasher, onlyReader{r}, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// onlyReader hides WriterTo/ReaderFrom so io.CopyBuffer uses the given buffer.
type onlyReader struct {
	io.Reader
}

// relPath converts an absolute path to a slash-separated id relative to the root.
func (s *Scanner) relPath(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// isExcluded checks if a base name matches any exclusion pattern.
func (s *Scanner) isExcluded(name string) bool {
	for _, pattern := range s.opts.Exclude {
		if pattern == "" {
			continue
		}
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}
