// Package types provides core data types for the kbsense knowledge-base analyzer.
// It includes file fingerprints, snapshots, change sets, scan records and the
// persisted state, along with small helpers for formatting them.
package types

import (
	"errors"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultMaxRecords is the number of scan records retained in history.
const DefaultMaxRecords = 50

// HashPrefixLen is the number of hash characters shown for modified files.
const HashPrefixLen = 8

// ErrNamespaceNotFound is returned when a namespace root directory does not exist.
var ErrNamespaceNotFound = errors.New("namespace root not found")

// Fingerprint is the content- and metadata-derived signature of one file.
// ContentHash depends only on the file's bytes.
type Fingerprint struct {
	// Path is the slash-separated path relative to the knowledge-base root.
	Path string `json:"path" yaml:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// ModTime is the last modification time reported by the filesystem.
	ModTime time.Time `json:"modified_time" yaml:"modified_time"`

	// ContentHash is the hex-encoded SHA-256 digest of the file content.
	ContentHash string `json:"content_hash" yaml:"content_hash"`

	// LastChecked is when the fingerprint was taken.
	LastChecked time.Time `json:"last_checked" yaml:"last_checked"`
}

// HumanSize returns the size formatted with IEC units.
func (f *Fingerprint) HumanSize() string {
	return FormatSize(f.Size)
}

// Snapshot maps relative paths to fingerprints for one scan.
type Snapshot map[string]Fingerprint

// Paths returns the snapshot keys in sorted order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns a shallow copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ModifiedFile describes one file present in both snapshots whose fingerprint differs.
type ModifiedFile struct {
	// Path is the file id.
	Path string `json:"file" yaml:"file"`

	// OldHash and NewHash are truncated hash prefixes, for display only.
	OldHash string `json:"old_hash" yaml:"old_hash"`
	NewHash string `json:"new_hash" yaml:"new_hash"`

	// SizeChange is the current size minus the baseline size.
	SizeChange int64 `json:"size_change" yaml:"size_change"`
}

// ChangeSet is the difference between a baseline and a current snapshot.
// Added, Removed and Modified never share an id.
type ChangeSet struct {
	Added    []string       `json:"new_files" yaml:"new_files"`
	Removed  []string       `json:"deleted_files" yaml:"deleted_files"`
	Modified []ModifiedFile `json:"modified_files" yaml:"modified_files"`

	// Unreadable lists files that matched the filter but could not be
	// fingerprinted. They are absent from the snapshot, so a previously
	// tracked unreadable file also appears in Removed.
	Unreadable []string `json:"unreadable_files,omitempty" yaml:"unreadable_files,omitempty"`
}

// ModifiedPaths returns the ids of all modified files.
func (c *ChangeSet) ModifiedPaths() []string {
	paths := make([]string, len(c.Modified))
	for i, m := range c.Modified {
		paths[i] = m.Path
	}
	return paths
}

// Metrics are the scalar results of a change computation.
type Metrics struct {
	TotalFiles    int     `json:"total_files" yaml:"total_files"`
	TotalChanges  int     `json:"total_changes" yaml:"total_changes"`
	ChangeRate    float64 `json:"change_rate" yaml:"change_rate"`
	FilesAdded    int     `json:"files_added" yaml:"files_added"`
	FilesDeleted  int     `json:"files_deleted" yaml:"files_deleted"`
	FilesModified int     `json:"files_modified" yaml:"files_modified"`
}

// ScanRecord is the immutable result of one change-detection run.
type ScanRecord struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"scan_timestamp" yaml:"scan_timestamp"`
	ChangeSet `yaml:",inline"`
	Metrics   Metrics `json:"gamma_metrics" yaml:"gamma_metrics"`
}

// State is the durable state: the latest baseline and the bounded scan history.
type State struct {
	Baseline Snapshot     `json:"baseline_states"`
	History  []ScanRecord `json:"change_history"`
}

// NewState returns an empty state, as seen on a first run.
func NewState() *State {
	return &State{
		Baseline: Snapshot{},
		History:  []ScanRecord{},
	}
}

// Commit returns the state that follows a scan: current becomes the baseline
// and record is appended to the history, which keeps at most maxRecords
// entries (oldest dropped first). The receiver is not modified.
func (s *State) Commit(current Snapshot, record ScanRecord, maxRecords int) *State {
	var prev []ScanRecord
	if s != nil {
		prev = s.History
	}

	history := make([]ScanRecord, 0, len(prev)+1)
	history = append(history, prev...)
	history = append(history, record)

	return &State{
		Baseline: current.Clone(),
		History:  TrimHistory(history, maxRecords),
	}
}

// TrimHistory returns the most recent maxRecords entries of history.
// A non-positive maxRecords uses DefaultMaxRecords.
func TrimHistory(history []ScanRecord, maxRecords int) []ScanRecord {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if len(history) <= maxRecords {
		return history
	}
	return history[len(history)-maxRecords:]
}

// ScanError represents a file that could not be read during scanning.
type ScanError struct {
	// Path is the file path where the error occurred.
	Path string `json:"path" yaml:"path"`

	// Error is the error message describing what went wrong.
	Error string `json:"error" yaml:"error"`
}

// HashPrefix returns the first HashPrefixLen characters of hash.
func HashPrefix(hash string) string {
	if len(hash) <= HashPrefixLen {
		return hash
	}
	return hash[:HashPrefixLen]
}

// FormatSize converts a size in bytes to a human-readable string using IEC units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}
