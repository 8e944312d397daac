// Package changes computes the difference between a baseline snapshot and
// a current snapshot, along with the derived change metrics.
package changes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// Mode selects how files present in both snapshots are compared.
type Mode int

const (
	// ModeMetadata flags a file as modified when its hash, size or
	// modification time differs. A touch without content change counts.
	ModeMetadata Mode = iota

	// ModeContent flags a file as modified only when its hash differs.
	ModeContent
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeMetadata:
		return "metadata"
	case ModeContent:
		return "content"
	default:
		return "unknown"
	}
}

// ParseMode parses a configuration name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "metadata":
		return ModeMetadata, nil
	case "content":
		return ModeContent, nil
	default:
		return ModeMetadata, fmt.Errorf("unknown compare mode %q (available: metadata, content)", s)
	}
}

// Compute returns the change set from baseline to current. All lists are
// sorted by path and never nil. The inputs are not modified.
func Compute(baseline, current types.Snapshot, mode Mode) types.ChangeSet {
	cs := types.ChangeSet{
		Added:    []string{},
		Removed:  []string{},
		Modified: []types.ModifiedFile{},
	}

	for _, path := range current.Paths() {
		now := current[path]
		prev, ok := baseline[path]
		if !ok {
			cs.Added = append(cs.Added, path)
			continue
		}
		if changed(prev, now, mode) {
			cs.Modified = append(cs.Modified, types.ModifiedFile{
				Path:       path,
				OldHash:    types.HashPrefix(prev.ContentHash),
				NewHash:    types.HashPrefix(now.ContentHash),
				SizeChange: now.Size - prev.Size,
			})
		}
	}

	for _, path := range baseline.Paths() {
		if _, ok := current[path]; !ok {
			cs.Removed = append(cs.Removed, path)
		}
	}

	return cs
}

// changed reports whether two fingerprints of the same path differ under mode.
func changed(prev, now types.Fingerprint, mode Mode) bool {
	if prev.ContentHash != now.ContentHash {
		return true
	}
	if mode == ModeContent {
		return false
	}
	return prev.Size != now.Size || !prev.ModTime.Equal(now.ModTime)
}

// Metrics derives the scalar metrics of a change set. totalFiles is the
// number of files in the current snapshot; the change rate is zero when
// there are no files.
func Metrics(cs types.ChangeSet, totalFiles int) types.Metrics {
	m := types.Metrics{
		TotalFiles:    totalFiles,
		FilesAdded:    len(cs.Added),
		FilesDeleted:  len(cs.Removed),
		FilesModified: len(cs.Modified),
	}
	m.TotalChanges = m.FilesAdded + m.FilesDeleted + m.FilesModified
	if totalFiles > 0 {
		m.ChangeRate = float64(m.TotalChanges) / float64(totalFiles)
	}
	return m
}

// WithUnreadable returns cs with the given skipped paths recorded, sorted.
// Removal semantics are unchanged: a previously tracked file that could not
// be read is also listed in Removed.
func WithUnreadable(cs types.ChangeSet, paths []string) types.ChangeSet {
	if len(paths) == 0 {
		return cs
	}
	unreadable := append([]string(nil), paths...)
	sort.Strings(unreadable)
	cs.Unreadable = unreadable
	return cs
}
