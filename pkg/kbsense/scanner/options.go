// Package scanner fingerprints knowledge-base files. Each matching file is
// described by its size, modification time and a SHA-256 digest of its
// content; files that cannot be read are skipped and reported as scan errors.
package scanner

import (
	"errors"
	"time"

	"github.com/jamesainslie/kbsense/pkg/kbsense/config"
	"github.com/jamesainslie/kbsense/pkg/kbsense/kb"
)

// DefaultChunkSize is the read size used when hashing file content.
const DefaultChunkSize = 4096

// Options configures the scanner behavior.
type Options struct {
	// Root is the knowledge-base root. Snapshot ids are relative to it.
	Root string

	// Namespaces are the directories to scan, relative to Root.
	Namespaces []kb.Namespace

	// Extension restricts scanning to files with this extension.
	// Empty uses each namespace's own extension.
	Extension string

	// Exclude contains glob patterns matched against file base names.
	Exclude []string

	// ChunkSize is the buffer size for hashing. Zero uses DefaultChunkSize.
	ChunkSize int

	// Lister enumerates files. Nil uses kb.WalkLister.
	Lister kb.Lister

	// Reader reads metadata and content. Nil uses kb.OSReader.
	Reader kb.Reader

	// Now returns the time recorded as LastChecked. Nil uses time.Now.
	Now func() time.Time
}

// DefaultOptions returns options for the default knowledge-base layout.
func DefaultOptions() Options {
	return Options{
		Root:       config.DefaultKBPath,
		Namespaces: []kb.Namespace{kb.Facts(), kb.Rules()},
		Extension:  config.DefaultExtension,
		Exclude:    config.DefaultExclusions,
		ChunkSize:  DefaultChunkSize,
	}
}

// Validate applies defaults for unset values and checks the options.
func (o *Options) Validate() error {
	if o.Root == "" {
		o.Root = config.DefaultKBPath
	}
	if len(o.Namespaces) == 0 {
		return errors.New("at least one namespace is required")
	}
	for _, ns := range o.Namespaces {
		if ns.Dir == "" {
			return errors.New("namespace directory cannot be empty")
		}
	}
	if o.ChunkSize < 1 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Lister == nil {
		o.Lister = kb.WalkLister{}
	}
	if o.Reader == nil {
		o.Reader = kb.OSReader{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return nil
}
