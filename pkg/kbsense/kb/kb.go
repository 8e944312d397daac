// Package kb describes the knowledge-base layout (namespaces of numbered
// artifacts) and provides the filesystem collaborators that list and read
// artifacts for the scanner and the pair resolver.
package kb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// Namespace is one family of artifacts in the knowledge base, e.g. facts.
// Artifacts are named <Prefix><integer><Ext> and live directly in Dir.
type Namespace struct {
	// Name is the singular label used in messages ("fact").
	Name string `mapstructure:"name" json:"name" yaml:"name"`

	// Dir is the directory relative to the knowledge-base root ("facts").
	Dir string `mapstructure:"dir" json:"dir" yaml:"dir"`

	// Prefix is the file-name prefix before the numeric id ("fact").
	Prefix string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`

	// Ext is the file extension including the dot (".txt").
	Ext string `mapstructure:"ext" json:"ext" yaml:"ext"`
}

// Facts returns the default fact namespace.
func Facts() Namespace {
	return Namespace{Name: "fact", Dir: "facts", Prefix: "fact", Ext: ".txt"}
}

// Rules returns the default rule namespace.
func Rules() Namespace {
	return Namespace{Name: "rule", Dir: "rules", Prefix: "rule", Ext: ".txt"}
}

// Root returns the namespace directory under kbRoot.
func (n Namespace) Root(kbRoot string) string {
	return filepath.Join(kbRoot, n.Dir)
}

// FileName returns the artifact name for id, e.g. "fact3.txt".
func (n Namespace) FileName(id int) string {
	return n.Prefix + strconv.Itoa(id) + n.Ext
}

// Label returns the artifact label without extension, e.g. "rule3".
func (n Namespace) Label(id int) string {
	return n.Prefix + strconv.Itoa(id)
}

// pattern returns the anchored file-name pattern for the namespace.
func (n Namespace) pattern() *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(n.Prefix) + `(\d+)` + regexp.QuoteMeta(n.Ext) + "$")
}

// Matcher returns a function reporting the id embedded in a file name.
// Names that do not follow the naming convention report false.
func (n Namespace) Matcher() func(name string) (int, bool) {
	re := n.pattern()
	return func(name string) (int, bool) {
		m := re.FindStringSubmatch(name)
		if m == nil {
			return 0, false
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return id, true
	}
}

// Validate checks that the namespace can be used for resolution.
func (n Namespace) Validate() error {
	if n.Dir == "" {
		return errors.New("namespace directory cannot be empty")
	}
	if n.Prefix == "" {
		return fmt.Errorf("namespace %s: prefix cannot be empty", n.Dir)
	}
	return nil
}

// Lister enumerates candidate files in a namespace directory.
type Lister interface {
	// List returns the sorted paths of regular files directly inside dir whose
	// base name satisfies match. A missing dir returns an error wrapping
	// types.ErrNamespaceNotFound.
	List(ctx context.Context, dir string, match func(name string) bool) ([]string, error)
}

// Reader gives access to file metadata and content.
type Reader interface {
	Stat(path string) (fs.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
	ReadFile(path string) ([]byte, error)
}

// OSReader reads from the local filesystem.
type OSReader struct{}

// Stat returns file metadata, following symlinks.
func (OSReader) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

// Open opens the file for reading.
func (OSReader) Open(path string) (io.ReadCloser, error) { return os.Open(path) }

// ReadFile reads the whole file.
func (OSReader) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// Ensure OSReader implements Reader.
var _ Reader = OSReader{}

// WalkLister lists files with fastwalk. Subdirectories are not descended.
type WalkLister struct {
	// Workers is the number of fastwalk workers. Zero uses the fastwalk default.
	Workers int
}

// List implements Lister.
func (l WalkLister) List(ctx context.Context, dir string, match func(name string) bool) ([]string, error) {
	root, err := CheckRoot(dir)
	if err != nil {
		return nil, err
	}

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: l.Workers,
	}

	var (
		mu    sync.Mutex
		paths []string
	)

	err = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			// Unlistable entries are skipped, like unreadable files.
			return nil
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			return fastwalk.SkipDir
		}
		if !isFile(path, d) {
			return nil
		}
		if match != nil && !match(d.Name()) {
			return nil
		}

		mu.Lock()
		paths = append(paths, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Ensure WalkLister implements Lister.
var _ Lister = WalkLister{}

// isFile reports whether the entry is a regular file or a symlink to one.
func isFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// CheckRoot resolves dir to an absolute path and verifies it is an existing directory.
func CheckRoot(dir string) (string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", types.ErrNamespaceNotFound, root)
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", types.ErrNamespaceNotFound, root)
	}

	return root, nil
}
