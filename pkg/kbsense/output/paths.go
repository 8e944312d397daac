package output

import (
	"bytes"
)

// attentionPaths returns the paths a user may want to review: added and
// modified files from a scan, then the artifacts of pairs with issues.
func attentionPaths(r *Result) []string {
	var paths []string
	if g := r.gamma(); g != nil {
		paths = append(paths, g.Record.Added...)
		paths = append(paths, g.Record.ModifiedPaths()...)
	}
	if d := r.delta(); d != nil {
		for _, p := range d.Pairs {
			if len(p.Issues) == 0 {
				continue
			}
			if p.FactPath != "" {
				paths = append(paths, p.FactPath)
			}
			if p.RulePath != "" {
				paths = append(paths, p.RulePath)
			}
		}
	}
	return paths
}

// PathsFormatter formats output as one file path per line.
// It produces a simple list of paths suitable for piping to other tools.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, path := range attentionPaths(r) {
		w.WriteString(path)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

// Ensure PathsFormatter implements Formatter.
var _ Formatter = (*PathsFormatter)(nil)

// NullFormatter formats output as null-delimited paths.
// It produces paths separated by null bytes (0x00), suitable for use with
// xargs -0 or other tools that support null-delimited input.
type NullFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *NullFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, path := range attentionPaths(r) {
		w.WriteString(path)
		w.WriteByte(0) // Null byte delimiter
	}
	return nil
}

func init() {
	Register("null", func() Formatter {
		return &NullFormatter{}
	})
}

// Ensure NullFormatter implements Formatter.
var _ Formatter = (*NullFormatter)(nil)
