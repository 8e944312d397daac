package output

import (
	"bytes"
	"encoding/json"
	"strings"
)

// JSONFormatter formats output as a single indented JSON object.
// Sections a command did not produce are omitted.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats the primary table as newline-delimited JSON (one object per line).
// Each row is written as a compact object keyed by the lowercased column name.
// This format is suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	t := tableFor(r)
	keys := make([]string, len(t.header))
	for i, h := range t.header {
		keys[i] = strings.ToLower(h)
	}

	for _, row := range t.rows {
		obj := make(map[string]string, len(row))
		for i, cell := range row {
			obj[keys[i]] = cell
		}

		data, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
