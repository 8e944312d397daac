package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jamesainslie/kbsense/pkg/kbsense/pairs"
	"github.com/jamesainslie/kbsense/pkg/kbsense/similarity"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// table is a header and rows of cells.
type table struct {
	header []string
	rows   [][]string
}

// tableFor returns the primary table of a result: directories for status,
// tokens for a pair detail, pairs for delta and validate, changes for gamma
// and records for history.
func tableFor(r *Result) table {
	switch {
	case r.Status != nil:
		return statusTable(r.Status)
	case r.Detail != nil:
		return tokenTable(r.Detail.Comparison)
	case r.delta() != nil:
		return pairsTable(r.delta().Pairs)
	case r.gamma() != nil:
		return changesTable(r.gamma().Record.ChangeSet)
	case r.History != nil:
		return historyTable(r.History, func(t time.Time) string { return t.UTC().Format(time.RFC3339) })
	}
	return table{}
}

func statusTable(st *StatusInfo) table {
	t := table{header: []string{"LABEL", "PATH", "EXISTS", "FILES"}}
	for _, d := range st.Dirs {
		t.rows = append(t.rows, []string{d.Label, d.Path, fmt.Sprintf("%t", d.Exists), fmt.Sprintf("%d", d.Files)})
	}
	return t
}

func tokenTable(c *similarity.Comparison) table {
	t := table{header: []string{"KIND", "WORD"}}
	if c == nil {
		return t
	}
	for _, w := range c.Shared {
		t.rows = append(t.rows, []string{"shared", w})
	}
	for _, w := range c.OnlyLeft {
		t.rows = append(t.rows, []string{"fact", w})
	}
	for _, w := range c.OnlyRight {
		t.rows = append(t.rows, []string{"rule", w})
	}
	return t
}

func pairsTable(ps []pairs.Pair) table {
	t := table{header: []string{"ID", "FACT", "RULE", "SIMILARITY", "ISSUES"}}
	for _, p := range ps {
		score := "-"
		if p.Scored() {
			score = formatPercent(p.Similarity)
		}
		t.rows = append(t.rows, []string{
			fmt.Sprintf("%d", p.ID),
			orDash(p.FactPath),
			orDash(p.RulePath),
			score,
			strings.Join(p.Issues, "; "),
		})
	}
	return t
}

func changesTable(cs types.ChangeSet) table {
	t := table{header: []string{"CHANGE", "PATH", "SIZE_CHANGE"}}
	for _, p := range cs.Added {
		t.rows = append(t.rows, []string{"added", p, ""})
	}
	for _, p := range cs.Removed {
		t.rows = append(t.rows, []string{"deleted", p, ""})
	}
	for _, m := range cs.Modified {
		t.rows = append(t.rows, []string{"modified", m.Path, formatSizeChange(m.SizeChange)})
	}
	for _, p := range cs.Unreadable {
		t.rows = append(t.rows, []string{"unreadable", p, ""})
	}
	return t
}

func historyTable(records []types.ScanRecord, when func(time.Time) string) table {
	t := table{header: []string{"ID", "TIME", "FILES", "CHANGES", "RATE"}}
	for _, rec := range records {
		t.rows = append(t.rows, []string{
			shortID(rec.ID),
			when(rec.Timestamp),
			fmt.Sprintf("%d", rec.Metrics.TotalFiles),
			fmt.Sprintf("%d", rec.Metrics.TotalChanges),
			formatPercent(rec.Metrics.ChangeRate),
		})
	}
	return t
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// renderTable lays out t with styled headers and padded columns.
func renderTable(t table) string {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	cells := make([]string, len(t.header))
	for i, h := range t.header {
		cells[i] = TableHeaderStyle.Render(padRight(h, widths[i]))
	}
	sb.WriteString("  " + strings.Join(cells, "") + "\n")

	for _, row := range t.rows {
		for i, cell := range row {
			cells[i] = TableRowStyle.Render(padRight(cell, widths[i]))
		}
		sb.WriteString("  " + strings.TrimRight(strings.Join(cells, ""), " ") + "\n")
	}
	return sb.String()
}

// padRight pads a string with spaces on the right to achieve the desired width.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// TSVFormatter formats the primary table as tab-separated values.
// It produces a simple table with a header row followed by data rows.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	t := tableFor(r)
	if len(t.header) == 0 {
		return nil
	}

	w.WriteString(strings.Join(t.header, "\t") + "\n")
	for _, row := range t.rows {
		w.WriteString(strings.Join(row, "\t") + "\n")
	}
	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter formats the primary table as comma-separated values with proper quoting.
// It uses encoding/csv for RFC 4180 compliant output.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	t := tableFor(r)
	if len(t.header) == 0 {
		return nil
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(t.header); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats the primary table as a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	t := tableFor(r)
	if len(t.header) == 0 {
		return nil
	}

	w.WriteString("| " + strings.Join(t.header, " | ") + " |\n")

	seps := make([]string, len(t.header))
	for i := range seps {
		seps[i] = "---"
	}
	w.WriteString("|" + strings.Join(seps, "|") + "|\n")

	cells := make([]string, len(t.header))
	for _, row := range t.rows {
		for i, cell := range row {
			cells[i] = escapeMarkdownPipe(cell)
		}
		w.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
