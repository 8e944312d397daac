package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
)

// PlainFormatter formats output as tab-aligned summary fields followed by
// the primary table. It produces plain text output suitable for scripting
// and piping. No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	// Use tabwriter for aligned columns
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	summary := summaryFor(r)
	for _, kv := range summary {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", kv[0], kv[1]); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	t := tableFor(r)
	if len(t.rows) > 0 {
		if len(summary) > 0 {
			w.WriteString("\n")
		}
		if _, err := tw.Write([]byte(strings.Join(t.header, "\t") + "\n")); err != nil {
			return err
		}
		for _, row := range t.rows {
			if _, err := tw.Write([]byte(strings.Join(row, "\t") + "\n")); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if r.Detail != nil && r.Detail.Comparison != nil && len(r.Detail.Comparison.Diff) > 0 {
		w.WriteString("\n")
		for _, line := range r.Detail.Comparison.Diff {
			w.WriteString(line + "\n")
		}
	}

	for _, warning := range r.AllWarnings() {
		w.WriteString("warning: " + warning + "\n")
	}
	return nil
}

// summaryFor returns the scalar fields of a result as label/value pairs.
func summaryFor(r *Result) [][2]string {
	var out [][2]string
	add := func(label, value string) { out = append(out, [2]string{label, value}) }
	itoa := func(n int) string { return fmt.Sprintf("%d", n) }

	if st := r.Status; st != nil {
		add("kb_path", r.KBPath)
		add("fact_files", itoa(st.FactFiles))
		add("rule_files", itoa(st.RuleFiles))
		add("total_files", itoa(st.TotalFiles))
		if g := r.Gamma; g != nil {
			add("change_rate", formatPercent(g.Record.Metrics.ChangeRate))
			add("recent_changes", itoa(st.RecentChanges))
		}
		if d := r.Delta; d != nil {
			add("complete_pairs", fmt.Sprintf("%d/%d", d.Summary.CompletePairs, d.Summary.TotalPairs))
			add("average_similarity", formatPercent(d.Summary.AverageSimilarity))
		}
		return out
	}

	if a := r.Validation; a != nil {
		add("status", string(a.Status))
		for _, issue := range a.Issues {
			add("issue", issue)
		}
	}

	if g := r.gamma(); g != nil {
		m := g.Record.Metrics
		add("scan_id", g.Record.ID)
		add("total_files", itoa(m.TotalFiles))
		add("total_changes", itoa(m.TotalChanges))
		add("change_rate", formatPercent(m.ChangeRate))
		if g.Trend.Sufficient() {
			add("trend_direction", string(g.Trend.Direction))
			add("trend_average", formatPercent(g.Trend.AverageChangeRate))
		}
	}

	if r.History != nil {
		add("scans", itoa(len(r.History)))
		if t := r.Trend; t != nil && t.Sufficient() {
			add("trend_direction", string(t.Direction))
			add("trend_average", formatPercent(t.AverageChangeRate))
		}
	}

	if p := r.Detail; p != nil {
		add("id", itoa(p.ID))
		add("fact", orDash(p.FactPath))
		add("rule", orDash(p.RulePath))
		if c := p.Comparison; c != nil {
			add("similarity", formatPercent(c.Similarity))
			add("word_overlap", itoa(len(c.Shared)))
			add("unique_to_fact", itoa(len(c.OnlyLeft)))
			add("unique_to_rule", itoa(len(c.OnlyRight)))
		}
		for _, issue := range p.Issues {
			add("issue", issue)
		}
	} else if d := r.delta(); d != nil {
		s := d.Summary
		add("total_pairs", itoa(s.TotalPairs))
		add("complete_pairs", itoa(s.CompletePairs))
		add("incomplete_pairs", itoa(s.IncompletePairs))
		add("average_similarity", formatPercent(s.AverageSimilarity))
		add("low_similarity_pairs", itoa(s.LowSimilarityPairs))
		if r.Validation == nil {
			for _, rec := range d.Recommendations {
				add("recommendation", rec)
			}
		}
	}

	return out
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
