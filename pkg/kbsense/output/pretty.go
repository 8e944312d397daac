package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jamesainslie/kbsense/pkg/kbsense/detector"
	"github.com/jamesainslie/kbsense/pkg/kbsense/pairs"
	"github.com/jamesainslie/kbsense/pkg/kbsense/report"
	"github.com/jamesainslie/kbsense/pkg/kbsense/trend"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	var sections []string

	switch {
	case r.Status != nil:
		sections = append(sections, f.formatStatus(r))
	case r.Validation != nil:
		sections = append(sections, f.formatValidation(r.Validation))
	default:
		if r.Gamma != nil {
			sections = append(sections, f.formatGamma(r.Gamma))
		}
		if r.History != nil || r.Trend != nil {
			sections = append(sections, f.formatHistory(r.History, r.Trend))
		}
		if r.Detail != nil {
			sections = append(sections, f.formatDetail(r.Detail))
		} else if r.Delta != nil {
			sections = append(sections, f.formatDelta(r.Delta))
		}
	}

	if warnings := r.AllWarnings(); len(warnings) > 0 {
		sections = append(sections, f.formatWarnings(warnings))
	}

	w.WriteString(strings.Join(sections, "\n"))
	return nil
}

// field renders a label and value pair.
func field(label, value string) string {
	return LabelStyle.Render(label+":") + " " + value
}

// formatGamma builds the change-detection report.
func (f *PrettyFormatter) formatGamma(g *detector.Result) string {
	var sb strings.Builder
	rec := g.Record

	header := []string{
		TitleStyle.Render("Gamma: Change Detection"),
		strings.Join([]string{
			field("Total Files", ValueStyle.Render(fmt.Sprintf("%d", rec.Metrics.TotalFiles))),
			field("Total Changes", ValueStyle.Render(fmt.Sprintf("%d", rec.Metrics.TotalChanges))),
			field("Change Rate", ScoreStyle.Render(formatPercent(rec.Metrics.ChangeRate))),
		}, "  "),
		MutedStyle.Render(fmt.Sprintf("scan %s in %s", shortID(rec.ID), formatDuration(g.Elapsed))),
	}
	sb.WriteString(HeaderBox.Render(strings.Join(header, "\n")))
	sb.WriteString("\n")

	if rec.Metrics.TotalChanges == 0 && len(rec.Unreadable) == 0 {
		sb.WriteString(MutedStyle.Render("  No changes since the last scan"))
		sb.WriteString("\n")
	}

	f.writeList(&sb, "New files", SuccessStyle, "+", rec.Added)
	f.writeList(&sb, "Deleted files", ErrorStyle, "-", rec.Removed)

	if len(rec.Modified) > 0 {
		sb.WriteString(WarningStyle.Bold(true).Render(fmt.Sprintf("Modified files (%d):", len(rec.Modified))))
		sb.WriteString("\n")
		for _, m := range rec.Modified {
			sb.WriteString(fmt.Sprintf("  %s %s %s\n",
				WarningStyle.Render("~"),
				PathStyle.Render(m.Path),
				MutedStyle.Render("("+formatSizeChange(m.SizeChange)+")")))
		}
	}

	f.writeList(&sb, "Unreadable files", MutedStyle, "!", rec.Unreadable)

	sb.WriteString(f.formatTrend(g.Trend))
	return sb.String()
}

// writeList writes a titled list of paths, skipping empty lists.
func (f *PrettyFormatter) writeList(sb *strings.Builder, title string, style lipgloss.Style, mark string, paths []string) {
	if len(paths) == 0 {
		return
	}
	sb.WriteString(TitleStyle.Render(fmt.Sprintf("%s (%d):", title, len(paths))))
	sb.WriteString("\n")
	for _, p := range paths {
		sb.WriteString(fmt.Sprintf("  %s %s\n", style.Render(mark), PathStyle.Render(p)))
	}
}

// formatTrend builds the trend footer.
func (f *PrettyFormatter) formatTrend(t trend.Report) string {
	if !t.Sufficient() {
		msg := fmt.Sprintf("Trend: insufficient data (%d scans recorded)", t.ScansAvailable)
		return FooterBox.Render(MutedStyle.Render(msg)) + "\n"
	}

	parts := []string{
		field(fmt.Sprintf("Trend (last %d scans)", t.WindowSize), ScoreStyle.Render(string(t.Direction))),
		field("Average Rate", ValueStyle.Render(formatPercent(t.AverageChangeRate))),
		field("Changes", ValueStyle.Render(fmt.Sprintf("%d", t.TotalChangesInWindow))),
	}
	return FooterBox.Render(strings.Join(parts, "  ")) + "\n"
}

// formatHistory builds the scan history table.
func (f *PrettyFormatter) formatHistory(records []types.ScanRecord, t *trend.Report) string {
	var sb strings.Builder

	sb.WriteString(HeaderBox.Render(TitleStyle.Render(fmt.Sprintf("Scan History (%d records)", len(records)))))
	sb.WriteString("\n")

	if len(records) == 0 {
		sb.WriteString(MutedStyle.Render("  No scans recorded yet"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(renderTable(historyTable(records, formatWhen)))
	}

	if t != nil {
		sb.WriteString(f.formatTrend(*t))
	}
	return sb.String()
}

// formatDelta builds the pair consistency report.
func (f *PrettyFormatter) formatDelta(rep *pairs.Report) string {
	var sb strings.Builder
	s := rep.Summary

	header := []string{
		TitleStyle.Render("Delta: Fact/Rule Consistency"),
		strings.Join([]string{
			field("Pairs", ValueStyle.Render(fmt.Sprintf("%d", s.TotalPairs))),
			field("Complete", SuccessStyle.Render(fmt.Sprintf("%d", s.CompletePairs))),
			field("Incomplete", f.countStyle(s.IncompletePairs).Render(fmt.Sprintf("%d", s.IncompletePairs))),
		}, "  "),
		strings.Join([]string{
			field("Average Similarity", ScoreStyle.Render(formatPercent(s.AverageSimilarity))),
			field("Low Similarity", f.countStyle(s.LowSimilarityPairs).Render(fmt.Sprintf("%d", s.LowSimilarityPairs))),
		}, "  "),
	}
	sb.WriteString(HeaderBox.Render(strings.Join(header, "\n")))
	sb.WriteString("\n")

	if s.TotalPairs == 0 {
		sb.WriteString(MutedStyle.Render("  No facts or rules found"))
		sb.WriteString("\n")
	}

	if incomplete := rep.Incomplete(); len(incomplete) > 0 {
		sb.WriteString(ErrorStyle.Bold(true).Render(fmt.Sprintf("Incomplete pairs (%d):", len(incomplete))))
		sb.WriteString("\n")
		for _, p := range incomplete {
			sb.WriteString("  " + ValueStyle.Render(pairLine(p)) + "\n")
		}
	}

	if low := rep.LowSimilarity(); len(low) > 0 {
		sb.WriteString(WarningStyle.Bold(true).Render(fmt.Sprintf("Low similarity pairs (%d):", len(low))))
		sb.WriteString("\n")
		for _, p := range low {
			sb.WriteString(fmt.Sprintf("  %d: %s similarity\n", p.ID, ScoreStyle.Render(formatPercent(p.Similarity))))
		}
	}

	if errored := erroredPairs(rep); len(errored) > 0 {
		sb.WriteString(ErrorStyle.Bold(true).Render(fmt.Sprintf("Unreadable pairs (%d):", len(errored))))
		sb.WriteString("\n")
		for _, p := range errored {
			sb.WriteString("  " + ValueStyle.Render(pairLine(p)) + "\n")
		}
	}

	if len(rep.Recommendations) > 0 {
		lines := []string{TitleStyle.Render("Recommendations")}
		for _, rec := range rep.Recommendations {
			lines = append(lines, "• "+rec)
		}
		sb.WriteString(FooterBox.Render(strings.Join(lines, "\n")))
		sb.WriteString("\n")
	}

	return sb.String()
}

// countStyle highlights non-zero problem counts.
func (f *PrettyFormatter) countStyle(n int) lipgloss.Style {
	if n > 0 {
		return WarningStyle
	}
	return SuccessStyle
}

// formatDetail builds the analysis of a single pair.
func (f *PrettyFormatter) formatDetail(p *pairs.Pair) string {
	var sb strings.Builder

	lines := []string{
		TitleStyle.Render(fmt.Sprintf("Pair %d", p.ID)),
		field("Fact", f.pathOrMissing(p.FactPath, p.FactExists)),
		field("Rule", f.pathOrMissing(p.RulePath, p.RuleExists)),
	}
	if c := p.Comparison; c != nil {
		lines = append(lines,
			field("Similarity Score", ScoreStyle.Render(formatPercent(c.Similarity))),
			field("Word Overlap", ValueStyle.Render(fmt.Sprintf("%d words", len(c.Shared)))),
			field("Unique to Fact", ValueStyle.Render(fmt.Sprintf("%d words", len(c.OnlyLeft)))),
			field("Unique to Rule", ValueStyle.Render(fmt.Sprintf("%d words", len(c.OnlyRight)))),
		)
	}
	sb.WriteString(HeaderBox.Render(strings.Join(lines, "\n")))
	sb.WriteString("\n")

	if len(p.Issues) > 0 {
		sb.WriteString(WarningStyle.Bold(true).Render("Issues:"))
		sb.WriteString("\n")
		for _, issue := range p.Issues {
			sb.WriteString(WarningStyle.Render("  "+issue) + "\n")
		}
	}

	if c := p.Comparison; c != nil {
		if len(c.Diff) == 0 {
			sb.WriteString(MutedStyle.Render("  Fact and rule are identical line for line"))
			sb.WriteString("\n")
		} else {
			sb.WriteString(TitleStyle.Render("Differences:"))
			sb.WriteString("\n")
			for _, line := range c.Diff {
				sb.WriteString(RenderDiffLine(line) + "\n")
			}
		}
	}

	return sb.String()
}

// pathOrMissing renders an artifact path or a missing marker.
func (f *PrettyFormatter) pathOrMissing(path string, exists bool) string {
	if !exists {
		return ErrorStyle.Render("missing")
	}
	return PathStyle.Render(path)
}

// RenderDiffLine colors one unified diff line by its prefix.
func RenderDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return TitleStyle.Render(line)
	case strings.HasPrefix(line, "@@"):
		return DiffHunkStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return DiffAddStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return DiffRemoveStyle.Render(line)
	default:
		return MutedStyle.Render(line)
	}
}

// formatValidation builds the combined assessment.
func (f *PrettyFormatter) formatValidation(a *report.Assessment) string {
	var sb strings.Builder

	lines := []string{TitleStyle.Render("Validation")}
	if g := a.Gamma; g != nil {
		m := g.Record.Metrics
		lines = append(lines, strings.Join([]string{
			field("Change Rate", ScoreStyle.Render(formatPercent(m.ChangeRate))),
			MutedStyle.Render("limit " + formatPercent(a.Thresholds.MaxChangeRate)),
			field("Changes", ValueStyle.Render(fmt.Sprintf("%d of %d files", m.TotalChanges, m.TotalFiles))),
		}, "  "))
	}
	if d := a.Delta; d != nil {
		s := d.Summary
		lines = append(lines, strings.Join([]string{
			field("Complete Pairs", ValueStyle.Render(fmt.Sprintf("%d/%d", s.CompletePairs, s.TotalPairs))),
			field("Average Similarity", ScoreStyle.Render(formatPercent(s.AverageSimilarity))),
			MutedStyle.Render("min " + formatPercent(a.Thresholds.MinAverageSimilarity)),
		}, "  "))
	}
	sb.WriteString(HeaderBox.Render(strings.Join(lines, "\n")))
	sb.WriteString("\n")

	if len(a.Issues) > 0 {
		sb.WriteString(ErrorStyle.Bold(true).Render("Issues:"))
		sb.WriteString("\n")
		for _, issue := range a.Issues {
			sb.WriteString(ErrorStyle.Render("  • "+issue) + "\n")
		}
	}

	if a.Passed() {
		sb.WriteString(PassBox.Render(SuccessStyle.Bold(true).Render("PASSED")))
	} else {
		sb.WriteString(FailBox.Render(ErrorStyle.Bold(true).Render("FAILED")))
	}
	sb.WriteString("\n")
	return sb.String()
}

// formatStatus builds the knowledge-base overview.
func (f *PrettyFormatter) formatStatus(r *Result) string {
	var sb strings.Builder
	st := r.Status

	lines := []string{TitleStyle.Render("Knowledge Base Status")}
	for _, d := range st.Dirs {
		mark := SuccessStyle.Render("✓")
		if !d.Exists {
			mark = ErrorStyle.Render("✗")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", mark, LabelStyle.Render(d.Label+":"), PathStyle.Render(d.Path)))
	}
	sb.WriteString(HeaderBox.Render(strings.Join(lines, "\n")))
	sb.WriteString("\n")

	sb.WriteString(strings.Join([]string{
		field("Fact Files", ValueStyle.Render(fmt.Sprintf("%d", st.FactFiles))),
		field("Rule Files", ValueStyle.Render(fmt.Sprintf("%d", st.RuleFiles))),
		field("Total Files", ValueStyle.Render(fmt.Sprintf("%d", st.TotalFiles))),
	}, "  "))
	sb.WriteString("\n")

	if g := r.Gamma; g != nil {
		sb.WriteString(strings.Join([]string{
			field("Gamma", ScoreStyle.Render(formatPercent(g.Record.Metrics.ChangeRate))+" change rate"),
			field("Recent Changes", ValueStyle.Render(fmt.Sprintf("%d", st.RecentChanges))),
		}, "  "))
	} else {
		sb.WriteString(MutedStyle.Render("Gamma: scan skipped"))
	}
	sb.WriteString("\n")

	if d := r.Delta; d != nil {
		s := d.Summary
		sb.WriteString(strings.Join([]string{
			field("Delta", ValueStyle.Render(fmt.Sprintf("%d/%d complete pairs", s.CompletePairs, s.TotalPairs))),
			field("Average Similarity", ScoreStyle.Render(formatPercent(s.AverageSimilarity))),
		}, "  "))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	titleStyle := WarningStyle.Bold(true)
	sb.WriteString(titleStyle.Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
