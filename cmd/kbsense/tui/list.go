package tui

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/kbsense/pkg/kbsense/pairs"
)

// ListModel is the scrollable pair list.
type ListModel struct {
	report     *pairs.Report
	visible    []int // indexes into report.Pairs
	issuesOnly bool
	cursor     int
	offset     int // scroll offset
	width      int
	height     int
}

// NewListModel creates a list over every pair of report.
func NewListModel(report *pairs.Report) ListModel {
	m := ListModel{
		report: report,
		width:  80,
		height: 24,
	}
	m.refilter()
	return m
}

// HandleKey handles key input for the list.
func (m *ListModel) HandleKey(key string) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}

	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
			m.ensureVisible()
		}

	case "home", "g":
		m.cursor = 0
		m.offset = 0

	case "end", "G":
		if len(m.visible) > 0 {
			m.cursor = len(m.visible) - 1
			m.ensureVisible()
		}

	case "pgup":
		m.cursor -= m.visibleRows()
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureVisible()

	case "pgdown":
		m.cursor += m.visibleRows()
		if m.cursor >= len(m.visible) {
			m.cursor = len(m.visible) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureVisible()

	case "f":
		m.issuesOnly = !m.issuesOnly
		m.refilter()
	}
}

// refilter rebuilds the visible rows and keeps the cursor in range.
func (m *ListModel) refilter() {
	m.visible = nil
	if m.report != nil {
		for i, p := range m.report.Pairs {
			if m.issuesOnly && len(p.Issues) == 0 {
				continue
			}
			m.visible = append(m.visible, i)
		}
	}
	m.cursor = 0
	m.offset = 0
}

// Selected returns the pair under the cursor.
func (m ListModel) Selected() (*pairs.Pair, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil, false
	}
	return &m.report.Pairs[m.visible[m.cursor]], true
}

// Len returns the number of visible pairs.
func (m ListModel) Len() int {
	return len(m.visible)
}

// Cursor returns the current cursor position.
func (m ListModel) Cursor() int {
	return m.cursor
}

// IssuesOnly reports whether the list hides pairs without issues.
func (m ListModel) IssuesOnly() bool {
	return m.issuesOnly
}

// SetDimensions updates the width and height.
func (m *ListModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
	m.ensureVisible()
}

// View renders the list.
func (m ListModel) View(root string) string {
	contentWidth := m.width - 4
	if contentWidth < 60 {
		contentWidth = 60
	}

	var summary pairs.Summary
	if m.report != nil {
		summary = m.report.Summary
	}

	var b strings.Builder
	b.WriteString(renderAppHeader(root, summary))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderHints([][2]string{
		{"Enter", "Details"},
		{"f", m.filterHint()},
		{"r", "Reload"},
		{"q", "Quit"},
	}))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	if len(m.visible) == 0 {
		msg := "No fact or rule files found."
		if m.issuesOnly {
			msg = "No pairs with issues."
		}
		b.WriteString("\n")
		b.WriteString(center(mutedTextStyle.Render(msg), contentWidth))
		b.WriteString("\n\n")
	} else {
		b.WriteString(m.renderRows(contentWidth))
	}

	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

func (m ListModel) filterHint() string {
	if m.issuesOnly {
		return "Show all"
	}
	return "Issues only"
}

// renderRows renders the visible window of pairs. The cursor row is
// followed by its issues.
func (m ListModel) renderRows(width int) string {
	var b strings.Builder

	rows := m.visibleRows()
	pathWidth := (width - 22) / 2

	for i := m.offset; i < m.offset+rows && i < len(m.visible); i++ {
		p := m.report.Pairs[m.visible[i]]
		isCursor := i == m.cursor

		b.WriteString(m.renderRow(p, isCursor, pathWidth))
		b.WriteString("\n")

		if isCursor && len(p.Issues) > 0 {
			b.WriteString(issueStyle.Render(strings.Join(p.Issues, "; ")))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderRow renders one pair line.
func (m ListModel) renderRow(p pairs.Pair, isCursor bool, pathWidth int) string {
	cursor := " "
	if isCursor {
		cursor = cursorStyle.Render(">")
	}

	mark := successTextStyle.Render("✓")
	switch {
	case !p.Complete():
		mark = errorTextStyle.Render("✗")
	case len(p.Issues) > 0:
		mark = warningTextStyle.Render("!")
	}

	score := "-"
	if p.Scored() {
		score = fmt.Sprintf("%.1f%%", p.Similarity*100)
	}

	line := fmt.Sprintf(" %s %s %4d %s  %s  %s",
		cursor, mark, p.ID,
		scoreStyle.Render(score),
		padRight(truncatePath(sideLabel(p.FactPath, p.FactExists), pathWidth), pathWidth),
		truncatePath(sideLabel(p.RulePath, p.RuleExists), pathWidth))

	if isCursor {
		return selectedItemStyle.Render(line)
	}
	return normalItemStyle.Render(line)
}

// sideLabel returns the artifact path or a missing marker.
func sideLabel(path string, exists bool) string {
	if !exists || path == "" {
		return "(missing)"
	}
	return path
}

// renderFooter renders the position and filter state.
func (m ListModel) renderFooter() string {
	pos := 0
	if len(m.visible) > 0 {
		pos = m.cursor + 1
	}
	left := fmt.Sprintf("  %d/%d", pos, len(m.visible))
	if m.issuesOnly {
		left += warningTextStyle.Render("  (issues only)")
	}
	return left + "  " + mutedTextStyle.Render("[↑↓] Navigate")
}

// visibleRows returns the number of pair rows that fit on screen.
func (m ListModel) visibleRows() int {
	// Header, hints, dividers, footer and the cursor's issue line.
	available := m.height - 10
	if available < 3 {
		available = 3
	}
	return available
}

// ensureVisible adjusts offset to keep cursor visible.
func (m *ListModel) ensureVisible() {
	rows := m.visibleRows()

	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}

	if m.offset < 0 {
		m.offset = 0
	}
}
