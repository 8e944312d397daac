package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jamesainslie/kbsense/pkg/kbsense/output"
	"github.com/jamesainslie/kbsense/pkg/kbsense/pairs"
)

// detailChrome is the number of lines around the viewport.
const detailChrome = 7

// DetailModel shows one pair with its word overlap and a scrollable diff.
type DetailModel struct {
	pair     pairs.Pair
	viewport viewport.Model
	width    int
	height   int
}

// NewDetailModel creates a detail view for p.
func NewDetailModel(p pairs.Pair, width, height int) DetailModel {
	vp := viewport.New(max(width-4, 20), max(height-detailChrome, 3))
	vp.SetContent(detailBody(p))
	return DetailModel{
		pair:     p,
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// Update forwards scrolling keys and mouse events to the viewport.
func (m DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// SetDimensions resizes the viewport.
func (m *DetailModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-4, 20)
	m.viewport.Height = max(height-detailChrome, 3)
}

// Pair returns the pair shown.
func (m DetailModel) Pair() pairs.Pair {
	return m.pair
}

// View renders the detail view.
func (m DetailModel) View() string {
	contentWidth := max(m.width-4, 20)
	p := m.pair

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("  Pair %d", p.ID)))
	b.WriteString(mutedTextStyle.Render(fmt.Sprintf("  %s  ↔  %s",
		sideLabel(p.FactPath, p.FactExists), sideLabel(p.RulePath, p.RuleExists))))
	b.WriteString("\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderHints([][2]string{
		{"↑↓", "Scroll"},
		{"Esc", "Back"},
		{"q", "Quit"},
	}))
	b.WriteString(mutedTextStyle.Render(fmt.Sprintf("  %3.0f%%", m.viewport.ScrollPercent()*100)))

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderStats renders the similarity line.
func (m DetailModel) renderStats() string {
	c := m.pair.Comparison
	if c == nil {
		return mutedTextStyle.Render("  not scored")
	}
	return fmt.Sprintf("  Similarity %s  Overlap %d  Unique to fact %d  Unique to rule %d",
		scoreStyle.Render(fmt.Sprintf("%.1f%%", c.Similarity*100)),
		len(c.Shared), len(c.OnlyLeft), len(c.OnlyRight))
}

// detailBody builds the scrollable content: issues followed by the diff.
func detailBody(p pairs.Pair) string {
	var b strings.Builder

	for _, issue := range p.Issues {
		b.WriteString(warningTextStyle.Render("! " + issue))
		b.WriteString("\n")
	}
	if len(p.Issues) > 0 {
		b.WriteString("\n")
	}

	c := p.Comparison
	switch {
	case c == nil:
		b.WriteString(mutedTextStyle.Render("No comparison available."))
		b.WriteString("\n")
	case len(c.Diff) == 0:
		b.WriteString(mutedTextStyle.Render("Fact and rule are identical line for line."))
		b.WriteString("\n")
	default:
		for _, line := range c.Diff {
			b.WriteString(output.RenderDiffLine(line))
			b.WriteString("\n")
		}
	}

	return b.String()
}
