package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/kbsense/pkg/kbsense/pairs"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// formatPercent renders a ratio in [0, 1] as a percentage.
func formatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// formatSizeChange renders a size delta as "+1.2 KiB", "-20 B" or "same size".
func formatSizeChange(delta int64) string {
	switch {
	case delta > 0:
		return "+" + types.FormatSize(delta)
	case delta < 0:
		return types.FormatSize(delta)
	default:
		return "same size"
	}
}

// formatWhen renders a timestamp relative to now, e.g. "3 minutes ago".
func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// pairLine renders the issues of a pair on one line, e.g. "3: Missing rule3".
func pairLine(p pairs.Pair) string {
	return fmt.Sprintf("%d: %s", p.ID, strings.Join(p.Issues, ", "))
}

// erroredPairs returns the complete pairs that could not be scored.
func erroredPairs(rep *pairs.Report) []pairs.Pair {
	var out []pairs.Pair
	for _, p := range rep.Pairs {
		if p.Complete() && !p.Scored() {
			out = append(out, p)
		}
	}
	return out
}

// shortID truncates a scan record id for display.
func shortID(id string) string {
	return types.HashPrefix(id)
}
