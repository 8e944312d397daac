package tui

import (
	"fmt"

	"github.com/jamesainslie/kbsense/pkg/kbsense/pairs"
)

// renderAppHeader renders the shared application header with the pair summary.
func renderAppHeader(root string, s pairs.Summary) string {
	appName := titleStyle.Render("KBSENSE")

	stats := mutedTextStyle.Render(fmt.Sprintf("  %d pairs  •  %d complete  •  %.1f%% avg similarity",
		s.TotalPairs, s.CompletePairs, s.AverageSimilarity*100))

	header := fmt.Sprintf(" %s %s%s", appName, mutedTextStyle.Render(root), stats)

	if s.IncompletePairs > 0 || s.LowSimilarityPairs > 0 {
		header += warningTextStyle.Render(fmt.Sprintf("  ! %d need attention", attention(s)))
	} else if s.TotalPairs > 0 {
		header += successTextStyle.Render("  ✓ consistent")
	}

	return header
}

// attention counts the pairs flagged in the summary.
func attention(s pairs.Summary) int {
	return s.IncompletePairs + s.LowSimilarityPairs
}
