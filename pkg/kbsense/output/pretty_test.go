package output

import (
	"testing"

	"github.com/jamesainslie/kbsense/pkg/kbsense/trend"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
	"github.com/stretchr/testify/assert"
)

func TestPrettyFormatter_Gamma(t *testing.T) {
	out := render(t, "pretty", &Result{Command: "gamma", Gamma: sampleGamma()})

	assert.Contains(t, out, "Gamma: Change Detection")
	assert.Contains(t, out, "Total Files: 5")
	assert.Contains(t, out, "Change Rate: 80.0%")
	assert.Contains(t, out, "New files (1):")
	assert.Contains(t, out, "facts/fact3.txt")
	assert.Contains(t, out, "Deleted files (1):")
	assert.Contains(t, out, "rules/rule9.txt")
	assert.Contains(t, out, "Modified files (2):")
	assert.Contains(t, out, "(+20 B)")
	assert.Contains(t, out, "(same size)")
	assert.Contains(t, out, "insufficient data (1 scans recorded)")
	assert.NotContains(t, out, "No changes since the last scan")
}

func TestPrettyFormatter_GammaNoChanges(t *testing.T) {
	gamma := sampleGamma()
	gamma.Record.ChangeSet = types.ChangeSet{}
	gamma.Record.Metrics = types.Metrics{TotalFiles: 5}
	gamma.Trend = trend.Report{
		Status:               trend.StatusOK,
		ScansAvailable:       4,
		WindowSize:           4,
		AverageChangeRate:    0.25,
		TotalChangesInWindow: 5,
		Direction:            trend.DirectionDecreasing,
	}

	out := render(t, "pretty", &Result{Gamma: gamma})

	assert.Contains(t, out, "No changes since the last scan")
	assert.Contains(t, out, "Trend (last 4 scans): decreasing")
	assert.Contains(t, out, "Average Rate: 25.0%")
}

func TestPrettyFormatter_Delta(t *testing.T) {
	out := render(t, "pretty", &Result{Command: "delta", Delta: sampleDelta()})

	assert.Contains(t, out, "Delta: Fact/Rule Consistency")
	assert.Contains(t, out, "Pairs: 3")
	assert.Contains(t, out, "Average Similarity: 50.0%")
	assert.Contains(t, out, "Incomplete pairs (1):")
	assert.Contains(t, out, "2: Missing rule2")
	assert.Contains(t, out, "Low similarity pairs (1):")
	assert.Contains(t, out, "3: 20.0% similarity")
	assert.Contains(t, out, "Recommendations")
	assert.Contains(t, out, "Create the missing artifact")
}

func TestPrettyFormatter_Detail(t *testing.T) {
	delta := sampleDelta()
	out := render(t, "pretty", &Result{Delta: delta, Detail: &delta.Pairs[0]})

	assert.Contains(t, out, "Pair 1")
	assert.Contains(t, out, "Similarity Score: 80.0%")
	assert.Contains(t, out, "Word Overlap: 2 words")
	assert.Contains(t, out, "Unique to Fact: 1 words")
	assert.Contains(t, out, "Unique to Rule: 0 words")
	assert.Contains(t, out, "-refund in 30 days")
	assert.Contains(t, out, "+refund customers")
	assert.NotContains(t, out, "Delta: Fact/Rule Consistency")
}

func TestPrettyFormatter_DetailMissingRule(t *testing.T) {
	delta := sampleDelta()
	out := render(t, "pretty", &Result{Delta: delta, Detail: &delta.Pairs[1]})

	assert.Contains(t, out, "Rule: missing")
	assert.Contains(t, out, "Missing rule2")
	assert.NotContains(t, out, "Word Overlap")
}

func TestPrettyFormatter_Validation(t *testing.T) {
	out := render(t, "pretty", &Result{Command: "validate", Validation: sampleValidation()})

	assert.Contains(t, out, "Validation")
	assert.Contains(t, out, "High change rate detected")
	assert.Contains(t, out, "1 incomplete pairs")
	assert.Contains(t, out, "Complete Pairs: 2/3")
	assert.Contains(t, out, "FAILED")
}

func TestPrettyFormatter_Status(t *testing.T) {
	r := &Result{
		Command: "status",
		KBPath:  "kb",
		Status: &StatusInfo{
			Dirs: []DirStatus{
				{Label: "Knowledge base", Path: "kb", Exists: true},
				{Label: "Facts", Path: "kb/facts", Exists: true, Files: 2},
				{Label: "Rules", Path: "kb/rules", Exists: false},
			},
			FactFiles:  2,
			TotalFiles: 2,
		},
		Delta: sampleDelta(),
	}

	out := render(t, "pretty", r)

	assert.Contains(t, out, "Knowledge Base Status")
	assert.Contains(t, out, "✓ Facts: kb/facts")
	assert.Contains(t, out, "✗ Rules: kb/rules")
	assert.Contains(t, out, "Fact Files: 2")
	assert.Contains(t, out, "Gamma: scan skipped")
	assert.Contains(t, out, "2/3 complete pairs")
	assert.NotContains(t, out, "Incomplete pairs (1):")
}

func TestPrettyFormatter_History(t *testing.T) {
	records := []types.ScanRecord{sampleGamma().Record}
	out := render(t, "pretty", &Result{History: records, Trend: &trend.Report{Status: trend.StatusInsufficientData, ScansAvailable: 1}})

	assert.Contains(t, out, "Scan History (1 records)")
	assert.Contains(t, out, "0f8c2d6e")
	assert.Contains(t, out, "80.0%")

	empty := render(t, "pretty", &Result{History: []types.ScanRecord{}})
	assert.Contains(t, empty, "No scans recorded yet")
}

func TestPrettyFormatter_Warnings(t *testing.T) {
	gamma := sampleGamma()
	gamma.Warnings = []string{"Could not save state: read-only file system"}

	out := render(t, "pretty", &Result{Gamma: gamma})
	assert.Contains(t, out, "Warnings:")
	assert.Contains(t, out, "Could not save state: read-only file system")
}

func TestRenderDiffLine(t *testing.T) {
	for _, line := range []string{"--- a", "+++ b", "@@ -1 +1 @@", "+x", "-y", " z"} {
		assert.Contains(t, RenderDiffLine(line), line)
	}
}
