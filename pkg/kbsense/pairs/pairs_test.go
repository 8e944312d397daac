package pairs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/kbsense/pkg/kbsense/kb"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestKB creates facts/ and rules/ under a temp root with the given files.
func createTestKB(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "facts"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "rules"), 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(name)), []byte(content), 0o644))
	}
	return root
}

func resolve(t *testing.T, root string, opts ...Option) *Report {
	t.Helper()

	r, err := New(root, kb.Facts(), kb.Rules(), opts...)
	require.NoError(t, err)

	report, err := r.Resolve(context.Background())
	require.NoError(t, err)
	return report
}

// failingReader fails to read any file whose base name is in fail.
type failingReader struct {
	kb.OSReader
	fail map[string]bool
}

func (r failingReader) ReadFile(path string) ([]byte, error) {
	if r.fail[filepath.Base(path)] {
		return nil, errors.New("permission denied")
	}
	return r.OSReader.ReadFile(path)
}

func TestResolve_MixedPairs(t *testing.T) {
	t.Parallel()

	root := createTestKB(t, map[string]string{
		"facts/fact1.txt": "the sky is blue",
		"rules/rule1.txt": "the sky is blue",
		"facts/fact2.txt": "water is wet",
		"facts/fact3.txt": "the sky is blue",
		"rules/rule3.txt": "the sky was grey",
		"rules/rule4.txt": "orphan rule",
	})

	report := resolve(t, root)

	require.Len(t, report.Pairs, 4)
	ids := []int{report.Pairs[0].ID, report.Pairs[1].ID, report.Pairs[2].ID, report.Pairs[3].ID}
	assert.Equal(t, []int{1, 2, 3, 4}, ids)

	p1, ok := report.Pair(1)
	require.True(t, ok)
	assert.True(t, p1.Complete())
	assert.InDelta(t, 1.0, p1.Similarity, 1e-9)
	assert.Empty(t, p1.Issues)
	assert.Equal(t, "facts/fact1.txt", p1.FactPath)
	assert.Equal(t, "rules/rule1.txt", p1.RulePath)
	require.NotNil(t, p1.Comparison)
	assert.Empty(t, p1.Comparison.Diff)

	p2, _ := report.Pair(2)
	assert.True(t, p2.FactExists)
	assert.False(t, p2.RuleExists)
	assert.Equal(t, []string{"Missing rule2"}, p2.Issues)
	assert.Nil(t, p2.Comparison)
	assert.Zero(t, p2.Similarity)

	p3, _ := report.Pair(3)
	assert.InDelta(t, 2.0/6.0, p3.Similarity, 1e-9)
	assert.Equal(t, []string{IssueLowSimilarity}, p3.Issues)
	require.NotNil(t, p3.Comparison)
	assert.Equal(t, "--- facts/fact3.txt", p3.Comparison.Diff[0])

	p4, _ := report.Pair(4)
	assert.Equal(t, []string{"Missing fact4"}, p4.Issues)

	_, ok = report.Pair(5)
	assert.False(t, ok)

	assert.Equal(t, 4, report.Summary.TotalPairs)
	assert.Equal(t, 2, report.Summary.CompletePairs)
	assert.Equal(t, 2, report.Summary.IncompletePairs)
	assert.Equal(t, 1, report.Summary.LowSimilarityPairs, "incomplete pairs are not counted as low similarity")
	assert.InDelta(t, (1.0+2.0/6.0)/2, report.Summary.AverageSimilarity, 1e-9)
	assert.Equal(t, []string{
		"Create missing files for 2 incomplete pairs",
		"Review 1 pairs with low content similarity",
	}, report.Recommendations)

	assert.Len(t, report.Incomplete(), 2)
	assert.Len(t, report.LowSimilarity(), 1)
}

func TestResolve_SingleCompletePair(t *testing.T) {
	t.Parallel()

	root := createTestKB(t, map[string]string{
		"facts/fact1.txt": "The sky is blue",
		"rules/rule1.txt": "the SKY is blue\n\n",
	})

	report := resolve(t, root)

	assert.Equal(t, 1, report.Summary.TotalPairs)
	assert.Equal(t, 1, report.Summary.CompletePairs)
	assert.InDelta(t, 1.0, report.Summary.AverageSimilarity, 1e-9)
	assert.Empty(t, report.Recommendations)
	assert.NotNil(t, report.Recommendations)
}

func TestResolve_EmptyNamespaces(t *testing.T) {
	t.Parallel()

	report := resolve(t, createTestKB(t, nil))
	assert.Empty(t, report.Pairs)
	assert.Zero(t, report.Summary.AverageSimilarity)
	assert.Empty(t, report.Recommendations)
}

func TestResolve_IgnoresNonConformingNames(t *testing.T) {
	t.Parallel()

	root := createTestKB(t, map[string]string{
		"facts/fact1.txt":     "a",
		"facts/fact.txt":      "no id",
		"facts/factA.txt":     "letters",
		"facts/fact2.md":      "wrong extension",
		"facts/myfact3.txt":   "prefix is anchored",
		"rules/rule1.txt":     "a",
		"rules/rule1.txt.bak": "backup",
	})

	report := resolve(t, root)
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, 1, report.Pairs[0].ID)
}

func TestResolve_DuplicateIDKeepsFirst(t *testing.T) {
	t.Parallel()

	root := createTestKB(t, map[string]string{
		"facts/fact01.txt": "leading zero",
		"facts/fact1.txt":  "plain",
		"rules/rule1.txt":  "leading zero",
	})

	report := resolve(t, root)
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, "facts/fact01.txt", report.Pairs[0].FactPath)
	assert.InDelta(t, 1.0, report.Pairs[0].Similarity, 1e-9)
}

func TestResolve_Threshold(t *testing.T) {
	t.Parallel()

	root := createTestKB(t, map[string]string{
		"facts/fact1.txt": "the sky is blue",
		"rules/rule1.txt": "the sky was grey",
	})

	strict := resolve(t, root, WithThreshold(0.3))
	assert.Empty(t, strict.Pairs[0].Issues)
	assert.Zero(t, strict.Summary.LowSimilarityPairs)
	assert.InDelta(t, 0.3, strict.Threshold, 1e-9)

	// Out-of-range thresholds keep the default.
	ignored := resolve(t, root, WithThreshold(2))
	assert.InDelta(t, DefaultThreshold, ignored.Threshold, 1e-9)
	assert.Equal(t, []string{IssueLowSimilarity}, ignored.Pairs[0].Issues)
}

func TestResolve_ReadErrorBecomesIssue(t *testing.T) {
	t.Parallel()

	root := createTestKB(t, map[string]string{
		"facts/fact1.txt": "readable",
		"rules/rule1.txt": "locked",
		"facts/fact2.txt": "fine",
		"rules/rule2.txt": "fine",
	})

	report := resolve(t, root, WithReader(failingReader{fail: map[string]bool{"rule1.txt": true}}))

	p1, _ := report.Pair(1)
	require.Len(t, p1.Issues, 1)
	assert.Equal(t, "Error reading files: permission denied", p1.Issues[0])
	assert.Nil(t, p1.Comparison)
	assert.True(t, p1.Complete())

	// The unreadable pair is complete but excluded from the average.
	assert.Equal(t, 2, report.Summary.CompletePairs)
	assert.InDelta(t, 1.0, report.Summary.AverageSimilarity, 1e-9)
	assert.Zero(t, report.Summary.LowSimilarityPairs)
}

func TestResolve_MissingNamespace(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "facts"), 0o755))

	r, err := New(root, kb.Facts(), kb.Rules())
	require.NoError(t, err)

	_, err = r.Resolve(context.Background())
	assert.ErrorIs(t, err, types.ErrNamespaceNotFound)
}

func TestResolve_CustomNamespaces(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	facts := kb.Namespace{Name: "claim", Dir: "claims", Prefix: "claim-", Ext: ".md"}
	rules := kb.Namespace{Name: "policy", Dir: "policies", Prefix: "policy-", Ext: ".md"}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "claims"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "policies"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "claims", "claim-7.md"), []byte("x"), 0o644))

	r, err := New(root, facts, rules)
	require.NoError(t, err)

	report, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, []string{"Missing policy-7"}, report.Pairs[0].Issues)
}

func TestNew_InvalidNamespace(t *testing.T) {
	t.Parallel()

	_, err := New(".", kb.Namespace{Dir: "facts"}, kb.Rules())
	assert.Error(t, err)
}

func TestResolve_CancelledContext(t *testing.T) {
	t.Parallel()

	root := createTestKB(t, map[string]string{"facts/fact1.txt": "a"})
	r, err := New(root, kb.Facts(), kb.Rules())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Resolve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
