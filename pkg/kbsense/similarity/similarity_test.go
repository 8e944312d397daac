package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "case folded and deduplicated", text: "The sky is blue. THE SKY!", want: []string{"blue", "is", "sky", "the"}},
		{name: "digits and underscores", text: "rule_7 applies to 42 items", want: []string{"42", "applies", "items", "rule_7", "to"}},
		{name: "unicode letters", text: "Café naïve Straße", want: []string{"café", "naïve", "straße"}},
		{name: "punctuation only", text: "--- !!! ...", want: []string{}},
		{name: "empty", text: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "the sky is blue", b: "The sky is BLUE", want: 1},
		{name: "disjoint", a: "alpha beta", b: "gamma delta", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
		{name: "one empty", a: "words here", b: "", want: 0},
		// {the, sky, is, blue} vs {the, sky, was, grey}: 2 shared of 6 total.
		{name: "partial", a: "the sky is blue", b: "the sky was grey", want: 2.0 / 6.0},
		// 4 shared tokens out of a union of 10.
		{name: "four of ten", a: "a b c d e f g", b: "a b c d h i j", want: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Score(tt.a, tt.b), 1e-9)
			assert.InDelta(t, Score(tt.a, tt.b), Score(tt.b, tt.a), 1e-12, "score must be symmetric")
		})
	}
}

func TestScore_SelfSimilarity(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"x", "The quick brown fox", "one\ntwo\nthree"} {
		assert.InDelta(t, 1.0, Score(text, text), 1e-12)
	}
}

func TestCompare_Partition(t *testing.T) {
	t.Parallel()

	c := Compare("the sky is blue", "the sky was grey")

	assert.Equal(t, []string{"sky", "the"}, c.Shared)
	assert.Equal(t, []string{"blue", "is"}, c.OnlyLeft)
	assert.Equal(t, []string{"grey", "was"}, c.OnlyRight)
	assert.InDelta(t, 2.0/6.0, c.Similarity, 1e-9)

	union := len(c.Shared) + len(c.OnlyLeft) + len(c.OnlyRight)
	assert.InDelta(t, float64(len(c.Shared))/float64(union), c.Similarity, 1e-12)
}

func TestCompare_Diff(t *testing.T) {
	t.Parallel()

	a := "line one\nline two\nline three\n"
	b := "line one\nline 2\nline three"

	c := Compare(a, b, WithLabels("facts/fact1.txt", "rules/rule1.txt"))

	want := []string{
		"--- facts/fact1.txt",
		"+++ rules/rule1.txt",
		"@@ -1,3 +1,3 @@",
		" line one",
		"-line two",
		"+line 2",
		" line three",
	}
	assert.Equal(t, want, c.Diff)
	for _, line := range c.Diff {
		assert.False(t, strings.HasSuffix(line, "\n"))
	}
}

func TestCompare_DiffContext(t *testing.T) {
	t.Parallel()

	a := "1\n2\n3\n4\n5\n6\n7"
	b := "1\n2\n3\nfour\n5\n6\n7"

	c := Compare(a, b, WithLabels("a", "b"), WithContext(1))
	require.Len(t, c.Diff, 7)
	assert.Equal(t, "@@ -3,3 +3,3 @@", c.Diff[2])

	// Negative context is ignored.
	c = Compare(a, b, WithLabels("a", "b"), WithContext(-5))
	assert.Equal(t, "@@ -1,7 +1,7 @@", c.Diff[2])
}

func TestCompare_IdenticalHasNoDiff(t *testing.T) {
	t.Parallel()

	c := Compare("same\ntext", "same\ntext\n")
	assert.Empty(t, c.Diff)
	assert.NotNil(t, c.Diff)
	assert.InDelta(t, 1.0, c.Similarity, 1e-12)
}

func TestCompare_CRLF(t *testing.T) {
	t.Parallel()

	c := Compare("a\r\nb", "a\nb")
	assert.Empty(t, c.Diff)
}

func TestCompare_EmptyInputs(t *testing.T) {
	t.Parallel()

	c := Compare("", "")
	assert.Zero(t, c.Similarity)
	assert.Empty(t, c.Shared)
	assert.Empty(t, c.OnlyLeft)
	assert.Empty(t, c.OnlyRight)
	assert.Empty(t, c.Diff)
}
