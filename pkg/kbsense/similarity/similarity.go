// Package similarity scores how closely two texts agree by vocabulary and
// renders a unified line diff between them. It is a lexical measure:
// synonyms and word order are not considered.
package similarity

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of unchanged lines shown around each diff hunk.
const DefaultContext = 3

// wordPattern matches runs of letters, digits and underscores in any script.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Comparison is the result of comparing two texts.
type Comparison struct {
	// Similarity is the Jaccard index of the two token sets, in [0, 1].
	Similarity float64 `json:"similarity_score" yaml:"similarity_score"`

	// Shared, OnlyLeft and OnlyRight partition the token union. Sorted.
	Shared    []string `json:"word_overlap" yaml:"word_overlap"`
	OnlyLeft  []string `json:"unique_to_first" yaml:"unique_to_first"`
	OnlyRight []string `json:"unique_to_second" yaml:"unique_to_second"`

	// Diff holds unified diff lines without terminators. Empty when the
	// texts are line-for-line identical.
	Diff []string `json:"line_differences" yaml:"line_differences"`
}

// Options configures Compare.
type Options struct {
	LeftLabel  string
	RightLabel string
	Context    int
}

// Option mutates Options.
type Option func(*Options)

// WithLabels sets the file labels shown in the diff header.
func WithLabels(left, right string) Option {
	return func(o *Options) {
		o.LeftLabel = left
		o.RightLabel = right
	}
}

// WithContext sets the number of context lines in the diff.
// Negative values are ignored.
func WithContext(lines int) Option {
	return func(o *Options) {
		if lines >= 0 {
			o.Context = lines
		}
	}
}

// Tokenize returns the distinct case-folded words of text, sorted.
func Tokenize(text string) []string {
	set := tokenSet(text)
	return sortedKeys(set)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		set[w] = struct{}{}
	}
	return set
}

// Score returns the Jaccard index of the token sets of a and b.
// Two texts without any tokens score 0.
func Score(a, b string) float64 {
	return jaccard(tokenSet(a), tokenSet(b))
}

func jaccard(a, b map[string]struct{}) float64 {
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// Compare scores a against b and computes their token partition and line diff.
func Compare(a, b string, opts ...Option) *Comparison {
	o := Options{Context: DefaultContext}
	for _, opt := range opts {
		opt(&o)
	}

	left, right := tokenSet(a), tokenSet(b)

	c := &Comparison{
		Similarity: jaccard(left, right),
		Shared:     []string{},
		OnlyLeft:   []string{},
		OnlyRight:  []string{},
	}
	for _, w := range sortedKeys(left) {
		if _, ok := right[w]; ok {
			c.Shared = append(c.Shared, w)
		} else {
			c.OnlyLeft = append(c.OnlyLeft, w)
		}
	}
	for _, w := range sortedKeys(right) {
		if _, ok := left[w]; !ok {
			c.OnlyRight = append(c.OnlyRight, w)
		}
	}

	c.Diff = UnifiedDiff(a, b, o)
	return c
}

// UnifiedDiff returns the unified diff lines from a to b.
func UnifiedDiff(a, b string, o Options) []string {
	diff := difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: o.LeftLabel,
		ToFile:   o.RightLabel,
		Context:  o.Context,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil || text == "" {
		return []string{}
	}

	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// splitLines splits text into newline-terminated lines as difflib expects.
// A trailing newline does not produce an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] += "\n"
	}
	return lines
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
