// Package pairs matches fact and rule artifacts by numeric id and checks
// each pair for completeness and content similarity.
package pairs

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jamesainslie/kbsense/pkg/kbsense/kb"
	"github.com/jamesainslie/kbsense/pkg/kbsense/logging"
	"github.com/jamesainslie/kbsense/pkg/kbsense/similarity"
)

// logger is the package-level logger for pair analysis.
var logger = logging.Get("pairs")

// DefaultThreshold is the similarity below which a complete pair is flagged.
const DefaultThreshold = 0.5

// IssueLowSimilarity is the issue recorded for a pair scoring below the threshold.
const IssueLowSimilarity = "Low content similarity between fact and rule"

// Pair is the analysis of one id. It is derived on every run and never persisted.
type Pair struct {
	ID         int      `json:"fact_id" yaml:"fact_id"`
	FactExists bool     `json:"fact_exists" yaml:"fact_exists"`
	RuleExists bool     `json:"rule_exists" yaml:"rule_exists"`
	FactPath   string   `json:"fact_path,omitempty" yaml:"fact_path,omitempty"`
	RulePath   string   `json:"rule_path,omitempty" yaml:"rule_path,omitempty"`
	Similarity float64  `json:"consistency_score" yaml:"consistency_score"`
	Issues     []string `json:"issues" yaml:"issues"`

	// Comparison is set only when both artifacts exist and were read.
	Comparison *similarity.Comparison `json:"content_analysis,omitempty" yaml:"content_analysis,omitempty"`
}

// Complete reports whether both artifacts of the pair exist.
func (p *Pair) Complete() bool {
	return p.FactExists && p.RuleExists
}

// Scored reports whether a similarity score was computed for the pair.
func (p *Pair) Scored() bool {
	return p.Comparison != nil
}

// Summary aggregates the pair list.
type Summary struct {
	TotalPairs         int     `json:"total_pairs_found" yaml:"total_pairs_found"`
	CompletePairs      int     `json:"complete_pairs" yaml:"complete_pairs"`
	IncompletePairs    int     `json:"incomplete_pairs" yaml:"incomplete_pairs"`
	AverageSimilarity  float64 `json:"average_similarity" yaml:"average_similarity"`
	LowSimilarityPairs int     `json:"low_similarity_pairs" yaml:"low_similarity_pairs"`
}

// Report is the result of one resolution run.
type Report struct {
	Pairs           []Pair   `json:"pair_analyses" yaml:"pair_analyses"`
	Summary         Summary  `json:"summary" yaml:"summary"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
	Threshold       float64  `json:"similarity_threshold" yaml:"similarity_threshold"`
}

// Pair returns the analysis for id.
func (r *Report) Pair(id int) (*Pair, bool) {
	i := sort.Search(len(r.Pairs), func(i int) bool { return r.Pairs[i].ID >= id })
	if i < len(r.Pairs) && r.Pairs[i].ID == id {
		return &r.Pairs[i], true
	}
	return nil, false
}

// Incomplete returns the pairs missing one side.
func (r *Report) Incomplete() []Pair {
	var out []Pair
	for _, p := range r.Pairs {
		if !p.Complete() {
			out = append(out, p)
		}
	}
	return out
}

// LowSimilarity returns the scored pairs below the report threshold.
func (r *Report) LowSimilarity() []Pair {
	var out []Pair
	for _, p := range r.Pairs {
		if p.Scored() && p.Similarity < r.Threshold {
			out = append(out, p)
		}
	}
	return out
}

// Resolver enumerates fact and rule artifacts and analyzes each pair.
type Resolver struct {
	root        string
	facts       kb.Namespace
	rules       kb.Namespace
	threshold   float64
	diffContext int
	lister      kb.Lister
	reader      kb.Reader
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThreshold sets the similarity threshold. Values outside [0, 1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(r *Resolver) {
		if threshold >= 0 && threshold <= 1 {
			r.threshold = threshold
		}
	}
}

// WithDiffContext sets the number of context lines in pair diffs.
func WithDiffContext(lines int) Option {
	return func(r *Resolver) {
		if lines >= 0 {
			r.diffContext = lines
		}
	}
}

// WithLister replaces the directory lister.
func WithLister(l kb.Lister) Option {
	return func(r *Resolver) { r.lister = l }
}

// WithReader replaces the file reader.
func WithReader(rd kb.Reader) Option {
	return func(r *Resolver) { r.reader = rd }
}

// New creates a Resolver for the namespaces under root.
func New(root string, facts, rules kb.Namespace, opts ...Option) (*Resolver, error) {
	if err := facts.Validate(); err != nil {
		return nil, fmt.Errorf("fact namespace: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("rule namespace: %w", err)
	}

	r := &Resolver{
		root:        root,
		facts:       facts,
		rules:       rules,
		threshold:   DefaultThreshold,
		diffContext: similarity.DefaultContext,
		lister:      kb.WalkLister{},
		reader:      kb.OSReader{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Threshold returns the similarity threshold in use.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve analyzes every id found in either namespace, in ascending order.
// A missing namespace directory returns an error wrapping
// types.ErrNamespaceNotFound. Unreadable artifacts are reported as pair
// issues, not errors.
func (r *Resolver) Resolve(ctx context.Context) (*Report, error) {
	facts, err := r.enumerate(ctx, r.facts)
	if err != nil {
		return nil, err
	}
	rules, err := r.enumerate(ctx, r.rules)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(facts)+len(rules))
	for id := range facts {
		ids = append(ids, id)
	}
	for id := range rules {
		if _, ok := facts[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	report := &Report{
		Pairs:           make([]Pair, 0, len(ids)),
		Recommendations: []string{},
		Threshold:       r.threshold,
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		factPath, hasFact := facts[id]
		rulePath, hasRule := rules[id]
		report.Pairs = append(report.Pairs, r.analyze(id, factPath, hasFact, rulePath, hasRule))
	}

	report.Summary, report.Recommendations = summarize(report.Pairs, r.threshold)
	return report, nil
}

// enumerate maps ids to paths for the artifacts of ns. When two files carry
// the same id (fact1 and fact01) the lexicographically first path wins.
func (r *Resolver) enumerate(ctx context.Context, ns kb.Namespace) (map[int]string, error) {
	match := ns.Matcher()
	paths, err := r.lister.List(ctx, ns.Root(r.root), func(name string) bool {
		_, ok := match(name)
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", ns.Dir, err)
	}

	ids := make(map[int]string, len(paths))
	for _, path := range paths {
		id, ok := match(filepath.Base(path))
		if !ok {
			continue
		}
		if prev, dup := ids[id]; dup {
			logger.Warn("duplicate artifact id, keeping first", "id", id, "kept", prev, "ignored", path)
			continue
		}
		ids[id] = path
	}
	return ids, nil
}

// analyze builds the pair for id.
func (r *Resolver) analyze(id int, factPath string, hasFact bool, rulePath string, hasRule bool) Pair {
	p := Pair{
		ID:         id,
		FactExists: hasFact,
		RuleExists: hasRule,
		Issues:     []string{},
	}
	if hasFact {
		p.FactPath = r.rel(factPath)
	}
	if hasRule {
		p.RulePath = r.rel(rulePath)
	}

	if !hasFact {
		p.Issues = append(p.Issues, "Missing "+r.facts.Label(id))
	}
	if !hasRule {
		p.Issues = append(p.Issues, "Missing "+r.rules.Label(id))
	}
	if !p.Complete() {
		return p
	}

	fact, err := r.read(factPath)
	if err == nil {
		var rule string
		rule, err = r.read(rulePath)
		if err == nil {
			p.Comparison = similarity.Compare(fact, rule,
				similarity.WithLabels(p.FactPath, p.RulePath),
				similarity.WithContext(r.diffContext))
			p.Similarity = p.Comparison.Similarity
			if p.Similarity < r.threshold {
				p.Issues = append(p.Issues, IssueLowSimilarity)
			}
			return p
		}
	}

	logger.Warn("could not read pair", "id", id, "error", err)
	p.Issues = append(p.Issues, fmt.Sprintf("Error reading files: %v", err))
	return p
}

// read returns the artifact content with surrounding whitespace removed.
func (r *Resolver) read(path string) (string, error) {
	data, err := r.reader.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// rel returns path relative to the root with forward slashes.
func (r *Resolver) rel(path string) string {
	root, err := filepath.Abs(r.root)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// summarize derives the summary and recommendations from the pair list.
func summarize(pairs []Pair, threshold float64) (Summary, []string) {
	s := Summary{TotalPairs: len(pairs)}

	var total float64
	scored := 0
	for i := range pairs {
		p := &pairs[i]
		if p.Complete() {
			s.CompletePairs++
		}
		// Only scored pairs count toward the average and the low-similarity
		// total. Incomplete pairs are counted once, as incomplete, rather
		// than also as a zero score.
		if p.Scored() {
			scored++
			total += p.Similarity
			if p.Similarity < threshold {
				s.LowSimilarityPairs++
			}
		}
	}
	s.IncompletePairs = s.TotalPairs - s.CompletePairs
	if scored > 0 {
		s.AverageSimilarity = total / float64(scored)
	}

	recommendations := []string{}
	if s.IncompletePairs > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Create missing files for %d incomplete pairs", s.IncompletePairs))
	}
	if s.LowSimilarityPairs > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Review %d pairs with low content similarity", s.LowSimilarityPairs))
	}

	return s, recommendations
}
