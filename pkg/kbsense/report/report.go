// Package report combines change detection and pair analysis into a single
// validation assessment and writes reports to disk.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jamesainslie/kbsense/pkg/kbsense/detector"
	"github.com/jamesainslie/kbsense/pkg/kbsense/history"
	"github.com/jamesainslie/kbsense/pkg/kbsense/pairs"
)

// Status is the overall outcome of an assessment.
type Status string

// Assessment outcomes.
const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// Issue messages raised by Assess.
const (
	IssueHighChangeRate        = "High change rate detected"
	IssueLowAverageSimilarity  = "Low average content similarity"
	issueIncompletePairsFormat = "%d incomplete pairs"
)

// Thresholds are the limits an assessment checks against.
type Thresholds struct {
	// MaxChangeRate is the highest change rate that passes.
	MaxChangeRate float64 `json:"max_change_rate" yaml:"max_change_rate"`

	// MinAverageSimilarity is the lowest average pair similarity that passes.
	MinAverageSimilarity float64 `json:"min_average_similarity" yaml:"min_average_similarity"`
}

// DefaultThresholds returns the standard validation limits.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxChangeRate: 0.2, MinAverageSimilarity: 0.5}
}

// Assessment is the combined validation report.
type Assessment struct {
	Timestamp  time.Time        `json:"validation_timestamp" yaml:"validation_timestamp"`
	Status     Status           `json:"status" yaml:"status"`
	Issues     []string         `json:"issues" yaml:"issues"`
	Thresholds Thresholds       `json:"thresholds" yaml:"thresholds"`
	Gamma      *detector.Result `json:"gamma_results" yaml:"gamma_results"`
	Delta      *pairs.Report    `json:"delta_results" yaml:"delta_results"`
}

// Passed reports whether no issues were found.
func (a *Assessment) Passed() bool {
	return a.Status == StatusPassed
}

// Assess checks one gamma result and one delta report against th.
// The average-similarity check applies only when at least one pair was scored.
func Assess(gamma *detector.Result, delta *pairs.Report, th Thresholds, now time.Time) *Assessment {
	a := &Assessment{
		Timestamp:  now.UTC(),
		Issues:     []string{},
		Thresholds: th,
		Gamma:      gamma,
		Delta:      delta,
	}

	if gamma != nil && gamma.Record.Metrics.ChangeRate > th.MaxChangeRate {
		a.Issues = append(a.Issues, IssueHighChangeRate)
	}

	if delta != nil {
		if n := delta.Summary.IncompletePairs; n > 0 {
			a.Issues = append(a.Issues, fmt.Sprintf(issueIncompletePairsFormat, n))
		}
		if scored(delta) && delta.Summary.AverageSimilarity < th.MinAverageSimilarity {
			a.Issues = append(a.Issues, IssueLowAverageSimilarity)
		}
	}

	a.Status = StatusPassed
	if len(a.Issues) > 0 {
		a.Status = StatusFailed
	}
	return a
}

func scored(delta *pairs.Report) bool {
	for i := range delta.Pairs {
		if delta.Pairs[i].Scored() {
			return true
		}
	}
	return false
}

// Save writes v as indented JSON to path, creating parent directories.
// The file is replaced atomically.
func Save(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')

	if err := history.WriteAtomic(path, data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
