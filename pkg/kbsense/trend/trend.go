// Package trend summarizes the change rate over the most recent scans.
package trend

import (
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// DefaultWindow is the number of recent records analyzed.
const DefaultWindow = 10

// Status values of a Report.
const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
)

// Direction classifies how the change rate moves across the window.
type Direction string

// Direction values.
const (
	DirectionUnknown    Direction = "unknown"
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// recentSamples is the number of trailing samples compared against the earlier ones.
const recentSamples = 3

// Report summarizes the change rate of the latest scans.
type Report struct {
	Status         string `json:"status" yaml:"status"`
	ScansAvailable int    `json:"scans_available" yaml:"scans_available"`

	// The fields below are set only when Status is StatusOK.
	WindowSize           int       `json:"window_size,omitempty" yaml:"window_size,omitempty"`
	AverageChangeRate    float64   `json:"average_change_rate" yaml:"average_change_rate"`
	MaxChangeRate        float64   `json:"max_change_rate" yaml:"max_change_rate"`
	MinChangeRate        float64   `json:"min_change_rate" yaml:"min_change_rate"`
	TotalChangesInWindow int       `json:"total_changes_in_window" yaml:"total_changes_in_window"`
	Direction            Direction `json:"trend_direction,omitempty" yaml:"trend_direction,omitempty"`
}

// Sufficient reports whether the history held enough records to analyze.
func (r Report) Sufficient() bool {
	return r.Status == StatusOK
}

// Analyze summarizes the last window records of history, which must be in
// chronological order. A non-positive window uses DefaultWindow. Fewer than
// two records yield StatusInsufficientData.
func Analyze(history []types.ScanRecord, window int) Report {
	if window <= 0 {
		window = DefaultWindow
	}

	n := len(history)
	if n < 2 {
		return Report{Status: StatusInsufficientData, ScansAvailable: n}
	}

	recent := history
	if n > window {
		recent = history[n-window:]
	}

	rates := make([]float64, len(recent))
	report := Report{
		Status:         StatusOK,
		ScansAvailable: n,
		WindowSize:     len(recent),
		MaxChangeRate:  recent[0].Metrics.ChangeRate,
		MinChangeRate:  recent[0].Metrics.ChangeRate,
	}

	var sum float64
	for i, rec := range recent {
		rate := rec.Metrics.ChangeRate
		rates[i] = rate
		sum += rate
		if rate > report.MaxChangeRate {
			report.MaxChangeRate = rate
		}
		if rate < report.MinChangeRate {
			report.MinChangeRate = rate
		}
		report.TotalChangesInWindow += rec.Metrics.TotalChanges
	}
	report.AverageChangeRate = sum / float64(len(recent))
	report.Direction = direction(rates)

	return report
}

// direction compares the mean of the last three samples with the mean of
// the earlier ones. With exactly three samples the first stands in for the
// earlier mean.
func direction(values []float64) Direction {
	if len(values) < recentSamples {
		return DirectionUnknown
	}

	recent := mean(values[len(values)-recentSamples:])
	earlier := values[0]
	if len(values) > recentSamples {
		earlier = mean(values[:len(values)-recentSamples])
	}

	switch {
	case recent > earlier*1.1:
		return DirectionIncreasing
	case recent < earlier*0.9:
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
