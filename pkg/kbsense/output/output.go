// Package output provides formatters for displaying kbsense results in
// various output formats (pretty, plain, json, yaml, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/kbsense/pkg/kbsense/detector"
	"github.com/jamesainslie/kbsense/pkg/kbsense/pairs"
	"github.com/jamesainslie/kbsense/pkg/kbsense/report"
	"github.com/jamesainslie/kbsense/pkg/kbsense/trend"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// ErrUnknownFormatter is returned by Get for names that were never registered.
var ErrUnknownFormatter = errors.New("unknown formatter")

// DirStatus describes one knowledge-base directory.
type DirStatus struct {
	// Label names the directory (e.g., "Knowledge base", "Facts").
	Label string `json:"label" yaml:"label"`

	// Path is the directory path as configured.
	Path string `json:"path" yaml:"path"`

	// Exists reports whether the directory is present.
	Exists bool `json:"exists" yaml:"exists"`

	// Files is the number of tracked files directly inside the directory.
	Files int `json:"files" yaml:"files"`
}

// StatusInfo is the quick overview shown by the status command.
type StatusInfo struct {
	Dirs       []DirStatus `json:"directories" yaml:"directories"`
	FactFiles  int         `json:"fact_files" yaml:"fact_files"`
	RuleFiles  int         `json:"rule_files" yaml:"rule_files"`
	TotalFiles int         `json:"total_files" yaml:"total_files"`

	// RecentChanges is the change count of the latest scan, when one ran.
	RecentChanges int `json:"recent_changes" yaml:"recent_changes"`
}

// Result contains the output data for formatting. Each command fills the
// sections it produces and leaves the rest nil.
type Result struct {
	// Command is the command that produced the result.
	Command string `json:"command" yaml:"command"`

	// KBPath is the knowledge-base root.
	KBPath string `json:"kb_path" yaml:"kb_path"`

	// Gamma is the outcome of a change-detection scan.
	Gamma *detector.Result `json:"gamma_results,omitempty" yaml:"gamma_results,omitempty"`

	// History lists stored scan records, oldest first.
	History []types.ScanRecord `json:"history,omitempty" yaml:"history,omitempty"`

	// Trend summarizes History. Gamma carries its own trend.
	Trend *trend.Report `json:"trend_analysis,omitempty" yaml:"trend_analysis,omitempty"`

	// Delta is the fact/rule pair analysis.
	Delta *pairs.Report `json:"delta_results,omitempty" yaml:"delta_results,omitempty"`

	// Detail is the single pair requested with delta --detail.
	Detail *pairs.Pair `json:"pair_detail,omitempty" yaml:"pair_detail,omitempty"`

	// Validation is the combined assessment. It embeds its own gamma and delta results.
	Validation *report.Assessment `json:"validation,omitempty" yaml:"validation,omitempty"`

	// Status is the knowledge-base overview.
	Status *StatusInfo `json:"status,omitempty" yaml:"status,omitempty"`

	// Warnings contains any warning messages generated by the command.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// AllWarnings returns the result warnings followed by those of the scan.
func (r *Result) AllWarnings() []string {
	warnings := append([]string{}, r.Warnings...)
	if g := r.gamma(); g != nil {
		warnings = append(warnings, g.Warnings...)
	}
	return warnings
}

// gamma returns the scan result, looking inside the validation when needed.
func (r *Result) gamma() *detector.Result {
	if r.Gamma != nil {
		return r.Gamma
	}
	if r.Validation != nil {
		return r.Validation.Gamma
	}
	return nil
}

// delta returns the pair report, looking inside the validation when needed.
func (r *Result) delta() *pairs.Report {
	if r.Delta != nil {
		return r.Delta
	}
	if r.Validation != nil {
		return r.Validation.Delta
	}
	return nil
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error wrapping ErrUnknownFormatter if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormatter, name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
