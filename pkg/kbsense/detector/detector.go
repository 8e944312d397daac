// Package detector runs change detection sessions: it scans the knowledge
// base, diffs the result against the stored baseline, records the scan and
// commits the new baseline.
package detector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jamesainslie/kbsense/pkg/kbsense/changes"
	"github.com/jamesainslie/kbsense/pkg/kbsense/history"
	"github.com/jamesainslie/kbsense/pkg/kbsense/logging"
	"github.com/jamesainslie/kbsense/pkg/kbsense/scanner"
	"github.com/jamesainslie/kbsense/pkg/kbsense/trend"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

var logger = logging.Get("detector")

// Options configures a Detector.
type Options struct {
	// Scanner produces snapshots. Required.
	Scanner *scanner.Scanner

	// Store persists the state. Required.
	Store history.Store

	// Mode selects how modified files are detected.
	Mode changes.Mode

	// MaxRecords caps the history. Zero uses types.DefaultMaxRecords.
	MaxRecords int

	// TrendWindow is the number of records analyzed after each scan.
	// Zero uses trend.DefaultWindow.
	TrendWindow int

	// Now returns the scan timestamp. Nil uses time.Now.
	Now func() time.Time

	// NewID returns scan record ids. Nil uses random UUIDs.
	NewID func() string
}

// Result is the outcome of one scan.
type Result struct {
	// Record is the scan record appended to the history.
	Record types.ScanRecord `json:"record" yaml:"record"`

	// ScanErrors lists files skipped because they could not be read.
	ScanErrors []types.ScanError `json:"scan_errors" yaml:"scan_errors"`

	// Trend summarizes the history including this scan.
	Trend trend.Report `json:"trend_analysis" yaml:"trend_analysis"`

	// Warnings holds non-fatal problems, such as a failed save.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// Saved reports whether the new state was persisted.
	Saved bool `json:"saved" yaml:"saved"`

	// Elapsed is the scan duration.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Detector runs scans against one store. Scans are serialized; the state is
// loaded on first use and kept for the rest of the session, except that
// scans against a history.Updater reload it.
type Detector struct {
	opts Options

	mu    sync.Mutex
	state *types.State
}

// New creates a Detector.
func New(opts Options) (*Detector, error) {
	if opts.Scanner == nil {
		return nil, errors.New("detector requires a scanner")
	}
	if opts.Store == nil {
		return nil, errors.New("detector requires a history store")
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = types.DefaultMaxRecords
	}
	if opts.TrendWindow <= 0 {
		opts.TrendWindow = trend.DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	return &Detector{opts: opts}, nil
}

// Scan fingerprints the knowledge base, records the changes since the
// baseline and commits the new baseline. If saving fails the in-session
// state still advances and the failure is reported in Result.Warnings.
//
// Stores implementing history.Updater are re-read under their lock, so a
// scan always compares against the baseline committed by the latest scan,
// whichever process ran it.
func (d *Detector) Scan(ctx context.Context) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u, ok := d.opts.Store.(history.Updater); ok {
		return d.scanUpdate(ctx, u)
	}

	state, err := d.loadLocked(ctx)
	if err != nil {
		return nil, err
	}

	result, next, err := d.record(ctx, state)
	if err != nil {
		return nil, err
	}
	d.state = next
	d.finish(result, d.opts.Store.Save(ctx, next))
	return result, nil
}

// scanUpdate runs one scan inside the store's update cycle.
// Must be called with d.mu held.
func (d *Detector) scanUpdate(ctx context.Context, u history.Updater) (*Result, error) {
	var (
		result *Result
		next   *types.State
	)
	err := u.Update(ctx, func(state *types.State) (*types.State, error) {
		var err error
		result, next, err = d.record(ctx, state)
		return next, err
	})
	if result == nil {
		if err == nil {
			err = errors.New("history store skipped the scan")
		}
		return nil, fmt.Errorf("updating state: %w", err)
	}

	d.state = next
	d.finish(result, err)
	return result, nil
}

// record scans the knowledge base and commits a new record onto state.
func (d *Detector) record(ctx context.Context, state *types.State) (*Result, *types.State, error) {
	scan, err := d.opts.Scanner.Scan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning knowledge base: %w", err)
	}

	cs := changes.Compute(state.Baseline, scan.Snapshot, d.opts.Mode)
	cs = changes.WithUnreadable(cs, scan.SkippedPaths())

	timestamp := d.opts.Now().UTC()
	record := types.ScanRecord{
		ID:        d.opts.NewID(),
		Timestamp: timestamp,
		ChangeSet: cs,
		Metrics:   changes.Metrics(cs, len(scan.Snapshot)),
	}

	next := state.Commit(scan.Snapshot, record, d.opts.MaxRecords)

	return &Result{
		Record:     record,
		ScanErrors: scan.Errors,
		Trend:      trend.Analyze(next.History, d.opts.TrendWindow),
		Elapsed:    scan.Elapsed,
	}, next, nil
}

// finish records the outcome of saving the state on result.
func (d *Detector) finish(result *Result, saveErr error) {
	if saveErr != nil {
		logger.Warn("could not save state", "error", saveErr)
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not save state: %v", saveErr))
	} else {
		result.Saved = true
	}

	logger.Info("scan recorded",
		"id", result.Record.ID,
		"files", result.Record.Metrics.TotalFiles,
		"changes", result.Record.Metrics.TotalChanges)
}

// History returns the recorded scans, oldest first.
func (d *Detector) History(ctx context.Context) ([]types.ScanRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, err := d.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	return append([]types.ScanRecord{}, state.History...), nil
}

// Baseline returns a copy of the current baseline snapshot.
func (d *Detector) Baseline(ctx context.Context) (types.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, err := d.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	return state.Baseline.Clone(), nil
}

// Trends analyzes the latest window records. A non-positive window uses
// the detector's configured window.
func (d *Detector) Trends(ctx context.Context, window int) (trend.Report, error) {
	records, err := d.History(ctx)
	if err != nil {
		return trend.Report{}, err
	}
	if window <= 0 {
		window = d.opts.TrendWindow
	}
	return trend.Analyze(records, window), nil
}

// loadLocked returns the session state, loading it on first use.
// Must be called with d.mu held.
func (d *Detector) loadLocked(ctx context.Context) (*types.State, error) {
	if d.state != nil {
		return d.state, nil
	}

	state, err := d.opts.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	d.state = state
	return state, nil
}
