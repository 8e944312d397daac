// Package history persists the detector state: the baseline snapshot from
// the last scan and the bounded list of scan records. Stores never fail a
// Load because of missing or corrupt data; they log a warning and return an
// empty state so the next scan starts from a fresh baseline.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jamesainslie/kbsense/pkg/kbsense/logging"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// logger is the package-level logger for history stores.
var logger = logging.Get("history")

// ErrStateCorrupt indicates that persisted state could not be decoded.
// Stores log it and degrade to an empty state.
var ErrStateCorrupt = errors.New("state corrupt")

// Store loads and saves the detector state.
type Store interface {
	// Load returns the persisted state, or an empty state when none exists
	// or the persisted data is unreadable.
	Load(ctx context.Context) (*types.State, error)

	// Save replaces the persisted state. History beyond the retention cap
	// is dropped, oldest first.
	Save(ctx context.Context, state *types.State) error

	// Close releases resources held by the store.
	Close() error
}

// Updater is implemented by stores that can hold a lock across a whole
// load, modify and save cycle, so concurrent processes never commit on top
// of a stale baseline.
type Updater interface {
	// Update loads the state, passes it to fn and saves the state fn
	// returns. An error from fn, or a nil state, skips the save.
	Update(ctx context.Context, fn func(*types.State) (*types.State, error)) error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Open returns the store for backend at path. maxRecords caps the history;
// non-positive values use types.DefaultMaxRecords.
func Open(backend, path string, maxRecords int) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewFileStore(path, maxRecords)
	case BackendBadger:
		return OpenBadger(path, maxRecords)
	case BackendMemory:
		return NewMemoryStore(maxRecords), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", backend)
	}
}

// normalize fills nil collections so callers can use the state directly.
func normalize(s *types.State) *types.State {
	if s == nil {
		return types.NewState()
	}
	if s.Baseline == nil {
		s.Baseline = types.Snapshot{}
	}
	if s.History == nil {
		s.History = []types.ScanRecord{}
	}
	return s
}

// prepare returns a copy of state trimmed for persistence.
func prepare(state *types.State, maxRecords int) *types.State {
	state = normalize(state)
	return &types.State{
		Baseline: state.Baseline,
		History:  types.TrimHistory(state.History, maxRecords),
	}
}

// decodeState parses a JSON state document.
func decodeState(data []byte) (*types.State, error) {
	var state types.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateCorrupt, err)
	}
	return normalize(&state), nil
}

// degrade logs a corrupt-state warning and returns an empty state.
func degrade(where string, err error) *types.State {
	logger.Warn("discarding unreadable state", "location", where, "error", err)
	return types.NewState()
}
