package history

import (
	"context"
	"sync"

	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// MemoryStore keeps the state in memory. It is used for dry runs and tests.
type MemoryStore struct {
	mu         sync.Mutex
	state      *types.State
	maxRecords int
	saves      int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(maxRecords int) *MemoryStore {
	return &MemoryStore{state: types.NewState(), maxRecords: maxRecords}
}

// Load implements Store. The returned state is a copy.
func (s *MemoryStore) Load(ctx context.Context) (*types.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state), nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, state *types.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = copyState(prepare(state, s.maxRecords))
	s.saves++
	return nil
}

// Saves returns the number of successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

func copyState(s *types.State) *types.State {
	return &types.State{
		Baseline: s.Baseline.Clone(),
		History:  append([]types.ScanRecord{}, s.History...),
	}
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
