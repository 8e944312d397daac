package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
)

// Keys holding the two halves of the state document.
const (
	keyBaseline = "state:baseline_states"
	keyHistory  = "state:change_history"
)

// BadgerStore keeps the state in a Badger database. The baseline and the
// history are stored under separate keys and always written in one
// transaction.
type BadgerStore struct {
	db         *badger.DB
	path       string
	maxRecords int
}

// OpenBadger opens or creates a Badger-backed store in the directory at path.
func OpenBadger(path string, maxRecords int) (*BadgerStore, error) {
	if path == "" {
		return nil, errors.New("state path cannot be empty")
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger's own logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	return &BadgerStore{db: db, path: path, maxRecords: maxRecords}, nil
}

// Load implements Store.
func (s *BadgerStore) Load(ctx context.Context) (*types.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := types.NewState()
	err := s.db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, keyBaseline, &state.Baseline); err != nil {
			return err
		}
		return getJSON(txn, keyHistory, &state.History)
	})
	if err != nil {
		if errors.Is(err, ErrStateCorrupt) {
			return degrade(s.path, err), nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	return normalize(state), nil
}

// getJSON decodes the value at key into v. A missing key leaves v unchanged.
func getJSON(txn *badger.Txn, key string, v interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrStateCorrupt, key, err)
		}
		return nil
	})
}

// Save implements Store.
func (s *BadgerStore) Save(ctx context.Context, state *types.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state = prepare(state, s.maxRecords)

	baseline, err := json.Marshal(state.Baseline)
	if err != nil {
		return fmt.Errorf("encoding baseline: %w", err)
	}
	history, err := json.Marshal(state.History)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyBaseline), baseline); err != nil {
			return err
		}
		return txn.Set([]byte(keyHistory), history)
	})
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Ensure BadgerStore implements Store.
var _ Store = (*BadgerStore)(nil)
