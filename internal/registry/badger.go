// badger.go - BadgerDB-backed registry store.
//
// Layout: a single JSON state snapshot under "registry/state" and one JSON
// transition record per rotation under "registry/log/<seq>", with a
// zero-padded decimal sequence so iteration order is append order. State and
// log entry are written in one Badger transaction.

package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

const (
	stateKey  = "registry/state"
	logPrefix = "registry/log/"
)

// BadgerStore is a Store persisted in a BadgerDB database. Save calls are
// not internally serialized; the owning Registry is the single writer.
type BadgerStore struct {
	db     *badger.DB
	seq    uint64
	closed atomic.Bool
}

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("registry: store is closed")

// OpenBadger opens (or creates) a BadgerDB-backed store at path. An empty
// path opens an in-memory database, useful for tests.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("registry: opening badger at %q: %w", path, err)
	}
	s := &BadgerStore{db: db}
	if err := s.recoverSeq(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// recoverSeq counts existing log entries so appends continue the sequence
// after a reopen.
func (s *BadgerStore) recoverSeq() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(logPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		var n uint64
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			n++
		}
		s.seq = n
		return nil
	})
}

func (s *BadgerStore) Load() (*State, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	var state State
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stateKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("registry: badger load: %w", err)
	}
	return &state, true, nil
}

func (s *BadgerStore) Save(state *State, t Transition) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("registry: encoding state: %w", err)
	}
	logBytes, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("registry: encoding transition: %w", err)
	}
	logKey := fmt.Sprintf("%s%020d", logPrefix, s.seq)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(stateKey), stateBytes); err != nil {
			return err
		}
		return txn.Set([]byte(logKey), logBytes)
	})
	if err != nil {
		return fmt.Errorf("registry: badger save: %w", err)
	}
	s.seq++
	return nil
}

func (s *BadgerStore) Transitions() ([]Transition, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	var out []Transition
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(logPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var t Transition
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("registry: badger transitions: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
