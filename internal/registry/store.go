// store.go - Pluggable durable storage behind the registry.
//
// Save persists the new state snapshot and appends the transition record in
// one step, so a crash cannot leave a state without its log entry.

package registry

import "sync"

// Store is the durable backing of a registry instance.
type Store interface {
	// Load returns the persisted state, with ok=false when the store holds
	// none (a registry that was never initialized).
	Load() (state *State, ok bool, err error)
	// Save persists state and appends t to the transition log atomically.
	Save(state *State, t Transition) error
	// Transitions returns the append-only transition log, oldest first.
	Transitions() ([]Transition, error)
	// Close releases any underlying resources.
	Close() error
}

// MemoryStore keeps state and transitions in memory. It satisfies Store for
// tests and for ephemeral demo runs.
type MemoryStore struct {
	mu          sync.Mutex
	state       *State
	transitions []Transition
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, false, nil
	}
	return m.state.clone(), true, nil
}

func (m *MemoryStore) Save(state *State, t Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.clone()
	m.transitions = append(m.transitions, t)
	return nil
}

func (m *MemoryStore) Transitions() ([]Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transition(nil), m.transitions...), nil
}

func (m *MemoryStore) Close() error {
	return nil
}
