// registry.go - The group-root registry state machine.
//
// The registry is the single source of truth for which membership snapshots
// are currently and historically valid, under exclusive admin control.
// History is append-only: once a root is accepted it stays accepted, so
// actions derived against a slightly stale root still validate after a
// rotation races ahead of them.

package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"anonsignal/internal/field"
)

var (
	// ErrInvalidRoot rejects the zero root at initialization or rotation.
	ErrInvalidRoot = errors.New("registry: zero root is not a valid snapshot")
	// ErrNoOpRoot rejects a rotation to the unchanged current root.
	ErrNoOpRoot = errors.New("registry: new root equals current root")
	// ErrUnauthorized rejects mutations from anyone but the admin.
	ErrUnauthorized = errors.New("registry: caller is not the admin")
	// ErrAlreadyInitialized rejects a second initialization.
	ErrAlreadyInitialized = errors.New("registry: already initialized")
	// ErrNotInitialized rejects rotation before initialization.
	ErrNotInitialized = errors.New("registry: not initialized")
)

// Identity is the attested caller identity of a registry operation,
// conventionally a hex-encoded account address.
type Identity string

// Transition is one append-only log record of a root change.
type Transition struct {
	PreviousRoot field.Element `json:"previous_root"`
	NewRoot      field.Element `json:"new_root"`
	UpdatedBy    Identity      `json:"updated_by"`
	At           time.Time     `json:"at"`
}

// State is the persisted registry layout: the admin, the current root and
// the set of every root ever accepted.
type State struct {
	Admin         Identity        `json:"admin"`
	CurrentRoot   field.Element   `json:"current_root"`
	AcceptedRoots []field.Element `json:"accepted_roots"`
}

func (s *State) clone() *State {
	cp := &State{Admin: s.Admin, CurrentRoot: s.CurrentRoot}
	cp.AcceptedRoots = append([]field.Element(nil), s.AcceptedRoots...)
	return cp
}

// Registry is the root-registry state machine. Mutations are serialized by
// an internal mutex; reads take a shared lock.
type Registry struct {
	mu    sync.RWMutex
	store Store
	state *State
	init  bool
	// accepted mirrors state.AcceptedRoots for O(1) membership checks.
	accepted map[field.Element]struct{}
}

// New creates a registry backed by store, reloading persisted state if the
// store holds any.
func New(store Store) (*Registry, error) {
	r := &Registry{
		store:    store,
		state:    &State{},
		accepted: make(map[field.Element]struct{}),
	}
	state, ok, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("registry: loading state: %w", err)
	}
	if ok {
		r.state = state
		r.init = true
		for _, root := range state.AcceptedRoots {
			r.accepted[root] = struct{}{}
		}
	}
	return r, nil
}

// Initialize accepts the first root and binds the admin to the initializing
// caller. It can succeed exactly once per registry instance.
func (r *Registry) Initialize(caller Identity, initialRoot field.Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.init {
		return ErrAlreadyInitialized
	}
	if initialRoot.IsZero() {
		return ErrInvalidRoot
	}
	next := &State{
		Admin:         caller,
		CurrentRoot:   initialRoot,
		AcceptedRoots: []field.Element{initialRoot},
	}
	t := Transition{
		PreviousRoot: field.Element{},
		NewRoot:      initialRoot,
		UpdatedBy:    caller,
		At:           time.Now().UTC(),
	}
	if err := r.store.Save(next, t); err != nil {
		return fmt.Errorf("registry: persisting initialization: %w", err)
	}
	r.state = next
	r.init = true
	r.accepted[initialRoot] = struct{}{}
	return nil
}

// SetRoot rotates the current root. Re-accepting a historical root is a
// valid rotation; only the zero root and the unchanged root are rejected.
func (r *Registry) SetRoot(caller Identity, newRoot field.Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.init {
		return ErrNotInitialized
	}
	if caller != r.state.Admin {
		return ErrUnauthorized
	}
	if newRoot.IsZero() {
		return ErrInvalidRoot
	}
	if newRoot.Equal(r.state.CurrentRoot) {
		return ErrNoOpRoot
	}
	next := r.state.clone()
	next.CurrentRoot = newRoot
	if _, seen := r.accepted[newRoot]; !seen {
		next.AcceptedRoots = append(next.AcceptedRoots, newRoot)
	}
	t := Transition{
		PreviousRoot: r.state.CurrentRoot,
		NewRoot:      newRoot,
		UpdatedBy:    caller,
		At:           time.Now().UTC(),
	}
	if err := r.store.Save(next, t); err != nil {
		return fmt.Errorf("registry: persisting rotation: %w", err)
	}
	r.state = next
	r.accepted[newRoot] = struct{}{}
	return nil
}

// CurrentRoot returns the current root, or the zero element before
// initialization.
func (r *Registry) CurrentRoot() field.Element {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.CurrentRoot
}

// IsRootAccepted reports whether root is or ever was the current root.
func (r *Registry) IsRootAccepted(root field.Element) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.accepted[root]
	return ok
}

// Admin returns the admin identity, empty before initialization.
func (r *Registry) Admin() Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Admin
}

// Initialized reports whether Initialize has succeeded.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.init
}

// Transitions returns the append-only log of root changes, oldest first.
func (r *Registry) Transitions() ([]Transition, error) {
	return r.store.Transitions()
}
