// guard.go - Local replay protection for nullifiers.
//
// The guard is advisory and process-local: it does not persist across
// restarts and is not the security boundary. True replay protection needs an
// on-chain spent-nullifier check, which the registry host does not enforce.

package nullifier

import (
	"errors"
	"sync"

	"anonsignal/internal/field"
)

// ErrAlreadyUsed is returned when a nullifier was already spent in this
// process, or is held by an unreleased in-flight reservation. The caller
// must not regenerate a nullifier from the same secret and context; the
// action context itself has to change.
var ErrAlreadyUsed = errors.New("nullifier already used")

// ReplayGuard tracks spent nullifiers for one running instance. Insertion is
// the only mutation of the used set; there is no removal.
type ReplayGuard struct {
	mu      sync.Mutex
	used    map[field.Element]struct{}
	pending map[field.Element]struct{}
}

// NewReplayGuard creates an empty guard.
func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{
		used:    make(map[field.Element]struct{}),
		pending: make(map[field.Element]struct{}),
	}
}

// Reservation is a pending claim on a nullifier. Exactly one of Commit or
// Release must be called once the submission outcome is known; both are
// idempotent after the first call.
type Reservation struct {
	guard *ReplayGuard
	value field.Element
	once  sync.Once
}

// CheckAndReserve atomically tests the nullifier and, if unseen, reserves it
// for one submission attempt. The nullifier only enters the used set when
// the caller commits the reservation after a confirmed submission; a failed
// or cancelled attempt releases it and stays retryable.
func (g *ReplayGuard) CheckAndReserve(n field.Element) (*Reservation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.used[n]; ok {
		return nil, ErrAlreadyUsed
	}
	if _, ok := g.pending[n]; ok {
		return nil, ErrAlreadyUsed
	}
	g.pending[n] = struct{}{}
	return &Reservation{guard: g, value: n}, nil
}

// Commit marks the reserved nullifier as spent. Call only after the
// corresponding action is confirmed committed, not merely attempted.
func (r *Reservation) Commit() {
	r.once.Do(func() {
		r.guard.mu.Lock()
		defer r.guard.mu.Unlock()
		delete(r.guard.pending, r.value)
		r.guard.used[r.value] = struct{}{}
	})
}

// Release abandons the reservation, leaving the guard as if the attempt
// never happened.
func (r *Reservation) Release() {
	r.once.Do(func() {
		r.guard.mu.Lock()
		defer r.guard.mu.Unlock()
		delete(r.guard.pending, r.value)
	})
}

// IsUsed reports whether the nullifier has been committed as spent.
func (g *ReplayGuard) IsUsed(n field.Element) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.used[n]
	return ok
}
