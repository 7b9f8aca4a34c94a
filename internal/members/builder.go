// builder.go - Membership-set builder.
//
// The builder consumes leaves produced by the nullifier engine and yields
// the snapshot root fed into the registry. Nodes are combined with the same
// hash-to-field primitive as every other derivation, level by level; an odd
// node is promoted unchanged. The root of an empty set is the zero element,
// which the registry refuses, so an empty group can never become valid.

package members

import (
	"errors"
	"sync"

	"anonsignal/internal/field"
)

// ErrZeroLeaf rejects enrollment of the zero element.
var ErrZeroLeaf = errors.New("members: zero leaf cannot be enrolled")

// ErrDuplicateLeaf rejects enrolling the same leaf twice.
var ErrDuplicateLeaf = errors.New("members: leaf already enrolled")

// SetBuilder accumulates leaves and computes snapshot roots. Safe for
// concurrent use.
type SetBuilder struct {
	mu     sync.Mutex
	leaves []field.Element
	seen   map[field.Element]struct{}
}

// NewSetBuilder creates an empty membership set.
func NewSetBuilder() *SetBuilder {
	return &SetBuilder{seen: make(map[field.Element]struct{})}
}

// Add enrolls a leaf. Enrollment order is part of the snapshot: the same
// leaves in a different order yield a different root.
func (b *SetBuilder) Add(leaf field.Element) error {
	if leaf.IsZero() {
		return ErrZeroLeaf
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.seen[leaf]; ok {
		return ErrDuplicateLeaf
	}
	b.seen[leaf] = struct{}{}
	b.leaves = append(b.leaves, leaf)
	return nil
}

// Size returns the number of enrolled leaves.
func (b *SetBuilder) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.leaves)
}

// Root computes the snapshot root over the current leaves. A single leaf is
// its own root; the empty set folds to zero.
func (b *SetBuilder) Root() field.Element {
	b.mu.Lock()
	level := append([]field.Element(nil), b.leaves...)
	b.mu.Unlock()

	if len(level) == 0 {
		return field.Element{}
	}
	for len(level) > 1 {
		next := make([]field.Element, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, field.HashToField(level[i].Hex(), level[i+1].Hex()))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}
