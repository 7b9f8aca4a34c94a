package members

import (
	"errors"
	"testing"

	"anonsignal/internal/field"
	"anonsignal/internal/nullifier"
)

func TestEmptySetFoldsToZero(t *testing.T) {
	b := NewSetBuilder()
	if !b.Root().IsZero() {
		t.Errorf("empty set root = %s, want zero", b.Root().Hex())
	}
}

func TestSingleLeafIsOwnRoot(t *testing.T) {
	b := NewSetBuilder()
	leaf := nullifier.DeriveLeaf(field.MustFromHex("0x1"))
	if err := b.Add(leaf); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !b.Root().Equal(leaf) {
		t.Errorf("single-leaf root = %s, want %s", b.Root().Hex(), leaf.Hex())
	}
}

func TestTwoLeafRootKnownVector(t *testing.T) {
	b := NewSetBuilder()
	l1 := nullifier.DeriveLeaf(field.MustFromHex("0x1"))
	l2 := nullifier.DeriveLeaf(field.MustFromHex("0x2"))
	if err := b.Add(l1); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := b.Add(l2); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	want := "0x36d7a511eae458e145e9dca368524cac14371dfb1695e2afde69137b6bb6200"
	if b.Root().Hex() != want {
		t.Errorf("two-leaf root = %s, want %s", b.Root().Hex(), want)
	}
}

func TestRootChangesWithMembership(t *testing.T) {
	b := NewSetBuilder()
	var prev field.Element
	for _, s := range []string{"0x1", "0x2", "0x3", "0x4", "0x5"} {
		if err := b.Add(nullifier.DeriveLeaf(field.MustFromHex(s))); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		root := b.Root()
		if root.Equal(prev) {
			t.Errorf("root unchanged after enrolling %s", s)
		}
		if root.IsZero() {
			t.Errorf("non-empty set produced zero root")
		}
		prev = root
	}
	if b.Size() != 5 {
		t.Errorf("Size = %d, want 5", b.Size())
	}
}

func TestRootDeterministic(t *testing.T) {
	build := func() field.Element {
		b := NewSetBuilder()
		for _, s := range []string{"0xa", "0xb", "0xc"} {
			if err := b.Add(nullifier.DeriveLeaf(field.MustFromHex(s))); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
		}
		return b.Root()
	}
	if !build().Equal(build()) {
		t.Error("same enrollment sequence should reproduce the same root")
	}
}

func TestRejectZeroAndDuplicateLeaves(t *testing.T) {
	b := NewSetBuilder()
	if err := b.Add(field.Element{}); !errors.Is(err, ErrZeroLeaf) {
		t.Errorf("zero leaf should be rejected, got %v", err)
	}
	leaf := nullifier.DeriveLeaf(field.MustFromHex("0x7"))
	if err := b.Add(leaf); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := b.Add(leaf); !errors.Is(err, ErrDuplicateLeaf) {
		t.Errorf("duplicate leaf should be rejected, got %v", err)
	}
}
