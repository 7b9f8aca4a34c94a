package registry

import (
	"path/filepath"
	"testing"

	"anonsignal/internal/field"
)

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("fresh store should be empty, ok=%v err=%v", ok, err)
	}

	r, err := New(store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := r.Initialize(admin, field.MustFromHex("0x11")); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.SetRoot(admin, field.MustFromHex("0x22")); err != nil {
		t.Fatalf("SetRoot failed: %v", err)
	}

	state, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if state.Admin != admin {
		t.Errorf("persisted admin = %s", state.Admin)
	}
	if state.CurrentRoot.Hex() != "0x22" {
		t.Errorf("persisted current root = %s", state.CurrentRoot.Hex())
	}
	if len(state.AcceptedRoots) != 2 {
		t.Errorf("persisted accepted roots = %d, want 2", len(state.AcceptedRoots))
	}

	ts, err := store.Transitions()
	if err != nil {
		t.Fatalf("Transitions failed: %v", err)
	}
	if len(ts) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(ts))
	}
	if ts[1].PreviousRoot.Hex() != "0x11" || ts[1].NewRoot.Hex() != "0x22" {
		t.Errorf("bad second transition: %+v", ts[1])
	}
}

func TestBadgerStoreReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "registry")

	store, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	r, err := New(store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := r.Initialize(admin, field.MustFromHex("0x11")); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	r2, err := New(reopened)
	if err != nil {
		t.Fatalf("New over reopened store failed: %v", err)
	}
	if r2.CurrentRoot().Hex() != "0x11" {
		t.Errorf("reopened current root = %s", r2.CurrentRoot().Hex())
	}

	// The log sequence continues after reopen instead of overwriting.
	if err := r2.SetRoot(admin, field.MustFromHex("0x22")); err != nil {
		t.Fatalf("SetRoot after reopen failed: %v", err)
	}
	ts, err := reopened.Transitions()
	if err != nil {
		t.Fatalf("Transitions failed: %v", err)
	}
	if len(ts) != 2 {
		t.Errorf("expected 2 transitions after reopen, got %d", len(ts))
	}
}

func TestBadgerStoreClosed(t *testing.T) {
	store, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("double close should be a no-op, got %v", err)
	}
	if _, _, err := store.Load(); err == nil {
		t.Error("Load on a closed store should fail")
	}
}
