package registry

import (
	"errors"
	"testing"

	"anonsignal/internal/field"
)

const admin = Identity("0xad1")

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(NewMemoryStore())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestInitializeAndRotate(t *testing.T) {
	r := newTestRegistry(t)
	r1 := field.MustFromHex("0x11")
	r2 := field.MustFromHex("0x22")

	if err := r.Initialize(admin, r1); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := r.CurrentRoot(); !got.Equal(r1) {
		t.Errorf("CurrentRoot = %s, want %s", got.Hex(), r1.Hex())
	}
	if r.Admin() != admin {
		t.Errorf("Admin = %s, want %s", r.Admin(), admin)
	}

	if err := r.SetRoot(admin, r2); err != nil {
		t.Fatalf("SetRoot failed: %v", err)
	}
	if got := r.CurrentRoot(); !got.Equal(r2) {
		t.Errorf("CurrentRoot = %s, want %s", got.Hex(), r2.Hex())
	}
	// History retention: superseded roots stay accepted.
	if !r.IsRootAccepted(r1) {
		t.Error("superseded root should remain accepted")
	}
	if !r.IsRootAccepted(r2) {
		t.Error("current root should be accepted")
	}
	if r.IsRootAccepted(field.MustFromHex("0x33")) {
		t.Error("never-accepted root should not be accepted")
	}
}

func TestZeroRootRejected(t *testing.T) {
	r := newTestRegistry(t)
	zero := field.Element{}

	if err := r.Initialize(admin, zero); !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("Initialize(0) should fail with ErrInvalidRoot, got %v", err)
	}
	if r.Initialized() {
		t.Error("failed initialization must not mark the registry initialized")
	}

	if err := r.Initialize(admin, field.MustFromHex("0x11")); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.SetRoot(admin, zero); !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("SetRoot(0) should fail with ErrInvalidRoot, got %v", err)
	}
}

func TestNoOpRotationRejected(t *testing.T) {
	r := newTestRegistry(t)
	r1 := field.MustFromHex("0x11")
	if err := r.Initialize(admin, r1); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.SetRoot(admin, r1); !errors.Is(err, ErrNoOpRoot) {
		t.Errorf("rotating to the current root should fail with ErrNoOpRoot, got %v", err)
	}
}

func TestUnauthorizedRotationLeavesStateUntouched(t *testing.T) {
	r := newTestRegistry(t)
	r1 := field.MustFromHex("0x11")
	r2 := field.MustFromHex("0x22")
	if err := r.Initialize(admin, r1); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.SetRoot(Identity("0xeve"), r2); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-admin rotation should fail with ErrUnauthorized, got %v", err)
	}
	if got := r.CurrentRoot(); !got.Equal(r1) {
		t.Errorf("current root changed on unauthorized call: %s", got.Hex())
	}
	if r.IsRootAccepted(r2) {
		t.Error("rejected root must not be accepted")
	}
}

func TestSecondInitializeRejected(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Initialize(admin, field.MustFromHex("0x11")); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	err := r.Initialize(Identity("0xother"), field.MustFromHex("0x22"))
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize should fail with ErrAlreadyInitialized, got %v", err)
	}
	if r.Admin() != admin {
		t.Error("admin must never change after initialization")
	}
}

func TestRotateBeforeInitialize(t *testing.T) {
	r := newTestRegistry(t)
	err := r.SetRoot(admin, field.MustFromHex("0x11"))
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("SetRoot before Initialize should fail with ErrNotInitialized, got %v", err)
	}
}

func TestReacceptHistoricalRoot(t *testing.T) {
	r := newTestRegistry(t)
	r1 := field.MustFromHex("0x11")
	r2 := field.MustFromHex("0x22")
	if err := r.Initialize(admin, r1); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.SetRoot(admin, r2); err != nil {
		t.Fatalf("SetRoot failed: %v", err)
	}
	// Rolling back to a historical root is a valid rotation, not an error.
	if err := r.SetRoot(admin, r1); err != nil {
		t.Fatalf("re-accepting a historical root failed: %v", err)
	}
	if got := r.CurrentRoot(); !got.Equal(r1) {
		t.Errorf("CurrentRoot = %s, want %s", got.Hex(), r1.Hex())
	}

	// The accepted set must not grow a duplicate entry.
	ts, err := r.Transitions()
	if err != nil {
		t.Fatalf("Transitions failed: %v", err)
	}
	if len(ts) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(ts))
	}
}

func TestEmptyMemoryStoreLoadsNothing(t *testing.T) {
	state, ok, err := NewMemoryStore().Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok || state != nil {
		t.Errorf("empty store should load nothing, got %+v", state)
	}
}

func TestTransitionLog(t *testing.T) {
	r := newTestRegistry(t)
	r1 := field.MustFromHex("0x11")
	r2 := field.MustFromHex("0x22")
	if err := r.Initialize(admin, r1); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.SetRoot(admin, r2); err != nil {
		t.Fatalf("SetRoot failed: %v", err)
	}

	ts, err := r.Transitions()
	if err != nil {
		t.Fatalf("Transitions failed: %v", err)
	}
	if len(ts) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(ts))
	}
	if !ts[0].PreviousRoot.IsZero() || !ts[0].NewRoot.Equal(r1) || ts[0].UpdatedBy != admin {
		t.Errorf("bad initialization record: %+v", ts[0])
	}
	if !ts[1].PreviousRoot.Equal(r1) || !ts[1].NewRoot.Equal(r2) || ts[1].UpdatedBy != admin {
		t.Errorf("bad rotation record: %+v", ts[1])
	}
}

func TestReloadFromStore(t *testing.T) {
	store := NewMemoryStore()
	r1 := field.MustFromHex("0x11")
	r2 := field.MustFromHex("0x22")

	r, err := New(store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := r.Initialize(admin, r1); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.SetRoot(admin, r2); err != nil {
		t.Fatalf("SetRoot failed: %v", err)
	}

	// A second registry over the same store resumes where the first left off.
	reloaded, err := New(store)
	if err != nil {
		t.Fatalf("New over populated store failed: %v", err)
	}
	if !reloaded.Initialized() {
		t.Fatal("reloaded registry should be initialized")
	}
	if got := reloaded.CurrentRoot(); !got.Equal(r2) {
		t.Errorf("reloaded CurrentRoot = %s, want %s", got.Hex(), r2.Hex())
	}
	if !reloaded.IsRootAccepted(r1) || !reloaded.IsRootAccepted(r2) {
		t.Error("reloaded registry lost accepted history")
	}
	if reloaded.Admin() != admin {
		t.Errorf("reloaded Admin = %s, want %s", reloaded.Admin(), admin)
	}
	if err := reloaded.Initialize(admin, r1); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("reloaded registry should refuse re-initialization, got %v", err)
	}
}
