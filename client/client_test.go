package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"anonsignal/internal/action"
	"anonsignal/internal/field"
	"anonsignal/internal/nullifier"
	"anonsignal/internal/registry"
	"anonsignal/internal/server"
)

func newHost(t *testing.T) *httptest.Server {
	t.Helper()
	reg, err := registry.New(registry.NewMemoryStore())
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}
	srv := server.New(server.Options{Logger: zerolog.Nop(), Registry: reg})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClientRegistryFlow(t *testing.T) {
	host := newHost(t)
	ctx := context.Background()

	adminClient := New(host.URL, "0xad1")
	if err := adminClient.Initialize(ctx, field.MustFromHex("0x11")); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	root, err := adminClient.CurrentRoot(ctx)
	if err != nil {
		t.Fatalf("CurrentRoot failed: %v", err)
	}
	if root.Hex() != "0x11" {
		t.Errorf("CurrentRoot = %s", root.Hex())
	}

	admin, err := adminClient.Admin(ctx)
	if err != nil {
		t.Fatalf("Admin failed: %v", err)
	}
	if admin != registry.Identity("0xad1") {
		t.Errorf("Admin = %s", admin)
	}

	if err := adminClient.SetRoot(ctx, field.MustFromHex("0x22")); err != nil {
		t.Fatalf("SetRoot failed: %v", err)
	}
	for root, want := range map[string]bool{"0x11": true, "0x22": true, "0x33": false} {
		got, err := adminClient.RootAccepted(ctx, field.MustFromHex(root))
		if err != nil {
			t.Fatalf("RootAccepted failed: %v", err)
		}
		if got != want {
			t.Errorf("RootAccepted(%s) = %v, want %v", root, got, want)
		}
	}

	// Registry errors surface with their host-side message.
	eve := New(host.URL, "0xeve")
	if err := eve.SetRoot(ctx, field.MustFromHex("0x33")); err == nil {
		t.Error("non-admin SetRoot should fail")
	}
}

func TestClientAsTransport(t *testing.T) {
	host := newHost(t)
	ctx := context.Background()

	admin := New(host.URL, "0xad1")
	if err := admin.Initialize(ctx, field.MustFromHex("0x11")); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	member := New(host.URL, "0xabc")
	var transport action.Transport = member
	txID, err := transport.Invoke(ctx, action.Call{
		ContractAddress: "0xc0ffee",
		EntryPoint:      "signal",
		Calldata: []field.Element{
			nullifier.DeriveNullifier(field.MustFromHex("0x1"), field.MustFromHex("0x2")),
		},
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if txID == "" {
		t.Error("Invoke should return a transaction id")
	}
}

func TestClientContextCancellation(t *testing.T) {
	host := newHost(t)
	c := New(host.URL, "0xabc")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.CurrentRoot(ctx); err == nil {
		t.Error("request with cancelled context should fail")
	}
}
