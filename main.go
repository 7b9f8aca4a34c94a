// main.go - End-to-end anonymous group-action scenario.
//
// This demonstrates the full protocol with N members and one admin:
//   - each member generates a secret and enrolls its leaf into the set
//   - the admin initializes the registry with the snapshot root
//   - a member signals anonymously: derive nullifier, reserve, submit, commit
//   - a replay of the same (secret, context) is blocked
//   - a new member joins, the root rotates, and an action derived against
//     the previous root still validates
//
// Usage:
//   go run main.go

package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"anonsignal/internal/action"
	"anonsignal/internal/field"
	"anonsignal/internal/members"
	"anonsignal/internal/nullifier"
	"anonsignal/internal/registry"
)

const (
	numMembers = 5
	demoDomain = "SN_SEPOLIA|acct|reg"
	demoActor  = "0xabc"
)

// loopbackTransport is an in-process stand-in for the submission transport:
// it accepts every call and hands back a sequential transaction id.
type loopbackTransport struct {
	mu    sync.Mutex
	calls []action.Call
}

func (l *loopbackTransport) Invoke(ctx context.Context, call action.Call) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
	return fmt.Sprintf("0xtx%d", len(l.calls)), nil
}

type member struct {
	name   string
	secret field.Element
	leaf   field.Element
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	ctx := context.Background()

	log.Info().Int("members", numMembers).Msg("anonymous group-action scenario")

	// 1. Members generate secrets client-side; only leaves are disclosed.
	engine := nullifier.NewEngine(nil)
	builder := members.NewSetBuilder()
	group := make([]member, numMembers)
	for i := range group {
		secret, err := engine.GenerateSecret()
		if err != nil {
			log.Fatal().Err(err).Msg("secret generation failed")
		}
		leaf := nullifier.DeriveLeaf(secret)
		if err := builder.Add(leaf); err != nil {
			log.Fatal().Err(err).Msg("enrollment failed")
		}
		group[i] = member{name: fmt.Sprintf("member%d", i+1), secret: secret, leaf: leaf}
		log.Info().Str("member", group[i].name).Str("leaf", leaf.Hex()).Msg("enrolled")
	}

	// 2. The admin initializes the registry with the snapshot root.
	admin := registry.Identity("0xad1")
	reg, err := registry.New(registry.NewMemoryStore())
	if err != nil {
		log.Fatal().Err(err).Msg("registry setup failed")
	}
	rootV1 := builder.Root()
	if err := reg.Initialize(admin, rootV1); err != nil {
		log.Fatal().Err(err).Msg("registry initialization failed")
	}
	log.Info().Str("root", rootV1.Hex()).Msg("registry initialized")

	// 3. A member signals anonymously.
	transport := &loopbackTransport{}
	guard := nullifier.NewReplayGuard()
	submitter := action.NewSubmitter(guard, reg, transport)

	alice := group[0]
	req := action.Request{
		Secret: alice.secret,
		Context: nullifier.ActionContext{
			Domain: demoDomain,
			Action: "signal:vote",
			Root:   rootV1,
			Actor:  demoActor,
		},
		ContractAddress: "0xc0ffee",
		EntryPoint:      "signal",
	}
	receipt, err := submitter.Submit(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("submission failed")
	}
	log.Info().
		Str("tx_id", receipt.TxID).
		Str("nullifier", receipt.Nullifier.Hex()).
		Msg("anonymous action committed")

	// 4. Replaying the same context is blocked locally.
	if _, err := submitter.Submit(ctx, req); err != nil {
		log.Info().Err(err).Msg("replay correctly blocked")
	} else {
		log.Fatal().Msg("replay was not blocked")
	}

	// 5. A new member joins; the admin rotates the root.
	newSecret, err := engine.GenerateSecret()
	if err != nil {
		log.Fatal().Err(err).Msg("secret generation failed")
	}
	if err := builder.Add(nullifier.DeriveLeaf(newSecret)); err != nil {
		log.Fatal().Err(err).Msg("enrollment failed")
	}
	rootV2 := builder.Root()
	if err := reg.SetRoot(admin, rootV2); err != nil {
		log.Fatal().Err(err).Msg("root rotation failed")
	}
	log.Info().Str("previous", rootV1.Hex()).Str("root", rootV2.Hex()).Msg("root rotated")

	// 6. An action derived against the superseded root still validates.
	bob := group[1]
	staleReq := action.Request{
		Secret: bob.secret,
		Context: nullifier.ActionContext{
			Domain: demoDomain,
			Action: "signal:vote",
			Root:   rootV1,
			Actor:  demoActor,
		},
		ContractAddress: "0xc0ffee",
		EntryPoint:      "signal",
	}
	staleReceipt, err := submitter.Submit(ctx, staleReq)
	if err != nil {
		log.Fatal().Err(err).Msg("stale-root submission failed")
	}
	log.Info().
		Str("tx_id", staleReceipt.TxID).
		Str("root", rootV1.Hex()).
		Msg("stale-root action still validates")

	transitions, err := reg.Transitions()
	if err != nil {
		log.Fatal().Err(err).Msg("reading transitions failed")
	}
	for i, t := range transitions {
		log.Info().
			Int("seq", i).
			Str("previous_root", t.PreviousRoot.Hex()).
			Str("new_root", t.NewRoot.Hex()).
			Str("updated_by", string(t.UpdatedBy)).
			Msg("transition")
	}
	log.Info().Int("actions", len(transport.calls)).Msg("scenario complete")
}
