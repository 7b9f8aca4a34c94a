// engine.go - Deterministic, one-way derivation of commitments and nullifiers.
//
// A member's secret never leaves the process that generated it. The leaf is
// the public commitment enrolled into the membership set; the nullifier is a
// single-use token binding the secret to a public action context. Both
// derivations go through field.HashToField, which keeps them bit-for-bit
// consistent with each other.

package nullifier

import (
	"io"

	"anonsignal/internal/field"
)

// Engine derives secrets, leaves and nullifiers. The entropy source is
// injected so deterministic tests can substitute a fixed reader; a nil
// source means crypto/rand.
type Engine struct {
	rand io.Reader
}

// NewEngine creates an engine drawing entropy from src (nil for crypto/rand).
func NewEngine(src io.Reader) *Engine {
	return &Engine{rand: src}
}

// GenerateSecret draws a fresh member secret, uniform over [0, P) up to the
// negligible bias of reducing a 256-bit draw.
func (e *Engine) GenerateSecret() (field.Element, error) {
	return field.Random(e.rand)
}

// DeriveLeaf computes the public commitment to a secret. One secret yields
// exactly one leaf; the leaf is safe to disclose for enrollment.
func DeriveLeaf(secret field.Element) field.Element {
	return field.HashToField(secret.Hex())
}

// ActionContext is the public tuple describing what is being authorized,
// under which membership snapshot, as seen by which on-chain actor slot.
type ActionContext struct {
	// Domain is the deployment tag separating protocol instances
	// (network, account class, registry address).
	Domain string
	// Action labels the operation being authorized, e.g. "signal:vote".
	Action string
	// Root is the membership snapshot the member proves against.
	Root field.Element
	// Actor is the actor-visible identifier, e.g. the connected account.
	Actor string
}

// DeriveActionHash binds the four context parts into a single field element.
// The parts are joined with field.Separator before hashing; the caller must
// keep Action and Actor free of the separator (the Domain tag is
// conventionally already a joined string).
func DeriveActionHash(ctx ActionContext) field.Element {
	return field.HashToField(ctx.Domain, ctx.Action, ctx.Root.Hex(), ctx.Actor)
}

// DeriveNullifier computes the single-use token for (secret, action hash).
// Deterministic by construction: the same pair always yields the same
// nullifier, which is what makes double use detectable.
func DeriveNullifier(secret, actionHash field.Element) field.Element {
	return field.HashToField(secret.Hex(), actionHash.Hex())
}
