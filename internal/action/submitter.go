// submitter.go - Anonymous action submission.
//
// The submitter is the one component that touches every piece of the
// protocol: it derives the nullifier for a member's secret and action
// context, reserves it against the local replay guard, hands the call to the
// transport, and commits the reservation only once the transport confirms.
// A failed, rejected or cancelled submission releases the reservation so the
// same nullifier stays retryable.

package action

import (
	"context"
	"errors"
	"fmt"

	"anonsignal/internal/field"
	"anonsignal/internal/nullifier"
)

// ErrRootNotAccepted is returned when the context's root was never accepted
// by the registry.
var ErrRootNotAccepted = errors.New("action: context root not accepted by registry")

// Call is the transport-level description of an on-chain invocation. The
// nullifier is appended as the final calldata element.
type Call struct {
	ContractAddress string
	EntryPoint      string
	Calldata        []field.Element
}

// Transport submits a call under the connected identity and returns a
// transaction identifier. Implementations must be safe to retry with the
// same nullifier when they fail before confirmation. The call may be slow;
// it is awaited without holding any guard lock.
type Transport interface {
	Invoke(ctx context.Context, call Call) (txID string, err error)
}

// RootChecker is the read-side of the registry the submitter relies on.
// *registry.Registry satisfies it directly.
type RootChecker interface {
	IsRootAccepted(root field.Element) bool
}

// Submitter binds the engine, the replay guard, the registry read side and a
// transport into the submission flow.
type Submitter struct {
	guard     *nullifier.ReplayGuard
	roots     RootChecker
	transport Transport
}

// NewSubmitter creates a submitter. The guard is injected, never ambient, so
// each owner controls its own replay scope.
func NewSubmitter(guard *nullifier.ReplayGuard, roots RootChecker, transport Transport) *Submitter {
	return &Submitter{guard: guard, roots: roots, transport: transport}
}

// Request describes one anonymous action attempt.
type Request struct {
	Secret  field.Element
	Context nullifier.ActionContext

	ContractAddress string
	EntryPoint      string
	// Calldata precedes the appended nullifier.
	Calldata []field.Element
}

// Receipt reports a confirmed submission.
type Receipt struct {
	TxID      string
	Nullifier field.Element
}

// Submit runs the full flow for one action. On any failure the registry and
// the guard are left exactly as they were.
func (s *Submitter) Submit(ctx context.Context, req Request) (*Receipt, error) {
	if !s.roots.IsRootAccepted(req.Context.Root) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotAccepted, req.Context.Root.Hex())
	}

	actionHash := nullifier.DeriveActionHash(req.Context)
	n := nullifier.DeriveNullifier(req.Secret, actionHash)

	res, err := s.guard.CheckAndReserve(n)
	if err != nil {
		return nil, fmt.Errorf("action: %s blocked: %w", n.Hex(), err)
	}

	calldata := append(append([]field.Element(nil), req.Calldata...), n)
	txID, err := s.transport.Invoke(ctx, Call{
		ContractAddress: req.ContractAddress,
		EntryPoint:      req.EntryPoint,
		Calldata:        calldata,
	})
	if err != nil {
		res.Release()
		return nil, fmt.Errorf("action: submission failed (retryable with same nullifier): %w", err)
	}

	res.Commit()
	return &Receipt{TxID: txID, Nullifier: n}, nil
}
