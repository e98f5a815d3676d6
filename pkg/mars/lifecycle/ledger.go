package lifecycle

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/marsprotocol/vault-engine/pkg/solana"
)

var (
	// ErrOutcomePending is returned by Ledger.GetOutcome while a submission
	// has no definitive result.
	ErrOutcomePending = errors.New("transaction outcome pending")
)

// Outcome is the definitive result of a submission. Err is nil when the
// submission was accepted.
type Outcome struct {
	Signature solana.Signature
	Slot      uint64
	Err       error
}

// Ledger is the execution substrate positions are driven against.
type Ledger interface {
	// GetSlot returns a recent slot, used as a freshness marker.
	GetSlot(ctx context.Context) (uint64, error)

	// Submit sends the instructions as a single transaction paid for and
	// signed by payer. Rejections before execution are returned as errors.
	Submit(ctx context.Context, payer ed25519.PublicKey, instructions ...solana.Instruction) (solana.Signature, error)

	// GetOutcome returns the definitive outcome of a submission, or
	// ErrOutcomePending.
	GetOutcome(ctx context.Context, sig solana.Signature) (*Outcome, error)
}
