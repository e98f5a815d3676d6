package protocol

import (
	"context"
	"crypto/ed25519"

	"github.com/marsprotocol/vault-engine/pkg/solana"
)

type OperationKind uint8

const (
	OperationKindUnknown OperationKind = iota
	OperationKindDeposit
	OperationKindWithdraw
	OperationKindStakeInFarm
	OperationKindStartUnstake
	OperationKindUnstake
)

func (k OperationKind) String() string {
	switch k {
	case OperationKindDeposit:
		return "deposit"
	case OperationKindWithdraw:
		return "withdraw"
	case OperationKindStakeInFarm:
		return "stake_in_farm"
	case OperationKindStartUnstake:
		return "start_unstake"
	case OperationKindUnstake:
		return "unstake"
	}
	return "unknown"
}

// QuoteRequest asks the external protocol for the instruction that performs
// an operation.
type QuoteRequest struct {
	Kind   OperationKind
	Amount uint64
	Asset  ed25519.PublicKey
	User   ed25519.PublicKey

	// Slot is a recent ledger slot the external protocol uses to bound
	// replay. Only StartUnstake requires it.
	Slot uint64
}

// QuotedInstruction is a self describing external instruction. Data is the
// protocol specific additional data blob.
type QuotedInstruction struct {
	Program  ed25519.PublicKey
	Accounts []solana.AccountMeta
	Data     []byte
}

// Adapter quotes external protocol instructions.
type Adapter interface {
	Quote(ctx context.Context, req *QuoteRequest) (*QuotedInstruction, error)
}

// PositionReader reads a user's position as the external protocol sees it.
type PositionReader interface {
	// StakedShares returns the vault shares the user has staked in the farm
	// backing asset.
	StakedShares(ctx context.Context, user, asset ed25519.PublicKey) (uint64, error)
}
