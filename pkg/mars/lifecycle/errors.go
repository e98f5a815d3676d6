package lifecycle

import (
	"github.com/pkg/errors"

	"github.com/marsprotocol/vault-engine/pkg/mars/fee"
	"github.com/marsprotocol/vault-engine/pkg/mars/protocol"
)

var (
	ErrInvalidParameter    = fee.ErrInvalidParameter
	ErrInvalidPhase        = errors.New("position is not in the required phase")
	ErrConfirmationTimeout = errors.New("timed out waiting for transaction confirmation")
	ErrPositionNotFound    = errors.New("position not found")
	ErrSharesUnresolved    = errors.New("deposit confirmed but its staked shares are unresolved")
)

// skipFor is the "already done" condition a phase treats as success.
func skipFor(kind protocol.OperationKind) error {
	switch kind {
	case protocol.OperationKindStartUnstake:
		return protocol.ErrNothingToUnstake
	case protocol.OperationKindUnstake:
		return protocol.ErrNothingToWithdraw
	}
	return nil
}

func isSkipFor(kind protocol.OperationKind, err error) bool {
	skip := skipFor(kind)
	return skip != nil && errors.Is(err, skip)
}
