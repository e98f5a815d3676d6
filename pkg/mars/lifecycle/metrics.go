package lifecycle

import (
	"context"

	"github.com/marsprotocol/vault-engine/pkg/mars/data/position"
	"github.com/marsprotocol/vault-engine/pkg/mars/protocol"
	"github.com/marsprotocol/vault-engine/pkg/metrics"
)

const (
	phaseEventName      = "MarsPositionPhaseTransition"
	settlementEventName = "MarsSettlement"
)

func recordPhaseEvent(ctx context.Context, record *position.Record, kind protocol.OperationKind, skipped bool) {
	metrics.RecordEvent(ctx, phaseEventName, map[string]interface{}{
		"owner":     record.Owner,
		"vault":     record.VaultId,
		"operation": kind.String(),
		"phase":     record.Phase.String(),
		"shares":    record.SharesAmount,
		"skipped":   skipped,
	})
}

func recordSettlementEvent(ctx context.Context, settlement *Settlement) {
	metrics.RecordEvent(ctx, settlementEventName, map[string]interface{}{
		"owner":        settlement.Owner,
		"vault":        settlement.VaultId,
		"share_amount": settlement.ShareAmount,
		"tier_fee_bps": settlement.TierFeeBps,
		"tier_fee":     settlement.TierFee,
		"platform_fee": settlement.PlatformFee,
		"net":          settlement.Net,
		"signature":    settlement.Signature.String(),
	})
}
