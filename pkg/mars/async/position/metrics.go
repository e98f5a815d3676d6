package async_position

import (
	"context"
	"time"

	"github.com/marsprotocol/vault-engine/pkg/mars/data/position"
	"github.com/marsprotocol/vault-engine/pkg/metrics"
)

const (
	positionCountEventName = "PositionCountPollingCheck"
)

func (p *service) metricsGaugeWorker(ctx context.Context) error {
	delay := time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			start := time.Now()

			for _, phase := range []position.Phase{
				position.PhaseIdle,
				position.PhaseStaked,
				position.PhaseUnstakeRequested,
				position.PhaseUnstakeClaimable,
			} {
				count, err := p.store.CountByPhase(ctx, phase)
				if err != nil {
					continue
				}
				recordPositionCountEvent(ctx, phase, count)
			}

			delay = time.Second - time.Since(start)
		}
	}
}

func recordPositionCountEvent(ctx context.Context, phase position.Phase, count uint64) {
	metrics.RecordEvent(ctx, positionCountEventName, map[string]interface{}{
		"phase": phase.String(),
		"count": count,
	})
}
