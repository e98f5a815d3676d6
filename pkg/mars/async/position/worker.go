package async_position

import (
	"context"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/marsprotocol/vault-engine/pkg/database/query"
	"github.com/marsprotocol/vault-engine/pkg/mars/data/position"
	"github.com/marsprotocol/vault-engine/pkg/metrics"
	"github.com/marsprotocol/vault-engine/pkg/retry"
	"github.com/marsprotocol/vault-engine/pkg/solana/marsvault"
)

func (p *service) worker(serviceCtx context.Context, phase position.Phase, interval time.Duration) error {
	var cursor query.Cursor
	delay := interval

	err := retry.Loop(
		func() (err error) {
			time.Sleep(delay)

			if err := serviceCtx.Err(); err != nil {
				return err
			}

			tracedCtx, m := metrics.StartTransaction(serviceCtx, "async__position_service__handle_"+phase.String())
			defer m.End()

			items, err := p.store.GetAllByPhase(
				tracedCtx,
				phase,
				cursor,
				p.conf.batchSize.Get(serviceCtx),
				query.Ascending,
			)
			if err == position.ErrNotFound {
				cursor = query.EmptyCursor
				return nil
			} else if err != nil {
				cursor = query.EmptyCursor
				return err
			}

			var wg sync.WaitGroup
			for _, item := range items {
				wg.Add(1)

				go func(record *position.Record) {
					defer wg.Done()

					err := p.handle(tracedCtx, record)
					if err != nil {
						m.NoticeError(err)
					}
				}(item)
			}
			wg.Wait()

			if len(items) > 0 {
				cursor = query.ToCursor(items[len(items)-1].Id)
			} else {
				cursor = query.EmptyCursor
			}

			return nil
		},
		retry.NonRetriableErrors(context.Canceled),
	)

	return err
}

func (p *service) handle(ctx context.Context, record *position.Record) error {
	if !record.ExitRequested {
		return nil
	}

	log := p.log.WithFields(logrus.Fields{
		"method": "handle",
		"owner":  record.Owner,
		"vault":  record.VaultId,
		"phase":  record.Phase.String(),
	})

	owner, err := base58.Decode(record.Owner)
	if err != nil {
		return errors.Wrap(err, "invalid owner")
	}

	vaultId, err := marsvault.VaultIdFromBase58(record.VaultId)
	if err != nil {
		return errors.Wrap(err, "invalid vault id")
	}

	switch record.Phase {
	case position.PhaseStaked:
		_, err = p.lifecycle.StartUnstake(ctx, owner, vaultId)
	case position.PhaseUnstakeRequested:
		// The farm enforces its own cool down. Attempting a claim before it
		// elapses only burns a submission.
		if time.Since(record.LastUpdatedAt) < p.conf.claimDelay.Get(ctx) {
			return nil
		}
		_, err = p.lifecycle.ClaimUnstake(ctx, owner, vaultId)
	case position.PhaseUnstakeClaimable:
		_, err = p.lifecycle.Withdraw(ctx, owner, vaultId, record.SharesAmount)
	default:
		return nil
	}

	if err != nil {
		log.WithError(err).Warn("failure advancing position")
		return err
	}
	return nil
}
