package async_position

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marsprotocol/vault-engine/pkg/mars/async"
	"github.com/marsprotocol/vault-engine/pkg/mars/data/position"
	"github.com/marsprotocol/vault-engine/pkg/mars/lifecycle"
	"github.com/marsprotocol/vault-engine/pkg/mars/vault"
)

// Lifecycle is the subset of lifecycle.Engine the service drives exits with.
type Lifecycle interface {
	StartUnstake(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id) (*lifecycle.Result, error)
	ClaimUnstake(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id) (*lifecycle.Result, error)
	Withdraw(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id, shareAmount uint64) (*lifecycle.Settlement, error)
}

type service struct {
	log       *logrus.Entry
	conf      *conf
	lifecycle Lifecycle
	store     position.Store
}

// New returns a service that drives positions flagged for exit through
// unstake, claim and withdraw, one phase per pass.
func New(lifecycle Lifecycle, store position.Store, configProvider ConfigProvider) async.Service {
	return &service{
		log:       logrus.StandardLogger().WithField("service", "position"),
		conf:      configProvider(),
		lifecycle: lifecycle,
		store:     store,
	}
}

func (p *service) Start(ctx context.Context, interval time.Duration) error {
	for _, phase := range []position.Phase{
		position.PhaseStaked,
		position.PhaseUnstakeRequested,
		position.PhaseUnstakeClaimable,
	} {
		go func(phase position.Phase) {

			err := p.worker(ctx, phase, interval)
			if err != nil && err != context.Canceled {
				p.log.WithError(err).Warnf("position processing loop terminated unexpectedly for phase %s", phase.String())
			}

		}(phase)
	}

	go func() {
		err := p.metricsGaugeWorker(ctx)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("position metrics gauge loop terminated unexpectedly")
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}
