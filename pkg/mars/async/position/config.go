package async_position

import (
	"time"

	"github.com/marsprotocol/vault-engine/pkg/config"
	"github.com/marsprotocol/vault-engine/pkg/config/env"
)

const (
	envConfigPrefix = "POSITION_SERVICE_"

	BatchSizeConfigEnvName = envConfigPrefix + "WORKER_BATCH_SIZE"
	defaultBatchSize       = 100

	ClaimDelayConfigEnvName = envConfigPrefix + "CLAIM_DELAY"
	defaultClaimDelay       = 10 * time.Minute
)

type conf struct {
	batchSize  config.Uint64
	claimDelay config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			batchSize:  env.NewUint64Config(BatchSizeConfigEnvName, defaultBatchSize),
			claimDelay: env.NewDurationConfig(ClaimDelayConfigEnvName, defaultClaimDelay),
		}
	}
}
