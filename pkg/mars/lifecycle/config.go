package lifecycle

import (
	"time"

	"github.com/marsprotocol/vault-engine/pkg/config"
	"github.com/marsprotocol/vault-engine/pkg/config/env"
)

const (
	envConfigPrefix = "LIFECYCLE_"

	ConfirmationPollLimitConfigEnvName = envConfigPrefix + "CONFIRMATION_POLL_LIMIT"
	defaultConfirmationPollLimit       = 60

	ConfirmationPollIntervalConfigEnvName = envConfigPrefix + "CONFIRMATION_POLL_INTERVAL"
	defaultConfirmationPollInterval       = time.Second

	LockStripesConfigEnvName = envConfigPrefix + "LOCK_STRIPES"
	defaultLockStripes       = 1024
)

type conf struct {
	confirmationPollLimit    config.Uint64
	confirmationPollInterval config.Duration
	lockStripes              config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			confirmationPollLimit:    env.NewUint64Config(ConfirmationPollLimitConfigEnvName, defaultConfirmationPollLimit),
			confirmationPollInterval: env.NewDurationConfig(ConfirmationPollIntervalConfigEnvName, defaultConfirmationPollInterval),
			lockStripes:              env.NewUint64Config(LockStripesConfigEnvName, defaultLockStripes),
		}
	}
}
