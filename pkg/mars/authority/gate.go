package authority

import (
	"bytes"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/marsprotocol/vault-engine/pkg/mars/fee"
)

// Gate guards every mutation of the GlobalConfig behind capability checks.
// It's safe for concurrent use.
type Gate struct {
	log *logrus.Entry

	mu     sync.RWMutex
	config *GlobalConfig
}

// NewGate wraps config, filling in any nil authority or minimum fee maps.
func NewGate(config *GlobalConfig) *Gate {
	if config.FreezeAuthorities == nil {
		config.FreezeAuthorities = make(map[string]ed25519.PublicKey)
	}
	if config.ThawAuthorities == nil {
		config.ThawAuthorities = make(map[string]ed25519.PublicKey)
	}
	if config.MinimumFees == nil {
		config.MinimumFees = make(map[uint32]uint64)
	}

	return &Gate{
		log:    logrus.StandardLogger().WithField("type", "authority/gate"),
		config: config,
	}
}

// Snapshot returns a deep copy of the current config.
func (g *Gate) Snapshot() *GlobalConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.config.Clone()
}

func (g *Gate) IsAdmin(caller ed25519.PublicKey) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.config.IsAdmin(caller)
}

func (g *Gate) IsFrozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.config.Frozen
}

// CheckNotFrozen returns ErrGlobalStateFrozen while global state is frozen.
func (g *Gate) CheckNotFrozen() error {
	if g.IsFrozen() {
		return ErrGlobalStateFrozen
	}
	return nil
}

// FeeTiers returns the withdraw fee tier table.
func (g *Gate) FeeTiers() fee.Table {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.config.FeeTiers.Clone()
}

func (g *Gate) PlatformFeeWallet() ed25519.PublicKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return clonePublicKey(g.config.PlatformFeeWallet)
}

// asAdmin runs fn against the config while holding the write lock, but only
// if caller is the admin.
func (g *Gate) asAdmin(caller ed25519.PublicKey, method string, fn func(c *GlobalConfig) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	log := g.log.WithFields(logrus.Fields{
		"method": method,
		"caller": base58.Encode(caller),
	})

	if !g.config.IsAdmin(caller) {
		log.Info("rejected non-admin caller")
		return ErrOnlyAdmin
	}

	if err := fn(g.config); err != nil {
		log.WithError(err).Info("rejected admin update")
		return err
	}

	log.Debug("admin update applied")
	return nil
}

// NominateAuthority sets the pending admin. The nominee must call
// AcceptAuthority for the transfer to take effect.
func (g *Gate) NominateAuthority(caller, nominee ed25519.PublicKey) error {
	return g.asAdmin(caller, "NominateAuthority", func(c *GlobalConfig) error {
		if len(nominee) != ed25519.PublicKeySize {
			return errors.Wrap(ErrInvalidParameter, "invalid nominee")
		}

		c.PendingAdmin = clonePublicKey(nominee)
		return nil
	})
}

// AcceptAuthority completes a two phase admin transfer. Only the nominee may
// call it.
func (g *Gate) AcceptAuthority(caller ed25519.PublicKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	log := g.log.WithFields(logrus.Fields{
		"method": "AcceptAuthority",
		"caller": base58.Encode(caller),
	})

	if g.config.PendingAdmin == nil {
		return ErrNoPendingAdmin
	}
	if !bytes.Equal(g.config.PendingAdmin, caller) {
		log.Info("rejected caller that isn't the nominee")
		return ErrInvalidAdmin
	}

	g.config.Admin = g.config.PendingAdmin
	g.config.PendingAdmin = nil

	log.Info("admin transferred")
	return nil
}

func (g *Gate) UpdatePlatformFeeWallet(caller, wallet ed25519.PublicKey) error {
	return g.asAdmin(caller, "UpdatePlatformFeeWallet", func(c *GlobalConfig) error {
		if len(wallet) != ed25519.PublicKeySize {
			return errors.Wrap(ErrInvalidParameter, "invalid platform fee wallet")
		}

		c.PlatformFeeWallet = clonePublicKey(wallet)
		return nil
	})
}

// SetFeeTiers replaces the withdraw fee tier table wholesale.
func (g *Gate) SetFeeTiers(caller ed25519.PublicKey, thresholds []uint64, feesBps []uint16) error {
	return g.asAdmin(caller, "SetFeeTiers", func(c *GlobalConfig) error {
		table, err := fee.NewTable(thresholds, feesBps)
		if err != nil {
			return err
		}

		c.FeeTiers = table
		return nil
	})
}

// SetInsuranceFeeTiers replaces the insurance fee tier table wholesale.
func (g *Gate) SetInsuranceFeeTiers(caller ed25519.PublicKey, thresholds []uint64, feesBps []uint16) error {
	return g.asAdmin(caller, "SetInsuranceFeeTiers", func(c *GlobalConfig) error {
		table, err := fee.NewTable(thresholds, feesBps)
		if err != nil {
			return err
		}

		c.InsuranceFeeTiers = table
		return nil
	})
}

func (g *Gate) SetMinimumFee(caller ed25519.PublicKey, chainId uint32, amount uint64) error {
	return g.asAdmin(caller, "SetMinimumFee", func(c *GlobalConfig) error {
		c.MinimumFees[chainId] = amount
		return nil
	})
}

func (g *Gate) SetSlippageBps(caller ed25519.PublicKey, bps uint16) error {
	return g.asAdmin(caller, "SetSlippageBps", func(c *GlobalConfig) error {
		if bps > fee.MaxBps {
			return errors.Wrapf(ErrInvalidParameter, "slippage bps %d exceeds %d", bps, fee.MaxBps)
		}

		c.SlippageBps = bps
		return nil
	})
}

func (g *Gate) SetInsuranceFundBps(caller ed25519.PublicKey, bps uint16) error {
	return g.asAdmin(caller, "SetInsuranceFundBps", func(c *GlobalConfig) error {
		if bps > fee.MaxBps {
			return errors.Wrapf(ErrInvalidParameter, "insurance fund bps %d exceeds %d", bps, fee.MaxBps)
		}

		c.InsuranceFundBps = bps
		return nil
	})
}

func (g *Gate) SetMaxGasPrice(caller ed25519.PublicKey, price uint64) error {
	return g.asAdmin(caller, "SetMaxGasPrice", func(c *GlobalConfig) error {
		if price == 0 {
			return errors.Wrap(ErrInvalidParameter, "max gas price must be positive")
		}

		c.MaxGasPrice = price
		return nil
	})
}

func (g *Gate) AddFreezeAuthority(caller, authority ed25519.PublicKey) error {
	return g.asAdmin(caller, "AddFreezeAuthority", func(c *GlobalConfig) error {
		return addToSet(c.FreezeAuthorities, authority)
	})
}

func (g *Gate) RemoveFreezeAuthority(caller, authority ed25519.PublicKey) error {
	return g.asAdmin(caller, "RemoveFreezeAuthority", func(c *GlobalConfig) error {
		return removeFromSet(c.FreezeAuthorities, authority)
	})
}

func (g *Gate) AddThawAuthority(caller, authority ed25519.PublicKey) error {
	return g.asAdmin(caller, "AddThawAuthority", func(c *GlobalConfig) error {
		return addToSet(c.ThawAuthorities, authority)
	})
}

func (g *Gate) RemoveThawAuthority(caller, authority ed25519.PublicKey) error {
	return g.asAdmin(caller, "RemoveThawAuthority", func(c *GlobalConfig) error {
		return removeFromSet(c.ThawAuthorities, authority)
	})
}

// FreezeGlobalState may only be called by a freeze authority.
func (g *Gate) FreezeGlobalState(caller ed25519.PublicKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.config.IsFreezeAuthority(caller) {
		return ErrOnlyFreezeAuthority
	}

	g.config.Frozen = true
	g.log.WithField("caller", base58.Encode(caller)).Warn("global state frozen")
	return nil
}

// ThawGlobalState may only be called by a thaw authority.
func (g *Gate) ThawGlobalState(caller ed25519.PublicKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.config.IsThawAuthority(caller) {
		return ErrOnlyThawAuthority
	}

	g.config.Frozen = false
	g.log.WithField("caller", base58.Encode(caller)).Info("global state thawed")
	return nil
}

func addToSet(set map[string]ed25519.PublicKey, key ed25519.PublicKey) error {
	if len(key) != ed25519.PublicKeySize {
		return errors.Wrap(ErrInvalidParameter, "invalid authority")
	}

	set[base58.Encode(key)] = clonePublicKey(key)
	return nil
}

func removeFromSet(set map[string]ed25519.PublicKey, key ed25519.PublicKey) error {
	encoded := base58.Encode(key)
	if _, ok := set[encoded]; !ok {
		return errors.Wrap(ErrInvalidParameter, "authority not found")
	}

	delete(set, encoded)
	return nil
}
