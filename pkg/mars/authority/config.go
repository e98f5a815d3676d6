package authority

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/marsprotocol/vault-engine/pkg/mars/fee"
)

var (
	ErrOnlyAdmin           = errors.New("only the admin may perform this operation")
	ErrInvalidAdmin        = errors.New("caller is not the nominated admin")
	ErrNoPendingAdmin      = errors.New("no admin nomination is pending")
	ErrOnlyFreezeAuthority = errors.New("only a freeze authority may freeze global state")
	ErrOnlyThawAuthority   = errors.New("only a thaw authority may thaw global state")
	ErrInvalidParameter    = fee.ErrInvalidParameter
	ErrGlobalStateFrozen   = errors.New("global state is frozen")
)

// GlobalConfig is the singleton configuration aggregate for every vault.
type GlobalConfig struct {
	Admin        ed25519.PublicKey
	PendingAdmin ed25519.PublicKey

	FreezeAuthorities map[string]ed25519.PublicKey
	ThawAuthorities   map[string]ed25519.PublicKey

	PlatformFeeWallet ed25519.PublicKey

	Frozen bool

	// MinimumFees is keyed by destination chain id.
	MinimumFees map[uint32]uint64

	SlippageBps      uint16
	InsuranceFundBps uint16
	MaxGasPrice      uint64

	FeeTiers          fee.Table
	InsuranceFeeTiers fee.Table
}

// Initialize creates the global config at bootstrap.
func Initialize(admin, platformFeeWallet ed25519.PublicKey, maxGasPrice uint64) (*GlobalConfig, error) {
	if len(admin) != ed25519.PublicKeySize {
		return nil, errors.Wrap(ErrInvalidParameter, "invalid admin")
	}
	if len(platformFeeWallet) != ed25519.PublicKeySize {
		return nil, errors.Wrap(ErrInvalidParameter, "invalid platform fee wallet")
	}
	if maxGasPrice == 0 {
		return nil, errors.Wrap(ErrInvalidParameter, "max gas price must be positive")
	}

	return &GlobalConfig{
		Admin:             clonePublicKey(admin),
		FreezeAuthorities: make(map[string]ed25519.PublicKey),
		ThawAuthorities:   make(map[string]ed25519.PublicKey),
		PlatformFeeWallet: clonePublicKey(platformFeeWallet),
		MinimumFees:       make(map[uint32]uint64),
		MaxGasPrice:       maxGasPrice,
	}, nil
}

func (c *GlobalConfig) IsAdmin(caller ed25519.PublicKey) bool {
	return bytes.Equal(c.Admin, caller)
}

func (c *GlobalConfig) IsFreezeAuthority(caller ed25519.PublicKey) bool {
	_, ok := c.FreezeAuthorities[base58.Encode(caller)]
	return ok
}

func (c *GlobalConfig) IsThawAuthority(caller ed25519.PublicKey) bool {
	_, ok := c.ThawAuthorities[base58.Encode(caller)]
	return ok
}

func (c *GlobalConfig) Clone() *GlobalConfig {
	cloned := &GlobalConfig{
		Admin:             clonePublicKey(c.Admin),
		PendingAdmin:      clonePublicKey(c.PendingAdmin),
		FreezeAuthorities: make(map[string]ed25519.PublicKey, len(c.FreezeAuthorities)),
		ThawAuthorities:   make(map[string]ed25519.PublicKey, len(c.ThawAuthorities)),
		PlatformFeeWallet: clonePublicKey(c.PlatformFeeWallet),
		Frozen:            c.Frozen,
		MinimumFees:       make(map[uint32]uint64, len(c.MinimumFees)),
		SlippageBps:       c.SlippageBps,
		InsuranceFundBps:  c.InsuranceFundBps,
		MaxGasPrice:       c.MaxGasPrice,
		FeeTiers:          c.FeeTiers.Clone(),
		InsuranceFeeTiers: c.InsuranceFeeTiers.Clone(),
	}

	for k, v := range c.FreezeAuthorities {
		cloned.FreezeAuthorities[k] = clonePublicKey(v)
	}
	for k, v := range c.ThawAuthorities {
		cloned.ThawAuthorities[k] = clonePublicKey(v)
	}
	for k, v := range c.MinimumFees {
		cloned.MinimumFees[k] = v
	}

	return cloned
}

func clonePublicKey(key ed25519.PublicKey) ed25519.PublicKey {
	if key == nil {
		return nil
	}

	cloned := make(ed25519.PublicKey, len(key))
	copy(cloned, key)
	return cloned
}
