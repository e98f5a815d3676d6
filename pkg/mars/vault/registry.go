package vault

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/marsprotocol/vault-engine/pkg/mars/authority"
	"github.com/marsprotocol/vault-engine/pkg/mars/fee"
	"github.com/marsprotocol/vault-engine/pkg/metrics"
	"github.com/marsprotocol/vault-engine/pkg/solana"
	"github.com/marsprotocol/vault-engine/pkg/solana/marsvault"
)

const (
	metricsStructName = "vault.registry"
)

// Registry holds every known vault. Admin operations are gated by the
// global config's admin.
type Registry struct {
	log  *logrus.Entry
	gate *authority.Gate

	mu     sync.RWMutex
	vaults map[Id]*State
}

func NewRegistry(gate *authority.Gate) *Registry {
	return &Registry{
		log:    logrus.StandardLogger().WithField("type", "vault/registry"),
		gate:   gate,
		vaults: make(map[Id]*State),
	}
}

// InitializeVault creates a vault with zero shares, deriving its state and
// treasury addresses from vaultId.
func (r *Registry) InitializeVault(
	ctx context.Context,
	caller ed25519.PublicKey,
	vaultId Id,
	platformFeeBps uint16,
	baseMint, sharesMint ed25519.PublicKey,
) (*State, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "InitializeVault")
	defer tracer.End()

	log := r.log.WithFields(logrus.Fields{
		"method": "InitializeVault",
		"vault":  vaultId.String(),
	})

	state, err := r.NewState(caller, vaultId, platformFeeBps, baseMint, sharesMint)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vaults[vaultId]; ok {
		return nil, ErrVaultExists
	}
	r.vaults[vaultId] = state

	log.WithField("platform_fee_bps", platformFeeBps).Info("vault initialized")

	return state.Clone(), nil
}

// NewState validates a vault initialization and returns the state it would
// create, without registering it.
func (r *Registry) NewState(
	caller ed25519.PublicKey,
	vaultId Id,
	platformFeeBps uint16,
	baseMint, sharesMint ed25519.PublicKey,
) (*State, error) {
	if !r.gate.IsAdmin(caller) {
		return nil, authority.ErrOnlyAdmin
	}

	if platformFeeBps > fee.MaxBps {
		return nil, errors.Wrapf(ErrInvalidParameter, "platform fee bps %d exceeds %d", platformFeeBps, fee.MaxBps)
	}
	if len(baseMint) != ed25519.PublicKeySize || len(sharesMint) != ed25519.PublicKeySize {
		return nil, errors.Wrap(ErrInvalidParameter, "invalid mint")
	}
	if bytes.Equal(baseMint, sharesMint) {
		return nil, errors.Wrap(ErrInvalidParameter, "base and shares mint must differ")
	}

	r.mu.RLock()
	_, exists := r.vaults[vaultId]
	r.mu.RUnlock()
	if exists {
		return nil, ErrVaultExists
	}

	accounts, err := marsvault.DeriveVaultAccounts(vaultId)
	if err != nil {
		r.log.WithError(err).WithField("vault", vaultId.String()).Warn("failure deriving vault accounts")
		return nil, err
	}

	return &State{
		Admin:          append(ed25519.PublicKey(nil), caller...),
		VaultId:        vaultId,
		PlatformFeeBps: platformFeeBps,
		TotalShares:    0,
		BaseMint:       append(ed25519.PublicKey(nil), baseMint...),
		SharesMint:     append(ed25519.PublicKey(nil), sharesMint...),
		Accounts:       accounts,
	}, nil
}

// UpdateVaultPlatformFee sets a vault's platform fee.
func (r *Registry) UpdateVaultPlatformFee(ctx context.Context, caller ed25519.PublicKey, vaultId Id, platformFeeBps uint16) (*State, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "UpdateVaultPlatformFee")
	defer tracer.End()

	if !r.gate.IsAdmin(caller) {
		return nil, authority.ErrOnlyAdmin
	}

	if platformFeeBps > fee.MaxBps {
		return nil, errors.Wrapf(ErrInvalidParameter, "platform fee bps %d exceeds %d", platformFeeBps, fee.MaxBps)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.vaults[vaultId]
	if !ok {
		return nil, ErrVaultNotFound
	}

	previous := state.PlatformFeeBps
	state.PlatformFeeBps = platformFeeBps

	r.log.WithFields(logrus.Fields{
		"method":   "UpdateVaultPlatformFee",
		"vault":    vaultId.String(),
		"previous": previous,
		"current":  platformFeeBps,
	}).Info("vault platform fee updated")

	return state.Clone(), nil
}

// Get returns a copy of the vault's state.
func (r *Registry) Get(vaultId Id) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.vaults[vaultId]
	if !ok {
		return nil, ErrVaultNotFound
	}
	return state.Clone(), nil
}

// Load refreshes a vault from its on chain state account, adding it to the
// registry if it isn't already known.
func (r *Registry) Load(ctx context.Context, client solana.Client, vaultId Id) (*State, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Load")
	defer tracer.End()

	accounts, err := marsvault.DeriveVaultAccounts(vaultId)
	if err != nil {
		return nil, err
	}

	info, err := client.GetAccountInfo(accounts.VaultState, solana.CommitmentFinalized)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrVaultNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting vault state account")
	}

	if !bytes.Equal(info.Owner, marsvault.PROGRAM_ID) {
		return nil, marsvault.ErrInvalidProgram
	}

	var account marsvault.VaultStateAccount
	if err := account.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	if account.VaultId != vaultId {
		return nil, errors.Wrap(marsvault.ErrInvalidAccountData, "vault id mismatch")
	}

	state := &State{
		Admin:          account.Admin,
		VaultId:        account.VaultId,
		PlatformFeeBps: account.PlatformFeeBps,
		TotalShares:    account.TotalShares,
		BaseMint:       account.BaseMint,
		SharesMint:     account.SharesMint,
		Accounts:       accounts,
	}

	r.mu.Lock()
	r.vaults[vaultId] = state
	r.mu.Unlock()

	return state.Clone(), nil
}

// AddShares adjusts a vault's outstanding share count after a deposit or
// withdraw lands.
func (r *Registry) AddShares(vaultId Id, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.vaults[vaultId]
	if !ok {
		return ErrVaultNotFound
	}

	if delta < 0 {
		decrease := uint64(-delta)
		if decrease > state.TotalShares {
			return errors.Wrapf(ErrInvalidParameter, "cannot remove %d shares from %d", decrease, state.TotalShares)
		}
		state.TotalShares -= decrease
	} else {
		state.TotalShares += uint64(delta)
	}

	return nil
}
