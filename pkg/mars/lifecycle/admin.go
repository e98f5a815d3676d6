package lifecycle

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/marsprotocol/vault-engine/pkg/mars/authority"
	"github.com/marsprotocol/vault-engine/pkg/mars/fee"
	"github.com/marsprotocol/vault-engine/pkg/mars/vault"
	"github.com/marsprotocol/vault-engine/pkg/metrics"
	"github.com/marsprotocol/vault-engine/pkg/solana"
	"github.com/marsprotocol/vault-engine/pkg/solana/marsvault"
)

// The admin operations below submit their instruction with the caller as the
// payer and only update in memory state once the submission is confirmed.

// InitializeVault creates the vault on chain and registers it.
func (e *Engine) InitializeVault(
	ctx context.Context,
	caller ed25519.PublicKey,
	vaultId vault.Id,
	platformFeeBps uint16,
	baseMint, sharesMint ed25519.PublicKey,
) (state *vault.State, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "InitializeVault")
	defer tracer.End()
	defer func() { tracer.OnError(err) }()

	log := e.newAdminLog("InitializeVault", caller).WithField("vault", vaultId.String())

	prepared, err := e.vaults.NewState(caller, vaultId, platformFeeBps, baseMint, sharesMint)
	if err != nil {
		return nil, err
	}

	if _, err := e.submitAndConfirm(ctx, log, caller, prepared.NewInitializeInstruction()); err != nil {
		return nil, err
	}

	return e.vaults.InitializeVault(ctx, caller, vaultId, platformFeeBps, baseMint, sharesMint)
}

// UpdateVaultPlatformFee sets a vault's platform fee on chain and in the
// registry.
func (e *Engine) UpdateVaultPlatformFee(ctx context.Context, caller ed25519.PublicKey, vaultId vault.Id, platformFeeBps uint16) (state *vault.State, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "UpdateVaultPlatformFee")
	defer tracer.End()
	defer func() { tracer.OnError(err) }()

	log := e.newAdminLog("UpdateVaultPlatformFee", caller).WithFields(logrus.Fields{
		"vault":            vaultId.String(),
		"platform_fee_bps": platformFeeBps,
	})

	if !e.gate.IsAdmin(caller) {
		return nil, authority.ErrOnlyAdmin
	}
	if platformFeeBps > fee.MaxBps {
		return nil, errors.Wrapf(ErrInvalidParameter, "platform fee bps %d exceeds %d", platformFeeBps, fee.MaxBps)
	}

	current, err := e.vaults.Get(vaultId)
	if err != nil {
		return nil, err
	}
	current.PlatformFeeBps = platformFeeBps

	if _, err := e.submitAndConfirm(ctx, log, caller, current.NewUpdatePlatformFeeInstruction(caller)); err != nil {
		return nil, err
	}

	return e.vaults.UpdateVaultPlatformFee(ctx, caller, vaultId, platformFeeBps)
}

// SetFeeTiers replaces the withdraw fee tier table on chain and in the gate.
func (e *Engine) SetFeeTiers(ctx context.Context, caller ed25519.PublicKey, thresholds []uint64, feesBps []uint16) (err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SetFeeTiers")
	defer tracer.End()
	defer func() { tracer.OnError(err) }()

	return e.setTiers(ctx, "SetFeeTiers", caller, thresholds, feesBps, false)
}

// SetInsuranceFeeTiers replaces the insurance fee tier table on chain and in
// the gate.
func (e *Engine) SetInsuranceFeeTiers(ctx context.Context, caller ed25519.PublicKey, thresholds []uint64, feesBps []uint16) (err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SetInsuranceFeeTiers")
	defer tracer.End()
	defer func() { tracer.OnError(err) }()

	return e.setTiers(ctx, "SetInsuranceFeeTiers", caller, thresholds, feesBps, true)
}

func (e *Engine) setTiers(
	ctx context.Context,
	method string,
	caller ed25519.PublicKey,
	thresholds []uint64,
	feesBps []uint16,
	insurance bool,
) error {
	log := e.newAdminLog(method, caller)

	if !e.gate.IsAdmin(caller) {
		return authority.ErrOnlyAdmin
	}

	table, err := fee.NewTable(thresholds, feesBps)
	if err != nil {
		return err
	}

	globalConfig, _, err := marsvault.GetGlobalConfigAddress()
	if err != nil {
		return err
	}

	var tiersAddress ed25519.PublicKey
	if insurance {
		tiersAddress, _, err = marsvault.GetInsuranceFeeTiersAddress()
	} else {
		tiersAddress, _, err = marsvault.GetFeeTiersAddress()
	}
	if err != nil {
		return err
	}

	accounts := &marsvault.SetFeeTiersInstructionAccounts{
		Admin:        caller,
		GlobalConfig: globalConfig,
		FeeTiers:     tiersAddress,
	}
	args := &marsvault.SetFeeTiersInstructionArgs{
		Thresholds: table.Thresholds(),
		FeesBps:    table.FeesBps(),
	}

	var ixn solana.Instruction
	if insurance {
		ixn = marsvault.NewSetInsuranceFeeTiersInstruction(accounts, args)
	} else {
		ixn = marsvault.NewSetFeeTiersInstruction(accounts, args)
	}

	if _, err := e.submitAndConfirm(ctx, log, caller, ixn); err != nil {
		return err
	}

	if insurance {
		return e.gate.SetInsuranceFeeTiers(caller, args.Thresholds, args.FeesBps)
	}
	return e.gate.SetFeeTiers(caller, args.Thresholds, args.FeesBps)
}

func (e *Engine) newAdminLog(method string, caller ed25519.PublicKey) *logrus.Entry {
	return e.log.WithFields(logrus.Fields{
		"method": method,
		"caller": base58.Encode(caller),
	})
}
