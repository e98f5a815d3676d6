package lifecycle

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/marsprotocol/vault-engine/pkg/lock"
	"github.com/marsprotocol/vault-engine/pkg/mars/authority"
	"github.com/marsprotocol/vault-engine/pkg/mars/data/position"
	"github.com/marsprotocol/vault-engine/pkg/mars/fee"
	"github.com/marsprotocol/vault-engine/pkg/mars/protocol"
	"github.com/marsprotocol/vault-engine/pkg/mars/vault"
	"github.com/marsprotocol/vault-engine/pkg/metrics"
	"github.com/marsprotocol/vault-engine/pkg/pointer"
	"github.com/marsprotocol/vault-engine/pkg/retry"
	"github.com/marsprotocol/vault-engine/pkg/retry/backoff"
	"github.com/marsprotocol/vault-engine/pkg/solana"
	"github.com/marsprotocol/vault-engine/pkg/solana/marsvault"
	"github.com/marsprotocol/vault-engine/pkg/sync"
)

const (
	metricsStructName = "lifecycle.engine"
)

// Result is the outcome of a phase transition. Skip is set when the external
// protocol reported the phase as already done.
type Result struct {
	Record    *position.Record
	Signature *solana.Signature
	Skip      error
}

// Settlement describes the fees charged by a withdraw.
type Settlement struct {
	Owner       string
	VaultId     string
	ShareAmount uint64
	TierFeeBps  uint16
	TierFee     uint64
	PlatformFee uint64
	Net         uint64
	Signature   solana.Signature
}

// Engine drives positions through deposit, stake, unstake, claim and
// withdraw. Phases are separate submissions and must be driven in order.
type Engine struct {
	log  *logrus.Entry
	conf *conf

	gate      *authority.Gate
	vaults    *vault.Registry
	assembler *protocol.Assembler
	positions protocol.PositionReader
	ledger    Ledger
	store     position.Store

	stripedLock *sync.StripedLock
	keyedLock   *sync.KeyedLock
	locks       lock.Manager
}

// NewEngine returns a new Engine. locks is optional and only required when
// multiple processes drive the same positions.
func NewEngine(
	gate *authority.Gate,
	vaults *vault.Registry,
	assembler *protocol.Assembler,
	positions protocol.PositionReader,
	ledger Ledger,
	store position.Store,
	locks lock.Manager,
	configProvider ConfigProvider,
) *Engine {
	conf := configProvider()

	return &Engine{
		log:         logrus.StandardLogger().WithField("type", "lifecycle/engine"),
		conf:        conf,
		gate:        gate,
		vaults:      vaults,
		assembler:   assembler,
		positions:   positions,
		ledger:      ledger,
		store:       store,
		stripedLock: sync.NewStripedLock(uint(conf.lockStripes.Get(context.Background()))),
		keyedLock:   sync.NewKeyedLock(),
		locks:       locks,
	}
}

// DepositAndStake deposits amount into the vault and stakes the minted
// shares in the farm, in a single submission.
func (e *Engine) DepositAndStake(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id, amount uint64) (res *Result, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "DepositAndStake")
	defer tracer.End()
	defer func() { tracer.OnError(err) }()

	log := e.newLog("DepositAndStake", owner, vaultId).WithField("amount", amount)

	if amount == 0 {
		return nil, errors.Wrap(ErrInvalidParameter, "amount must be positive")
	}

	if err := e.gate.CheckNotFrozen(); err != nil {
		return nil, err
	}

	unlock, err := e.lockPosition(ctx, owner, vaultId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	record, err := e.getOrNewRecord(ctx, owner, vaultId)
	if err != nil {
		return nil, err
	}

	// A confirmed deposit whose shares couldn't be read only needs them
	// resolved. Depositing again would move the funds twice.
	if record.SharesPending() {
		log.Info("resuming share resolution of a confirmed deposit")

		state, err := e.vaults.Get(vaultId)
		if err != nil {
			return nil, err
		}
		return e.resolveStakedShares(ctx, log, owner, state, record, nil)
	}

	if record.Phase != position.PhaseIdle && record.Phase != position.PhaseWithdrawn {
		return nil, errors.Wrapf(ErrInvalidPhase, "cannot deposit in phase %s", record.Phase)
	}

	state, err := e.vaults.Get(vaultId)
	if err != nil {
		return nil, err
	}

	deposit, err := e.assembler.Assemble(ctx, &protocol.QuoteRequest{
		Kind:   protocol.OperationKindDeposit,
		Amount: amount,
		Asset:  state.BaseMint,
		User:   owner,
	})
	if err != nil {
		return nil, err
	}

	named, err := prefixKeys(
		deposit,
		protocol.RoleUserTokenAccount,
		protocol.RoleVaultState,
		protocol.RoleTokenVault,
		protocol.RoleTokenMint,
		protocol.RoleVaultAuthority,
		protocol.RoleSharesMint,
		protocol.RoleUserSharesAccount,
		protocol.RoleLendingProgram,
	)
	if err != nil {
		return nil, err
	}

	// Amount zero stakes the full share balance, which isn't known until the
	// deposit executes.
	stake, err := e.assembler.Assemble(ctx, &protocol.QuoteRequest{
		Kind:  protocol.OperationKindStakeInFarm,
		Asset: state.BaseMint,
		User:  owner,
	})
	if err != nil {
		return nil, err
	}

	// The farm balance is per owner and mint, and a mint can back several
	// vaults, so this deposit's shares are the balance change it causes.
	baseline, err := e.readStakedShares(ctx, owner, state.BaseMint)
	if err != nil {
		return nil, errors.Wrap(err, "error reading staked shares before deposit")
	}

	depositIxn := marsvault.NewDepositInstruction(
		&marsvault.DepositInstructionAccounts{
			User:                   owner,
			GlobalConfig:           state.Accounts.GlobalConfig,
			VaultState:             state.Accounts.VaultState,
			VaultTreasury:          state.Accounts.VaultTreasury,
			UserBaseToken:          named[0],
			FeeTiers:               state.Accounts.FeeTiers,
			ExternalProgram:        deposit.Program,
			ExternalVaultState:     named[1],
			ExternalTokenVault:     named[2],
			ExternalTokenMint:      named[3],
			ExternalVaultAuthority: named[4],
			ExternalSharesMint:     named[5],
			UserSharesToken:        named[6],
			ExternalLendingProgram: named[7],
			RemainingAccounts:      deposit.Remaining,
		},
		&marsvault.DepositInstructionArgs{
			Amount:         amount,
			AdditionalData: deposit.Data,
		},
	)

	sig, err := e.submitAndConfirm(ctx, log, owner, depositIxn, stake.Instruction())
	if err != nil {
		return nil, err
	}

	// Persist the confirmed deposit before anything else can fail.
	record.Phase = position.PhaseStaked
	record.SharesAmount = 0
	record.StakeBaseline = baseline
	record.ExitRequested = false
	record.LastSignature = pointer.String(sig.String())
	if err := e.store.Save(ctx, record); err != nil {
		log.WithError(err).WithField("signature", sig.String()).Error("failure saving confirmed deposit")
		return nil, err
	}

	return e.resolveStakedShares(ctx, log, owner, state, record, &sig)
}

// resolveStakedShares sets the shares of a confirmed deposit from the farm
// balance change since the deposit's baseline.
func (e *Engine) resolveStakedShares(
	ctx context.Context,
	log *logrus.Entry,
	owner ed25519.PublicKey,
	state *vault.State,
	record *position.Record,
	sig *solana.Signature,
) (*Result, error) {
	balance, err := e.readStakedShares(ctx, owner, state.BaseMint)
	if err != nil {
		log.WithError(err).Warn("failure reading staked shares after deposit")
		return nil, errors.Wrapf(ErrSharesUnresolved, "error reading staked shares: %v", err)
	}
	if balance <= record.StakeBaseline {
		log.WithFields(logrus.Fields{
			"balance":  balance,
			"baseline": record.StakeBaseline,
		}).Warn("no shares staked by confirmed deposit")
		return nil, errors.Wrapf(ErrSharesUnresolved, "balance %d hasn't grown past %d", balance, record.StakeBaseline)
	}

	shares := balance - record.StakeBaseline

	record.SharesAmount = shares
	record.StakeBaseline = 0
	if err := e.store.Save(ctx, record); err != nil {
		log.WithError(err).Warn("failure saving position")
		return nil, err
	}

	if err := e.vaults.AddShares(state.VaultId, int64(shares)); err != nil {
		log.WithError(err).Warn("failure updating vault share count")
	}

	recordPhaseEvent(ctx, record, protocol.OperationKindDeposit, false)
	log.WithField("shares", shares).Info("position staked")

	return &Result{Record: record, Signature: sig}, nil
}

// StartUnstake requests an unstake of every staked share. A position that
// already requested its unstake is skipped with ErrNothingToUnstake.
func (e *Engine) StartUnstake(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id) (res *Result, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "StartUnstake")
	defer tracer.End()
	defer func() { tracer.OnError(err) }()

	return e.transition(
		ctx,
		owner,
		vaultId,
		protocol.OperationKindStartUnstake,
		position.PhaseStaked,
		position.PhaseUnstakeRequested,
	)
}

// ClaimUnstake claims shares whose unstake cool down has passed. A position
// that already claimed is skipped with ErrNothingToWithdraw.
func (e *Engine) ClaimUnstake(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id) (res *Result, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ClaimUnstake")
	defer tracer.End()
	defer func() { tracer.OnError(err) }()

	return e.transition(
		ctx,
		owner,
		vaultId,
		protocol.OperationKindUnstake,
		position.PhaseUnstakeRequested,
		position.PhaseUnstakeClaimable,
	)
}

func (e *Engine) transition(
	ctx context.Context,
	owner ed25519.PublicKey,
	vaultId vault.Id,
	kind protocol.OperationKind,
	from, to position.Phase,
) (*Result, error) {
	log := e.newLog(kind.String(), owner, vaultId)

	unlock, err := e.lockPosition(ctx, owner, vaultId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	record, err := e.getRecord(ctx, owner, vaultId)
	if err != nil {
		return nil, err
	}

	if record.SharesPending() {
		return nil, errors.Wrap(ErrSharesUnresolved, "deposit must be resumed first")
	}

	switch record.Phase {
	case from:
	case to:
		log.Info("phase already completed, skipping")
		return &Result{Record: record, Skip: skipFor(kind)}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidPhase, "cannot %s in phase %s", kind, record.Phase)
	}

	state, err := e.vaults.Get(vaultId)
	if err != nil {
		return nil, err
	}

	req := &protocol.QuoteRequest{
		Kind:   kind,
		Amount: record.SharesAmount,
		Asset:  state.BaseMint,
		User:   owner,
	}
	if kind == protocol.OperationKindStartUnstake {
		req.Slot, err = e.ledger.GetSlot(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "error getting freshness slot")
		}
	}

	var sig *solana.Signature
	var skip error

	assembled, err := e.assembler.Assemble(ctx, req)
	if err == nil {
		var submitted solana.Signature
		submitted, err = e.submitAndConfirm(ctx, log, owner, assembled.Instruction())
		if err == nil {
			sig = &submitted
		}
	}

	if isSkipFor(kind, err) {
		log.WithError(err).Info("external protocol reports phase already done, skipping")
		skip = err
	} else if err != nil {
		return nil, err
	}

	record.Phase = to
	if sig != nil {
		record.LastSignature = pointer.String(sig.String())
	}
	if err := e.store.Save(ctx, record); err != nil {
		log.WithError(err).Warn("failure saving position")
		return nil, err
	}

	recordPhaseEvent(ctx, record, kind, skip != nil)
	log.WithField("phase", to.String()).Info("position advanced")

	return &Result{Record: record, Signature: sig, Skip: skip}, nil
}

// Withdraw burns shareAmount claimed shares, charging the tier fee and the
// vault's platform fee. A full withdraw returns the position to idle.
func (e *Engine) Withdraw(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id, shareAmount uint64) (settlement *Settlement, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Withdraw")
	defer tracer.End()
	defer func() { tracer.OnError(err) }()

	log := e.newLog("Withdraw", owner, vaultId).WithField("share_amount", shareAmount)

	if shareAmount == 0 {
		return nil, errors.Wrap(ErrInvalidParameter, "share amount must be positive")
	}

	if err := e.gate.CheckNotFrozen(); err != nil {
		return nil, err
	}

	unlock, err := e.lockPosition(ctx, owner, vaultId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	record, err := e.getRecord(ctx, owner, vaultId)
	if err != nil {
		return nil, err
	}

	if record.Phase != position.PhaseUnstakeClaimable {
		return nil, errors.Wrapf(ErrInvalidPhase, "cannot withdraw in phase %s", record.Phase)
	}
	if shareAmount > record.SharesAmount {
		return nil, errors.Wrapf(ErrInvalidParameter, "share amount %d exceeds position shares %d", shareAmount, record.SharesAmount)
	}

	state, err := e.vaults.Get(vaultId)
	if err != nil {
		return nil, err
	}

	tierFeeBps, err := fee.ResolveFee(shareAmount, e.gate.FeeTiers())
	if err != nil {
		return nil, err
	}
	tierFee := fee.ComputeFee(shareAmount, tierFeeBps)
	platformFee := state.PlatformFee(shareAmount)
	if tierFee > shareAmount-platformFee {
		return nil, errors.Wrapf(ErrInvalidParameter, "fees exceed share value %d", shareAmount)
	}

	assembled, err := e.assembler.Assemble(ctx, &protocol.QuoteRequest{
		Kind:   protocol.OperationKindWithdraw,
		Amount: shareAmount,
		Asset:  state.BaseMint,
		User:   owner,
	})
	if err != nil {
		return nil, err
	}

	named, err := prefixKeys(
		assembled,
		protocol.RoleUserTokenAccount,
		protocol.RoleVaultState,
		protocol.RoleGlobalConfig,
		protocol.RoleTokenVault,
		protocol.RoleVaultAuthority,
		protocol.RoleTokenMint,
		protocol.RoleUserSharesAccount,
		protocol.RoleSharesMint,
	)
	if err != nil {
		return nil, err
	}

	withdrawIxn := marsvault.NewWithdrawInstruction(
		&marsvault.WithdrawInstructionAccounts{
			User:                   owner,
			GlobalConfig:           state.Accounts.GlobalConfig,
			VaultState:             state.Accounts.VaultState,
			VaultTreasury:          state.Accounts.VaultTreasury,
			UserBaseToken:          named[0],
			FeeTiers:               state.Accounts.FeeTiers,
			PlatformFeeWallet:      e.gate.PlatformFeeWallet(),
			ExternalProgram:        assembled.Program,
			ExternalVaultState:     named[1],
			ExternalGlobalConfig:   named[2],
			ExternalTokenVault:     named[3],
			ExternalVaultAuthority: named[4],
			ExternalTokenMint:      named[5],
			UserSharesToken:        named[6],
			ExternalSharesMint:     named[7],
			RemainingAccounts:      assembled.Remaining,
		},
		&marsvault.WithdrawInstructionArgs{
			ShareAmount:    shareAmount,
			TierFee:        tierFee,
			PlatformFee:    platformFee,
			AdditionalData: assembled.Data,
		},
	)

	sig, err := e.submitAndConfirm(ctx, log, owner, withdrawIxn)
	if err != nil {
		return nil, err
	}

	settlement = &Settlement{
		Owner:       record.Owner,
		VaultId:     record.VaultId,
		ShareAmount: shareAmount,
		TierFeeBps:  tierFeeBps,
		TierFee:     tierFee,
		PlatformFee: platformFee,
		Net:         shareAmount - tierFee - platformFee,
		Signature:   sig,
	}

	record.SharesAmount -= shareAmount
	record.LastSignature = pointer.String(sig.String())
	if record.SharesAmount == 0 {
		// Withdrawn is re-entered as idle so the owner can start a new cycle.
		record.Phase = position.PhaseIdle
		record.ExitRequested = false
	}
	if err := e.store.Save(ctx, record); err != nil {
		log.WithError(err).Warn("failure saving position")
		return nil, err
	}

	if err := e.vaults.AddShares(vaultId, -int64(shareAmount)); err != nil {
		log.WithError(err).Warn("failure updating vault share count")
	}

	recordSettlementEvent(ctx, settlement)
	recordPhaseEvent(ctx, record, protocol.OperationKindWithdraw, false)
	log.WithFields(logrus.Fields{
		"tier_fee_bps": tierFeeBps,
		"tier_fee":     tierFee,
		"platform_fee": platformFee,
		"net":          settlement.Net,
	}).Info("position withdrawn")

	return settlement, nil
}

// Drive runs the remaining exit phases of a position strictly in order:
// StartUnstake, ClaimUnstake then Withdraw. A shareAmount of zero withdraws
// every share. Driving stops at the first failure, leaving the position in
// the last phase that completed.
func (e *Engine) Drive(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id, shareAmount uint64) (*Settlement, error) {
	record, err := e.getRecord(ctx, owner, vaultId)
	if err != nil {
		return nil, err
	}

	switch record.Phase {
	case position.PhaseStaked:
		if _, err := e.StartUnstake(ctx, owner, vaultId); err != nil {
			return nil, err
		}
		fallthrough
	case position.PhaseUnstakeRequested:
		if _, err := e.ClaimUnstake(ctx, owner, vaultId); err != nil {
			return nil, err
		}
		fallthrough
	case position.PhaseUnstakeClaimable:
		if shareAmount == 0 {
			record, err = e.getRecord(ctx, owner, vaultId)
			if err != nil {
				return nil, err
			}
			shareAmount = record.SharesAmount
		}
		return e.Withdraw(ctx, owner, vaultId, shareAmount)
	}

	return nil, errors.Wrapf(ErrInvalidPhase, "nothing to drive in phase %s", record.Phase)
}

// RequestExit flags a staked position to be driven out by the position
// worker.
func (e *Engine) RequestExit(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id) (*position.Record, error) {
	unlock, err := e.lockPosition(ctx, owner, vaultId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	record, err := e.getRecord(ctx, owner, vaultId)
	if err != nil {
		return nil, err
	}

	switch record.Phase {
	case position.PhaseStaked, position.PhaseUnstakeRequested, position.PhaseUnstakeClaimable:
	default:
		return nil, errors.Wrapf(ErrInvalidPhase, "cannot exit in phase %s", record.Phase)
	}
	if record.SharesPending() {
		return nil, errors.Wrap(ErrSharesUnresolved, "deposit must be resumed first")
	}

	if record.ExitRequested {
		return record, nil
	}

	record.ExitRequested = true
	if err := e.store.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetPosition returns the owner's position in a vault.
func (e *Engine) GetPosition(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id) (*position.Record, error) {
	return e.getRecord(ctx, owner, vaultId)
}

// submitAndConfirm submits the instructions and waits for a definitive
// outcome. Once submitted, the wait is detached from ctx cancellation and
// bounded only by the confirmation poll limit.
func (e *Engine) submitAndConfirm(ctx context.Context, log *logrus.Entry, payer ed25519.PublicKey, instructions ...solana.Instruction) (solana.Signature, error) {
	sig, err := e.ledger.Submit(ctx, payer, instructions...)
	if err != nil {
		log.WithError(err).Info("submission rejected")
		return sig, err
	}

	log = log.WithField("signature", sig.String())

	waitCtx := context.WithoutCancel(ctx)
	limit := e.conf.confirmationPollLimit.Get(waitCtx)
	interval := e.conf.confirmationPollInterval.Get(waitCtx)

	for i := uint64(0); i < limit; i++ {
		if i > 0 {
			time.Sleep(interval)
		}

		outcome, err := e.ledger.GetOutcome(waitCtx, sig)
		if err == ErrOutcomePending {
			continue
		} else if err != nil {
			log.WithError(err).Warn("failure getting submission outcome")
			continue
		}

		if outcome.Err != nil {
			log.WithError(outcome.Err).Info("submission failed")
			return sig, outcome.Err
		}

		log.WithField("slot", outcome.Slot).Debug("submission confirmed")
		return sig, nil
	}

	log.Warn("submission outcome unknown after poll limit")
	return sig, errors.Wrapf(ErrConfirmationTimeout, "signature %s", sig)
}

func (e *Engine) readStakedShares(ctx context.Context, owner, asset ed25519.PublicKey) (uint64, error) {
	var shares uint64
	_, err := retry.Retry(
		func() error {
			var err error
			shares, err = e.positions.StakedShares(ctx, owner, asset)
			return err
		},
		retry.Limit(3),
		retry.Context(ctx),
		retry.Backoff(backoff.Constant(e.conf.confirmationPollInterval.Get(ctx)), time.Minute),
	)
	return shares, err
}

// lockPosition excludes concurrent transitions of the same position, in
// process and, when a lock.Manager is configured, across processes. The
// distributed lock is taken under a per position mutex, so positions sharing
// a stripe don't wait on each other's network round trips.
func (e *Engine) lockPosition(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id) (func(), error) {
	key := positionKey(owner, vaultId)

	if e.locks == nil {
		mu := e.stripedLock.Get([]byte(key))
		mu.Lock()
		return mu.Unlock, nil
	}

	// Locks created from one etcd session don't exclude each other.
	unlockLocal := e.keyedLock.Lock(key)

	distributed, err := e.locks.Create(ctx, key)
	if err != nil {
		unlockLocal()
		return nil, errors.Wrap(err, "error creating position lock")
	}

	if _, err := distributed.Acquire(ctx); err != nil {
		unlockLocal()
		return nil, errors.Wrap(err, "error acquiring position lock")
	}

	return func() {
		if err := distributed.Unlock(context.Background()); err != nil {
			e.log.WithError(err).WithField("key", key).Warn("failure releasing position lock")
		}
		unlockLocal()
	}, nil
}

// prefixKeys returns the key filling each role of a quote's fixed prefix.
// The vault program needs every one of them as a named account.
func prefixKeys(assembled *protocol.Assembled, roles ...protocol.Role) ([]ed25519.PublicKey, error) {
	keys := make([]ed25519.PublicKey, len(roles))
	for i, role := range roles {
		account, ok := assembled.Account(role)
		if !ok {
			return nil, errors.Wrapf(protocol.ErrMalformedExternalInstruction, "%s quote has no %s account", assembled.Kind, role)
		}
		keys[i] = account.PublicKey
	}
	return keys, nil
}

func (e *Engine) getRecord(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id) (*position.Record, error) {
	record, err := e.store.Get(ctx, base58.Encode(owner), vaultId.String())
	if err == position.ErrNotFound {
		return nil, ErrPositionNotFound
	}
	return record, err
}

func (e *Engine) getOrNewRecord(ctx context.Context, owner ed25519.PublicKey, vaultId vault.Id) (*position.Record, error) {
	record, err := e.getRecord(ctx, owner, vaultId)
	if err == ErrPositionNotFound {
		return &position.Record{
			Owner:   base58.Encode(owner),
			VaultId: vaultId.String(),
			Phase:   position.PhaseIdle,
		}, nil
	}
	return record, err
}

func (e *Engine) newLog(method string, owner ed25519.PublicKey, vaultId vault.Id) *logrus.Entry {
	return e.log.WithFields(logrus.Fields{
		"method":  method,
		"owner":   base58.Encode(owner),
		"vault":   vaultId.String(),
		"attempt": uuid.New().String(),
	})
}

func positionKey(owner ed25519.PublicKey, vaultId vault.Id) string {
	return "position/" + vaultId.String() + "/" + base58.Encode(owner)
}
