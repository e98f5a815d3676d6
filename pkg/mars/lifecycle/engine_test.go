package lifecycle

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marsprotocol/vault-engine/pkg/config/memory"
	"github.com/marsprotocol/vault-engine/pkg/config/wrapper"
	"github.com/marsprotocol/vault-engine/pkg/kvault"
	memory_lock "github.com/marsprotocol/vault-engine/pkg/lock/memory"
	"github.com/marsprotocol/vault-engine/pkg/mars/authority"
	"github.com/marsprotocol/vault-engine/pkg/mars/data/position"
	memory_position_store "github.com/marsprotocol/vault-engine/pkg/mars/data/position/memory"
	"github.com/marsprotocol/vault-engine/pkg/mars/protocol"
	"github.com/marsprotocol/vault-engine/pkg/mars/vault"
	"github.com/marsprotocol/vault-engine/pkg/solana"
	"github.com/marsprotocol/vault-engine/pkg/solana/marsvault"
	"github.com/marsprotocol/vault-engine/pkg/testutil"
)

func TestDepositAndStake_HappyPath(t *testing.T) {
	env := setup(t)

	res, err := env.engine.DepositAndStake(env.ctx, env.owner, env.vaultId, 5_000_000)
	require.NoError(t, err)
	require.NotNil(t, res.Signature)
	assert.Nil(t, res.Skip)
	assert.Equal(t, position.PhaseStaked, res.Record.Phase)
	assert.EqualValues(t, 1_000_000, res.Record.SharesAmount)
	assert.Equal(t, res.Signature.String(), *res.Record.LastSignature)

	assert.Equal(t, []protocol.OperationKind{
		protocol.OperationKindDeposit,
		protocol.OperationKindStakeInFarm,
	}, env.adapter.kinds())

	// Deposit and stake land in a single submission
	submissions := env.ledger.getSubmissions()
	require.Len(t, submissions, 1)
	require.Len(t, submissions[0], 2)

	depositIxn := submissions[0][0]
	assert.EqualValues(t, marsvault.PROGRAM_ID, depositIxn.Program)
	assert.Equal(t, marsvault.DepositInstructionDiscriminator, depositIxn.Data[:8])
	assert.EqualValues(t, 5_000_000, binary.LittleEndian.Uint64(depositIxn.Data[8:16]))
	assert.EqualValues(t, env.owner, depositIxn.Accounts[0].PublicKey)
	assert.True(t, depositIxn.Accounts[0].IsSigner)

	// The quoted prefix fills the named slots and only its tail is passed
	// through
	quoted := env.adapter.quoted(protocol.OperationKindDeposit)
	require.NotNil(t, quoted)
	require.Len(t, depositIxn.Accounts, 15+len(quoted.Accounts)-9)
	assert.EqualValues(t, quoted.Accounts[6].PublicKey, depositIxn.Accounts[4].PublicKey)
	for i, quotedIndex := range []int{1, 2, 3, 4, 5, 7, 8} {
		assert.EqualValues(t, quoted.Accounts[quotedIndex].PublicKey, depositIxn.Accounts[8+i].PublicKey)
	}
	assert.Equal(t, quoted.Accounts[9:], depositIxn.Accounts[15:])
	assert.Equal(t, 1, countAccount(depositIxn, quoted.Accounts[6].PublicKey))

	stakeIxn := submissions[0][1]
	assert.EqualValues(t, kvault.FARMS_PROGRAM_ID, stakeIxn.Program)

	stored, err := env.store.Get(env.ctx, base58.Encode(env.owner), env.vaultId.String())
	require.NoError(t, err)
	assert.Equal(t, position.PhaseStaked, stored.Phase)

	state, err := env.vaults.Get(env.vaultId)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, state.TotalShares)
}

func TestDepositAndStake_Validation(t *testing.T) {
	env := setup(t)

	_, err := env.engine.DepositAndStake(env.ctx, env.owner, env.vaultId, 0)
	assert.Equal(t, ErrInvalidParameter, errors.Cause(err))

	var unknown vault.Id
	unknown[0] = 99
	_, err = env.engine.DepositAndStake(env.ctx, env.owner, unknown, 1)
	assert.Equal(t, vault.ErrVaultNotFound, err)

	// Nothing is submitted when the pre deposit balance is unknown
	readErr := errors.New("reader unavailable")
	env.reader.setErr(readErr)
	_, err = env.engine.DepositAndStake(env.ctx, env.owner, env.vaultId, 1)
	assert.Equal(t, readErr, errors.Cause(err))

	_, err = env.engine.GetPosition(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, ErrPositionNotFound, err)

	assert.Empty(t, env.ledger.getSubmissions())
}

func TestDepositAndStake_ConfirmedDepositIsNeverRepeated(t *testing.T) {
	env := setup(t)

	env.reader.setMinted(0)

	_, err := env.engine.DepositAndStake(env.ctx, env.owner, env.vaultId, 5_000_000)
	assert.Equal(t, ErrSharesUnresolved, errors.Cause(err))

	// The confirmed deposit is recorded even though its shares are unknown
	record := env.assertPhase(t, position.PhaseStaked)
	assert.True(t, record.SharesPending())
	require.NotNil(t, record.LastSignature)
	require.Len(t, env.ledger.getSubmissions(), 1)

	_, err = env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, ErrSharesUnresolved, errors.Cause(err))
	_, err = env.engine.RequestExit(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, ErrSharesUnresolved, errors.Cause(err))

	env.reader.setErr(errors.New("reader unavailable"))
	_, err = env.engine.DepositAndStake(env.ctx, env.owner, env.vaultId, 5_000_000)
	assert.Equal(t, ErrSharesUnresolved, errors.Cause(err))

	env.reader.setErr(nil)
	env.reader.setMinted(1_000_000)

	res, err := env.engine.DepositAndStake(env.ctx, env.owner, env.vaultId, 5_000_000)
	require.NoError(t, err)
	assert.Nil(t, res.Signature)
	assert.Equal(t, position.PhaseStaked, res.Record.Phase)
	assert.EqualValues(t, 1_000_000, res.Record.SharesAmount)
	assert.EqualValues(t, 0, res.Record.StakeBaseline)
	assert.Equal(t, *record.LastSignature, *res.Record.LastSignature)

	// Retries only resolved shares
	assert.Len(t, env.ledger.getSubmissions(), 1)
	assert.Equal(t, []protocol.OperationKind{
		protocol.OperationKindDeposit,
		protocol.OperationKindStakeInFarm,
	}, env.adapter.kinds())

	state, err := env.vaults.Get(env.vaultId)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, state.TotalShares)

	env.unstakeAndClaim(t)
}

func TestDepositAndStake_SharedBaseMint(t *testing.T) {
	env := setup(t)

	state, err := env.vaults.Get(env.vaultId)
	require.NoError(t, err)

	otherVaultId := vault.Id(sha256.Sum256([]byte("other-vault")))
	_, err = env.vaults.InitializeVault(env.ctx, env.admin, otherVaultId, 1000, state.BaseMint, testutil.GenerateSolanaKey(t))
	require.NoError(t, err)

	env.deposit(t)

	// The owner's farm balance for the mint now includes both deposits, but
	// each position only holds the shares its own deposit staked.
	res, err := env.engine.DepositAndStake(env.ctx, env.owner, otherVaultId, 5_000_000)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, res.Record.SharesAmount)

	record := env.assertPhase(t, position.PhaseStaked)
	assert.EqualValues(t, 1_000_000, record.SharesAmount)

	for _, vaultId := range []vault.Id{env.vaultId, otherVaultId} {
		state, err := env.vaults.Get(vaultId)
		require.NoError(t, err)
		assert.EqualValues(t, 1_000_000, state.TotalShares)
	}
}

func TestDepositAndStake_MissingNamedAccount(t *testing.T) {
	env := setup(t)

	layouts := protocol.LayoutTable{}
	for kind, layout := range kvault.Layouts {
		layouts[kind] = layout
	}
	// Drop the lending program slot the vault program needs
	layouts[protocol.OperationKindDeposit] = kvault.Layouts[protocol.OperationKindDeposit][:8]

	assembler, err := protocol.NewAssembler(newFakeAdapter(t, layouts), layouts)
	require.NoError(t, err)

	engine := NewEngine(env.gate, env.vaults, assembler, env.reader, env.ledger, env.store, nil, withTestConfigs())

	_, err = engine.DepositAndStake(env.ctx, env.owner, env.vaultId, 5_000_000)
	assert.Equal(t, protocol.ErrMalformedExternalInstruction, errors.Cause(err))
	assert.Empty(t, env.ledger.getSubmissions())
}

func TestDepositAndStake_Frozen(t *testing.T) {
	env := setup(t)

	env.deposit(t)

	require.NoError(t, env.gate.AddFreezeAuthority(env.admin, env.admin))
	require.NoError(t, env.gate.FreezeGlobalState(env.admin))

	other := testutil.GenerateSolanaKey(t)
	_, err := env.engine.DepositAndStake(env.ctx, other, env.vaultId, 5_000_000)
	assert.Equal(t, authority.ErrGlobalStateFrozen, err)

	// Unstaking is still possible while frozen
	_, err = env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)
	_, err = env.engine.ClaimUnstake(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)

	_, err = env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 1_000_000)
	assert.Equal(t, authority.ErrGlobalStateFrozen, err)
}

func TestStartUnstake_RepeatedCallIsSkipped(t *testing.T) {
	env := setup(t)

	env.deposit(t)

	res, err := env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)
	assert.Nil(t, res.Skip)
	require.NotNil(t, res.Signature)
	assert.Equal(t, position.PhaseUnstakeRequested, res.Record.Phase)
	assert.EqualValues(t, 1_000_000, res.Record.SharesAmount)

	req := env.adapter.request(protocol.OperationKindStartUnstake)
	require.NotNil(t, req)
	assert.EqualValues(t, 1_000_000, req.Amount)
	assert.EqualValues(t, 1234, req.Slot)
	assert.EqualValues(t, env.owner, req.User)

	submitted := len(env.ledger.getSubmissions())

	res, err = env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)
	assert.True(t, errors.Is(res.Skip, protocol.ErrNothingToUnstake))
	assert.Nil(t, res.Signature)
	assert.Equal(t, position.PhaseUnstakeRequested, res.Record.Phase)
	assert.EqualValues(t, 1_000_000, res.Record.SharesAmount)

	assert.Len(t, env.ledger.getSubmissions(), submitted)
}

func TestStartUnstake_ExternalSkip(t *testing.T) {
	for _, fromLedger := range []bool{false, true} {
		env := setup(t)

		env.deposit(t)

		skipErr := &protocol.Error{Kind: protocol.ErrorKindNothingToUnstake, Message: "already requested"}
		if fromLedger {
			env.ledger.setOutcomeErr(skipErr)
		} else {
			env.adapter.setErr(protocol.OperationKindStartUnstake, skipErr)
		}

		res, err := env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
		require.NoError(t, err)
		assert.True(t, errors.Is(res.Skip, protocol.ErrNothingToUnstake))
		assert.Equal(t, position.PhaseUnstakeRequested, res.Record.Phase)
		assert.EqualValues(t, 1_000_000, res.Record.SharesAmount)

		res, err = env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
		require.NoError(t, err)
		assert.True(t, errors.Is(res.Skip, protocol.ErrNothingToUnstake))
		assert.Equal(t, position.PhaseUnstakeRequested, res.Record.Phase)
		assert.EqualValues(t, 1_000_000, res.Record.SharesAmount)
	}
}

func TestClaimUnstake_ExternalSkip(t *testing.T) {
	env := setup(t)

	env.deposit(t)

	_, err := env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)

	env.ledger.setOutcomeErr(protocol.ErrNothingToWithdraw)

	res, err := env.engine.ClaimUnstake(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)
	assert.True(t, errors.Is(res.Skip, protocol.ErrNothingToWithdraw))
	assert.Equal(t, position.PhaseUnstakeClaimable, res.Record.Phase)

	res, err = env.engine.ClaimUnstake(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)
	assert.True(t, errors.Is(res.Skip, protocol.ErrNothingToWithdraw))
	assert.Equal(t, position.PhaseUnstakeClaimable, res.Record.Phase)
}

func TestClaimUnstake_OtherSkipKindPropagates(t *testing.T) {
	env := setup(t)

	env.deposit(t)

	_, err := env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)

	env.adapter.setErr(protocol.OperationKindUnstake, protocol.ErrNothingToUnstake)

	_, err = env.engine.ClaimUnstake(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, protocol.ErrNothingToUnstake, err)
	env.assertPhase(t, position.PhaseUnstakeRequested)
}

func TestWithdraw_Settlement(t *testing.T) {
	env := setup(t)

	env.deposit(t)
	env.unstakeAndClaim(t)

	settlement, err := env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 1_000_000)
	require.NoError(t, err)

	// 2500 bps platform fee on a 1,000,000 share value
	assert.EqualValues(t, 250_000, settlement.PlatformFee)
	assert.EqualValues(t, 20, settlement.TierFeeBps)
	assert.EqualValues(t, 2_000, settlement.TierFee)
	assert.EqualValues(t, 748_000, settlement.Net)
	assert.EqualValues(t, 1_000_000, settlement.ShareAmount)
	assert.Equal(t, base58.Encode(env.owner), settlement.Owner)
	assert.Equal(t, env.vaultId.String(), settlement.VaultId)

	submissions := env.ledger.getSubmissions()
	last := submissions[len(submissions)-1]
	require.Len(t, last, 1)

	withdrawIxn := last[0]
	assert.Equal(t, marsvault.WithdrawInstructionDiscriminator, withdrawIxn.Data[:8])
	assert.EqualValues(t, 1_000_000, binary.LittleEndian.Uint64(withdrawIxn.Data[8:16]))
	assert.EqualValues(t, 2_000, binary.LittleEndian.Uint64(withdrawIxn.Data[16:24]))
	assert.EqualValues(t, 250_000, binary.LittleEndian.Uint64(withdrawIxn.Data[24:32]))
	assert.EqualValues(t, env.gate.PlatformFeeWallet(), withdrawIxn.Accounts[6].PublicKey)

	// Withdraw's user token account sits at a different prefix slot than deposit's
	quoted := env.adapter.quoted(protocol.OperationKindWithdraw)
	require.NotNil(t, quoted)
	require.Len(t, withdrawIxn.Accounts, 16+len(quoted.Accounts)-9)
	assert.EqualValues(t, quoted.Accounts[5].PublicKey, withdrawIxn.Accounts[4].PublicKey)
	for i, quotedIndex := range []int{1, 2, 3, 4, 6, 7, 8} {
		assert.EqualValues(t, quoted.Accounts[quotedIndex].PublicKey, withdrawIxn.Accounts[9+i].PublicKey)
	}
	assert.Equal(t, quoted.Accounts[9:], withdrawIxn.Accounts[16:])
	assert.Equal(t, 1, countAccount(withdrawIxn, quoted.Accounts[5].PublicKey))

	record, err := env.engine.GetPosition(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)
	assert.Equal(t, position.PhaseIdle, record.Phase)
	assert.EqualValues(t, 0, record.SharesAmount)

	state, err := env.vaults.Get(env.vaultId)
	require.NoError(t, err)
	assert.EqualValues(t, 0, state.TotalShares)

	// A new cycle can start from idle
	env.deposit(t)
}

func TestWithdraw_ZeroPlatformFee(t *testing.T) {
	env := setup(t)

	_, err := env.vaults.UpdateVaultPlatformFee(env.ctx, env.admin, env.vaultId, 0)
	require.NoError(t, err)

	env.deposit(t)
	env.unstakeAndClaim(t)

	settlement, err := env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 1_000_000)
	require.NoError(t, err)
	assert.EqualValues(t, 0, settlement.PlatformFee)
	assert.EqualValues(t, 998_000, settlement.Net)
}

func TestWithdraw_Partial(t *testing.T) {
	env := setup(t)

	env.deposit(t)
	env.unstakeAndClaim(t)

	settlement, err := env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 400_000)
	require.NoError(t, err)
	assert.EqualValues(t, 30, settlement.TierFeeBps)
	assert.EqualValues(t, 1_200, settlement.TierFee)
	assert.EqualValues(t, 100_000, settlement.PlatformFee)

	record := env.assertPhase(t, position.PhaseUnstakeClaimable)
	assert.EqualValues(t, 600_000, record.SharesAmount)

	_, err = env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 600_001)
	assert.Equal(t, ErrInvalidParameter, errors.Cause(err))

	_, err = env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 600_000)
	require.NoError(t, err)
	env.assertPhase(t, position.PhaseIdle)
}

func TestWithdraw_Validation(t *testing.T) {
	env := setup(t)

	env.deposit(t)

	_, err := env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 0)
	assert.Equal(t, ErrInvalidParameter, errors.Cause(err))

	env.unstakeAndClaim(t)

	// Fee tiers are re-resolved at withdraw time
	require.NoError(t, env.gate.SetFeeTiers(env.admin, []uint64{0}, []uint16{8000}))
	_, err = env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 1_000_000)
	assert.Equal(t, ErrInvalidParameter, errors.Cause(err))
	env.assertPhase(t, position.PhaseUnstakeClaimable)
}

func TestOperations_OutOfOrder(t *testing.T) {
	env := setup(t)

	_, err := env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, ErrPositionNotFound, err)
	_, err = env.engine.ClaimUnstake(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, ErrPositionNotFound, err)
	_, err = env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 1)
	assert.Equal(t, ErrPositionNotFound, err)

	env.deposit(t)

	_, err = env.engine.ClaimUnstake(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, ErrInvalidPhase, errors.Cause(err))
	_, err = env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 1)
	assert.Equal(t, ErrInvalidPhase, errors.Cause(err))
	_, err = env.engine.DepositAndStake(env.ctx, env.owner, env.vaultId, 1)
	assert.Equal(t, ErrInvalidPhase, errors.Cause(err))
	env.assertPhase(t, position.PhaseStaked)

	_, err = env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)

	_, err = env.engine.Withdraw(env.ctx, env.owner, env.vaultId, 1)
	assert.Equal(t, ErrInvalidPhase, errors.Cause(err))
	env.assertPhase(t, position.PhaseUnstakeRequested)
}

func TestOperations_ErrorsPropagateUnchanged(t *testing.T) {
	env := setup(t)

	env.deposit(t)

	quoteErr := errors.New("quote failure")
	env.adapter.setErr(protocol.OperationKindStartUnstake, quoteErr)

	_, err := env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, quoteErr, err)
	env.assertPhase(t, position.PhaseStaked)

	env.adapter.setErr(protocol.OperationKindStartUnstake, nil)

	txnErr := solana.NewCustomInstructionError(0, 6000)
	env.ledger.setOutcomeErr(txnErr)

	_, err = env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, txnErr, err)
	env.assertPhase(t, position.PhaseStaked)

	env.ledger.setOutcomeErr(nil)

	submitErr := errors.New("submit failure")
	env.ledger.setSubmitErr(submitErr)

	_, err = env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, submitErr, err)
	env.assertPhase(t, position.PhaseStaked)

	env.ledger.setSubmitErr(nil)

	// The same phase is safe to retry
	res, err := env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)
	assert.Equal(t, position.PhaseUnstakeRequested, res.Record.Phase)
}

func TestOperations_ConfirmationTimeout(t *testing.T) {
	env := setup(t)

	env.deposit(t)

	env.ledger.setPending(true)

	_, err := env.engine.StartUnstake(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, ErrConfirmationTimeout, errors.Cause(err))
	env.assertPhase(t, position.PhaseStaked)

	assert.EqualValues(t, testPollLimit, env.ledger.getPolls())
}

func TestOperations_WaitsThroughCancellation(t *testing.T) {
	env := setup(t)

	env.deposit(t)

	ctx, cancel := context.WithCancel(env.ctx)
	env.ledger.setOnSubmit(cancel)
	env.ledger.setPendingPolls(2)

	res, err := env.engine.StartUnstake(ctx, env.owner, env.vaultId)
	require.NoError(t, err)
	assert.Equal(t, position.PhaseUnstakeRequested, res.Record.Phase)
}

func TestDrive(t *testing.T) {
	env := setup(t)

	env.deposit(t)

	settlement, err := env.engine.Drive(env.ctx, env.owner, env.vaultId, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, settlement.ShareAmount)
	assert.EqualValues(t, 250_000, settlement.PlatformFee)

	assert.Equal(t, []protocol.OperationKind{
		protocol.OperationKindDeposit,
		protocol.OperationKindStakeInFarm,
		protocol.OperationKindStartUnstake,
		protocol.OperationKindUnstake,
		protocol.OperationKindWithdraw,
	}, env.adapter.kinds())

	// Each phase is its own submission
	assert.Len(t, env.ledger.getSubmissions(), 4)

	env.assertPhase(t, position.PhaseIdle)

	_, err = env.engine.Drive(env.ctx, env.owner, env.vaultId, 0)
	assert.Equal(t, ErrInvalidPhase, errors.Cause(err))
}

func TestDrive_StopsAtFirstFailure(t *testing.T) {
	env := setup(t)

	env.deposit(t)

	claimErr := errors.New("cool down not elapsed")
	env.adapter.setErr(protocol.OperationKindUnstake, claimErr)

	_, err := env.engine.Drive(env.ctx, env.owner, env.vaultId, 0)
	assert.Equal(t, claimErr, err)
	env.assertPhase(t, position.PhaseUnstakeRequested)

	for _, kind := range env.adapter.kinds() {
		assert.NotEqual(t, protocol.OperationKindWithdraw, kind)
	}

	env.adapter.setErr(protocol.OperationKindUnstake, nil)

	// Driving resumes from the last completed phase
	settlement, err := env.engine.Drive(env.ctx, env.owner, env.vaultId, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, settlement.ShareAmount)
}

func TestRequestExit(t *testing.T) {
	env := setup(t)

	_, err := env.engine.RequestExit(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, ErrPositionNotFound, err)

	env.deposit(t)

	record, err := env.engine.RequestExit(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)
	assert.True(t, record.ExitRequested)

	record, err = env.engine.RequestExit(env.ctx, env.owner, env.vaultId)
	require.NoError(t, err)
	assert.True(t, record.ExitRequested)

	_, err = env.engine.Drive(env.ctx, env.owner, env.vaultId, 0)
	require.NoError(t, err)

	record = env.assertPhase(t, position.PhaseIdle)
	assert.False(t, record.ExitRequested)

	_, err = env.engine.RequestExit(env.ctx, env.owner, env.vaultId)
	assert.Equal(t, ErrInvalidPhase, errors.Cause(err))
}

func TestOperations_DistributedLock(t *testing.T) {
	env := setup(t)

	locks := memory_lock.NewLockManager()
	engine := NewEngine(env.gate, env.vaults, env.assembler, env.reader, env.ledger, env.store, locks, withTestConfigs())

	owners := testutil.GenerateSolanaKeys(t, 8)

	var wg sync.WaitGroup
	for _, owner := range owners {
		wg.Add(1)
		go func(owner ed25519.PublicKey) {
			defer wg.Done()

			_, err := engine.DepositAndStake(env.ctx, owner, env.vaultId, 5_000_000)
			assert.NoError(t, err)

			_, err = engine.Drive(env.ctx, owner, env.vaultId, 0)
			assert.NoError(t, err)
		}(owner)
	}
	wg.Wait()

	for _, owner := range owners {
		record, err := engine.GetPosition(env.ctx, owner, env.vaultId)
		require.NoError(t, err)
		assert.Equal(t, position.PhaseIdle, record.Phase)
	}

	state, err := env.vaults.Get(env.vaultId)
	require.NoError(t, err)
	assert.EqualValues(t, 0, state.TotalShares)
}

func TestOperations_LockedPositionDoesNotBlockOthers(t *testing.T) {
	env := setup(t)

	// Every position shares the single stripe
	configProvider := func() *conf {
		c := withTestConfigs()()
		c.lockStripes = wrapper.NewUint64Config(memory.NewConfig(uint64(1)), defaultLockStripes)
		return c
	}

	locks := memory_lock.NewLockManager()
	engine := NewEngine(env.gate, env.vaults, env.assembler, env.reader, env.ledger, env.store, locks, configProvider)

	held, err := locks.Create(env.ctx, positionKey(env.owner, env.vaultId))
	require.NoError(t, err)
	_, err = held.Acquire(env.ctx)
	require.NoError(t, err)

	lockedDone := make(chan error, 1)
	go func() {
		_, err := engine.DepositAndStake(env.ctx, env.owner, env.vaultId, 5_000_000)
		lockedDone <- err
	}()

	// Give the locked deposit time to start waiting on its position lock
	time.Sleep(50 * time.Millisecond)

	otherDone := make(chan error, 1)
	go func() {
		_, err := engine.DepositAndStake(env.ctx, testutil.GenerateSolanaKey(t), env.vaultId, 5_000_000)
		otherDone <- err
	}()

	select {
	case err := <-otherDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("deposit blocked by another position's lock")
	}

	select {
	case <-lockedDone:
		t.Fatal("deposit ran while its position was locked")
	default:
	}

	require.NoError(t, held.Unlock(env.ctx))

	select {
	case err := <-lockedDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("deposit never acquired its released lock")
	}
}

const testPollLimit = 5

type testEnv struct {
	ctx       context.Context
	engine    *Engine
	gate      *authority.Gate
	vaults    *vault.Registry
	assembler *protocol.Assembler
	store     position.Store
	adapter   *fakeAdapter
	reader    *fakeReader
	ledger    *fakeLedger
	admin     ed25519.PublicKey
	owner     ed25519.PublicKey
	vaultId   vault.Id
}

func setup(t *testing.T) *testEnv {
	ctx := context.Background()

	admin := testutil.GenerateSolanaKey(t)

	config, err := authority.Initialize(admin, testutil.GenerateSolanaKey(t), 1)
	require.NoError(t, err)

	gate := authority.NewGate(config)
	require.NoError(t, gate.SetFeeTiers(
		admin,
		[]uint64{0, 1_000_000, 10_000_000, 100_000_000},
		[]uint16{30, 20, 10, 5},
	))

	vaultId := vault.Id(sha256.Sum256([]byte("test-vault")))

	vaults := vault.NewRegistry(gate)
	_, err = vaults.InitializeVault(ctx, admin, vaultId, 2500, testutil.GenerateSolanaKey(t), testutil.GenerateSolanaKey(t))
	require.NoError(t, err)

	adapter := newFakeAdapter(t, kvault.Layouts)
	assembler, err := protocol.NewAssembler(adapter, kvault.Layouts)
	require.NoError(t, err)

	ledger := &fakeLedger{slot: 1234}
	reader := &fakeReader{ledger: ledger, minted: 1_000_000}
	store := memory_position_store.New()

	return &testEnv{
		ctx:       ctx,
		engine:    NewEngine(gate, vaults, assembler, reader, ledger, store, nil, withTestConfigs()),
		gate:      gate,
		vaults:    vaults,
		assembler: assembler,
		store:     store,
		adapter:   adapter,
		reader:    reader,
		ledger:    ledger,
		admin:     admin,
		owner:     testutil.GenerateSolanaKey(t),
		vaultId:   vaultId,
	}
}

func withTestConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			confirmationPollLimit:    wrapper.NewUint64Config(memory.NewConfig(uint64(testPollLimit)), defaultConfirmationPollLimit),
			confirmationPollInterval: wrapper.NewDurationConfig(memory.NewConfig(time.Millisecond), defaultConfirmationPollInterval),
			lockStripes:              wrapper.NewUint64Config(memory.NewConfig(uint64(16)), defaultLockStripes),
		}
	}
}

func (e *testEnv) deposit(t *testing.T) {
	res, err := e.engine.DepositAndStake(e.ctx, e.owner, e.vaultId, 5_000_000)
	require.NoError(t, err)
	require.Equal(t, position.PhaseStaked, res.Record.Phase)
}

func (e *testEnv) unstakeAndClaim(t *testing.T) {
	_, err := e.engine.StartUnstake(e.ctx, e.owner, e.vaultId)
	require.NoError(t, err)
	_, err = e.engine.ClaimUnstake(e.ctx, e.owner, e.vaultId)
	require.NoError(t, err)
}

func (e *testEnv) assertPhase(t *testing.T, expected position.Phase) *position.Record {
	record, err := e.engine.GetPosition(e.ctx, e.owner, e.vaultId)
	require.NoError(t, err)
	assert.Equal(t, expected, record.Phase)
	return record
}

type fakeAdapter struct {
	t       *testing.T
	layouts protocol.LayoutTable

	mu     sync.Mutex
	errs   map[protocol.OperationKind]error
	reqs   []*protocol.QuoteRequest
	quotes map[protocol.OperationKind]*protocol.QuotedInstruction
}

func newFakeAdapter(t *testing.T, layouts protocol.LayoutTable) *fakeAdapter {
	return &fakeAdapter{
		t:       t,
		layouts: layouts,
		errs:    make(map[protocol.OperationKind]error),
		quotes:  make(map[protocol.OperationKind]*protocol.QuotedInstruction),
	}
}

func (a *fakeAdapter) Quote(_ context.Context, req *protocol.QuoteRequest) (*protocol.QuotedInstruction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	copied := *req
	a.reqs = append(a.reqs, &copied)

	if err := a.errs[req.Kind]; err != nil {
		return nil, err
	}

	program := kvault.PROGRAM_ID
	switch req.Kind {
	case protocol.OperationKindStakeInFarm, protocol.OperationKindStartUnstake, protocol.OperationKindUnstake:
		program = kvault.FARMS_PROGRAM_ID
	}

	accounts := []solana.AccountMeta{solana.NewAccountMeta(req.User, true)}
	for i := 1; i < len(a.layouts[req.Kind])+3; i++ {
		accounts = append(accounts, solana.NewAccountMeta(testutil.GenerateSolanaKey(a.t), false))
	}

	quoted := &protocol.QuotedInstruction{
		Program:  program,
		Accounts: accounts,
		Data:     []byte{byte(req.Kind), 1, 2, 3},
	}
	a.quotes[req.Kind] = quoted
	return quoted, nil
}

func (a *fakeAdapter) setErr(kind protocol.OperationKind, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs[kind] = err
}

func (a *fakeAdapter) kinds() []protocol.OperationKind {
	a.mu.Lock()
	defer a.mu.Unlock()

	var kinds []protocol.OperationKind
	for _, req := range a.reqs {
		kinds = append(kinds, req.Kind)
	}
	return kinds
}

func (a *fakeAdapter) request(kind protocol.OperationKind) *protocol.QuoteRequest {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := len(a.reqs) - 1; i >= 0; i-- {
		if a.reqs[i].Kind == kind {
			return a.reqs[i]
		}
	}
	return nil
}

func (a *fakeAdapter) quoted(kind protocol.OperationKind) *protocol.QuotedInstruction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quotes[kind]
}

// fakeReader reports an owner's farm balance as the shares minted by each of
// their confirmed deposits, across every vault.
type fakeReader struct {
	ledger *fakeLedger

	mu     sync.Mutex
	minted uint64
	err    error
}

func (r *fakeReader) StakedShares(_ context.Context, user, _ ed25519.PublicKey) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return 0, r.err
	}
	return r.minted * uint64(r.ledger.deposits(user)), nil
}

func (r *fakeReader) setMinted(minted uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minted = minted
}

func (r *fakeReader) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

type fakeLedger struct {
	mu sync.Mutex

	slot         uint64
	submitErr    error
	outcomeErr   error
	pending      bool
	pendingPolls int
	onSubmit     func()

	nonce       uint64
	polls       int
	submissions [][]solana.Instruction
	payers      []ed25519.PublicKey
}

func (l *fakeLedger) GetSlot(_ context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slot, nil
}

func (l *fakeLedger) Submit(_ context.Context, payer ed25519.PublicKey, instructions ...solana.Instruction) (solana.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.onSubmit != nil {
		l.onSubmit()
	}

	if l.submitErr != nil {
		return solana.Signature{}, l.submitErr
	}

	l.nonce++
	l.polls = 0
	l.submissions = append(l.submissions, instructions)
	l.payers = append(l.payers, payer)

	var sig solana.Signature
	binary.LittleEndian.PutUint64(sig[:], l.nonce)
	return sig, nil
}

func (l *fakeLedger) GetOutcome(ctx context.Context, sig solana.Signature) (*Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	l.polls++
	if l.pending || l.polls <= l.pendingPolls {
		return nil, ErrOutcomePending
	}

	return &Outcome{
		Signature: sig,
		Slot:      l.slot,
		Err:       l.outcomeErr,
	}, nil
}

func (l *fakeLedger) setSubmitErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitErr = err
}

func (l *fakeLedger) setOutcomeErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomeErr = err
}

func (l *fakeLedger) setPending(pending bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = pending
}

func (l *fakeLedger) setPendingPolls(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pendingPolls = n
}

func (l *fakeLedger) setOnSubmit(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSubmit = fn
}

func (l *fakeLedger) getPolls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.polls
}

func (l *fakeLedger) deposits(user ed25519.PublicKey) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var count int
	for i, instructions := range l.submissions {
		if !bytes.Equal(l.payers[i], user) || len(instructions) == 0 {
			continue
		}
		if bytes.HasPrefix(instructions[0].Data, marsvault.DepositInstructionDiscriminator) {
			count++
		}
	}
	return count
}

func (l *fakeLedger) getSubmissions() [][]solana.Instruction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]solana.Instruction(nil), l.submissions...)
}

func countAccount(ixn solana.Instruction, key ed25519.PublicKey) int {
	var count int
	for _, account := range ixn.Accounts {
		if bytes.Equal(account.PublicKey, key) {
			count++
		}
	}
	return count
}
