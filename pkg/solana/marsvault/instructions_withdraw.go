package marsvault

import (
	"crypto/ed25519"

	"github.com/marsprotocol/vault-engine/pkg/solana"
)

var WithdrawInstructionDiscriminator = instructionDiscriminator("withdraw")

type WithdrawInstructionArgs struct {
	ShareAmount uint64

	// Fees the vault program must charge, in base units. They are computed off
	// chain from the same tier table and verified on chain.
	TierFee     uint64
	PlatformFee uint64

	// AdditionalData is the external protocol's instruction data, forwarded
	// unchanged by the vault program.
	AdditionalData []byte
}

func (args *WithdrawInstructionArgs) size() int {
	return 8 + // share_amount
		8 + // tier_fee
		8 + // platform_fee
		4 + len(args.AdditionalData) // additional_data
}

type WithdrawInstructionAccounts struct {
	User              ed25519.PublicKey
	GlobalConfig      ed25519.PublicKey
	VaultState        ed25519.PublicKey
	VaultTreasury     ed25519.PublicKey
	UserBaseToken     ed25519.PublicKey
	FeeTiers          ed25519.PublicKey
	PlatformFeeWallet ed25519.PublicKey
	ExternalProgram   ed25519.PublicKey

	// Named slots of the external withdraw's fixed prefix
	ExternalVaultState     ed25519.PublicKey
	ExternalGlobalConfig   ed25519.PublicKey
	ExternalTokenVault     ed25519.PublicKey
	ExternalVaultAuthority ed25519.PublicKey
	ExternalTokenMint      ed25519.PublicKey
	UserSharesToken        ed25519.PublicKey
	ExternalSharesMint     ed25519.PublicKey

	// RemainingAccounts is the external instruction's tail past its fixed
	// prefix, appended verbatim after the named accounts.
	RemainingAccounts []solana.AccountMeta
}

func NewWithdrawInstruction(
	accounts *WithdrawInstructionAccounts,
	args *WithdrawInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize+args.size())

	putDiscriminator(data, WithdrawInstructionDiscriminator, &offset)
	putUint64(data, args.ShareAmount, &offset)
	putUint64(data, args.TierFee, &offset)
	putUint64(data, args.PlatformFee, &offset)
	putBytes(data, args.AdditionalData, &offset)

	fixed := []solana.AccountMeta{
		{
			PublicKey:  accounts.User,
			IsWritable: true,
			IsSigner:   true,
		},
		{
			PublicKey:  accounts.GlobalConfig,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.VaultState,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.VaultTreasury,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.UserBaseToken,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.FeeTiers,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.PlatformFeeWallet,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalProgram,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  SPL_TOKEN_PROGRAM_ID,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalVaultState,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalGlobalConfig,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalTokenVault,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalVaultAuthority,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalTokenMint,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.UserSharesToken,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalSharesMint,
			IsWritable: true,
			IsSigner:   false,
		},
	}

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		Data: data,

		Accounts: append(fixed, accounts.RemainingAccounts...),
	}
}
