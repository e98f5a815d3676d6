package marsvault

import (
	"crypto/ed25519"

	"github.com/marsprotocol/vault-engine/pkg/solana"
)

var DepositInstructionDiscriminator = instructionDiscriminator("deposit")

type DepositInstructionArgs struct {
	Amount uint64

	// AdditionalData is the external protocol's instruction data, forwarded
	// unchanged by the vault program.
	AdditionalData []byte
}

func (args *DepositInstructionArgs) size() int {
	return 8 + // amount
		4 + len(args.AdditionalData) // additional_data
}

type DepositInstructionAccounts struct {
	User            ed25519.PublicKey
	GlobalConfig    ed25519.PublicKey
	VaultState      ed25519.PublicKey
	VaultTreasury   ed25519.PublicKey
	UserBaseToken   ed25519.PublicKey
	FeeTiers        ed25519.PublicKey
	ExternalProgram ed25519.PublicKey

	// Named slots of the external deposit's fixed prefix
	ExternalVaultState     ed25519.PublicKey
	ExternalTokenVault     ed25519.PublicKey
	ExternalTokenMint      ed25519.PublicKey
	ExternalVaultAuthority ed25519.PublicKey
	ExternalSharesMint     ed25519.PublicKey
	UserSharesToken        ed25519.PublicKey
	ExternalLendingProgram ed25519.PublicKey

	// RemainingAccounts is the external instruction's tail past its fixed
	// prefix, appended verbatim after the named accounts.
	RemainingAccounts []solana.AccountMeta
}

func NewDepositInstruction(
	accounts *DepositInstructionAccounts,
	args *DepositInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize+args.size())

	putDiscriminator(data, DepositInstructionDiscriminator, &offset)
	putUint64(data, args.Amount, &offset)
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
			PublicKey:  accounts.ExternalTokenVault,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalTokenMint,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalVaultAuthority,
			IsWritable: false,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalSharesMint,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.UserSharesToken,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  accounts.ExternalLendingProgram,
			IsWritable: false,
			IsSigner:   false,
		},
	}

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		Data: data,

		Accounts: append(fixed, accounts.RemainingAccounts...),
	}
}
