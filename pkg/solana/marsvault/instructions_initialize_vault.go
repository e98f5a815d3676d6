package marsvault

import (
	"crypto/ed25519"

	"github.com/marsprotocol/vault-engine/pkg/solana"
)

var InitializeVaultInstructionDiscriminator = instructionDiscriminator("initialize_vault")

const (
	InitializeVaultInstructionArgsSize = (VaultIdSize + // vault_id
		2) // platform_fee_bps
)

type InitializeVaultInstructionArgs struct {
	VaultId        VaultId
	PlatformFeeBps uint16
}

type InitializeVaultInstructionAccounts struct {
	Admin         ed25519.PublicKey
	GlobalConfig  ed25519.PublicKey
	VaultState    ed25519.PublicKey
	VaultTreasury ed25519.PublicKey
	BaseMint      ed25519.PublicKey
	SharesMint    ed25519.PublicKey
}

func NewInitializeVaultInstruction(
	accounts *InitializeVaultInstructionAccounts,
	args *InitializeVaultInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize+InitializeVaultInstructionArgsSize)

	putDiscriminator(data, InitializeVaultInstructionDiscriminator, &offset)
	putVaultId(data, args.VaultId, &offset)
	putUint16(data, args.PlatformFeeBps, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		Data: data,

		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Admin,
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
				PublicKey:  accounts.BaseMint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.SharesMint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
