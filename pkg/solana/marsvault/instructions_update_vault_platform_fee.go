package marsvault

import (
	"crypto/ed25519"

	"github.com/marsprotocol/vault-engine/pkg/solana"
)

var UpdateVaultPlatformFeeInstructionDiscriminator = instructionDiscriminator("update_vault_platform_fee")

const (
	UpdateVaultPlatformFeeInstructionArgsSize = 2 // platform_fee_bps
)

type UpdateVaultPlatformFeeInstructionArgs struct {
	PlatformFeeBps uint16
}

type UpdateVaultPlatformFeeInstructionAccounts struct {
	Admin        ed25519.PublicKey
	GlobalConfig ed25519.PublicKey
	VaultState   ed25519.PublicKey
}

func NewUpdateVaultPlatformFeeInstruction(
	accounts *UpdateVaultPlatformFeeInstructionAccounts,
	args *UpdateVaultPlatformFeeInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize+UpdateVaultPlatformFeeInstructionArgsSize)

	putDiscriminator(data, UpdateVaultPlatformFeeInstructionDiscriminator, &offset)
	putUint16(data, args.PlatformFeeBps, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		Data: data,

		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Admin,
				IsWritable: false,
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
		},
	}
}
