package marsvault

import (
	"crypto/ed25519"

	"github.com/marsprotocol/vault-engine/pkg/solana"
)

var (
	SetFeeTiersInstructionDiscriminator          = instructionDiscriminator("set_fee_tiers")
	SetInsuranceFeeTiersInstructionDiscriminator = instructionDiscriminator("set_insurance_fee_tiers")
)

// SetFeeTiersInstructionArgs replaces a tier table. Thresholds and FeesBps are
// parallel vectors.
type SetFeeTiersInstructionArgs struct {
	Thresholds []uint64
	FeesBps    []uint16
}

func (args *SetFeeTiersInstructionArgs) size() int {
	return 4 + 8*len(args.Thresholds) + // thresholds
		4 + 2*len(args.FeesBps) // fees_bps
}

type SetFeeTiersInstructionAccounts struct {
	Admin        ed25519.PublicKey
	GlobalConfig ed25519.PublicKey
	FeeTiers     ed25519.PublicKey
}

// NewSetFeeTiersInstruction replaces the withdraw fee tier table.
func NewSetFeeTiersInstruction(
	accounts *SetFeeTiersInstructionAccounts,
	args *SetFeeTiersInstructionArgs,
) solana.Instruction {
	return newSetTiersInstruction(SetFeeTiersInstructionDiscriminator, accounts, args)
}

// NewSetInsuranceFeeTiersInstruction replaces the insurance fee tier table.
// FeeTiers must be the insurance fee tiers address.
func NewSetInsuranceFeeTiersInstruction(
	accounts *SetFeeTiersInstructionAccounts,
	args *SetFeeTiersInstructionArgs,
) solana.Instruction {
	return newSetTiersInstruction(SetInsuranceFeeTiersInstructionDiscriminator, accounts, args)
}

func newSetTiersInstruction(
	discriminator []byte,
	accounts *SetFeeTiersInstructionAccounts,
	args *SetFeeTiersInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize+args.size())

	putDiscriminator(data, discriminator, &offset)
	putUint32(data, uint32(len(args.Thresholds)), &offset)
	for _, threshold := range args.Thresholds {
		putUint64(data, threshold, &offset)
	}
	putUint32(data, uint32(len(args.FeesBps)), &offset)
	for _, bps := range args.FeesBps {
		putUint16(data, bps, &offset)
	}

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
				PublicKey:  accounts.FeeTiers,
				IsWritable: true,
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
