package kvault

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"

	"github.com/marsprotocol/vault-engine/pkg/mars/protocol"
)

var (
	PROGRAM_ID       = ed25519.PublicKey(mustBase58Decode("KvauGMspG5k6rtzrqqn7WNh3oZdyKqLKwK2XWQ8FLjd"))
	FARMS_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("FarmsPZpWu9i7Kky8tPN37rs2TpmMrAZrC7S7vJa91Hr"))
)

// Layouts is the fixed account prefix of each kvault and farms instruction.
//
// Deposit and withdraw order their shared accounts differently. Every account
// past the prefix (reserves, lending markets, remaining accounts for the
// vault's allocations) is passed through as is.
var Layouts = protocol.LayoutTable{
	// kvault deposit
	protocol.OperationKindDeposit: {
		protocol.RoleUser,
		protocol.RoleVaultState,
		protocol.RoleTokenVault,
		protocol.RoleTokenMint,
		protocol.RoleVaultAuthority,
		protocol.RoleSharesMint,
		protocol.RoleUserTokenAccount,
		protocol.RoleUserSharesAccount,
		protocol.RoleLendingProgram,
	},

	// kvault withdraw
	protocol.OperationKindWithdraw: {
		protocol.RoleUser,
		protocol.RoleVaultState,
		protocol.RoleGlobalConfig,
		protocol.RoleTokenVault,
		protocol.RoleVaultAuthority,
		protocol.RoleUserTokenAccount,
		protocol.RoleTokenMint,
		protocol.RoleUserSharesAccount,
		protocol.RoleSharesMint,
	},

	// farms stake
	protocol.OperationKindStakeInFarm: {
		protocol.RoleUser,
		protocol.RoleUserFarmState,
		protocol.RoleFarmState,
		protocol.RoleFarmVault,
		protocol.RoleUserSharesAccount,
		protocol.RoleSharesMint,
		protocol.RoleScopePrices,
	},

	// farms unstake, which starts the farm's cool down
	protocol.OperationKindStartUnstake: {
		protocol.RoleUser,
		protocol.RoleUserFarmState,
		protocol.RoleFarmState,
		protocol.RoleScopePrices,
		protocol.RoleInstructionSysvar,
		protocol.RoleSystemProgram,
	},

	// farms withdraw_unstaked_deposits, valid once the cool down ends
	protocol.OperationKindUnstake: {
		protocol.RoleUser,
		protocol.RoleUserFarmState,
		protocol.RoleFarmState,
		protocol.RoleUserSharesAccount,
		protocol.RoleFarmVault,
		protocol.RoleFarmVaultsAuthority,
	},
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
