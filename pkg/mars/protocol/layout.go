package protocol

import (
	"github.com/pkg/errors"
)

// Role names a fixed position in an external instruction's account list.
type Role string

const (
	RoleUser                 Role = "user"
	RoleUserTokenAccount     Role = "user_token_account"
	RoleUserSharesAccount    Role = "user_shares_account"
	RoleVaultState           Role = "vault_state"
	RoleVaultAuthority       Role = "vault_authority"
	RoleTokenVault           Role = "token_vault"
	RoleTokenMint            Role = "token_mint"
	RoleSharesMint           Role = "shares_mint"
	RoleGlobalConfig         Role = "global_config"
	RoleTokenProgram         Role = "token_program"
	RoleSharesTokenProgram   Role = "shares_token_program"
	RoleLendingProgram       Role = "lending_program"
	RoleEventAuthority       Role = "event_authority"
	RoleProgram              Role = "program"
	RoleFarmState            Role = "farm_state"
	RoleUserFarmState        Role = "user_farm_state"
	RoleFarmVault            Role = "farm_vault"
	RoleFarmVaultsAuthority  Role = "farm_vaults_authority"
	RoleScopePrices          Role = "scope_prices"
	RoleInstructionSysvar    Role = "instruction_sysvar"
	RoleSystemProgram        Role = "system_program"
	RoleRentSysvar           Role = "rent_sysvar"
	RoleDelegatedFarmAccount Role = "delegated_farm_account"
)

// Layout is the ordered role of each account in an operation's fixed prefix.
// Accounts past the prefix are passed through verbatim.
type Layout []Role

// LayoutTable is the per integration prefix layout of each operation.
type LayoutTable map[OperationKind]Layout

func (t LayoutTable) Validate() error {
	for kind, layout := range t {
		if len(layout) == 0 {
			return errors.Errorf("%s layout is empty", kind)
		}

		seen := make(map[Role]struct{}, len(layout))
		for _, role := range layout {
			if _, ok := seen[role]; ok {
				return errors.Errorf("%s layout has duplicate role %s", kind, role)
			}
			seen[role] = struct{}{}
		}
	}
	return nil
}
