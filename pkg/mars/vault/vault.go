package vault

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/marsprotocol/vault-engine/pkg/mars/fee"
	"github.com/marsprotocol/vault-engine/pkg/solana"
	"github.com/marsprotocol/vault-engine/pkg/solana/marsvault"
)

var (
	ErrInvalidParameter = fee.ErrInvalidParameter
	ErrVaultExists      = errors.New("vault already exists")
	ErrVaultNotFound    = errors.New("vault not found")
)

type Id = marsvault.VaultId

// State is the orchestrator's view of a vault's on chain state, along with
// every address derived from its id.
type State struct {
	Admin          ed25519.PublicKey
	VaultId        Id
	PlatformFeeBps uint16
	TotalShares    uint64
	BaseMint       ed25519.PublicKey
	SharesMint     ed25519.PublicKey

	Accounts *marsvault.VaultAccounts
}

func (s *State) Clone() *State {
	cloned := *s

	cloned.Admin = append(ed25519.PublicKey(nil), s.Admin...)
	cloned.BaseMint = append(ed25519.PublicKey(nil), s.BaseMint...)
	cloned.SharesMint = append(ed25519.PublicKey(nil), s.SharesMint...)
	if s.Accounts != nil {
		accounts := *s.Accounts
		cloned.Accounts = &accounts
	}

	return &cloned
}

// PlatformFee is the platform's cut of a withdrawn share value.
func (s *State) PlatformFee(shareValue uint64) uint64 {
	return fee.ComputeFee(shareValue, s.PlatformFeeBps)
}

// NewInitializeInstruction builds the instruction that creates the vault
// state and treasury accounts on chain.
func (s *State) NewInitializeInstruction() solana.Instruction {
	return marsvault.NewInitializeVaultInstruction(
		&marsvault.InitializeVaultInstructionAccounts{
			Admin:         s.Admin,
			GlobalConfig:  s.Accounts.GlobalConfig,
			VaultState:    s.Accounts.VaultState,
			VaultTreasury: s.Accounts.VaultTreasury,
			BaseMint:      s.BaseMint,
			SharesMint:    s.SharesMint,
		},
		&marsvault.InitializeVaultInstructionArgs{
			VaultId:        s.VaultId,
			PlatformFeeBps: s.PlatformFeeBps,
		},
	)
}

// NewUpdatePlatformFeeInstruction builds the instruction that sets the
// vault's current platform fee on chain.
func (s *State) NewUpdatePlatformFeeInstruction(admin ed25519.PublicKey) solana.Instruction {
	return marsvault.NewUpdateVaultPlatformFeeInstruction(
		&marsvault.UpdateVaultPlatformFeeInstructionAccounts{
			Admin:        admin,
			GlobalConfig: s.Accounts.GlobalConfig,
			VaultState:   s.Accounts.VaultState,
		},
		&marsvault.UpdateVaultPlatformFeeInstructionArgs{
			PlatformFeeBps: s.PlatformFeeBps,
		},
	)
}

func (s *State) String() string {
	return fmt.Sprintf(
		"Vault{id=%s,admin=%s,platform_fee_bps=%d,total_shares=%d,base_mint=%s,shares_mint=%s}",
		s.VaultId.String(),
		base58.Encode(s.Admin),
		s.PlatformFeeBps,
		s.TotalShares,
		base58.Encode(s.BaseMint),
		base58.Encode(s.SharesMint),
	)
}
