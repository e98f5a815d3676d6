package marsvault

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"

	"github.com/marsprotocol/vault-engine/pkg/solana"
)

var (
	GlobalConfigPrefix      = []byte("global-config")
	VaultStatePrefix        = []byte("vault-state")
	VaultTreasuryPrefix     = []byte("vault-treasury")
	FeeTiersPrefix          = []byte("fee-tiers")
	InsuranceFeeTiersPrefix = []byte("insurance-fee-tiers")
)

const VaultIdSize = 32

// VaultId is the immutable 32 byte identifier that seeds every per vault
// address.
type VaultId [VaultIdSize]byte

func (id VaultId) String() string {
	return base58.Encode(id[:])
}

// VaultIdFromBase58 decodes a base58 encoded vault id.
func VaultIdFromBase58(value string) (VaultId, error) {
	var id VaultId

	decoded, err := base58.Decode(value)
	if err != nil {
		return id, err
	}
	if len(decoded) != VaultIdSize {
		return id, ErrInvalidVaultId
	}

	copy(id[:], decoded)
	return id, nil
}

func GetGlobalConfigAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		GlobalConfigPrefix,
	)
}

type GetVaultStateAddressArgs struct {
	VaultId VaultId
}

func GetVaultStateAddress(args *GetVaultStateAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		VaultStatePrefix,
		args.VaultId[:],
	)
}

type GetVaultTreasuryAddressArgs struct {
	VaultId VaultId
}

func GetVaultTreasuryAddress(args *GetVaultTreasuryAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		VaultTreasuryPrefix,
		args.VaultId[:],
	)
}

func GetFeeTiersAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		FeeTiersPrefix,
	)
}

func GetInsuranceFeeTiersAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		InsuranceFeeTiersPrefix,
	)
}

// VaultAccounts is every derived account a single vault operates on.
type VaultAccounts struct {
	GlobalConfig     ed25519.PublicKey
	GlobalConfigBump uint8

	VaultState     ed25519.PublicKey
	VaultStateBump uint8

	VaultTreasury     ed25519.PublicKey
	VaultTreasuryBump uint8

	FeeTiers     ed25519.PublicKey
	FeeTiersBump uint8

	InsuranceFeeTiers     ed25519.PublicKey
	InsuranceFeeTiersBump uint8
}

// DeriveVaultAccounts derives all program addresses for a vault.
func DeriveVaultAccounts(vaultId VaultId) (*VaultAccounts, error) {
	var res VaultAccounts
	var err error

	res.GlobalConfig, res.GlobalConfigBump, err = GetGlobalConfigAddress()
	if err != nil {
		return nil, err
	}

	res.VaultState, res.VaultStateBump, err = GetVaultStateAddress(&GetVaultStateAddressArgs{VaultId: vaultId})
	if err != nil {
		return nil, err
	}

	res.VaultTreasury, res.VaultTreasuryBump, err = GetVaultTreasuryAddress(&GetVaultTreasuryAddressArgs{VaultId: vaultId})
	if err != nil {
		return nil, err
	}

	res.FeeTiers, res.FeeTiersBump, err = GetFeeTiersAddress()
	if err != nil {
		return nil, err
	}

	res.InsuranceFeeTiers, res.InsuranceFeeTiersBump, err = GetInsuranceFeeTiersAddress()
	if err != nil {
		return nil, err
	}

	return &res, nil
}
