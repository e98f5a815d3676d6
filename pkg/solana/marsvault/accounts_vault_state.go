package marsvault

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	VaultStateAccountSize = (8 + // discriminator
		32 + // admin
		VaultIdSize + // vault_id
		2 + // platform_fee_bps
		8 + // total_shares
		32 + // base_mint
		32 + // shares_mint
		1 + // bump
		1) // treasury_bump
)

var VaultStateAccountDiscriminator = accountDiscriminator("VaultState")

type VaultStateAccount struct {
	Admin          ed25519.PublicKey
	VaultId        VaultId
	PlatformFeeBps uint16
	TotalShares    uint64
	BaseMint       ed25519.PublicKey
	SharesMint     ed25519.PublicKey
	Bump           uint8
	TreasuryBump   uint8
}

func (obj *VaultStateAccount) Unmarshal(data []byte) error {
	if len(data) < VaultStateAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, VaultStateAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Admin, &offset)
	getVaultId(data, &obj.VaultId, &offset)
	getUint16(data, &obj.PlatformFeeBps, &offset)
	getUint64(data, &obj.TotalShares, &offset)
	getKey(data, &obj.BaseMint, &offset)
	getKey(data, &obj.SharesMint, &offset)
	getUint8(data, &obj.Bump, &offset)
	getUint8(data, &obj.TreasuryBump, &offset)

	return nil
}

func (obj *VaultStateAccount) String() string {
	return fmt.Sprintf(
		"VaultState{admin=%s,vault_id=%s,platform_fee_bps=%d,total_shares=%d,base_mint=%s,shares_mint=%s,bump=%d,treasury_bump=%d}",
		base58.Encode(obj.Admin),
		obj.VaultId.String(),
		obj.PlatformFeeBps,
		obj.TotalShares,
		base58.Encode(obj.BaseMint),
		base58.Encode(obj.SharesMint),
		obj.Bump,
		obj.TreasuryBump,
	)
}
