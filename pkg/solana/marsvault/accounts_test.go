package marsvault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marsprotocol/vault-engine/pkg/testutil"
)

func TestVaultStateAccount_Unmarshal(t *testing.T) {
	expected := VaultStateAccount{
		Admin:          testutil.GenerateSolanaKey(t),
		PlatformFeeBps: 2500,
		TotalShares:    123_456,
		BaseMint:       testutil.GenerateSolanaKey(t),
		SharesMint:     testutil.GenerateSolanaKey(t),
		Bump:           254,
		TreasuryBump:   253,
	}
	expected.VaultId[0] = 42

	var offset int
	data := make([]byte, VaultStateAccountSize)
	putDiscriminator(data, VaultStateAccountDiscriminator, &offset)
	putKey(data, expected.Admin, &offset)
	putVaultId(data, expected.VaultId, &offset)
	putUint16(data, expected.PlatformFeeBps, &offset)
	putUint64(data, expected.TotalShares, &offset)
	putKey(data, expected.BaseMint, &offset)
	putKey(data, expected.SharesMint, &offset)
	putUint8(data, expected.Bump, &offset)
	putUint8(data, expected.TreasuryBump, &offset)
	require.Equal(t, VaultStateAccountSize, offset)

	var actual VaultStateAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, expected, actual)
	assert.Contains(t, actual.String(), "platform_fee_bps=2500")

	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(data[:VaultStateAccountSize-1]))

	data[0] ^= 0xff
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(data))
}

func TestFeeTiersAccount_Unmarshal(t *testing.T) {
	thresholds := []uint64{0, 1_000_000, 10_000_000, 100_000_000}
	feesBps := []uint16{30, 20, 10, 5}

	var offset int
	data := make([]byte, FeeTiersAccountSize)
	putDiscriminator(data, FeeTiersAccountDiscriminator, &offset)
	putUint8(data, uint8(len(thresholds)), &offset)
	for i := 0; i < MaxFeeTiers; i++ {
		var v uint64
		if i < len(thresholds) {
			v = thresholds[i]
		}
		putUint64(data, v, &offset)
	}
	for i := 0; i < MaxFeeTiers; i++ {
		var v uint16
		if i < len(feesBps) {
			v = feesBps[i]
		}
		putUint16(data, v, &offset)
	}
	putUint8(data, 255, &offset)
	require.Equal(t, FeeTiersAccountSize, offset)

	var actual FeeTiersAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, thresholds, actual.Thresholds)
	assert.Equal(t, feesBps, actual.FeesBps)
	assert.EqualValues(t, 255, actual.Bump)
	assert.Equal(t, "FeeTiers{tiers=[(0,30),(1000000,20),(10000000,10),(100000000,5)],bump=255}", actual.String())

	data[8] = MaxFeeTiers + 1
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(data))
}
