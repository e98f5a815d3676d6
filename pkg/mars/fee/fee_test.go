package fee

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleTable(t *testing.T) Table {
	table, err := NewTable(
		[]uint64{0, 1_000_000, 10_000_000, 100_000_000},
		[]uint16{30, 20, 10, 5},
	)
	require.NoError(t, err)
	return table
}

func TestResolveFee_ExampleTable(t *testing.T) {
	table := exampleTable(t)

	for _, tc := range []struct {
		amount   uint64
		expected uint16
	}{
		{500_000, 30},
		{5_000_000, 20},
		{200_000_000, 5},
		{0, 30},
		{999_999, 30},
		{1_000_000, 20},
		{10_000_000, 10},
		{100_000_000, 5},
		{math.MaxUint64, 5},
	} {
		actual, err := ResolveFee(tc.amount, table)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, actual, "amount=%d", tc.amount)
	}
}

func TestResolveFee_BelowSmallestThreshold(t *testing.T) {
	table, err := NewTable([]uint64{1_000, 5_000}, []uint16{50, 25})
	require.NoError(t, err)

	bps, err := ResolveFee(10, table)
	require.NoError(t, err)
	assert.EqualValues(t, 50, bps)
}

func TestResolveFee_NoTiers(t *testing.T) {
	_, err := ResolveFee(100, nil)
	assert.Equal(t, ErrNoFeeTiersConfigured, err)

	_, err = ResolveFee(100, Table{})
	assert.Equal(t, ErrNoFeeTiersConfigured, err)
}

func TestResolveFee_Monotonic(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for run := 0; run < 100; run++ {
		size := 1 + r.Intn(MaxTiers)

		thresholds := make([]uint64, 0, size)
		seen := make(map[uint64]struct{})
		for len(thresholds) < size {
			v := uint64(r.Int63n(1_000_000_000))
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			thresholds = append(thresholds, v)
		}
		sort.Slice(thresholds, func(i, j int) bool { return thresholds[i] < thresholds[j] })

		feesBps := make([]uint16, size)
		current := uint16(r.Intn(MaxBps + 1))
		for i := range feesBps {
			feesBps[i] = current
			current -= uint16(r.Intn(int(current) + 1))
		}

		table, err := NewTable(thresholds, feesBps)
		require.NoError(t, err)

		for i := 0; i < 100; i++ {
			a1 := uint64(r.Int63n(1_100_000_000))
			a2 := a1 + uint64(r.Int63n(100_000_000))

			bps1, err := ResolveFee(a1, table)
			require.NoError(t, err)
			bps2, err := ResolveFee(a2, table)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, bps1, bps2)
		}
	}
}

func TestNewTable_Validation(t *testing.T) {
	for _, tc := range []struct {
		name       string
		thresholds []uint64
		feesBps    []uint16
		expected   error
	}{
		{"length mismatch", []uint64{0, 1}, []uint16{10}, ErrInvalidParameter},
		{"empty", nil, nil, ErrInvalidParameter},
		{"too many", make([]uint64, 11), make([]uint16, 11), ErrTooManyTiers},
		{"duplicate threshold", []uint64{0, 0}, []uint16{10, 5}, ErrInvalidParameter},
		{"descending threshold", []uint64{10, 5}, []uint16{10, 5}, ErrInvalidParameter},
		{"increasing bps", []uint64{0, 10}, []uint16{5, 10}, ErrInvalidParameter},
		{"bps above max", []uint64{0}, []uint16{10_001}, ErrInvalidParameter},
	} {
		_, err := NewTable(tc.thresholds, tc.feesBps)
		assert.Equal(t, tc.expected, errors.Cause(err), tc.name)
	}

	thresholds := make([]uint64, MaxTiers)
	feesBps := make([]uint16, MaxTiers)
	for i := range thresholds {
		thresholds[i] = uint64(i) * 1_000
		feesBps[i] = uint16(MaxTiers - i)
	}
	table, err := NewTable(thresholds, feesBps)
	require.NoError(t, err)
	assert.Len(t, table, MaxTiers)
	assert.Equal(t, thresholds, table.Thresholds())
	assert.Equal(t, feesBps, table.FeesBps())
}

func TestComputeFee(t *testing.T) {
	assert.EqualValues(t, 250_000, ComputeFee(1_000_000, 2500))
	assert.EqualValues(t, 0, ComputeFee(1_000_000, 0))
	assert.EqualValues(t, 1_000_000, ComputeFee(1_000_000, MaxBps))

	// Truncated, never rounded up.
	assert.EqualValues(t, 0, ComputeFee(3, 30))
	assert.EqualValues(t, 2, ComputeFee(999, 30))

	// No overflow in the intermediate product.
	assert.EqualValues(t, uint64(math.MaxUint64)/10_000*5+(uint64(math.MaxUint64)%10_000)*5/10_000, ComputeFee(math.MaxUint64, 5))
	assert.EqualValues(t, uint64(math.MaxUint64), ComputeFee(math.MaxUint64, MaxBps))

	r := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		amount := r.Uint64()
		bps := uint16(r.Intn(MaxBps + 1))

		fee := ComputeFee(amount, bps)
		assert.LessOrEqual(t, fee, amount)

		// fee*10_000 <= amount*bps < (fee+1)*10_000, checked without overflow.
		hi, lo := mul128(amount, uint64(bps))
		feeHi, feeLo := mul128(fee, MaxBps)
		assert.True(t, cmp128(feeHi, feeLo, hi, lo) <= 0)
		nextHi, nextLo := mul128(fee+1, MaxBps)
		if fee+1 > fee {
			assert.True(t, cmp128(nextHi, nextLo, hi, lo) > 0)
		}
	}
}

func TestComputeFee_BpsAboveMax(t *testing.T) {
	for _, bps := range []uint16{MaxBps + 1, 20_000, math.MaxUint16} {
		assert.EqualValues(t, 1_000_000, ComputeFee(1_000_000, bps))
		assert.EqualValues(t, uint64(math.MaxUint64), ComputeFee(math.MaxUint64, bps))

		fee, net := Split(999, bps)
		assert.EqualValues(t, 999, fee)
		assert.EqualValues(t, 0, net)
	}
}

func TestSplit(t *testing.T) {
	fee, net := Split(1_000_000, 2500)
	assert.EqualValues(t, 250_000, fee)
	assert.EqualValues(t, 750_000, net)

	fee, net = Split(999, 30)
	assert.EqualValues(t, 2, fee)
	assert.EqualValues(t, 997, net)
}

func TestTable_String(t *testing.T) {
	assert.Equal(t, "[(0,30),(1000000,20),(10000000,10),(100000000,5)]", exampleTable(t).String())
}
