package fee

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/pkg/errors"
)

const (
	// MaxTiers is the largest tier table an admin may configure.
	MaxTiers = 10

	// MaxBps is 100% in basis points.
	MaxBps = 10_000
)

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrTooManyTiers         = errors.New("too many fee tiers")
	ErrNoFeeTiersConfigured = errors.New("no fee tiers configured")
)

// Tier applies Bps to amounts at or above Threshold, up to the next tier.
type Tier struct {
	Threshold uint64
	Bps       uint16
}

// Table is a fee tier table sorted by strictly ascending threshold, with
// non-increasing basis points.
type Table []Tier

// NewTable validates parallel threshold and fee vectors and builds a Table.
func NewTable(thresholds []uint64, feesBps []uint16) (Table, error) {
	if len(thresholds) != len(feesBps) {
		return nil, errors.Wrapf(ErrInvalidParameter, "%d thresholds but %d fees", len(thresholds), len(feesBps))
	}
	if len(thresholds) > MaxTiers {
		return nil, errors.Wrapf(ErrTooManyTiers, "%d tiers exceeds max of %d", len(thresholds), MaxTiers)
	}

	table := make(Table, len(thresholds))
	for i := range thresholds {
		table[i] = Tier{Threshold: thresholds[i], Bps: feesBps[i]}
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.Wrap(ErrInvalidParameter, "at least one tier is required")
	}
	if len(t) > MaxTiers {
		return errors.Wrapf(ErrTooManyTiers, "%d tiers exceeds max of %d", len(t), MaxTiers)
	}

	for i, tier := range t {
		if tier.Bps > MaxBps {
			return errors.Wrapf(ErrInvalidParameter, "tier %d: bps %d exceeds %d", i, tier.Bps, MaxBps)
		}

		if i == 0 {
			continue
		}

		prev := t[i-1]
		if tier.Threshold <= prev.Threshold {
			return errors.Wrapf(ErrInvalidParameter, "tier %d: threshold %d is not above %d", i, tier.Threshold, prev.Threshold)
		}
		if tier.Bps > prev.Bps {
			return errors.Wrapf(ErrInvalidParameter, "tier %d: bps %d is above previous tier's %d", i, tier.Bps, prev.Bps)
		}
	}

	return nil
}

// Thresholds and FeesBps return the table as parallel vectors, the way it's
// stored on chain.
func (t Table) Thresholds() []uint64 {
	res := make([]uint64, len(t))
	for i, tier := range t {
		res[i] = tier.Threshold
	}
	return res
}

func (t Table) FeesBps() []uint16 {
	res := make([]uint16, len(t))
	for i, tier := range t {
		res[i] = tier.Bps
	}
	return res
}

func (t Table) Clone() Table {
	if t == nil {
		return nil
	}

	cloned := make(Table, len(t))
	copy(cloned, t)
	return cloned
}

func (t Table) String() string {
	parts := make([]string, len(t))
	for i, tier := range t {
		parts[i] = fmt.Sprintf("(%d,%d)", tier.Threshold, tier.Bps)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ResolveFee returns the bps of the largest threshold not exceeding amount.
// Amounts below the smallest threshold get the smallest tier's bps.
func ResolveFee(amount uint64, tiers Table) (uint16, error) {
	if len(tiers) == 0 {
		return 0, ErrNoFeeTiersConfigured
	}

	for i := len(tiers) - 1; i >= 0; i-- {
		if tiers[i].Threshold <= amount {
			return tiers[i].Bps, nil
		}
	}

	return tiers[0].Bps, nil
}

// ComputeFee returns floor(amount * bps / 10_000). The remainder stays with
// the depositor. A bps above MaxBps is treated as MaxBps, so the fee never
// exceeds amount; every stored bps is validated against MaxBps before use.
func ComputeFee(amount uint64, bps uint16) uint64 {
	if bps > MaxBps {
		bps = MaxBps
	}

	// hi < MaxBps since bps <= MaxBps, so Div64 can't panic.
	hi, lo := bits.Mul64(amount, uint64(bps))
	quo, _ := bits.Div64(hi, lo, MaxBps)
	return quo
}

// Split returns the fee charged on amount and what remains after it.
func Split(amount uint64, bps uint16) (fee, net uint64) {
	fee = ComputeFee(amount, bps)
	return fee, amount - fee
}
