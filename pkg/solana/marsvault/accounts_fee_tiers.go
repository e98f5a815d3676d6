package marsvault

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	FeeTiersAccountSize = (8 + // discriminator
		1 + // len
		8*MaxFeeTiers + // thresholds
		2*MaxFeeTiers + // fees_bps
		1) // bump
)

var FeeTiersAccountDiscriminator = accountDiscriminator("FeeTiers")

// FeeTiersAccount is shared by the withdraw and insurance fee tier tables.
// Only the first len entries of the fixed size arrays are meaningful.
type FeeTiersAccount struct {
	Thresholds []uint64
	FeesBps    []uint16
	Bump       uint8
}

func (obj *FeeTiersAccount) Unmarshal(data []byte) error {
	if len(data) < FeeTiersAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, FeeTiersAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	var count uint8
	getUint8(data, &count, &offset)
	if count > MaxFeeTiers {
		return ErrInvalidAccountData
	}

	obj.Thresholds = make([]uint64, count)
	for i := 0; i < MaxFeeTiers; i++ {
		var threshold uint64
		getUint64(data, &threshold, &offset)
		if i < int(count) {
			obj.Thresholds[i] = threshold
		}
	}

	obj.FeesBps = make([]uint16, count)
	for i := 0; i < MaxFeeTiers; i++ {
		var bps uint16
		getUint16(data, &bps, &offset)
		if i < int(count) {
			obj.FeesBps[i] = bps
		}
	}

	getUint8(data, &obj.Bump, &offset)

	return nil
}

func (obj *FeeTiersAccount) String() string {
	tiers := make([]string, len(obj.Thresholds))
	for i := range obj.Thresholds {
		tiers[i] = fmt.Sprintf("(%d,%d)", obj.Thresholds[i], obj.FeesBps[i])
	}

	return fmt.Sprintf(
		"FeeTiers{tiers=[%s],bump=%d}",
		strings.Join(tiers, ","),
		obj.Bump,
	)
}
