package fee

import "math/bits"

func mul128(a, b uint64) (uint64, uint64) {
	return bits.Mul64(a, b)
}

func cmp128(aHi, aLo, bHi, bLo uint64) int {
	switch {
	case aHi < bHi:
		return -1
	case aHi > bHi:
		return 1
	case aLo < bLo:
		return -1
	case aLo > bLo:
		return 1
	}
	return 0
}
