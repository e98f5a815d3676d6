// Package shortvec implements the compact-u16 length prefix used in Solana
// transaction encoding.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedBytes = 3

// EncodeLen writes n as a compact-u16. Values above math.MaxUint16 are rejected.
func EncodeLen(w io.Writer, n int) (written int, err error) {
	if n < 0 || n > math.MaxUint16 {
		return 0, errors.Errorf("len %d outside [0, %d]", n, math.MaxUint16)
	}

	var buf [maxEncodedBytes]byte
	size := 0
	for {
		buf[size] = byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			size++
			break
		}
		buf[size] |= 0x80
		size++
	}

	return w.Write(buf[:size])
}

// DecodeLen reads a compact-u16 from r.
func DecodeLen(r io.Reader) (int, error) {
	var val int
	var b [1]byte

	for offset := 0; ; offset++ {
		if offset >= maxEncodedBytes {
			return 0, errors.Errorf("invalid size: more than %d bytes", maxEncodedBytes)
		}
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		val |= int(b[0]&0x7f) << (offset * 7)
		if b[0]&0x80 == 0 {
			return val, nil
		}
	}
}
