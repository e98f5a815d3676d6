package query

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
)

// Cursor is an opaque, big endian encoded record id used for paging.
type Cursor []byte

var (
	EmptyCursor Cursor = Cursor([]byte{})
)

func ToCursor(val uint64) Cursor {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, val)
	return b
}

// ToUint64 decodes the cursor. Cursors shorter than 8 bytes decode to zero.
func (c Cursor) ToUint64() uint64 {
	if len(c) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(c)
}

func (c Cursor) ToBase58() string {
	return base58.Encode(c)
}
