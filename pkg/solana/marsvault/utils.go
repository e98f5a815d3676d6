package marsvault

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"

	"github.com/mr-tron/base58"
)

const discriminatorSize = 8

// anchorDiscriminator is the first 8 bytes of sha256("<namespace>:<name>").
func anchorDiscriminator(namespace, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return h[:discriminatorSize]
}

func instructionDiscriminator(name string) []byte {
	return anchorDiscriminator("global", name)
}

func accountDiscriminator(name string) []byte {
	return anchorDiscriminator("account", name)
}

func putDiscriminator(dst []byte, v []byte, offset *int) {
	copy(dst[*offset:], v)
	*offset += discriminatorSize
}
func getDiscriminator(src []byte, dst *[]byte, offset *int) {
	*dst = make([]byte, discriminatorSize)
	copy(*dst, src[*offset:])
	*offset += discriminatorSize
}

func putKey(dst []byte, v ed25519.PublicKey, offset *int) {
	copy(dst[*offset:], v)
	*offset += ed25519.PublicKeySize
}
func getKey(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
}

func putVaultId(dst []byte, v VaultId, offset *int) {
	copy(dst[*offset:], v[:])
	*offset += VaultIdSize
}
func getVaultId(src []byte, dst *VaultId, offset *int) {
	copy(dst[:], src[*offset:])
	*offset += VaultIdSize
}

func putUint8(dst []byte, v uint8, offset *int) {
	dst[*offset] = v
	*offset += 1
}
func getUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[*offset]
	*offset += 1
}

func putUint16(dst []byte, v uint16, offset *int) {
	binary.LittleEndian.PutUint16(dst[*offset:], v)
	*offset += 2
}
func getUint16(src []byte, dst *uint16, offset *int) {
	*dst = binary.LittleEndian.Uint16(src[*offset:])
	*offset += 2
}

func putUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst[*offset:], v)
	*offset += 4
}
func getUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
}

func putUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
}
func getUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
}

// putBytes writes a borsh Vec<u8>: a u32 length prefix followed by the bytes.
func putBytes(dst []byte, v []byte, offset *int) {
	putUint32(dst, uint32(len(v)), offset)
	copy(dst[*offset:], v)
	*offset += len(v)
}

func putBool(dst []byte, v bool, offset *int) {
	if v {
		putUint8(dst, 1, offset)
	} else {
		putUint8(dst, 0, offset)
	}
}
func getBool(src []byte, dst *bool, offset *int) {
	var v uint8
	getUint8(src, &v, offset)
	*dst = v != 0
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
