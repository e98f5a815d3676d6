package marsvault

import (
	"crypto/ed25519"
	"errors"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
	ErrInvalidVaultId         = errors.New("invalid vault id")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("7P2niwZ6oajuHfZZijeXejSGW1EfMGrcFCVtGEKHfJLW")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	SYSTEM_PROGRAM_ID    = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
	SPL_TOKEN_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"))
)

const (
	// MaxFeeTiers is the capacity of an on chain fee tier table.
	MaxFeeTiers = 10

	// MaxBps is 100% expressed in basis points.
	MaxBps = 10_000
)
