package position

import (
	"context"
	"errors"

	"github.com/marsprotocol/vault-engine/pkg/database/query"
)

var (
	ErrNotFound     = errors.New("position not found")
	ErrStaleVersion = errors.New("position version is stale")
)

type Store interface {
	// Save creates or updates a position. Updates must carry the version last
	// read, otherwise ErrStaleVersion is returned.
	Save(ctx context.Context, record *Record) error

	// Get gets the position for an owner in a vault
	Get(ctx context.Context, owner, vaultId string) (*Record, error)

	// GetAllByOwner gets every position held by an owner
	GetAllByOwner(ctx context.Context, owner string) ([]*Record, error)

	// GetAllByPhase gets all positions in a phase
	GetAllByPhase(ctx context.Context, phase Phase, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// CountByPhase returns the count of positions in the requested phase
	CountByPhase(ctx context.Context, phase Phase) (uint64, error)
}
