package position

import (
	"errors"
	"time"

	"github.com/marsprotocol/vault-engine/pkg/pointer"
)

type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseStaked
	PhaseUnstakeRequested
	PhaseUnstakeClaimable

	// PhaseWithdrawn is never stored. A full withdraw passes through it and
	// saves the position as PhaseIdle so a new cycle can start.
	PhaseWithdrawn
)

// Record tracks where a single owner's position in a vault is in the
// stake, unstake, claim and withdraw cycle.
type Record struct {
	Id uint64

	Owner   string
	VaultId string

	Phase        Phase
	SharesAmount uint64

	// StakeBaseline is the owner's farm balance before a confirmed deposit
	// whose shares are still unresolved. See SharesPending.
	StakeBaseline uint64

	// ExitRequested flags a staked position for the background worker to
	// unstake, claim and withdraw.
	ExitRequested bool

	LastSignature *string

	Version uint64

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.Owner) == 0 {
		return errors.New("owner is required")
	}

	if len(r.VaultId) == 0 {
		return errors.New("vault id is required")
	}

	if r.Phase > PhaseWithdrawn {
		return errors.New("invalid phase")
	}

	if r.LastSignature != nil && len(*r.LastSignature) == 0 {
		return errors.New("last signature is empty")
	}

	if r.StakeBaseline != 0 && !r.SharesPending() {
		return errors.New("stake baseline is only kept while shares are pending")
	}

	switch r.Phase {
	case PhaseStaked:
		if r.SharesAmount == 0 && r.LastSignature == nil {
			return errors.New("shares amount is required")
		}
	case PhaseUnstakeRequested, PhaseUnstakeClaimable:
		if r.SharesAmount == 0 {
			return errors.New("shares amount is required")
		}
	case PhaseIdle:
		if r.SharesAmount != 0 {
			return errors.New("idle position cannot hold shares")
		}
		if r.ExitRequested {
			return errors.New("idle position cannot request exit")
		}
	}

	return nil
}

// SharesPending reports whether the position's deposit landed but the shares
// it staked haven't been read yet.
func (r *Record) SharesPending() bool {
	return r.Phase == PhaseStaked && r.SharesAmount == 0
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		Owner:   r.Owner,
		VaultId: r.VaultId,

		Phase:         r.Phase,
		SharesAmount:  r.SharesAmount,
		StakeBaseline: r.StakeBaseline,

		ExitRequested: r.ExitRequested,

		LastSignature: pointer.Copy(r.LastSignature),

		Version: r.Version,

		CreatedAt:     r.CreatedAt,
		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Owner = r.Owner
	dst.VaultId = r.VaultId

	dst.Phase = r.Phase
	dst.SharesAmount = r.SharesAmount
	dst.StakeBaseline = r.StakeBaseline

	dst.ExitRequested = r.ExitRequested

	dst.LastSignature = pointer.Copy(r.LastSignature)

	dst.Version = r.Version

	dst.CreatedAt = r.CreatedAt
	dst.LastUpdatedAt = r.LastUpdatedAt
}

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStaked:
		return "staked"
	case PhaseUnstakeRequested:
		return "unstake_requested"
	case PhaseUnstakeClaimable:
		return "unstake_claimable"
	case PhaseWithdrawn:
		return "withdrawn"
	}
	return "unknown"
}
