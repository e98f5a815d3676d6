package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/marsprotocol/vault-engine/pkg/database/query"
	"github.com/marsprotocol/vault-engine/pkg/mars/data/position"
)

type ById []*position.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.RWMutex
	records []*position.Record
	last    uint64
}

func New() position.Store {
	return &store{}
}

func (s *store) Save(_ context.Context, data *position.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if item := s.find(data.Owner, data.VaultId); item != nil {
		if item.Version != data.Version {
			return position.ErrStaleVersion
		}

		data.Id = item.Id
		data.CreatedAt = item.CreatedAt
		data.LastUpdatedAt = now
		data.Version++

		data.CopyTo(item)
	} else {
		if data.Version != 0 {
			return position.ErrStaleVersion
		}

		s.last++
		data.Id = s.last
		if data.CreatedAt.IsZero() {
			data.CreatedAt = now
		}
		data.LastUpdatedAt = now
		data.Version++

		cloned := data.Clone()
		s.records = append(s.records, &cloned)
	}

	return nil
}

func (s *store) Get(_ context.Context, owner, vaultId string) (*position.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.find(owner, vaultId)
	if item == nil {
		return nil, position.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

func (s *store) GetAllByOwner(_ context.Context, owner string) ([]*position.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*position.Record
	for _, item := range s.records {
		if item.Owner == owner {
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		return nil, position.ErrNotFound
	}
	return cloneRecords(items), nil
}

func (s *store) GetAllByPhase(_ context.Context, phase position.Phase, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*position.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if items := s.findByPhase(phase); len(items) > 0 {
		res := s.filter(items, cursor, limit, direction)

		if len(res) == 0 {
			return nil, position.ErrNotFound
		}

		return cloneRecords(res), nil
	}

	return nil, position.ErrNotFound
}

func (s *store) CountByPhase(_ context.Context, phase position.Phase) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.findByPhase(phase))), nil
}

func (s *store) find(owner, vaultId string) *position.Record {
	for _, item := range s.records {
		if item.Owner == owner && item.VaultId == vaultId {
			return item
		}
	}
	return nil
}

func (s *store) findByPhase(phase position.Phase) []*position.Record {
	var res []*position.Record
	for _, item := range s.records {
		if item.Phase == phase {
			res = append(res, item)
		}
	}
	return res
}

func (s *store) filter(items []*position.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*position.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*position.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	} else {
		sort.Sort(ById(res))
	}

	if limit > 0 && len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func cloneRecords(items []*position.Record) []*position.Record {
	var res []*position.Record
	for _, item := range items {
		cloned := item.Clone()
		res = append(res, &cloned)
	}
	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.last = 0
}
