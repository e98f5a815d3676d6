package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/marsprotocol/vault-engine/pkg/database/query"
	"github.com/marsprotocol/vault-engine/pkg/mars/data/position"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) position.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

func (s *store) Save(ctx context.Context, record *position.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = obj.dbSave(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromModel(obj)
	res.CopyTo(record)

	return nil
}

func (s *store) Get(ctx context.Context, owner, vaultId string) (*position.Record, error) {
	obj, err := dbGet(ctx, s.db, owner, vaultId)
	if err != nil {
		return nil, err
	}
	return fromModel(obj), nil
}

func (s *store) GetAllByOwner(ctx context.Context, owner string) ([]*position.Record, error) {
	models, err := dbGetAllByOwner(ctx, s.db, owner)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

func (s *store) GetAllByPhase(ctx context.Context, phase position.Phase, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*position.Record, error) {
	models, err := dbGetAllByPhase(ctx, s.db, phase, cursor, limit, direction)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

func (s *store) CountByPhase(ctx context.Context, phase position.Phase) (uint64, error) {
	return dbCountByPhase(ctx, s.db, phase)
}

func fromModels(models []*model) []*position.Record {
	res := make([]*position.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res
}
