package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/marsprotocol/vault-engine/pkg/database/postgres"
	q "github.com/marsprotocol/vault-engine/pkg/database/query"
	"github.com/marsprotocol/vault-engine/pkg/mars/data/position"
	"github.com/marsprotocol/vault-engine/pkg/pointer"
)

const (
	tableName = "mars__core_position"

	allColumns = `id, owner, vault_id, phase, shares_amount, stake_baseline, exit_requested, last_signature, version, created_at, last_updated_at`
)

type model struct {
	Id            sql.NullInt64  `db:"id"`
	Owner         string         `db:"owner"`
	VaultId       string         `db:"vault_id"`
	Phase         uint8          `db:"phase"`
	SharesAmount  uint64         `db:"shares_amount"`
	StakeBaseline uint64         `db:"stake_baseline"`
	ExitRequested bool           `db:"exit_requested"`
	LastSignature sql.NullString `db:"last_signature"`
	Version       uint64         `db:"version"`
	CreatedAt     time.Time      `db:"created_at"`
	LastUpdatedAt time.Time      `db:"last_updated_at"`
}

func toModel(obj *position.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = now
	}

	return &model{
		Id:            sql.NullInt64{Int64: int64(obj.Id), Valid: obj.Id > 0},
		Owner:         obj.Owner,
		VaultId:       obj.VaultId,
		Phase:         uint8(obj.Phase),
		SharesAmount:  obj.SharesAmount,
		StakeBaseline: obj.StakeBaseline,
		ExitRequested: obj.ExitRequested,
		LastSignature: sql.NullString{String: pointer.ValueOrDefault(obj.LastSignature, ""), Valid: obj.LastSignature != nil},
		Version:       obj.Version,
		CreatedAt:     obj.CreatedAt,
		LastUpdatedAt: now,
	}, nil
}

func fromModel(m *model) *position.Record {
	return &position.Record{
		Id:            uint64(m.Id.Int64),
		Owner:         m.Owner,
		VaultId:       m.VaultId,
		Phase:         position.Phase(m.Phase),
		SharesAmount:  m.SharesAmount,
		StakeBaseline: m.StakeBaseline,
		ExitRequested: m.ExitRequested,
		LastSignature: pointer.IfValid(m.LastSignature.Valid, m.LastSignature.String),
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		LastUpdatedAt: m.LastUpdatedAt,
	}
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(owner, vault_id, phase, shares_amount, stake_baseline, exit_requested, last_signature, version, created_at, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8 + 1, $9, $10)

			ON CONFLICT (owner, vault_id)
			DO UPDATE
				SET phase = $3, shares_amount = $4, stake_baseline = $5, exit_requested = $6, last_signature = $7, version = ` + tableName + `.version + 1, last_updated_at = $10
				WHERE ` + tableName + `.owner = $1 AND ` + tableName + `.vault_id = $2 AND ` + tableName + `.version = $8

			RETURNING ` + allColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Owner,
			m.VaultId,
			m.Phase,
			m.SharesAmount,
			m.StakeBaseline,
			m.ExitRequested,
			m.LastSignature,
			m.Version,
			m.CreatedAt,
			m.LastUpdatedAt,
		).StructScan(m)
		if err != nil {
			return pgutil.CheckNoRows(err, position.ErrStaleVersion)
		}
		return nil
	})
}

func dbGet(ctx context.Context, db *sqlx.DB, owner, vaultId string) (*model, error) {
	res := &model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE owner = $1 AND vault_id = $2
		LIMIT 1`

	err := db.GetContext(ctx, res, query, owner, vaultId)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, position.ErrNotFound)
	}
	return res, nil
}

func dbGetAllByOwner(ctx context.Context, db *sqlx.DB, owner string) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE owner = $1
		ORDER BY id ASC`

	err := db.SelectContext(ctx, &res, query, owner)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, position.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, position.ErrNotFound
	}
	return res, nil
}

func dbGetAllByPhase(ctx context.Context, db *sqlx.DB, phase position.Phase, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE phase = $1`

	opts := []interface{}{phase}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, position.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, position.ErrNotFound
	}
	return res, nil
}

func dbCountByPhase(ctx context.Context, db *sqlx.DB, phase position.Phase) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName + `
		WHERE phase = $1`

	err := db.GetContext(ctx, &res, query, phase)
	if err != nil {
		return 0, err
	}
	return res, nil
}
