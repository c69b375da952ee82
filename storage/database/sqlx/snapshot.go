package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/ledger"
)

type (
	snapshotRepository struct {
		db *sqlx.DB
	}

	snapshotRow struct {
		Key         string      `db:"key"`
		StudentName null.String `db:"student_name"`
		RegNo       null.String `db:"reg_no"`
		Regulation  string      `db:"regulation"`
		Data        string      `db:"data"` // jsonb
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}
)

// NewSnapshotRepository stores ledger snapshots as JSONB documents in Postgres.
func NewSnapshotRepository(db *sql.DB) ledger.Repository {
	return &snapshotRepository{db: sqlx.NewDb(db, "postgres")}
}

const upsertSnapshot = `
INSERT INTO ledger_snapshot (key, student_name, reg_no, regulation, data, created_at, updated_at)
VALUES (:key, :student_name, :reg_no, :regulation, :data, :created_at, :updated_at)
ON CONFLICT (key) DO UPDATE SET
	student_name = EXCLUDED.student_name,
	reg_no = EXCLUDED.reg_no,
	regulation = EXCLUDED.regulation,
	data = EXCLUDED.data,
	updated_at = EXCLUDED.updated_at`

func (repo *snapshotRepository) SaveSnapshot(ctx context.Context, key ledger.ID, snap ledger.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	now := time.Now().UTC()
	row := snapshotRow{
		Key:         string(key),
		StudentName: null.NewString(snap.StudentName, snap.StudentName != ""),
		RegNo:       null.NewString(snap.RegNo, snap.RegNo != ""),
		Regulation:  string(snap.Regulation),
		Data:        string(data),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err = repo.db.NamedExecContext(ctx, upsertSnapshot, row); err != nil {
		return dbErr(err, "saving snapshot")
	}
	return nil
}

func (repo *snapshotRepository) LoadSnapshot(ctx context.Context, key ledger.ID) (ledger.Snapshot, error) {
	var row snapshotRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM ledger_snapshot WHERE key = $1`, string(key))
	if err == sql.ErrNoRows {
		return ledger.Snapshot{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Snapshot{}, dbErr(err, "loading snapshot")
	}

	var snap ledger.Snapshot
	if err = json.Unmarshal([]byte(row.Data), &snap); err != nil {
		return ledger.Snapshot{}, errors.Wrap(err, "decoding snapshot")
	}
	return snap, nil
}

func (repo *snapshotRepository) DeleteSnapshot(ctx context.Context, key ledger.ID) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM ledger_snapshot WHERE key = $1`, string(key))
	if err != nil {
		return dbErr(err, "deleting snapshot")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// dbErr wraps err; a connection that is gone for good becomes a shutdown error.
func dbErr(err error, msg string) error {
	if errors.Is(err, sql.ErrConnDone) {
		return core.NewShutdownError(msg + ": " + err.Error())
	}
	return errors.Wrap(err, msg)
}
