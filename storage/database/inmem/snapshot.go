package inmemdb

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/gradeledger/core/ledger"
)

type snapshotRepository struct {
	db *snapshotTable
}

// NewSnapshotRepository keeps snapshots encoded, the way they are stored in Postgres,
// so that callers never share state with the store.
func NewSnapshotRepository(db *DB) ledger.Repository {
	return &snapshotRepository{db: db.snapshot}
}

func (repo *snapshotRepository) SaveSnapshot(_ context.Context, key ledger.ID, snap ledger.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if repo.db.closed {
		return errClosed()
	}
	repo.db.table[key] = data
	return nil
}

func (repo *snapshotRepository) LoadSnapshot(_ context.Context, key ledger.ID) (ledger.Snapshot, error) {
	repo.db.mutex.RLock()
	data, ok := repo.db.table[key]
	closed := repo.db.closed
	repo.db.mutex.RUnlock()
	if closed {
		return ledger.Snapshot{}, errClosed()
	}
	if !ok {
		return ledger.Snapshot{}, ledger.ErrNotFound
	}

	var snap ledger.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ledger.Snapshot{}, errors.Wrap(err, "decoding snapshot")
	}
	return snap, nil
}

func (repo *snapshotRepository) DeleteSnapshot(_ context.Context, key ledger.ID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.db.closed {
		return errClosed()
	}
	if _, ok := repo.db.table[key]; !ok {
		return ledger.ErrNotFound
	}
	delete(repo.db.table, key)
	return nil
}
