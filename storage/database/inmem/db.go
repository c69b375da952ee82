package inmemdb

import (
	"sync"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/ledger"
)

type (
	DB struct {
		snapshot *snapshotTable
	}

	snapshotTable struct {
		table  map[ledger.ID][]byte
		closed bool
		mutex  sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		snapshot: &snapshotTable{table: make(map[ledger.ID][]byte)},
	}
	return db, nil
}

// Close drops every snapshot. Later calls fail with a shutdown error.
func (db *DB) Close() error {
	db.snapshot.mutex.Lock()
	defer db.snapshot.mutex.Unlock()
	db.snapshot.table = nil
	db.snapshot.closed = true
	return nil
}

func errClosed() error {
	return core.NewShutdownError("in-memory store is closed")
}
