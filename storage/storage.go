// Package storage selects the ledger snapshot store configured for the app.
package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/ledger"
	"github.com/trezcool/gradeledger/storage/database"
	"github.com/trezcool/gradeledger/storage/database/inmem"
	"github.com/trezcool/gradeledger/storage/database/sqlx"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Open returns the snapshot repository selected by conf.Storage.Driver.
// db is nil unless the repository is backed by Postgres; migrate runs the
// pending migrations before the repository is handed out.
func Open(conf *core.Config, migrate bool) (repo ledger.Repository, db *sql.DB, err error) {
	switch conf.Storage.Driver {
	case DriverPostgres:
		if err = database.CreateIfNotExist(context.Background(), conf); err != nil {
			return nil, nil, errors.Wrap(err, "creating database")
		}
		if db, err = database.Connect(context.Background(), conf); err != nil {
			return nil, nil, err
		}
		if migrate {
			if err = database.Migrate(db, "up"); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return sqlxrepos.NewSnapshotRepository(db), db, nil

	case DriverMemory, "":
		mem, oErr := inmemdb.Open()
		if oErr != nil {
			return nil, nil, oErr
		}
		return inmemdb.NewSnapshotRepository(mem), nil, nil
	}
	return nil, nil, errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
}
