// Package database provisions the Postgres database holding ledger snapshots.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/gradeledger/core"
	appfs "github.com/trezcool/gradeledger/fs"
)

const (
	migrationsDir = "migrations"
	maintenanceDB = "postgres"
	pingAttempts  = 30
)

// dataSourceName builds the connection URL for dbName, as the admin role when admin is set.
func dataSourceName(conf core.DatabaseConfig, dbName string, admin bool) string {
	user := url.UserPassword(conf.User, conf.Password)
	if admin && conf.AdminUser != "" {
		user = url.UserPassword(conf.AdminUser, conf.AdminPassword)
	}

	q := url.Values{}
	q.Set("sslmode", "require")
	if conf.DisableTLS {
		q.Set("sslmode", "disable")
	}
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Engine,
		User:     user,
		Host:     conf.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Connect opens the ledger database and waits until it accepts connections.
func Connect(ctx context.Context, conf *core.Config) (*sql.DB, error) {
	db, err := connect(ctx, conf.Database, conf.Database.Name, false)
	if err != nil {
		return nil, err
	}
	return db.DB, nil
}

func connect(ctx context.Context, conf core.DatabaseConfig, dbName string, admin bool) (*sqlx.DB, error) {
	db, err := sqlx.Open(conf.Engine, dataSourceName(conf, dbName, admin))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", dbName)
	}
	if err = waitReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "connecting to %s", dbName)
	}
	return db, nil
}

// waitReady pings db until it answers, backing off 100ms more after every failed attempt.
func waitReady(ctx context.Context, db *sqlx.DB) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "ping timeout")
}

// CreateIfNotExist creates the app role (as the admin role) and the ledger
// database (as the app role) unless they already exist.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	if err := provision(ctx, conf.Database, true, ensureRole); err != nil {
		return errors.Wrap(err, "creating app user")
	}
	if err := provision(ctx, conf.Database, false, ensureDatabase); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

func provision(ctx context.Context, conf core.DatabaseConfig, admin bool, fn func(context.Context, *sqlx.DB, core.DatabaseConfig) error) error {
	db, err := connect(ctx, conf, maintenanceDB, admin)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(ctx, db, conf)
}

func ensureRole(ctx context.Context, db *sqlx.DB, conf core.DatabaseConfig) error {
	if conf.User == "" {
		return nil
	}
	var exists bool
	if err := db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)`, conf.User); err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err := db.ExecContext(ctx, createRoleQuery(conf.User, conf.Password))
	return err
}

func ensureDatabase(ctx context.Context, db *sqlx.DB, conf core.DatabaseConfig) error {
	var exists bool
	if err := db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, conf.Name); err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err := db.ExecContext(ctx, createDatabaseQuery(conf.Name))
	return err
}

// DDL takes no bind parameters, so names and secrets are quoted instead.

func createRoleQuery(user, password string) string {
	return "CREATE USER " + pq.QuoteIdentifier(user) + " CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(password)
}

func createDatabaseQuery(name string) string {
	return "CREATE DATABASE " + pq.QuoteIdentifier(name)
}

// Migrate runs a goose command ("up", "down", "status", ...) over the embedded migrations.
func Migrate(db *sql.DB, command string, args ...string) error {
	if command == "" {
		command = "up"
	}
	if err := goose.RunFS(command, db, appfs.FS, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}
