// Package migration applies the embedded schema migrations with golang-migrate.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

const (
	moduleName = "migration"
	// MigrationsTable records the applied schema version.
	MigrationsTable = "schema_migrations"
)

//go:embed sql
var migrationsFS embed.FS

// Migrator applies schema migrations to a database connection.
type Migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Version() (uint, bool, error)
}

type migratorImpl struct {
	dbConn database.DBConnection
	source fs.FS
}

// NewMigrator creates a Migrator for the embedded schema of the connection's dialect.
func NewMigrator(dbConn database.DBConnection) Migrator {
	return &migratorImpl{dbConn: dbConn, source: migrationsFS}
}

func (m *migratorImpl) databaseDriver(sqlDB *sql.DB) (migratedb.Driver, error) {
	switch m.dbConn.Type() {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: MigrationsTable})
	}
	return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbConn.Type())
}

func (m *migratorImpl) instance() (*migrate.Migrate, error) {
	sqlDB, err := m.dbConn.GetSQLDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	path := "sql/" + m.dbConn.Type()
	sourceDriver, err := iofs.New(m.source, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}
	dbDriver, err := m.databaseDriver(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", sourceDriver, m.dbConn.Type(), dbDriver)
}

// run executes one command. The migrate instance is not closed: closing it would
// close the *sql.DB shared with the rest of the application.
func (m *migratorImpl) run(command string, step func(*migrate.Migrate) error) error {
	logger.Infof("Executing migration '%s' on '%s' (%s).", command, m.dbConn.Name(), m.dbConn.Type())
	inst, err := m.instance()
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to prepare migrations", err, false)
	}
	if err := step(inst); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return exception.NewBatchError(moduleName, fmt.Sprintf("migration '%s' failed", command), err, false)
	}
	logger.Infof("Migration '%s' completed successfully.", command)
	return nil
}

func (m *migratorImpl) Up(ctx context.Context) error {
	return m.run("up", func(inst *migrate.Migrate) error { return inst.Up() })
}

func (m *migratorImpl) Down(ctx context.Context) error {
	return m.run("down", func(inst *migrate.Migrate) error { return inst.Down() })
}

// Version reports the applied version and whether the last migration left the schema dirty.
func (m *migratorImpl) Version() (uint, bool, error) {
	inst, err := m.instance()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := inst.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}
