// Package database defines the database connection abstractions used by the store and migrations.
package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// DBConnection is one open, named database connection.
type DBConnection interface {
	Type() string
	Name() string
	Close() error
	Config() DatabaseConfig
	// GormDB returns the gorm handle bound to this connection.
	GormDB() *gorm.DB
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
}

// DBProvider opens and caches connections of one database type.
type DBProvider interface {
	GetConnection(name string) (DBConnection, error)
	// ForceReconnect closes and re-establishes an existing connection.
	ForceReconnect(name string) (DBConnection, error)
	CloseAll() error
	Type() string
}

// DBConnectionResolver resolves a healthy connection by its configured name.
type DBConnectionResolver interface {
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProviderGroup is the fx value group collecting every DBProvider.
const DBProviderGroup = "db_providers"
