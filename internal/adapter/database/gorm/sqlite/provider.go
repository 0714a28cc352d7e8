// Package sqlite registers the SQLite dialect and provider.
package sqlite

import (
	"errors"

	"go.uber.org/fx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	gormadapter "github.com/tigerroll/recordhub/internal/adapter/database/gorm"
	"github.com/tigerroll/recordhub/internal/config"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the file path, enabling foreign keys so cascades apply.
func ConnectionString(c database.DatabaseConfig) string {
	if c.Database == ":memory:" {
		return "file::memory:?cache=shared&_foreign_keys=on"
	}
	return c.Database + "?_foreign_keys=on"
}

type SQLiteDBProvider struct {
	*gormadapter.BaseProvider
}

func NewProvider(cfg *config.Config) database.DBProvider {
	return &SQLiteDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "sqlite")}
}

// Module contributes the SQLite provider to the db_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
	)),
)
