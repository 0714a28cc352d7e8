// Package postgres registers the PostgreSQL dialect and provider.
package postgres

import (
	"fmt"
	"strings"

	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	gormadapter "github.com/tigerroll/recordhub/internal/adapter/database/gorm"
	"github.com/tigerroll/recordhub/internal/config"
)

func init() {
	gormadapter.RegisterDialector("postgres", func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds a key=value DSN.
func ConnectionString(c database.DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts := []string{
		fmt.Sprintf("host=%s", c.Host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("user=%s", c.User),
		fmt.Sprintf("password=%s", c.Password),
		fmt.Sprintf("dbname=%s", c.Database),
		fmt.Sprintf("sslmode=%s", sslmode),
	}
	if c.Schema != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", c.Schema))
	}
	return strings.Join(parts, " ")
}

type PostgresDBProvider struct {
	*gormadapter.BaseProvider
}

func NewProvider(cfg *config.Config) database.DBProvider {
	return &PostgresDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "postgres")}
}

// Module contributes the PostgreSQL provider to the db_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
	)),
)
