// Package mysql registers the MySQL dialect and provider.
package mysql

import (
	"fmt"

	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	gormadapter "github.com/tigerroll/recordhub/internal/adapter/database/gorm"
	"github.com/tigerroll/recordhub/internal/config"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds a go-sql-driver DSN with time parsing enabled.
func ConnectionString(c database.DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
		c.User, c.Password, c.Host, port, c.Database)
}

type MySQLDBProvider struct {
	*gormadapter.BaseProvider
}

func NewProvider(cfg *config.Config) database.DBProvider {
	return &MySQLDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "mysql")}
}

// Module contributes the MySQL provider to the db_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
	)),
)
