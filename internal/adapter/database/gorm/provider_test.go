package gorm_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	gormadapter "github.com/tigerroll/recordhub/internal/adapter/database/gorm"
	"github.com/tigerroll/recordhub/internal/adapter/database/gorm/mysql"
	"github.com/tigerroll/recordhub/internal/adapter/database/gorm/postgres"
	"github.com/tigerroll/recordhub/internal/adapter/database/gorm/sqlite"
	"github.com/tigerroll/recordhub/internal/config"
)

func sqliteConfig(t *testing.T) *config.Config {
	cfg := config.NewConfig()
	cfg.RecordHub.Database.DefaultRef = "main"
	cfg.RecordHub.Database.Connections["main"] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "hub.db"),
		"pool":     map[string]interface{}{"max_open_conns": 1},
	}
	cfg.RecordHub.Database.Connections["other"] = map[string]interface{}{
		"type": "mysql",
		"host": "db",
	}
	return cfg
}

func TestBaseProvider_GetConnection(t *testing.T) {
	cfg := sqliteConfig(t)
	provider := sqlite.NewProvider(cfg)

	conn, err := provider.GetConnection("main")
	require.NoError(t, err)
	again, err := provider.GetConnection("main")
	require.NoError(t, err)
	assert.Same(t, conn, again)
	assert.Equal(t, "sqlite", conn.Type())
	assert.Equal(t, "main", conn.Name())
	assert.Equal(t, 1, conn.Config().Pool.MaxOpenConns)

	err = conn.GormDB().Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)
	assert.True(t, conn.IsTableNotExistError(err))
	assert.False(t, conn.IsTableNotExistError(errors.New("boom")))

	_, err = provider.GetConnection("other")
	assert.ErrorContains(t, err, "provider type mismatch")
	_, err = provider.GetConnection("absent")
	assert.ErrorContains(t, err, "not found")

	require.NoError(t, provider.CloseAll())
}

func TestResolver_ResolveDBConnection(t *testing.T) {
	cfg := sqliteConfig(t)
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})

	conn, err := resolver.ResolveDBConnection(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, "main", conn.Name())

	_, err = resolver.ResolveDBConnection(context.Background(), "other")
	assert.ErrorContains(t, err, "DBProvider for type 'mysql' not found")
}

func TestConnectionStrings(t *testing.T) {
	c := database.DatabaseConfig{Host: "db", User: "hub", Password: "pw", Database: "recordhub"}
	assert.Equal(t, "hub:pw@tcp(db:3306)/recordhub?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true", mysql.ConnectionString(c))

	c.Schema = "hub"
	assert.Equal(t, "host=db port=5432 user=hub password=pw dbname=recordhub sslmode=disable search_path=hub", postgres.ConnectionString(c))

	assert.Equal(t, "file::memory:?cache=shared&_foreign_keys=on", sqlite.ConnectionString(database.DatabaseConfig{Database: ":memory:"}))
}

func TestGetDialectorFactory_Unknown(t *testing.T) {
	_, err := gormadapter.GetDialectorFactory("oracle")
	assert.Error(t, err)
}
