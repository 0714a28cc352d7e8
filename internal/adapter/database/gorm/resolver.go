package gorm

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// GormDBConnectionResolver picks the provider for a named connection by its configured type.
type GormDBConnectionResolver struct {
	providers map[string]database.DBProvider
	cfg       *config.Config
}

// ResolverParams receives every DBProvider registered in the value group.
type ResolverParams struct {
	fx.In
	DBProviders []database.DBProvider `group:"db_providers"`
	Cfg         *config.Config
}

func NewGormDBConnectionResolver(p ResolverParams) *GormDBConnectionResolver {
	providers := make(map[string]database.DBProvider)
	for _, provider := range p.DBProviders {
		providers[provider.Type()] = provider
	}
	return &GormDBConnectionResolver{providers: providers, cfg: p.Cfg}
}

// ResolveDBConnection returns the named connection, reconnecting when a ping fails.
func (r *GormDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	dbConfig, err := DecodeConfig(r.cfg, name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[dbConfig.Type]
	if !ok {
		return nil, fmt.Errorf("DBConnectionResolver: DBProvider for type '%s' not found for connection '%s'", dbConfig.Type, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: failed to get connection '%s': %w", name, err)
	}

	sqlDB, err := conn.GetSQLDB()
	if err != nil {
		return nil, err
	}
	if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		logger.Warnf("DBConnectionResolver: connection '%s' is invalid (%v). Attempting to reconnect.", name, pingErr)
		conn, err = provider.ForceReconnect(name)
		if err != nil {
			return nil, fmt.Errorf("DBConnectionResolver: failed to reconnect connection '%s': %w", name, err)
		}
	}
	return conn, nil
}

// NewDefaultConnection resolves the connection named by database.default_ref.
func NewDefaultConnection(lc fx.Lifecycle, resolver database.DBConnectionResolver, cfg *config.Config) (database.DBConnection, error) {
	conn, err := resolver.ResolveDBConnection(context.Background(), cfg.RecordHub.Database.DefaultRef)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Infof("Closing DB connection '%s'.", conn.Name())
			return conn.Close()
		},
	})
	return conn, nil
}
