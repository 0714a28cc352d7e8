package gorm

import (
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/adapter/database"
)

// Module provides the connection resolver and the default connection.
// Dialect modules (sqlite, mysql, postgres) contribute the providers.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGormDBConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
	)),
	fx.Provide(NewDefaultConnection),
)
