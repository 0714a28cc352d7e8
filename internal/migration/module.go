package migration

import "go.uber.org/fx"

// Module provides the Migrator for the default connection.
var Module = fx.Options(
	fx.Provide(NewMigrator),
)
