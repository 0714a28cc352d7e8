// Package app assembles the fx graph shared by every recordhub command.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/recordhub/internal/adapter/database/gorm"
	"github.com/tigerroll/recordhub/internal/adapter/database/gorm/mysql"
	"github.com/tigerroll/recordhub/internal/adapter/database/gorm/postgres"
	"github.com/tigerroll/recordhub/internal/adapter/database/gorm/sqlite"
	"github.com/tigerroll/recordhub/internal/adapter/mail"
	"github.com/tigerroll/recordhub/internal/adapter/storage"
	"github.com/tigerroll/recordhub/internal/adapter/storage/gcs"
	"github.com/tigerroll/recordhub/internal/adapter/storage/local"
	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/events"
	"github.com/tigerroll/recordhub/internal/export"
	"github.com/tigerroll/recordhub/internal/ingest"
	"github.com/tigerroll/recordhub/internal/invite"
	"github.com/tigerroll/recordhub/internal/metrics"
	"github.com/tigerroll/recordhub/internal/migration"
	"github.com/tigerroll/recordhub/internal/notification"
	"github.com/tigerroll/recordhub/internal/processor"
	"github.com/tigerroll/recordhub/internal/queue"
	"github.com/tigerroll/recordhub/internal/remote"
	"github.com/tigerroll/recordhub/internal/store"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// DBProviderMap is used by main to select dialect providers from DB_ADAPTORS.
var DBProviderMap = map[string]fx.Option{
	"sqlite":   sqlite.Module,
	"mysql":    mysql.Module,
	"postgres": postgres.Module,
}

// StorageProviderMap lists the storage backends; all of them are registered.
var StorageProviderMap = map[string]fx.Option{
	local.ProviderType: local.Module,
	gcs.ProviderType:   gcs.Module,
}

// Options returns the application graph without anything that starts work on its own.
func Options(envFilePath string, embeddedConfig config.EmbeddedConfig, dbProviderOptions []fx.Option) []fx.Option {
	options := []fx.Option{
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		logger.Module,
		config.Module,
		fx.Options(dbProviderOptions...),
		gormadapter.Module,
		migration.Module,
		store.Module,
		storage.Module,
	}
	for _, opt := range StorageProviderMap {
		options = append(options, opt)
	}
	return append(options,
		mail.Module,
		remote.Module,
		queue.Module,
		invite.Module,
		notification.Module,
		events.Module,
		metrics.Module,
		processor.Module,
		ingest.Module,
		export.Module,
	)
}

// Execute builds the graph, fills targets (pointers, as for fx.Populate), starts the
// lifecycle, runs fn and stops the lifecycle again.
func Execute(ctx context.Context, options []fx.Option, fn func(ctx context.Context) error, targets ...interface{}) error {
	app := fx.New(append(append([]fx.Option{}, options...), fx.Populate(targets...))...)
	if err := app.Err(); err != nil {
		return err
	}
	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer stop(app)
	return fn(ctx)
}

// Serve starts the graph with the scheduler and the queue consumer and blocks until
// ctx is cancelled or fx receives a shutdown signal.
func Serve(ctx context.Context, options []fx.Option) error {
	app := fx.New(append(append([]fx.Option{}, options...), processor.Background)...)
	if err := app.Err(); err != nil {
		return err
	}
	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	logger.Infof("recordhub is running.")

	select {
	case <-ctx.Done():
		logger.Warnf("Context cancelled, shutting down.")
	case sig := <-app.Done():
		logger.Warnf("Received signal '%v', shutting down.", sig)
	}
	stop(app)
	return nil
}

func stop(app *fx.App) {
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Failed to stop application: %v", err)
	}
	logger.Infof("Application is shutting down.")
}
