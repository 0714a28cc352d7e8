package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/app"
	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

//go:embed resources/application.yaml
var embeddedConfig []byte

// getDBProviderOptions selects the dialect providers named in DB_ADAPTORS (comma separated).
// All of them are used when it is unset.
func getDBProviderOptions() []fx.Option {
	adaptors := os.Getenv("DB_ADAPTORS")
	if adaptors == "" {
		adaptors = "postgres,mysql,sqlite"
	}
	options := make([]fx.Option, 0)
	for _, name := range strings.Split(adaptors, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if opt, ok := app.DBProviderMap[name]; ok {
			options = append(options, opt)
			logger.Debugf("DB Provider '%s' selected and registered.", name)
		} else {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
		}
	}
	return options
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Stopping...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}
	options := app.Options(envFilePath, config.EmbeddedConfig(embeddedConfig), getDBProviderOptions())

	if err := newRootCmd(options).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
