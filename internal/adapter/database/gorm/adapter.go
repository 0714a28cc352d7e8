package gorm

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// NewGormLogger maps a configured log level onto gorm's logger.
func NewGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch config.LogLevel(strings.ToUpper(level)) {
	case config.LogLevelError:
		gormLevel = gormlogger.Error
	case config.LogLevelWarn:
		gormLevel = gormlogger.Warn
	case config.LogLevelInfo, config.LogLevelDebug, config.LogLevelTrace:
		gormLevel = gormlogger.Info
	default:
		gormLevel = gormlogger.Silent
	}
	return gormlogger.New(GormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// GormWriter routes gorm output into the application logger. SQL traces go to DEBUG.
type GormWriter struct{}

func (GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	upper := strings.ToUpper(msg)
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(upper, verb) {
			logger.Debugf("[GORM] %s", msg)
			return
		}
	}
	logger.Infof("[GORM] %s", msg)
}

// GormDBAdapter implements database.DBConnection.
type GormDBAdapter struct {
	db   *gorm.DB
	cfg  database.DatabaseConfig
	name string
}

// NewGormDBAdapter wraps an open gorm handle.
func NewGormDBAdapter(db *gorm.DB, cfg database.DatabaseConfig, name string) *GormDBAdapter {
	return &GormDBAdapter{db: db, cfg: cfg, name: name}
}

func (a *GormDBAdapter) GormDB() *gorm.DB                { return a.db }
func (a *GormDBAdapter) Type() string                    { return a.cfg.Type }
func (a *GormDBAdapter) Name() string                    { return a.name }
func (a *GormDBAdapter) Config() database.DatabaseConfig { return a.cfg }

func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	return a.db.DB()
}

func (a *GormDBAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *GormDBAdapter) IsTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	switch a.cfg.Type {
	case "postgres":
		return strings.Contains(msg, "relation \"") && strings.Contains(msg, "\" does not exist")
	case "mysql":
		return strings.Contains(msg, "Error 1146") && strings.Contains(msg, "doesn't exist")
	case "sqlite":
		return strings.Contains(msg, "no such table:")
	}
	return false
}
