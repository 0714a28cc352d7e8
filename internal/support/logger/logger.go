// Package logger provides the leveled logging used across recordhub.
// It keeps a small package-level API (Debugf, Infof, ...) and delegates output to logrus.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields = logrus.Fields

var base = newBaseLogger()

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetLogLevel sets the global log level.
// Valid values are "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL" and "SILENT" (case-insensitive).
// An unknown value falls back to INFO and is reported as a warning.
func SetLogLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		base.SetLevel(logrus.TraceLevel)
	case "DEBUG":
		base.SetLevel(logrus.DebugLevel)
	case "INFO", "":
		base.SetLevel(logrus.InfoLevel)
	case "WARN", "WARNING":
		base.SetLevel(logrus.WarnLevel)
	case "ERROR":
		base.SetLevel(logrus.ErrorLevel)
	case "FATAL":
		base.SetLevel(logrus.FatalLevel)
	case "SILENT":
		base.SetLevel(logrus.PanicLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
		base.Warnf("Unknown log level '%s' specified. Defaulting to INFO level.", level)
	}
}

// SetFormat switches between the "text" (default) and "json" formatters.
func SetFormat(format string) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects log output. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// IsDebugEnabled reports whether DEBUG messages are currently emitted.
func IsDebugEnabled() bool {
	return base.IsLevelEnabled(logrus.DebugLevel)
}

// WithFields returns an entry carrying the given structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return base.WithFields(fields)
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	base.Debugf(format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	base.Infof(format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	base.Warnf(format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	base.Errorf(format, v...)
}

// Fatalf formats and outputs a FATAL level log message, then terminates the program.
func Fatalf(format string, v ...interface{}) {
	base.Fatalf(format, v...)
}

// Printf satisfies printf-style logger interfaces of third-party libraries (gorm, go-mail).
// Messages are logged at DEBUG level.
type Printf struct{}

// Printf logs the formatted message at DEBUG level.
func (Printf) Printf(format string, v ...interface{}) {
	base.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
