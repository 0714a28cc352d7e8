// Package config holds the application configuration and its loading rules.
package config

// EmbeddedConfig holds the raw application.yaml, typically embedded by main.
type EmbeddedConfig []byte

// LogLevel controls the verbosity of log output.
type LogLevel string

const (
	LogLevelTrace  LogLevel = "TRACE"
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // TRACE, DEBUG, INFO, WARN, ERROR, SILENT.
	Format string `yaml:"format"` // "text" or "json".
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// ConnectionsConfig holds named adapter connections. Each entry is decoded by the
// adapter that owns it, so the values stay untyped here.
type ConnectionsConfig struct {
	DefaultRef  string                 `yaml:"default_ref"`
	Connections map[string]interface{} `yaml:"connections"`
}

// ProcessorConfig controls the batch processor and its scheduler.
type ProcessorConfig struct {
	IntervalSeconds       int `yaml:"interval_seconds"`
	RowBudget             int `yaml:"row_budget"`
	InvitationResendHours int `yaml:"invitation_resend_hours"`
}

// RedisConfig holds the Redis queue connection.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	Key           string `yaml:"key"`
	DeadLetterKey string `yaml:"dead_letter_key"`
}

// QueueConfig selects the activation queue.
type QueueConfig struct {
	Type         string      `yaml:"type"` // "memory" or "redis".
	Buffer       int         `yaml:"buffer"`
	MaxAttempts  int         `yaml:"max_attempts"`
	BlockSeconds int         `yaml:"block_seconds"`
	Redis        RedisConfig `yaml:"redis"`
}

// RemoteConfig points at the remote identity registry.
type RemoteConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ClientID       string `yaml:"client_id"`
}

// InvitationConfig controls invitation tokens.
type InvitationConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
	BaseURL  string `yaml:"base_url"`
}

// MailConfig holds SMTP settings. When disabled, mails are logged instead of sent.
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// EventsConfig selects where processing events are published.
type EventsConfig struct {
	Type    string   `yaml:"type"` // "log" or "kafka".
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	Type     string `yaml:"type"` // "prometheus", "otel" or "noop".
	Addr     string `yaml:"addr"` // listen address for /metrics; empty disables the endpoint.
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"`
}

// TracingConfig configures OTLP trace export. An empty endpoint disables export.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Protocol    string `yaml:"protocol"` // "http" or "grpc".
	ServiceName string `yaml:"service_name"`
}

// ExportConfig configures task exports to object storage.
type ExportConfig struct {
	StorageRef  string `yaml:"storage_ref"` // empty selects storage.default_ref.
	Prefix      string `yaml:"prefix"`
	Compression string `yaml:"compression"` // parquet codec: SNAPPY, GZIP or NONE.
	// ArchivePayloads keeps a copy of every ingested payload under <prefix>/payloads.
	ArchivePayloads bool `yaml:"archive_payloads"`
}

// RecordHubConfig holds everything under the "recordhub" key.
type RecordHubConfig struct {
	System     SystemConfig      `yaml:"system"`
	Database   ConnectionsConfig `yaml:"database"`
	Storage    ConnectionsConfig `yaml:"storage"`
	Processor  ProcessorConfig   `yaml:"processor"`
	Queue      QueueConfig       `yaml:"queue"`
	Remote     RemoteConfig      `yaml:"remote"`
	Invitation InvitationConfig  `yaml:"invitation"`
	Mail       MailConfig        `yaml:"mail"`
	Events     EventsConfig      `yaml:"events"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Tracing    TracingConfig     `yaml:"tracing"`
	Export     ExportConfig      `yaml:"export"`
}

// Config is the root of the application configuration.
type Config struct {
	RecordHub      RecordHubConfig `yaml:"recordhub"`
	EmbeddedConfig EmbeddedConfig  `yaml:"-"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		RecordHub: RecordHubConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO", Format: "text"},
			},
			Database: ConnectionsConfig{DefaultRef: "default", Connections: map[string]interface{}{}},
			Storage:  ConnectionsConfig{DefaultRef: "default", Connections: map[string]interface{}{}},
			Processor: ProcessorConfig{
				IntervalSeconds:       60,
				RowBudget:             200,
				InvitationResendHours: 168,
			},
			Queue: QueueConfig{
				Type:         "memory",
				Buffer:       64,
				MaxAttempts:  3,
				BlockSeconds: 5,
				Redis: RedisConfig{
					Addr:          "localhost:6379",
					Key:           "recordhub:tasks",
					DeadLetterKey: "recordhub:tasks:dead",
				},
			},
			Remote:     RemoteConfig{TimeoutSeconds: 30},
			Invitation: InvitationConfig{TTLHours: 720},
			Mail:       MailConfig{Port: 587},
			Events:     EventsConfig{Type: "log", Topic: "recordhub.events"},
			Metrics:    MetricsConfig{Type: "prometheus", Protocol: "http"},
			Tracing:    TracingConfig{Protocol: "http", ServiceName: "recordhub"},
			Export:     ExportConfig{Prefix: "exports", Compression: "SNAPPY"},
		},
	}
}
