package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts the logging section.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.RecordHub.System.Logging
}

// Module provides *Config and its sections. The embedded YAML is supplied by main.
var Module = fx.Options(
	fx.Provide(func() EnvironmentExpander { return NewOsEnvironmentExpander() }),
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(func(cfg *Config) ProcessorConfig { return cfg.RecordHub.Processor }),
	fx.Provide(func(cfg *Config) QueueConfig { return cfg.RecordHub.Queue }),
	fx.Provide(func(cfg *Config) RemoteConfig { return cfg.RecordHub.Remote }),
	fx.Provide(func(cfg *Config) InvitationConfig { return cfg.RecordHub.Invitation }),
	fx.Provide(func(cfg *Config) MailConfig { return cfg.RecordHub.Mail }),
	fx.Provide(func(cfg *Config) EventsConfig { return cfg.RecordHub.Events }),
	fx.Provide(func(cfg *Config) MetricsConfig { return cfg.RecordHub.Metrics }),
	fx.Provide(func(cfg *Config) TracingConfig { return cfg.RecordHub.Tracing }),
	fx.Provide(func(cfg *Config) ExportConfig { return cfg.RecordHub.Export }),
)
