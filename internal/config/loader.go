package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

const (
	moduleName = "config"
	envPrefix  = "RECORDHUB_"
)

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	Expander       EnvironmentExpander
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// loadConfig builds the configuration: defaults, then the embedded YAML (after ${VAR}
// expansion) laid over them, then RECORDHUB_* environment variables.
func loadConfig(envFilePath string, embedded EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()

	if len(embedded) > 0 {
		data := []byte(embedded)
		if expander != nil {
			expanded, err := expander.Expand(data)
			if err != nil {
				return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false)
			}
			data = expanded
		}
		// Unmarshalling onto the defaults only overwrites keys present in the document.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false)
	}
	cfg.EmbeddedConfig = embedded
	return cfg, nil
}

// LoadConfig loads the configuration outside of fx, e.g. from tests or one-shot tools.
func LoadConfig(envFilePath string, embedded EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embedded, NewOsEnvironmentExpander())
}

// NewConfigProvider is the fx provider for *Config. It also applies the logging settings.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, exception.NewBatchError(moduleName, "invalid configuration", err, false)
	}
	logger.SetLogLevel(cfg.RecordHub.System.Logging.Level)
	logger.SetFormat(cfg.RecordHub.System.Logging.Format)
	logger.Infof("Log level set to: %s", cfg.RecordHub.System.Logging.Level)
	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	rh := c.RecordHub
	if rh.Processor.IntervalSeconds <= 0 {
		return fmt.Errorf("processor.interval_seconds must be positive, got %d", rh.Processor.IntervalSeconds)
	}
	if rh.Processor.RowBudget <= 0 {
		return fmt.Errorf("processor.row_budget must be positive, got %d", rh.Processor.RowBudget)
	}
	switch rh.Queue.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown queue.type %q", rh.Queue.Type)
	}
	switch rh.Events.Type {
	case "log", "kafka":
	default:
		return fmt.Errorf("unknown events.type %q", rh.Events.Type)
	}
	if rh.Events.Type == "kafka" && len(rh.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers is required for kafka events")
	}
	return nil
}

// loadStructFromEnv walks the struct by yaml tag and applies matching environment
// variables, e.g. RECORDHUB_PROCESSOR_ROW_BUDGET.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		var parts []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}
