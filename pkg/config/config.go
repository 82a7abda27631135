package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	envConfigPath        = "XLATOR_CONFIG"
	envPrefix            = "XLATOR"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
)

// ErrInvalidConfig wraps every configuration load or validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root runtime configuration loaded from config.yaml and XLATOR_* env vars.
type Config struct {
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Translate   TranslateConfig   `mapstructure:"translate"`
	Hints       HintsConfig       `mapstructure:"hints"`
	Session     SessionConfig     `mapstructure:"session"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Status      StatusConfig      `mapstructure:"status"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// TelegramConfig configures the Telegram bot account the translator runs as.
type TelegramConfig struct {
	Token         string        `mapstructure:"token"`
	AllowFrom     []string      `mapstructure:"allow_from"`
	ProbeInterval time.Duration `mapstructure:"probe_interval" validate:"gte=1s"`
}

// TranslateConfig configures the translation API client.
type TranslateConfig struct {
	APIKeyEnv      string        `mapstructure:"api_key_env" validate:"required"`
	BaseURL        string        `mapstructure:"base_url" validate:"omitempty,url"`
	Model          string        `mapstructure:"model" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0s"`
}

// HintsConfig configures language-hint detection.
type HintsConfig struct {
	// File overrides the built-in language map.
	File            string   `mapstructure:"file"`
	DefaultLanguage string   `mapstructure:"default_language" validate:"required,min=2"`
	Separators      string   `mapstructure:"separators"`
	Ranges          []string `mapstructure:"ranges" validate:"dive,required"`
}

// SessionConfig controls reconnect throttling.
type SessionConfig struct {
	ReconnectMinInterval time.Duration `mapstructure:"reconnect_min_interval" validate:"gte=1s"`
}

// DiagnosticsConfig controls the periodic diagnostic report. Zero disables it.
type DiagnosticsConfig struct {
	ReportInterval time.Duration `mapstructure:"report_interval" validate:"gte=0s"`
}

// StatusConfig configures the HTTP status server bind settings.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	Level     string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	SDKLevel  string `mapstructure:"sdk_level" validate:"omitempty,oneof=debug info warn warning error"`
	AddSource bool   `mapstructure:"add_source"`
}

// LoadConfig resolves the config file (optional), applies defaults and
// environment overrides, and validates the result.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read config file: %v", ErrInvalidConfig, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config: %v", ErrInvalidConfig, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			problems := make([]string, 0, len(fieldErrs))
			for _, fieldErr := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s failed %q", fieldErr.Namespace(), fieldErr.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}

// applyEnvOverrides injects the conventional Telegram env vars on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Telegram.Token = token
	}

	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is XLATOR_CONFIG first, then cwd-local fallback paths. No file is
// not an error: defaults and env vars are enough to run.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.yaml"),
		filepath.Join(cwd, "config", "config.yaml"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
