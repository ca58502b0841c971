package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds the effective patchbay configuration.
type Settings struct {
	Workspace  string                       `mapstructure:"workspace" yaml:"workspace" json:"workspace"`
	LogLevel   string                       `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	HTTP       HTTPSettings                 `mapstructure:"http" yaml:"http" json:"http"`
	Retry      RetrySettings                `mapstructure:"retry" yaml:"retry" json:"retry"`
	Connectors map[string]ConnectorSettings `mapstructure:"connectors" yaml:"connectors,omitempty" json:"connectors,omitempty"`
}

// HTTPSettings configures the outbound HTTP client.
type HTTPSettings struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent" json:"user_agent"`
}

// RetrySettings configures the 429 backoff policy.
type RetrySettings struct {
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval" json:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval" json:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier" yaml:"multiplier" json:"multiplier"`
}

// ConnectorSettings overrides per-connector defaults.
type ConnectorSettings struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Account string `mapstructure:"account" yaml:"account,omitempty" json:"account,omitempty"`
}

// MaxRetriesLimit bounds retry.max_retries.
const MaxRetriesLimit = 10

// NewViper returns a viper instance with patchbay's defaults, the
// PATCHBAY_ environment prefix, and config.yaml in Dir() as the file source.
func NewViper(userAgent string) *viper.Viper {
	v := viper.New()
	setDefaults(v, userAgent)

	v.SetEnvPrefix("PATCHBAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := Dir(); dir != "" {
		v.AddConfigPath(dir)
	}
	return v
}

func setDefaults(v *viper.Viper, userAgent string) {
	v.SetDefault("workspace", "/memory")
	v.SetDefault("log_level", "warn")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", userAgent)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_interval", time.Second)
	v.SetDefault("retry.max_interval", 30*time.Second)
	v.SetDefault("retry.multiplier", 2.0)
}

// Load reads the config file if one exists, then decodes and validates the
// merged settings. A missing config file is not an error.
func Load(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings.Workspace = filepath.Clean(settings.Workspace)
	return &settings, nil
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	var problems []string

	if s.Workspace == "" {
		problems = append(problems, "workspace must not be empty")
	}
	if s.HTTP.Timeout <= 0 {
		problems = append(problems, "http.timeout must be positive")
	}
	if s.Retry.MaxRetries < 0 || s.Retry.MaxRetries > MaxRetriesLimit {
		problems = append(problems, fmt.Sprintf("retry.max_retries must be between 0 and %d", MaxRetriesLimit))
	}
	if s.Retry.InitialInterval <= 0 {
		problems = append(problems, "retry.initial_interval must be positive")
	}
	if s.Retry.MaxInterval <= 0 {
		problems = append(problems, "retry.max_interval must be positive")
	}
	if s.Retry.Multiplier < 1 {
		problems = append(problems, "retry.multiplier must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid settings: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Connector returns the overrides for a connector (zero value if none).
func (s *Settings) Connector(name string) ConnectorSettings {
	if s.Connectors == nil {
		return ConnectorSettings{}
	}
	return s.Connectors[name]
}

// ConfigFile returns the config file viper read, or the default location
// when none was found.
func ConfigFile(v *viper.Viper) string {
	if used := v.ConfigFileUsed(); used != "" {
		return used
	}
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}
