// Package config loads and validates gateway configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Credentials CredentialsConfig `mapstructure:"credentials"`
	API         APIConfig         `mapstructure:"api"`
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Export      ExportConfig      `mapstructure:"export"`
	Events      EventsConfig      `mapstructure:"events"`
}

// CredentialsConfig points at the Google credentials used for every session.
type CredentialsConfig struct {
	KeyFile string   `mapstructure:"key_file"`
	Scopes  []string `mapstructure:"scopes"`
}

// APIConfig tunes how the Search Console API is reached.
type APIConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`

	// RateLimitRPS caps calls per property; zero disables limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TelemetryConfig describes tracing and metrics setup.
type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`
	ProjectID   string `mapstructure:"project_id"`
}

// ExportConfig selects where analytics reports are written.
type ExportConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig selects where sitemap submission events are published.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoadEnvFile exports the variables in a dotenv file so SCGATEWAY_*
// overrides can live next to the binary. Variables already set in the
// environment win. A missing file is not an error.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("load env file %s: %w", path, err)
	}
	return true, nil
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCGATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("credentials.key_file", "SCGATEWAY_CREDENTIALS_KEY_FILE", "GOOGLE_APPLICATION_CREDENTIALS"); err != nil {
		return Config{}, fmt.Errorf("bind credentials env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("credentials.scopes", []string{"https://www.googleapis.com/auth/webmasters.readonly"})
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("api.rate_limit_rps", 10)
	v.SetDefault("api.rate_limit_burst", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("telemetry.service_name", "search-console-gateway")
	v.SetDefault("telemetry.version", "dev")
	v.SetDefault("export.provider", "noop")
	v.SetDefault("export.prefix", "searchanalytics")
	v.SetDefault("events.provider", "noop")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0")
	}
	if c.API.RateLimitRPS < 0 || c.API.RateLimitBurst < 0 {
		return fmt.Errorf("api.rate_limit_rps and api.rate_limit_burst must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Export.Provider {
	case "noop":
	case "local":
		if c.Export.BaseDir == "" {
			return fmt.Errorf("export.base_dir must be set when export.provider is local")
		}
	case "gcs":
		if c.Export.GCSBucket == "" {
			return fmt.Errorf("export.gcs_bucket must be set when export.provider is gcs")
		}
	default:
		return fmt.Errorf("export.provider %q is not supported", c.Export.Provider)
	}
	switch c.Events.Provider {
	case "noop", "memory":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicID == "" {
			return fmt.Errorf("events.project_id and events.topic_id must be set when events.provider is pubsub")
		}
	default:
		return fmt.Errorf("events.provider %q is not supported", c.Events.Provider)
	}
	return nil
}

// RequestTimeout converts the API timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}
