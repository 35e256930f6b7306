package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
credentials:
  key_file: /secrets/sa.json
  scopes: ["https://www.googleapis.com/auth/webmasters"]
api:
  endpoint: http://localhost:9999/
  timeout_seconds: 45
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
logging:
  development: false
telemetry:
  service_name: gateway
  project_id: my-project
export:
  provider: gcs
  gcs_bucket: reports
  prefix: daily
events:
  provider: pubsub
  project_id: my-project
  topic_id: sitemaps
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Credentials.KeyFile != "/secrets/sa.json" {
		t.Fatalf("expected key file override, got %q", cfg.Credentials.KeyFile)
	}
	if len(cfg.Credentials.Scopes) != 1 || cfg.Credentials.Scopes[0] != "https://www.googleapis.com/auth/webmasters" {
		t.Fatalf("expected scope override, got %v", cfg.Credentials.Scopes)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Export.Provider != "gcs" || cfg.Export.GCSBucket != "reports" || cfg.Export.Prefix != "daily" {
		t.Fatalf("expected export overrides to apply: %+v", cfg.Export)
	}
	if cfg.Events.TopicID != "sitemaps" {
		t.Fatalf("expected events topic override: %+v", cfg.Events)
	}
	if got := cfg.RequestTimeout(); got != 45*time.Second {
		t.Fatalf("expected request timeout 45s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/env/creds.json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Credentials.KeyFile != "/env/creds.json" {
		t.Fatalf("expected key file from GOOGLE_APPLICATION_CREDENTIALS, got %q", cfg.Credentials.KeyFile)
	}
	if len(cfg.Credentials.Scopes) != 1 || !strings.HasSuffix(cfg.Credentials.Scopes[0], "webmasters.readonly") {
		t.Fatalf("expected read-only default scope, got %v", cfg.Credentials.Scopes)
	}
	if cfg.Export.Provider != "noop" || cfg.Events.Provider != "noop" {
		t.Fatalf("expected noop providers by default")
	}
	if cfg.API.RateLimitRPS != 10 || cfg.API.RateLimitBurst != 10 {
		t.Fatalf("expected default rate limit 10/10, got %v/%d", cfg.API.RateLimitRPS, cfg.API.RateLimitBurst)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected info log level by default, got %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		API:     APIConfig{TimeoutSeconds: 10},
		Export:  ExportConfig{Provider: "noop"},
		Events:  EventsConfig{Provider: "noop"},
		Logging: LoggingConfig{Development: true},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.API.TimeoutSeconds = 0
				return c
			}(),
			want: "api.timeout_seconds",
		},
		{
			name: "negative rate limit",
			cfg: func() Config {
				c := base
				c.API.RateLimitRPS = -1
				return c
			}(),
			want: "api.rate_limit_rps",
		},
		{
			name: "auth missing api key",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				return c
			}(),
			want: "auth.api_key",
		},
		{
			name: "local export missing base dir",
			cfg: func() Config {
				c := base
				c.Export.Provider = "local"
				return c
			}(),
			want: "export.base_dir",
		},
		{
			name: "gcs export missing bucket",
			cfg: func() Config {
				c := base
				c.Export.Provider = "gcs"
				return c
			}(),
			want: "export.gcs_bucket",
		},
		{
			name: "unknown export provider",
			cfg: func() Config {
				c := base
				c.Export.Provider = "s3"
				return c
			}(),
			want: "export.provider",
		},
		{
			name: "pubsub missing topic",
			cfg: func() Config {
				c := base
				c.Events.Provider = "pubsub"
				c.Events.ProjectID = "p"
				return c
			}(),
			want: "events.topic_id",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SCGATEWAY_SERVER_PORT=7070\nSCGATEWAY_AUTH_API_KEY=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SCGATEWAY_AUTH_API_KEY", "from-env")
	t.Setenv("SCGATEWAY_SERVER_PORT", "")
	if err := os.Unsetenv("SCGATEWAY_SERVER_PORT"); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}

	loaded, err := LoadEnvFile(path)
	if err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if !loaded {
		t.Fatal("expected env file to be loaded")
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected port from env file, got %d", cfg.Server.Port)
	}
	if cfg.Auth.APIKey != "from-env" {
		t.Fatalf("expected existing env to win, got %q", cfg.Auth.APIKey)
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	t.Parallel()

	loaded, err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("expected missing env file to be ignored, got %v", err)
	}
	if loaded {
		t.Fatal("expected loaded=false for missing file")
	}

	loaded, err = LoadEnvFile("")
	if err != nil || loaded {
		t.Fatalf("expected empty path to be a no-op, got loaded=%v err=%v", loaded, err)
	}
}
