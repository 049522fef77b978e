package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSettings_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keystonectl.yaml")

	content := `
auth:
  auth_url: "https://identity.example.org:35357/v2.0"
  token: "sekrit"
  timeout_seconds: 10
store:
  path: "/var/lib/keystonectl/history.db"
telemetry:
  logging:
    level: "debug"
    format: "json"
  metrics:
    enabled: true
    listen_address: ":9200"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if settings.Auth.AuthURL != "https://identity.example.org:35357/v2.0" {
		t.Errorf("unexpected auth URL: %s", settings.Auth.AuthURL)
	}
	if settings.Auth.Token != "sekrit" {
		t.Errorf("unexpected token: %s", settings.Auth.Token)
	}
	if settings.Auth.Timeout() != 10*time.Second {
		t.Errorf("unexpected timeout: %v", settings.Auth.Timeout())
	}
	if settings.Store.Path != "/var/lib/keystonectl/history.db" {
		t.Errorf("unexpected store path: %s", settings.Store.Path)
	}
}

func TestLoadSettings_EnvFallback(t *testing.T) {
	t.Setenv(EnvAuthURL, "https://env.example.org:35357/v2.0")
	t.Setenv(EnvToken, "env-token")

	settings, err := LoadSettings("")
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if settings.Auth.AuthURL != "https://env.example.org:35357/v2.0" {
		t.Errorf("env auth URL not applied: %s", settings.Auth.AuthURL)
	}
	if settings.Auth.Token != "env-token" {
		t.Errorf("env token not applied: %s", settings.Auth.Token)
	}
}

func TestLoadSettings_FileWinsOverEnv(t *testing.T) {
	t.Setenv(EnvToken, "env-token")

	dir := t.TempDir()
	path := filepath.Join(dir, "keystonectl.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  token: \"file-token\"\n"), 0o600); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings.Auth.Token != "file-token" {
		t.Errorf("file token was overridden by env: %s", settings.Auth.Token)
	}
}

func TestLoadSettings_MissingFileIsNotFatal(t *testing.T) {
	settings, err := LoadSettings("/nonexistent/keystonectl.yaml")
	if err != nil {
		t.Fatalf("LoadSettings failed for missing file: %v", err)
	}
	if settings == nil {
		t.Fatal("expected settings even without a file")
	}
}

func TestLoadSettings_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keystonectl.yaml")
	if err := os.WriteFile(path, []byte("auth: [not a map"), 0o600); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}

	if _, err := LoadSettings(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestSettings_ToTelemetryConfig(t *testing.T) {
	settings := &Settings{
		Telemetry: TelemetrySettings{
			Logging: LoggingSettings{Level: "debug", Format: "json"},
			Metrics: MetricsSettings{Enabled: true, ListenAddress: ":9200"},
			Tracing: TracingSettings{Enabled: true, Exporter: "otlp", Endpoint: "collector:4317"},
		},
	}

	cfg := settings.ToTelemetryConfig()
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging settings not applied: %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.ListenAddress != ":9200" {
		t.Errorf("metrics settings not applied: %+v", cfg.Metrics)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Exporter != "otlp" {
		t.Errorf("tracing settings not applied: %+v", cfg.Tracing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("projected config invalid: %v", err)
	}
}

func TestSettings_DefaultsPreserved(t *testing.T) {
	settings := &Settings{}
	cfg := settings.ToTelemetryConfig()

	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level, got %s", cfg.Logging.Level)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should default to disabled")
	}
}
