package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keystonectl/keystonectl/pkg/telemetry"
)

// Environment variables honored when the settings file leaves auth fields
// empty. These are the conventional OpenStack service-token variables.
const (
	EnvAuthURL = "OS_AUTH_URL"
	EnvToken   = "OS_SERVICE_TOKEN"
)

// Settings holds the tool-level configuration read from keystonectl.yaml.
// Catalog documents stay in CUE; this file carries connection, store, and
// telemetry settings only.
type Settings struct {
	// Auth configures the identity service connection.
	Auth AuthSettings `yaml:"auth"`

	// Store configures the history database.
	Store StoreSettings `yaml:"store"`

	// Telemetry configures logging, metrics, and tracing.
	Telemetry TelemetrySettings `yaml:"telemetry"`
}

// AuthSettings configures the identity service connection.
type AuthSettings struct {
	// AuthURL is the Keystone admin endpoint.
	AuthURL string `yaml:"auth_url"`

	// Token is the service token.
	Token string `yaml:"token"`

	// TimeoutSeconds bounds each remote call. Zero means the client
	// default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the configured request timeout.
func (a AuthSettings) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// StoreSettings configures the history database.
type StoreSettings struct {
	// Path is the SQLite database path. Empty disables history recording.
	Path string `yaml:"path"`
}

// TelemetrySettings configures the observability stack.
type TelemetrySettings struct {
	Logging LoggingSettings `yaml:"logging"`
	Metrics MetricsSettings `yaml:"metrics"`
	Tracing TracingSettings `yaml:"tracing"`
}

// LoggingSettings configures structured logging.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

// TracingSettings configures trace export.
type TracingSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// LoadSettings reads a settings file and applies environment fallbacks.
// A missing file is not an error; environment variables alone can carry the
// connection settings.
func LoadSettings(path string) (*Settings, error) {
	settings := &Settings{}

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env
		case err != nil:
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(content, settings); err != nil {
				return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
			}
		}
	}

	settings.applyEnv()
	return settings, nil
}

// applyEnv fills empty auth fields from the conventional environment
// variables. Explicit file values win over the environment.
func (s *Settings) applyEnv() {
	if s.Auth.AuthURL == "" {
		s.Auth.AuthURL = os.Getenv(EnvAuthURL)
	}
	if s.Auth.Token == "" {
		s.Auth.Token = os.Getenv(EnvToken)
	}
}

// ToTelemetryConfig projects the settings onto a telemetry configuration,
// starting from the defaults.
func (s *Settings) ToTelemetryConfig() *telemetry.Config {
	cfg := telemetry.DefaultConfig()

	if s.Telemetry.Logging.Level != "" {
		cfg.Logging.Level = s.Telemetry.Logging.Level
	}
	if s.Telemetry.Logging.Format != "" {
		cfg.Logging.Format = s.Telemetry.Logging.Format
	}
	if s.Telemetry.Logging.Output != "" {
		cfg.Logging.Output = s.Telemetry.Logging.Output
	}

	cfg.Metrics.Enabled = s.Telemetry.Metrics.Enabled
	if s.Telemetry.Metrics.ListenAddress != "" {
		cfg.Metrics.ListenAddress = s.Telemetry.Metrics.ListenAddress
	}

	cfg.Tracing.Enabled = s.Telemetry.Tracing.Enabled
	if s.Telemetry.Tracing.Exporter != "" {
		cfg.Tracing.Exporter = s.Telemetry.Tracing.Exporter
	}
	if s.Telemetry.Tracing.Endpoint != "" {
		cfg.Tracing.Endpoint = s.Telemetry.Tracing.Endpoint
	}

	return cfg
}
