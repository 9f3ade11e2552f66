package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration for the shell.
type Config struct {
	Server    ServerConfig
	Manifest  ManifestConfig
	Probe     ProbeConfig
	Telemetry TelemetryConfig
	Logging   LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8600"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// ManifestConfig holds deployment manifest configuration.
type ManifestConfig struct {
	URL       string        `envconfig:"MANIFEST_URL" default:"http://localhost:8600/config.json"`
	ShellPath string        `envconfig:"SHELL_PATH" default:"web/shell.html"`
	Timeout   time.Duration `envconfig:"MANIFEST_TIMEOUT" default:"10s"`
}

// ProbeConfig holds provider probe configuration.
type ProbeConfig struct {
	Retries int           `envconfig:"PROBE_RETRIES" default:"3"`
	Backoff time.Duration `envconfig:"PROBE_BACKOFF" default:"250ms"`
	Timeout time.Duration `envconfig:"PROBE_TIMEOUT" default:"5s"`
	RPS     float64       `envconfig:"PROBE_RPS" default:"0"`
}

// TelemetryConfig holds client log transmission configuration.
type TelemetryConfig struct {
	Endpoint   string `envconfig:"TELEMETRY_ENDPOINT" default:""`
	WSEndpoint string `envconfig:"TELEMETRY_WS_ENDPOINT" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8600",
			Host: "0.0.0.0",
		},
		Manifest: ManifestConfig{
			URL:       "http://localhost:8600/config.json",
			ShellPath: "web/shell.html",
			Timeout:   10 * time.Second,
		},
		Probe: ProbeConfig{
			Retries: 3,
			Backoff: 250 * time.Millisecond,
			Timeout: 5 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
