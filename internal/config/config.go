// Package config loads the pricewatch YAML configuration.
package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
)

// CurrentVersion is the only configuration version this build understands.
const CurrentVersion = "1"

// DefaultPath is used when no --config flag is given.
const DefaultPath = "pricewatch.yaml"

// Config is the root of pricewatch.yaml.
type Config struct {
	Version     string            `yaml:"version"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Pricing     PricingConfig     `yaml:"pricing"`
	Server      ServerConfig      `yaml:"server"`
	Status      StatusConfig      `yaml:"status"`
	Journal     JournalConfig     `yaml:"journal"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Catalog     CatalogConfig     `yaml:"catalog"`
}

// CoordinatorConfig configures the price coordinator used by quote and watch.
type CoordinatorConfig struct {
	Mode            CoordinatorMode `yaml:"mode"`                       // immediate|debounced
	Delay           Duration        `yaml:"delay,omitempty"`            // debounce quiet period
	MaxWait         Duration        `yaml:"max_wait,omitempty"`         // upper bound for a burst, 0 disables
	KeepSuperseded  bool            `yaml:"keep_superseded,omitempty"`  // do not cancel superseded calls
	AttemptTimeout  Duration        `yaml:"attempt_timeout,omitempty"`  // per remote call, 0 disables
	EmptyTotal      string          `yaml:"empty_total,omitempty"`      // total shown while idle
	RefreshInterval Duration        `yaml:"refresh_interval,omitempty"` // watch: periodic refetch, 0 disables
}

// PricingConfig selects and configures the remote Calculator transport.
type PricingConfig struct {
	Transport Transport   `yaml:"transport"`          // http|nats
	URL       string      `yaml:"url,omitempty"`      // http base URL
	NATSURL   string      `yaml:"nats_url,omitempty"` // nats server URL
	Subject   string      `yaml:"subject,omitempty"`  // nats subject
	Timeout   Duration    `yaml:"timeout,omitempty"`  // per request
	Retry     RetryConfig `yaml:"retry"`
}

// RetryConfig configures transport level retries of transient failures.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode,omitempty"`
	Initial    Duration         `yaml:"initial,omitempty"`
	Max        Duration         `yaml:"max,omitempty"`
	MaxRetries int              `yaml:"max_retries"`
}

// ServerConfig configures the reference pricing service started by serve.
type ServerConfig struct {
	Listen    string   `yaml:"listen"`
	NATSURL   string   `yaml:"nats_url,omitempty"` // empty disables the NATS responder
	Subject   string   `yaml:"subject,omitempty"`
	Locale    string   `yaml:"locale,omitempty"` // BCP 47 tag for formatted totals
	JitterMin Duration `yaml:"jitter_min,omitempty"`
	JitterMax Duration `yaml:"jitter_max,omitempty"`
}

// StatusConfig configures the status API exposed by watch. Empty Listen disables it.
type StatusConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// JournalConfig configures the SQLite attempt journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CatalogConfig points at the product catalog file.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// LoadEnv loads .env and .env.local when present. Variables already set in
// the process environment are never overridden.
func LoadEnv() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(path), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment file", logfields.Path(path))
	}
}

// Load reads, expands, normalises, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	LoadEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFoundError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes. ${VAR} references are
// expanded from the environment before decoding.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config").Build()
	}
	if cfg.Version != CurrentVersion {
		return nil, ferrors.ConfigError("unsupported configuration version").
			WithContext("version", cfg.Version).
			WithContext("expected", CurrentVersion).
			Build()
	}

	for _, w := range normalize(&cfg) {
		slog.Warn("Config normalization", "detail", w)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
