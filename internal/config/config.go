package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level revive configuration
type Config struct {
	EnvFile  string         `yaml:"env_file"`
	Log      LogConfig      `yaml:"log"`
	API      APIConfig      `yaml:"api"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Retry    RetryConfig    `yaml:"retry"`
	Provider ProviderConfig `yaml:"provider"`
	Telegram TelegramConfig `yaml:"telegram"`
	Events   EventsConfig   `yaml:"events"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// APIConfig defines the HTTP API configuration
type APIConfig struct {
	Port  int    `yaml:"port" validate:"min=0,max=65535"`
	Host  string `yaml:"host" validate:"required"`
	Auth  *bool  `yaml:"auth,omitempty"` // nil = auto-determine based on host
	Token string `yaml:"-"`              // from REVIVE_API_TOKEN, generated when empty
}

// MetricsConfig controls the prometheus endpoint on the API server
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"startswith=/"`
}

// WatchdogConfig holds the health-check loop settings
type WatchdogConfig struct {
	// ServerID optionally registers a target at startup
	ServerID         string        `yaml:"server_id"`
	CheckInterval    time.Duration `yaml:"check_interval"`
	FailureThreshold int           `yaml:"failure_threshold" validate:"min=1"`
	Probe            string        `yaml:"probe" validate:"oneof=icmp tcp"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	ProbeCount       int           `yaml:"probe_count" validate:"min=1,max=20"`
	TCPPort          int           `yaml:"tcp_port" validate:"min=1,max=65535"`
	Privileged       *bool         `yaml:"privileged,omitempty"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
}

// IsPrivileged reports whether raw ICMP sockets should be used
func (w WatchdogConfig) IsPrivileged() bool {
	if w.Privileged == nil {
		return true
	}
	return *w.Privileged
}

// RetryConfig is the bounded retry policy for provider calls during recovery
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" validate:"min=1,max=10"`
	Backoff     time.Duration `yaml:"backoff"`
}

// ProviderConfig configures the Hetzner Cloud gateway
type ProviderConfig struct {
	Token           string        `yaml:"-"` // from HETZNER_TOKEN
	Endpoint        string        `yaml:"endpoint,omitempty" validate:"omitempty,url"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	DefaultLocation string        `yaml:"default_location" validate:"required"`
	WaitForCreate   bool          `yaml:"wait_for_create"` // deletes are always waited for
}

// TelegramConfig configures the bot. Identity comes from the env file.
type TelegramConfig struct {
	Enabled       bool    `yaml:"enabled"`
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gt=0"`
	Token         string  `yaml:"-"` // BOT_TOKEN
	AdminID       int64   `yaml:"-"` // ADMIN_ID
	LogChannelID  int64   `yaml:"-"` // LOG_CHANNEL_ID
}

// EventsConfig sizes the in-memory event journal
type EventsConfig struct {
	BufferSize int `yaml:"buffer_size" validate:"min=10"`
}

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	// First check if file exists
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	// Check file permissions for security
	if err := CheckFilePermissions(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	applyDefaults(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns a configuration with every default applied. It is also the
// configuration used when no config file exists.
func Default() *Config {
	config := &Config{
		EnvFile: constants.DefaultEnvFile,
		Metrics: MetricsConfig{Enabled: true},
		Provider: ProviderConfig{
			WaitForCreate: true,
		},
		Telegram: TelegramConfig{Enabled: true},
	}
	applyDefaults(config)
	return config
}

// applyDefaults fills zero values
func applyDefaults(config *Config) {
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if config.API.Port == 0 {
		config.API.Port = constants.DefaultAPIPort
	}
	if config.API.Host == "" {
		config.API.Host = constants.DefaultAPIHost
	}

	if config.Metrics.Path == "" {
		config.Metrics.Path = constants.DefaultMetricsPath
	}

	w := &config.Watchdog
	if w.CheckInterval == 0 {
		w.CheckInterval = constants.DefaultCheckInterval
	}
	if w.FailureThreshold == 0 {
		w.FailureThreshold = constants.DefaultFailureThreshold
	}
	if w.Probe == "" {
		w.Probe = constants.ProbeICMP
	}
	w.Probe = strings.ToLower(w.Probe)
	if w.ProbeTimeout == 0 {
		w.ProbeTimeout = constants.DefaultProbeTimeout
	}
	if w.ProbeCount == 0 {
		w.ProbeCount = constants.DefaultProbeCount
	}
	if w.TCPPort == 0 {
		w.TCPPort = constants.DefaultTCPPort
	}
	if w.RecoveryTimeout == 0 {
		w.RecoveryTimeout = constants.DefaultRecoveryTimeout
	}

	if config.Retry.MaxAttempts == 0 {
		config.Retry.MaxAttempts = constants.DefaultRetryAttempts
	}
	if config.Retry.Backoff == 0 {
		config.Retry.Backoff = constants.DefaultRetryBackoff
	}

	if config.Provider.RequestTimeout == 0 {
		config.Provider.RequestTimeout = constants.DefaultRequestTimeout
	}
	if config.Provider.DefaultLocation == "" {
		config.Provider.DefaultLocation = constants.DefaultLocation
	}

	if config.Telegram.RatePerSecond == 0 {
		config.Telegram.RatePerSecond = constants.DefaultTelegramRate
	}

	if config.Events.BufferSize == 0 {
		config.Events.BufferSize = constants.DefaultEventBufferSize
	}
}

// SlogLevel converts the configured level name
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from the log section
func (c LogConfig) NewLogger(w *os.File) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
