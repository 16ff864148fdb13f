// Package constants provides shared configuration values used across revive.
package constants

import "time"

// Configuration file defaults
const (
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "revive.yaml"

	// DefaultEnvFile holds secrets (bot token, provider token) next to the config
	DefaultEnvFile = ".env"

	// DefaultAPIHost is the default host for the API server
	DefaultAPIHost = "127.0.0.1"

	// DefaultAPIPort is the default port for the API server
	DefaultAPIPort = 5566

	// DefaultAPIAddress is the default API address for client connections
	DefaultAPIAddress = "http://127.0.0.1:5566"

	// DefaultMetricsPath is where prometheus metrics are served
	DefaultMetricsPath = "/metrics"
)

// Secret environment variables, as the bot has always read them from .env
const (
	EnvBotToken      = "BOT_TOKEN"
	EnvAdminID       = "ADMIN_ID"
	EnvHetznerToken  = "HETZNER_TOKEN"
	EnvLogChannelID  = "LOG_CHANNEL_ID"
	EnvAPIToken      = "REVIVE_API_TOKEN"
	EnvWatchServerID = "REVIVE_SERVER_ID"
)

// Watchdog defaults
const (
	// DefaultCheckInterval is how often the monitored server is probed
	DefaultCheckInterval = 60 * time.Second

	// DefaultFailureThreshold is the number of consecutive failed probes
	// that triggers recovery
	DefaultFailureThreshold = 3

	// DefaultProbeTimeout bounds a single probe
	DefaultProbeTimeout = 5 * time.Second

	// DefaultProbeCount is the number of echo requests per ICMP probe
	DefaultProbeCount = 3

	// DefaultTCPPort is probed when the tcp prober is selected
	DefaultTCPPort = 22

	// DefaultRecoveryTimeout bounds one whole recovery run
	DefaultRecoveryTimeout = 10 * time.Minute

	// DefaultLocation is used when a server's location cannot be read
	DefaultLocation = "nbg1"
)

// Probe kinds
const (
	ProbeICMP = "icmp"
	ProbeTCP  = "tcp"
)

// Retry defaults for provider calls made during recovery
const (
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = 5 * time.Second
)

// Timeout and duration defaults
const (
	// DefaultRequestTimeout is the default timeout for API and provider requests
	DefaultRequestTimeout = 30 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful shutdown
	DefaultShutdownTimeout = 10 * time.Second
)

// Event journal
const (
	// DefaultEventBufferSize is the number of events kept in memory
	DefaultEventBufferSize = 500

	// DefaultEventLimit is the default number of events to return
	DefaultEventLimit = 50

	// MaxEventLimit caps how many events a single request can ask for
	MaxEventLimit = 5000

	// DefaultSubscriptionBuffer is the default size for subscription buffers
	DefaultSubscriptionBuffer = 100
)

// Telegram
const (
	// DefaultTelegramRate is the sustained message rate towards Telegram
	DefaultTelegramRate = 1.0

	// TelegramPollTimeout is the long-poll timeout in seconds
	TelegramPollTimeout = 60
)

// ANSI color codes for terminal output
var (
	// ColorReset resets the terminal color
	ColorReset = "\033[0m"

	// SeverityColors colour event lines by severity
	SeverityColors = map[string]string{
		"info":  "\033[36m", // cyan
		"warn":  "\033[33m", // yellow
		"error": "\033[91m", // bright red
	}
)
