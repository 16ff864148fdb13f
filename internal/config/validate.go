package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charliek/revive/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for errors
func Validate(config *Config) error {
	var errs []string

	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
		for _, fe := range verrs {
			errs = append(errs, describe(fe))
		}
	}

	w := config.Watchdog
	if w.CheckInterval <= 0 {
		errs = append(errs, "watchdog.check_interval: must be positive")
	}
	if w.ProbeTimeout <= 0 {
		errs = append(errs, "watchdog.probe_timeout: must be positive")
	} else if w.CheckInterval > 0 && w.ProbeTimeout >= w.CheckInterval {
		errs = append(errs, fmt.Sprintf("watchdog.probe_timeout: must be shorter than check_interval (%s >= %s)", w.ProbeTimeout, w.CheckInterval))
	}
	if w.RecoveryTimeout <= 0 {
		errs = append(errs, "watchdog.recovery_timeout: must be positive")
	}
	if w.ServerID != "" {
		if err := domain.ValidateServerID(w.ServerID); err != nil {
			errs = append(errs, fmt.Sprintf("watchdog.server_id: %v", err))
		}
	}
	if config.Retry.Backoff < 0 {
		errs = append(errs, "retry.backoff: must be non-negative")
	}
	if config.Provider.RequestTimeout <= 0 {
		errs = append(errs, "provider.request_timeout: must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// ValidateSecrets checks the secrets needed to run the daemon. Client
// commands never call it.
func ValidateSecrets(config *Config) error {
	var errs []string

	if config.Provider.Token == "" {
		errs = append(errs, "HETZNER_TOKEN: required")
	}
	if config.Telegram.Enabled {
		if config.Telegram.Token == "" {
			errs = append(errs, "BOT_TOKEN: required when telegram is enabled")
		}
		if config.Telegram.AdminID == 0 {
			errs = append(errs, "ADMIN_ID: required when telegram is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// describe renders a validator error using the yaml path of the field
func describe(fe validator.FieldError) string {
	path := yamlPath(fe.Namespace())
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s], got %q", path, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s: must be at least %s", path, fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s", path, fe.Param())
	case "gt":
		return fmt.Sprintf("%s: must be greater than %s", path, fe.Param())
	case "required":
		return fmt.Sprintf("%s: is required", path)
	case "startswith":
		return fmt.Sprintf("%s: must start with %q", path, fe.Param())
	case "url":
		return fmt.Sprintf("%s: must be a valid URL", path)
	default:
		return fmt.Sprintf("%s: failed %s validation", path, fe.Tag())
	}
}

var yamlNames = map[string]string{
	"API":              "api",
	"Log":              "log",
	"Metrics":          "metrics",
	"Watchdog":         "watchdog",
	"Retry":            "retry",
	"Provider":         "provider",
	"Telegram":         "telegram",
	"Events":           "events",
	"Port":             "port",
	"Host":             "host",
	"Level":            "level",
	"Format":           "format",
	"Path":             "path",
	"FailureThreshold": "failure_threshold",
	"Probe":            "probe",
	"ProbeCount":       "probe_count",
	"TCPPort":          "tcp_port",
	"MaxAttempts":      "max_attempts",
	"Endpoint":         "endpoint",
	"DefaultLocation":  "default_location",
	"RatePerSecond":    "rate_per_second",
	"BufferSize":       "buffer_size",
}

// yamlPath turns "Config.Watchdog.ProbeCount" into "watchdog.probe_count"
func yamlPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if name, ok := yamlNames[p]; ok {
			parts[i] = name
		}
	}
	return strings.Join(parts, ".")
}
