package domain

import "errors"

// Domain errors
var (
	ErrNoTarget           = errors.New("no server is being monitored")
	ErrRecoveryInProgress = errors.New("recovery already in progress")
	ErrInvalidServerID    = errors.New("invalid server id")
	ErrShutdownInProgress = errors.New("shutdown in progress")
	ErrInvalidPattern     = errors.New("invalid filter pattern")
	ErrConfigNotFound     = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Provider error kinds. Gateway implementations wrap one of these so callers
// can decide between retry and abort with errors.Is.
var (
	ErrNotFound      = errors.New("server not found")
	ErrTransient     = errors.New("transient provider error")
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	ErrInvalidSpec   = errors.New("invalid server spec")
)

// Error codes for API responses
const (
	ErrCodeNoTarget           = "NO_TARGET"
	ErrCodeRecoveryInProgress = "RECOVERY_IN_PROGRESS"
	ErrCodeInvalidServerID    = "INVALID_SERVER_ID"
	ErrCodeServerNotFound     = "SERVER_NOT_FOUND"
	ErrCodeProviderError      = "PROVIDER_ERROR"
	ErrCodeShutdownInProgress = "SHUTDOWN_IN_PROGRESS"
	ErrCodeInvalidPattern     = "INVALID_PATTERN"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"

	// API-only codes, no sentinel errors behind them
	ErrCodeStreamingNotSupported = "STREAMING_NOT_SUPPORTED"
)

// ErrorCode returns the API error code for a domain error
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNoTarget):
		return ErrCodeNoTarget
	case errors.Is(err, ErrRecoveryInProgress):
		return ErrCodeRecoveryInProgress
	case errors.Is(err, ErrInvalidServerID):
		return ErrCodeInvalidServerID
	case errors.Is(err, ErrNotFound):
		return ErrCodeServerNotFound
	case errors.Is(err, ErrTransient), errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrInvalidSpec):
		return ErrCodeProviderError
	case errors.Is(err, ErrShutdownInProgress):
		return ErrCodeShutdownInProgress
	case errors.Is(err, ErrInvalidPattern):
		return ErrCodeInvalidPattern
	default:
		return "INTERNAL_ERROR"
	}
}

// IsRetryable reports whether a provider error may succeed if the same call is
// repeated. Only transient errors qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
