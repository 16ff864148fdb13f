package daemon

import "errors"

var (
	// ErrStateNotFound is returned when no state file exists
	ErrStateNotFound = errors.New("state file not found")
	// ErrAlreadyRunning is returned when a watchdog already runs from the directory
	ErrAlreadyRunning = errors.New("revive is already running")
	// ErrNotRunning is returned when no watchdog runs from the directory
	ErrNotRunning = errors.New("revive is not running")
	// ErrPIDFileLocked is returned when another process holds the PID file lock
	ErrPIDFileLocked = errors.New("PID file is locked by another process")
)
