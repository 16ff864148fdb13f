package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// StateDirName is the directory, next to the config, holding runtime files
	StateDirName = ".revive"
	// StateFileName records how clients reach the running watchdog
	StateFileName = "revive.state"
	// PIDFileName is the locked PID file
	PIDFileName = "revive.pid"
	// LogFileName receives the daemon's log output
	LogFileName = "revive.log"
)

// State is written by the running watchdog and read by client commands to
// find its API. It is written once at startup; State is not safe for
// concurrent use.
type State struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	StartedAt  time.Time `json:"started_at"`
	ConfigFile string    `json:"config_file"`
	Version    string    `json:"version,omitempty"`
}

// Validate checks the fields a client needs
func (s *State) Validate() error {
	var errs []error
	if s.PID <= 0 {
		errs = append(errs, fmt.Errorf("invalid PID: %d", s.PID))
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", s.Port))
	}
	if s.Host == "" {
		errs = append(errs, errors.New("host cannot be empty"))
	}
	if s.ConfigFile == "" {
		errs = append(errs, errors.New("config file cannot be empty"))
	}
	return errors.Join(errs...)
}

// Address returns the API base URL described by the state. Wildcard hosts
// are reached through loopback.
func (s *State) Address() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// Write stores the state in dir's state directory. The file is written to a
// temporary name and renamed so readers never see a partial file.
func (s *State) Write(dir string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := EnsureStateDir(dir); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	path := StatePath(dir)
	tmp, err := os.CreateTemp(StateDir(dir), StateFileName+".*")
	if err != nil {
		return fmt.Errorf("creating state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("installing state file: %w", err)
	}
	return nil
}

// LoadState reads the state file from dir's state directory
func LoadState(dir string) (*State, error) {
	data, err := os.ReadFile(StatePath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling state: %w", err)
	}
	return &state, nil
}

// RemoveState deletes the state file
func RemoveState(dir string) error {
	return removeIfExists(StatePath(dir), "state file")
}

// StateDir returns the .revive directory inside dir. An empty dir means the
// working directory, or a relative path if that cannot be determined.
func StateDir(dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return StateDirName
		}
		dir = wd
	}
	return filepath.Join(dir, StateDirName)
}

// StatePath returns the full path to the state file
func StatePath(dir string) string {
	return filepath.Join(StateDir(dir), StateFileName)
}

// PIDPath returns the full path to the PID file
func PIDPath(dir string) string {
	return filepath.Join(StateDir(dir), PIDFileName)
}

// LogPath returns the full path to the daemon log file
func LogPath(dir string) string {
	return filepath.Join(StateDir(dir), LogFileName)
}

// EnsureStateDir creates the state directory if needed
func EnsureStateDir(dir string) error {
	if err := os.MkdirAll(StateDir(dir), 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// CleanupStateDir removes the state and PID files. The log stays for
// post-mortem reading.
func CleanupStateDir(dir string) error {
	return errors.Join(
		removeIfExists(StatePath(dir), "state file"),
		removeIfExists(PIDPath(dir), "PID file"),
	)
}

func removeIfExists(path, what string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", what, err)
	}
	return nil
}
