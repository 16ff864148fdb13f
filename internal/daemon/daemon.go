// Package daemon manages the background watchdog process: detaching, the
// locked PID file, and the state file clients use to find the API.
package daemon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"syscall"
)

// DaemonEnvVar marks the re-executed child process
const DaemonEnvVar = "_REVIVE_DAEMON"

// IsDaemonChild reports whether this process is the detached child
func IsDaemonChild() bool {
	return os.Getenv(DaemonEnvVar) == "1"
}

// Daemonize re-executes the binary with the same arguments in a new session
// and returns the child's PID. The caller exits; only the child, where
// IsDaemonChild is true, goes on to run the watchdog.
func Daemonize() (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("getting executable path: %w", err)
	}

	cmd := exec.Command(executable, os.Args[1:]...)
	cmd.Env = append(os.Environ(), DaemonEnvVar+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	// the child writes to its own log file
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting daemon process: %w", err)
	}

	pid := cmd.Process.Pid
	// the child is not waited for; drop the handle
	_ = cmd.Process.Release()
	return pid, nil
}

// OpenLog opens the daemon log file for appending. The caller points its
// slog handler at the returned file.
func OpenLog(dir string) (*os.File, error) {
	if err := EnsureStateDir(dir); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(LogPath(dir), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	// panics and stray prints from libraries land in the same file
	os.Stdout = f
	os.Stderr = f
	return f, nil
}

// TailLog copies the last n lines of the daemon log to w
func TailLog(dir string, n int, w io.Writer) error {
	f, err := os.Open(LogPath(dir))
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	if n <= 0 {
		return nil
	}

	// ring of the last n lines
	lines := make([]string, n)
	count := 0
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			lines[count%n] = line
			count++
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading log file: %w", err)
		}
	}

	first := 0
	if count > n {
		first = count - n
	}
	for i := first; i < count; i++ {
		if _, err := io.WriteString(w, lines[i%n]); err != nil {
			return err
		}
	}
	return nil
}

// FindAvailablePort asks the OS for a free TCP port on host
func FindAvailablePort(host string) (int, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("finding available port: %w", err)
	}
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected address type: %T", listener.Addr())
	}
	return addr.Port, nil
}

// IsRunning reports whether a watchdog runs from dir. It is best effort:
// the process may stop right after the check.
func IsRunning(dir string) bool {
	if IsLocked(PIDPath(dir)) {
		return true
	}

	state, err := LoadState(dir)
	if err != nil {
		return false
	}
	return ProcessExists(state.PID)
}

// GetRunningState returns the state of the watchdog running from dir, or
// ErrNotRunning.
func GetRunningState(dir string) (*State, error) {
	if !IsRunning(dir) {
		return nil, ErrNotRunning
	}
	return LoadState(dir)
}

// CleanupStaleFiles removes state left behind by a crashed watchdog.
// Returns ErrAlreadyRunning when the owner is still alive.
func CleanupStaleFiles(dir string) error {
	if IsLocked(PIDPath(dir)) {
		return ErrAlreadyRunning
	}

	state, err := LoadState(dir)
	if errors.Is(err, ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if ProcessExists(state.PID) {
		return ErrAlreadyRunning
	}
	return CleanupStateDir(dir)
}
