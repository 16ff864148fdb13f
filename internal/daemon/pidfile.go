package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// PIDFile is an flock-guarded PID file. The lock lives as long as the open
// descriptor, so a crashed process never leaves a held lock behind.
//
// PIDFile is not safe for concurrent use.
type PIDFile struct {
	path string
	file *os.File
}

// NewPIDFile creates a PIDFile manager for path
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the file location
func (p *PIDFile) Path() string {
	return p.path
}

// Create locks the file and writes the current PID into it.
// Returns ErrPIDFileLocked if another process holds the lock.
func (p *PIDFile) Create() error {
	f, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("opening PID file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrPIDFileLocked
		}
		return fmt.Errorf("locking PID file: %w", err)
	}

	if err := writePID(f, os.Getpid()); err != nil {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return err
	}

	p.file = f
	return nil
}

func writePID(f *os.File, pid int) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncating PID file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0); err != nil {
		return fmt.Errorf("writing PID: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing PID file: %w", err)
	}
	return nil
}

// Release unlocks and removes the PID file
func (p *PIDFile) Release() error {
	if p.file == nil {
		return nil
	}

	// best effort; closing the descriptor drops the lock anyway
	_ = unix.Flock(int(p.file.Fd()), unix.LOCK_UN)
	_ = p.file.Close()
	p.file = nil

	return removeIfExists(p.path, "PID file")
}

// IsLocked reports whether another process holds the lock on path.
// A missing file is not locked.
func IsLocked(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB); err != nil {
		return true
	}
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return false
}

// ReadPID reads the PID stored in path
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing PID: %w", err)
	}
	return pid, nil
}

// ProcessExists reports whether pid is alive. EPERM means it exists but
// belongs to another user.
func ProcessExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
