package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RecoverySpec is the minimal set of provider parameters needed to recreate
// an equivalent server.
type RecoverySpec struct {
	Name       string `json:"name"`
	ServerType string `json:"server_type"`
	Image      string `json:"image"`
	Location   string `json:"location"`
}

// String returns a compact description used in notifications
func (s RecoverySpec) String() string {
	return fmt.Sprintf("%s (%s, %s, %s)", s.Name, s.ServerType, s.Image, s.Location)
}

// IsComplete reports whether every field needed by Create is set
func (s RecoverySpec) IsComplete() bool {
	return s.Name != "" && s.ServerType != "" && s.Image != "" && s.Location != ""
}

// MonitorTarget is the single server currently subject to health checks.
type MonitorTarget struct {
	ServerID     string       `json:"server_id"`
	Address      string       `json:"address"`
	Spec         RecoverySpec `json:"spec"`
	RegisteredAt time.Time    `json:"registered_at"`
	RecoveredAt  time.Time    `json:"recovered_at,omitempty"`
	Recoveries   int          `json:"recoveries"`
}

// RecoverySnapshot is the read-only copy of the target taken when a recovery
// run starts. Generation identifies the registry slot contents at that moment.
type RecoverySnapshot struct {
	Generation uint64
	ServerID   string
	Address    string
	Spec       RecoverySpec
}

// ServerInfo is the provider's view of a server
type ServerInfo struct {
	ServerID string
	Address  string
	Status   string
	Spec     RecoverySpec
}

// CreatedServer is returned by a successful create call
type CreatedServer struct {
	ServerID     string
	Address      string
	RootPassword string
}

// ValidateServerID checks that id looks like a provider server id: a positive
// decimal integer.
func ValidateServerID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidServerID)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidServerID, id)
	}
	return nil
}
