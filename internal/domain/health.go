package domain

import "time"

// HealthStatus represents the watchdog's view of the monitored server
type HealthStatus string

const (
	HealthStatusHealthy     HealthStatus = "healthy"
	HealthStatusDegraded    HealthStatus = "degraded"
	HealthStatusRecovering  HealthStatus = "recovering"
	HealthStatusUnmonitored HealthStatus = "unmonitored"
)

// String returns the string representation of HealthStatus
func (s HealthStatus) String() string {
	return string(s)
}

// WatchdogStatus is a point-in-time copy of the registry, used for status
// queries from every operator surface.
type WatchdogStatus struct {
	Target              *MonitorTarget   `json:"target,omitempty"`
	Health              HealthStatus     `json:"health"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
	Threshold           int              `json:"threshold"`
	RecoveryInProgress  bool             `json:"recovery_in_progress"`
	LastProbe           *ProbeResult     `json:"last_probe,omitempty"`
	LastRecovery        *RecoveryOutcome `json:"last_recovery,omitempty"`
	CheckedAt           time.Time        `json:"checked_at"`
}

// Monitored reports whether a target is registered
func (s WatchdogStatus) Monitored() bool {
	return s.Target != nil
}
