package api

import (
	"time"

	"github.com/charliek/revive/internal/domain"
)

// StatusResponse represents the response for GET /status
type StatusResponse struct {
	Status              string            `json:"status"`
	UptimeSeconds       int64             `json:"uptime_seconds"`
	ConfigFile          string            `json:"config_file,omitempty"`
	APIVersion          string            `json:"api_version"`
	Health              string            `json:"health"`
	Target              *TargetResponse   `json:"target,omitempty"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	Threshold           int               `json:"threshold"`
	RecoveryInProgress  bool              `json:"recovery_in_progress"`
	LastProbe           *ProbeResponse    `json:"last_probe,omitempty"`
	LastRecovery        *RecoveryResponse `json:"last_recovery,omitempty"`
}

// TargetResponse represents the monitored server
type TargetResponse struct {
	ServerID     string `json:"server_id"`
	Address      string `json:"address"`
	Name         string `json:"name"`
	ServerType   string `json:"server_type"`
	Image        string `json:"image"`
	Location     string `json:"location"`
	RegisteredAt string `json:"registered_at,omitempty"`
	RecoveredAt  string `json:"recovered_at,omitempty"`
	Recoveries   int    `json:"recoveries"`
}

// ProbeResponse represents the last probe
type ProbeResponse struct {
	Outcome   string  `json:"outcome"`
	Address   string  `json:"address"`
	LatencyMS float64 `json:"latency_ms"`
	CheckedAt string  `json:"checked_at,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// RecoveryResponse represents a finished recovery run. It never carries the
// root password of the replacement.
type RecoveryResponse struct {
	ID              string  `json:"id"`
	Trigger         string  `json:"trigger"`
	Result          string  `json:"result"`
	Stage           string  `json:"stage"`
	OldServerID     string  `json:"old_server_id"`
	NewServerID     string  `json:"new_server_id,omitempty"`
	NewAddress      string  `json:"new_address,omitempty"`
	Error           string  `json:"error,omitempty"`
	TargetCleared   bool    `json:"target_cleared"`
	StartedAt       string  `json:"started_at"`
	FinishedAt      string  `json:"finished_at,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// WatchRequest is the body of PUT /target
type WatchRequest struct {
	ServerID string `json:"server_id"`
}

// RecoverRequest is the optional body of POST /recover
type RecoverRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RecoverResponse is returned when a manual recovery was accepted
type RecoverResponse struct {
	ID string `json:"id"`
}

// EventsResponse represents the response for GET /events
type EventsResponse struct {
	Events        []EventResponse `json:"events"`
	FilteredCount int             `json:"filtered_count"`
	TotalCount    int             `json:"total_count"`
}

// EventResponse represents a single journal event
type EventResponse struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	ServerID  string `json:"server_id,omitempty"`
	Message   string `json:"message"`
}

// SuccessResponse represents a simple success response
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToStatusResponse converts a watchdog snapshot
func ToStatusResponse(status domain.WatchdogStatus) StatusResponse {
	resp := StatusResponse{
		Status:              "running",
		APIVersion:          "v1",
		Health:              status.Health.String(),
		ConsecutiveFailures: status.ConsecutiveFailures,
		Threshold:           status.Threshold,
		RecoveryInProgress:  status.RecoveryInProgress,
	}

	if status.Target != nil {
		t := ToTargetResponse(*status.Target)
		resp.Target = &t
	}
	if status.LastProbe != nil {
		resp.LastProbe = &ProbeResponse{
			Outcome:   status.LastProbe.Outcome.String(),
			Address:   status.LastProbe.Address,
			LatencyMS: float64(status.LastProbe.Latency) / float64(time.Millisecond),
			CheckedAt: formatTime(status.LastProbe.CheckedAt),
			Error:     status.LastProbe.Detail(),
		}
	}
	if status.LastRecovery != nil {
		r := ToRecoveryResponse(*status.LastRecovery)
		resp.LastRecovery = &r
	}

	return resp
}

// ToTargetResponse converts domain.MonitorTarget to TargetResponse
func ToTargetResponse(t domain.MonitorTarget) TargetResponse {
	return TargetResponse{
		ServerID:     t.ServerID,
		Address:      t.Address,
		Name:         t.Spec.Name,
		ServerType:   t.Spec.ServerType,
		Image:        t.Spec.Image,
		Location:     t.Spec.Location,
		RegisteredAt: formatTime(t.RegisteredAt),
		RecoveredAt:  formatTime(t.RecoveredAt),
		Recoveries:   t.Recoveries,
	}
}

// ToRecoveryResponse converts domain.RecoveryOutcome to RecoveryResponse
func ToRecoveryResponse(o domain.RecoveryOutcome) RecoveryResponse {
	return RecoveryResponse{
		ID:              o.ID,
		Trigger:         string(o.Trigger),
		Result:          string(o.Result),
		Stage:           string(o.Stage),
		OldServerID:     o.OldServerID,
		NewServerID:     o.NewServerID,
		NewAddress:      o.NewAddress,
		Error:           o.Error,
		TargetCleared:   o.TargetCleared,
		StartedAt:       formatTime(o.StartedAt),
		FinishedAt:      formatTime(o.FinishedAt),
		DurationSeconds: o.Duration().Seconds(),
	}
}

// ToEventResponse converts domain.Event to EventResponse
func ToEventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
		Type:      e.Type.String(),
		Severity:  string(e.Severity),
		ServerID:  e.ServerID,
		Message:   e.Message,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
