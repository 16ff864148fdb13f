package domain

import "time"

// EventType classifies journal entries
type EventType string

const (
	EventTargetRegistered EventType = "target_registered"
	EventTargetCleared    EventType = "target_cleared"
	EventProbeFailed      EventType = "probe_failed"
	EventProbeRecovered   EventType = "probe_recovered"
	EventThresholdCrossed EventType = "threshold_crossed"
	EventRecoveryStarted  EventType = "recovery_started"
	EventRecoveryStep     EventType = "recovery_step"
	EventRecoveryDone     EventType = "recovery_succeeded"
	EventRecoveryFailed   EventType = "recovery_failed"
	EventRecoveryOrphaned EventType = "recovery_orphaned"
	EventNotification     EventType = "notification"
)

// String returns the string representation of EventType
func (t EventType) String() string {
	return string(t)
}

// Severity of an event
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event is a single entry in the watchdog journal
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	ServerID  string    `json:"server_id,omitempty"`
	Message   string    `json:"message"`
}

// EventFilter defines criteria for filtering journal entries
type EventFilter struct {
	Types   []EventType // Filter to specific event types
	Pattern string      // Filter by pattern match on the message
	IsRegex bool        // If true, Pattern is a regex; otherwise substring match
}

// IsEmpty returns true if no filters are set
func (f EventFilter) IsEmpty() bool {
	return len(f.Types) == 0 && f.Pattern == ""
}

// MatchesType returns true if the event type matches the filter
func (f EventFilter) MatchesType(t EventType) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, want := range f.Types {
		if want == t {
			return true
		}
	}
	return false
}

// EventStats contains statistics about the journal
type EventStats struct {
	TotalEvents int
	BufferSize  int
	Subscribers int
}
