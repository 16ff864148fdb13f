package domain

import "time"

// ProbeOutcome is the result class of a single reachability check
type ProbeOutcome string

const (
	ProbeReachable   ProbeOutcome = "reachable"
	ProbeUnreachable ProbeOutcome = "unreachable"
	// ProbeError means the check could not be performed (resolve failure,
	// socket permission). It counts as a failure.
	ProbeError ProbeOutcome = "error"
)

// String returns the string representation of ProbeOutcome
func (o ProbeOutcome) String() string {
	return string(o)
}

// ProbeResult describes one reachability check
type ProbeResult struct {
	Outcome   ProbeOutcome  `json:"outcome"`
	Address   string        `json:"address"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checked_at"`
	Err       error         `json:"-"`
}

// OK reports whether the target answered
func (r ProbeResult) OK() bool {
	return r.Outcome == ProbeReachable
}

// Detail returns the error text for failed probes, or an empty string
func (r ProbeResult) Detail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
