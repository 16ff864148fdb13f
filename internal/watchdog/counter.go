package watchdog

import "github.com/charliek/revive/internal/domain"

// FailureCounter counts consecutive failed probes. It is edge-triggered:
// RecordFailure reports the threshold crossing once and starts over, so a
// server that stays down triggers one recovery per threshold window.
//
// FailureCounter is not safe for concurrent use; the Registry owns it.
type FailureCounter struct {
	count     int
	threshold int
}

// NewFailureCounter creates a counter. Thresholds below 1 are raised to 1.
func NewFailureCounter(threshold int) *FailureCounter {
	if threshold < 1 {
		threshold = 1
	}
	return &FailureCounter{threshold: threshold}
}

// RecordSuccess resets the count
func (c *FailureCounter) RecordSuccess() {
	c.count = 0
}

// RecordFailure increments the count and reports whether the threshold was
// reached by this call. On crossing the count resets to zero.
func (c *FailureCounter) RecordFailure() bool {
	c.count++
	if c.count >= c.threshold {
		c.count = 0
		return true
	}
	return false
}

// Reset drops the count
func (c *FailureCounter) Reset() {
	c.count = 0
}

// Count returns the number of consecutive failures since the last success,
// reset or crossing
func (c *FailureCounter) Count() int {
	return c.count
}

// Threshold returns the configured threshold
func (c *FailureCounter) Threshold() int {
	return c.threshold
}

// State returns healthy when no failures are pending, degraded otherwise
func (c *FailureCounter) State() domain.HealthStatus {
	if c.count == 0 {
		return domain.HealthStatusHealthy
	}
	return domain.HealthStatusDegraded
}
