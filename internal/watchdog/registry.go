package watchdog

import (
	"sync"
	"time"

	"github.com/charliek/revive/internal/domain"
)

// Registry holds the single monitored target together with its failure
// counter, the recovery guard and a generation number. All of it sits behind
// one mutex.
//
// The generation changes whenever the slot changes identity (set, clear,
// replacement after recovery). Work started against an older generation,
// such as an in-flight probe or a recovery run, is discarded on return.
type Registry struct {
	mu sync.Mutex

	target       *domain.MonitorTarget
	counter      *FailureCounter
	generation   uint64
	recovering   bool
	lastProbe    *domain.ProbeResult
	lastRecovery *domain.RecoveryOutcome

	now func() time.Time
}

// probeTarget is what the loop needs to run one probe
type probeTarget struct {
	generation uint64
	serverID   string
	address    string
	recovering bool
}

// probeUpdate describes how one probe result changed the registry
type probeUpdate struct {
	applied   bool // false if the target changed while probing
	crossed   bool
	recovered bool // first success after one or more failures
	failures  int
}

// NewRegistry creates an empty registry
func NewRegistry(threshold int) *Registry {
	return &Registry{
		counter: NewFailureCounter(threshold),
		now:     time.Now,
	}
}

// SetTarget replaces the monitored target and resets the failure count
func (r *Registry) SetTarget(target domain.MonitorTarget) domain.MonitorTarget {
	r.mu.Lock()
	defer r.mu.Unlock()

	if target.RegisteredAt.IsZero() {
		target.RegisteredAt = r.now()
	}
	r.target = &target
	r.counter.Reset()
	r.lastProbe = nil
	r.generation++

	return target
}

// Target returns a copy of the current target
func (r *Registry) Target() (domain.MonitorTarget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.target == nil {
		return domain.MonitorTarget{}, false
	}
	return *r.target, true
}

// Clear drops the target and its failure history. Returns false if nothing
// was registered.
func (r *Registry) Clear() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	had := r.target != nil
	r.clearLocked()
	return had
}

func (r *Registry) clearLocked() {
	r.target = nil
	r.counter.Reset()
	r.lastProbe = nil
	r.generation++
}

// RecordProbe applies a probe result taken against generation gen and
// reports whether it crossed the failure threshold. Results for a replaced
// target are ignored.
func (r *Registry) RecordProbe(gen uint64, result domain.ProbeResult) bool {
	return r.recordProbe(gen, result).crossed
}

func (r *Registry) recordProbe(gen uint64, result domain.ProbeResult) probeUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.target == nil || gen != r.generation {
		return probeUpdate{}
	}

	r.lastProbe = &result

	update := probeUpdate{applied: true}
	if result.OK() {
		update.recovered = r.counter.Count() > 0
		r.counter.RecordSuccess()
	} else {
		// the crossing resets the count, report the value that crossed
		update.failures = r.counter.Count() + 1
		update.crossed = r.counter.RecordFailure()
	}
	if !update.crossed {
		update.failures = r.counter.Count()
	}
	return update
}

// probeTarget returns the target address and generation for the next probe
func (r *Registry) probeTarget() (probeTarget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.target == nil {
		return probeTarget{}, false
	}
	return probeTarget{
		generation: r.generation,
		serverID:   r.target.ServerID,
		address:    r.target.Address,
		recovering: r.recovering,
	}, true
}

// BeginRecovery takes the recovery guard and returns a snapshot of the
// target. It fails with ErrNoTarget when nothing is registered and with
// ErrRecoveryInProgress when another run holds the guard.
func (r *Registry) BeginRecovery() (domain.RecoverySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.target == nil {
		return domain.RecoverySnapshot{}, domain.ErrNoTarget
	}
	if r.recovering {
		return domain.RecoverySnapshot{}, domain.ErrRecoveryInProgress
	}

	r.recovering = true
	return domain.RecoverySnapshot{
		Generation: r.generation,
		ServerID:   r.target.ServerID,
		Address:    r.target.Address,
		Spec:       r.target.Spec,
	}, nil
}

// EndRecovery releases the guard and records the outcome
func (r *Registry) EndRecovery(outcome domain.RecoveryOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recovering = false
	r.lastRecovery = &outcome
}

// UpdateAfterRecovery points the target at the replacement server, keeping
// its spec. It changes nothing and returns false if the target was switched
// or cleared since generation gen.
func (r *Registry) UpdateAfterRecovery(gen uint64, newID, newAddress string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.target == nil || gen != r.generation {
		return false
	}

	r.target.ServerID = newID
	r.target.Address = newAddress
	r.target.RecoveredAt = r.now()
	r.target.Recoveries++
	r.counter.Reset()
	r.lastProbe = nil
	r.generation++
	return true
}

// ClearIfCurrent drops the target only if it is still the one of generation
// gen. Used when a recovery deleted the server and could not replace it.
func (r *Registry) ClearIfCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.target == nil || gen != r.generation {
		return false
	}
	r.clearLocked()
	return true
}

// Status returns a point-in-time copy of the registry
func (r *Registry) Status() domain.WatchdogStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := domain.WatchdogStatus{
		ConsecutiveFailures: r.counter.Count(),
		Threshold:           r.counter.Threshold(),
		RecoveryInProgress:  r.recovering,
		CheckedAt:           r.now(),
	}

	if r.target != nil {
		t := *r.target
		status.Target = &t
	}
	if r.lastProbe != nil {
		p := *r.lastProbe
		status.LastProbe = &p
	}
	if r.lastRecovery != nil {
		o := *r.lastRecovery
		status.LastRecovery = &o
	}

	switch {
	case r.target == nil && !r.recovering:
		status.Health = domain.HealthStatusUnmonitored
	case r.recovering:
		status.Health = domain.HealthStatusRecovering
	default:
		status.Health = r.counter.State()
	}

	return status
}
