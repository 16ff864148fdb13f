package watchdog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charliek/revive/internal/domain"
	"github.com/charliek/revive/internal/metrics"
	"github.com/charliek/revive/internal/notify"
	"github.com/charliek/revive/internal/provider"
	"github.com/google/uuid"
)

// notifyTimeout bounds a notification sent from a recovery run. It is
// detached from the run context so a timed-out run can still report.
const notifyTimeout = 30 * time.Second

// Emitter receives journal events
type Emitter interface {
	Emit(domain.Event)
}

type discardEmitter struct{}

func (discardEmitter) Emit(domain.Event) {}

// Recovery replaces an unreachable server: delete, create from the recorded
// spec, then point the registry at the replacement.
type Recovery struct {
	registry *Registry
	gateway  provider.Gateway
	notifier notify.Notifier
	events   Emitter
	retry    RetryPolicy
	logger   *slog.Logger
}

// NewRecovery creates the recovery procedure
func NewRecovery(registry *Registry, gateway provider.Gateway, notifier notify.Notifier, events Emitter, retry RetryPolicy, logger *slog.Logger) *Recovery {
	if notifier == nil {
		notifier = notify.Multi{}
	}
	if events == nil {
		events = discardEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recovery{
		registry: registry,
		gateway:  gateway,
		notifier: notifier,
		events:   events,
		retry:    retry,
		logger:   logger.With("component", "recovery"),
	}
}

// recoveryRun is one execution holding the registry guard
type recoveryRun struct {
	*Recovery
	snap    domain.RecoverySnapshot
	reason  string
	outcome domain.RecoveryOutcome
	logger  *slog.Logger

	deleted    bool
	created    *domain.CreatedServer
	reconciled bool
}

// Run performs a full recovery synchronously. It returns ErrNoTarget or
// ErrRecoveryInProgress without doing anything when the guard cannot be
// taken; otherwise the outcome describes what happened.
func (r *Recovery) Run(ctx context.Context, trigger domain.RecoveryTrigger, reason string) (domain.RecoveryOutcome, error) {
	run, err := r.begin(trigger, reason)
	if err != nil {
		return domain.RecoveryOutcome{}, err
	}
	return run.execute(ctx), nil
}

// begin takes the guard and snapshots the target
func (r *Recovery) begin(trigger domain.RecoveryTrigger, reason string) (*recoveryRun, error) {
	snap, err := r.registry.BeginRecovery()
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoTarget):
			r.logger.Debug("recovery skipped, no target")
		case errors.Is(err, domain.ErrRecoveryInProgress):
			r.logger.Info("recovery suppressed, another run is active", "trigger", trigger)
		}
		return nil, err
	}

	id := uuid.NewString()
	metrics.RecoveryInProgress.Set(1)

	return &recoveryRun{
		Recovery: r,
		snap:     snap,
		reason:   reason,
		outcome: domain.RecoveryOutcome{
			ID:          id,
			Trigger:     trigger,
			Stage:       domain.StageSnapshot,
			OldServerID: snap.ServerID,
			Spec:        snap.Spec,
			StartedAt:   time.Now(),
		},
		logger: r.logger.With("recovery_id", id, "server_id", snap.ServerID),
	}, nil
}

// ID returns the run's identifier
func (run *recoveryRun) ID() string {
	return run.outcome.ID
}

func (run *recoveryRun) execute(ctx context.Context) (outcome domain.RecoveryOutcome) {
	defer func() {
		if p := recover(); p != nil {
			run.handlePanic(p)
		}
		outcome = run.finish()
	}()

	run.logger.Info("recovery started",
		"trigger", run.outcome.Trigger,
		"reason", run.reason,
		"address", run.snap.Address)
	run.emit(domain.EventRecoveryStarted, domain.SeverityWarn,
		fmt.Sprintf("recovery %s started (%s): %s", run.outcome.ID[:8], run.outcome.Trigger, run.reason))

	run.refreshSpec(ctx)
	run.notify(startMessage(run.snap, run.reason))

	// Delete
	run.outcome.Stage = domain.StageDelete
	_, attempts, err := Retry(ctx, run.retry, run.logger, "delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, run.gateway.Delete(ctx, run.snap.ServerID)
	})
	if err != nil {
		run.fail(err)
		run.logger.Error("recovery failed, delete did not succeed", "attempts", attempts, "error", err)
		run.notify(deleteFailedMessage(run.outcome, attempts, err))
		return
	}
	run.deleted = true
	run.step(fmt.Sprintf("deleted server %s", run.snap.ServerID))

	// Create
	run.outcome.Stage = domain.StageCreate
	var createErr error
	created, attempts, err := Retry(ctx, run.retry, run.logger, "create", func(ctx context.Context) (domain.CreatedServer, error) {
		// a timed out attempt may still have created the server
		if createErr != nil {
			if existing, ok := run.findCreated(ctx); ok {
				return existing, nil
			}
		}
		c, err := run.gateway.Create(ctx, run.outcome.Spec)
		createErr = err
		return c, err
	})
	if err != nil {
		run.fail(err)
		run.outcome.TargetCleared = run.registry.ClearIfCurrent(run.snap.Generation)
		run.logger.Error("recovery failed, server deleted but not recreated",
			"spec", run.outcome.Spec.String(),
			"attempts", attempts,
			"target_cleared", run.outcome.TargetCleared,
			"error", err)
		run.notify(createFailedMessage(run.outcome, attempts, err, run.outcome.TargetCleared))
		return
	}
	run.created = &created
	run.outcome.NewServerID = created.ServerID
	run.outcome.NewAddress = created.Address
	run.step(fmt.Sprintf("created server %s (%s)", created.ServerID, addressOrUnknown(created.Address)))

	// Reconcile
	run.outcome.Stage = domain.StageReconcile
	run.reconcile()
	if run.outcome.Result == domain.RecoverySucceeded {
		run.outcome.FinishedAt = time.Now()
		run.notifyPrivate(successMessage(run.outcome, created, false), successMessage(run.outcome, created, true))
	}
	return
}

// findCreated looks for a server an earlier create attempt made despite
// reporting an error. The old server never matches; its delete was confirmed.
func (run *recoveryRun) findCreated(ctx context.Context) (domain.CreatedServer, bool) {
	info, err := run.gateway.FindByName(ctx, run.outcome.Spec.Name)
	if err != nil || info.ServerID == run.snap.ServerID {
		return domain.CreatedServer{}, false
	}
	run.logger.Info("found server created by an earlier attempt",
		"server_id", info.ServerID,
		"name", run.outcome.Spec.Name)
	return domain.CreatedServer{ServerID: info.ServerID, Address: info.Address}, true
}

// refreshSpec reads the server's current parameters. Any error leaves the
// registered spec in place.
func (run *recoveryRun) refreshSpec(ctx context.Context) {
	info, err := run.gateway.Fetch(ctx, run.snap.ServerID)
	if err != nil {
		run.logger.Info("using registered spec, fetch failed", "error", err)
		return
	}

	spec := info.Spec
	registered := run.snap.Spec
	if spec.Name == "" {
		spec.Name = registered.Name
	}
	if spec.ServerType == "" {
		spec.ServerType = registered.ServerType
	}
	if spec.Image == "" {
		spec.Image = registered.Image
	}
	if spec.Location == "" {
		spec.Location = registered.Location
	}
	if spec != registered {
		run.logger.Info("spec refreshed from provider", "old", registered.String(), "new", spec.String())
	}
	run.outcome.Spec = spec
}

// reconcile installs the replacement unless the target moved on
func (run *recoveryRun) reconcile() {
	c := run.created
	if run.registry.UpdateAfterRecovery(run.snap.Generation, c.ServerID, c.Address) {
		run.reconciled = true
		run.outcome.Result = domain.RecoverySucceeded
		run.logger.Info("recovery succeeded",
			"new_server_id", c.ServerID,
			"new_address", c.Address)
		run.emit(domain.EventRecoveryDone, domain.SeverityInfo,
			fmt.Sprintf("server %s replaced by %s (%s)", run.snap.ServerID, c.ServerID, addressOrUnknown(c.Address)))
		return
	}

	run.outcome.Result = domain.RecoveryOrphaned
	run.logger.Info("recovery result discarded, target changed during recovery",
		"new_server_id", c.ServerID)
	run.emit(domain.EventRecoveryOrphaned, domain.SeverityWarn,
		fmt.Sprintf("replacement %s for %s not installed, target changed during recovery", c.ServerID, run.snap.ServerID))
}

func (run *recoveryRun) handlePanic(p any) {
	run.logger.Error("recovery panicked", "stage", run.outcome.Stage, "panic", p)
	run.outcome.Error = fmt.Sprintf("panic: %v", p)

	switch {
	case run.reconciled:
	case run.created != nil:
		// the replacement exists, install it before giving up
		run.reconcile()
	case run.deleted:
		run.outcome.TargetCleared = run.registry.ClearIfCurrent(run.snap.Generation)
	}

	if !run.reconciled && run.outcome.Result != domain.RecoveryOrphaned {
		run.outcome.Result = domain.RecoveryFailed
	}
	run.notify(panicMessage(run.outcome, p))
}

func (run *recoveryRun) fail(err error) {
	run.outcome.Result = domain.RecoveryFailed
	run.outcome.Error = err.Error()
}

// finish releases the guard and records the outcome
func (run *recoveryRun) finish() domain.RecoveryOutcome {
	if run.outcome.Result == "" {
		run.outcome.Result = domain.RecoveryFailed
	}
	if run.outcome.FinishedAt.IsZero() {
		run.outcome.FinishedAt = time.Now()
	}

	run.registry.EndRecovery(run.outcome)

	metrics.RecoveryInProgress.Set(0)
	metrics.RecoveriesTotal.WithLabelValues(string(run.outcome.Trigger), string(run.outcome.Result)).Inc()
	metrics.RecoveryDuration.Observe(run.outcome.Duration().Seconds())

	if run.outcome.Result == domain.RecoveryFailed {
		run.emit(domain.EventRecoveryFailed, domain.SeverityError,
			fmt.Sprintf("recovery of %s failed at %s: %s", run.snap.ServerID, run.outcome.Stage, run.outcome.Error))
	}

	return run.outcome
}

func (run *recoveryRun) step(msg string) {
	run.logger.Info("recovery step", "stage", run.outcome.Stage, "detail", msg)
	run.emit(domain.EventRecoveryStep, domain.SeverityInfo, msg)
}

func (run *recoveryRun) emit(typ domain.EventType, sev domain.Severity, msg string) {
	run.events.Emit(domain.Event{
		Type:     typ,
		Severity: sev,
		ServerID: run.snap.ServerID,
		Message:  msg,
	})
}

// notify delivers text best effort on a context detached from the run
func (run *recoveryRun) notify(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := run.notifier.Notify(ctx, text); err != nil {
		run.logger.Warn("notification not delivered", "error", err)
	}
}

// notifyPrivate is notify with a credential-bearing variant for the admin
func (run *recoveryRun) notifyPrivate(public, private string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := notify.Private(ctx, run.notifier, public, private); err != nil {
		run.logger.Warn("notification not delivered", "error", err)
	}
}
