// Package watchdog probes the monitored server on a fixed interval and
// replaces it through the cloud provider once it stays unreachable.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charliek/revive/internal/config"
	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/domain"
	"github.com/charliek/revive/internal/metrics"
	"github.com/charliek/revive/internal/notify"
	"github.com/charliek/revive/internal/probe"
	"github.com/charliek/revive/internal/provider"
)

// Options wires a Watchdog to its collaborators
type Options struct {
	Config   config.WatchdogConfig
	Retry    config.RetryConfig
	Prober   probe.Prober
	Gateway  provider.Gateway
	Notifier notify.Notifier
	Events   Emitter
	Logger   *slog.Logger
}

// Watchdog owns the check loop, the registry and the recovery procedure
type Watchdog struct {
	mu sync.Mutex

	cfg      config.WatchdogConfig
	registry *Registry
	recovery *Recovery
	prober   probe.Prober
	gateway  provider.Gateway
	events   Emitter
	logger   *slog.Logger

	// ctx and cancel control the loop; recoveries only inherit its values
	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
	stopping bool

	recoveries sync.WaitGroup
}

// New creates a watchdog. It does not start probing until Start.
func New(opts Options) *Watchdog {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	events := opts.Events
	if events == nil {
		events = discardEmitter{}
	}

	cfg := opts.Config
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = constants.DefaultCheckInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = constants.DefaultProbeTimeout
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = constants.DefaultRecoveryTimeout
	}

	registry := NewRegistry(cfg.FailureThreshold)
	return &Watchdog{
		cfg:      cfg,
		registry: registry,
		recovery: NewRecovery(registry, opts.Gateway, opts.Notifier, events, NewRetryPolicy(opts.Retry), logger),
		prober:   opts.Prober,
		gateway:  opts.Gateway,
		events:   events,
		logger:   logger.With("component", "watchdog"),
	}
}

// Start launches the check loop
func (w *Watchdog) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loopDone != nil {
		return fmt.Errorf("watchdog already running")
	}
	if w.stopping {
		return domain.ErrShutdownInProgress
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.loopDone = make(chan struct{})

	go w.run(w.ctx, w.loopDone)

	w.logger.Info("watchdog started",
		"interval", w.cfg.CheckInterval,
		"threshold", w.registry.Status().Threshold,
		"probe", w.cfg.Probe)
	return nil
}

// Stop cancels the loop and waits for it and for any recovery in flight.
// Recoveries are not cancelled; they are bounded by the recovery timeout.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	w.stopping = true
	if w.cancel != nil {
		w.cancel()
	}
	done := w.loopDone
	w.mu.Unlock()

	if done != nil {
		<-done
	}
	w.recoveries.Wait()
	w.logger.Info("watchdog stopped")
}

// Wait blocks until the loop has exited
func (w *Watchdog) Wait() {
	w.mu.Lock()
	done := w.loopDone
	w.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Run starts the loop and blocks until ctx is cancelled, then stops
func (w *Watchdog) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

func (w *Watchdog) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick runs one probe against the current target
func (w *Watchdog) tick(ctx context.Context) {
	target, ok := w.registry.probeTarget()
	if !ok {
		return
	}
	if target.recovering {
		w.logger.Debug("probe skipped, recovery in progress", "server_id", target.serverID)
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, w.cfg.ProbeTimeout)
	result := w.prober.Probe(probeCtx, target.address)
	cancel()

	if ctx.Err() != nil {
		return
	}

	metrics.ProbesTotal.WithLabelValues(result.Outcome.String()).Inc()

	update := w.registry.recordProbe(target.generation, result)
	if !update.applied {
		w.logger.Debug("probe result dropped, target changed", "server_id", target.serverID)
		return
	}

	threshold := w.registry.Status().Threshold
	metrics.ConsecutiveFailures.Set(float64(update.failures))

	switch {
	case result.OK():
		metrics.ProbeLatency.Observe(result.Latency.Seconds())
		if update.recovered {
			w.logger.Info("server reachable again", "server_id", target.serverID, "latency", result.Latency)
			w.emit(domain.EventProbeRecovered, domain.SeverityInfo, target.serverID,
				fmt.Sprintf("%s reachable again", target.address))
		}
	default:
		w.logger.Warn("probe failed",
			"server_id", target.serverID,
			"address", target.address,
			"outcome", result.Outcome,
			"failures", update.failures,
			"threshold", threshold,
			"error", result.Detail())
		w.emit(domain.EventProbeFailed, domain.SeverityWarn, target.serverID,
			fmt.Sprintf("probe %d/%d %s: %s", update.failures, threshold, result.Outcome, result.Detail()))
	}

	if !update.crossed {
		return
	}

	metrics.ConsecutiveFailures.Set(0)
	reason := fmt.Sprintf("%d consecutive failed probes", threshold)
	if detail := result.Detail(); detail != "" {
		reason += " (last: " + detail + ")"
	}
	w.logger.Warn("failure threshold crossed", "server_id", target.serverID, "threshold", threshold)
	w.emit(domain.EventThresholdCrossed, domain.SeverityWarn, target.serverID, reason)

	w.recoverAfterThreshold(reason)
}

// recoverAfterThreshold starts an automatic recovery. A target cleared since
// the crossing, or a recovery already running, aborts it silently.
func (w *Watchdog) recoverAfterThreshold(reason string) {
	_, err := w.launchRecovery(domain.TriggerThreshold, reason)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoTarget), errors.Is(err, domain.ErrRecoveryInProgress):
		w.logger.Debug("recovery not started", "reason", err)
	default:
		w.logger.Warn("recovery not started", "error", err)
	}
}

// launchRecovery takes the guard synchronously and runs the rest of the
// recovery in the background on a context detached from loop cancellation.
func (w *Watchdog) launchRecovery(trigger domain.RecoveryTrigger, reason string) (string, error) {
	w.mu.Lock()
	if w.stopping {
		w.mu.Unlock()
		return "", domain.ErrShutdownInProgress
	}
	run, err := w.recovery.begin(trigger, reason)
	if err != nil {
		w.mu.Unlock()
		return "", err
	}
	w.recoveries.Add(1)
	parent := w.ctx
	w.mu.Unlock()

	if parent == nil {
		parent = context.Background()
	}

	go func() {
		defer w.recoveries.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.cfg.RecoveryTimeout)
		defer cancel()

		run.execute(ctx)
	}()

	return run.ID(), nil
}

// RegisterTarget looks the server up at the provider and makes it the
// monitored target, replacing any previous one.
func (w *Watchdog) RegisterTarget(ctx context.Context, serverID string) (domain.MonitorTarget, error) {
	serverID = strings.TrimSpace(serverID)
	if serverID == "" {
		return domain.MonitorTarget{}, fmt.Errorf("%w: empty", domain.ErrInvalidServerID)
	}

	info, err := w.gateway.Fetch(ctx, serverID)
	if err != nil {
		return domain.MonitorTarget{}, err
	}

	target := w.registry.SetTarget(domain.MonitorTarget{
		ServerID: info.ServerID,
		Address:  info.Address,
		Spec:     info.Spec,
	})

	metrics.TargetMonitored.Set(1)
	metrics.ConsecutiveFailures.Set(0)

	if target.Address == "" {
		w.logger.Warn("registered server has no public address, probes will fail", "server_id", target.ServerID)
	}
	w.logger.Info("target registered",
		"server_id", target.ServerID,
		"address", target.Address,
		"spec", target.Spec.String())
	w.emit(domain.EventTargetRegistered, domain.SeverityInfo, target.ServerID,
		fmt.Sprintf("watching %s at %s", target.Spec, addressOrUnknown(target.Address)))

	return target, nil
}

// ClearTarget stops monitoring. Returns false if nothing was registered.
func (w *Watchdog) ClearTarget() bool {
	target, had := w.registry.Target()
	if !w.registry.Clear() {
		return false
	}

	metrics.TargetMonitored.Set(0)
	metrics.ConsecutiveFailures.Set(0)

	w.logger.Info("target cleared", "server_id", target.ServerID)
	if had {
		w.emit(domain.EventTargetCleared, domain.SeverityInfo, target.ServerID, "monitoring stopped")
	}
	return true
}

// Status returns a snapshot of the watchdog state
func (w *Watchdog) Status() domain.WatchdogStatus {
	return w.registry.Status()
}

// TriggerRecovery starts a manual recovery of the current target and returns
// the run id. The run continues in the background.
func (w *Watchdog) TriggerRecovery(reason string) (string, error) {
	if reason == "" {
		reason = "manual request"
	}
	return w.launchRecovery(domain.TriggerManual, reason)
}

func (w *Watchdog) emit(typ domain.EventType, sev domain.Severity, serverID, msg string) {
	w.events.Emit(domain.Event{
		Type:     typ,
		Severity: sev,
		ServerID: serverID,
		Message:  msg,
	})
}
