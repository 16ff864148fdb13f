package api

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/charliek/revive/internal/domain"
	"github.com/charliek/revive/internal/events"
)

// fakeWatchdog implements Watchdog in memory
type fakeWatchdog struct {
	mu          sync.Mutex
	target      *domain.MonitorTarget
	last        *domain.RecoveryOutcome
	registerErr error
	triggerErr  error
	reasons     []string
}

func (w *fakeWatchdog) RegisterTarget(_ context.Context, id string) (domain.MonitorTarget, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.registerErr != nil {
		return domain.MonitorTarget{}, w.registerErr
	}
	t := domain.MonitorTarget{
		ServerID: strings.TrimSpace(id),
		Address:  "1.2.3.4",
		Spec:     domain.RecoverySpec{Name: "vpn", ServerType: "cx22", Image: "ubuntu-24.04", Location: "nbg1"},
	}
	w.target = &t
	return t, nil
}

func (w *fakeWatchdog) ClearTarget() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	had := w.target != nil
	w.target = nil
	return had
}

func (w *fakeWatchdog) Status() domain.WatchdogStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := domain.WatchdogStatus{Health: domain.HealthStatusUnmonitored, Threshold: 3, LastRecovery: w.last}
	if w.target != nil {
		t := *w.target
		s.Target = &t
		s.Health = domain.HealthStatusHealthy
	}
	return s
}

func (w *fakeWatchdog) TriggerRecovery(reason string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.triggerErr != nil {
		return "", w.triggerErr
	}
	w.reasons = append(w.reasons, reason)
	return "run-1", nil
}

type testEnv struct {
	server   *Server
	watchdog *fakeWatchdog
	journal  *events.Journal
	shutdown chan struct{}
}

func newTestEnv(t *testing.T, cfg ServerConfig) *testEnv {
	t.Helper()

	env := &testEnv{
		watchdog: &fakeWatchdog{},
		journal:  events.NewJournal(events.Config{BufferSize: 100, SubscriptionBuffer: 10}, nil),
		shutdown: make(chan struct{}, 1),
	}
	t.Cleanup(env.journal.Close)

	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	handlers := NewHandlers(env.watchdog, env.journal, "revive.yaml", func() { env.shutdown <- struct{}{} }, nil)
	env.server = NewServer(cfg, handlers)
	return env
}
