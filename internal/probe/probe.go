// Package probe implements reachability checks against the monitored server.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/charliek/revive/internal/config"
	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/domain"
)

// Prober performs a single reachability check. Implementations must honour
// ctx and never block past their configured timeout.
type Prober interface {
	Probe(ctx context.Context, address string) domain.ProbeResult
}

// Func adapts a plain function to the Prober interface
type Func func(ctx context.Context, address string) domain.ProbeResult

// Probe calls f
func (f Func) Probe(ctx context.Context, address string) domain.ProbeResult {
	return f(ctx, address)
}

// New builds the prober selected by the watchdog configuration
func New(cfg config.WatchdogConfig) (Prober, error) {
	switch cfg.Probe {
	case constants.ProbeICMP, "":
		return NewICMPProber(cfg.ProbeCount, cfg.ProbeTimeout, cfg.IsPrivileged()), nil
	case constants.ProbeTCP:
		return NewTCPProber(cfg.TCPPort, cfg.ProbeTimeout), nil
	default:
		return nil, fmt.Errorf("%w: unknown probe %q", domain.ErrInvalidConfig, cfg.Probe)
	}
}

func result(outcome domain.ProbeOutcome, address string, start time.Time, err error) domain.ProbeResult {
	return domain.ProbeResult{
		Outcome:   outcome,
		Address:   address,
		Latency:   time.Since(start),
		CheckedAt: start,
		Err:       err,
	}
}

func noAddress(start time.Time) domain.ProbeResult {
	return result(domain.ProbeError, "", start, fmt.Errorf("server has no public address"))
}
