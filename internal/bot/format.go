package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/charliek/revive/internal/domain"
)

// FormatStatus renders a status snapshot as a chat message
func FormatStatus(s domain.WatchdogStatus) string {
	if s.Target == nil {
		msg := "💤 No server is being monitored."
		if s.LastRecovery != nil {
			msg += "\n" + formatRecovery(*s.LastRecovery)
		}
		return msg
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Server %s (%s)\n", healthIcon(s.Health), s.Target.ServerID, addressOrUnknown(s.Target.Address))
	fmt.Fprintf(&b, "Health: %s\n", s.Health)
	fmt.Fprintf(&b, "Failures: %d/%d\n", s.ConsecutiveFailures, s.Threshold)
	fmt.Fprintf(&b, "Spec: %s\n", s.Target.Spec)
	if !s.Target.RegisteredAt.IsZero() {
		fmt.Fprintf(&b, "Watching since: %s\n", s.Target.RegisteredAt.UTC().Format(time.RFC3339))
	}
	if s.Target.Recoveries > 0 {
		fmt.Fprintf(&b, "Recoveries: %d\n", s.Target.Recoveries)
	}
	if s.LastProbe != nil {
		fmt.Fprintf(&b, "Last probe: %s", s.LastProbe.Outcome)
		if s.LastProbe.OK() {
			fmt.Fprintf(&b, " (%s)", s.LastProbe.Latency.Round(time.Millisecond))
		}
		b.WriteString("\n")
	}
	if s.LastRecovery != nil {
		b.WriteString(formatRecovery(*s.LastRecovery))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRecovery(o domain.RecoveryOutcome) string {
	line := fmt.Sprintf("Last recovery: %s (%s, stage %s)", o.Result, o.Trigger, o.Stage)
	if o.Error != "" {
		line += ": " + o.Error
	}
	return line
}

func healthIcon(h domain.HealthStatus) string {
	switch h {
	case domain.HealthStatusHealthy:
		return "🟢"
	case domain.HealthStatusDegraded:
		return "🟡"
	case domain.HealthStatusRecovering:
		return "🔄"
	default:
		return "⚪"
	}
}
