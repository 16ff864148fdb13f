package watchdog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charliek/revive/internal/domain"
)

// Operator-facing notification texts

func startMessage(snap domain.RecoverySnapshot, reason string) string {
	return fmt.Sprintf("⚠️ Server %s (%s) is unreachable: %s.\nStarting recovery: delete and recreate as %s.",
		snap.ServerID, addressOrUnknown(snap.Address), reason, snap.Spec)
}

// successMessage reports a replacement. The root password is only included
// when withPassword is set; that text is for the admin alone.
func successMessage(outcome domain.RecoveryOutcome, created domain.CreatedServer, withPassword bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Server recovered.\nOld ID: %s\nNew ID: %s\nIP: %s\nSpec: %s",
		outcome.OldServerID, created.ServerID, addressOrUnknown(created.Address), outcome.Spec)
	if withPassword && created.RootPassword != "" {
		fmt.Fprintf(&b, "\nRoot password: %s", created.RootPassword)
	}
	fmt.Fprintf(&b, "\nTook %s.", outcome.Duration().Round(time.Second))
	return b.String()
}

func deleteFailedMessage(outcome domain.RecoveryOutcome, attempts int, err error) string {
	return fmt.Sprintf("❌ Recovery of server %s failed: could not delete it after %d attempt(s): %v.\n"+
		"The server is still monitored; recovery runs again after the next failure threshold.",
		outcome.OldServerID, attempts, err)
}

func createFailedMessage(outcome domain.RecoveryOutcome, attempts int, err error, cleared bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ Recovery of server %s failed: the server was deleted but no replacement could be created (%s) after %d attempt(s).\n",
		outcome.OldServerID, failureKind(err), attempts)
	fmt.Fprintf(&b, "Attempted spec: %s\nError: %v\n", outcome.Spec, err)
	if cleared {
		b.WriteString("Monitoring stopped. Create a server manually and register it with /watch.")
	} else {
		b.WriteString("The monitored target was changed meanwhile and is left as is.")
	}
	return b.String()
}

func panicMessage(outcome domain.RecoveryOutcome, p any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ Recovery of server %s aborted at stage %s with an internal error: %v.\nSpec: %s",
		outcome.OldServerID, outcome.Stage, p, outcome.Spec)
	switch {
	case outcome.Result == domain.RecoverySucceeded:
		fmt.Fprintf(&b, "\nReplacement %s (%s) is installed and monitored.", outcome.NewServerID, addressOrUnknown(outcome.NewAddress))
	case outcome.TargetCleared:
		b.WriteString("\nThe server was deleted. Monitoring stopped.")
	}
	return b.String()
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "quota exceeded"
	case errors.Is(err, domain.ErrInvalidSpec):
		return "invalid server spec"
	case errors.Is(err, domain.ErrTransient):
		return "provider unavailable"
	default:
		return "unexpected error"
	}
}

func addressOrUnknown(addr string) string {
	if addr == "" {
		return "no public IP"
	}
	return addr
}
