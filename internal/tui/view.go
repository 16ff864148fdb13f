package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/charliek/revive/internal/api"
)

// View renders the dashboard
func (m Model) View() string {
	if !m.ready {
		return "Connecting to revive..."
	}

	if m.mode == ModeHelp {
		return helpView()
	}

	var sb strings.Builder
	sb.WriteString(m.targetPanel())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.statusBar())
	return sb.String()
}

// targetPanel renders the monitored server and its health
func (m Model) targetPanel() string {
	s := m.status
	if s == nil {
		return headerStyle.Render(dimStyle.Render("waiting for status..."))
	}

	health := healthStyle(s.Health).Render(strings.ToUpper(s.Health))
	if s.Target == nil {
		lines := []string{
			titleStyle.Render("revive") + "  " + health,
			dimStyle.Render("no server is being monitored (revive watch <server-id>)"),
			"",
		}
		return headerStyle.Render(strings.Join(lines, "\n"))
	}

	t := s.Target
	first := fmt.Sprintf("%s  %s  %s (%s)  %s",
		titleStyle.Render("revive"), health, t.Name, t.ServerID, valueOr(t.Address, "no address"))
	if s.RecoveryInProgress {
		first += "  " + recoveringStyle.Render("recovery in progress")
	}

	second := fmt.Sprintf("failures %d/%d", s.ConsecutiveFailures, s.Threshold)
	if p := s.LastProbe; p != nil {
		second += fmt.Sprintf(" | last probe %s %.1fms", p.Outcome, p.LatencyMS)
	}
	second += fmt.Sprintf(" | %s %s %s | recoveries %d", t.ServerType, t.Image, t.Location, t.Recoveries)

	third := dimStyle.Render("no recovery yet")
	if r := s.LastRecovery; r != nil {
		third = fmt.Sprintf("last recovery %s: %s -> %s", resultStyle(r.Result).Render(r.Result), r.OldServerID, valueOr(r.NewServerID, "none"))
		if r.Error != "" {
			third += " " + errorStyle.Render(truncate(r.Error, maxErrorDisplayLen))
		}
	}

	return headerStyle.Render(strings.Join([]string{first, second, third}, "\n"))
}

// statusBar renders the bottom status bar
func (m Model) statusBar() string {
	var left string

	switch m.mode {
	case ModeSearch:
		left = "Search: " + m.textInput.View()
	case ModeConfirmRecover:
		left = errorStyle.Render(" Replace the server now? (y/n) ")
	default:
		switch {
		case m.connectionError != nil:
			left = errorStyle.Render(" Connection error ") + " " + truncate(m.connectionError.Error(), maxErrorDisplayLen)
		case m.lastRecoverErr != nil:
			left = "Recovery failed to start: " + truncate(m.lastRecoverErr.Error(), maxErrorDisplayLen)
		case m.lastRecoverID != "":
			left = "Recovery started: " + m.lastRecoverID
		case m.streamClosed:
			left = "Event stream closed (restart the dashboard to reconnect)"
		case m.searchPattern != "":
			left = fmt.Sprintf("Filter: %s (ESC to clear)", m.searchPattern)
		default:
			left = "r: recover | p: problems only | ? for help"
		}
	}

	followIndicator := "[FOLLOW]"
	if !m.followMode {
		followIndicator = "[PAUSED]"
	}
	scope := "all"
	if m.problemsOnly {
		scope = "problems"
	}
	right := fmt.Sprintf("%s %d/%d events (%s)", followIndicator, len(m.filteredEvents()), len(m.events), scope)

	leftWidth := m.width - len(right) - 4
	if leftWidth < 0 {
		leftWidth = 0
	}

	leftPart := statusStyle.Width(leftWidth).Render(left)
	rightPart := statusStyle.Render(right)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPart, "  ", rightPart)
}

// formatEvent formats a single event for display
func formatEvent(e api.EventResponse) string {
	ts := e.Timestamp
	if parsed, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
		ts = parsed.Local().Format("15:04:05")
	}

	server := ""
	if e.ServerID != "" {
		server = dimStyle.Render("["+e.ServerID+"]") + " "
	}

	return fmt.Sprintf("%s %s %s %s%s",
		dimStyle.Render(ts),
		severityStyle(e.Severity).Render(fmt.Sprintf("%-5s", e.Severity)),
		typeStyle.Render(fmt.Sprintf("%-18s", e.Type)),
		server,
		e.Message)
}

func helpView() string {
	help := `
revive dashboard

Navigation:
  j/↓        Scroll down
  k/↑        Scroll up (pauses auto-follow)
  g/Home     Go to top (pauses auto-follow)
  G/End      Go to bottom (resumes auto-follow)
  PgUp/PgDn  Page up/down
  F          Toggle auto-follow mode

Filtering:
  /          Filter by text (type or message)
  p          Only warnings and errors
  ESC        Clear filters

Actions:
  r          Replace the monitored server (asks first)
  ?          Toggle help
  q/Ctrl+C   Quit (the watchdog keeps running)

Press any key to close help...
`
	return helpStyle.Render(help)
}

// truncate shortens s to maxLen characters
func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
