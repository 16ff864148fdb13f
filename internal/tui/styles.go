package tui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	// Health colors
	healthyColor     = lipgloss.Color("10") // Green
	degradedColor    = lipgloss.Color("11") // Yellow
	recoveringColor  = lipgloss.Color("13") // Magenta
	unmonitoredColor = lipgloss.Color("8")  // Gray

	// Severity colors
	infoColor  = lipgloss.Color("14") // Cyan
	warnColor  = lipgloss.Color("11") // Yellow
	errorColor = lipgloss.Color("9")  // Red

	// UI colors
	headerBg = lipgloss.Color("235")
	statusBg = lipgloss.Color("236")
	helpBg   = lipgloss.Color("234")
	dimColor = lipgloss.Color("8")
)

// Styles
var (
	healthyStyle = lipgloss.NewStyle().
			Foreground(healthyColor).
			Bold(true)

	degradedStyle = lipgloss.NewStyle().
			Foreground(degradedColor).
			Bold(true)

	recoveringStyle = lipgloss.NewStyle().
			Foreground(recoveringColor).
			Bold(true)

	unmonitoredStyle = lipgloss.NewStyle().
				Foreground(unmonitoredColor)

	infoStyle  = lipgloss.NewStyle().Foreground(infoColor)
	warnStyle  = lipgloss.NewStyle().Foreground(warnColor)
	errorLevel = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	defaultStyle = lipgloss.NewStyle()

	titleStyle = lipgloss.NewStyle().Bold(true)

	typeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	// Header style
	headerStyle = lipgloss.NewStyle().
			Background(headerBg).
			Padding(0, 1).
			MarginBottom(1)

	// Status bar style
	statusStyle = lipgloss.NewStyle().
			Background(statusBg).
			Padding(0, 1)

	// Help overlay style
	helpStyle = lipgloss.NewStyle().
			Background(helpBg).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	// Error indicator style
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(errorColor).
			Bold(true)

	// Dim style for timestamps
	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)

// healthStyle returns the style for a health status
func healthStyle(health string) lipgloss.Style {
	switch health {
	case "healthy":
		return healthyStyle
	case "degraded":
		return degradedStyle
	case "recovering":
		return recoveringStyle
	case "unmonitored":
		return unmonitoredStyle
	default:
		return defaultStyle
	}
}

// severityStyle returns the style for an event severity
func severityStyle(severity string) lipgloss.Style {
	switch severity {
	case "info":
		return infoStyle
	case "warn":
		return warnStyle
	case "error":
		return errorLevel
	default:
		return defaultStyle
	}
}

// resultStyle colours a recovery result
func resultStyle(result string) lipgloss.Style {
	switch result {
	case "succeeded":
		return healthyStyle
	case "failed":
		return errorLevel
	default:
		return degradedStyle
	}
}
