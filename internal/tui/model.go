package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/revive/internal/api"
)

// maxEvents is the maximum number of events to keep in memory
const maxEvents = 1000

// maxErrorDisplayLen is the maximum length of error messages in the status bar
const maxErrorDisplayLen = 60

// refreshInterval is how often the status is polled
const refreshInterval = time.Second

// Mode represents the current TUI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeConfirmRecover
	ModeHelp
)

// Model is the bubbletea model for the dashboard
type Model struct {
	client TUIClient

	// State
	status *api.StatusResponse
	events []api.EventResponse
	seen   map[string]struct{}

	// UI components
	viewport  viewport.Model
	textInput textinput.Model

	mode Mode

	// Filtering
	searchPattern string // substring match on type and message
	problemsOnly  bool   // only warn and error events

	// Auto-scroll
	followMode bool

	// Connection and action feedback
	connectionError error
	streamError     error
	streamClosed    bool
	lastRecoverID   string
	lastRecoverErr  error

	// Dimensions
	width  int
	height int
	ready  bool
}

// NewModel creates a dashboard model
func NewModel(client TUIClient) Model {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.CharLimit = 100
	ti.Width = 40

	return Model{
		client:     client,
		events:     make([]api.EventResponse, 0),
		seen:       make(map[string]struct{}),
		textInput:  ti,
		mode:       ModeNormal,
		followMode: true,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchStatus(),
		tickCmd(),
	)
}

// StatusMsg carries a fresh status
type StatusMsg *api.StatusResponse

// EventsMsg carries the events loaded on start
type EventsMsg []api.EventResponse

// EventMsg is sent when a new event arrives
type EventMsg api.EventResponse

// ClientErrorMsg is sent when an API error occurs
type ClientErrorMsg struct {
	Err error
}

// StreamClosedMsg is sent when the event stream ends
type StreamClosedMsg struct {
	Err error
}

// TickMsg is sent periodically
type TickMsg time.Time

// RecoverResultMsg is sent when a recovery request completes
type RecoverResultMsg struct {
	ID  string
	Err error
}

// RecoverResultClearMsg is sent to clear the recover result after a delay
type RecoverResultClearMsg struct{}

// recoverResultClearDelay is how long to show the recover result
const recoverResultClearDelay = 5 * time.Second

func recoverResultClearCmd() tea.Cmd {
	return tea.Tick(recoverResultClearDelay, func(t time.Time) tea.Msg {
		return RecoverResultClearMsg{}
	})
}

// fetchStatus returns a command to fetch the status from the API
func (m Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		status, err := m.client.GetStatus()
		if err != nil {
			return ClientErrorMsg{Err: err}
		}
		return StatusMsg(status)
	}
}

// requestRecovery returns a command that starts a manual recovery
func (m Model) requestRecovery() tea.Cmd {
	return func() tea.Msg {
		id, err := m.client.Recover("requested from dashboard")
		return RecoverResultMsg{ID: id, Err: err}
	}
}

// tickCmd returns a command that ticks periodically
func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
