package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/revive/internal/api"
)

// nearBottomThreshold is the scroll percentage (0.0-1.0) at which we consider
// the viewport to be "near" the bottom for auto-follow purposes.
const nearBottomThreshold = 0.98

// headerHeight is the target panel plus its margin
const headerHeight = 4

// footerHeight is the status bar
const footerHeight = 2

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
		m.updateViewport()

	case StatusMsg:
		m.status = msg
		m.connectionError = nil

	case EventsMsg:
		for _, e := range msg {
			m.addEvent(e)
		}
		m.afterEvents()

	case EventMsg:
		m.addEvent(api.EventResponse(msg))
		m.afterEvents()

	case ClientErrorMsg:
		m.connectionError = msg.Err

	case StreamClosedMsg:
		m.streamClosed = true
		m.streamError = msg.Err

	case RecoverResultMsg:
		m.lastRecoverID = msg.ID
		m.lastRecoverErr = msg.Err
		cmds = append(cmds, m.fetchStatus(), recoverResultClearCmd())

	case RecoverResultClearMsg:
		m.lastRecoverID = ""
		m.lastRecoverErr = nil

	case TickMsg:
		cmds = append(cmds, m.fetchStatus(), tickCmd())
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeSearch:
		cmd := m.handleSearchKey(msg)
		return m, cmd
	case ModeConfirmRecover:
		return m.handleConfirmKey(msg)
	case ModeHelp:
		switch msg.String() {
		case "esc", "?", "q", "enter":
			m.mode = ModeNormal
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		if m.status != nil && m.status.Target != nil && !m.status.RecoveryInProgress {
			m.mode = ModeConfirmRecover
		}
		return m, nil
	}

	m.handleNavigationKey(msg)
	return m, nil
}

// handleConfirmKey asks before replacing the server
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ModeNormal
	if msg.String() == "y" || msg.String() == "Y" {
		return m, m.requestRecovery()
	}
	return m, nil
}

// handleSearchKey handles keys in search mode; the filter updates live
func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		m.textInput.Blur()
		m.searchPattern = ""
		m.updateViewport()
		return nil

	case "enter":
		m.searchPattern = m.textInput.Value()
		m.mode = ModeNormal
		m.textInput.Blur()
		m.updateViewport()
		return nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	m.searchPattern = m.textInput.Value()
	m.updateViewport()
	return cmd
}

// handleNavigationKey handles scrolling and filter keys.
// Returns true if the key was handled
func (m *Model) handleNavigationKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "?":
		m.mode = ModeHelp
		return true

	case "/":
		m.mode = ModeSearch
		m.textInput.SetValue("")
		m.textInput.Focus()
		return true

	case "p":
		m.problemsOnly = !m.problemsOnly
		m.updateViewport()
		return true

	case "esc":
		m.searchPattern = ""
		m.problemsOnly = false
		m.updateViewport()
		return true

	case "up", "k":
		m.viewport.LineUp(1)
		m.followMode = false
		return true

	case "down", "j":
		m.viewport.LineDown(1)
		return true

	case "pgup":
		m.viewport.HalfViewUp()
		m.followMode = false
		return true

	case "pgdown":
		m.viewport.HalfViewDown()
		return true

	case "home", "g":
		m.viewport.GotoTop()
		m.followMode = false
		return true

	case "end", "G":
		m.viewport.GotoBottom()
		m.followMode = true
		return true

	case "F":
		m.followMode = !m.followMode
		if m.followMode {
			m.viewport.GotoBottom()
		}
		return true
	}

	return false
}

// handleWindowSize handles window resize messages
func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	viewportHeight := msg.Height - headerHeight - footerHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.viewport.YPosition = headerHeight
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}
}

// addEvent appends an event unless it was already received. The stream and
// the initial load can overlap.
func (m *Model) addEvent(event api.EventResponse) {
	if event.ID != "" {
		if _, ok := m.seen[event.ID]; ok {
			return
		}
		m.seen[event.ID] = struct{}{}
	}

	m.events = append(m.events, event)
	if len(m.events) > maxEvents {
		// copy to release the dropped entries
		kept := make([]api.EventResponse, maxEvents)
		copy(kept, m.events[len(m.events)-maxEvents:])
		for _, e := range m.events[:len(m.events)-maxEvents] {
			delete(m.seen, e.ID)
		}
		m.events = kept
	}
}

// afterEvents refreshes the viewport and keeps following the bottom
func (m *Model) afterEvents() {
	wasNearBottom := m.isNearBottom()
	m.updateViewport()
	if wasNearBottom {
		m.followMode = true
	}
	if m.followMode {
		m.viewport.GotoBottom()
	}
}

// isNearBottom checks if the viewport is at or near the bottom
func (m *Model) isNearBottom() bool {
	if !m.ready {
		return true
	}
	if m.viewport.AtBottom() {
		return true
	}
	return m.viewport.ScrollPercent() >= nearBottomThreshold
}

// updateViewport updates the viewport content
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	visible := m.filteredEvents()
	lines := make([]string, 0, len(visible))
	for _, e := range visible {
		lines = append(lines, formatEvent(e))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

// filteredEvents returns events after applying filters
func (m *Model) filteredEvents() []api.EventResponse {
	if m.searchPattern == "" && !m.problemsOnly {
		return m.events
	}

	var result []api.EventResponse
	for _, e := range m.events {
		if m.problemsOnly && e.Severity == "info" {
			continue
		}
		if m.searchPattern != "" &&
			!containsIgnoreCase(e.Message, m.searchPattern) &&
			!containsIgnoreCase(e.Type, m.searchPattern) {
			continue
		}
		result = append(result, e)
	}
	return result
}

// containsIgnoreCase performs a case-insensitive substring search
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
