package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/revive/internal/api"
)

// initialEvents is how many past events the dashboard loads on start
const initialEvents = 200

// TUIClient is the part of the API client the dashboard uses
type TUIClient interface {
	GetStatus() (*api.StatusResponse, error)
	RecentEvents(limit int) ([]api.EventResponse, error)
	FollowEvents(ctx context.Context, callback func(api.EventResponse)) error
	Recover(reason string) (string, error)
}

// RunClient starts the dashboard connected to a running watchdog
func RunClient(client TUIClient) error {
	model := NewModel(client)
	p := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())

	go forwardEvents(ctx, p, client)

	_, err := p.Run()

	// stop the event stream
	cancel()

	return err
}

// forwardEvents loads recent events, then streams new ones to the program.
// It exits when the context is cancelled or the stream ends.
func forwardEvents(ctx context.Context, p *tea.Program, client TUIClient) {
	recent, err := client.RecentEvents(initialEvents)
	if err != nil {
		p.Send(ClientErrorMsg{Err: err})
	} else {
		p.Send(EventsMsg(recent))
	}

	err = client.FollowEvents(ctx, func(event api.EventResponse) {
		p.Send(EventMsg(event))
	})
	if ctx.Err() == nil {
		p.Send(StreamClosedMsg{Err: err})
	}
}
