// Package notify delivers operator notifications. Delivery is best effort:
// a failed notification never changes the outcome of the action it reports.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charliek/revive/internal/domain"
)

// Notifier sends a plain-text message to operators
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// PrivateNotifier can deliver a fuller text to trusted recipients. Text
// passed as private may carry credentials and must never reach a shared
// destination.
type PrivateNotifier interface {
	NotifyPrivate(ctx context.Context, public, private string) error
}

// Private sends private to the trusted recipients of n and public to
// everyone else. Notifiers without trusted recipients only get public.
func Private(ctx context.Context, n Notifier, public, private string) error {
	if p, ok := n.(PrivateNotifier); ok {
		return p.NotifyPrivate(ctx, public, private)
	}
	return n.Notify(ctx, public)
}

// Func adapts a plain function to the Notifier interface
type Func func(ctx context.Context, text string) error

// Notify calls f
func (f Func) Notify(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Multi fans a message out to every notifier
type Multi []Notifier

// Notify sends to all notifiers and joins their errors
func (m Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifyPrivate hands both texts to every notifier
func (m Multi) NotifyPrivate(ctx context.Context, public, private string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := Private(ctx, n, public, private); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BestEffort logs and swallows delivery errors
type BestEffort struct {
	next   Notifier
	logger *slog.Logger
}

// NewBestEffort wraps next
func NewBestEffort(next Notifier, logger *slog.Logger) *BestEffort {
	if logger == nil {
		logger = slog.Default()
	}
	return &BestEffort{next: next, logger: logger.With("component", "notify")}
}

// Notify always returns nil
func (b *BestEffort) Notify(ctx context.Context, text string) error {
	if err := b.next.Notify(ctx, text); err != nil {
		b.logger.Warn("notification not delivered", "error", err)
	}
	return nil
}

// NotifyPrivate always returns nil
func (b *BestEffort) NotifyPrivate(ctx context.Context, public, private string) error {
	if err := Private(ctx, b.next, public, private); err != nil {
		b.logger.Warn("notification not delivered", "error", err)
	}
	return nil
}

// Emitter receives journal events
type Emitter interface {
	Emit(domain.Event)
}

// Journal records every notification in the event journal. It is not a
// PrivateNotifier: journal events are served to API clients.
type Journal struct {
	events Emitter
}

// NewJournal creates a notifier writing to events
func NewJournal(events Emitter) *Journal {
	return &Journal{events: events}
}

// Notify records text as a notification event
func (j *Journal) Notify(_ context.Context, text string) error {
	j.events.Emit(domain.Event{
		Type:     domain.EventNotification,
		Severity: domain.SeverityInfo,
		Message:  text,
	})
	return nil
}
