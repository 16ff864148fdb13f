package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charliek/revive/internal/metrics"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// MaxMessageLength is Telegram's limit for a text message
const MaxMessageLength = 4096

// Sender is the part of tgbotapi.BotAPI used to deliver messages
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts notifications to the log channel and the admin chat
type Telegram struct {
	sender  Sender
	chats   []int64
	admin   int64
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewTelegram creates a Telegram notifier. Zero chat ids are skipped and
// duplicates are sent once. perSecond bounds the sustained send rate.
func NewTelegram(sender Sender, perSecond float64, logger *slog.Logger, chatIDs ...int64) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[int64]bool)
	var chats []int64
	for _, id := range chatIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		chats = append(chats, id)
	}

	return &Telegram{
		sender:  sender,
		chats:   chats,
		limiter: rate.NewLimiter(rate.Limit(perSecond), len(chats)+1),
		logger:  logger.With("component", "telegram"),
	}
}

// WithAdmin marks chatID as the admin chat, the only one that receives
// private texts. The chat is added to the destinations if missing.
func (t *Telegram) WithAdmin(chatID int64) *Telegram {
	if chatID == 0 {
		return t
	}
	t.admin = chatID
	for _, id := range t.chats {
		if id == chatID {
			return t
		}
	}
	t.chats = append(t.chats, chatID)
	t.limiter.SetBurst(len(t.chats) + 1)
	return t
}

// Chats returns the destination chat ids
func (t *Telegram) Chats() []int64 {
	return t.chats
}

// Notify sends text to every chat
func (t *Telegram) Notify(ctx context.Context, text string) error {
	return t.send(ctx, func(int64) string { return text })
}

// NotifyPrivate sends private to the admin chat and public to the others
func (t *Telegram) NotifyPrivate(ctx context.Context, public, private string) error {
	return t.send(ctx, func(chat int64) string {
		if chat == t.admin {
			return private
		}
		return public
	})
}

func (t *Telegram) send(ctx context.Context, textFor func(chat int64) string) error {
	var errs []error
	for _, chat := range t.chats {
		text := Truncate(textFor(chat), MaxMessageLength)
		if err := t.limiter.Wait(ctx); err != nil {
			metrics.NotificationsTotal.WithLabelValues("telegram", "dropped").Inc()
			return errors.Join(append(errs, fmt.Errorf("rate limiter: %w", err))...)
		}

		if _, err := t.sender.Send(tgbotapi.NewMessage(chat, text)); err != nil {
			metrics.NotificationsTotal.WithLabelValues("telegram", "error").Inc()
			errs = append(errs, fmt.Errorf("sending to chat %d: %w", chat, err))
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("telegram", "sent").Inc()
	}

	return errors.Join(errs...)
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const ellipsis = "..."
	cut := n - len(ellipsis)
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut] + ellipsis
}
