// Package bot exposes the watchdog operations as Telegram commands for the
// admin user.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/domain"
	"github.com/charliek/revive/internal/notify"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Watchdog is the set of operations the bot drives
type Watchdog interface {
	RegisterTarget(ctx context.Context, serverID string) (domain.MonitorTarget, error)
	ClearTarget() bool
	Status() domain.WatchdogStatus
	TriggerRecovery(reason string) (string, error)
}

// Updates is the long-polling part of tgbotapi.BotAPI
type Updates interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

const refusal = "⛔ You are not allowed to use this bot."

const helpText = `Commands:
/watch <server-id> - monitor a Hetzner server
/unwatch - stop monitoring
/status - show the watchdog state
/recover - delete and recreate the monitored server now
/help - show this message`

// Bot answers commands from the admin user
type Bot struct {
	watchdog Watchdog
	sender   notify.Sender
	updates  Updates
	adminID  int64
	logger   *slog.Logger
}

// New creates a bot. updates may be nil when only HandleUpdate is used.
func New(watchdog Watchdog, sender notify.Sender, updates Updates, adminID int64, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		watchdog: watchdog,
		sender:   sender,
		updates:  updates,
		adminID:  adminID,
		logger:   logger.With("component", "bot"),
	}
}

// Run polls for updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	if b.updates == nil {
		return errors.New("bot has no update source")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = constants.TelegramPollTimeout
	updates := b.updates.GetUpdatesChan(u)

	b.logger.Info("bot polling for commands", "admin_id", b.adminID)

	for {
		select {
		case <-ctx.Done():
			b.updates.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes one update. Non-command messages are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}

	if msg.From == nil || msg.From.ID != b.adminID {
		var from int64
		if msg.From != nil {
			from = msg.From.ID
		}
		b.logger.Warn("command from unauthorised user", "user_id", from, "command", msg.Command())
		b.reply(msg.Chat.ID, refusal)
		return
	}

	b.logger.Debug("command received", "command", msg.Command())
	b.reply(msg.Chat.ID, b.dispatch(ctx, msg.Command(), strings.TrimSpace(msg.CommandArguments())))
}

func (b *Bot) dispatch(ctx context.Context, command, args string) string {
	switch command {
	case "watch":
		return b.watch(ctx, args)
	case "unwatch":
		if !b.watchdog.ClearTarget() {
			return "Nothing is being monitored."
		}
		return "🛑 Monitoring stopped."
	case "status":
		return FormatStatus(b.watchdog.Status())
	case "recover":
		id, err := b.watchdog.TriggerRecovery("requested via telegram")
		if err != nil {
			return "❌ " + describeError(err)
		}
		return fmt.Sprintf("🔄 Recovery %s started.", shortID(id))
	case "start", "help":
		return helpText
	default:
		return "Unknown command.\n\n" + helpText
	}
}

func (b *Bot) watch(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return "Usage: /watch <server-id>"
	}

	target, err := b.watchdog.RegisterTarget(ctx, fields[0])
	if err != nil {
		return "❌ " + describeError(err)
	}
	return fmt.Sprintf("👀 Now watching server %s at %s\nSpec: %s",
		target.ServerID, addressOrUnknown(target.Address), target.Spec)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, notify.Truncate(text, notify.MaxMessageLength))); err != nil {
		b.logger.Warn("reply failed", "chat_id", chatID, "error", err)
	}
}

func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoTarget):
		return "No server is being monitored. Use /watch <server-id> first."
	case errors.Is(err, domain.ErrRecoveryInProgress):
		return "A recovery is already running."
	case errors.Is(err, domain.ErrInvalidServerID):
		return "Invalid server id, expected the numeric Hetzner id."
	case errors.Is(err, domain.ErrNotFound):
		return "Server not found at Hetzner."
	case errors.Is(err, domain.ErrShutdownInProgress):
		return "The watchdog is shutting down."
	default:
		return err.Error()
	}
}

func addressOrUnknown(addr string) string {
	if addr == "" {
		return "unknown address"
	}
	return addr
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
