package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/charliek/revive/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Emit(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestTelegram_Notify(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 100, nil, -100123, 42, 0, 42)

	assert.Equal(t, []int64{-100123, 42}, n.Chats())

	require.NoError(t, n.Notify(context.Background(), "server 42 recovered"))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(-100123), sender.sent[0].ChatID)
	assert.Equal(t, int64(42), sender.sent[1].ChatID)
	assert.Equal(t, "server 42 recovered", sender.sent[0].Text)
}

func TestTelegram_NotifyError(t *testing.T) {
	sender := &fakeSender{err: errors.New("bad gateway")}
	n := NewTelegram(sender, 100, nil, 1, 2)

	err := n.Notify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat 1")
	assert.Contains(t, err.Error(), "chat 2")
}

func TestTelegram_CancelledContext(t *testing.T) {
	sender := &fakeSender{}
	// one token, refilled every 100s
	n := NewTelegram(sender, 0.01, nil, 1)
	require.NoError(t, n.Notify(context.Background(), "first"))
	require.NoError(t, n.Notify(context.Background(), "second"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, n.Notify(ctx, "third"))
	assert.Len(t, sender.sent, 2)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	long := strings.Repeat("a", 20)
	assert.Equal(t, "aaaaaaa...", Truncate(long, 10))

	// never split a multi-byte rune
	s := strings.Repeat("ä", 10)
	out := Truncate(s, 10)
	assert.LessOrEqual(t, len(out), 10)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, "äää...", out)
}

func TestMulti(t *testing.T) {
	var got []string
	ok := Func(func(_ context.Context, text string) error {
		got = append(got, text)
		return nil
	})
	failing := Func(func(context.Context, string) error {
		return errors.New("down")
	})

	err := Multi{ok, nil, failing, ok}.Notify(context.Background(), "msg")
	assert.EqualError(t, err, "down")
	assert.Equal(t, []string{"msg", "msg"}, got)

	assert.NoError(t, Multi{}.Notify(context.Background(), "msg"))
}

func TestBestEffort(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	n := NewBestEffort(Func(func(context.Context, string) error {
		return errors.New("telegram unreachable")
	}), logger)

	assert.NoError(t, n.Notify(context.Background(), "msg"))
	assert.Contains(t, buf.String(), "telegram unreachable")
}

func TestJournal(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, NewJournal(rec).Notify(context.Background(), "recovery failed"))

	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.EventNotification, rec.events[0].Type)
	assert.Equal(t, "recovery failed", rec.events[0].Message)
}

func TestTelegram_NotifyPrivate(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 100, nil, -100123).WithAdmin(42)

	assert.Equal(t, []int64{-100123, 42}, n.Chats())

	require.NoError(t, n.NotifyPrivate(context.Background(), "recovered", "recovered, password s3cret"))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "recovered", sender.sent[0].Text)
	assert.Equal(t, int64(42), sender.sent[1].ChatID)
	assert.Equal(t, "recovered, password s3cret", sender.sent[1].Text)
}

func TestTelegram_NotifyPrivateWithoutAdmin(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 100, nil, -100123).WithAdmin(0)

	require.NoError(t, n.NotifyPrivate(context.Background(), "recovered", "s3cret"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "recovered", sender.sent[0].Text)
}

func TestPrivate_FansOutWithoutLeaking(t *testing.T) {
	rec := &recorder{}
	sender := &fakeSender{}
	var plain []string
	n := NewBestEffort(Multi{
		NewJournal(rec),
		NewTelegram(sender, 100, nil, 7).WithAdmin(7),
		Func(func(_ context.Context, text string) error {
			plain = append(plain, text)
			return nil
		}),
	}, nil)

	require.NoError(t, Private(context.Background(), n, "recovered", "password s3cret"))

	require.Len(t, rec.events, 1)
	assert.Equal(t, "recovered", rec.events[0].Message)
	assert.Equal(t, []string{"recovered"}, plain)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "password s3cret", sender.sent[0].Text)
}
