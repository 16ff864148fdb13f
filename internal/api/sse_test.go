package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charliek/revive/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamEvents_Headers(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/v1/events/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		env.server.handlers.StreamEvents(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not finish after context cancel")
	}

	result := rec.Result()
	defer result.Body.Close()

	assert.Equal(t, "text/event-stream", result.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", result.Header.Get("Cache-Control"))
	assert.Equal(t, "no", result.Header.Get("X-Accel-Buffering"))
	assert.Contains(t, rec.Body.String(), ": connected")
	assert.Zero(t, env.journal.Stats().Subscribers, "subscription released")
}

func TestStreamEvents_DeliversFilteredEvents(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/v1/events/stream?type=recovery_succeeded", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	env.journal.Emit(domain.Event{Type: domain.EventProbeFailed, Message: "ignored"})
	env.journal.Emit(domain.Event{Type: domain.EventRecoveryDone, ServerID: "2", Message: "replaced 1 with 2"})

	var eventLine, dataLine string
	for dataLine == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = line
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimPrefix(line, "data: ")
		}
	}

	assert.Equal(t, "event: recovery_succeeded", eventLine)
	var ev EventResponse
	require.NoError(t, json.Unmarshal([]byte(dataLine), &ev))
	assert.Equal(t, "replaced 1 with 2", ev.Message)
	assert.Equal(t, "2", ev.ServerID)
}

func TestStreamEvents_InvalidPattern(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	w := do(t, env, "GET", "/api/v1/events/stream?pattern=%5B&regex=true", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.ErrCodeInvalidPattern, decode[ErrorResponse](t, w).Code)
}
