package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghbridge/internal/config"
)

func fakeBotAPI(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) config.TelegramConfig {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handle))
	t.Cleanup(srv.Close)
	return config.TelegramConfig{
		Token:       "123:abc",
		APIEndpoint: srv.URL + "/bot%s/%s",
		Timeout:     2 * time.Second,
	}
}

func reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNotifier_SendsMessage(t *testing.T) {
	type call struct{ path, chatID, text string }
	calls := make(chan call, 1)
	cfg := fakeBotAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		calls <- call{path: r.URL.Path, chatID: r.Form.Get("chat_id"), text: r.Form.Get("text")}
		reply(w, map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 1, "date": 0, "chat": map[string]any{"id": 42, "type": "private"}},
		})
	})

	n := NewNotifier(NewSender(cfg))
	require.NoError(t, n.Notify(context.Background(), 42, "hello"))

	got := <-calls
	assert.Equal(t, "/bot123:abc/sendMessage", got.path)
	assert.Equal(t, "42", got.chatID)
	assert.Equal(t, "hello", got.text)
}

func TestNotifier_ReportsAPIError(t *testing.T) {
	cfg := fakeBotAPI(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"ok": false, "error_code": 403, "description": "Forbidden: bot was blocked by the user"})
	})

	n := NewNotifier(NewSender(cfg))
	err := n.Notify(context.Background(), 42, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestNotifier_HonoursContext(t *testing.T) {
	release := make(chan struct{})
	cfg := fakeBotAPI(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		reply(w, map[string]any{"ok": true, "result": map[string]any{}})
	})
	defer close(release)

	n := NewNotifier(NewSender(cfg))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := n.Notify(ctx, 42, "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewBot_ChecksToken(t *testing.T) {
	cfg := fakeBotAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:abc/getMe" {
			http.NotFound(w, r)
			return
		}
		reply(w, map[string]any{"ok": true, "result": map[string]any{"id": 1, "is_bot": true, "username": "ghbridge_bot"}})
	})

	bot, err := NewBot(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ghbridge_bot", bot.Self.UserName)

	cfg.Token = "wrong"
	_, err = NewBot(cfg)
	assert.Error(t, err)
}
