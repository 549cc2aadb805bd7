package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimas-seat-alert/internal/models"
)

func TestNewTelegram(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TelegramConfig
		wantErr bool
	}{
		{"valid config", TelegramConfig{BotToken: "123:ABC", ChatID: "456"}, false},
		{"missing bot token", TelegramConfig{ChatID: "456"}, true},
		{"missing chat ID", TelegramConfig{BotToken: "123:ABC"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewTelegram(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "telegram", n.Name())
			assert.Equal(t, DefaultAPIURL, n.cfg.APIURL)
		})
	}
}

func TestTelegram_Notify(t *testing.T) {
	t.Run("posts form to sendMessage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/bot123:ABC/sendMessage", r.URL.Path)
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "456", r.PostForm.Get("chat_id"))
			assert.Equal(t, "⚠️ BMC-58 availability is 3 (< 5).\nhttps://example.test", r.PostForm.Get("text"))
			assert.Equal(t, "true", r.PostForm.Get("disable_web_page_preview"))
			_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
		}))
		defer server.Close()

		n, err := NewTelegram(TelegramConfig{BotToken: "123:ABC", ChatID: "456", APIURL: server.URL}, server.Client())
		require.NoError(t, err)
		require.NoError(t, n.Notify(context.Background(), "⚠️ BMC-58 availability is 3 (< 5).\nhttps://example.test"))
	})

	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(http.StatusText(status)+" fails without retry", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			}))
			defer server.Close()

			n, err := NewTelegram(TelegramConfig{BotToken: "123:SECRET", ChatID: "456", APIURL: server.URL}, server.Client())
			require.NoError(t, err)

			err = n.Notify(context.Background(), "hello")
			var terr *models.TransportError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, status, terr.StatusCode)
			assert.Contains(t, err.Error(), "chat not found")
			assert.NotContains(t, err.Error(), "SECRET")
			assert.EqualValues(t, 1, calls.Load())
		})
	}

	t.Run("network error hides the token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		base := server.URL
		server.Close()

		n, err := NewTelegram(TelegramConfig{BotToken: "123:SECRET", ChatID: "456", APIURL: base}, nil)
		require.NoError(t, err)

		err = n.Notify(context.Background(), "hello")
		var terr *models.TransportError
		require.ErrorAs(t, err, &terr)
		assert.NotContains(t, err.Error(), "SECRET")
	})
}

func TestTelegram_SendTestMessage(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		got = r.PostForm.Get("text")
	}))
	defer server.Close()

	n, err := NewTelegram(TelegramConfig{BotToken: "t", ChatID: "c", APIURL: server.URL}, server.Client())
	require.NoError(t, err)
	require.NoError(t, n.SendTestMessage(context.Background()))
	assert.Contains(t, got, "test message")
}
