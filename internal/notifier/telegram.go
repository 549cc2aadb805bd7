package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nimas-seat-alert/internal/models"
)

// DefaultAPIURL is the public Telegram Bot API host
const DefaultAPIURL = "https://api.telegram.org"

// TelegramConfig configures the Telegram notifier
type TelegramConfig struct {
	// BotToken is the token issued by @BotFather
	BotToken string
	// ChatID is the chat or user the alert goes to
	ChatID string
	// APIURL overrides DefaultAPIURL
	APIURL  string
	Timeout time.Duration
}

// Telegram sends alerts as bot messages
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegram creates a Telegram notifier. A nil client gets a default one.
func NewTelegram(cfg TelegramConfig, client *http.Client) (*Telegram, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("bot token is required")
	}
	if cfg.ChatID == "" {
		return nil, errors.New("chat ID is required")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Telegram{cfg: cfg, client: client}, nil
}

// Name returns the notifier name
func (t *Telegram) Name() string {
	return "telegram"
}

// Notify posts text to the configured chat with link previews disabled.
// There is no retry; any non-2xx answer is an error.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	form := url.Values{}
	form.Set("chat_id", t.cfg.ChatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return &models.TransportError{Op: "POST", URL: t.redacted("sendMessage"), Err: t.redact(err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return &models.TransportError{Op: "POST", URL: t.redacted("sendMessage"), Err: t.redact(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &models.TransportError{
			Op:         "POST",
			URL:        t.redacted("sendMessage"),
			StatusCode: resp.StatusCode,
			Err:        apiDescription(resp.Body),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// SendTestMessage checks the bot token and chat id end to end
func (t *Telegram) SendTestMessage(ctx context.Context) error {
	text := fmt.Sprintf("Seat alert test message.\nTime: %s", time.Now().Format("2006-01-02 15:04:05"))
	return t.Notify(ctx, text)
}

func (t *Telegram) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(t.cfg.APIURL, "/"), t.cfg.BotToken, method)
}

// redacted is the endpoint as it may appear in errors and logs
func (t *Telegram) redacted(method string) string {
	return fmt.Sprintf("%s/bot<token>/%s", strings.TrimRight(t.cfg.APIURL, "/"), method)
}

func (t *Telegram) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &url.Error{Op: uerr.Op, URL: t.redacted("sendMessage"), Err: uerr.Err}
	}
	if strings.Contains(err.Error(), t.cfg.BotToken) {
		return errors.New(strings.ReplaceAll(err.Error(), t.cfg.BotToken, "<token>"))
	}
	return err
}

// apiDescription pulls the "description" out of a Telegram error body
func apiDescription(body io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return nil
	}
	var payload struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Description != "" {
		return errors.New(payload.Description)
	}
	return errors.New(strings.TrimSpace(string(data)))
}
