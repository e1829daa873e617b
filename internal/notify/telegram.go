package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends notices through the Telegram Bot API. Messages to
// one chat are limited to one per second.
type TelegramNotifier struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// TelegramOption configures a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithTelegramBaseURL points the notifier at another API host.
func WithTelegramBaseURL(u string) TelegramOption {
	return func(t *TelegramNotifier) { t.baseURL = strings.TrimRight(u, "/") }
}

// WithTelegramLimiter replaces the per-chat rate limiter.
func WithTelegramLimiter(l *rate.Limiter) TelegramOption {
	return func(t *TelegramNotifier) { t.limiter = l }
}

// NewTelegramNotifier constructs a notifier for one chat.
func NewTelegramNotifier(token, chatID string, log zerolog.Logger, opts ...TelegramOption) *TelegramNotifier {
	t := &TelegramNotifier{
		baseURL: telegramAPI,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		log:     log,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends title in bold followed by body.
func (t *TelegramNotifier) Notify(ctx context.Context, title, body string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", "<b>"+html.EscapeString(title)+"</b>\n\n"+html.EscapeString(body))
	form.Set("parse_mode", "HTML")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of the error.
		return fmt.Errorf("telegram sendMessage: %w", redactToken(err, t.token))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	var tr telegramResponse
	_ = json.Unmarshal(raw, &tr)
	if resp.StatusCode != http.StatusOK || !tr.OK {
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, tr.Description)
	}
	t.log.Debug().Str("title", title).Msg("telegram notification sent")
	return nil
}

type redactedError struct{ msg string }

func (e redactedError) Error() string { return e.msg }

func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>")}
}
