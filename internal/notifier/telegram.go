package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	defaultTelegramAPI = "https://api.telegram.org"
	defaultRetries     = 3
)

// maxMessageLen is Telegram's limit for one message text.
const maxMessageLen = 4096

// ErrRejected marks a message Telegram refused (4xx). Resending it cannot succeed.
var ErrRejected = errors.New("telegram rejected message")

// TelegramNotifier pushes dashboard digests to one operator chat via the Bot API.
type TelegramNotifier struct {
	APIBase  string
	BotToken string
	ChatID   string
	Client   *http.Client
	Retries  int
	Backoff  time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		APIBase:  defaultTelegramAPI,
		BotToken: botToken,
		ChatID:   chatID,
		Client:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
		Retries:  defaultRetries,
		Backoff:  time.Second,
	}
}

// Enabled reports whether both the token and chat are configured.
func (t *TelegramNotifier) Enabled() bool {
	return t != nil && t.BotToken != "" && t.ChatID != ""
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
}

// Send posts one HTML message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", stripURL(err))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", stripURL(err))
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, respBody)
	}
	return fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, respBody)
}

// Deliver splits text into message-sized chunks on line breaks and sends each
// with exponential backoff. Rejected chunks are not retried.
func (t *TelegramNotifier) Deliver(ctx context.Context, text string) error {
	for i, chunk := range splitMessage(text, maxMessageLen) {
		if err := t.sendWithRetry(ctx, chunk); err != nil {
			return fmt.Errorf("chunk %d: %w", i+1, err)
		}
	}
	return nil
}

func (t *TelegramNotifier) sendWithRetry(ctx context.Context, text string) error {
	var lastErr error
	for attempt := 0; attempt <= t.Retries; attempt++ {
		lastErr = t.Send(ctx, text)
		if lastErr == nil || errors.Is(lastErr, ErrRejected) {
			return lastErr
		}
		backoff := t.Backoff << uint(attempt)
		log.Warn().Err(lastErr).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("telegram send failed")
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", t.Retries+1, lastErr)
}

// splitMessage cuts text into pieces of at most limit bytes, preferring line breaks.
// A single longer line is cut hard.
func splitMessage(text string, limit int) []string {
	var out []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		out = append(out, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// stripURL drops the request URL from transport errors; it carries the bot token.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
