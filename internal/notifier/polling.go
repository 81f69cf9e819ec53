package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const pollTimeout = 30 * time.Second

// CommandHandler answers a dashboard command such as "/ratios".
type CommandHandler func(command string) string

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// StartPolling long-polls for commands from the configured chat and replies
// through Deliver. Messages from other chats are ignored. Blocks until ctx ends.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: pollTimeout + 5*time.Second, Transport: t.Client.Transport}
	offset := 0
	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn().Err(err).Msg("telegram polling failed")
			sleep(ctx, 5*time.Second)
			continue
		}
		offset = t.dispatch(ctx, updates, handler, offset)
	}
	log.Info().Msg("telegram polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("timeout", strconv.Itoa(int(pollTimeout.Seconds())))
	q.Set("allowed_updates", `["message"]`)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, stripURL(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, stripURL(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read updates: %w", err)
	}
	var result struct {
		OK          bool             `json:"ok"`
		Description string           `json:"description"`
		Result      []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates: %s", result.Description)
	}
	return result.Result, nil
}

// dispatch answers every command in updates and returns the next offset.
func (t *TelegramNotifier) dispatch(ctx context.Context, updates []telegramUpdate, handler CommandHandler, offset int) int {
	for _, u := range updates {
		if u.UpdateID >= offset {
			offset = u.UpdateID + 1
		}
		if u.Message == nil || strconv.FormatInt(u.Message.Chat.ID, 10) != t.ChatID {
			continue
		}
		cmd := normalizeCommand(u.Message.Text)
		if cmd == "" {
			continue
		}
		log.Info().Str("command", cmd).Msg("received command")
		if reply := handler(cmd); reply != "" {
			if err := t.Deliver(ctx, reply); err != nil {
				log.Error().Err(err).Str("command", cmd).Msg("send reply")
			}
		}
	}
	return offset
}

// normalizeCommand keeps the first word and drops a "@botname" suffix, so
// "/ratios@dash_bot now" becomes "/ratios".
func normalizeCommand(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd)
}
