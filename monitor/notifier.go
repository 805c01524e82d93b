package monitor

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier delivers one notify-classified record. A failure is reported to
// the caller and never retried by the notifier itself.
type Notifier interface {
	Notify(ctx context.Context, rec HeadlineRecord) error
}

// Announcer is implemented by notifiers that can post free-form operator
// messages such as the startup announcement.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// TelegramNotifier posts headlines to one chat or channel.
type TelegramNotifier struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	channel string
}

// NewTelegramNotifier builds the bot client without contacting Telegram, so
// an unreachable API at boot surfaces as notify failures instead of stopping
// the process. chat is a numeric chat ID or an @channel name. endpoint may be
// empty for the public Bot API.
func NewTelegramNotifier(token, chat, endpoint string, timeout time.Duration) (*TelegramNotifier, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(chat) == "" {
		return nil, fmt.Errorf("telegram: token and chat id required: %w", ErrNotConfigured)
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// NewBotAPIWithClient would call getMe here.
	api := &tgbotapi.BotAPI{
		Token:  strings.TrimSpace(token),
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}
	api.SetAPIEndpoint(endpoint)
	n := &TelegramNotifier{api: api}
	chat = strings.TrimSpace(chat)
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		n.chatID = id
	} else {
		n.channel = chat
	}
	return n, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, rec HeadlineRecord) error {
	return n.send(ctx, html.EscapeString(strings.TrimSpace(rec.RawText)))
}

func (n *TelegramNotifier) Announce(ctx context.Context, text string) error {
	return n.send(ctx, html.EscapeString(text))
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var msg tgbotapi.MessageConfig
	if n.channel != "" {
		msg = tgbotapi.NewMessageToChannel(n.channel, text)
	} else {
		msg = tgbotapi.NewMessage(n.chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	// The bot API has no context support; the client timeout bounds the call
	// and ctx only decides whether we wait for it.
	done := make(chan error, 1)
	go func() {
		_, err := n.api.Send(msg)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}

// LogNotifier only logs. It stands in when no delivery sink is configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, rec HeadlineRecord) error {
	n.Logger.Info().
		Str("fingerprint", string(rec.Fingerprint)).
		Str("timestamp", rec.RawTimestamp).
		Msg(rec.RawText)
	return nil
}

func (n LogNotifier) Announce(_ context.Context, text string) error {
	n.Logger.Info().Msg(text)
	return nil
}

// MultiNotifier fans a record out to every sink. It fails if any sink fails.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, rec HeadlineRecord) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) Announce(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if a, ok := n.(Announcer); ok {
			if err := a.Announce(ctx, text); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
