// ABOUTME: Telegram transport over telego long polling
// ABOUTME: Converts Telegram updates into dispatcher events and implements bot.Messenger

package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/2389/relay-bot/internal/bot"
)

// DefaultPollTimeout is the long-polling timeout used when none is configured.
const DefaultPollTimeout = 30 * time.Second

// ErrMissingToken is returned by New when no bot token is configured.
var ErrMissingToken = errors.New("telegram bot token is required")

// Options configures a Client.
type Options struct {
	Token       string
	PollTimeout time.Duration
	// DropPending discards updates that queued up while the bot was offline.
	DropPending bool
	// APIServer points at a self-hosted Bot API server; empty uses api.telegram.org.
	APIServer   string
	Logger      *slog.Logger
}

// Client is a connected Telegram bot.
type Client struct {
	bot         *telego.Bot
	username    string
	pollTimeout time.Duration
	dropPending bool
	logger      *slog.Logger
}

var _ bot.Messenger = (*Client)(nil)

// New connects to the Bot API and resolves the bot's own username.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, ErrMissingToken
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "telegram")

	botOpts := []telego.BotOption{telego.WithLogger(slogAdapter{logger: logger})}
	if opts.APIServer != "" {
		botOpts = append(botOpts, telego.WithAPIServer(opts.APIServer))
	}

	b, err := telego.NewBot(opts.Token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching bot identity: %w", err)
	}

	timeout := opts.PollTimeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	logger.Info("connected to telegram", "username", me.Username, "bot_id", me.ID)
	return &Client{
		bot:         b,
		username:    me.Username,
		pollTimeout: timeout,
		dropPending: opts.DropPending,
		logger:      logger,
	}, nil
}

// Username returns the bot's handle without the leading @.
func (c *Client) Username() string {
	return c.username
}

// Updates starts long polling. The returned channel closes when ctx is cancelled.
func (c *Client) Updates(ctx context.Context) (<-chan bot.Update, error) {
	if c.dropPending {
		// Deleting the webhook is the only Bot API call that can drop the queue
		err := c.bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{DropPendingUpdates: true})
		if err != nil {
			return nil, fmt.Errorf("dropping pending updates: %w", err)
		}
		c.logger.Info("dropped pending updates")
	}

	raw, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        int(c.pollTimeout / time.Second),
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return nil, fmt.Errorf("starting long polling: %w", err)
	}

	out := make(chan bot.Update)
	go func() {
		defer close(out)
		for u := range raw {
			converted, ok := convertUpdate(u)
			if !ok {
				c.logger.Debug("ignoring unsupported update", "update_id", u.UpdateID)
				continue
			}
			select {
			case out <- converted:
			case <-ctx.Done():
				return
			}
		}
	}()

	c.logger.Info("long polling started", "timeout", c.pollTimeout)
	return out, nil
}

// Send posts a new message and returns its ID.
func (c *Client) Send(ctx context.Context, chatID int64, reply bot.Reply) (int, error) {
	params := tu.Message(tu.ID(chatID), reply.Text)
	if reply.Markdown {
		params = params.WithParseMode(telego.ModeMarkdown)
	}
	if kb := keyboard(reply.Keyboard); kb != nil {
		params = params.WithReplyMarkup(kb)
	}

	msg, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("sending message: %w", err)
	}
	return msg.MessageID, nil
}

// Edit replaces the text and keyboard of an earlier message.
func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, reply bot.Reply) error {
	params := &telego.EditMessageTextParams{
		ChatID:      tu.ID(chatID),
		MessageID:   messageID,
		Text:        reply.Text,
		ReplyMarkup: keyboard(reply.Keyboard),
	}
	if reply.Markdown {
		params.ParseMode = telego.ModeMarkdown
	}

	if _, err := c.bot.EditMessageText(ctx, params); err != nil {
		return fmt.Errorf("editing message: %w", err)
	}
	return nil
}

// Delete removes a message.
func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := c.bot.DeleteMessage(ctx, tu.Delete(tu.ID(chatID), messageID)); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	if err := c.bot.AnswerCallbackQuery(ctx, tu.CallbackQuery(callbackID)); err != nil {
		return fmt.Errorf("answering callback: %w", err)
	}
	return nil
}

// convertUpdate maps a Telegram update onto a dispatcher event.
// ok is false for update kinds the bot does not handle.
func convertUpdate(u telego.Update) (bot.Update, bool) {
	switch {
	case u.Message != nil:
		m := u.Message
		if m.From == nil || m.Text == "" {
			// Channel posts and non-text messages
			return bot.Update{}, false
		}
		return bot.Update{
			ID: u.UpdateID,
			Message: &bot.Message{
				ChatID:    m.Chat.ID,
				ChatType:  bot.ChatType(m.Chat.Type),
				UserID:    m.From.ID,
				MessageID: m.MessageID,
				Text:      m.Text,
			},
		}, true

	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		cb := &bot.Callback{
			ID:     q.ID,
			UserID: q.From.ID,
			Data:   q.Data,
		}
		if q.Message != nil {
			cb.ChatID = q.Message.GetChat().ID
			cb.MessageID = q.Message.GetMessageID()
		}
		return bot.Update{ID: u.UpdateID, Callback: cb}, true

	default:
		return bot.Update{}, false
	}
}

// keyboard builds an inline keyboard, or nil when there are no buttons.
func keyboard(rows [][]bot.Button) *telego.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kbRows := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Label).WithCallbackData(b.Data))
		}
		kbRows = append(kbRows, tu.InlineKeyboardRow(buttons...))
	}
	return tu.InlineKeyboard(kbRows...)
}

// slogAdapter routes telego's internal logging through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}
