// ABOUTME: Dispatcher routing inbound updates to command, callback and relay handlers
// ABOUTME: One goroutine per update, duplicate updates dropped, panics recovered per event

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/relay-bot/internal/access"
	"github.com/2389/relay-bot/internal/dedupe"
	"github.com/2389/relay-bot/internal/history"
	"github.com/2389/relay-bot/internal/llm"
)

const (
	// sendTimeout bounds every outbound Telegram call.
	sendTimeout = 30 * time.Second

	// Updates are redelivered after reconnects; remember IDs long enough to cover that.
	seenTTL   = 10 * time.Minute
	seenMax   = 10000
	seenSweep = time.Minute
)

// Options configures a Dispatcher.
type Options struct {
	Access    *access.Service
	History   *history.Service
	LLM       llm.Client
	Messenger Messenger
	Admins    access.Admins

	// Username is the bot's handle without the leading @.
	Username string
	// MentionRequired makes group chats ignore text that neither is a command nor mentions the bot.
	MentionRequired bool
	// AppID is passed on every completion request.
	AppID string

	Logger *slog.Logger
}

// Dispatcher maps inbound updates to handlers.
type Dispatcher struct {
	access    *access.Service
	history   *history.Service
	llm       llm.Client
	messenger Messenger
	admins    access.Admins

	username        string
	mentionRequired bool
	appID           string

	seen   *dedupe.Cache[int]
	locks  *userLocks
	logger *slog.Logger
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		access:          opts.Access,
		history:         opts.History,
		llm:             opts.LLM,
		messenger:       opts.Messenger,
		admins:          opts.Admins,
		username:        strings.TrimPrefix(opts.Username, "@"),
		mentionRequired: opts.MentionRequired,
		appID:           opts.AppID,
		seen:            dedupe.New[int](seenTTL, seenMax, seenSweep),
		locks:           newUserLocks(),
		logger:          logger.With("component", "dispatcher"),
	}
}

// Run handles updates until ctx is cancelled or updates is closed, then waits
// for in-flight handlers to finish.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan Update) error {
	d.logger.Info("dispatcher running", "username", d.username, "admins", d.admins.Len())
	defer d.seen.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down dispatcher")
			return nil
		case u, ok := <-updates:
			if !ok {
				d.logger.Info("update channel closed")
				return nil
			}
			if d.seen.Seen(u.ID) {
				d.logger.Debug("duplicate update dropped", "update_id", u.ID)
				continue
			}

			// Handle in a goroutine so a slow model call does not block polling
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.Handle(ctx, u)
			}()
		}
	}
}

// Handle processes a single update. It never panics.
func (d *Dispatcher) Handle(ctx context.Context, u Update) {
	logger := d.logger.With("event_id", uuid.NewString(), "update_id", u.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked", "panic", r)
			if chatID, ok := u.chatID(); ok {
				d.send(ctx, logger, chatID, Reply{Text: textGenericError})
			}
		}
	}()

	switch {
	case u.Message != nil:
		d.handleMessage(ctx, logger, u.Message)
	case u.Callback != nil:
		d.handleCallback(ctx, logger, u.Callback)
	default:
		logger.Debug("ignoring update without message or callback")
	}
}

func (u Update) chatID() (int64, bool) {
	switch {
	case u.Message != nil:
		return u.Message.ChatID, true
	case u.Callback != nil && u.Callback.ChatID != 0:
		return u.Callback.ChatID, true
	default:
		return 0, false
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, logger *slog.Logger, m *Message) {
	logger = logger.With("chat_id", m.ChatID, "user_id", m.UserID)

	text := strings.TrimSpace(m.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		name, args, ok := parseCommand(text, d.username)
		if !ok {
			logger.Debug("ignoring command for another bot")
			return
		}
		d.handleCommand(ctx, logger, m, name, args)
		return
	}

	d.relay(ctx, logger, m, text)
}

// parseCommand splits "/name@bot arg1 arg2" into name and arguments.
// ok is false when the command is addressed to a different bot.
func parseCommand(text, username string) (name string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil, false
	}

	name = strings.TrimPrefix(fields[0], "/")
	if cmd, target, found := strings.Cut(name, "@"); found {
		if username == "" || !strings.EqualFold(target, username) {
			return "", nil, false
		}
		name = cmd
	}
	return strings.ToLower(name), fields[1:], name != ""
}

// send delivers a reply and logs failures. It returns the new message ID, or 0.
func (d *Dispatcher) send(ctx context.Context, logger *slog.Logger, chatID int64, reply Reply) int {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	id, err := d.messenger.Send(ctx, chatID, reply)
	if err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
		return 0
	}
	return id
}

func (d *Dispatcher) edit(ctx context.Context, logger *slog.Logger, chatID int64, messageID int, reply Reply) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := d.messenger.Edit(ctx, chatID, messageID, reply); err != nil {
		logger.Error("failed to edit message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (d *Dispatcher) remove(ctx context.Context, logger *slog.Logger, chatID int64, messageID int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := d.messenger.Delete(ctx, chatID, messageID); err != nil {
		logger.Debug("failed to delete message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (d *Dispatcher) reply(ctx context.Context, logger *slog.Logger, chatID int64, format string, args ...any) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	d.send(ctx, logger, chatID, Reply{Text: text})
}
