// ABOUTME: Free-text relay: access gate, context load, model call, chunked reply, context save
// ABOUTME: Turns of the same user are serialized so context updates are never lost

package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/2389/relay-bot/internal/format"
	"github.com/2389/relay-bot/internal/llm"
)

// addressed reports whether a message should be handled at all.
// Group chats only get answers when the bot is mentioned.
func (d *Dispatcher) addressed(m *Message) bool {
	if !m.ChatType.IsGroup() || !d.mentionRequired {
		return true
	}
	return d.username != "" && strings.Contains(m.Text, "@"+d.username)
}

// stripMention removes every @username occurrence from text.
func (d *Dispatcher) stripMention(text string) string {
	if d.username == "" {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.ReplaceAll(text, "@"+d.username, ""))
}

func (d *Dispatcher) relay(ctx context.Context, logger *slog.Logger, m *Message, text string) {
	if !d.addressed(m) {
		return
	}

	if !d.access.IsAllowed(ctx, m.UserID) {
		logger.Info("relay denied")
		d.reply(ctx, logger, m.ChatID, textNoAccess)
		return
	}

	prompt := format.Sanitize(d.stripMention(text))
	if prompt == "" {
		return
	}

	logger.Info("received message", "content", truncate(prompt, 50))

	d.locks.withLock(m.UserID, func() {
		d.converse(ctx, logger, m, prompt)
	})
}

// converse runs one turn. Callers hold the user's lock.
func (d *Dispatcher) converse(ctx context.Context, logger *slog.Logger, m *Message, prompt string) {
	turns := d.history.GetContext(ctx, m.UserID)
	turns = append(turns, llm.Message{Role: llm.RoleUser, Content: prompt})

	if placeholder := d.send(ctx, logger, m.ChatID, Reply{Text: textTyping}); placeholder != 0 {
		defer d.remove(ctx, logger, m.ChatID, placeholder)
	}

	output, err := d.llm.Complete(ctx, llm.Request{
		AppID:   d.appID,
		Prompt:  prompt,
		History: turns,
	})
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			logger.Warn("empty response from model")
		} else {
			logger.Error("model request failed", "error", err)
		}
		d.reply(ctx, logger, m.ChatID, textUpstreamFailed)
		return
	}

	answer := format.Sanitize(format.FormatList(output))

	if err := d.sendChunks(ctx, m.ChatID, answer); err != nil {
		logger.Error("failed to send answer, retrying unformatted", "error", err)
		if err := d.sendChunks(ctx, m.ChatID, output); err != nil {
			logger.Error("failed to send answer", "error", err)
			d.reply(ctx, logger, m.ChatID, textGenericError)
			return
		}
	}

	logger.Info("sent response", "length", len(answer))

	turns = append(turns, llm.Message{Role: llm.RoleAssistant, Content: answer})
	if err := d.history.SaveContext(ctx, m.UserID, turns); err != nil {
		logger.Error("context not saved", "error", err)
	}
}

// sendChunks sends text in as many messages as the transport limit requires.
func (d *Dispatcher) sendChunks(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range format.Chunk(text, format.MaxMessageLength) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		_, err := d.messenger.Send(sctx, chatID, Reply{Text: chunk})
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
