// ABOUTME: Admin menu button callbacks
// ABOUTME: Each press is acknowledged first, then the menu message is edited in place

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

func (d *Dispatcher) handleCallback(ctx context.Context, logger *slog.Logger, cb *Callback) {
	logger = logger.With("chat_id", cb.ChatID, "user_id", cb.UserID, "callback", cb.Data)

	// Telegram shows a spinner on the button until the query is answered
	func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		if err := d.messenger.AnswerCallback(ctx, cb.ID); err != nil {
			logger.Debug("failed to answer callback", "error", err)
		}
	}()

	if cb.ChatID == 0 || cb.MessageID == 0 {
		// The menu message is too old for Telegram to hand back
		logger.Debug("callback without message ignored")
		return
	}

	if !d.admins.IsAdmin(cb.UserID) {
		logger.Warn("non-admin pressed admin button")
		d.edit(ctx, logger, cb.ChatID, cb.MessageID, Reply{Text: textNoAdminRights})
		return
	}

	switch cb.Data {
	case callbackGenerateInvite:
		code, err := d.access.CreateInvite(ctx, &cb.UserID)
		if err != nil {
			logger.Error("creating invite", "error", err)
			d.edit(ctx, logger, cb.ChatID, cb.MessageID, Reply{Text: textInviteFailed})
			return
		}
		d.edit(ctx, logger, cb.ChatID, cb.MessageID, inviteReply(code))

	case callbackViewUsers:
		ids, err := d.access.ListAllowedUsers(ctx)
		if err != nil {
			d.edit(ctx, logger, cb.ChatID, cb.MessageID, Reply{Text: textUsersFailed})
			return
		}
		d.edit(ctx, logger, cb.ChatID, cb.MessageID, Reply{Text: usersText(ids)})

	case callbackCloseMenu:
		d.edit(ctx, logger, cb.ChatID, cb.MessageID, Reply{Text: textMenuClosed})

	default:
		logger.Debug("unknown callback ignored")
	}
}

func usersText(ids []int64) string {
	if len(ids) == 0 {
		return textNoUsers
	}
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf(textUsersList, strings.Join(lines, "\n"))
}
