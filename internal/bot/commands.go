// ABOUTME: Slash command handlers: /start, /help, /clearhistory, /request_access and admin commands
// ABOUTME: Admin commands are gated on the configured admin set, not on the allow-list

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

func (d *Dispatcher) handleCommand(ctx context.Context, logger *slog.Logger, m *Message, name string, args []string) {
	logger = logger.With("command", name)
	logger.Info("received command")

	switch name {
	case "start":
		d.cmdStart(ctx, logger, m)
	case "help":
		d.cmdHelp(ctx, logger, m)
	case "clearhistory":
		d.cmdClearHistory(ctx, logger, m)
	case "request_access":
		d.cmdRequestAccess(ctx, logger, m, args)
	case "add_user":
		d.cmdAddUser(ctx, logger, m, args)
	case "generate_invite":
		d.cmdGenerateInvite(ctx, logger, m)
	case "admin":
		d.cmdAdmin(ctx, logger, m)
	default:
		logger.Debug("unknown command ignored")
	}
}

func (d *Dispatcher) cmdStart(ctx context.Context, logger *slog.Logger, m *Message) {
	if !d.access.IsAllowed(ctx, m.UserID) {
		d.reply(ctx, logger, m.ChatID, textNoAccess)
		return
	}
	d.reply(ctx, logger, m.ChatID, textGreeting)
}

func (d *Dispatcher) cmdHelp(ctx context.Context, logger *slog.Logger, m *Message) {
	text := textHelp
	if d.admins.IsAdmin(m.UserID) {
		text += textHelpAdmin
	}
	d.send(ctx, logger, m.ChatID, Reply{Text: text})
}

func (d *Dispatcher) cmdClearHistory(ctx context.Context, logger *slog.Logger, m *Message) {
	if !d.access.IsAllowed(ctx, m.UserID) {
		d.reply(ctx, logger, m.ChatID, textNoAccessShort)
		return
	}

	// Wait for any in-flight turn so it cannot write the history back afterwards
	var err error
	d.locks.withLock(m.UserID, func() {
		err = d.history.ClearContext(ctx, m.UserID)
	})
	if err != nil {
		d.reply(ctx, logger, m.ChatID, textHistoryFailed)
		return
	}
	d.reply(ctx, logger, m.ChatID, textHistoryCleared)
}

func (d *Dispatcher) cmdRequestAccess(ctx context.Context, logger *slog.Logger, m *Message, args []string) {
	if len(args) == 0 {
		d.reply(ctx, logger, m.ChatID, textRequestUsage)
		return
	}

	if !d.access.RedeemInviteCode(ctx, args[0], m.UserID) {
		d.reply(ctx, logger, m.ChatID, textInvalidInvite)
		return
	}
	d.reply(ctx, logger, m.ChatID, textAccessGranted)
}

func (d *Dispatcher) cmdAddUser(ctx context.Context, logger *slog.Logger, m *Message, args []string) {
	if !d.admins.IsAdmin(m.UserID) {
		d.reply(ctx, logger, m.ChatID, textNoAdminRights)
		return
	}
	if len(args) == 0 {
		d.reply(ctx, logger, m.ChatID, textAddUserUsage)
		return
	}

	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		d.reply(ctx, logger, m.ChatID, textAddUserUsage)
		return
	}

	if err := d.access.GrantAccess(ctx, target); err != nil {
		d.reply(ctx, logger, m.ChatID, textAddUserFailed)
		return
	}
	d.reply(ctx, logger, m.ChatID, textUserAdded, target)
}

func (d *Dispatcher) cmdGenerateInvite(ctx context.Context, logger *slog.Logger, m *Message) {
	if !d.admins.IsAdmin(m.UserID) {
		d.reply(ctx, logger, m.ChatID, textNoAdminRights)
		return
	}

	code, err := d.access.CreateInvite(ctx, &m.UserID)
	if err != nil {
		logger.Error("creating invite", "error", err)
		d.reply(ctx, logger, m.ChatID, textInviteFailed)
		return
	}
	d.send(ctx, logger, m.ChatID, inviteReply(code))
}

func (d *Dispatcher) cmdAdmin(ctx context.Context, logger *slog.Logger, m *Message) {
	if !d.admins.IsAdmin(m.UserID) {
		d.reply(ctx, logger, m.ChatID, textNoAdminRights)
		return
	}
	d.send(ctx, logger, m.ChatID, Reply{Text: textAdminMenu, Keyboard: adminKeyboard()})
}

func adminKeyboard() [][]Button {
	return [][]Button{
		{{Label: textButtonInvite, Data: callbackGenerateInvite}},
		{{Label: textButtonViewUsers, Data: callbackViewUsers}},
		{{Label: textButtonCloseMenu, Data: callbackCloseMenu}},
	}
}

// Codes are alphanumeric, so they are safe inside a Markdown code span.
func inviteReply(code string) Reply {
	return Reply{Text: fmt.Sprintf(textInviteCreated, code), Markdown: true}
}
