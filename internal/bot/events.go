// ABOUTME: Transport-neutral events and the outbound messenger interface
// ABOUTME: The Telegram adapter converts updates into these and implements Messenger

package bot

import "context"

// ChatType is the kind of chat an event came from.
type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// IsGroup reports whether messages need to address the bot explicitly.
func (c ChatType) IsGroup() bool {
	return c == ChatGroup || c == ChatSupergroup
}

// Message is an inbound text message.
type Message struct {
	ChatID    int64
	ChatType  ChatType
	UserID    int64
	MessageID int
	Text      string
}

// Callback is an inline keyboard button press.
type Callback struct {
	ID        string // must be answered
	UserID    int64
	ChatID    int64
	MessageID int // the message carrying the keyboard
	Data      string
}

// Update is one inbound event. Exactly one of Message and Callback is set.
type Update struct {
	ID       int
	Message  *Message
	Callback *Callback
}

// Button is an inline keyboard button carrying an opaque callback token.
type Button struct {
	Label string
	Data  string
}

// Reply is an outbound message body.
type Reply struct {
	Text     string
	Markdown bool
	Keyboard [][]Button // rows of buttons
}

// Messenger delivers replies to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, reply Reply) (messageID int, err error)
	Edit(ctx context.Context, chatID int64, messageID int, reply Reply) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID string) error
}
