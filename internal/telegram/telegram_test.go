package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/relay-bot/internal/bot"
)

func TestConvertUpdate_Message(t *testing.T) {
	u := telego.Update{
		UpdateID: 7,
		Message: &telego.Message{
			MessageID: 31,
			From:      &telego.User{ID: 5},
			Chat:      telego.Chat{ID: -100, Type: telego.ChatTypeSupergroup},
			Text:      "@relaybot hi",
		},
	}

	got, ok := convertUpdate(u)
	require.True(t, ok)
	assert.Equal(t, 7, got.ID)
	assert.Nil(t, got.Callback)
	require.NotNil(t, got.Message)
	assert.Equal(t, bot.Message{
		ChatID:    -100,
		ChatType:  bot.ChatSupergroup,
		UserID:    5,
		MessageID: 31,
		Text:      "@relaybot hi",
	}, *got.Message)
	assert.True(t, got.Message.ChatType.IsGroup())
}

func TestConvertUpdate_IgnoresNonText(t *testing.T) {
	tests := []struct {
		name string
		u    telego.Update
	}{
		{"empty", telego.Update{UpdateID: 1}},
		{"sticker", telego.Update{UpdateID: 2, Message: &telego.Message{
			From: &telego.User{ID: 1},
			Chat: telego.Chat{ID: 1, Type: telego.ChatTypePrivate},
		}}},
		{"no sender", telego.Update{UpdateID: 3, Message: &telego.Message{
			Chat: telego.Chat{ID: 1, Type: telego.ChatTypeChannel},
			Text: "post",
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := convertUpdate(tt.u)
			assert.False(t, ok)
		})
	}
}

func TestConvertUpdate_Callback(t *testing.T) {
	u := telego.Update{
		UpdateID: 9,
		CallbackQuery: &telego.CallbackQuery{
			ID:   "q1",
			From: telego.User{ID: 1},
			Data: "view_users",
			Message: &telego.Message{
				MessageID: 55,
				Chat:      telego.Chat{ID: 1, Type: telego.ChatTypePrivate},
			},
		},
	}

	got, ok := convertUpdate(u)
	require.True(t, ok)
	require.NotNil(t, got.Callback)
	assert.Equal(t, bot.Callback{
		ID:        "q1",
		UserID:    1,
		ChatID:    1,
		MessageID: 55,
		Data:      "view_users",
	}, *got.Callback)
}

func TestConvertUpdate_CallbackWithoutMessage(t *testing.T) {
	got, ok := convertUpdate(telego.Update{
		UpdateID:      10,
		CallbackQuery: &telego.CallbackQuery{ID: "q2", From: telego.User{ID: 3}, Data: "close_menu"},
	})

	require.True(t, ok)
	assert.Zero(t, got.Callback.ChatID)
	assert.Zero(t, got.Callback.MessageID)
}

func TestKeyboard(t *testing.T) {
	assert.Nil(t, keyboard(nil))

	kb := keyboard([][]bot.Button{
		{{Label: "Generate invite code", Data: "generate_invite"}},
		{{Label: "A", Data: "a"}, {Label: "B", Data: "b"}},
	})
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "Generate invite code", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "generate_invite", kb.InlineKeyboard[0][0].CallbackData)
	require.Len(t, kb.InlineKeyboard[1], 2)
	assert.Equal(t, "b", kb.InlineKeyboard[1][1].CallbackData)
}

func TestNew_MissingToken(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrMissingToken)
}

// stubAPI answers Bot API calls and records each request body by method name.
type stubAPI struct {
	mu    sync.Mutex
	calls map[string]map[string]any
}

func newStubAPI(t *testing.T) (*stubAPI, *httptest.Server) {
	t.Helper()
	api := &stubAPI{calls: map[string]map[string]any{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := path.Base(r.URL.Path)
		body := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		api.mu.Lock()
		api.calls[method] = body
		api.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Relay","username":"relaybot"}}`))
		case "sendMessage", "editMessageText":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
		case "answerCallbackQuery", "deleteMessage":
			_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *stubAPI) call(method string) map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method]
}

func newStubClient(t *testing.T) (*Client, *stubAPI) {
	t.Helper()
	api, srv := newStubAPI(t)
	c, err := New(context.Background(), Options{
		Token:     "1234567890:" + strings.Repeat("A", 35),
		APIServer: srv.URL,
	})
	require.NoError(t, err)
	return c, api
}

func TestNew_ResolvesUsername(t *testing.T) {
	c, api := newStubClient(t)

	assert.Equal(t, "relaybot", c.Username())
	assert.NotNil(t, api.call("getMe"))
	assert.Equal(t, DefaultPollTimeout, c.pollTimeout)
}

func TestClient_AnswerCallback(t *testing.T) {
	c, api := newStubClient(t)

	require.NoError(t, c.AnswerCallback(context.Background(), "q1"))

	body := api.call("answerCallbackQuery")
	require.NotNil(t, body)
	assert.Equal(t, "q1", body["callback_query_id"])
}

func TestClient_SendWithKeyboard(t *testing.T) {
	c, api := newStubClient(t)

	id, err := c.Send(context.Background(), 42, bot.Reply{
		Text:     "*menu*",
		Markdown: true,
		Keyboard: [][]bot.Button{{{Label: "Close", Data: "close_menu"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 77, id)

	body := api.call("sendMessage")
	require.NotNil(t, body)
	assert.EqualValues(t, 42, body["chat_id"])
	assert.Equal(t, telego.ModeMarkdown, body["parse_mode"])
	assert.Contains(t, body, "reply_markup")
}

func TestClient_EditAndDelete(t *testing.T) {
	c, api := newStubClient(t)
	ctx := context.Background()

	require.NoError(t, c.Edit(ctx, 42, 77, bot.Reply{Text: "updated"}))
	edit := api.call("editMessageText")
	require.NotNil(t, edit)
	assert.EqualValues(t, 77, edit["message_id"])
	assert.Equal(t, "updated", edit["text"])
	assert.NotContains(t, edit, "parse_mode")

	require.NoError(t, c.Delete(ctx, 42, 77))
	del := api.call("deleteMessage")
	require.NotNil(t, del)
	assert.EqualValues(t, 77, del["message_id"])
}
