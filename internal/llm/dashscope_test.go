package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashScope_Complete(t *testing.T) {
	var got dashScopeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/apps/app-123/completion", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":{"text":"Hello there","finish_reason":"stop"},"request_id":"req-1"}`))
	}))
	defer srv.Close()

	c := NewDashScope(Config{AppID: "app-123", APIKey: "sk-test", BaseURL: srv.URL + "/"})

	out, err := c.Complete(context.Background(), Request{
		Prompt: "hi",
		History: []Message{
			{Role: RoleUser, Content: "earlier"},
			{Role: RoleAssistant, Content: "reply"},
			{Role: RoleUser, Content: "hi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out)

	// Verify prompt and full history were sent
	assert.Equal(t, "hi", got.Input.Prompt)
	require.Len(t, got.Input.Messages, 3)
	assert.Equal(t, RoleAssistant, got.Input.Messages[1].Role)
}

func TestDashScope_AppIDOverrideAndSystemPrompt(t *testing.T) {
	var got dashScopeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps/other/completion", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"output":{"text":"ok"}}`))
	}))
	defer srv.Close()

	c := NewDashScope(Config{AppID: "app-123", BaseURL: srv.URL, SystemPrompt: "be brief"})

	_, err := c.Complete(context.Background(), Request{
		AppID:   "other",
		Prompt:  "q",
		History: []Message{{Role: RoleUser, Content: "q"}},
	})
	require.NoError(t, err)
	require.Len(t, got.Input.Messages, 2)
	assert.Equal(t, Message{Role: RoleSystem, Content: "be brief"}, got.Input.Messages[0])
}

func TestDashScope_EmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":{"text":"  "}}`))
	}))
	defer srv.Close()

	c := NewDashScope(Config{AppID: "a", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestDashScope_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"InvalidApiKey","message":"Invalid API-key provided.","request_id":"r1"}`))
	}))
	defer srv.Close()

	c := NewDashScope(Config{AppID: "a", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "InvalidApiKey", apiErr.Code)
	assert.Equal(t, "r1", apiErr.RequestID)
}

func TestDashScope_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := NewDashScope(Config{AppID: "a", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorContains(t, err, "upstream down")
}

func TestDashScope_EscapesAppID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps/team%2Fbot/completion", r.URL.EscapedPath())
		w.Write([]byte(`{"output":{"text":"ok"}}`))
	}))
	defer srv.Close()

	c := NewDashScope(Config{AppID: "team/bot", BaseURL: srv.URL})

	out, err := c.Complete(context.Background(), Request{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestDashScope_NoTimeoutByDefault(t *testing.T) {
	c := NewDashScope(Config{AppID: "app"})
	assert.Zero(t, c.http.Timeout)

	// A configured timeout comes from the wrapper instead
	wrapped, err := New(context.Background(), Config{AppID: "app", Timeout: time.Second})
	require.NoError(t, err)
	tc, ok := wrapped.(*timeoutClient)
	require.True(t, ok)
	assert.Equal(t, time.Second, tc.timeout)
}
