// ABOUTME: Language-model client abstraction shared by every provider
// ABOUTME: One-shot completions over role-tagged history, no streaming

package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Role tags who authored a message in the conversation context.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of conversation context. The JSON form is what gets persisted.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
// History already ends with the user turn carrying Prompt.
type Request struct {
	AppID   string // overrides the configured application, DashScope only
	Prompt  string
	History []Message
}

// Client produces a completion for a request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrEmptyResponse is returned when the upstream answered without any text.
var ErrEmptyResponse = errors.New("empty response from language model")

// Supported providers.
const (
	ProviderDashScope = "dashscope"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config selects and configures a provider.
type Config struct {
	Provider     string
	AppID        string
	APIKey       string
	Model        string
	BaseURL      string
	SystemPrompt string
	MaxTokens    int
	Timeout      time.Duration // zero means no limit beyond the caller's context
}

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	var (
		c   Client
		err error
	)

	switch cfg.Provider {
	case ProviderDashScope, "":
		c = NewDashScope(cfg)
	case ProviderOpenAI:
		c = NewOpenAI(cfg)
	case ProviderAnthropic:
		c = NewAnthropic(cfg)
	case ProviderGemini:
		c, err = NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		c = &timeoutClient{next: c, timeout: cfg.Timeout}
	}
	return c, nil
}

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

func (t *timeoutClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, req)
}

// withSystem prepends a system turn when prompt is set.
func withSystem(prompt string, history []Message) []Message {
	if prompt == "" {
		return history
	}
	out := make([]Message, 0, len(history)+1)
	out = append(out, Message{Role: RoleSystem, Content: prompt})
	return append(out, history...)
}
