// ABOUTME: Google Gemini client over google.golang.org/genai
// ABOUTME: Maps assistant turns to the model role and the system prompt to SystemInstruction

package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini calls the Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	system    string
	maxTokens int32
}

// NewGemini creates a Gemini client from cfg.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{
		client:    client,
		model:     cfg.Model,
		system:    cfg.SystemPrompt,
		maxTokens: int32(cfg.MaxTokens),
	}, nil
}

// geminiContents converts history to genai contents, pulling system turns out.
func geminiContents(history []Message) (contents []*genai.Content, system []string) {
	for _, m := range history {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, system
}

// Complete implements Client.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	contents, system := geminiContents(withSystem(g.system, req.History))

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("calling gemini: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
