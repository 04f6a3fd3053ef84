// ABOUTME: DashScope application completion client (Alibaba Model Studio)
// ABOUTME: Posts prompt plus message history to /apps/{app_id}/completion

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultDashScopeURL is the international API endpoint.
const DefaultDashScopeURL = "https://dashscope-intl.aliyuncs.com/api/v1"

// APIError is a non-2xx answer from an HTTP provider.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("llm api: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm api: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// DashScope calls a DashScope application.
type DashScope struct {
	appID   string
	apiKey  string
	baseURL string
	system  string
	http    *http.Client
}

// NewDashScope creates a DashScope client from cfg.
func NewDashScope(cfg Config) *DashScope {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultDashScopeURL
	}
	return &DashScope{
		appID:   cfg.AppID,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		system:  cfg.SystemPrompt,
		// No client timeout; Config.Timeout bounds calls through the context
		http:    &http.Client{},
	}
}

type dashScopeRequest struct {
	Input struct {
		Prompt   string    `json:"prompt"`
		Messages []Message `json:"messages,omitempty"`
	} `json:"input"`
	Parameters struct{} `json:"parameters"`
}

type dashScopeResponse struct {
	Output struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Complete implements Client.
func (d *DashScope) Complete(ctx context.Context, req Request) (string, error) {
	appID := req.AppID
	if appID == "" {
		appID = d.appID
	}

	var body dashScopeRequest
	body.Input.Prompt = req.Prompt
	body.Input.Messages = withSystem(d.system, req.History)

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	endpoint := d.baseURL + "/apps/" + url.PathEscape(appID) + "/completion"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling dashscope: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var out dashScopeResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := out.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Code:       out.Code,
			Message:    msg,
			RequestID:  out.RequestID,
		}
	}

	if strings.TrimSpace(out.Output.Text) == "" {
		return "", ErrEmptyResponse
	}
	return out.Output.Text, nil
}
