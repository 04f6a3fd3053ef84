// ABOUTME: Per-user conversation context persisted as a JSON array of role-tagged turns
// ABOUTME: Reads fail soft to an empty history; saves apply the rolling window first

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/relay-bot/internal/llm"
	"github.com/2389/relay-bot/internal/store"
)

// DefaultMaxTurns bounds stored history when no window is configured.
const DefaultMaxTurns = 50

// Window bounds the context kept for a user. Zero fields are unbounded.
type Window struct {
	MaxTurns int // newest messages kept
	MaxChars int // total content length kept, in characters
}

// Apply returns the newest suffix of messages that fits the window.
// The result starts with a user turn, and the newest message is always kept,
// even if it alone exceeds MaxChars.
func (w Window) Apply(messages []llm.Message) []llm.Message {
	if len(messages) == 0 {
		return messages
	}

	start := 0
	if w.MaxTurns > 0 && len(messages) > w.MaxTurns {
		start = len(messages) - w.MaxTurns
	}

	if w.MaxChars > 0 {
		total := 0
		for i := len(messages) - 1; i >= start; i-- {
			total += len([]rune(messages[i].Content))
			if total > w.MaxChars && i < len(messages)-1 {
				start = i + 1
				break
			}
		}
	}

	// Never open on an answer whose prompt was dropped
	for start < len(messages)-1 && messages[start].Role != llm.RoleUser {
		start++
	}

	return messages[start:]
}

// Service reads and writes conversation context.
type Service struct {
	store  store.ContextStore
	window Window
	logger *slog.Logger
}

// New creates a history Service.
func New(s store.ContextStore, window Window, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		window: window,
		logger: logger.With("component", "history"),
	}
}

// GetContext returns the stored turns for userID, oldest first.
// Missing, unreadable or corrupt context yields an empty history.
func (s *Service) GetContext(ctx context.Context, userID int64) []llm.Message {
	payload, err := s.store.GetContext(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("no previous context", "user_id", userID)
		return []llm.Message{}
	}
	if err != nil {
		s.logger.Error("loading context", "user_id", userID, "error", err)
		return []llm.Message{}
	}

	var messages []llm.Message
	if err := json.Unmarshal([]byte(payload), &messages); err != nil {
		s.logger.Error("decoding context", "user_id", userID, "error", err)
		return []llm.Message{}
	}
	if messages == nil {
		messages = []llm.Message{}
	}
	return messages
}

// SaveContext windows messages and replaces the stored context for userID.
func (s *Service) SaveContext(ctx context.Context, userID int64, messages []llm.Message) error {
	kept := s.window.Apply(messages)
	if kept == nil {
		kept = []llm.Message{}
	}

	payload, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("encoding context: %w", err)
	}

	if err := s.store.SaveContext(ctx, userID, string(payload)); err != nil {
		s.logger.Error("saving context", "user_id", userID, "error", err)
		return fmt.Errorf("saving context: %w", err)
	}

	if dropped := len(messages) - len(kept); dropped > 0 {
		s.logger.Debug("trimmed context", "user_id", userID, "dropped", dropped)
	}
	return nil
}

// ClearContext deletes the stored context for userID. Absence is not an error.
func (s *Service) ClearContext(ctx context.Context, userID int64) error {
	if err := s.store.DeleteContext(ctx, userID); err != nil {
		s.logger.Error("clearing context", "user_id", userID, "error", err)
		return fmt.Errorf("clearing context: %w", err)
	}
	s.logger.Info("context cleared", "user_id", userID)
	return nil
}
